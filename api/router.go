package api

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	httpSwagger "github.com/swaggo/http-swagger"
	"go.uber.org/zap"

	"github.com/Domenick1991/flightbooking/config"
	"github.com/Domenick1991/flightbooking/internal/metrics"
	"github.com/Domenick1991/flightbooking/internal/service/booking"
	"github.com/Domenick1991/flightbooking/internal/service/flights"
	"github.com/Domenick1991/flightbooking/internal/service/wallet"
)

type RouterDeps struct {
	Flights       flights.FlightUseCase
	Bookings      booking.BookingUseCase
	Wallets       wallet.WalletUseCase
	Authenticator Authenticator
	// Idempotency is optional; without it Idempotency-Key headers are ignored.
	Idempotency IdempotencyStore
	Log         *zap.Logger
}

// NewRouter builds the HTTP API. Health is served by the gateway mux in bootstrap.
func NewRouter(cfg *config.Config, deps RouterDeps) *gin.Engine {
	metrics.Register()

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(RequestLogger(deps.Log))
	router.Use(Metrics())
	router.Use(cors.New(corsConfig(cfg.HTTP)))

	router.GET("/metrics", gin.WrapH(metrics.Handler()))
	if cfg.HTTP.SwaggerDir != "" {
		router.StaticFile("/openapi.json", cfg.HTTP.SwaggerDir+"/openapi.json")
		router.GET("/docs/*any", gin.WrapH(httpSwagger.Handler(httpSwagger.URL("/openapi.json"))))
	}

	v1 := router.Group("/api/v1")
	NewFlightHandler(deps.Flights, deps.Log).Register(v1.Group("/flights"))

	bookingHandler := NewBookingHandler(deps.Bookings, deps.Log)
	bookingHandler.RegisterPublic(v1.Group("/bookings"))

	limiter := NewRateLimiter(cfg.RateLimit.RequestsPerMinute, cfg.RateLimit.Burst)
	writes := []gin.HandlerFunc{limiter.Middleware(deps.Log)}
	if deps.Idempotency != nil {
		writes = append(writes, Idempotency(deps.Idempotency, deps.Log))
	}

	secured := v1.Group("", Auth(deps.Authenticator))
	bookingHandler.Register(secured.Group("/bookings"), writes...)
	NewWalletHandler(deps.Wallets, cfg.Booking.Currency, deps.Log).Register(secured.Group("/wallet"), writes...)

	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": gin.H{"kind": "NOT_FOUND", "message": "route not found"}})
	})
	return router
}

func corsConfig(cfg config.HTTPConfig) cors.Config {
	c := cors.Config{
		AllowMethods:  []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowHeaders:  []string{"Origin", "Content-Type", "Authorization", headerIdempotency, headerRequestID},
		ExposeHeaders: []string{"Content-Length", headerRequestID, headerReplayed},
		MaxAge:        12 * time.Hour,
	}
	if len(cfg.AllowedOrigins) == 0 {
		c.AllowAllOrigins = true
	} else {
		c.AllowOrigins = cfg.AllowedOrigins
		c.AllowCredentials = true
	}
	return c
}

func chain(middleware []gin.HandlerFunc, handler gin.HandlerFunc) []gin.HandlerFunc {
	out := make([]gin.HandlerFunc, 0, len(middleware)+1)
	out = append(out, middleware...)
	return append(out, handler)
}
