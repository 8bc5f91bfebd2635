package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/Domenick1991/flightbooking/api"
	"github.com/Domenick1991/flightbooking/config"
	"github.com/Domenick1991/flightbooking/internal/auth"
	"github.com/Domenick1991/flightbooking/internal/bootstrap"
	"github.com/Domenick1991/flightbooking/internal/cache"
	"github.com/Domenick1991/flightbooking/internal/domain"
	"github.com/Domenick1991/flightbooking/internal/kafka"
	"github.com/Domenick1991/flightbooking/internal/logger"
	"github.com/Domenick1991/flightbooking/internal/payment"
	"github.com/Domenick1991/flightbooking/internal/repository"
	"github.com/Domenick1991/flightbooking/internal/repository/memory"
	"github.com/Domenick1991/flightbooking/internal/service/booking"
	"github.com/Domenick1991/flightbooking/internal/service/flights"
	"github.com/Domenick1991/flightbooking/internal/service/pricing"
	"github.com/Domenick1991/flightbooking/internal/service/wallet"
)

const (
	demoDays    = 14
	demoBalance = 500000
)

// repositories is the storage selected by storage.driver.
type repositories struct {
	flights  repository.FlightRepository
	airports repository.AirportDirectory
	seats    repository.SeatLedger
	wallets  repository.WalletLedger
	bookings repository.BookingRepository
	tx       repository.Transactor
	close    func()
}

func main() {
	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "config.yaml"
	}

	cfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logg, err := logger.New(cfg.Log)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer logg.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	authService := auth.NewService(cfg.Auth)

	repos, err := openStorage(ctx, cfg, authService, logg)
	if err != nil {
		logg.Fatal("open storage", zap.Error(err))
	}
	defer repos.close()

	redisCache := cache.NewRedisCache(cfg.Redis,
		time.Duration(cfg.Search.ScheduleCacheTTL)*time.Second,
		time.Duration(cfg.Booking.IdempotencyTTLMins)*time.Minute)
	defer redisCache.Close()

	var scheduleCache flights.ScheduleCache
	var idempotency api.IdempotencyStore
	if err := redisCache.Ping(ctx); err != nil {
		logg.Warn("redis unavailable, running without schedule cache and idempotency keys", zap.Error(err))
	} else {
		scheduleCache = redisCache
		idempotency = redisCache
	}

	gateway, err := payment.NewGateway(cfg.Payment)
	if err != nil {
		logg.Fatal("init payment gateway", zap.Error(err))
	}

	flightService, err := flights.NewFlightService(repos.flights, repos.airports, repos.seats, scheduleCache,
		cfg.Search, cfg.Booking.MaxPassengers, logg.Named("flights"))
	if err != nil {
		logg.Fatal("init flight service", zap.Error(err))
	}

	var opts []booking.BookingServiceOption
	if len(cfg.Kafka.Brokers) > 0 {
		producer := kafka.NewProducer(cfg.Kafka.Brokers, logg.Named("kafka"))
		defer producer.Close()
		if err := checkKafka(ctx, producer); err != nil {
			logg.Warn("kafka unavailable at startup", zap.Error(err))
		}
		opts = append(opts, booking.WithProducer(producer, cfg.Kafka.BookingEventsTopic, cfg.Kafka.NotificationsTopic))
	}
	bookingService := booking.NewBookingService(
		repos.bookings,
		repos.flights,
		repos.seats,
		repos.wallets,
		repos.tx,
		pricing.NewCalculator(cfg.Booking),
		cfg.Booking,
		logg.Named("booking"),
		opts...,
	)
	walletService := wallet.NewWalletService(repos.wallets, gateway, cfg.Booking.Currency, logg.Named("wallet"))

	router := api.NewRouter(cfg, api.RouterDeps{
		Flights:       flightService,
		Bookings:      bookingService,
		Wallets:       walletService,
		Authenticator: authService,
		Idempotency:   idempotency,
		Log:           logg.Named("http"),
	})

	if err := bootstrap.Run(ctx, cfg, router, logg); err != nil {
		logg.Fatal("server error", zap.Error(err))
	}
}

func openStorage(ctx context.Context, cfg *config.Config, authService *auth.Service, logg *zap.Logger) (*repositories, error) {
	if cfg.Storage.Driver == "memory" {
		return openMemory(cfg, authService, logg)
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.Database.DSN())
	if err != nil {
		return nil, fmt.Errorf("parse database config: %w", err)
	}
	if cfg.Database.MaxConns > 0 {
		poolCfg.MaxConns = cfg.Database.MaxConns
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	return &repositories{
		flights:  repository.NewFlightRepository(pool),
		airports: repository.NewAirportDirectory(pool),
		seats:    repository.NewSeatLedger(pool),
		wallets:  repository.NewWalletLedger(pool),
		bookings: repository.NewBookingRepository(pool),
		tx:       repository.NewTxManager(pool),
		close:    pool.Close,
	}, nil
}

// openMemory seeds a demo schedule and logs tokens for a demo user and admin.
// Nothing survives a restart.
func openMemory(cfg *config.Config, authService *auth.Service, logg *zap.Logger) (*repositories, error) {
	user, admin := uuid.New(), uuid.New()
	store := memory.NewStore()
	if err := store.SeedDemo(time.Now(), demoDays, demoBalance, user, admin); err != nil {
		return nil, err
	}

	for _, account := range []struct {
		id   uuid.UUID
		role string
	}{{user, domain.RoleUser}, {admin, domain.RoleAdmin}} {
		token, err := authService.Issue(account.id, account.role, 24*time.Hour)
		if err != nil {
			return nil, err
		}
		logg.Info("demo account", zap.String("user_id", account.id.String()), zap.String("role", account.role), zap.String("token", token))
	}
	logg.Warn("memory storage: bookings are lost on restart", zap.String("currency", cfg.Booking.Currency))

	return &repositories{
		flights:  store.Flights,
		airports: store.Flights,
		seats:    store.Seats,
		wallets:  store.Wallets,
		bookings: store.Bookings,
		tx:       memory.Transactor{},
		close:    func() {},
	}, nil
}

func checkKafka(ctx context.Context, producer *kafka.Producer) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return producer.CheckConnection(ctx)
}
