package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Domenick1991/flightbooking/internal/domain"
	"github.com/Domenick1991/flightbooking/internal/service/flights"
)

const (
	defaultPassengers  = 1
	defaultMaxLayovers = 1
)

type FlightHandler struct {
	service flights.FlightUseCase
	log     *zap.Logger
}

func NewFlightHandler(service flights.FlightUseCase, log *zap.Logger) *FlightHandler {
	return &FlightHandler{service: service, log: log}
}

func (h *FlightHandler) Register(router *gin.RouterGroup) {
	router.GET("/search", h.search)
	router.GET("/availability", h.availability)
	router.GET("/suggest-dates", h.suggestDates)
	router.GET("/:id/seats", h.seats)
}

type searchResponse struct {
	Itineraries []domain.Itinerary `json:"itineraries"`
	Count       int                `json:"count"`
}

type daysResponse struct {
	Days []domain.DayAvailability `json:"days"`
}

func (h *FlightHandler) search(c *gin.Context) {
	passengers, maxLayovers, ok := h.common(c)
	if !ok {
		return
	}
	minLayover, ok := minutesParam(c, "minLayoverTime")
	if !ok {
		return
	}
	maxLayover, ok := minutesParam(c, "maxLayoverTime")
	if !ok {
		return
	}

	itineraries, err := h.service.Search(c.Request.Context(), flights.SearchQuery{
		Origin:      c.Query("origin"),
		Destination: c.Query("destination"),
		Date:        c.Query("departureDate"),
		Passengers:  passengers,
		Class:       domain.SeatClass(c.Query("class")),
		MaxLayovers: maxLayovers,
		MinLayover:  minLayover,
		MaxLayover:  maxLayover,
	})
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, searchResponse{Itineraries: itineraries, Count: len(itineraries)})
}

func (h *FlightHandler) availability(c *gin.Context) {
	passengers, maxLayovers, ok := h.common(c)
	if !ok {
		return
	}

	days, err := h.service.Availability(c.Request.Context(), flights.AvailabilityQuery{
		Origin:      c.Query("origin"),
		Destination: c.Query("destination"),
		StartDate:   c.Query("startDate"),
		EndDate:     c.Query("endDate"),
		Passengers:  passengers,
		Class:       domain.SeatClass(c.Query("seatClass")),
		MaxLayovers: maxLayovers,
	})
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, daysResponse{Days: days})
}

func (h *FlightHandler) suggestDates(c *gin.Context) {
	passengers, maxLayovers, ok := h.common(c)
	if !ok {
		return
	}
	before, ok := intParam(c, "daysBefore", 0)
	if !ok {
		return
	}
	after, ok := intParam(c, "daysAfter", 0)
	if !ok {
		return
	}

	days, err := h.service.SuggestDates(c.Request.Context(), flights.SuggestQuery{
		Origin:      c.Query("origin"),
		Destination: c.Query("destination"),
		TargetDate:  c.Query("targetDate"),
		DaysBefore:  before,
		DaysAfter:   after,
		Passengers:  passengers,
		Class:       domain.SeatClass(c.Query("class")),
		MaxLayovers: maxLayovers,
	})
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, daysResponse{Days: days})
}

func (h *FlightHandler) seats(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		badRequest(c, "invalid flight id")
		return
	}
	seats, err := h.service.Seats(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"flight_id": id, "seats": seats})
}

func (h *FlightHandler) common(c *gin.Context) (passengers, maxLayovers int, ok bool) {
	if passengers, ok = intParam(c, "passengers", defaultPassengers); !ok {
		return 0, 0, false
	}
	if maxLayovers, ok = intParam(c, "maxLayovers", defaultMaxLayovers); !ok {
		return 0, 0, false
	}
	return passengers, maxLayovers, true
}

func intParam(c *gin.Context, name string, def int) (int, bool) {
	raw := c.Query(name)
	if raw == "" {
		return def, true
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		badRequest(c, name+" must be an integer")
		return 0, false
	}
	return v, true
}

func minutesParam(c *gin.Context, name string) (time.Duration, bool) {
	v, ok := intParam(c, name, 0)
	if !ok {
		return 0, false
	}
	if v < 0 {
		badRequest(c, name+" must not be negative")
		return 0, false
	}
	return time.Duration(v) * time.Minute, true
}
