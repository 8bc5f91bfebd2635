package api

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Domenick1991/flightbooking/internal/domain"
	"github.com/Domenick1991/flightbooking/internal/service/booking"
)

type BookingHandler struct {
	service booking.BookingUseCase
	log     *zap.Logger
}

type cancelBookingRequest struct {
	Reason string `json:"reason"`
}

type bookingListResponse struct {
	Bookings []domain.Booking `json:"bookings"`
	Count    int              `json:"count"`
}

func NewBookingHandler(service booking.BookingUseCase, log *zap.Logger) *BookingHandler {
	return &BookingHandler{service: service, log: log}
}

// Register mounts the authenticated booking routes. Write routes get the extra
// middleware (rate limiting, idempotency) passed in writes.
func (h *BookingHandler) Register(router *gin.RouterGroup, writes ...gin.HandlerFunc) {
	router.POST("", chain(writes, h.create)...)
	router.GET("", h.list)
	router.GET("/:id", h.get)
	router.DELETE("/:id", chain(writes, h.cancel)...)
	router.POST("/:id/checkin", chain(writes, h.checkIn)...)
}

// RegisterPublic mounts the lookup by booking reference and contact email.
func (h *BookingHandler) RegisterPublic(router *gin.RouterGroup) {
	router.GET("/reference/:ref", h.getByReference)
}

func (h *BookingHandler) create(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		unauthorized(c, "missing bearer token")
		return
	}

	var input booking.CreateBookingInput
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c, "invalid request body: "+err.Error())
		return
	}
	input.UserID = actor.UserID

	created, err := h.service.CreateBooking(c.Request.Context(), input)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, created)
}

func (h *BookingHandler) list(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		unauthorized(c, "missing bearer token")
		return
	}

	var userID uuid.UUID
	if raw := c.Query("userId"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			badRequest(c, "invalid userId")
			return
		}
		userID = id
	}

	bookings, err := h.service.List(c.Request.Context(), actor, userID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	if bookings == nil {
		bookings = []domain.Booking{}
	}
	c.JSON(http.StatusOK, bookingListResponse{Bookings: bookings, Count: len(bookings)})
}

func (h *BookingHandler) get(c *gin.Context) {
	actor, id, ok := h.target(c)
	if !ok {
		return
	}
	b, err := h.service.Get(c.Request.Context(), actor, id)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, b)
}

func (h *BookingHandler) getByReference(c *gin.Context) {
	b, err := h.service.GetByReference(c.Request.Context(), c.Param("ref"), c.Query("email"))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, b)
}

func (h *BookingHandler) cancel(c *gin.Context) {
	actor, id, ok := h.target(c)
	if !ok {
		return
	}

	var req cancelBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		badRequest(c, "invalid request body: "+err.Error())
		return
	}

	cancelled, err := h.service.CancelBooking(c.Request.Context(), booking.CancelBookingInput{
		Actor:     actor,
		BookingID: id,
		Reason:    req.Reason,
	})
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, cancelled)
}

func (h *BookingHandler) checkIn(c *gin.Context) {
	actor, id, ok := h.target(c)
	if !ok {
		return
	}
	b, err := h.service.CheckIn(c.Request.Context(), actor, id)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, b)
}

func (h *BookingHandler) target(c *gin.Context) (domain.Actor, uuid.UUID, bool) {
	actor, ok := actorFrom(c)
	if !ok {
		unauthorized(c, "missing bearer token")
		return domain.Actor{}, uuid.Nil, false
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		badRequest(c, "invalid booking id")
		return domain.Actor{}, uuid.Nil, false
	}
	return actor, id, true
}
