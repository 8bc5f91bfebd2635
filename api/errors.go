package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Domenick1991/flightbooking/internal/domain"
)

const fatalMessage = "internal error"

func statusFor(kind domain.ErrorKind) int {
	switch kind {
	case domain.KindValidation, domain.KindInsufficientFunds, domain.KindInvalidState:
		return http.StatusBadRequest
	case domain.KindNotFound:
		return http.StatusNotFound
	case domain.KindForbidden:
		return http.StatusForbidden
	case domain.KindSeatConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// errorBody renders err as {"error": {"kind", "message", ...details}}.
func errorBody(err error) gin.H {
	kind := domain.KindOf(err)
	body := gin.H{"kind": kind}

	var seatErr *domain.SeatConflictError
	var fundsErr *domain.InsufficientFundsError
	var e *domain.Error
	switch {
	case errors.As(err, &seatErr):
		body["message"] = seatErr.Error()
		body["flight_id"] = seatErr.FlightID
		body["seats"] = seatErr.Seats
	case errors.As(err, &fundsErr):
		body["message"] = fundsErr.Error()
		body["required"] = fundsErr.Required
		body["available"] = fundsErr.Available
	case kind == domain.KindFatal:
		body["message"] = fatalMessage
	case errors.As(err, &e):
		body["message"] = e.Message
	default:
		body["message"] = err.Error()
	}
	return gin.H{"error": body}
}

func respondError(c *gin.Context, log *zap.Logger, err error) {
	kind := domain.KindOf(err)
	if kind == domain.KindFatal {
		log.Error("request failed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Error(err),
		)
	}
	c.AbortWithStatusJSON(statusFor(kind), errorBody(err))
}

func badRequest(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, errorBody(domain.Validation("%s", message)))
}
