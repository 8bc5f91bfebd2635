package kafka

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/Domenick1991/flightbooking/internal/domain"
)

const (
	EventBookingCreated   = "booking_created"
	EventBookingCancelled = "booking_cancelled"
	EventBookingCheckedIn = "booking_checked_in"
	EventBookingCompleted = "booking_completed"
)

type BookingEvent struct {
	Type       string    `json:"type"`
	BookingID  string    `json:"booking_id"`
	Reference  string    `json:"reference"`
	UserID     string    `json:"user_id"`
	FlightID   int64     `json:"flight_id"`
	Seats      []string  `json:"seats"`
	Email      string    `json:"email"`
	Status     string    `json:"status"`
	Total      int64     `json:"total"`
	Currency   string    `json:"currency"`
	Reason     string    `json:"reason,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

func NewBookingEvent(eventType string, b *domain.Booking, at time.Time) BookingEvent {
	return BookingEvent{
		Type:       eventType,
		BookingID:  b.ID.String(),
		Reference:  b.Reference,
		UserID:     b.UserID.String(),
		FlightID:   b.FlightID,
		Seats:      b.SeatNumbers(),
		Email:      b.Contact.Email,
		Status:     string(b.Status),
		Total:      b.Pricing.Total,
		Currency:   b.Pricing.Currency,
		Reason:     b.CancellationReason,
		OccurredAt: at,
	}
}

func DecodeBookingEvent(data []byte) (BookingEvent, error) {
	var e BookingEvent
	if err := json.Unmarshal(data, &e); err != nil {
		return BookingEvent{}, fmt.Errorf("failed to decode booking event: %w", err)
	}
	if e.Type == "" {
		return BookingEvent{}, fmt.Errorf("booking event without type")
	}
	return e, nil
}
