package email

import (
	"context"
	"fmt"

	"github.com/Domenick1991/flightbooking/internal/kafka"
	"go.uber.org/zap"
)

// Sender renders booking notifications. Delivery is handled outside this service, so
// messages are only logged.
type Sender struct {
	log *zap.Logger
}

func NewSender(log *zap.Logger) *Sender {
	return &Sender{log: log}
}

func (s *Sender) Send(ctx context.Context, event kafka.BookingEvent) error {
	if event.Email == "" {
		s.log.Warn("notification without recipient", zap.String("reference", event.Reference))
		return nil
	}
	s.log.Info("send email",
		zap.String("to", event.Email),
		zap.String("type", event.Type),
		zap.String("subject", Subject(event)),
	)
	return nil
}

func Subject(event kafka.BookingEvent) string {
	switch event.Type {
	case kafka.EventBookingCreated:
		return fmt.Sprintf("Booking %s confirmed", event.Reference)
	case kafka.EventBookingCancelled:
		return fmt.Sprintf("Booking %s cancelled", event.Reference)
	case kafka.EventBookingCheckedIn:
		return fmt.Sprintf("Check-in complete for booking %s", event.Reference)
	case kafka.EventBookingCompleted:
		return fmt.Sprintf("Thank you for flying with us, booking %s", event.Reference)
	}
	return fmt.Sprintf("Update on booking %s", event.Reference)
}
