package email

import (
	"context"
	"testing"

	"github.com/Domenick1991/flightbooking/internal/kafka"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestSender_Send(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	s := NewSender(zap.New(core))

	err := s.Send(context.Background(), kafka.BookingEvent{Type: kafka.EventBookingCreated, Reference: "K7Q2ZP", Email: "ada@example.com"})
	assert.NoError(t, err)
	assert.Equal(t, 1, logs.FilterMessage("send email").Len())

	err = s.Send(context.Background(), kafka.BookingEvent{Type: kafka.EventBookingCreated, Reference: "K7Q2ZP"})
	assert.NoError(t, err)
	assert.Equal(t, 1, logs.FilterMessage("notification without recipient").Len())
}

func TestSubject(t *testing.T) {
	assert.Equal(t, "Booking ABC123 cancelled", Subject(kafka.BookingEvent{Type: kafka.EventBookingCancelled, Reference: "ABC123"}))
	assert.Equal(t, "Update on booking ABC123", Subject(kafka.BookingEvent{Type: "other", Reference: "ABC123"}))
}
