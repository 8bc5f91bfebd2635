package kafka

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/Domenick1991/flightbooking/internal/domain"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNewBookingEvent(t *testing.T) {
	b := &domain.Booking{
		ID:         uuid.New(),
		Reference:  "K7Q2ZP",
		UserID:     uuid.New(),
		FlightID:   42,
		Passengers: []domain.Passenger{{SeatNumber: "12C"}, {SeatNumber: "12D"}},
		Contact:    domain.Contact{Email: "ada@example.com"},
		Pricing:    domain.PriceBreakdown{Total: 18250, Currency: "EUR"},
		Status:     domain.BookingStatusConfirmed,
	}
	at := time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC)

	e := NewBookingEvent(EventBookingCreated, b, at)
	assert.Equal(t, EventBookingCreated, e.Type)
	assert.Equal(t, b.ID.String(), e.BookingID)
	assert.Equal(t, []string{"12C", "12D"}, e.Seats)
	assert.Equal(t, "confirmed", e.Status)
	assert.Equal(t, int64(18250), e.Total)

	data, err := json.Marshal(e)
	require.NoError(t, err)
	decoded, err := DecodeBookingEvent(data)
	require.NoError(t, err)
	assert.Equal(t, e, decoded)
}

func TestDecodeBookingEvent_Rejects(t *testing.T) {
	_, err := DecodeBookingEvent([]byte("not json"))
	assert.Error(t, err)

	_, err = DecodeBookingEvent([]byte(`{"reference":"K7Q2ZP"}`))
	assert.Error(t, err)
}

func TestNewProducer(t *testing.T) {
	p := NewProducer([]string{"localhost:9092"}, zap.NewNop())
	require.NotNil(t, p)
	assert.Equal(t, []string{"localhost:9092"}, p.brokers)
	assert.NoError(t, p.Close())
}

func TestConsumer_CloseNil(t *testing.T) {
	var c *Consumer
	assert.NoError(t, c.Close())
}
