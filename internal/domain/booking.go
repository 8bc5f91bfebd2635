package domain

import (
	"time"

	"github.com/google/uuid"
)

type BookingStatus string

const (
	BookingStatusPending   BookingStatus = "pending"
	BookingStatusConfirmed BookingStatus = "confirmed"
	BookingStatusCancelled BookingStatus = "cancelled"
	BookingStatusCompleted BookingStatus = "completed"
)

type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusCompleted PaymentStatus = "completed"
	PaymentStatusFailed    PaymentStatus = "failed"
	PaymentStatusRefunded  PaymentStatus = "refunded"
)

const PaymentMethodWallet = "wallet"

type Passenger struct {
	FirstName   string     `json:"first_name"`
	LastName    string     `json:"last_name"`
	DateOfBirth *time.Time `json:"date_of_birth,omitempty"`
	SeatNumber  string     `json:"seat_number"`
	Class       SeatClass  `json:"class"`
}

type Contact struct {
	Email string `json:"email"`
	Phone string `json:"phone,omitempty"`
}

type Baggage struct {
	CheckedBags int `json:"checked_bags"`
	ExtraBags   int `json:"extra_bags"`
}

type SpecialServices struct {
	SpecialMeal        bool `json:"special_meal"`
	UnaccompaniedMinor bool `json:"unaccompanied_minor"`
	PetTransport       bool `json:"pet_transport"`
}

type LineItem struct {
	Name   string `json:"name"`
	Amount int64  `json:"amount"`
}

// PriceBreakdown amounts are minor currency units.
type PriceBreakdown struct {
	BaseFare   int64      `json:"base_fare"`
	Taxes      int64      `json:"taxes"`
	BookingFee int64      `json:"booking_fee"`
	Extras     []LineItem `json:"extras"`
	Total      int64      `json:"total"`
	Currency   string     `json:"currency"`
}

func (p PriceBreakdown) ExtrasTotal() int64 {
	var sum int64
	for _, e := range p.Extras {
		sum += e.Amount
	}
	return sum
}

// Consistent reports whether every part is non-negative and the total is their sum.
func (p PriceBreakdown) Consistent() bool {
	if p.BaseFare < 0 || p.Taxes < 0 || p.BookingFee < 0 || p.Total < 0 {
		return false
	}
	for _, e := range p.Extras {
		if e.Amount < 0 {
			return false
		}
	}
	return p.Total == p.BaseFare+p.Taxes+p.BookingFee+p.ExtrasTotal()
}

type Payment struct {
	Method        string        `json:"method"`
	Status        PaymentStatus `json:"status"`
	TransactionID string        `json:"transaction_id,omitempty"`
	PaidAt        *time.Time    `json:"paid_at,omitempty"`
}

type Booking struct {
	ID                 uuid.UUID       `json:"id"`
	Reference          string          `json:"reference"`
	UserID             uuid.UUID       `json:"user_id"`
	FlightID           int64           `json:"flight_id"`
	Passengers         []Passenger     `json:"passengers"`
	Contact            Contact         `json:"contact"`
	Pricing            PriceBreakdown  `json:"pricing"`
	Payment            Payment         `json:"payment"`
	Status             BookingStatus   `json:"status"`
	CheckedIn          bool            `json:"checked_in"`
	CheckedInAt        *time.Time      `json:"checked_in_at,omitempty"`
	Baggage            Baggage         `json:"baggage"`
	Services           SpecialServices `json:"special_services"`
	CancellationReason string          `json:"cancellation_reason,omitempty"`
	CancelledAt        *time.Time      `json:"cancelled_at,omitempty"`
	CreatedAt          time.Time       `json:"created_at"`
	UpdatedAt          time.Time       `json:"updated_at"`
}

func (b *Booking) SeatNumbers() []string {
	out := make([]string, 0, len(b.Passengers))
	for _, p := range b.Passengers {
		out = append(out, p.SeatNumber)
	}
	return out
}

// HoldsSeats reports whether the booking still owns its seats on the flight.
func (b *Booking) HoldsSeats() bool {
	return b.Status == BookingStatusPending || b.Status == BookingStatusConfirmed
}
