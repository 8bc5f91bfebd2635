package repository

import (
	"context"
	"time"

	"github.com/Domenick1991/flightbooking/internal/domain"
	"github.com/google/uuid"
)

// ScheduleQuery selects bookable flights departing in [From, To).
// An empty Destination matches any destination.
type ScheduleQuery struct {
	Origin      string
	Destination string
	From        time.Time
	To          time.Time
}

type FlightRepository interface {
	GetByID(ctx context.Context, id int64) (*domain.Flight, error)
	ListDepartures(ctx context.Context, q ScheduleQuery) ([]domain.Flight, error)
}

type AirportDirectory interface {
	GetByCode(ctx context.Context, code string) (*domain.Airport, error)
}

// SeatLedger is the only authority on seat availability. TryHold is all-or-nothing and
// serialized per flight.
type SeatLedger interface {
	TryHold(ctx context.Context, flightID int64, seats []string) (*domain.HoldResult, error)
	Release(ctx context.Context, flightID int64, seats []string) error
	ListSeats(ctx context.Context, flightID int64) ([]domain.Seat, error)
}

// WalletLedger mutations are linearizable per user and never leave a negative balance.
type WalletLedger interface {
	Balance(ctx context.Context, userID uuid.UUID) (int64, error)
	Debit(ctx context.Context, userID uuid.UUID, amount int64, reference string) (int64, error)
	Credit(ctx context.Context, userID uuid.UUID, amount int64, reference string) (int64, error)
	TopUp(ctx context.Context, userID uuid.UUID, amount int64, reference string) (int64, error)
}

type BookingRepository interface {
	Create(ctx context.Context, booking *domain.Booking) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Booking, error)
	GetByReference(ctx context.Context, reference string) (*domain.Booking, error)
	ReferenceExists(ctx context.Context, reference string) (bool, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]domain.Booking, error)
	// Update and Delete apply only while the stored status equals expected and
	// return InvalidState otherwise.
	Update(ctx context.Context, booking *domain.Booking, expected domain.BookingStatus) error
	Delete(ctx context.Context, id uuid.UUID, expected domain.BookingStatus) error
	// MarkCheckedIn flips a confirmed, not yet checked-in booking to checked in.
	// Any other stored state yields InvalidState.
	MarkCheckedIn(ctx context.Context, id uuid.UUID, at time.Time) error
	// CompleteArrived marks confirmed bookings on flights that arrived before the
	// deadline as completed and returns them.
	CompleteArrived(ctx context.Context, deadline time.Time) ([]domain.Booking, error)
}

// Transactor runs fn so that every repository call made with the derived context
// commits or rolls back together.
type Transactor interface {
	WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
