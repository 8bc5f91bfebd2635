package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/Domenick1991/flightbooking/internal/domain"
	"github.com/Domenick1991/flightbooking/internal/repository"
	"github.com/google/uuid"
)

type Bookings struct {
	mu       sync.RWMutex
	byID     map[uuid.UUID]domain.Booking
	byRef    map[string]uuid.UUID
	schedule *Flights
}

// NewBookings needs the flight store to resolve arrivals for CompleteArrived.
func NewBookings(schedule *Flights) *Bookings {
	return &Bookings{
		byID:     make(map[uuid.UUID]domain.Booking),
		byRef:    make(map[string]uuid.UUID),
		schedule: schedule,
	}
}

func (s *Bookings) Create(_ context.Context, b *domain.Booking) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.byRef[b.Reference]; exists {
		return domain.InvalidState("booking reference %s already exists", b.Reference)
	}
	now := time.Now()
	b.CreatedAt, b.UpdatedAt = now, now
	s.byID[b.ID] = cloneBooking(*b)
	s.byRef[b.Reference] = b.ID
	return nil
}

func (s *Bookings) GetByID(_ context.Context, id uuid.UUID) (*domain.Booking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.byID[id]
	if !ok {
		return nil, domain.NotFound("booking %s not found", id)
	}
	out := cloneBooking(b)
	return &out, nil
}

func (s *Bookings) GetByReference(ctx context.Context, reference string) (*domain.Booking, error) {
	s.mu.RLock()
	id, ok := s.byRef[reference]
	s.mu.RUnlock()
	if !ok {
		return nil, domain.NotFound("booking %s not found", reference)
	}
	return s.GetByID(ctx, id)
}

func (s *Bookings) ReferenceExists(_ context.Context, reference string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.byRef[reference]
	return ok, nil
}

func (s *Bookings) ListByUser(_ context.Context, userID uuid.UUID) ([]domain.Booking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Booking, 0)
	for _, b := range s.byID {
		if b.UserID == userID {
			out = append(out, cloneBooking(b))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *Bookings) Update(_ context.Context, b *domain.Booking, expected domain.BookingStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.expect(b.ID, expected); err != nil {
		return err
	}
	b.UpdatedAt = time.Now()
	s.byID[b.ID] = cloneBooking(*b)
	return nil
}

func (s *Bookings) Delete(_ context.Context, id uuid.UUID, expected domain.BookingStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.expect(id, expected); err != nil {
		return err
	}
	delete(s.byRef, s.byID[id].Reference)
	delete(s.byID, id)
	return nil
}

func (s *Bookings) MarkCheckedIn(_ context.Context, id uuid.UUID, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.expect(id, domain.BookingStatusConfirmed); err != nil {
		return err
	}
	b := s.byID[id]
	if b.CheckedIn {
		return domain.InvalidState("booking %s is already checked in", id)
	}
	b.CheckedIn = true
	b.CheckedInAt = &at
	b.UpdatedAt = time.Now()
	s.byID[id] = b
	return nil
}

// expect must be called with s.mu held.
func (s *Bookings) expect(id uuid.UUID, expected domain.BookingStatus) error {
	b, ok := s.byID[id]
	if !ok {
		return domain.NotFound("booking %s not found", id)
	}
	if b.Status != expected {
		return domain.InvalidState("booking %s is %s, expected %s", id, b.Status, expected)
	}
	return nil
}

func (s *Bookings) CompleteArrived(_ context.Context, deadline time.Time) ([]domain.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Booking, 0)
	for id, b := range s.byID {
		if b.Status != domain.BookingStatusConfirmed || !s.schedule.arrivedBefore(b.FlightID, deadline) {
			continue
		}
		b.Status = domain.BookingStatusCompleted
		b.UpdatedAt = time.Now()
		s.byID[id] = b
		out = append(out, cloneBooking(b))
	}
	return out, nil
}

func cloneBooking(b domain.Booking) domain.Booking {
	b.Passengers = append([]domain.Passenger(nil), b.Passengers...)
	b.Pricing.Extras = append([]domain.LineItem(nil), b.Pricing.Extras...)
	return b
}

// Transactor runs fn directly; the memory stores have no cross-entity rollback.
type Transactor struct{}

func (Transactor) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

var (
	_ repository.BookingRepository = (*Bookings)(nil)
	_ repository.Transactor        = Transactor{}
)
