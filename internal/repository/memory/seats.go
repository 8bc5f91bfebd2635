package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/Domenick1991/flightbooking/internal/domain"
	"github.com/Domenick1991/flightbooking/internal/repository"
)

type flightSeats struct {
	mu    sync.Mutex
	seats map[string]domain.Seat
}

// SeatLedger keeps one mutex per flight; the outer lock only guards the flight index.
type SeatLedger struct {
	mu      sync.RWMutex
	flights map[int64]*flightSeats
}

func NewSeatLedger() *SeatLedger {
	return &SeatLedger{flights: make(map[int64]*flightSeats)}
}

// AddSeats registers seats for a flight, replacing any with the same number.
func (l *SeatLedger) AddSeats(flightID int64, seats ...domain.Seat) {
	l.mu.Lock()
	fs, ok := l.flights[flightID]
	if !ok {
		fs = &flightSeats{seats: make(map[string]domain.Seat)}
		l.flights[flightID] = fs
	}
	l.mu.Unlock()

	fs.mu.Lock()
	defer fs.mu.Unlock()
	for _, s := range seats {
		s.FlightID = flightID
		fs.seats[s.Number] = s
	}
}

// RemoveFlight drops all seats of a flight, as when an airline deletes it.
func (l *SeatLedger) RemoveFlight(flightID int64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.flights, flightID)
}

func (l *SeatLedger) flight(flightID int64) (*flightSeats, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	fs, ok := l.flights[flightID]
	return fs, ok
}

func (l *SeatLedger) TryHold(_ context.Context, flightID int64, seats []string) (*domain.HoldResult, error) {
	if err := repository.ValidateSeatRequest(seats); err != nil {
		return nil, err
	}
	fs, ok := l.flight(flightID)
	if !ok {
		return nil, domain.NotFound("flight %d not found", flightID)
	}

	fs.mu.Lock()
	defer fs.mu.Unlock()

	held, conflicts := repository.PartitionSeats(seats, fs.seats)
	if len(conflicts) > 0 {
		return nil, &domain.SeatConflictError{FlightID: flightID, Seats: conflicts}
	}
	for _, number := range seats {
		s := fs.seats[number]
		s.Available = false
		fs.seats[number] = s
	}
	return &domain.HoldResult{FlightID: flightID, Seats: held}, nil
}

func (l *SeatLedger) Release(_ context.Context, flightID int64, seats []string) error {
	fs, ok := l.flight(flightID)
	if !ok {
		return nil
	}

	fs.mu.Lock()
	defer fs.mu.Unlock()
	for _, number := range seats {
		if s, ok := fs.seats[number]; ok {
			s.Available = true
			fs.seats[number] = s
		}
	}
	return nil
}

func (l *SeatLedger) ListSeats(_ context.Context, flightID int64) ([]domain.Seat, error) {
	fs, ok := l.flight(flightID)
	if !ok {
		return []domain.Seat{}, nil
	}

	fs.mu.Lock()
	out := make([]domain.Seat, 0, len(fs.seats))
	for _, s := range fs.seats {
		out = append(out, s)
	}
	fs.mu.Unlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Number < out[j].Number })
	return out, nil
}

var _ repository.SeatLedger = (*SeatLedger)(nil)
