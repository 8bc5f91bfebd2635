// Package memory holds in-process implementations of the repository interfaces,
// used by tests and by the memory storage driver.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/Domenick1991/flightbooking/internal/domain"
	"github.com/Domenick1991/flightbooking/internal/repository"
)

type Flights struct {
	mu       sync.RWMutex
	flights  map[int64]domain.Flight
	airports map[string]domain.Airport
}

func NewFlights() *Flights {
	return &Flights{
		flights:  make(map[int64]domain.Flight),
		airports: make(map[string]domain.Airport),
	}
}

// PutFlight stores f after validating its schedule.
func (s *Flights) PutFlight(f domain.Flight) error {
	if err := f.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.flights[f.ID] = f
	return nil
}

func (s *Flights) DeleteFlight(id int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.flights, id)
}

func (s *Flights) PutAirport(a domain.Airport) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.airports[strings.ToUpper(a.Code)] = a
}

func (s *Flights) GetByID(_ context.Context, id int64) (*domain.Flight, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	f, ok := s.flights[id]
	if !ok {
		return nil, domain.NotFound("flight %d not found", id)
	}
	return &f, nil
}

func (s *Flights) ListDepartures(_ context.Context, q repository.ScheduleQuery) ([]domain.Flight, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Flight, 0)
	for _, f := range s.flights {
		if f.Origin != q.Origin || !f.Searchable() {
			continue
		}
		if q.Destination != "" && f.Destination != q.Destination {
			continue
		}
		if f.DepartureTime.Before(q.From) || !f.DepartureTime.Before(q.To) {
			continue
		}
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].DepartureTime.Equal(out[j].DepartureTime) {
			return out[i].DepartureTime.Before(out[j].DepartureTime)
		}
		return out[i].Number < out[j].Number
	})
	return out, nil
}

func (s *Flights) GetByCode(_ context.Context, code string) (*domain.Airport, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	code = strings.ToUpper(strings.TrimSpace(code))
	a, ok := s.airports[code]
	if !ok {
		return nil, domain.NotFound("airport %s not found", code)
	}
	return &a, nil
}

// arrivedBefore reports whether the flight exists and arrived at or before deadline.
func (s *Flights) arrivedBefore(id int64, deadline time.Time) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	f, ok := s.flights[id]
	return ok && !f.ArrivalTime.After(deadline)
}

var (
	_ repository.FlightRepository = (*Flights)(nil)
	_ repository.AirportDirectory = (*Flights)(nil)
)
