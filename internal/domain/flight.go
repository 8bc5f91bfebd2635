package domain

import "time"

type SeatClass string

const (
	SeatClassEconomy  SeatClass = "economy"
	SeatClassBusiness SeatClass = "business"
	SeatClassFirst    SeatClass = "first"
)

func (c SeatClass) Valid() bool {
	switch c {
	case SeatClassEconomy, SeatClassBusiness, SeatClassFirst:
		return true
	}
	return false
}

type FlightStatus string

const (
	FlightStatusScheduled FlightStatus = "scheduled"
	FlightStatusBoarding  FlightStatus = "boarding"
	FlightStatusDeparted  FlightStatus = "departed"
	FlightStatusArrived   FlightStatus = "arrived"
	FlightStatusCancelled FlightStatus = "cancelled"
	FlightStatusDelayed   FlightStatus = "delayed"
)

type Flight struct {
	ID            int64               `json:"id"`
	Number        string              `json:"flight_number"`
	Carrier       string              `json:"carrier"`
	Origin        string              `json:"origin"`
	Destination   string              `json:"destination"`
	DepartureTime time.Time           `json:"departure_time"`
	ArrivalTime   time.Time           `json:"arrival_time"`
	Capacity      int                 `json:"capacity"`
	BasePrices    map[SeatClass]int64 `json:"base_prices"`
	Status        FlightStatus        `json:"status"`
	Active        bool                `json:"active"`
	CreatedAt     time.Time           `json:"created_at"`
	UpdatedAt     time.Time           `json:"updated_at"`
}

func (f *Flight) Validate() error {
	if f.Origin == "" || f.Destination == "" {
		return Validation("flight %s: origin and destination are required", f.Number)
	}
	if !f.ArrivalTime.After(f.DepartureTime) {
		return Validation("flight %s: arrival must be after departure", f.Number)
	}
	return nil
}

func (f *Flight) DurationMinutes() int {
	return int(f.ArrivalTime.Sub(f.DepartureTime) / time.Minute)
}

// Searchable reports whether the flight may appear in itinerary search and be booked.
func (f *Flight) Searchable() bool {
	return f.Active && (f.Status == FlightStatusScheduled || f.Status == FlightStatusBoarding)
}

type Seat struct {
	FlightID   int64     `json:"flight_id"`
	Number     string    `json:"seat_number"`
	Class      SeatClass `json:"class"`
	Available  bool      `json:"available"`
	PriceCents int64     `json:"price_cents"`
}

type HeldSeat struct {
	Number     string    `json:"seat_number"`
	Class      SeatClass `json:"class"`
	PriceCents int64     `json:"price_cents"`
}

type HoldResult struct {
	FlightID int64      `json:"flight_id"`
	Seats    []HeldSeat `json:"seats"`
}

func (h *HoldResult) SeatNumbers() []string {
	out := make([]string, 0, len(h.Seats))
	for _, s := range h.Seats {
		out = append(out, s.Number)
	}
	return out
}

func (h *HoldResult) Seat(number string) (HeldSeat, bool) {
	for _, s := range h.Seats {
		if s.Number == number {
			return s, true
		}
	}
	return HeldSeat{}, false
}

type Airport struct {
	Code     string `json:"code"`
	Name     string `json:"name"`
	City     string `json:"city"`
	Timezone string `json:"timezone"`
}
