package domain

import (
	"strings"
	"time"
)

type Leg struct {
	FlightID        int64               `json:"flight_id"`
	FlightNumber    string              `json:"flight_number"`
	Carrier         string              `json:"carrier"`
	Origin          string              `json:"origin"`
	Destination     string              `json:"destination"`
	DepartureTime   time.Time           `json:"departure_time"`
	ArrivalTime     time.Time           `json:"arrival_time"`
	DurationMinutes int                 `json:"duration_minutes"`
	Prices          map[SeatClass]int64 `json:"prices"`
}

func LegFromFlight(f Flight) Leg {
	prices := make(map[SeatClass]int64, len(f.BasePrices))
	for k, v := range f.BasePrices {
		prices[k] = v
	}
	return Leg{
		FlightID:        f.ID,
		FlightNumber:    f.Number,
		Carrier:         f.Carrier,
		Origin:          f.Origin,
		Destination:     f.Destination,
		DepartureTime:   f.DepartureTime,
		ArrivalTime:     f.ArrivalTime,
		DurationMinutes: f.DurationMinutes(),
		Prices:          prices,
	}
}

type ItineraryType string

const (
	ItineraryDirect     ItineraryType = "direct"
	ItineraryConnecting ItineraryType = "connecting"
)

type Itinerary struct {
	Type                 ItineraryType       `json:"type"`
	Legs                 []Leg               `json:"legs"`
	LayoverAirport       string              `json:"layover_airport,omitempty"`
	LayoverMinutes       int                 `json:"layover_minutes,omitempty"`
	TotalDurationMinutes int                 `json:"total_duration_minutes"`
	TotalPrices          map[SeatClass]int64 `json:"total_prices"`
	Price                int64               `json:"price"`
}

// FlightNumbers joins leg flight numbers, used as the final sort key.
func (i Itinerary) FlightNumbers() string {
	parts := make([]string, 0, len(i.Legs))
	for _, l := range i.Legs {
		parts = append(parts, l.FlightNumber)
	}
	return strings.Join(parts, "/")
}

type DayAvailability struct {
	Date           string `json:"date"`
	Count          int    `json:"count"`
	MinPrice       int64  `json:"min_price"`
	MaxPrice       int64  `json:"max_price"`
	DaysFromTarget int    `json:"days_from_target,omitempty"`
}
