package memory

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/Domenick1991/flightbooking/internal/domain"
)

// Store bundles the in-memory repositories used by the memory storage driver.
type Store struct {
	Flights  *Flights
	Seats    *SeatLedger
	Wallets  *Wallets
	Bookings *Bookings
}

func NewStore() *Store {
	flights := NewFlights()
	return &Store{
		Flights:  flights,
		Seats:    NewSeatLedger(),
		Wallets:  NewWallets(),
		Bookings: NewBookings(flights),
	}
}

type demoRoute struct {
	carrier     string
	number      int
	origin      string
	destination string
	departure   time.Duration
	duration    time.Duration
	economy     int64
	business    int64
}

var demoAirports = []domain.Airport{
	{Code: "FCO", Name: "Leonardo da Vinci-Fiumicino", City: "Rome", Timezone: "Europe/Rome"},
	{Code: "CDG", Name: "Charles de Gaulle", City: "Paris", Timezone: "Europe/Paris"},
	{Code: "LHR", Name: "Heathrow", City: "London", Timezone: "Europe/London"},
	{Code: "MUC", Name: "Franz Josef Strauss", City: "Munich", Timezone: "Europe/Berlin"},
	{Code: "AMS", Name: "Schiphol", City: "Amsterdam", Timezone: "Europe/Amsterdam"},
	{Code: "MAD", Name: "Adolfo Suarez Madrid-Barajas", City: "Madrid", Timezone: "Europe/Madrid"},
}

var demoRoutes = []demoRoute{
	{"AZ", 318, "FCO", "CDG", 7 * time.Hour, 125 * time.Minute, 15000, 42000},
	{"AF", 1080, "CDG", "LHR", 11*time.Hour + 30*time.Minute, 75 * time.Minute, 9000, 26000},
	{"LH", 1867, "FCO", "MUC", 8 * time.Hour, 100 * time.Minute, 11000, 30000},
	{"LH", 2474, "MUC", "LHR", 12 * time.Hour, 110 * time.Minute, 12000, 34000},
	{"BA", 549, "FCO", "LHR", 14 * time.Hour, 155 * time.Minute, 19000, 0},
	{"KL", 1700, "MAD", "AMS", 9 * time.Hour, 150 * time.Minute, 13000, 36000},
	{"KL", 1227, "AMS", "CDG", 13 * time.Hour, 80 * time.Minute, 8000, 0},
}

const (
	demoBusinessRows = 2
	demoEconomyRows  = 20
)

// SeedDemo loads a small European schedule for the next days, starting at the UTC
// midnight of now, and opens a wallet with balance for every user.
func (s *Store) SeedDemo(now time.Time, days int, balance int64, users ...uuid.UUID) error {
	for _, a := range demoAirports {
		s.Flights.PutAirport(a)
	}

	start := now.UTC().Truncate(24 * time.Hour)
	var id int64
	for day := 0; day < days; day++ {
		midnight := start.AddDate(0, 0, day)
		for _, r := range demoRoutes {
			id++
			prices := map[domain.SeatClass]int64{domain.SeatClassEconomy: r.economy}
			if r.business > 0 {
				prices[domain.SeatClassBusiness] = r.business
			}
			departure := midnight.Add(r.departure)
			f := domain.Flight{
				ID:            id,
				Number:        fmt.Sprintf("%s%d", r.carrier, r.number),
				Carrier:       r.carrier,
				Origin:        r.origin,
				Destination:   r.destination,
				DepartureTime: departure,
				ArrivalTime:   departure.Add(r.duration),
				BasePrices:    prices,
				Status:        domain.FlightStatusScheduled,
				Active:        true,
				CreatedAt:     now,
				UpdatedAt:     now,
			}
			seats := demoSeats(id, prices)
			f.Capacity = len(seats)
			if err := s.Flights.PutFlight(f); err != nil {
				return fmt.Errorf("seed %s: %w", f.Number, err)
			}
			s.Seats.AddSeats(id, seats...)
		}
	}

	for _, u := range users {
		s.Wallets.Open(u, balance)
	}
	return nil
}

func demoSeats(flightID int64, prices map[domain.SeatClass]int64) []domain.Seat {
	var seats []domain.Seat
	row := 1
	if business, ok := prices[domain.SeatClassBusiness]; ok {
		for ; row <= demoBusinessRows; row++ {
			for _, letter := range "ABCD" {
				seats = append(seats, domain.Seat{
					FlightID:   flightID,
					Number:     fmt.Sprintf("%d%c", row, letter),
					Class:      domain.SeatClassBusiness,
					Available:  true,
					PriceCents: business,
				})
			}
		}
	}
	for ; row <= demoBusinessRows+demoEconomyRows; row++ {
		for _, letter := range "ABCDEF" {
			seats = append(seats, domain.Seat{
				FlightID:   flightID,
				Number:     fmt.Sprintf("%d%c", row, letter),
				Class:      domain.SeatClassEconomy,
				Available:  true,
				PriceCents: prices[domain.SeatClassEconomy],
			})
		}
	}
	return seats
}
