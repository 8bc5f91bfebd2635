package flights

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/Domenick1991/flightbooking/config"
	"github.com/Domenick1991/flightbooking/internal/domain"
	"github.com/Domenick1991/flightbooking/internal/metrics"
	"github.com/Domenick1991/flightbooking/internal/repository"
	"github.com/Domenick1991/flightbooking/internal/service/pricing"
	"go.uber.org/zap"
)

const dateLayout = "2006-01-02"

type FlightUseCase interface {
	Search(ctx context.Context, q SearchQuery) ([]domain.Itinerary, error)
	SuggestDates(ctx context.Context, q SuggestQuery) ([]domain.DayAvailability, error)
	Availability(ctx context.Context, q AvailabilityQuery) ([]domain.DayAvailability, error)
	Seats(ctx context.Context, flightID int64) ([]domain.Seat, error)
}

// ScheduleCache is a read-through cache for departure lookups. GetDepartures returns
// nil, nil on a miss.
type ScheduleCache interface {
	GetDepartures(ctx context.Context, q repository.ScheduleQuery) ([]domain.Flight, error)
	SetDepartures(ctx context.Context, q repository.ScheduleQuery, flights []domain.Flight) error
}

type FlightService struct {
	repo     repository.FlightRepository
	airports repository.AirportDirectory
	seats    repository.SeatLedger
	cache    ScheduleCache
	cfg      config.SearchConfig
	loc      *time.Location
	maxPax   int
	log      *zap.Logger
}

// NewFlightService accepts a nil cache.
func NewFlightService(repo repository.FlightRepository, airports repository.AirportDirectory, seats repository.SeatLedger,
	cache ScheduleCache, cfg config.SearchConfig, maxPassengers int, log *zap.Logger) (*FlightService, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	return &FlightService{
		repo:     repo,
		airports: airports,
		seats:    seats,
		cache:    cache,
		cfg:      cfg,
		loc:      loc,
		maxPax:   maxPassengers,
		log:      log,
	}, nil
}

type SearchQuery struct {
	Origin      string
	Destination string
	Date        string
	Passengers  int
	Class       domain.SeatClass
	MaxLayovers int
	// MinLayover and MaxLayover default to the configured window when zero.
	MinLayover time.Duration
	MaxLayover time.Duration
}

type SuggestQuery struct {
	Origin      string
	Destination string
	TargetDate  string
	DaysBefore  int
	DaysAfter   int
	Passengers  int
	Class       domain.SeatClass
	MaxLayovers int
}

type AvailabilityQuery struct {
	Origin      string
	Destination string
	StartDate   string
	EndDate     string
	Passengers  int
	Class       domain.SeatClass
	MaxLayovers int
}

// route is a validated search with its airports resolved.
type route struct {
	origin      string
	destination string
	class       domain.SeatClass
	maxLayovers int
	minLayover  time.Duration
	maxLayover  time.Duration
}

func (s *FlightService) Search(ctx context.Context, q SearchQuery) ([]domain.Itinerary, error) {
	start := time.Now()
	defer func() { metrics.ObserveSearch("search", time.Since(start)) }()

	day, err := s.parseDate(q.Date, "departureDate")
	if err != nil {
		return nil, err
	}
	r, err := s.prepare(ctx, q.Origin, q.Destination, q.Passengers, q.Class, q.MaxLayovers, q.MinLayover, q.MaxLayover)
	if err != nil {
		return nil, err
	}

	out, err := s.searchDay(ctx, r, day)
	if err != nil {
		return nil, err
	}
	metrics.ObserveSearchResults(len(out))
	return out, nil
}

// SuggestDates evaluates every day around the target (the target itself excluded) and
// returns days with at least one itinerary, nearest first.
func (s *FlightService) SuggestDates(ctx context.Context, q SuggestQuery) ([]domain.DayAvailability, error) {
	start := time.Now()
	defer func() { metrics.ObserveSearch("suggest_dates", time.Since(start)) }()

	target, err := s.parseDate(q.TargetDate, "targetDate")
	if err != nil {
		return nil, err
	}
	before, err := s.window(q.DaysBefore, "daysBefore")
	if err != nil {
		return nil, err
	}
	after, err := s.window(q.DaysAfter, "daysAfter")
	if err != nil {
		return nil, err
	}
	r, err := s.prepare(ctx, q.Origin, q.Destination, q.Passengers, q.Class, q.MaxLayovers, 0, 0)
	if err != nil {
		return nil, err
	}

	out := make([]domain.DayAvailability, 0)
	for offset := -before; offset <= after; offset++ {
		if offset == 0 {
			continue
		}
		day := target.AddDate(0, 0, offset)
		itineraries, err := s.searchDay(ctx, r, day)
		if err != nil {
			return nil, err
		}
		if len(itineraries) == 0 {
			continue
		}
		summary := summarize(day, itineraries)
		summary.DaysFromTarget = offset
		out = append(out, summary)
	}

	sort.SliceStable(out, func(i, j int) bool {
		di, dj := abs(out[i].DaysFromTarget), abs(out[j].DaysFromTarget)
		if di != dj {
			return di < dj
		}
		if out[i].MinPrice != out[j].MinPrice {
			return out[i].MinPrice < out[j].MinPrice
		}
		return out[i].Date < out[j].Date
	})
	return out, nil
}

// Availability returns one entry per day in [StartDate, EndDate], including empty days.
func (s *FlightService) Availability(ctx context.Context, q AvailabilityQuery) ([]domain.DayAvailability, error) {
	start := time.Now()
	defer func() { metrics.ObserveSearch("availability", time.Since(start)) }()

	first, err := s.parseDate(q.StartDate, "startDate")
	if err != nil {
		return nil, err
	}
	last, err := s.parseDate(q.EndDate, "endDate")
	if err != nil {
		return nil, err
	}
	if last.Before(first) {
		return nil, domain.Validation("endDate must not be before startDate")
	}
	days := daysBetween(first, last) + 1
	if days > s.cfg.MaxRangeDays {
		return nil, domain.Validation("date range must not exceed %d days", s.cfg.MaxRangeDays)
	}
	r, err := s.prepare(ctx, q.Origin, q.Destination, q.Passengers, q.Class, q.MaxLayovers, 0, 0)
	if err != nil {
		return nil, err
	}

	out := make([]domain.DayAvailability, 0, days)
	for i := 0; i < days; i++ {
		day := first.AddDate(0, 0, i)
		itineraries, err := s.searchDay(ctx, r, day)
		if err != nil {
			return nil, err
		}
		out = append(out, summarize(day, itineraries))
	}
	return out, nil
}

func (s *FlightService) Seats(ctx context.Context, flightID int64) ([]domain.Seat, error) {
	if _, err := s.repo.GetByID(ctx, flightID); err != nil {
		return nil, err
	}
	return s.seats.ListSeats(ctx, flightID)
}

func (s *FlightService) prepare(ctx context.Context, origin, destination string, passengers int, class domain.SeatClass,
	maxLayovers int, minLayover, maxLayover time.Duration) (route, error) {
	origin = strings.ToUpper(strings.TrimSpace(origin))
	destination = strings.ToUpper(strings.TrimSpace(destination))

	if origin == "" || destination == "" {
		return route{}, domain.Validation("origin and destination are required")
	}
	if origin == destination {
		return route{}, domain.Validation("origin and destination must differ")
	}
	if passengers < 1 || passengers > s.maxPax {
		return route{}, domain.Validation("passengers must be between 1 and %d", s.maxPax)
	}
	if class == "" {
		class = domain.SeatClassEconomy
	}
	if !class.Valid() {
		return route{}, domain.Validation("unknown seat class %q", class)
	}
	if maxLayovers < 0 || maxLayovers > 1 {
		return route{}, domain.Validation("maxLayovers must be 0 or 1")
	}
	if minLayover == 0 {
		minLayover = time.Duration(s.cfg.MinLayoverMinutes) * time.Minute
	}
	if maxLayover == 0 {
		maxLayover = time.Duration(s.cfg.MaxLayoverMinutes) * time.Minute
	}
	if minLayover < 0 || maxLayover < 0 {
		return route{}, domain.Validation("layover times must not be negative")
	}
	if minLayover > maxLayover {
		return route{}, domain.Validation("minimum layover exceeds maximum layover")
	}

	from, err := s.airports.GetByCode(ctx, origin)
	if err != nil {
		return route{}, err
	}
	to, err := s.airports.GetByCode(ctx, destination)
	if err != nil {
		return route{}, err
	}

	return route{
		origin:      from.Code,
		destination: to.Code,
		class:       class,
		maxLayovers: maxLayovers,
		minLayover:  minLayover,
		maxLayover:  maxLayover,
	}, nil
}

// searchDay builds direct and one-stop itineraries departing within the local calendar day.
func (s *FlightService) searchDay(ctx context.Context, r route, day time.Time) ([]domain.Itinerary, error) {
	q := repository.ScheduleQuery{Origin: r.origin, From: day, To: day.AddDate(0, 0, 1)}
	if r.maxLayovers == 0 {
		q.Destination = r.destination
	}
	departures, err := s.departures(ctx, q)
	if err != nil {
		return nil, err
	}

	out := make([]domain.Itinerary, 0)
	hubs := make(map[string][]domain.Flight)
	for _, f := range departures {
		switch {
		case f.Destination == r.destination:
			if it, ok := direct(f, r.class); ok {
				out = append(out, it)
			}
		case f.Destination != r.origin:
			hubs[f.Destination] = append(hubs[f.Destination], f)
		}
	}

	if r.maxLayovers >= 1 {
		for hub, firstLegs := range hubs {
			connections, err := s.connect(ctx, r, hub, firstLegs)
			if err != nil {
				return nil, err
			}
			out = append(out, connections...)
		}
	}

	SortItineraries(out)
	return out, nil
}

// connect fetches second legs out of hub once, over the union of all layover windows.
func (s *FlightService) connect(ctx context.Context, r route, hub string, firstLegs []domain.Flight) ([]domain.Itinerary, error) {
	earliest, latest := firstLegs[0].ArrivalTime, firstLegs[0].ArrivalTime
	for _, f := range firstLegs[1:] {
		if f.ArrivalTime.Before(earliest) {
			earliest = f.ArrivalTime
		}
		if f.ArrivalTime.After(latest) {
			latest = f.ArrivalTime
		}
	}

	secondLegs, err := s.departures(ctx, repository.ScheduleQuery{
		Origin:      hub,
		Destination: r.destination,
		From:        earliest.Add(r.minLayover),
		To:          latest.Add(r.maxLayover).Add(time.Minute),
	})
	if err != nil {
		return nil, err
	}

	out := make([]domain.Itinerary, 0)
	for _, first := range firstLegs {
		lo, hi := first.ArrivalTime.Add(r.minLayover), first.ArrivalTime.Add(r.maxLayover)
		for _, second := range secondLegs {
			if second.DepartureTime.Before(lo) || second.DepartureTime.After(hi) {
				continue
			}
			if it, ok := connecting(first, second, r.class); ok {
				out = append(out, it)
			}
		}
	}
	return out, nil
}

func (s *FlightService) departures(ctx context.Context, q repository.ScheduleQuery) ([]domain.Flight, error) {
	if s.cache != nil {
		cached, err := s.cache.GetDepartures(ctx, q)
		if err == nil && cached != nil {
			return cached, nil
		}
		if err != nil {
			s.log.Warn("schedule cache read failed", zap.Error(err))
		}
	}

	flights, err := s.repo.ListDepartures(ctx, q)
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		if err := s.cache.SetDepartures(ctx, q, flights); err != nil {
			s.log.Warn("schedule cache write failed", zap.Error(err))
		}
	}
	return flights, nil
}

func (s *FlightService) parseDate(value, field string) (time.Time, error) {
	if value == "" {
		return time.Time{}, domain.Validation("%s is required", field)
	}
	t, err := time.ParseInLocation(dateLayout, value, s.loc)
	if err != nil {
		return time.Time{}, domain.Validation("%s must be a date in YYYY-MM-DD format", field)
	}
	return t, nil
}

func (s *FlightService) window(days int, field string) (int, error) {
	if days < 0 {
		return 0, domain.Validation("%s must not be negative", field)
	}
	if days == 0 {
		days = s.cfg.SuggestWindowDays
	}
	if days > s.cfg.MaxSuggestWindow {
		days = s.cfg.MaxSuggestWindow
	}
	return days, nil
}

func direct(f domain.Flight, class domain.SeatClass) (domain.Itinerary, bool) {
	leg := domain.LegFromFlight(f)
	totals := classTotals(f)
	price, ok := totals[class]
	if !ok {
		return domain.Itinerary{}, false
	}
	return domain.Itinerary{
		Type:                 domain.ItineraryDirect,
		Legs:                 []domain.Leg{leg},
		TotalDurationMinutes: leg.DurationMinutes,
		TotalPrices:          totals,
		Price:                price,
	}, true
}

func connecting(first, second domain.Flight, class domain.SeatClass) (domain.Itinerary, bool) {
	a, b := domain.LegFromFlight(first), domain.LegFromFlight(second)
	ground := int(second.DepartureTime.Sub(first.ArrivalTime) / time.Minute)

	ta, tb := classTotals(first), classTotals(second)
	totals := make(map[domain.SeatClass]int64, len(ta))
	for c, p := range ta {
		if q, ok := tb[c]; ok {
			totals[c] = p + q
		}
	}
	price, ok := totals[class]
	if !ok {
		return domain.Itinerary{}, false
	}
	return domain.Itinerary{
		Type:                 domain.ItineraryConnecting,
		Legs:                 []domain.Leg{a, b},
		LayoverAirport:       first.Destination,
		LayoverMinutes:       ground,
		TotalDurationMinutes: a.DurationMinutes + b.DurationMinutes + ground,
		TotalPrices:          totals,
		Price:                price,
	}, true
}

// classTotals resolves the fare of every class the flight can be sold in.
func classTotals(f domain.Flight) map[domain.SeatClass]int64 {
	out := make(map[domain.SeatClass]int64, 3)
	for _, c := range []domain.SeatClass{domain.SeatClassEconomy, domain.SeatClassBusiness, domain.SeatClassFirst} {
		if p, err := pricing.ClassPrice(f.BasePrices, c); err == nil {
			out[c] = p
		}
	}
	return out
}

// SortItineraries orders by total duration, then price, then flight numbers.
func SortItineraries(its []domain.Itinerary) {
	sort.SliceStable(its, func(i, j int) bool {
		if its[i].TotalDurationMinutes != its[j].TotalDurationMinutes {
			return its[i].TotalDurationMinutes < its[j].TotalDurationMinutes
		}
		if its[i].Price != its[j].Price {
			return its[i].Price < its[j].Price
		}
		return its[i].FlightNumbers() < its[j].FlightNumbers()
	})
}

func summarize(day time.Time, its []domain.Itinerary) domain.DayAvailability {
	d := domain.DayAvailability{Date: day.Format(dateLayout), Count: len(its)}
	for i, it := range its {
		if i == 0 || it.Price < d.MinPrice {
			d.MinPrice = it.Price
		}
		if it.Price > d.MaxPrice {
			d.MaxPrice = it.Price
		}
	}
	return d
}

// daysBetween counts calendar days, ignoring DST shifts in the location.
func daysBetween(a, b time.Time) int {
	ua := time.Date(a.Year(), a.Month(), a.Day(), 0, 0, 0, 0, time.UTC)
	ub := time.Date(b.Year(), b.Month(), b.Day(), 0, 0, 0, 0, time.UTC)
	return int(ub.Sub(ua).Hours() / 24)
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

var _ FlightUseCase = (*FlightService)(nil)
