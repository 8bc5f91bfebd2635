package booking

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/Domenick1991/flightbooking/config"
	"github.com/Domenick1991/flightbooking/internal/domain"
	"github.com/Domenick1991/flightbooking/internal/kafka"
	"github.com/Domenick1991/flightbooking/internal/repository/memory"
	"github.com/Domenick1991/flightbooking/internal/service/pricing"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type MockProducer struct {
	mock.Mock
}

func (m *MockProducer) PublishWithRetry(ctx context.Context, topic, key string, value any, maxRetries int) error {
	args := m.Called(ctx, topic, key, value, maxRetries)
	return args.Error(0)
}

const (
	flightID      = int64(1)
	startBalance  = int64(50000)
	scenarioTotal = int64(18250)
)

var testBookingConfig = config.BookingConfig{
	Currency: "EUR",
	Fees: config.FeesConfig{
		BookingFee:         1000,
		CheckedBag:         3000,
		ExtraBag:           5000,
		SpecialMeal:        1500,
		UnaccompaniedMinor: 7500,
		PetTransport:       10000,
	},
	ReferenceAttempts: 10,
	MaxPassengers:     9,
}

type fixture struct {
	svc      *BookingService
	flights  *memory.Flights
	seats    *memory.SeatLedger
	wallets  *memory.Wallets
	bookings *memory.Bookings
	user     uuid.UUID
	now      time.Time
}

func newFixture(t *testing.T, cfg config.BookingConfig, opts ...BookingServiceOption) *fixture {
	t.Helper()
	f := &fixture{
		flights: memory.NewFlights(),
		seats:   memory.NewSeatLedger(),
		wallets: memory.NewWallets(),
		user:    uuid.New(),
		now:     time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC),
	}
	f.bookings = memory.NewBookings(f.flights)

	f.flights.PutFlight(domain.Flight{
		ID:            flightID,
		Number:        "AZ318",
		Carrier:       "AZ",
		Origin:        "FCO",
		Destination:   "CDG",
		DepartureTime: f.now.Add(72 * time.Hour),
		ArrivalTime:   f.now.Add(74 * time.Hour),
		Capacity:      5,
		BasePrices:    map[domain.SeatClass]int64{domain.SeatClassEconomy: 15000},
		Status:        domain.FlightStatusScheduled,
		Active:        true,
	})
	for _, n := range []string{"12A", "12B", "12C", "12D"} {
		f.seats.AddSeats(flightID, domain.Seat{Number: n, Class: domain.SeatClassEconomy, Available: true, PriceCents: 15000})
	}
	f.seats.AddSeats(flightID, domain.Seat{Number: "1A", Class: domain.SeatClassBusiness, Available: true, PriceCents: 30000})
	f.wallets.Open(f.user, startBalance)

	opts = append([]BookingServiceOption{WithClock(func() time.Time { return f.now })}, opts...)
	f.svc = NewBookingService(f.bookings, f.flights, f.seats, f.wallets, memory.Transactor{},
		pricing.NewCalculator(cfg), cfg, zap.NewNop(), opts...)
	return f
}

func (f *fixture) input(user uuid.UUID, seats ...string) CreateBookingInput {
	passengers := make([]domain.Passenger, 0, len(seats))
	for _, s := range seats {
		passengers = append(passengers, domain.Passenger{FirstName: "Ada", LastName: "Lovelace", SeatNumber: s, Class: domain.SeatClassEconomy})
	}
	return CreateBookingInput{
		UserID:     user,
		FlightID:   flightID,
		Passengers: passengers,
		Contact:    domain.Contact{Email: "ada@example.com"},
		Baggage:    domain.Baggage{CheckedBags: 1},
	}
}

func (f *fixture) seatAvailable(t *testing.T, number string) bool {
	t.Helper()
	seats, err := f.seats.ListSeats(context.Background(), flightID)
	require.NoError(t, err)
	for _, s := range seats {
		if s.Number == number {
			return s.Available
		}
	}
	t.Fatalf("seat %s not found", number)
	return false
}

func (f *fixture) balance(t *testing.T, user uuid.UUID) int64 {
	t.Helper()
	b, err := f.wallets.Balance(context.Background(), user)
	require.NoError(t, err)
	return b
}

func owner(f *fixture) domain.Actor {
	return domain.Actor{UserID: f.user, Role: domain.RoleUser}
}

func TestBookingService_CreateBooking_Success(t *testing.T) {
	f := newFixture(t, testBookingConfig)
	ctx := context.Background()

	booking, err := f.svc.CreateBooking(ctx, f.input(f.user, "12c"))
	require.NoError(t, err)

	assert.Equal(t, domain.BookingStatusConfirmed, booking.Status)
	assert.True(t, ValidReference(booking.Reference))
	assert.Equal(t, []string{"12C"}, booking.SeatNumbers())
	assert.Equal(t, int64(15000), booking.Pricing.BaseFare)
	assert.Equal(t, int64(2250), booking.Pricing.Taxes)
	assert.Equal(t, int64(1000), booking.Pricing.BookingFee)
	assert.Equal(t, scenarioTotal, booking.Pricing.Total)
	assert.True(t, booking.Pricing.Consistent())

	assert.Equal(t, domain.PaymentMethodWallet, booking.Payment.Method)
	assert.Equal(t, domain.PaymentStatusCompleted, booking.Payment.Status)
	require.NotNil(t, booking.Payment.PaidAt)
	assert.Equal(t, f.now, *booking.Payment.PaidAt)

	assert.False(t, f.seatAvailable(t, "12C"))
	assert.Equal(t, startBalance-scenarioTotal, f.balance(t, f.user))

	txs := f.wallets.Transactions(f.user)
	require.Len(t, txs, 1)
	assert.Equal(t, domain.WalletDebit, txs[0].Kind)
	assert.Equal(t, booking.ID.String(), txs[0].Reference)

	stored, err := f.bookings.GetByReference(ctx, booking.Reference)
	require.NoError(t, err)
	assert.Equal(t, booking.ID, stored.ID)
}

func TestBookingService_CreateBooking_SeatConflict(t *testing.T) {
	f := newFixture(t, testBookingConfig)
	ctx := context.Background()
	other := uuid.New()
	f.wallets.Open(other, startBalance)

	_, err := f.svc.CreateBooking(ctx, f.input(f.user, "12C"))
	require.NoError(t, err)

	_, err = f.svc.CreateBooking(ctx, f.input(other, "12D", "12C"))
	var conflict *domain.SeatConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, []string{"12C"}, conflict.Seats)

	assert.Equal(t, startBalance, f.balance(t, other))
	assert.Empty(t, f.wallets.Transactions(other))
	assert.True(t, f.seatAvailable(t, "12D"))

	list, err := f.bookings.ListByUser(ctx, other)
	require.NoError(t, err)
	assert.Empty(t, list)
}

// Hard delete on cancel is opt-in; this covers the configured behavior.
func TestBookingService_CancelBooking_HardDelete(t *testing.T) {
	cfg := testBookingConfig
	cfg.HardDeleteOnCancel = true
	f := newFixture(t, cfg)
	ctx := context.Background()

	booking, err := f.svc.CreateBooking(ctx, f.input(f.user, "12C"))
	require.NoError(t, err)

	cancelled, err := f.svc.CancelBooking(ctx, CancelBookingInput{Actor: owner(f), BookingID: booking.ID})
	require.NoError(t, err)
	assert.Equal(t, domain.BookingStatusCancelled, cancelled.Status)

	assert.True(t, f.seatAvailable(t, "12C"))
	assert.Equal(t, startBalance, f.balance(t, f.user))

	_, err = f.svc.Get(ctx, owner(f), booking.ID)
	assert.Equal(t, domain.KindNotFound, domain.KindOf(err))
}

// Behavior choice: by default a cancelled booking is kept with its reason and timestamp.
func TestBookingService_CancelBooking_KeepsCancelledRecord(t *testing.T) {
	f := newFixture(t, testBookingConfig)
	ctx := context.Background()

	booking, err := f.svc.CreateBooking(ctx, f.input(f.user, "12C"))
	require.NoError(t, err)

	_, err = f.svc.CancelBooking(ctx, CancelBookingInput{Actor: owner(f), BookingID: booking.ID, Reason: "  change of plans "})
	require.NoError(t, err)

	stored, err := f.svc.Get(ctx, owner(f), booking.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.BookingStatusCancelled, stored.Status)
	assert.Equal(t, domain.PaymentStatusRefunded, stored.Payment.Status)
	assert.Equal(t, "change of plans", stored.CancellationReason)
	require.NotNil(t, stored.CancelledAt)
	assert.Equal(t, f.now, *stored.CancelledAt)

	assert.True(t, f.seatAvailable(t, "12C"))
	assert.Equal(t, startBalance, f.balance(t, f.user))

	_, err = f.svc.CancelBooking(ctx, CancelBookingInput{Actor: owner(f), BookingID: booking.ID})
	assert.Equal(t, domain.KindInvalidState, domain.KindOf(err))
	assert.Equal(t, startBalance, f.balance(t, f.user), "second cancel must not refund again")

	txs := f.wallets.Transactions(f.user)
	require.Len(t, txs, 2)
	assert.Equal(t, domain.WalletCredit, txs[1].Kind)
}

func TestBookingService_CreateBooking_InsufficientFunds(t *testing.T) {
	f := newFixture(t, testBookingConfig)
	ctx := context.Background()
	poor := uuid.New()
	f.wallets.Open(poor, 18249)

	_, err := f.svc.CreateBooking(ctx, f.input(poor, "12A"))
	var insufficient *domain.InsufficientFundsError
	require.ErrorAs(t, err, &insufficient)
	assert.Equal(t, scenarioTotal, insufficient.Required)
	assert.Equal(t, int64(18249), insufficient.Available)

	assert.True(t, f.seatAvailable(t, "12A"))
	assert.Equal(t, int64(18249), f.balance(t, poor))
}

func TestBookingService_CreateBooking_ReferenceExhaustion(t *testing.T) {
	cfg := testBookingConfig
	cfg.ReferenceAttempts = 3
	f := newFixture(t, cfg, WithReferenceGenerator(func() (string, error) { return "AAAAAA", nil }))
	ctx := context.Background()

	_, err := f.svc.CreateBooking(ctx, f.input(f.user, "12A"))
	require.NoError(t, err)
	afterFirst := f.balance(t, f.user)

	_, err = f.svc.CreateBooking(ctx, f.input(f.user, "12B"))
	assert.Equal(t, domain.KindFatal, domain.KindOf(err))

	assert.True(t, f.seatAvailable(t, "12B"))
	assert.Equal(t, afterFirst, f.balance(t, f.user))

	txs := f.wallets.Transactions(f.user)
	require.Len(t, txs, 3)
	assert.Equal(t, domain.WalletCredit, txs[2].Kind, "debit is compensated by a refund")
}

func TestBookingService_CreateBooking_ReferenceRetry(t *testing.T) {
	refs := []string{"AAAAAA", "AAAAAA", "BBBBBB"}
	var i int
	f := newFixture(t, testBookingConfig, WithReferenceGenerator(func() (string, error) {
		ref := refs[i%len(refs)]
		i++
		return ref, nil
	}))
	ctx := context.Background()

	first, err := f.svc.CreateBooking(ctx, f.input(f.user, "12A"))
	require.NoError(t, err)
	second, err := f.svc.CreateBooking(ctx, f.input(f.user, "12B"))
	require.NoError(t, err)

	assert.Equal(t, "AAAAAA", first.Reference)
	assert.Equal(t, "BBBBBB", second.Reference)
}

func TestBookingService_CreateBooking_ClassMismatch(t *testing.T) {
	f := newFixture(t, testBookingConfig)

	_, err := f.svc.CreateBooking(context.Background(), f.input(f.user, "1A"))
	assert.Equal(t, domain.KindValidation, domain.KindOf(err))
	assert.True(t, f.seatAvailable(t, "1A"))
	assert.Equal(t, startBalance, f.balance(t, f.user))
}

func TestBookingService_CreateBooking_ValidationErrors(t *testing.T) {
	f := newFixture(t, testBookingConfig)
	ctx := context.Background()

	tooMany := f.input(f.user)
	for i := 0; i < 10; i++ {
		tooMany.Passengers = append(tooMany.Passengers, domain.Passenger{FirstName: "A", LastName: "B", SeatNumber: string(rune('A'+i)) + "1", Class: domain.SeatClassEconomy})
	}

	testCases := []struct {
		name   string
		mutate func(in *CreateBookingInput)
	}{
		{name: "no passengers", mutate: func(in *CreateBookingInput) { in.Passengers = nil }},
		{name: "too many passengers", mutate: func(in *CreateBookingInput) { *in = tooMany }},
		{name: "duplicate seats", mutate: func(in *CreateBookingInput) {
			in.Passengers = append(in.Passengers, domain.Passenger{FirstName: "A", LastName: "B", SeatNumber: "12c", Class: domain.SeatClassEconomy})
		}},
		{name: "blank seat", mutate: func(in *CreateBookingInput) { in.Passengers[0].SeatNumber = " " }},
		{name: "missing name", mutate: func(in *CreateBookingInput) { in.Passengers[0].LastName = "" }},
		{name: "unknown class", mutate: func(in *CreateBookingInput) { in.Passengers[0].Class = "premium" }},
		{name: "missing email", mutate: func(in *CreateBookingInput) { in.Contact.Email = "" }},
		{name: "invalid email", mutate: func(in *CreateBookingInput) { in.Contact.Email = "not-an-email" }},
		{name: "negative bags", mutate: func(in *CreateBookingInput) { in.Baggage.ExtraBags = -1 }},
		{name: "no flight", mutate: func(in *CreateBookingInput) { in.FlightID = 0 }},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			in := f.input(f.user, "12C")
			tc.mutate(&in)

			_, err := f.svc.CreateBooking(ctx, in)
			assert.Equal(t, domain.KindValidation, domain.KindOf(err))
		})
	}

	assert.True(t, f.seatAvailable(t, "12C"))
	assert.Equal(t, startBalance, f.balance(t, f.user))
}

func TestBookingService_CreateBooking_FlightState(t *testing.T) {
	f := newFixture(t, testBookingConfig)
	ctx := context.Background()

	base, err := f.flights.GetByID(ctx, flightID)
	require.NoError(t, err)

	in := f.input(f.user, "12C")
	in.FlightID = 99
	_, err = f.svc.CreateBooking(ctx, in)
	assert.Equal(t, domain.KindNotFound, domain.KindOf(err))

	inactive := *base
	inactive.Active = false
	f.flights.PutFlight(inactive)
	_, err = f.svc.CreateBooking(ctx, f.input(f.user, "12C"))
	assert.Equal(t, domain.KindNotFound, domain.KindOf(err))

	cancelled := *base
	cancelled.Status = domain.FlightStatusCancelled
	f.flights.PutFlight(cancelled)
	_, err = f.svc.CreateBooking(ctx, f.input(f.user, "12C"))
	assert.Equal(t, domain.KindInvalidState, domain.KindOf(err))

	f.flights.PutFlight(*base)
	f.now = base.DepartureTime.Add(time.Minute)
	_, err = f.svc.CreateBooking(ctx, f.input(f.user, "12C"))
	assert.Equal(t, domain.KindInvalidState, domain.KindOf(err))

	assert.True(t, f.seatAvailable(t, "12C"))
}

func TestBookingService_CancelBooking_Authorization(t *testing.T) {
	f := newFixture(t, testBookingConfig)
	ctx := context.Background()

	booking, err := f.svc.CreateBooking(ctx, f.input(f.user, "12C"))
	require.NoError(t, err)

	_, err = f.svc.CancelBooking(ctx, CancelBookingInput{Actor: domain.Actor{UserID: uuid.New(), Role: domain.RoleUser}, BookingID: booking.ID})
	assert.Equal(t, domain.KindForbidden, domain.KindOf(err))
	assert.False(t, f.seatAvailable(t, "12C"))

	_, err = f.svc.CancelBooking(ctx, CancelBookingInput{Actor: owner(f), BookingID: uuid.New()})
	assert.Equal(t, domain.KindNotFound, domain.KindOf(err))

	admin := domain.Actor{UserID: uuid.New(), Role: domain.RoleAdmin}
	_, err = f.svc.CancelBooking(ctx, CancelBookingInput{Actor: admin, BookingID: booking.ID, Reason: "schedule change"})
	require.NoError(t, err)
	assert.Equal(t, startBalance, f.balance(t, f.user), "refund goes to the owner, not the admin")
}

func TestBookingService_CancelBooking_FlightRemoved(t *testing.T) {
	f := newFixture(t, testBookingConfig)
	ctx := context.Background()

	booking, err := f.svc.CreateBooking(ctx, f.input(f.user, "12C"))
	require.NoError(t, err)

	f.seats.RemoveFlight(flightID)
	f.flights.DeleteFlight(flightID)

	_, err = f.svc.CancelBooking(ctx, CancelBookingInput{Actor: owner(f), BookingID: booking.ID})
	require.NoError(t, err)
	assert.Equal(t, startBalance, f.balance(t, f.user))
}

func TestBookingService_CancelBooking_CompletedIsFinal(t *testing.T) {
	f := newFixture(t, testBookingConfig)
	ctx := context.Background()

	booking, err := f.svc.CreateBooking(ctx, f.input(f.user, "12C"))
	require.NoError(t, err)

	f.now = f.now.Add(80 * time.Hour)
	completed, err := f.svc.CompleteDepartedBookings(ctx, f.now)
	require.NoError(t, err)
	require.Len(t, completed, 1)

	_, err = f.svc.CancelBooking(ctx, CancelBookingInput{Actor: owner(f), BookingID: booking.ID})
	assert.Equal(t, domain.KindInvalidState, domain.KindOf(err))
	assert.Equal(t, startBalance-scenarioTotal, f.balance(t, f.user))
}

func TestBookingService_CheckIn(t *testing.T) {
	f := newFixture(t, testBookingConfig)
	ctx := context.Background()

	booking, err := f.svc.CreateBooking(ctx, f.input(f.user, "12C"))
	require.NoError(t, err)
	departure := f.now.Add(72 * time.Hour)

	_, err = f.svc.CheckIn(ctx, owner(f), booking.ID)
	assert.Equal(t, domain.KindInvalidState, domain.KindOf(err), "72h before departure is too early")

	_, err = f.svc.CheckIn(ctx, domain.Actor{UserID: uuid.New()}, booking.ID)
	assert.Equal(t, domain.KindForbidden, domain.KindOf(err))

	f.now = departure.Add(-24 * time.Hour)
	checked, err := f.svc.CheckIn(ctx, owner(f), booking.ID)
	require.NoError(t, err)
	assert.True(t, checked.CheckedIn)
	require.NotNil(t, checked.CheckedInAt)
	assert.Equal(t, f.now, *checked.CheckedInAt)

	_, err = f.svc.CheckIn(ctx, owner(f), booking.ID)
	assert.Equal(t, domain.KindInvalidState, domain.KindOf(err))
}

func TestBookingService_CheckIn_Concurrent(t *testing.T) {
	mockProducer := &MockProducer{}
	f := newFixture(t, testBookingConfig, WithProducer(mockProducer, "booking_events", ""))
	ctx := context.Background()
	mockProducer.On("PublishWithRetry", ctx, "booking_events", mock.Anything, mock.Anything, publishAttempts).Return(nil)

	booking, err := f.svc.CreateBooking(ctx, f.input(f.user, "12C"))
	require.NoError(t, err)
	f.now = f.now.Add(60 * time.Hour)

	const attempts = 8
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
	)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.CheckIn(ctx, owner(f), booking.ID)
			if err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
				return
			}
			assert.Equal(t, domain.KindInvalidState, domain.KindOf(err))
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, succeeded)
	checkedIn := 0
	for _, call := range mockProducer.Calls {
		if e, ok := call.Arguments.Get(3).(kafka.BookingEvent); ok && e.Type == kafka.EventBookingCheckedIn {
			checkedIn++
		}
	}
	assert.Equal(t, 1, checkedIn, "one checked-in event")
}

func TestBookingService_CheckIn_Window(t *testing.T) {
	testCases := []struct {
		name    string
		before  time.Duration
		wantErr bool
	}{
		{name: "just over 24h", before: 24*time.Hour + time.Minute, wantErr: true},
		{name: "exactly 24h", before: 24 * time.Hour},
		{name: "one hour", before: time.Hour},
		{name: "at departure", before: 0, wantErr: true},
		{name: "after departure", before: -time.Hour, wantErr: true},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t, testBookingConfig)
			ctx := context.Background()
			booking, err := f.svc.CreateBooking(ctx, f.input(f.user, "12C"))
			require.NoError(t, err)

			f.now = f.now.Add(72 * time.Hour).Add(-tc.before)
			_, err = f.svc.CheckIn(ctx, owner(f), booking.ID)
			if tc.wantErr {
				assert.Equal(t, domain.KindInvalidState, domain.KindOf(err))
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestBookingService_CheckIn_Cancelled(t *testing.T) {
	f := newFixture(t, testBookingConfig)
	ctx := context.Background()

	booking, err := f.svc.CreateBooking(ctx, f.input(f.user, "12C"))
	require.NoError(t, err)
	_, err = f.svc.CancelBooking(ctx, CancelBookingInput{Actor: owner(f), BookingID: booking.ID})
	require.NoError(t, err)

	f.now = f.now.Add(60 * time.Hour)
	_, err = f.svc.CheckIn(ctx, owner(f), booking.ID)
	assert.Equal(t, domain.KindInvalidState, domain.KindOf(err))
}

func TestBookingService_ReadPaths(t *testing.T) {
	f := newFixture(t, testBookingConfig)
	ctx := context.Background()

	booking, err := f.svc.CreateBooking(ctx, f.input(f.user, "12C"))
	require.NoError(t, err)
	stranger := domain.Actor{UserID: uuid.New(), Role: domain.RoleUser}
	admin := domain.Actor{UserID: uuid.New(), Role: domain.RoleAdmin}

	list, err := f.svc.List(ctx, owner(f), uuid.Nil)
	require.NoError(t, err)
	require.Len(t, list, 1)

	_, err = f.svc.List(ctx, stranger, f.user)
	assert.Equal(t, domain.KindForbidden, domain.KindOf(err))

	list, err = f.svc.List(ctx, admin, f.user)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	_, err = f.svc.Get(ctx, stranger, booking.ID)
	assert.Equal(t, domain.KindForbidden, domain.KindOf(err))

	got, err := f.svc.GetByReference(ctx, booking.Reference, "ADA@example.com")
	require.NoError(t, err)
	assert.Equal(t, booking.ID, got.ID)

	_, err = f.svc.GetByReference(ctx, booking.Reference, "eve@example.com")
	assert.Equal(t, domain.KindNotFound, domain.KindOf(err))

	_, err = f.svc.GetByReference(ctx, "abc", "ada@example.com")
	assert.Equal(t, domain.KindValidation, domain.KindOf(err))
}

func TestBookingService_WalletConservation(t *testing.T) {
	f := newFixture(t, testBookingConfig)
	ctx := context.Background()

	for _, seats := range [][]string{{"12A"}, {"12B", "12C"}, {"12D"}} {
		before := f.balance(t, f.user)
		in := f.input(f.user, seats...)
		in.Baggage = domain.Baggage{CheckedBags: 3, ExtraBags: 1}
		in.Services = domain.SpecialServices{SpecialMeal: true}

		booking, err := f.svc.CreateBooking(ctx, in)
		require.NoError(t, err)
		_, err = f.svc.CancelBooking(ctx, CancelBookingInput{Actor: owner(f), BookingID: booking.ID})
		require.NoError(t, err)

		assert.Equal(t, before, f.balance(t, f.user))
	}
}

func TestBookingService_ConcurrentCreates_NoOversell(t *testing.T) {
	f := newFixture(t, testBookingConfig)
	ctx := context.Background()

	const buyers = 16
	users := make([]uuid.UUID, buyers)
	for i := range users {
		users[i] = uuid.New()
		f.wallets.Open(users[i], startBalance)
	}

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		conflicts int
	)
	for _, u := range users {
		wg.Add(1)
		go func(u uuid.UUID) {
			defer wg.Done()
			_, err := f.svc.CreateBooking(ctx, f.input(u, "12C"))
			mu.Lock()
			defer mu.Unlock()
			switch domain.KindOf(err) {
			case "":
				successes++
			case domain.KindSeatConflict:
				conflicts++
			}
		}(u)
	}
	wg.Wait()

	assert.Equal(t, 1, successes)
	assert.Equal(t, buyers-1, conflicts)

	var total int64
	for _, u := range users {
		total += f.balance(t, u)
	}
	assert.Equal(t, int64(buyers)*startBalance-scenarioTotal, total)
}

func TestBookingService_PublishesEvents(t *testing.T) {
	mockProducer := &MockProducer{}
	f := newFixture(t, testBookingConfig, WithProducer(mockProducer, "booking_events", "notifications"))
	ctx := context.Background()

	isType := func(eventType string) any {
		return mock.MatchedBy(func(e kafka.BookingEvent) bool { return e.Type == eventType })
	}
	mockProducer.On("PublishWithRetry", ctx, "booking_events", mock.Anything, isType(kafka.EventBookingCreated), publishAttempts).Return(nil).Once()
	mockProducer.On("PublishWithRetry", ctx, "notifications", mock.Anything, isType(kafka.EventBookingCreated), publishAttempts).Return(nil).Once()
	mockProducer.On("PublishWithRetry", ctx, "booking_events", mock.Anything, isType(kafka.EventBookingCancelled), publishAttempts).Return(errors.New("broker down")).Once()

	booking, err := f.svc.CreateBooking(ctx, f.input(f.user, "12C"))
	require.NoError(t, err)

	_, err = f.svc.CancelBooking(ctx, CancelBookingInput{Actor: owner(f), BookingID: booking.ID})
	require.NoError(t, err, "event delivery failures do not fail the operation")

	mockProducer.AssertExpectations(t)
	mockProducer.AssertNumberOfCalls(t, "PublishWithRetry", 3)
}

func TestBookingService_NoProducer(t *testing.T) {
	f := newFixture(t, testBookingConfig, WithProducer(nil, "", ""))

	_, err := f.svc.CreateBooking(context.Background(), f.input(f.user, "12C"))
	assert.NoError(t, err)
}

func TestNewBookingService_WithOptions(t *testing.T) {
	mockProducer := &MockProducer{}
	gen := func() (string, error) { return "ZZZZZZ", nil }

	service := NewBookingService(nil, nil, nil, nil, memory.Transactor{}, nil, testBookingConfig, zap.NewNop(),
		WithProducer(mockProducer, "booking_events", "notifications"),
		WithReferenceGenerator(gen),
	)

	assert.Equal(t, mockProducer, service.producer)
	assert.Equal(t, "booking_events", service.bookingTopic)
	assert.Equal(t, "notifications", service.notificationsTopic)
	ref, err := service.references()
	require.NoError(t, err)
	assert.Equal(t, "ZZZZZZ", ref)
	assert.NotNil(t, service.now)
}
