package booking

import (
	"context"
	"net/mail"
	"strings"
	"time"

	"github.com/Domenick1991/flightbooking/config"
	"github.com/Domenick1991/flightbooking/internal/domain"
	"github.com/Domenick1991/flightbooking/internal/kafka"
	"github.com/Domenick1991/flightbooking/internal/metrics"
	"github.com/Domenick1991/flightbooking/internal/repository"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const checkInWindow = 24 * time.Hour

type BookingUseCase interface {
	CreateBooking(ctx context.Context, input CreateBookingInput) (*domain.Booking, error)
	CancelBooking(ctx context.Context, input CancelBookingInput) (*domain.Booking, error)
	CheckIn(ctx context.Context, actor domain.Actor, id uuid.UUID) (*domain.Booking, error)
	List(ctx context.Context, actor domain.Actor, userID uuid.UUID) ([]domain.Booking, error)
	Get(ctx context.Context, actor domain.Actor, id uuid.UUID) (*domain.Booking, error)
	GetByReference(ctx context.Context, reference, email string) (*domain.Booking, error)
	CompleteDepartedBookings(ctx context.Context, now time.Time) ([]domain.Booking, error)
}

type Quoter interface {
	Quote(prices map[domain.SeatClass]int64, passengers []domain.Passenger, baggage domain.Baggage, services domain.SpecialServices) (domain.PriceBreakdown, error)
}

type Producer interface {
	PublishWithRetry(ctx context.Context, topic, key string, value any, maxRetries int) error
}

// publishAttempts bounds delivery attempts per event before the failure is logged and dropped.
const publishAttempts = 3

type BookingService struct {
	bookings           repository.BookingRepository
	flights            repository.FlightRepository
	seats              repository.SeatLedger
	wallets            repository.WalletLedger
	tx                 repository.Transactor
	pricing            Quoter
	producer           Producer
	bookingTopic       string
	notificationsTopic string
	cfg                config.BookingConfig
	references         ReferenceGenerator
	now                func() time.Time
	log                *zap.Logger
}

type CreateBookingInput struct {
	UserID     uuid.UUID              `json:"-"`
	FlightID   int64                  `json:"flight_id"`
	Passengers []domain.Passenger     `json:"passengers"`
	Contact    domain.Contact         `json:"contact_info"`
	Baggage    domain.Baggage         `json:"baggage"`
	Services   domain.SpecialServices `json:"special_services"`
}

type CancelBookingInput struct {
	Actor     domain.Actor
	BookingID uuid.UUID
	Reason    string
}

type BookingServiceOption func(*BookingService)

func WithProducer(producer Producer, bookingTopic, notificationsTopic string) BookingServiceOption {
	return func(s *BookingService) {
		s.producer = producer
		s.bookingTopic = bookingTopic
		s.notificationsTopic = notificationsTopic
	}
}

func WithReferenceGenerator(gen ReferenceGenerator) BookingServiceOption {
	return func(s *BookingService) {
		s.references = gen
	}
}

func WithClock(now func() time.Time) BookingServiceOption {
	return func(s *BookingService) {
		s.now = now
	}
}

func NewBookingService(
	bookings repository.BookingRepository,
	flights repository.FlightRepository,
	seats repository.SeatLedger,
	wallets repository.WalletLedger,
	tx repository.Transactor,
	pricing Quoter,
	cfg config.BookingConfig,
	log *zap.Logger,
	opts ...BookingServiceOption,
) *BookingService {
	service := &BookingService{
		bookings:   bookings,
		flights:    flights,
		seats:      seats,
		wallets:    wallets,
		tx:         tx,
		pricing:    pricing,
		cfg:        cfg,
		references: RandomReference,
		now:        time.Now,
		log:        log,
	}
	for _, opt := range opts {
		opt(service)
	}
	return service
}

// CreateBooking holds seats, debits the wallet and persists a confirmed booking. Every
// step after the hold is undone in reverse order when a later step fails.
func (s *BookingService) CreateBooking(ctx context.Context, input CreateBookingInput) (*domain.Booking, error) {
	booking, err := s.createBooking(ctx, input)
	if err != nil {
		metrics.IncBookingFailure(string(domain.KindOf(err)))
		return nil, err
	}

	metrics.IncBookingCreated()
	s.log.Info("booking confirmed",
		zap.String("reference", booking.Reference),
		zap.Int64("flight_id", booking.FlightID),
		zap.Strings("seats", booking.SeatNumbers()),
		zap.Int64("total", booking.Pricing.Total),
	)
	s.publish(ctx, kafka.EventBookingCreated, booking)
	return booking, nil
}

func (s *BookingService) createBooking(ctx context.Context, input CreateBookingInput) (*domain.Booking, error) {
	if err := s.validateCreate(input); err != nil {
		return nil, err
	}

	flight, err := s.flights.GetByID(ctx, input.FlightID)
	if err != nil {
		return nil, err
	}
	if !flight.Active {
		return nil, domain.NotFound("flight %d not found", input.FlightID)
	}
	if !flight.Searchable() {
		return nil, domain.InvalidState("flight %s is %s and cannot be booked", flight.Number, flight.Status)
	}
	if !flight.DepartureTime.After(s.now()) {
		return nil, domain.InvalidState("flight %s has already departed", flight.Number)
	}

	price, err := s.pricing.Quote(flight.BasePrices, input.Passengers, input.Baggage, input.Services)
	if err != nil {
		return nil, err
	}

	booking := &domain.Booking{
		ID:         uuid.New(),
		UserID:     input.UserID,
		FlightID:   flight.ID,
		Passengers: normalizePassengers(input.Passengers),
		Contact:    input.Contact,
		Pricing:    price,
		Status:     domain.BookingStatusPending,
		Baggage:    input.Baggage,
		Services:   input.Services,
	}
	seats := booking.SeatNumbers()

	err = s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		hold, err := s.seats.TryHold(ctx, flight.ID, seats)
		if err != nil {
			return err
		}
		if err := matchSeatClasses(booking.Passengers, hold); err != nil {
			s.releaseSeats(ctx, flight.ID, seats)
			return err
		}

		if _, err := s.wallets.Debit(ctx, input.UserID, price.Total, booking.ID.String()); err != nil {
			s.releaseSeats(ctx, flight.ID, seats)
			return err
		}

		undo := func() {
			s.refund(ctx, input.UserID, price.Total, booking.ID.String())
			s.releaseSeats(ctx, flight.ID, seats)
		}

		ref, err := s.newReference(ctx)
		if err != nil {
			undo()
			return err
		}

		paidAt := s.now()
		booking.Reference = ref
		booking.Status = domain.BookingStatusConfirmed
		booking.Payment = domain.Payment{
			Method:        domain.PaymentMethodWallet,
			Status:        domain.PaymentStatusCompleted,
			TransactionID: booking.ID.String(),
			PaidAt:        &paidAt,
		}
		if err := s.bookings.Create(ctx, booking); err != nil {
			undo()
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return booking, nil
}

// CancelBooking refunds the wallet, frees the seats and closes the booking. Seats are
// released before the refund so flight locks are always taken before wallet locks.
func (s *BookingService) CancelBooking(ctx context.Context, input CancelBookingInput) (*domain.Booking, error) {
	var cancelled *domain.Booking
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		b, err := s.bookings.GetByID(ctx, input.BookingID)
		if err != nil {
			return err
		}
		if !input.Actor.CanAccess(b.UserID) {
			return domain.Forbidden("not allowed to cancel booking %s", b.ID)
		}
		if !b.HoldsSeats() {
			return domain.InvalidState("booking %s is already %s", b.Reference, b.Status)
		}

		previous := b.Status
		now := s.now()
		refund := b.Payment.Status == domain.PaymentStatusCompleted
		if refund {
			b.Payment.Status = domain.PaymentStatusRefunded
		}
		b.Status = domain.BookingStatusCancelled
		b.CancellationReason = strings.TrimSpace(input.Reason)
		b.CancelledAt = &now

		if s.cfg.HardDeleteOnCancel {
			err = s.bookings.Delete(ctx, b.ID, previous)
		} else {
			err = s.bookings.Update(ctx, b, previous)
		}
		if err != nil {
			return err
		}

		if err := s.seats.Release(ctx, b.FlightID, b.SeatNumbers()); err != nil {
			return err
		}
		if refund {
			if _, err := s.wallets.Credit(ctx, b.UserID, b.Pricing.Total, b.ID.String()); err != nil {
				return err
			}
		}
		cancelled = b
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.IncBookingCancelled()
	s.log.Info("booking cancelled",
		zap.String("reference", cancelled.Reference),
		zap.String("reason", cancelled.CancellationReason),
		zap.Bool("deleted", s.cfg.HardDeleteOnCancel),
	)
	s.publish(ctx, kafka.EventBookingCancelled, cancelled)
	return cancelled, nil
}

// CheckIn is allowed for confirmed bookings within 24 hours before departure.
func (s *BookingService) CheckIn(ctx context.Context, actor domain.Actor, id uuid.UUID) (*domain.Booking, error) {
	b, err := s.bookings.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.CanAccess(b.UserID) {
		return nil, domain.Forbidden("not allowed to check in booking %s", b.ID)
	}
	if b.Status != domain.BookingStatusConfirmed {
		return nil, domain.InvalidState("booking %s is %s", b.Reference, b.Status)
	}
	if b.CheckedIn {
		return nil, domain.InvalidState("booking %s is already checked in", b.Reference)
	}

	flight, err := s.flights.GetByID(ctx, b.FlightID)
	if err != nil {
		return nil, err
	}
	now := s.now()
	untilDeparture := flight.DepartureTime.Sub(now)
	if untilDeparture <= 0 {
		return nil, domain.InvalidState("flight %s has already departed", flight.Number)
	}
	if untilDeparture > checkInWindow {
		return nil, domain.InvalidState("check-in opens 24 hours before departure")
	}

	if err := s.bookings.MarkCheckedIn(ctx, b.ID, now); err != nil {
		return nil, err
	}
	b.CheckedIn = true
	b.CheckedInAt = &now

	s.publish(ctx, kafka.EventBookingCheckedIn, b)
	return b, nil
}

// List returns the actor's bookings; admins may list any user by passing userID.
func (s *BookingService) List(ctx context.Context, actor domain.Actor, userID uuid.UUID) ([]domain.Booking, error) {
	if userID == uuid.Nil {
		userID = actor.UserID
	}
	if !actor.CanAccess(userID) {
		return nil, domain.Forbidden("not allowed to list bookings of another user")
	}
	return s.bookings.ListByUser(ctx, userID)
}

func (s *BookingService) Get(ctx context.Context, actor domain.Actor, id uuid.UUID) (*domain.Booking, error) {
	b, err := s.bookings.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.CanAccess(b.UserID) {
		return nil, domain.Forbidden("not allowed to view booking %s", id)
	}
	return b, nil
}

// GetByReference is the public lookup; a wrong email is indistinguishable from a missing booking.
func (s *BookingService) GetByReference(ctx context.Context, reference, email string) (*domain.Booking, error) {
	reference = strings.ToUpper(strings.TrimSpace(reference))
	if !ValidReference(reference) {
		return nil, domain.Validation("booking reference must be 6 letters or digits")
	}
	if strings.TrimSpace(email) == "" {
		return nil, domain.Validation("email is required")
	}

	b, err := s.bookings.GetByReference(ctx, reference)
	if err != nil {
		return nil, err
	}
	if !strings.EqualFold(strings.TrimSpace(b.Contact.Email), strings.TrimSpace(email)) {
		return nil, domain.NotFound("booking %s not found", reference)
	}
	return b, nil
}

func (s *BookingService) CompleteDepartedBookings(ctx context.Context, now time.Time) ([]domain.Booking, error) {
	completed, err := s.bookings.CompleteArrived(ctx, now)
	if err != nil {
		return nil, err
	}
	metrics.AddBookingsCompleted(len(completed))
	for i := range completed {
		s.publish(ctx, kafka.EventBookingCompleted, &completed[i])
	}
	if len(completed) > 0 {
		s.log.Info("bookings completed", zap.Int("count", len(completed)))
	}
	return completed, nil
}

func (s *BookingService) validateCreate(input CreateBookingInput) error {
	if input.UserID == uuid.Nil {
		return domain.Validation("user is required")
	}
	if input.FlightID <= 0 {
		return domain.Validation("flight_id is required")
	}
	if len(input.Passengers) == 0 {
		return domain.Validation("at least one passenger is required")
	}
	if len(input.Passengers) > s.cfg.MaxPassengers {
		return domain.Validation("at most %d passengers per booking", s.cfg.MaxPassengers)
	}
	seen := make(map[string]struct{}, len(input.Passengers))
	for i, p := range input.Passengers {
		if strings.TrimSpace(p.FirstName) == "" || strings.TrimSpace(p.LastName) == "" {
			return domain.Validation("passenger %d: first and last name are required", i+1)
		}
		seat := strings.ToUpper(strings.TrimSpace(p.SeatNumber))
		if seat == "" {
			return domain.Validation("passenger %d: seat number is required", i+1)
		}
		if _, dup := seen[seat]; dup {
			return domain.Validation("seat %s assigned to more than one passenger", seat)
		}
		seen[seat] = struct{}{}
		if !p.Class.Valid() {
			return domain.Validation("passenger %d: unknown seat class %q", i+1, p.Class)
		}
	}
	if input.Contact.Email == "" {
		return domain.Validation("contact email is required")
	}
	if _, err := mail.ParseAddress(input.Contact.Email); err != nil {
		return domain.Validation("contact email is invalid")
	}
	return nil
}

func (s *BookingService) newReference(ctx context.Context) (string, error) {
	for attempt := 0; attempt < s.cfg.ReferenceAttempts; attempt++ {
		ref, err := s.references()
		if err != nil {
			return "", domain.Fatal("generate booking reference", err)
		}
		exists, err := s.bookings.ReferenceExists(ctx, ref)
		if err != nil {
			return "", err
		}
		if !exists {
			return ref, nil
		}
		s.log.Debug("booking reference collision", zap.String("reference", ref), zap.Int("attempt", attempt+1))
	}
	return "", domain.Fatal("booking reference space exhausted", nil)
}

func (s *BookingService) releaseSeats(ctx context.Context, flightID int64, seats []string) {
	metrics.IncCompensation("release_seats")
	if err := s.seats.Release(ctx, flightID, seats); err != nil {
		s.log.Error("compensation failed: release seats",
			zap.Int64("flight_id", flightID), zap.Strings("seats", seats), zap.Error(err))
	}
}

func (s *BookingService) refund(ctx context.Context, userID uuid.UUID, amount int64, ref string) {
	metrics.IncCompensation("refund")
	if _, err := s.wallets.Credit(ctx, userID, amount, ref); err != nil {
		s.log.Error("compensation failed: refund",
			zap.String("user_id", userID.String()), zap.Int64("amount", amount), zap.Error(err))
	}
}

func (s *BookingService) publish(ctx context.Context, eventType string, booking *domain.Booking) {
	if s.producer == nil || s.bookingTopic == "" {
		return
	}
	event := kafka.NewBookingEvent(eventType, booking, s.now())
	key := booking.ID.String()
	if err := s.producer.PublishWithRetry(ctx, s.bookingTopic, key, event, publishAttempts); err != nil {
		s.log.Warn("failed to publish booking event", zap.String("type", eventType), zap.String("reference", booking.Reference), zap.Error(err))
		return
	}
	if s.notificationsTopic != "" {
		if err := s.producer.PublishWithRetry(ctx, s.notificationsTopic, key, event, publishAttempts); err != nil {
			s.log.Warn("failed to publish notification", zap.String("type", eventType), zap.String("reference", booking.Reference), zap.Error(err))
		}
	}
}

func normalizePassengers(in []domain.Passenger) []domain.Passenger {
	out := make([]domain.Passenger, len(in))
	for i, p := range in {
		p.FirstName = strings.TrimSpace(p.FirstName)
		p.LastName = strings.TrimSpace(p.LastName)
		p.SeatNumber = strings.ToUpper(strings.TrimSpace(p.SeatNumber))
		out[i] = p
	}
	return out
}

func matchSeatClasses(passengers []domain.Passenger, hold *domain.HoldResult) error {
	for _, p := range passengers {
		seat, ok := hold.Seat(p.SeatNumber)
		if !ok {
			return domain.Fatal("seat ledger returned an incomplete hold", nil)
		}
		if seat.Class != p.Class {
			return domain.Validation("seat %s is %s class, passenger requested %s", p.SeatNumber, seat.Class, p.Class)
		}
	}
	return nil
}

var _ BookingUseCase = (*BookingService)(nil)
