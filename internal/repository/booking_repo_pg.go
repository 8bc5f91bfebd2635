package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Domenick1991/flightbooking/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const bookingColumns = `b.id, b.reference, b.user_id, b.flight_id, b.passengers, b.contact, b.pricing, b.baggage, b.services,
	b.payment_method, b.payment_status, b.payment_transaction_id, b.paid_at, b.status, b.checked_in, b.checked_in_at,
	b.cancellation_reason, b.cancelled_at, b.created_at, b.updated_at`

type PGBookingRepository struct {
	db *pgxpool.Pool
}

func NewBookingRepository(db *pgxpool.Pool) *PGBookingRepository {
	return &PGBookingRepository{db: db}
}

func (r *PGBookingRepository) Create(ctx context.Context, booking *domain.Booking) error {
	docs, err := marshalBookingDocs(booking)
	if err != nil {
		return err
	}

	err = conn(ctx, r.db).QueryRow(ctx, `INSERT INTO bookings (id, reference, user_id, flight_id, passengers, contact, pricing, baggage, services,
			payment_method, payment_status, payment_transaction_id, paid_at, status, checked_in, checked_in_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, now(), now())
		RETURNING created_at, updated_at`,
		booking.ID, booking.Reference, booking.UserID, booking.FlightID, docs.passengers, docs.contact, docs.pricing, docs.baggage, docs.services,
		booking.Payment.Method, string(booking.Payment.Status), booking.Payment.TransactionID, booking.Payment.PaidAt,
		string(booking.Status), booking.CheckedIn, booking.CheckedInAt).
		Scan(&booking.CreatedAt, &booking.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return domain.InvalidState("booking reference %s already exists", booking.Reference)
		}
		return fmt.Errorf("insert booking: %w", err)
	}
	return nil
}

func (r *PGBookingRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Booking, error) {
	row := conn(ctx, r.db).QueryRow(ctx, `SELECT `+bookingColumns+` FROM bookings b WHERE b.id=$1`, id)
	b, err := scanBooking(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.NotFound("booking %s not found", id)
		}
		return nil, fmt.Errorf("get booking: %w", err)
	}
	return b, nil
}

func (r *PGBookingRepository) GetByReference(ctx context.Context, reference string) (*domain.Booking, error) {
	row := conn(ctx, r.db).QueryRow(ctx, `SELECT `+bookingColumns+` FROM bookings b WHERE b.reference=$1`, reference)
	b, err := scanBooking(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.NotFound("booking %s not found", reference)
		}
		return nil, fmt.Errorf("get booking by reference: %w", err)
	}
	return b, nil
}

func (r *PGBookingRepository) ReferenceExists(ctx context.Context, reference string) (bool, error) {
	var exists bool
	if err := conn(ctx, r.db).QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM bookings WHERE reference=$1)`, reference).Scan(&exists); err != nil {
		return false, fmt.Errorf("check reference: %w", err)
	}
	return exists, nil
}

func (r *PGBookingRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]domain.Booking, error) {
	rows, err := conn(ctx, r.db).Query(ctx, `SELECT `+bookingColumns+` FROM bookings b WHERE b.user_id=$1 ORDER BY b.created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list bookings: %w", err)
	}
	return collectBookings(rows)
}

// Update stores booking only while its current status is still expected, so concurrent
// transitions of one booking cannot both succeed.
func (r *PGBookingRepository) Update(ctx context.Context, booking *domain.Booking, expected domain.BookingStatus) error {
	docs, err := marshalBookingDocs(booking)
	if err != nil {
		return err
	}

	err = conn(ctx, r.db).QueryRow(ctx, `UPDATE bookings SET passengers=$2, contact=$3, pricing=$4, baggage=$5, services=$6,
			payment_method=$7, payment_status=$8, payment_transaction_id=$9, paid_at=$10, status=$11, checked_in=$12, checked_in_at=$13,
			cancellation_reason=$14, cancelled_at=$15, updated_at=now()
		WHERE id=$1 AND status=$16 RETURNING updated_at`,
		booking.ID, docs.passengers, docs.contact, docs.pricing, docs.baggage, docs.services,
		booking.Payment.Method, string(booking.Payment.Status), booking.Payment.TransactionID, booking.Payment.PaidAt,
		string(booking.Status), booking.CheckedIn, booking.CheckedInAt, booking.CancellationReason, booking.CancelledAt,
		string(expected)).
		Scan(&booking.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return r.missOrConflict(ctx, booking.ID, expected)
		}
		return fmt.Errorf("update booking: %w", err)
	}
	return nil
}

func (r *PGBookingRepository) Delete(ctx context.Context, id uuid.UUID, expected domain.BookingStatus) error {
	tag, err := conn(ctx, r.db).Exec(ctx, `DELETE FROM bookings WHERE id=$1 AND status=$2`, id, string(expected))
	if err != nil {
		return fmt.Errorf("delete booking: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return r.missOrConflict(ctx, id, expected)
	}
	return nil
}

func (r *PGBookingRepository) MarkCheckedIn(ctx context.Context, id uuid.UUID, at time.Time) error {
	tag, err := conn(ctx, r.db).Exec(ctx, `UPDATE bookings SET checked_in=true, checked_in_at=$2, updated_at=now()
		WHERE id=$1 AND status=$3 AND NOT checked_in`, id, at, string(domain.BookingStatusConfirmed))
	if err != nil {
		return fmt.Errorf("check in booking: %w", err)
	}
	if tag.RowsAffected() > 0 {
		return nil
	}
	if err := r.missOrConflict(ctx, id, domain.BookingStatusConfirmed); err != nil {
		return err
	}
	return domain.InvalidState("booking %s is already checked in", id)
}

func (r *PGBookingRepository) missOrConflict(ctx context.Context, id uuid.UUID, expected domain.BookingStatus) error {
	var status string
	err := conn(ctx, r.db).QueryRow(ctx, `SELECT status FROM bookings WHERE id=$1`, id).Scan(&status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.NotFound("booking %s not found", id)
		}
		return fmt.Errorf("get booking status: %w", err)
	}
	return domain.InvalidState("booking %s is %s, expected %s", id, status, expected)
}

func (r *PGBookingRepository) CompleteArrived(ctx context.Context, deadline time.Time) ([]domain.Booking, error) {
	rows, err := conn(ctx, r.db).Query(ctx, `UPDATE bookings b SET status=$1, updated_at=now()
		FROM flights f
		WHERE b.flight_id = f.id AND b.status=$2 AND f.arrival_time <= $3
		RETURNING `+bookingColumns, string(domain.BookingStatusCompleted), string(domain.BookingStatusConfirmed), deadline)
	if err != nil {
		return nil, fmt.Errorf("complete arrived bookings: %w", err)
	}
	return collectBookings(rows)
}

type bookingDocs struct {
	passengers, contact, pricing, baggage, services []byte
}

func marshalBookingDocs(b *domain.Booking) (bookingDocs, error) {
	var (
		docs bookingDocs
		err  error
	)
	if docs.passengers, err = json.Marshal(b.Passengers); err != nil {
		return docs, fmt.Errorf("marshal passengers: %w", err)
	}
	if docs.contact, err = json.Marshal(b.Contact); err != nil {
		return docs, fmt.Errorf("marshal contact: %w", err)
	}
	if docs.pricing, err = json.Marshal(b.Pricing); err != nil {
		return docs, fmt.Errorf("marshal pricing: %w", err)
	}
	if docs.baggage, err = json.Marshal(b.Baggage); err != nil {
		return docs, fmt.Errorf("marshal baggage: %w", err)
	}
	if docs.services, err = json.Marshal(b.Services); err != nil {
		return docs, fmt.Errorf("marshal services: %w", err)
	}
	return docs, nil
}

func collectBookings(rows pgx.Rows) ([]domain.Booking, error) {
	defer rows.Close()

	bookings := make([]domain.Booking, 0)
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, fmt.Errorf("scan booking: %w", err)
		}
		bookings = append(bookings, *b)
	}
	return bookings, rows.Err()
}

func scanBooking(row pgx.Row) (*domain.Booking, error) {
	var (
		b                                         domain.Booking
		docs                                      bookingDocs
		paymentStatus, status, txID, cancelReason *string
	)
	if err := row.Scan(&b.ID, &b.Reference, &b.UserID, &b.FlightID, &docs.passengers, &docs.contact, &docs.pricing, &docs.baggage, &docs.services,
		&b.Payment.Method, &paymentStatus, &txID, &b.Payment.PaidAt, &status, &b.CheckedIn, &b.CheckedInAt,
		&cancelReason, &b.CancelledAt, &b.CreatedAt, &b.UpdatedAt); err != nil {
		return nil, err
	}
	if paymentStatus != nil {
		b.Payment.Status = domain.PaymentStatus(*paymentStatus)
	}
	if status != nil {
		b.Status = domain.BookingStatus(*status)
	}
	if txID != nil {
		b.Payment.TransactionID = *txID
	}
	if cancelReason != nil {
		b.CancellationReason = *cancelReason
	}

	if err := json.Unmarshal(docs.passengers, &b.Passengers); err != nil {
		return nil, fmt.Errorf("unmarshal passengers: %w", err)
	}
	if err := json.Unmarshal(docs.contact, &b.Contact); err != nil {
		return nil, fmt.Errorf("unmarshal contact: %w", err)
	}
	if err := json.Unmarshal(docs.pricing, &b.Pricing); err != nil {
		return nil, fmt.Errorf("unmarshal pricing: %w", err)
	}
	if err := json.Unmarshal(docs.baggage, &b.Baggage); err != nil {
		return nil, fmt.Errorf("unmarshal baggage: %w", err)
	}
	if err := json.Unmarshal(docs.services, &b.Services); err != nil {
		return nil, fmt.Errorf("unmarshal services: %w", err)
	}
	return &b, nil
}

var _ BookingRepository = (*PGBookingRepository)(nil)
