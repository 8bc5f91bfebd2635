package repository

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/Domenick1991/flightbooking/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PGSeatLedger serializes holds per flight by locking the flight row before reading
// and updating its seats, so concurrent holds on one flight never interleave.
type PGSeatLedger struct {
	db *pgxpool.Pool
	tx *TxManager
}

func NewSeatLedger(db *pgxpool.Pool) *PGSeatLedger {
	return &PGSeatLedger{db: db, tx: NewTxManager(db)}
}

func (l *PGSeatLedger) TryHold(ctx context.Context, flightID int64, seats []string) (*domain.HoldResult, error) {
	if err := ValidateSeatRequest(seats); err != nil {
		return nil, err
	}

	var result *domain.HoldResult
	err := l.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		q := conn(ctx, l.db)

		var id int64
		if err := q.QueryRow(ctx, `SELECT id FROM flights WHERE id=$1 AND active FOR UPDATE`, flightID).Scan(&id); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return domain.NotFound("flight %d not found", flightID)
			}
			return fmt.Errorf("lock flight: %w", err)
		}

		rows, err := q.Query(ctx, `SELECT seat_number, class, available, price_cents FROM flight_seats WHERE flight_id=$1 AND seat_number = ANY($2)`, flightID, seats)
		if err != nil {
			return fmt.Errorf("read seats: %w", err)
		}
		found := make(map[string]domain.Seat, len(seats))
		for rows.Next() {
			var (
				s     domain.Seat
				class string
			)
			if err := rows.Scan(&s.Number, &class, &s.Available, &s.PriceCents); err != nil {
				rows.Close()
				return fmt.Errorf("scan seat: %w", err)
			}
			s.FlightID = flightID
			s.Class = domain.SeatClass(class)
			found[s.Number] = s
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return fmt.Errorf("read seats: %w", err)
		}

		held, conflicts := PartitionSeats(seats, found)
		if len(conflicts) > 0 {
			return &domain.SeatConflictError{FlightID: flightID, Seats: conflicts}
		}

		tag, err := q.Exec(ctx, `UPDATE flight_seats SET available=false, updated_at=now() WHERE flight_id=$1 AND seat_number = ANY($2) AND available`, flightID, seats)
		if err != nil {
			return fmt.Errorf("hold seats: %w", err)
		}
		if int(tag.RowsAffected()) != len(seats) {
			return fmt.Errorf("hold seats: updated %d of %d rows", tag.RowsAffected(), len(seats))
		}

		result = &domain.HoldResult{FlightID: flightID, Seats: held}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Release is idempotent; a missing flight or already available seats are not errors.
func (l *PGSeatLedger) Release(ctx context.Context, flightID int64, seats []string) error {
	if len(seats) == 0 {
		return nil
	}
	return l.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		q := conn(ctx, l.db)

		var id int64
		if err := q.QueryRow(ctx, `SELECT id FROM flights WHERE id=$1 FOR UPDATE`, flightID).Scan(&id); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil
			}
			return fmt.Errorf("lock flight: %w", err)
		}

		if _, err := q.Exec(ctx, `UPDATE flight_seats SET available=true, updated_at=now() WHERE flight_id=$1 AND seat_number = ANY($2) AND NOT available`, flightID, seats); err != nil {
			return fmt.Errorf("release seats: %w", err)
		}
		return nil
	})
}

func (l *PGSeatLedger) ListSeats(ctx context.Context, flightID int64) ([]domain.Seat, error) {
	rows, err := conn(ctx, l.db).Query(ctx, `SELECT seat_number, class, available, price_cents FROM flight_seats WHERE flight_id=$1 ORDER BY seat_number`, flightID)
	if err != nil {
		return nil, fmt.Errorf("list seats: %w", err)
	}
	defer rows.Close()

	seats := make([]domain.Seat, 0)
	for rows.Next() {
		var (
			s     domain.Seat
			class string
		)
		if err := rows.Scan(&s.Number, &class, &s.Available, &s.PriceCents); err != nil {
			return nil, fmt.Errorf("scan seat: %w", err)
		}
		s.FlightID = flightID
		s.Class = domain.SeatClass(class)
		seats = append(seats, s)
	}
	return seats, rows.Err()
}

// ValidateSeatRequest rejects empty requests, blank seat numbers and duplicates.
func ValidateSeatRequest(seats []string) error {
	if len(seats) == 0 {
		return domain.Validation("at least one seat is required")
	}
	seen := make(map[string]struct{}, len(seats))
	for _, s := range seats {
		if s == "" {
			return domain.Validation("seat number must not be empty")
		}
		if _, dup := seen[s]; dup {
			return domain.Validation("seat %s requested more than once", s)
		}
		seen[s] = struct{}{}
	}
	return nil
}

// PartitionSeats splits the request into holdable seats (in request order) and a
// sorted list of seats that are unknown or already taken.
func PartitionSeats(requested []string, found map[string]domain.Seat) ([]domain.HeldSeat, []string) {
	held := make([]domain.HeldSeat, 0, len(requested))
	var conflicts []string
	for _, number := range requested {
		s, ok := found[number]
		if !ok || !s.Available {
			conflicts = append(conflicts, number)
			continue
		}
		held = append(held, domain.HeldSeat{Number: s.Number, Class: s.Class, PriceCents: s.PriceCents})
	}
	sort.Strings(conflicts)
	return held, conflicts
}

var _ SeatLedger = (*PGSeatLedger)(nil)
