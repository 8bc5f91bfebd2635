package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/Domenick1991/flightbooking/internal/domain"
	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var flightColumns = []string{
	"id", "flight_number", "carrier", "origin", "destination", "departure_time", "arrival_time",
	"capacity", "price_economy", "price_business", "price_first", "status", "active", "created_at", "updated_at",
}

type PGFlightRepository struct {
	db *pgxpool.Pool
	sb sq.StatementBuilderType
}

func NewFlightRepository(db *pgxpool.Pool) *PGFlightRepository {
	return &PGFlightRepository{
		db: db,
		sb: sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
}

func (r *PGFlightRepository) GetByID(ctx context.Context, id int64) (*domain.Flight, error) {
	sqlStr, args, err := r.sb.Select(flightColumns...).From("flights").Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build get flight sql: %w", err)
	}

	f, err := scanFlight(conn(ctx, r.db).QueryRow(ctx, sqlStr, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.NotFound("flight %d not found", id)
		}
		return nil, fmt.Errorf("get flight: %w", err)
	}
	return f, nil
}

func (r *PGFlightRepository) ListDepartures(ctx context.Context, q ScheduleQuery) ([]domain.Flight, error) {
	where := sq.And{
		sq.Eq{"origin": q.Origin},
		sq.GtOrEq{"departure_time": q.From},
		sq.Lt{"departure_time": q.To},
		sq.Eq{"active": true},
		sq.Eq{"status": []string{string(domain.FlightStatusScheduled), string(domain.FlightStatusBoarding)}},
	}
	if q.Destination != "" {
		where = append(where, sq.Eq{"destination": q.Destination})
	}

	sqlStr, args, err := r.sb.Select(flightColumns...).
		From("flights").
		Where(where).
		OrderBy("departure_time", "flight_number").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list departures sql: %w", err)
	}

	rows, err := conn(ctx, r.db).Query(ctx, sqlStr, args...)
	if err != nil {
		return nil, fmt.Errorf("list departures: %w", err)
	}
	defer rows.Close()

	flights := make([]domain.Flight, 0)
	for rows.Next() {
		f, err := scanFlight(rows)
		if err != nil {
			return nil, fmt.Errorf("scan flight: %w", err)
		}
		flights = append(flights, *f)
	}
	return flights, rows.Err()
}

func scanFlight(row pgx.Row) (*domain.Flight, error) {
	var (
		f                        domain.Flight
		economy, business, first *int64
		status                   string
	)
	if err := row.Scan(&f.ID, &f.Number, &f.Carrier, &f.Origin, &f.Destination, &f.DepartureTime, &f.ArrivalTime,
		&f.Capacity, &economy, &business, &first, &status, &f.Active, &f.CreatedAt, &f.UpdatedAt); err != nil {
		return nil, err
	}
	f.Status = domain.FlightStatus(status)
	f.BasePrices = make(map[domain.SeatClass]int64, 3)
	if economy != nil {
		f.BasePrices[domain.SeatClassEconomy] = *economy
	}
	if business != nil {
		f.BasePrices[domain.SeatClassBusiness] = *business
	}
	if first != nil {
		f.BasePrices[domain.SeatClassFirst] = *first
	}
	return &f, nil
}

var _ FlightRepository = (*PGFlightRepository)(nil)
