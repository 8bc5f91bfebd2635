package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Domenick1991/flightbooking/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PGAirportDirectory struct {
	db *pgxpool.Pool
}

func NewAirportDirectory(db *pgxpool.Pool) *PGAirportDirectory {
	return &PGAirportDirectory{db: db}
}

func (r *PGAirportDirectory) GetByCode(ctx context.Context, code string) (*domain.Airport, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	var a domain.Airport
	err := r.db.QueryRow(ctx, `SELECT code, name, city, timezone FROM airports WHERE code=$1 AND active`, code).
		Scan(&a.Code, &a.Name, &a.City, &a.Timezone)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.NotFound("airport %s not found", code)
		}
		return nil, fmt.Errorf("get airport: %w", err)
	}
	return &a, nil
}

var _ AirportDirectory = (*PGAirportDirectory)(nil)
