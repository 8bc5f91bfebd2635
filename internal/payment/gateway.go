// Package payment is the boundary to the external card processor used for wallet top-ups.
package payment

import (
	"context"
	"fmt"

	"github.com/Domenick1991/flightbooking/config"
	"github.com/google/uuid"
)

type ChargeRequest struct {
	UserID        uuid.UUID
	Amount        int64
	Currency      string
	PaymentMethod string
	// IdempotencyKey makes a retried charge return the original result.
	IdempotencyKey string
}

type ChargeResult struct {
	TransactionID string
}

type Gateway interface {
	Charge(ctx context.Context, req ChargeRequest) (ChargeResult, error)
	Refund(ctx context.Context, transactionID string) error
}

func NewGateway(cfg config.PaymentConfig) (Gateway, error) {
	switch cfg.Provider {
	case "stripe":
		return NewStripeGateway(cfg.StripeKey), nil
	case "fake":
		return NewFakeGateway(), nil
	}
	return nil, fmt.Errorf("unknown payment provider %q", cfg.Provider)
}
