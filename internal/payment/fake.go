package payment

import (
	"context"
	"fmt"
	"sync"

	"github.com/Domenick1991/flightbooking/internal/domain"
)

// DeclinedPaymentMethod is always declined by FakeGateway, matching Stripe's test token.
const DeclinedPaymentMethod = "pm_card_chargeDeclined"

// FakeGateway is deterministic: every charge succeeds unless the payment method is
// DeclinedPaymentMethod, and idempotency keys replay earlier results.
type FakeGateway struct {
	mu       sync.Mutex
	seq      int
	byKey    map[string]ChargeResult
	charged  map[string]int64
	refunded map[string]bool
}

func NewFakeGateway() *FakeGateway {
	return &FakeGateway{
		byKey:    make(map[string]ChargeResult),
		charged:  make(map[string]int64),
		refunded: make(map[string]bool),
	}
}

func (g *FakeGateway) Charge(_ context.Context, req ChargeRequest) (ChargeResult, error) {
	if req.Amount <= 0 {
		return ChargeResult{}, domain.Validation("charge amount must be positive")
	}
	if req.PaymentMethod == "" {
		return ChargeResult{}, domain.Validation("payment method is required")
	}
	if req.PaymentMethod == DeclinedPaymentMethod {
		return ChargeResult{}, domain.Validation("payment declined: your card was declined")
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if req.IdempotencyKey != "" {
		if res, ok := g.byKey[req.IdempotencyKey]; ok {
			return res, nil
		}
	}
	g.seq++
	res := ChargeResult{TransactionID: fmt.Sprintf("fake_pi_%06d", g.seq)}
	g.charged[res.TransactionID] = req.Amount
	if req.IdempotencyKey != "" {
		g.byKey[req.IdempotencyKey] = res
	}
	return res, nil
}

func (g *FakeGateway) Refund(_ context.Context, transactionID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.charged[transactionID]; !ok {
		return fmt.Errorf("refund %s: unknown transaction", transactionID)
	}
	g.refunded[transactionID] = true
	return nil
}

func (g *FakeGateway) Refunded(transactionID string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.refunded[transactionID]
}

var _ Gateway = (*FakeGateway)(nil)
