package payment

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Domenick1991/flightbooking/internal/domain"
	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
)

type intentCreator interface {
	New(params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error)
}

type refundCreator interface {
	New(params *stripe.RefundParams) (*stripe.Refund, error)
}

type StripeGateway struct {
	intents intentCreator
	refunds refundCreator
}

func NewStripeGateway(key string) *StripeGateway {
	sc := client.New(key, nil)
	return &StripeGateway{intents: sc.PaymentIntents, refunds: sc.Refunds}
}

// Charge confirms a PaymentIntent immediately; anything short of succeeded is a decline.
func (g *StripeGateway) Charge(ctx context.Context, req ChargeRequest) (ChargeResult, error) {
	if req.Amount <= 0 {
		return ChargeResult{}, domain.Validation("charge amount must be positive")
	}
	if req.PaymentMethod == "" {
		return ChargeResult{}, domain.Validation("payment method is required")
	}

	params := &stripe.PaymentIntentParams{
		Amount:        stripe.Int64(req.Amount),
		Currency:      stripe.String(strings.ToLower(req.Currency)),
		PaymentMethod: stripe.String(req.PaymentMethod),
		Confirm:       stripe.Bool(true),
		Description:   stripe.String("Wallet top-up"),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled:        stripe.Bool(true),
			AllowRedirects: stripe.String("never"),
		},
	}
	params.Context = ctx
	params.AddMetadata("user_id", req.UserID.String())
	if req.IdempotencyKey != "" {
		params.SetIdempotencyKey(req.IdempotencyKey)
	}

	pi, err := g.intents.New(params)
	if err != nil {
		var se *stripe.Error
		if errors.As(err, &se) && se.Type == stripe.ErrorTypeCard {
			return ChargeResult{}, domain.Validation("payment declined: %s", se.Msg)
		}
		return ChargeResult{}, domain.Fatal("payment provider unavailable", err)
	}
	if pi.Status != stripe.PaymentIntentStatusSucceeded {
		return ChargeResult{}, domain.Validation("payment not completed (status %s)", pi.Status)
	}
	return ChargeResult{TransactionID: pi.ID}, nil
}

func (g *StripeGateway) Refund(ctx context.Context, transactionID string) error {
	params := &stripe.RefundParams{PaymentIntent: stripe.String(transactionID)}
	params.Context = ctx
	params.SetIdempotencyKey("refund-" + transactionID)
	if _, err := g.refunds.New(params); err != nil {
		return fmt.Errorf("refund %s: %w", transactionID, err)
	}
	return nil
}

var _ Gateway = (*StripeGateway)(nil)
