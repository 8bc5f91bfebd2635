package payment

import (
	"context"
	"errors"
	"testing"

	"github.com/Domenick1991/flightbooking/config"
	"github.com/Domenick1991/flightbooking/internal/domain"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v76"
)

type MockIntents struct {
	mock.Mock
}

func (m *MockIntents) New(params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error) {
	args := m.Called(params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*stripe.PaymentIntent), args.Error(1)
}

type MockRefunds struct {
	mock.Mock
}

func (m *MockRefunds) New(params *stripe.RefundParams) (*stripe.Refund, error) {
	args := m.Called(params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*stripe.Refund), args.Error(1)
}

func TestNewGateway(t *testing.T) {
	g, err := NewGateway(config.PaymentConfig{Provider: "fake"})
	require.NoError(t, err)
	assert.IsType(t, &FakeGateway{}, g)

	g, err = NewGateway(config.PaymentConfig{Provider: "stripe", StripeKey: "sk_test_123"})
	require.NoError(t, err)
	assert.IsType(t, &StripeGateway{}, g)

	_, err = NewGateway(config.PaymentConfig{Provider: "paypal"})
	assert.Error(t, err)
}

func TestFakeGateway(t *testing.T) {
	ctx := context.Background()
	g := NewFakeGateway()
	req := ChargeRequest{UserID: uuid.New(), Amount: 5000, Currency: "EUR", PaymentMethod: "pm_card_visa", IdempotencyKey: "k1"}

	first, err := g.Charge(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, "fake_pi_000001", first.TransactionID)

	replay, err := g.Charge(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, first, replay)

	req.PaymentMethod = DeclinedPaymentMethod
	_, err = g.Charge(ctx, req)
	assert.Equal(t, domain.KindValidation, domain.KindOf(err))

	require.NoError(t, g.Refund(ctx, first.TransactionID))
	assert.True(t, g.Refunded(first.TransactionID))
	assert.Error(t, g.Refund(ctx, "fake_pi_999999"))
}

func TestStripeGateway_Charge(t *testing.T) {
	intents := &MockIntents{}
	g := &StripeGateway{intents: intents, refunds: &MockRefunds{}}

	intents.On("New", mock.MatchedBy(func(p *stripe.PaymentIntentParams) bool {
		return *p.Amount == 5000 && *p.Currency == "eur" && *p.Confirm && *p.IdempotencyKey == "topup-1"
	})).Return(&stripe.PaymentIntent{ID: "pi_123", Status: stripe.PaymentIntentStatusSucceeded}, nil)

	res, err := g.Charge(context.Background(), ChargeRequest{UserID: uuid.New(), Amount: 5000, Currency: "EUR", PaymentMethod: "pm_card_visa", IdempotencyKey: "topup-1"})
	require.NoError(t, err)
	assert.Equal(t, "pi_123", res.TransactionID)
	intents.AssertExpectations(t)
}

func TestStripeGateway_ChargeFailures(t *testing.T) {
	tests := []struct {
		name   string
		intent *stripe.PaymentIntent
		err    error
		kind   domain.ErrorKind
	}{
		{name: "card declined", err: &stripe.Error{Type: stripe.ErrorTypeCard, Msg: "Your card was declined."}, kind: domain.KindValidation},
		{name: "provider down", err: errors.New("connection reset"), kind: domain.KindFatal},
		{name: "requires action", intent: &stripe.PaymentIntent{ID: "pi_1", Status: stripe.PaymentIntentStatusRequiresAction}, kind: domain.KindValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			intents := &MockIntents{}
			g := &StripeGateway{intents: intents, refunds: &MockRefunds{}}
			if tt.intent != nil {
				intents.On("New", mock.Anything).Return(tt.intent, nil)
			} else {
				intents.On("New", mock.Anything).Return(nil, tt.err)
			}

			_, err := g.Charge(context.Background(), ChargeRequest{Amount: 100, Currency: "EUR", PaymentMethod: "pm_card_visa"})
			assert.Equal(t, tt.kind, domain.KindOf(err))
		})
	}
}

func TestStripeGateway_Refund(t *testing.T) {
	refunds := &MockRefunds{}
	g := &StripeGateway{intents: &MockIntents{}, refunds: refunds}

	refunds.On("New", mock.MatchedBy(func(p *stripe.RefundParams) bool {
		return *p.PaymentIntent == "pi_123"
	})).Return(&stripe.Refund{ID: "re_1"}, nil).Once()
	refunds.On("New", mock.Anything).Return(nil, errors.New("boom"))

	assert.NoError(t, g.Refund(context.Background(), "pi_123"))
	assert.Error(t, g.Refund(context.Background(), "pi_456"))
}
