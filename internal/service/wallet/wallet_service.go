package wallet

import (
	"context"
	"strings"

	"github.com/Domenick1991/flightbooking/internal/domain"
	"github.com/Domenick1991/flightbooking/internal/metrics"
	"github.com/Domenick1991/flightbooking/internal/payment"
	"github.com/Domenick1991/flightbooking/internal/repository"
	"go.uber.org/zap"
)

// MaxTopUp bounds a single top-up, in minor units.
const MaxTopUp = int64(1_000_000)

type WalletUseCase interface {
	Balance(ctx context.Context, actor domain.Actor) (int64, error)
	TopUp(ctx context.Context, input TopUpInput) (*TopUpResult, error)
}

type TopUpInput struct {
	Actor          domain.Actor
	Amount         int64  `json:"amount"`
	PaymentMethod  string `json:"payment_method"`
	IdempotencyKey string `json:"-"`
}

type TopUpResult struct {
	TransactionID string `json:"transaction_id"`
	Balance       int64  `json:"balance"`
	Currency      string `json:"currency"`
}

type WalletService struct {
	ledger   repository.WalletLedger
	gateway  payment.Gateway
	currency string
	log      *zap.Logger
}

func NewWalletService(ledger repository.WalletLedger, gateway payment.Gateway, currency string, log *zap.Logger) *WalletService {
	return &WalletService{ledger: ledger, gateway: gateway, currency: currency, log: log}
}

func (s *WalletService) Balance(ctx context.Context, actor domain.Actor) (int64, error) {
	return s.ledger.Balance(ctx, actor.UserID)
}

// TopUp charges the gateway first and credits the wallet only on success. If the
// credit fails the charge is refunded.
func (s *WalletService) TopUp(ctx context.Context, input TopUpInput) (*TopUpResult, error) {
	if input.Amount <= 0 || input.Amount > MaxTopUp {
		return nil, domain.Validation("amount must be between 1 and %d", MaxTopUp)
	}
	if strings.TrimSpace(input.PaymentMethod) == "" {
		return nil, domain.Validation("payment_method is required")
	}
	if _, err := s.ledger.Balance(ctx, input.Actor.UserID); err != nil {
		return nil, err
	}

	key := input.IdempotencyKey
	if key != "" {
		key = "topup-" + input.Actor.UserID.String() + "-" + key
	}
	charge, err := s.gateway.Charge(ctx, payment.ChargeRequest{
		UserID:         input.Actor.UserID,
		Amount:         input.Amount,
		Currency:       s.currency,
		PaymentMethod:  input.PaymentMethod,
		IdempotencyKey: key,
	})
	if err != nil {
		metrics.IncTopUp("declined")
		return nil, err
	}

	balance, err := s.ledger.TopUp(ctx, input.Actor.UserID, input.Amount, charge.TransactionID)
	if err != nil {
		metrics.IncTopUp("failed")
		if rerr := s.gateway.Refund(ctx, charge.TransactionID); rerr != nil {
			s.log.Error("top-up refund failed",
				zap.String("transaction_id", charge.TransactionID),
				zap.String("user_id", input.Actor.UserID.String()),
				zap.Error(rerr))
		}
		return nil, err
	}

	metrics.IncTopUp("succeeded")
	s.log.Info("wallet topped up",
		zap.String("user_id", input.Actor.UserID.String()),
		zap.Int64("amount", input.Amount),
		zap.String("transaction_id", charge.TransactionID))
	return &TopUpResult{TransactionID: charge.TransactionID, Balance: balance, Currency: s.currency}, nil
}

var _ WalletUseCase = (*WalletService)(nil)
