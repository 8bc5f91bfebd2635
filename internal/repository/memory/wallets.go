package memory

import (
	"context"
	"sync"
	"time"

	"github.com/Domenick1991/flightbooking/internal/domain"
	"github.com/Domenick1991/flightbooking/internal/repository"
	"github.com/google/uuid"
)

type wallet struct {
	mu      sync.Mutex
	balance int64
}

type Wallets struct {
	mu      sync.RWMutex
	wallets map[uuid.UUID]*wallet

	logMu sync.Mutex
	log   []domain.WalletTransaction
}

func NewWallets() *Wallets {
	return &Wallets{wallets: make(map[uuid.UUID]*wallet)}
}

func (w *Wallets) Open(userID uuid.UUID, balance int64) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.wallets[userID] = &wallet{balance: balance}
}

func (w *Wallets) get(userID uuid.UUID) (*wallet, error) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	wl, ok := w.wallets[userID]
	if !ok {
		return nil, domain.NotFound("user %s not found", userID)
	}
	return wl, nil
}

func (w *Wallets) Balance(_ context.Context, userID uuid.UUID) (int64, error) {
	wl, err := w.get(userID)
	if err != nil {
		return 0, err
	}
	wl.mu.Lock()
	defer wl.mu.Unlock()
	return wl.balance, nil
}

func (w *Wallets) Debit(_ context.Context, userID uuid.UUID, amount int64, reference string) (int64, error) {
	if amount < 0 {
		return 0, domain.Validation("debit amount must not be negative")
	}
	wl, err := w.get(userID)
	if err != nil {
		return 0, err
	}

	wl.mu.Lock()
	defer wl.mu.Unlock()
	if wl.balance < amount {
		return 0, &domain.InsufficientFundsError{Required: amount, Available: wl.balance}
	}
	wl.balance -= amount
	w.record(userID, domain.WalletDebit, amount, wl.balance, reference)
	return wl.balance, nil
}

func (w *Wallets) Credit(_ context.Context, userID uuid.UUID, amount int64, reference string) (int64, error) {
	return w.increase(userID, domain.WalletCredit, amount, reference)
}

func (w *Wallets) TopUp(_ context.Context, userID uuid.UUID, amount int64, reference string) (int64, error) {
	if amount <= 0 {
		return 0, domain.Validation("top-up amount must be positive")
	}
	return w.increase(userID, domain.WalletTopUp, amount, reference)
}

func (w *Wallets) increase(userID uuid.UUID, kind domain.WalletTransactionKind, amount int64, reference string) (int64, error) {
	wl, err := w.get(userID)
	if err != nil {
		return 0, err
	}
	wl.mu.Lock()
	defer wl.mu.Unlock()
	wl.balance += amount
	w.record(userID, kind, amount, wl.balance, reference)
	return wl.balance, nil
}

func (w *Wallets) record(userID uuid.UUID, kind domain.WalletTransactionKind, amount, balance int64, reference string) {
	w.logMu.Lock()
	defer w.logMu.Unlock()
	w.log = append(w.log, domain.WalletTransaction{
		ID:           uuid.New(),
		UserID:       userID,
		Kind:         kind,
		Amount:       amount,
		BalanceAfter: balance,
		Reference:    reference,
		CreatedAt:    time.Now(),
	})
}

// Transactions returns the audit trail of a user's wallet, oldest first.
func (w *Wallets) Transactions(userID uuid.UUID) []domain.WalletTransaction {
	w.logMu.Lock()
	defer w.logMu.Unlock()
	out := make([]domain.WalletTransaction, 0)
	for _, t := range w.log {
		if t.UserID == userID {
			out = append(out, t)
		}
	}
	return out
}

var _ repository.WalletLedger = (*Wallets)(nil)
