package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/Domenick1991/flightbooking/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PGWalletLedger struct {
	db *pgxpool.Pool
	tx *TxManager
}

func NewWalletLedger(db *pgxpool.Pool) *PGWalletLedger {
	return &PGWalletLedger{db: db, tx: NewTxManager(db)}
}

func (w *PGWalletLedger) Balance(ctx context.Context, userID uuid.UUID) (int64, error) {
	var balance int64
	err := conn(ctx, w.db).QueryRow(ctx, `SELECT wallet_balance FROM users WHERE id=$1`, userID).Scan(&balance)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, domain.NotFound("user %s not found", userID)
		}
		return 0, fmt.Errorf("get balance: %w", err)
	}
	return balance, nil
}

// Debit is a single conditional update; the balance check and the decrement cannot
// be separated by a concurrent writer.
func (w *PGWalletLedger) Debit(ctx context.Context, userID uuid.UUID, amount int64, reference string) (int64, error) {
	if amount < 0 {
		return 0, domain.Validation("debit amount must not be negative")
	}

	var balance int64
	err := w.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		q := conn(ctx, w.db)
		err := q.QueryRow(ctx, `UPDATE users SET wallet_balance = wallet_balance - $2, updated_at = now()
			WHERE id=$1 AND wallet_balance >= $2 RETURNING wallet_balance`, userID, amount).Scan(&balance)
		if errors.Is(err, pgx.ErrNoRows) {
			available, balErr := w.Balance(ctx, userID)
			if balErr != nil {
				return balErr
			}
			return &domain.InsufficientFundsError{Required: amount, Available: available}
		}
		if err != nil {
			return fmt.Errorf("debit wallet: %w", err)
		}
		return w.record(ctx, q, userID, domain.WalletDebit, amount, balance, reference)
	})
	if err != nil {
		return 0, err
	}
	return balance, nil
}

func (w *PGWalletLedger) Credit(ctx context.Context, userID uuid.UUID, amount int64, reference string) (int64, error) {
	return w.increase(ctx, userID, domain.WalletCredit, amount, reference)
}

func (w *PGWalletLedger) TopUp(ctx context.Context, userID uuid.UUID, amount int64, reference string) (int64, error) {
	if amount <= 0 {
		return 0, domain.Validation("top-up amount must be positive")
	}
	return w.increase(ctx, userID, domain.WalletTopUp, amount, reference)
}

func (w *PGWalletLedger) increase(ctx context.Context, userID uuid.UUID, kind domain.WalletTransactionKind, amount int64, reference string) (int64, error) {
	var balance int64
	err := w.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		q := conn(ctx, w.db)
		err := q.QueryRow(ctx, `UPDATE users SET wallet_balance = wallet_balance + $2, updated_at = now()
			WHERE id=$1 RETURNING wallet_balance`, userID, amount).Scan(&balance)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return domain.NotFound("user %s not found", userID)
			}
			return fmt.Errorf("%s wallet: %w", kind, err)
		}
		return w.record(ctx, q, userID, kind, amount, balance, reference)
	})
	if err != nil {
		return 0, err
	}
	return balance, nil
}

func (w *PGWalletLedger) record(ctx context.Context, q querier, userID uuid.UUID, kind domain.WalletTransactionKind, amount, balanceAfter int64, reference string) error {
	_, err := q.Exec(ctx, `INSERT INTO wallet_transactions (id, user_id, kind, amount, balance_after, reference, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, now())`, uuid.New(), userID, string(kind), amount, balanceAfter, reference)
	if err != nil {
		return fmt.Errorf("record wallet transaction: %w", err)
	}
	return nil
}

var _ WalletLedger = (*PGWalletLedger)(nil)
