package domain

import (
	"time"

	"github.com/google/uuid"
)

type WalletTransactionKind string

const (
	WalletDebit  WalletTransactionKind = "debit"
	WalletCredit WalletTransactionKind = "credit"
	WalletTopUp  WalletTransactionKind = "topup"
)

type WalletTransaction struct {
	ID           uuid.UUID             `json:"id"`
	UserID       uuid.UUID             `json:"user_id"`
	Kind         WalletTransactionKind `json:"kind"`
	Amount       int64                 `json:"amount"`
	BalanceAfter int64                 `json:"balance_after"`
	Reference    string                `json:"reference,omitempty"`
	CreatedAt    time.Time             `json:"created_at"`
}

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// Actor is the authenticated caller of a booking operation.
type Actor struct {
	UserID uuid.UUID
	Role   string
}

func (a Actor) IsAdmin() bool {
	return a.Role == RoleAdmin
}

func (a Actor) CanAccess(owner uuid.UUID) bool {
	return a.IsAdmin() || a.UserID == owner
}
