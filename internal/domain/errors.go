package domain

import (
	"errors"
	"fmt"
	"strings"
)

type ErrorKind string

const (
	KindValidation        ErrorKind = "VALIDATION_ERROR"
	KindNotFound          ErrorKind = "NOT_FOUND"
	KindForbidden         ErrorKind = "FORBIDDEN"
	KindSeatConflict      ErrorKind = "SEAT_CONFLICT"
	KindInsufficientFunds ErrorKind = "INSUFFICIENT_FUNDS"
	KindInvalidState      ErrorKind = "INVALID_STATE"
	KindFatal             ErrorKind = "FATAL"
)

// Error is a classified engine error. Err, when set, is an internal cause that is
// logged but never shown to clients.
type Error struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

func Validation(format string, args ...any) error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

func NotFound(format string, args ...any) error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

func Forbidden(format string, args ...any) error {
	return &Error{Kind: KindForbidden, Message: fmt.Sprintf(format, args...)}
}

func InvalidState(format string, args ...any) error {
	return &Error{Kind: KindInvalidState, Message: fmt.Sprintf(format, args...)}
}

func Fatal(message string, cause error) error {
	return &Error{Kind: KindFatal, Message: message, Err: cause}
}

type SeatConflictError struct {
	FlightID int64
	Seats    []string
}

func (e *SeatConflictError) Error() string {
	return fmt.Sprintf("seats unavailable on flight %d: %s", e.FlightID, strings.Join(e.Seats, ", "))
}

type InsufficientFundsError struct {
	Required  int64
	Available int64
}

func (e *InsufficientFundsError) Error() string {
	return fmt.Sprintf("insufficient wallet balance: required %d, available %d", e.Required, e.Available)
}

// KindOf classifies err. Anything unclassified is treated as fatal.
func KindOf(err error) ErrorKind {
	if err == nil {
		return ""
	}
	var seatErr *SeatConflictError
	if errors.As(err, &seatErr) {
		return KindSeatConflict
	}
	var fundsErr *InsufficientFundsError
	if errors.As(err, &fundsErr) {
		return KindInsufficientFunds
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindFatal
}

func IsKind(err error, kind ErrorKind) bool {
	return KindOf(err) == kind
}
