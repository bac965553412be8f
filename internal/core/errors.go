package core

import (
	"context"
	"errors"
	"fmt"
)

// Sentinel kinds. Every failure returned by the ledger wraps exactly one of
// these, so callers can branch with errors.Is.
var (
	ErrInvalidInput     = errors.New("invalid input")
	ErrInvalidQuantity  = errors.New("invalid quantity")
	ErrInvalidAmount    = errors.New("invalid amount")
	ErrInvalidTarget    = errors.New("invalid payment target")
	ErrInvalidPeriod    = errors.New("invalid period")
	ErrRateNotFound     = errors.New("rate not found")
	ErrEmptyTransaction = errors.New("empty transaction")
	ErrOverpayment      = errors.New("overpayment")
	ErrNotFound         = errors.New("not found")
	ErrConflict         = errors.New("conflict")
	ErrStoreTimeout     = errors.New("store timeout")
	ErrStoreConflict    = errors.New("store conflict")
)

var kindCodes = map[error]string{
	ErrInvalidInput:     "INVALID_INPUT",
	ErrInvalidQuantity:  "INVALID_QUANTITY",
	ErrInvalidAmount:    "INVALID_AMOUNT",
	ErrInvalidTarget:    "INVALID_TARGET",
	ErrInvalidPeriod:    "INVALID_PERIOD",
	ErrRateNotFound:     "RATE_NOT_FOUND",
	ErrEmptyTransaction: "EMPTY_TRANSACTION",
	ErrOverpayment:      "OVERPAYMENT",
	ErrNotFound:         "NOT_FOUND",
	ErrConflict:         "CONFLICT",
	ErrStoreTimeout:     "STORE_TIMEOUT",
	ErrStoreConflict:    "STORE_CONFLICT",
}

// Error is the structured failure returned across the ledger boundary.
type Error struct {
	// Kind is one of the Err* sentinels above.
	Kind error
	// Op names the operation that failed, e.g. "create transaction".
	Op string
	// Message is the human-readable detail.
	Message string
	// Err is an optional underlying cause.
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := e.Kind.Error()
	if e.Message != "" {
		msg = e.Message
	}
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap exposes both the kind and the cause to errors.Is / errors.As.
func (e *Error) Unwrap() []error {
	if e.Err != nil {
		return []error{e.Kind, e.Err}
	}
	return []error{e.Kind}
}

// Code returns the machine-readable code of the error's kind.
func (e *Error) Code() string {
	return kindCodes[e.Kind]
}

// NewError builds a ledger error of the given kind. Store implementations use
// it to report ErrNotFound and ErrConflict.
func NewError(kind error, op, format string, args ...any) *Error {
	return &Error{Kind: kind, Op: op, Message: fmt.Sprintf(format, args...)}
}

func newError(kind error, op, format string, args ...any) *Error {
	return NewError(kind, op, format, args...)
}

// WrapStoreError wraps a store failure as kind, keeping the cause.
func WrapStoreError(kind error, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// KindOf returns the code of the first ledger kind found in err's chain, or
// "INTERNAL" for anything else.
func KindOf(err error) string {
	var le *Error
	if errors.As(err, &le) {
		if code := le.Code(); code != "" {
			return code
		}
	}
	for kind, code := range kindCodes {
		if errors.Is(err, kind) {
			return code
		}
	}
	return "INTERNAL"
}

// IsRetryable reports whether the whole operation may be retried. Only store
// contention and timeouts qualify.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrStoreTimeout) || errors.Is(err, ErrStoreConflict)
}

// storeFailure normalizes an error coming out of a store call. Ledger errors
// pass through; a deadline hit on ctx becomes ErrStoreTimeout; anything else is
// wrapped with op for context.
func storeFailure(ctx context.Context, op string, err error) error {
	var le *Error
	if errors.As(err, &le) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return WrapStoreError(ErrStoreTimeout, op, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}
