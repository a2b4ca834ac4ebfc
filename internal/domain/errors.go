package domain

import (
	"errors"
	"fmt"
)

// Common errors
var (
	ErrNotFound         = errors.New("record not found")
	ErrInvalidDuration  = errors.New("invalid subscription duration")
	ErrAuthExpired      = errors.New("session expired, re-authentication required")
	ErrResumeNotAllowed = errors.New("order cannot be resumed: not in pending state")
	ErrCancelNotAllowed = errors.New("order cannot be cancelled: not in pending state")
	ErrQuoteConsumed    = errors.New("stored quote already consumed or expired")
)

// OrderCreationError indicates the backend rejected an order creation request
// (invalid package, amount mismatch, etc). The raw backend message is kept for
// the user-facing error path.
type OrderCreationError struct {
	Reason string
	Err    error
}

func (e *OrderCreationError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("order creation rejected: %s", e.Reason)
	}
	return "order creation rejected"
}

func (e *OrderCreationError) Unwrap() error { return e.Err }

// VerificationError indicates a best-effort payment verification failed.
// It is logged and swallowed by callers; the backend webhook or status
// polling settles the order independently.
type VerificationError struct {
	OrderID string
	Err     error
}

func (e *VerificationError) Error() string {
	return fmt.Sprintf("payment verification failed for order %s: %v", e.OrderID, e.Err)
}

func (e *VerificationError) Unwrap() error { return e.Err }

// NetworkError indicates a transport-level failure talking to a collaborator.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network failure during %s: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }
