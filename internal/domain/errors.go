package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNoCredits           = errors.New("no credits available")
	ErrMissingDeviceID     = errors.New("missing device identifier")
	ErrInvalidSession      = errors.New("invalid session")
	ErrIntegrity           = errors.New("payment integrity check failed")
	ErrUpstream            = errors.New("upstream provider failure")
	ErrPaymentNotSucceeded = errors.New("payment has not succeeded")
	ErrInvalidQuantity     = errors.New("invalid credit quantity")
	ErrInvalidRequest      = errors.New("invalid request")
	ErrUnknownAction       = errors.New("unknown action")
	ErrRevocationDisabled  = errors.New("session revocation is disabled")
	ErrPaymentNotFound     = errors.New("payment record not found")

	// ErrTxConflict is returned by a ledger store when a concurrent writer
	// committed first; the transaction may be retried.
	ErrTxConflict = errors.New("ledger transaction conflict")
)

// IntegrityError carries the detailed reason a payment was rejected.
// The reason is for logs only and must not be sent to clients.
type IntegrityError struct {
	TransactionID TransactionID
	Reason        string
}

func (e *IntegrityError) Error() string {
	return fmt.Sprintf("payment %s rejected: %s", e.TransactionID, e.Reason)
}

func (e *IntegrityError) Is(target error) bool {
	return target == ErrIntegrity
}

type UpstreamKind string

const (
	UpstreamTransient   UpstreamKind = "transient"
	UpstreamMalformed   UpstreamKind = "malformed"
	UpstreamRateLimited UpstreamKind = "rate_limited"
)

type UpstreamError struct {
	Provider string
	Kind     UpstreamKind
	Err      error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%s %s failure: %v", e.Provider, e.Kind, e.Err)
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

func (e *UpstreamError) Is(target error) bool {
	return target == ErrUpstream
}

// Retryable reports whether the caller may retry the same request.
func (e *UpstreamError) Retryable() bool {
	return e.Kind != UpstreamMalformed
}
