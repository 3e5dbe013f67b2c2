package services

import (
	"errors"
	"fmt"
)

// Error taxonomy. Validation and conflict errors return synchronously to the
// caller and are never retried; gateway errors are retried at the adapter
// boundary before surfacing; signature failures are dropped after logging.

type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

type ConflictError struct {
	Msg string
}

func (e *ConflictError) Error() string { return e.Msg }

type NotFoundError struct {
	Resource string
}

func (e *NotFoundError) Error() string { return e.Resource + " not found" }

// GatewayError wraps a payment-processor failure after the adapter's retry
// budget is exhausted. Local state is never mutated before the wrapped call
// succeeded.
type GatewayError struct {
	Op  string
	Err error
}

func (e *GatewayError) Error() string { return fmt.Sprintf("payment gateway %s: %v", e.Op, e.Err) }
func (e *GatewayError) Unwrap() error { return e.Err }

// ErrSignatureInvalid means webhook authenticity could not be established.
// The event is never processed.
var ErrSignatureInvalid = errors.New("webhook signature invalid")

var (
	ErrInvalidPlan          = &ValidationError{Msg: "plan does not exist or is not active"}
	ErrAlreadySubscribed    = &ConflictError{Msg: "account already has a live subscription"}
	ErrNoActiveSubscription = &NotFoundError{Resource: "active subscription"}
	ErrPeriodNotOpen        = &ConflictError{Msg: "commission period is not open"}
	ErrPeriodNotClosed      = &ConflictError{Msg: "commission period is not closed"}
)
