package models

import (
	"time"

	"github.com/google/uuid"
)

// Subscription lifecycle states. At most one row per account may be in a
// live state (pending_payment, active, past_due, canceling) at any time.
const (
	SubscriptionPendingPayment = "pending_payment"
	SubscriptionActive         = "active"
	SubscriptionPastDue        = "past_due"
	SubscriptionCanceling      = "canceling"
	SubscriptionCanceled       = "canceled"
)

// CancellationPaymentFailure marks a subscription canceled because the retry
// budget for failed renewal charges was exhausted.
const CancellationPaymentFailure = "payment_failure"

type Subscription struct {
	ID                    uuid.UUID `json:"id" db:"id"`
	AccountID             uuid.UUID `json:"account_id" db:"account_id"`
	PlanID                uuid.UUID `json:"plan_id" db:"plan_id"`
	GatewaySubscriptionID *string   `json:"gateway_subscription_id" db:"gateway_subscription_id"`
	Status                string    `json:"status" db:"status"`
	CurrentPeriodStart    time.Time `json:"current_period_start" db:"current_period_start"`
	CurrentPeriodEnd      time.Time `json:"current_period_end" db:"current_period_end"`
	CancelAtPeriodEnd     bool      `json:"cancel_at_period_end" db:"cancel_at_period_end"`
	CancellationReason    *string   `json:"cancellation_reason" db:"cancellation_reason"`
	CreatedAt             time.Time `json:"created_at" db:"created_at"`
	UpdatedAt             time.Time `json:"updated_at" db:"updated_at"`
}

// Live reports whether the subscription occupies the account's single live
// slot.
func (s *Subscription) Live() bool {
	switch s.Status {
	case SubscriptionPendingPayment, SubscriptionActive, SubscriptionPastDue, SubscriptionCanceling:
		return true
	}
	return false
}
