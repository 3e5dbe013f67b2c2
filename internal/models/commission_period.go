package models

import (
	"time"

	"github.com/google/uuid"
)

// Commission period states. Open periods accept invoices as they arrive;
// closed periods are frozen snapshots; paid marks the reseller compensated.
const (
	CommissionPeriodOpen   = "open"
	CommissionPeriodClosed = "closed"
	CommissionPeriodPaid   = "paid"
)

// CommissionPeriod is one reseller's billing-period revenue snapshot.
// Invoices are stamped with the period id at record time, so a late webhook
// arriving after close rolls into the next open period instead of mutating a
// frozen one.
type CommissionPeriod struct {
	ID              uuid.UUID  `json:"id" db:"id"`
	ResellerID      uuid.UUID  `json:"reseller_id" db:"reseller_id"`
	PeriodKey       string     `json:"period_key" db:"period_key"`
	PeriodStart     time.Time  `json:"period_start" db:"period_start"`
	PeriodEnd       time.Time  `json:"period_end" db:"period_end"`
	Status          string     `json:"status" db:"status"`
	RevenueCents    int64      `json:"revenue_cents" db:"revenue_cents"`
	CommissionCents int64      `json:"commission_cents" db:"commission_cents"`
	RateApplied     float64    `json:"rate_applied" db:"rate_applied"`
	StatementObject *string    `json:"statement_object" db:"statement_object"`
	ClosedAt        *time.Time `json:"closed_at" db:"closed_at"`
	PaidAt          *time.Time `json:"paid_at" db:"paid_at"`
	CreatedAt       time.Time  `json:"created_at" db:"created_at"`
}
