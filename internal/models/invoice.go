package models

import (
	"time"

	"github.com/google/uuid"
)

// Invoice statuses. Rows with status paid or failed are final and never
// updated in place.
const (
	InvoicePending  = "pending"
	InvoicePaid     = "paid"
	InvoiceFailed   = "failed"
	InvoiceCanceled = "canceled"
)

// Invoice is an append-only ledger row reconciled from payment-processor
// webhooks. GatewayInvoiceID is unique and serves as the idempotency key for
// at-least-once webhook delivery.
type Invoice struct {
	ID                 uuid.UUID  `json:"id" db:"id"`
	AccountID          uuid.UUID  `json:"account_id" db:"account_id"`
	GatewayInvoiceID   string     `json:"gateway_invoice_id" db:"gateway_invoice_id"`
	AmountCents        int64      `json:"amount_cents" db:"amount_cents"`
	Status             string     `json:"status" db:"status"`
	PeriodStart        time.Time  `json:"period_start" db:"period_start"`
	PeriodEnd          time.Time  `json:"period_end" db:"period_end"`
	PaidAt             *time.Time `json:"paid_at" db:"paid_at"`
	CommissionPeriodID *uuid.UUID `json:"commission_period_id" db:"commission_period_id"`
	CreatedAt          time.Time  `json:"created_at" db:"created_at"`
}
