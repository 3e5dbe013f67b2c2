package models

import (
	"time"

	"github.com/google/uuid"
)

// ResellerSettings holds branding and the hard tenant caps enforced when a
// reseller's customer provisions domains or mailboxes. One row per reseller
// account.
type ResellerSettings struct {
	AccountID             uuid.UUID `json:"account_id" db:"account_id"`
	BrandName             string    `json:"brand_name" db:"brand_name"`
	SupportEmail          string    `json:"support_email" db:"support_email"`
	MaxCustomers          int       `json:"max_customers" db:"max_customers"`
	MaxDomainsPerCustomer int       `json:"max_domains_per_customer" db:"max_domains_per_customer"`
	MaxMailboxesPerDomain int       `json:"max_mailboxes_per_domain" db:"max_mailboxes_per_domain"`
	CreatedAt             time.Time `json:"created_at" db:"created_at"`
	UpdatedAt             time.Time `json:"updated_at" db:"updated_at"`
}

// CommissionTier is one step of a reseller's rate table. MinimumRevenueCents
// values are distinct per reseller; the effective tier for a revenue figure
// is the one with the greatest minimum not exceeding it.
type CommissionTier struct {
	ID                  uuid.UUID `json:"id" db:"id"`
	ResellerID          uuid.UUID `json:"reseller_id" db:"reseller_id"`
	MinimumRevenueCents int64     `json:"minimum_revenue_cents" db:"minimum_revenue_cents"`
	CommissionRate      float64   `json:"commission_rate" db:"commission_rate"`
	Active              bool      `json:"active" db:"active"`
	CreatedAt           time.Time `json:"created_at" db:"created_at"`
}
