package models

import (
	"time"

	"github.com/google/uuid"
)

// Account roles. A customer may optionally belong to exactly one reseller.
const (
	RoleCustomer = "customer"
	RoleAdmin    = "admin"
	RoleReseller = "reseller"
)

type Account struct {
	ID           uuid.UUID  `json:"id" db:"id"`
	Email        string     `json:"email" db:"email"`
	Name         string     `json:"name" db:"name"`
	Role         string     `json:"role" db:"role"`
	ResellerID   *uuid.UUID `json:"reseller_id" db:"reseller_id"`
	ReferralCode string     `json:"referral_code" db:"referral_code"`
	ReferredBy   *string    `json:"referred_by" db:"referred_by"`
	CreatedAt    time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at" db:"updated_at"`
}
