package models

import (
	"time"

	"github.com/google/uuid"
)

// Referral statuses. Transitions only move forward: pending -> completed or
// pending -> expired. A referral is never re-opened.
const (
	ReferralPending   = "pending"
	ReferralCompleted = "completed"
	ReferralExpired   = "expired"
)

type Referral struct {
	ID          uuid.UUID  `json:"id" db:"id"`
	ReferrerID  uuid.UUID  `json:"referrer_id" db:"referrer_id"`
	ReferredID  uuid.UUID  `json:"referred_id" db:"referred_id"`
	Status      string     `json:"status" db:"status"`
	RewardCents *int64     `json:"reward_cents" db:"reward_cents"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
	CompletedAt *time.Time `json:"completed_at" db:"completed_at"`
}

// ReferralStats aggregates a referrer's results for the query surface.
type ReferralStats struct {
	TotalReferred    int   `json:"total_referred"`
	Completed        int   `json:"completed"`
	Pending          int   `json:"pending"`
	TotalEarnedCents int64 `json:"total_earned_cents"`
}

// AccountCredit is an append-only reward issued to a referrer. ReferralID is
// unique so a reward can never be issued twice for the same referral.
type AccountCredit struct {
	ID          uuid.UUID `json:"id" db:"id"`
	AccountID   uuid.UUID `json:"account_id" db:"account_id"`
	ReferralID  uuid.UUID `json:"referral_id" db:"referral_id"`
	AmountCents int64     `json:"amount_cents" db:"amount_cents"`
	Reason      string    `json:"reason" db:"reason"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}
