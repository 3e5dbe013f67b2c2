package models

import (
	"time"

	"github.com/google/uuid"
)

// Plan is an immutable catalog entry. Price and limit changes apply only to
// new subscriptions; rows referenced by a live subscription are never mutated.
type Plan struct {
	ID           uuid.UUID `json:"id" db:"id"`
	Name         string    `json:"name" db:"name"`
	PriceCents   int64     `json:"price_cents" db:"price_cents"`
	MailboxLimit int       `json:"mailbox_limit" db:"mailbox_limit"`
	DomainLimit  int       `json:"domain_limit" db:"domain_limit"`
	StorageBytes int64     `json:"storage_bytes" db:"storage_bytes"`
	Active       bool      `json:"active" db:"active"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}
