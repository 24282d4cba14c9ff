package models

import "time"

// Notification is an in-app alert row delivered to a user.
type Notification struct {
	ID         string    `db:"id" json:"id"`
	UserID     string    `db:"user_id" json:"user_id"`
	Title      string    `db:"title" json:"title"`
	Message    string    `db:"message" json:"message"`
	Type       string    `db:"type" json:"type"`
	Read       bool      `db:"read" json:"read"`
	EntityType string    `db:"entity_type" json:"entity_type"`
	EntityID   string    `db:"entity_id" json:"entity_id"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

// AlertLedgerEntry records that a given alert tier has been raised for a
/// document. The (document, tier, day bucket) key makes the sweep idempotent:
// inserting an existing key is a no-op and the alert is not re-emitted.
type AlertLedgerEntry struct {
	ID         string    `db:"id" json:"id"`
	DocumentID string    `db:"document_id" json:"document_id"`
	Tier       string    `db:"tier" json:"tier"`
	DayBucket  time.Time `db:"day_bucket" json:"day_bucket"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}
