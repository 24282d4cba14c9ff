package compliance

import (
	"fmt"
	"time"

	"github.com/manpowerhq/compliance-api/internal/models"
)

// PreExpiryTiers are the fixed day thresholds before expiry at which a
// document raises escalating alerts. Each tier fires once per document
// instance; renewal creates a new instance and therefore a fresh cycle.
var PreExpiryTiers = []int{90, 60, 30, 15, 7}

const (
	TierGrace   = "grace"
	TierPenalty = "penalty"
)

// AlertTier is one alert that is due right now for a document.
type AlertTier struct {
	DocumentID string    `json:"document_id"`
	Tier       string    `json:"tier"`
	DayBucket  time.Time `json:"day_bucket"`
	Message    string    `json:"message"`
}

// RaisedSet is the prior tier-ledger state for one evaluation pass: the set
// of (document, tier, day) keys already recorded.
type RaisedSet map[string]struct{}

// TierKey builds the ledger key for a tier occurrence. Pre-expiry tiers use
// the zero day so they fire once per cycle; daily tiers bucket by day.
func TierKey(documentID, tier string, day time.Time) string {
	return fmt.Sprintf("%s|%s|%s", documentID, tier, Day(day).Format("2006-01-02"))
}

// Has reports whether the key is already recorded.
func (r RaisedSet) Has(documentID, tier string, day time.Time) bool {
	_, ok := r[TierKey(documentID, tier, day)]
	return ok
}

// Add records a key, mirroring a ledger insert.
func (r RaisedSet) Add(documentID, tier string, day time.Time) {
	r[TierKey(documentID, tier, day)] = struct{}{}
}

// PreExpiryTierName renders the ledger tier name for a pre-expiry threshold.
func PreExpiryTierName(days int) string {
	return fmt.Sprintf("pre_%d", days)
}

// DueAlerts determines which alert tiers are due for a document at the given
// day, excluding tiers already present in the prior ledger state. Running it
// twice against the same day and ledger snapshot yields nothing the second
// time; persistence of newly returned tiers is the caller's job.
func DueAlerts(doc models.DocumentRecord, docType models.DocumentType, rule EffectiveRule, state State, fine FineResult, asOf time.Time, prior RaisedSet) []AlertTier {
	if !docType.HasExpiry || doc.ExpiryDate == nil {
		return nil
	}

	var due []AlertTier
	day := Day(asOf)
	daysUntil := DaysBetween(asOf, *doc.ExpiryDate)

	// Cycle tiers: all crossed thresholds fire on the first run, after that
	// only newly crossed ones since lower tiers are already in the ledger.
	for _, threshold := range PreExpiryTiers {
		if daysUntil > threshold {
			continue
		}
		tier := PreExpiryTierName(threshold)
		if prior.Has(doc.ID, tier, time.Time{}) {
			continue
		}
		due = append(due, AlertTier{
			DocumentID: doc.ID,
			Tier:       tier,
			DayBucket:  Day(time.Time{}),
			Message:    fmt.Sprintf("%s expires in %d days", docType.DisplayName, daysUntil),
		})
	}

	switch state {
	case StateInGrace:
		if !prior.Has(doc.ID, TierGrace, day) {
			due = append(due, AlertTier{
				DocumentID: doc.ID,
				Tier:       TierGrace,
				DayBucket:  day,
				Message:    fmt.Sprintf("%s expired, %d grace days left", docType.DisplayName, fine.GraceDaysRemaining),
			})
		}
	case StatePenaltyActive:
		if !prior.Has(doc.ID, TierPenalty, day) {
			due = append(due, AlertTier{
				DocumentID: doc.ID,
				Tier:       TierPenalty,
				DayBucket:  day,
				Message:    fmt.Sprintf("%s fine accruing, AED %s so far", docType.DisplayName, fine.Amount.StringFixed(2)),
			})
		}
	}

	return due
}
