package compliance

import (
	"time"

	"github.com/manpowerhq/compliance-api/internal/models"
)

// State is the discrete lifecycle state of one document at one as-of day.
type State string

const (
	StateIncomplete    State = "incomplete"
	StateValid         State = "valid"
	StateExpiringSoon  State = "expiring_soon"
	StateInGrace       State = "in_grace"
	StatePenaltyActive State = "penalty_active"
	// StateRuleMissing flags a date-bearing document whose type has no
	// resolvable rule. It is a reporting state, not a lifecycle one.
	StateRuleMissing State = "rule_missing"
)

// Priority orders states for aggregation; higher is worse.
func (s State) Priority() int {
	switch s {
	case StatePenaltyActive:
		return 5
	case StateInGrace:
		return 4
	case StateExpiringSoon:
		return 3
	case StateIncomplete:
		return 2
	case StateRuleMissing:
		return 1
	default:
		return 0
	}
}

// DefaultExpiringSoonDays is the window before expiry that flags a document
// as expiring soon.
const DefaultExpiringSoonDays = 30

// EvaluateLifecycle derives the lifecycle state for one document. asOf is the
// caller's evaluation day; the engine never reads the wall clock, so any
// historical day can be replayed.
//
// Completeness dominates: a document missing required fields is Incomplete no
// matter what its dates say. Types without an expiry concept are only ever
// Incomplete or Valid.
func EvaluateLifecycle(doc models.DocumentRecord, docType models.DocumentType, rule EffectiveRule, asOf time.Time, expiringSoonDays int) State {
	if expiringSoonDays <= 0 {
		expiringSoonDays = DefaultExpiringSoonDays
	}

	if !IsComplete(doc, docType) {
		return StateIncomplete
	}

	if !docType.HasExpiry {
		return StateValid
	}

	daysOverdue := DaysBetween(*doc.ExpiryDate, asOf)
	switch {
	case daysOverdue > rule.GraceDays:
		return StatePenaltyActive
	case daysOverdue > 0:
		return StateInGrace
	case -daysOverdue <= expiringSoonDays:
		return StateExpiringSoon
	default:
		return StateValid
	}
}

// IsComplete checks that every field the catalog requires is populated and
// that the date pair is sane. Inverted or half-missing dates are treated as
// incompleteness, never as an evaluation error.
func IsComplete(doc models.DocumentRecord, docType models.DocumentType) bool {
	for _, field := range docType.RequiredFields {
		if doc.Fields[field] == "" {
			return false
		}
	}
	if !docType.HasExpiry {
		return true
	}
	if doc.ExpiryDate == nil || doc.IssueDate == nil {
		return false
	}
	if doc.ExpiryDate.Before(*doc.IssueDate) {
		return false
	}
	return true
}
