package compliance

import (
	"fmt"
	"time"

	"github.com/manpowerhq/compliance-api/internal/models"
)

// WarningKind classifies a dependency violation.
type WarningKind string

const (
	// WarningMissingBlocker fires when the blocking document does not exist
	// at all for the employee.
	WarningMissingBlocker WarningKind = "missing_blocker"
	// WarningBlockerValidity fires when the blocking document exists but its
	// own validity window breaks the ordering constraint.
	WarningBlockerValidity WarningKind = "blocker_validity"
)

// DependencyWarning reports one violated ordering constraint between two
// documents of the same employee.
type DependencyWarning struct {
	Kind        WarningKind `json:"kind"`
	BlockerType string      `json:"blocker_type"`
	BlockedType string      `json:"blocked_type"`
	BlockerID   *string     `json:"blocker_id,omitempty"`
	BlockedID   *string     `json:"blocked_id,omitempty"`
	Reason      string      `json:"reason"`
}

// DefaultPassportMinMonths is the minimum passport validity required beyond a
// visa's expiry.
const DefaultPassportMinMonths = 6

// dependencyPair describes one hard-coded ordering constraint: the blocker
// document must remain valid for the blocked document's window, with an
// optional extra margin in months (passport rule).
type dependencyPair struct {
	blocker      string
	blocked      string
	marginMonths int
	description  string
}

func dependencyPairs(passportMinMonths int) []dependencyPair {
	if passportMinMonths <= 0 {
		passportMinMonths = DefaultPassportMinMonths
	}
	return []dependencyPair{
		{models.DocTypePassport, models.DocTypeVisa, passportMinMonths, "passport must stay valid at least %d months beyond the visa window"},
		{models.DocTypeHealthInsurance, models.DocTypeWorkPermit, 0, "health insurance must cover the work permit window"},
		{models.DocTypeILOE, models.DocTypeVisa, 0, "ILOE insurance must cover the visa window"},
		{models.DocTypeVisa, models.DocTypeNationalID, 0, "visa must stay valid for the national ID window"},
		{models.DocTypeMedicalFitness, models.DocTypeVisa, 0, "medical fitness certificate must cover the visa window"},
	}
}

// CheckDependencies evaluates the fixed constraint table over one employee's
// active documents. It never fails: an unresolvable pair degrades to a
// missing-blocker warning. Warnings are non-exclusive; several may fire for
// the same employee at once.
func CheckDependencies(docs []models.DocumentRecord, asOf time.Time, passportMinMonths int) []DependencyWarning {
	byType := make(map[string]models.DocumentRecord, len(docs))
	for _, doc := range docs {
		if doc.Active {
			byType[doc.TypeKey] = doc
		}
	}

	warnings := []DependencyWarning{}
	for _, pair := range dependencyPairs(passportMinMonths) {
		blocked, hasBlocked := byType[pair.blocked]
		if !hasBlocked {
			continue
		}

		blocker, hasBlocker := byType[pair.blocker]
		if !hasBlocker {
			warnings = append(warnings, DependencyWarning{
				Kind:        WarningMissingBlocker,
				BlockerType: pair.blocker,
				BlockedType: pair.blocked,
				BlockedID:   &blocked.ID,
				Reason:      fmt.Sprintf("%s is tracked but no %s exists for this employee", pair.blocked, pair.blocker),
			})
			continue
		}

		if blocker.ExpiryDate == nil {
			warnings = append(warnings, DependencyWarning{
				Kind:        WarningMissingBlocker,
				BlockerType: pair.blocker,
				BlockedType: pair.blocked,
				BlockerID:   &blocker.ID,
				BlockedID:   &blocked.ID,
				Reason:      fmt.Sprintf("%s has no expiry date recorded, cannot confirm it covers %s", pair.blocker, pair.blocked),
			})
			continue
		}

		// The blocker must outlive the blocked document's window plus the
		// required margin. When the blocked document has no expiry, the
		// as-of day stands in for its window.
		horizon := Day(asOf)
		if blocked.ExpiryDate != nil {
			horizon = Day(*blocked.ExpiryDate)
		}
		required := addMonths(horizon, 0)
		if pair.marginMonths > 0 {
			required = addMonths(horizon, pair.marginMonths)
		}

		if Day(*blocker.ExpiryDate).Before(required) {
			reason := fmt.Sprintf("%s expires %s, before %s requires it",
				pair.blocker,
				Day(*blocker.ExpiryDate).Format("2006-01-02"),
				pair.blocked,
			)
			if pair.marginMonths > 0 {
				reason = fmt.Sprintf(pair.description, pair.marginMonths) +
					fmt.Sprintf(" (expires %s)", Day(*blocker.ExpiryDate).Format("2006-01-02"))
			}
			warnings = append(warnings, DependencyWarning{
				Kind:        WarningBlockerValidity,
				BlockerType: pair.blocker,
				BlockedType: pair.blocked,
				BlockerID:   &blocker.ID,
				BlockedID:   &blocked.ID,
				Reason:      reason,
			})
		}
	}
	return warnings
}
