package compliance

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/manpowerhq/compliance-api/internal/models"
)

// DefaultMonthlyBlockDays is the length of one accrual block for monthly
// fines.
const DefaultMonthlyBlockDays = 30

// FineResult is the monetary exposure of one document at one as-of day.
type FineResult struct {
	Amount decimal.Decimal `json:"amount"`
	// GraceDaysRemaining is exposed during the grace period for display and
	// alerting even though the amount is still zero.
	GraceDaysRemaining int `json:"grace_days_remaining"`
	// DaysOverdue counts days past the end of grace; zero unless the
	// document is in penalty.
	DaysOverdue int  `json:"days_overdue"`
	AtCap       bool `json:"at_cap"`
	// BurnRate is this document's contribution to the daily burn rate:
	// the daily fine rate while accruing, zero once capped or for
	// non-daily fine types.
	BurnRate decimal.Decimal `json:"burn_rate"`
}

// AccrueFine computes accrued fine exposure for a document in the given
// lifecycle state. Only PenaltyActive accrues money; InGrace yields a zero
// amount with the remaining grace days filled in. Amounts never go negative
// and saturate at the cap when one is set.
func AccrueFine(doc models.DocumentRecord, rule EffectiveRule, state State, asOf time.Time, monthlyBlockDays int) FineResult {
	if monthlyBlockDays <= 0 {
		monthlyBlockDays = DefaultMonthlyBlockDays
	}

	result := FineResult{Amount: decimal.Zero, BurnRate: decimal.Zero}
	if doc.ExpiryDate == nil {
		return result
	}

	switch state {
	case StateInGrace:
		remaining := rule.GraceDays - DaysBetween(*doc.ExpiryDate, asOf)
		if remaining < 0 {
			remaining = 0
		}
		result.GraceDaysRemaining = remaining
		return result
	case StatePenaltyActive:
		// fallthrough to accrual below
	default:
		return result
	}

	overdue := DaysBetween(*doc.ExpiryDate, asOf) - rule.GraceDays
	if overdue < 0 {
		overdue = 0
	}
	result.DaysOverdue = overdue

	if rule.FineRate.IsZero() || overdue == 0 {
		return result
	}

	var amount decimal.Decimal
	switch rule.FineType {
	case models.FineDaily:
		amount = rule.FineRate.Mul(decimal.NewFromInt(int64(overdue)))
	case models.FineMonthly:
		blocks := (overdue + monthlyBlockDays - 1) / monthlyBlockDays
		amount = rule.FineRate.Mul(decimal.NewFromInt(int64(blocks)))
	case models.FineOneTime:
		amount = rule.FineRate
	default:
		return result
	}

	if amount.IsNegative() {
		amount = decimal.Zero
	}
	if rule.FineCap.IsPositive() && amount.GreaterThanOrEqual(rule.FineCap) {
		amount = rule.FineCap
		result.AtCap = true
	}
	result.Amount = amount

	if rule.FineType == models.FineDaily && !result.AtCap {
		result.BurnRate = rule.FineRate
	}
	return result
}
