package compliance

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/manpowerhq/compliance-api/internal/models"
)

func TestAccrueFineInGrace(t *testing.T) {
	expiry := date(2026, time.February, 19)
	doc := visaDoc(expiry)
	rule := dailyRule(50, 5000, 30)

	got := AccrueFine(doc, rule, StateInGrace, expiry.AddDate(0, 0, 10), DefaultMonthlyBlockDays)

	assert.True(t, got.Amount.IsZero())
	assert.Equal(t, 20, got.GraceDaysRemaining)
	assert.Equal(t, 0, got.DaysOverdue)
	assert.False(t, got.AtCap)
}

func TestAccrueFineDaily(t *testing.T) {
	expiry := date(2026, time.February, 19)
	doc := visaDoc(expiry)
	rule := dailyRule(50, 5000, 30)

	// 45 days past expiry with 30 grace days leaves 15 accruing days.
	got := AccrueFine(doc, rule, StatePenaltyActive, expiry.AddDate(0, 0, 45), DefaultMonthlyBlockDays)

	assert.Equal(t, "750", got.Amount.String())
	assert.Equal(t, 15, got.DaysOverdue)
	assert.Equal(t, 0, got.GraceDaysRemaining)
	assert.False(t, got.AtCap)
	assert.Equal(t, "50", got.BurnRate.String())
}

func TestAccrueFineCapClamp(t *testing.T) {
	expiry := date(2026, time.January, 1)
	doc := visaDoc(expiry)
	rule := dailyRule(20, 1000, 0)

	// 60 accruing days at 20/day is 1200, clamped to the 1000 cap.
	got := AccrueFine(doc, rule, StatePenaltyActive, expiry.AddDate(0, 0, 60), DefaultMonthlyBlockDays)

	assert.Equal(t, "1000", got.Amount.String())
	assert.True(t, got.AtCap)
	assert.True(t, got.BurnRate.IsZero(), "capped documents stop contributing to burn rate")
}

func TestAccrueFineMonthlyBlocks(t *testing.T) {
	expiry := date(2026, time.January, 1)
	doc := visaDoc(expiry)
	rule := EffectiveRule{
		TypeKey:  models.DocTypeVisa,
		FineRate: decimal.NewFromInt(300),
		FineType: models.FineMonthly,
	}

	tests := []struct {
		daysPast int
		want     string
	}{
		{1, "300"},
		{30, "300"},
		{31, "600"},
		{61, "900"},
	}
	for _, tt := range tests {
		got := AccrueFine(doc, rule, StatePenaltyActive, expiry.AddDate(0, 0, tt.daysPast), DefaultMonthlyBlockDays)
		assert.Equal(t, tt.want, got.Amount.String(), "after %d days", tt.daysPast)
		assert.True(t, got.BurnRate.IsZero())
	}
}

func TestAccrueFineOneTime(t *testing.T) {
	expiry := date(2026, time.January, 1)
	doc := visaDoc(expiry)
	rule := EffectiveRule{
		TypeKey:  models.DocTypeVisa,
		FineRate: decimal.NewFromInt(2500),
		FineType: models.FineOneTime,
	}

	day10 := AccrueFine(doc, rule, StatePenaltyActive, expiry.AddDate(0, 0, 10), DefaultMonthlyBlockDays)
	day90 := AccrueFine(doc, rule, StatePenaltyActive, expiry.AddDate(0, 0, 90), DefaultMonthlyBlockDays)

	assert.Equal(t, "2500", day10.Amount.String())
	assert.Equal(t, day10.Amount.String(), day90.Amount.String())
}

func TestAccrueFineMonotonicUntilCap(t *testing.T) {
	expiry := date(2026, time.January, 1)
	doc := visaDoc(expiry)
	rule := dailyRule(20, 1000, 5)

	prev := decimal.Zero
	for days := 6; days <= 120; days++ {
		got := AccrueFine(doc, rule, StatePenaltyActive, expiry.AddDate(0, 0, days), DefaultMonthlyBlockDays)
		assert.True(t, got.Amount.GreaterThanOrEqual(prev), "amount regressed at day %d", days)
		assert.True(t, got.Amount.LessThanOrEqual(rule.FineCap))
		prev = got.Amount
	}
	assert.Equal(t, rule.FineCap.String(), prev.String())
}

func TestAccrueFineZeroOutsidePenalty(t *testing.T) {
	expiry := date(2026, time.February, 19)
	doc := visaDoc(expiry)
	rule := dailyRule(50, 5000, 30)

	for _, state := range []State{StateValid, StateExpiringSoon, StateIncomplete, StateRuleMissing} {
		got := AccrueFine(doc, rule, state, expiry.AddDate(0, 0, 45), DefaultMonthlyBlockDays)
		assert.True(t, got.Amount.IsZero(), "state %s must not accrue", state)
		assert.True(t, got.BurnRate.IsZero())
	}
}

func TestAccrueFineUncapped(t *testing.T) {
	expiry := date(2026, time.January, 1)
	doc := visaDoc(expiry)
	rule := dailyRule(50, 0, 0)

	got := AccrueFine(doc, rule, StatePenaltyActive, expiry.AddDate(0, 0, 400), DefaultMonthlyBlockDays)

	assert.Equal(t, "20000", got.Amount.String())
	assert.False(t, got.AtCap)
	assert.Equal(t, "50", got.BurnRate.String())
}
