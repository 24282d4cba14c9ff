package compliance

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/manpowerhq/compliance-api/internal/models"
)

func TestSummarizeEmployeeWorstStateWins(t *testing.T) {
	emp := models.Employee{ID: "emp-1", CompanyID: "co-1"}
	docs := []DocumentStatus{
		{Document: passportDoc(date(2030, time.January, 1)), State: StateValid, Fine: FineResult{Amount: decimal.Zero, BurnRate: decimal.Zero}},
		{Document: visaDoc(date(2026, time.January, 1)), State: StateIncomplete, Mandatory: true, Fine: FineResult{Amount: decimal.Zero, BurnRate: decimal.Zero}},
	}

	got := SummarizeEmployee(emp, docs, nil)

	assert.Equal(t, StateIncomplete, got.Status)
	assert.Equal(t, models.DocTypeVisa, got.UrgentTypeKey)
	assert.True(t, got.MandatoryLapsed)
}

func TestSummarizeEmployeeTieBreaksOnNearestExpiry(t *testing.T) {
	emp := models.Employee{ID: "emp-1", CompanyID: "co-1"}
	near := visaDoc(date(2026, time.March, 1))
	far := passportDoc(date(2026, time.September, 1))
	docs := []DocumentStatus{
		{Document: far, State: StateInGrace, Fine: FineResult{Amount: decimal.Zero, BurnRate: decimal.Zero}},
		{Document: near, State: StateInGrace, Fine: FineResult{Amount: decimal.Zero, BurnRate: decimal.Zero}},
	}

	got := SummarizeEmployee(emp, docs, nil)

	assert.Equal(t, StateInGrace, got.Status)
	assert.Equal(t, models.DocTypeVisa, got.UrgentTypeKey)
}

func TestSummarizeEmployeeSumsFinesAndBurnRate(t *testing.T) {
	emp := models.Employee{ID: "emp-1", CompanyID: "co-1"}
	docs := []DocumentStatus{
		{
			Document: visaDoc(date(2026, time.January, 1)),
			State:    StatePenaltyActive,
			Fine:     FineResult{Amount: decimal.NewFromInt(750), BurnRate: decimal.NewFromInt(50)},
		},
		{
			Document: passportDoc(date(2026, time.January, 1)),
			State:    StatePenaltyActive,
			Fine:     FineResult{Amount: decimal.NewFromInt(1000), AtCap: true, BurnRate: decimal.Zero},
		},
	}

	got := SummarizeEmployee(emp, docs, nil)

	assert.Equal(t, "1750", got.TotalFine.String())
	assert.Equal(t, "50", got.DailyBurnRate.String(), "capped document drops out of the burn rate")
}

func TestSummarizeEmployeeNoDocuments(t *testing.T) {
	emp := models.Employee{ID: "emp-1", CompanyID: "co-1"}

	got := SummarizeEmployee(emp, nil, nil)

	assert.Equal(t, StateValid, got.Status)
	assert.Empty(t, got.UrgentTypeKey)
	assert.True(t, got.TotalFine.IsZero())
	assert.False(t, got.MandatoryLapsed)
}

func TestSummarizeGroup(t *testing.T) {
	employees := []EmployeeSummary{
		{EmployeeID: "emp-1", Status: StatePenaltyActive, TotalFine: decimal.NewFromInt(1750), DailyBurnRate: decimal.NewFromInt(50)},
		{EmployeeID: "emp-2", Status: StateValid, TotalFine: decimal.Zero, DailyBurnRate: decimal.Zero},
		{EmployeeID: "emp-3", Status: StateIncomplete, TotalFine: decimal.Zero, DailyBurnRate: decimal.Zero, MandatoryLapsed: true},
		{EmployeeID: "emp-4", Status: StateValid, TotalFine: decimal.Zero, DailyBurnRate: decimal.Zero},
	}

	got := SummarizeGroup(employees)

	assert.Equal(t, 4, got.Employees)
	assert.Equal(t, "1750", got.TotalFine.String())
	assert.Equal(t, "50", got.DailyBurnRate.String())
	assert.Equal(t, 2, got.StatusCounts[StateValid])
	assert.Equal(t, 1, got.StatusCounts[StatePenaltyActive])
	assert.InDelta(t, 0.75, got.CompletionRate, 1e-9)
}

func TestSummarizeGroupEmpty(t *testing.T) {
	got := SummarizeGroup(nil)

	assert.Equal(t, 0, got.Employees)
	assert.Zero(t, got.CompletionRate)
	assert.True(t, got.TotalFine.IsZero())
}
