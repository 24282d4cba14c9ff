package compliance

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/manpowerhq/compliance-api/internal/models"
)

func testTypes() map[string]models.DocumentType {
	return map[string]models.DocumentType{
		models.DocTypeVisa:     visaType(),
		models.DocTypePassport: passportType(),
		"profile_photo":        photoType(),
	}
}

func TestEvaluateDocumentPenalty(t *testing.T) {
	engine := NewEngine(Config{})
	expiry := date(2026, time.February, 19)
	doc := visaDoc(expiry)
	rs := NewRuleSet([]models.ComplianceRule{globalVisaRule()}, "co-1")

	got := engine.EvaluateDocument(doc, visaType(), rs, expiry.AddDate(0, 0, 45))

	assert.Equal(t, StatePenaltyActive, got.State)
	assert.Equal(t, "750", got.Fine.Amount.String())
	assert.Equal(t, 0, got.Fine.GraceDaysRemaining)
	require.NotNil(t, got.DaysUntilExpiry)
	assert.Equal(t, -45, *got.DaysUntilExpiry)
}

func TestEvaluateDocumentRuleMissing(t *testing.T) {
	engine := NewEngine(Config{})
	doc := visaDoc(date(2026, time.February, 19))
	rs := NewRuleSet(nil, "co-1")

	got := engine.EvaluateDocument(doc, visaType(), rs, date(2026, time.January, 1))

	assert.Equal(t, StateRuleMissing, got.State)
	assert.True(t, got.Fine.Amount.IsZero())
}

func TestEvaluateEmployeeSkipsSuperseded(t *testing.T) {
	engine := NewEngine(Config{})
	emp := models.Employee{ID: "emp-1", CompanyID: "co-1"}
	old := visaDoc(date(2025, time.January, 1))
	old.Active = false
	renewed := visaDoc(date(2027, time.June, 1))
	renewed.ID = "doc-visa-2"
	renewed.RenewedFrom = &old.ID
	passport := passportDoc(date(2030, time.January, 1))
	rs := NewRuleSet([]models.ComplianceRule{globalVisaRule()}, "co-1")

	got := engine.EvaluateEmployee(emp, []models.DocumentRecord{old, renewed, passport}, testTypes(), rs, date(2026, time.January, 1))

	require.Len(t, got.Documents, 2)
	assert.True(t, got.TotalFine.IsZero(), "the lapsed superseded instance accrues nothing")
}

func TestEvaluateEmployeeUnknownType(t *testing.T) {
	engine := NewEngine(Config{})
	emp := models.Employee{ID: "emp-1", CompanyID: "co-1"}
	doc := models.DocumentRecord{ID: "doc-x", EmployeeID: "emp-1", TypeKey: "unknown_type", Active: true}

	got := engine.EvaluateEmployee(emp, []models.DocumentRecord{doc}, testTypes(), NewRuleSet(nil, "co-1"), date(2026, time.January, 1))

	require.Len(t, got.Documents, 1)
	assert.Equal(t, StateRuleMissing, got.Documents[0].State)
}

func TestEvaluateBatch(t *testing.T) {
	engine := NewEngine(Config{Workers: 4})
	asOf := date(2026, time.April, 5)
	rules := []models.ComplianceRule{globalVisaRule()}

	inputs := make([]EmployeeInput, 0, 20)
	for i := 0; i < 20; i++ {
		emp := models.Employee{ID: empID(i), CompanyID: "co-1"}
		expiry := date(2026, time.January, 1).AddDate(0, 0, i*10)
		doc := visaDoc(expiry)
		doc.ID = "doc-" + emp.ID
		doc.EmployeeID = emp.ID
		inputs = append(inputs, EmployeeInput{Employee: emp, Documents: []models.DocumentRecord{doc}})
	}

	got, err := engine.EvaluateBatch(context.Background(), inputs, testTypes(), rules, asOf)

	require.NoError(t, err)
	require.Len(t, got, 20)
	for i, summary := range got {
		assert.Equal(t, empID(i), summary.EmployeeID, "batch results keep input order")
	}
	// The earliest expiry (2026-01-01) is 94 days overdue at the as-of day,
	// well past the 30 grace days.
	assert.Equal(t, StatePenaltyActive, got[0].Status)
}

func TestEvaluateBatchDeterministic(t *testing.T) {
	engine := NewEngine(Config{Workers: 8})
	asOf := date(2026, time.April, 5)
	rules := []models.ComplianceRule{globalVisaRule()}

	emp := models.Employee{ID: "emp-1", CompanyID: "co-1"}
	inputs := []EmployeeInput{{Employee: emp, Documents: []models.DocumentRecord{visaDoc(date(2026, time.February, 19))}}}

	first, err := engine.EvaluateBatch(context.Background(), inputs, testTypes(), rules, asOf)
	require.NoError(t, err)
	second, err := engine.EvaluateBatch(context.Background(), inputs, testTypes(), rules, asOf)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestEvaluateBatchCancellation(t *testing.T) {
	engine := NewEngine(Config{Workers: 1})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	inputs := make([]EmployeeInput, 100)
	for i := range inputs {
		inputs[i] = EmployeeInput{Employee: models.Employee{ID: empID(i), CompanyID: "co-1"}}
	}

	_, err := engine.EvaluateBatch(ctx, inputs, testTypes(), []models.ComplianceRule{globalVisaRule()}, date(2026, time.January, 1))

	assert.ErrorIs(t, err, context.Canceled)
}

func TestEvaluateBatchEmpty(t *testing.T) {
	engine := NewEngine(Config{})

	got, err := engine.EvaluateBatch(context.Background(), nil, testTypes(), nil, date(2026, time.January, 1))

	require.NoError(t, err)
	assert.Empty(t, got)
}

func empID(i int) string {
	return "emp-" + string(rune('a'+i%26)) + string(rune('a'+i/26))
}
