package compliance

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/manpowerhq/compliance-api/internal/models"
)

func TestResolveGlobalOnly(t *testing.T) {
	rs := NewRuleSet([]models.ComplianceRule{globalVisaRule()}, "co-1")

	got, err := rs.Resolve(visaType())

	require.NoError(t, err)
	assert.Equal(t, 30, got.GraceDays)
	assert.Equal(t, "50", got.FineRate.String())
	assert.Equal(t, models.FineDaily, got.FineType)
	assert.Equal(t, "5000", got.FineCap.String())
	assert.True(t, got.Mandatory)
}

func TestResolvePartialCompanyOverride(t *testing.T) {
	companyRule := models.ComplianceRule{
		ID:        "rule-visa-co1",
		CompanyID: strPtr("co-1"),
		TypeKey:   models.DocTypeVisa,
		FineRate:  decPtr(decimal.NewFromInt(100)),
	}
	rs := NewRuleSet([]models.ComplianceRule{globalVisaRule(), companyRule}, "co-1")

	got, err := rs.Resolve(visaType())

	require.NoError(t, err)
	// Only the rate is overridden; every other field falls through.
	assert.Equal(t, "100", got.FineRate.String())
	assert.Equal(t, 30, got.GraceDays)
	assert.Equal(t, models.FineDaily, got.FineType)
	assert.Equal(t, "5000", got.FineCap.String())
}

func TestResolveIgnoresOtherCompanies(t *testing.T) {
	otherRule := models.ComplianceRule{
		ID:        "rule-visa-co2",
		CompanyID: strPtr("co-2"),
		TypeKey:   models.DocTypeVisa,
		FineRate:  decPtr(decimal.NewFromInt(999)),
	}
	rs := NewRuleSet([]models.ComplianceRule{globalVisaRule(), otherRule}, "co-1")

	got, err := rs.Resolve(visaType())

	require.NoError(t, err)
	assert.Equal(t, "50", got.FineRate.String())
}

func TestResolveMissingRule(t *testing.T) {
	rs := NewRuleSet(nil, "co-1")

	_, err := rs.Resolve(visaType())

	assert.ErrorIs(t, err, ErrRuleNotFound)
}

func TestResolveIncompleteRuleChain(t *testing.T) {
	// A company row alone cannot satisfy a date-bearing type when the
	// global row is absent and the company row leaves fields NULL.
	companyRule := models.ComplianceRule{
		ID:        "rule-visa-co1",
		CompanyID: strPtr("co-1"),
		TypeKey:   models.DocTypeVisa,
		GraceDays: intPtr(10),
	}
	rs := NewRuleSet([]models.ComplianceRule{companyRule}, "co-1")

	_, err := rs.Resolve(visaType())

	assert.ErrorIs(t, err, ErrRuleNotFound)
}

func TestResolveExemptTypeWithoutRule(t *testing.T) {
	rs := NewRuleSet(nil, "co-1")

	got, err := rs.Resolve(photoType())

	require.NoError(t, err)
	assert.True(t, got.FineRate.IsZero())
	assert.Equal(t, 0, got.GraceDays)
	assert.False(t, got.Mandatory)
}

func TestResolveMandatoryOverride(t *testing.T) {
	global := globalVisaRule()
	companyRule := models.ComplianceRule{
		ID:                "rule-visa-co1",
		CompanyID:         strPtr("co-1"),
		TypeKey:           models.DocTypeVisa,
		MandatoryOverride: boolPtr(false),
	}
	rs := NewRuleSet([]models.ComplianceRule{global, companyRule}, "co-1")

	got, err := rs.Resolve(visaType())

	require.NoError(t, err)
	assert.False(t, got.Mandatory, "company override relaxes the catalog default")
}

func boolPtr(v bool) *bool { return &v }
