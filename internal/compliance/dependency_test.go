package compliance

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/manpowerhq/compliance-api/internal/models"
)

func warningsFor(warnings []DependencyWarning, blockerType string) []DependencyWarning {
	var out []DependencyWarning
	for _, w := range warnings {
		if w.BlockerType == blockerType {
			out = append(out, w)
		}
	}
	return out
}

func TestCheckDependenciesPassportMargin(t *testing.T) {
	asOf := date(2026, time.January, 1)
	visa := visaDoc(date(2026, time.December, 1))

	t.Run("passport expires inside the margin", func(t *testing.T) {
		passport := passportDoc(date(2027, time.March, 1))

		all := CheckDependencies([]models.DocumentRecord{visa, passport}, asOf, DefaultPassportMinMonths)
		got := warningsFor(all, models.DocTypePassport)

		require.Len(t, got, 1)
		assert.Equal(t, WarningBlockerValidity, got[0].Kind)
		assert.Equal(t, models.DocTypeVisa, got[0].BlockedType)
	})

	t.Run("passport clears the margin", func(t *testing.T) {
		passport := passportDoc(date(2027, time.July, 1))

		all := CheckDependencies([]models.DocumentRecord{visa, passport}, asOf, DefaultPassportMinMonths)

		assert.Empty(t, warningsFor(all, models.DocTypePassport))
	})
}

func TestCheckDependenciesMissingBlocker(t *testing.T) {
	asOf := date(2026, time.January, 1)
	visa := visaDoc(date(2026, time.December, 1))

	all := CheckDependencies([]models.DocumentRecord{visa}, asOf, DefaultPassportMinMonths)
	got := warningsFor(all, models.DocTypePassport)

	require.Len(t, got, 1)
	assert.Equal(t, WarningMissingBlocker, got[0].Kind)
	assert.Nil(t, got[0].BlockerID)
	require.NotNil(t, got[0].BlockedID)
	assert.Equal(t, visa.ID, *got[0].BlockedID)
}

func TestCheckDependenciesSkipsInactiveDocs(t *testing.T) {
	asOf := date(2026, time.January, 1)
	visa := visaDoc(date(2026, time.December, 1))
	visa.Active = false

	warnings := CheckDependencies([]models.DocumentRecord{visa}, asOf, DefaultPassportMinMonths)

	assert.Empty(t, warnings, "superseded documents do not trigger dependency checks")
}

func TestCheckDependenciesBlockerWithoutExpiry(t *testing.T) {
	asOf := date(2026, time.January, 1)
	visa := visaDoc(date(2026, time.December, 1))
	passport := passportDoc(date(2030, time.January, 1))
	passport.ExpiryDate = nil

	all := CheckDependencies([]models.DocumentRecord{visa, passport}, asOf, DefaultPassportMinMonths)
	got := warningsFor(all, models.DocTypePassport)

	require.Len(t, got, 1)
	assert.Equal(t, WarningMissingBlocker, got[0].Kind)
	require.NotNil(t, got[0].BlockerID)
	assert.Equal(t, passport.ID, *got[0].BlockerID)
}

func TestCheckDependenciesMultiplePairs(t *testing.T) {
	asOf := date(2026, time.January, 1)
	visa := visaDoc(date(2026, time.December, 1))
	permit := models.DocumentRecord{
		ID:         "doc-permit-1",
		EmployeeID: "emp-1",
		TypeKey:    models.DocTypeWorkPermit,
		ExpiryDate: datePtr(2026, time.December, 1),
		Active:     true,
	}

	// No passport, no health insurance, no ILOE, no medical fitness.
	warnings := CheckDependencies([]models.DocumentRecord{visa, permit}, asOf, DefaultPassportMinMonths)

	kinds := map[string]bool{}
	for _, w := range warnings {
		kinds[w.BlockerType] = true
	}
	assert.Len(t, warnings, 4)
	assert.True(t, kinds[models.DocTypePassport])
	assert.True(t, kinds[models.DocTypeHealthInsurance])
	assert.True(t, kinds[models.DocTypeILOE])
	assert.True(t, kinds[models.DocTypeMedicalFitness])
}

func TestCheckDependenciesNoBlockedDocument(t *testing.T) {
	asOf := date(2026, time.January, 1)
	passport := passportDoc(date(2027, time.January, 1))

	warnings := CheckDependencies([]models.DocumentRecord{passport}, asOf, DefaultPassportMinMonths)

	assert.Empty(t, warnings, "constraints only apply once the blocked document exists")
}
