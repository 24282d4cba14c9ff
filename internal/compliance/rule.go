package compliance

import (
	"errors"

	"github.com/shopspring/decimal"

	"github.com/manpowerhq/compliance-api/internal/models"
)

// ErrRuleNotFound is returned when a date-bearing document type has neither a
// company override nor a global rule. Callers report the document with the
// RuleMissing state instead of aborting the batch.
var ErrRuleNotFound = errors.New("no compliance rule resolves for document type")

// EffectiveRule is the fully resolved rule applied to one document type for
// one company scope. A zero FineCap means uncapped.
type EffectiveRule struct {
	TypeKey   string          `json:"type_key"`
	GraceDays int             `json:"grace_days"`
	FineRate  decimal.Decimal `json:"fine_rate"`
	FineType  models.FineType `json:"fine_type"`
	FineCap   decimal.Decimal `json:"fine_cap"`
	Mandatory bool            `json:"mandatory"`
}

// RuleSet indexes rule rows for one company scope so resolution is a map
// lookup. Company rows override the global row field by field: a NULL column
// in the company row falls through to the global value.
type RuleSet struct {
	global  map[string]models.ComplianceRule
	company map[string]models.ComplianceRule
}

// NewRuleSet builds a RuleSet from a rule snapshot, keeping global rows and
// the rows scoped to the given company. Rows for other companies are ignored.
func NewRuleSet(rules []models.ComplianceRule, companyID string) RuleSet {
	rs := RuleSet{
		global:  make(map[string]models.ComplianceRule),
		company: make(map[string]models.ComplianceRule),
	}
	for _, rule := range rules {
		if rule.IsGlobal() {
			rs.global[rule.TypeKey] = rule
			continue
		}
		if companyID != "" && *rule.CompanyID == companyID {
			rs.company[rule.TypeKey] = rule
		}
	}
	return rs
}

// Resolve derives the effective rule for a document type. Each field is
// resolved independently: company value if set, else global value, else the
// catalog default (mandatory only; the other fields have no catalog default
// and must exist in at least the global rule for date-bearing types).
//
// Types exempt from expiry tracking may have no rule at all; they resolve to
// an effective rule with zero fine fields.
func (rs RuleSet) Resolve(docType models.DocumentType) (EffectiveRule, error) {
	companyRule, hasCompany := rs.company[docType.Key]
	globalRule, hasGlobal := rs.global[docType.Key]

	resolved := EffectiveRule{
		TypeKey:   docType.Key,
		Mandatory: docType.Mandatory,
	}

	if !hasCompany && !hasGlobal {
		if docType.HasExpiry {
			return EffectiveRule{}, ErrRuleNotFound
		}
		return resolved, nil
	}

	graceDays := pickInt(boolPtrRule(hasCompany, companyRule).GraceDays, boolPtrRule(hasGlobal, globalRule).GraceDays)
	fineRate := pickDecimal(boolPtrRule(hasCompany, companyRule).FineRate, boolPtrRule(hasGlobal, globalRule).FineRate)
	fineType := pickFineType(boolPtrRule(hasCompany, companyRule).FineType, boolPtrRule(hasGlobal, globalRule).FineType)
	fineCap := pickDecimal(boolPtrRule(hasCompany, companyRule).FineCap, boolPtrRule(hasGlobal, globalRule).FineCap)

	if docType.HasExpiry && (graceDays == nil || fineRate == nil || fineType == nil) {
		return EffectiveRule{}, ErrRuleNotFound
	}

	if graceDays != nil {
		resolved.GraceDays = *graceDays
	}
	if fineRate != nil {
		resolved.FineRate = *fineRate
	}
	if fineType != nil {
		resolved.FineType = *fineType
	}
	if fineCap != nil {
		resolved.FineCap = *fineCap
	}

	if hasCompany && companyRule.MandatoryOverride != nil {
		resolved.Mandatory = *companyRule.MandatoryOverride
	} else if hasGlobal && globalRule.MandatoryOverride != nil {
		resolved.Mandatory = *globalRule.MandatoryOverride
	}

	return resolved, nil
}

// boolPtrRule returns the rule when present, otherwise a zero rule whose
// nullable fields are all nil so pick* falls through.
func boolPtrRule(present bool, rule models.ComplianceRule) models.ComplianceRule {
	if present {
		return rule
	}
	return models.ComplianceRule{}
}

func pickInt(override, fallback *int) *int {
	if override != nil {
		return override
	}
	return fallback
}

func pickDecimal(override, fallback *decimal.Decimal) *decimal.Decimal {
	if override != nil {
		return override
	}
	return fallback
}

func pickFineType(override, fallback *models.FineType) *models.FineType {
	if override != nil {
		return override
	}
	return fallback
}
