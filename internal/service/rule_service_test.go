package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/manpowerhq/compliance-api/internal/models"
	appErrors "github.com/manpowerhq/compliance-api/pkg/errors"
)

type ruleRepoStub struct {
	rules map[string]*models.ComplianceRule
}

func newRuleRepoStub() *ruleRepoStub {
	return &ruleRepoStub{rules: map[string]*models.ComplianceRule{}}
}

func (r *ruleRepoStub) List(ctx context.Context, filter models.RuleFilter) ([]models.ComplianceRule, error) {
	var out []models.ComplianceRule
	for _, rule := range r.rules {
		out = append(out, *rule)
	}
	return out, nil
}

func (r *ruleRepoStub) ListForScope(ctx context.Context, companyID string) ([]models.ComplianceRule, error) {
	var out []models.ComplianceRule
	for _, rule := range r.rules {
		if rule.CompanyID == nil || *rule.CompanyID == companyID {
			out = append(out, *rule)
		}
	}
	return out, nil
}

func (r *ruleRepoStub) FindByID(ctx context.Context, id string) (*models.ComplianceRule, error) {
	rule, ok := r.rules[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copied := *rule
	return &copied, nil
}

func (r *ruleRepoStub) ExistsForScope(ctx context.Context, companyID *string, typeKey string, excludeID string) (bool, error) {
	for _, rule := range r.rules {
		if rule.ID == excludeID || rule.TypeKey != typeKey {
			continue
		}
		switch {
		case companyID == nil && rule.CompanyID == nil:
			return true, nil
		case companyID != nil && rule.CompanyID != nil && *companyID == *rule.CompanyID:
			return true, nil
		}
	}
	return false, nil
}

func (r *ruleRepoStub) Create(ctx context.Context, rule *models.ComplianceRule) error {
	if rule.ID == "" {
		rule.ID = uuid.NewString()
	}
	copied := *rule
	r.rules[rule.ID] = &copied
	return nil
}

func (r *ruleRepoStub) Update(ctx context.Context, rule *models.ComplianceRule) error {
	if _, ok := r.rules[rule.ID]; !ok {
		return sql.ErrNoRows
	}
	copied := *rule
	r.rules[rule.ID] = &copied
	return nil
}

func (r *ruleRepoStub) Delete(ctx context.Context, id string) error {
	delete(r.rules, id)
	return nil
}

type typeFinderStub struct {
	types map[string]models.DocumentType
}

func (s typeFinderStub) FindByKey(ctx context.Context, key string) (*models.DocumentType, error) {
	docType, ok := s.types[key]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &docType, nil
}

func newRuleServiceForTest(t *testing.T) (*RuleService, *ruleRepoStub) {
	t.Helper()
	repo := newRuleRepoStub()
	catalog := typeFinderStub{types: map[string]models.DocumentType{
		models.DocTypeVisa:     {Key: models.DocTypeVisa, DisplayName: "Residence Visa", Mandatory: true, HasExpiry: true},
		models.DocTypePassport: {Key: models.DocTypePassport, DisplayName: "Passport", Mandatory: true, HasExpiry: true},
	}}
	svc := NewRuleService(RuleServiceParams{Repo: repo, Catalog: catalog})
	return svc, repo
}

func globalVisaRequest() WriteRuleRequest {
	grace := 30
	rate := decimal.NewFromInt(50)
	fineType := models.FineDaily
	return WriteRuleRequest{
		TypeKey:   models.DocTypeVisa,
		GraceDays: &grace,
		FineRate:  &rate,
		FineType:  &fineType,
	}
}

func TestRuleServiceCreateGlobal(t *testing.T) {
	svc, repo := newRuleServiceForTest(t)
	rule, err := svc.Create(context.Background(), globalVisaRequest(), "admin")
	require.NoError(t, err)
	assert.NotEmpty(t, rule.ID)
	assert.Nil(t, rule.CompanyID)
	assert.Contains(t, repo.rules, rule.ID)
}

func TestRuleServiceCreateDuplicateScope(t *testing.T) {
	svc, _ := newRuleServiceForTest(t)
	_, err := svc.Create(context.Background(), globalVisaRequest(), "admin")
	require.NoError(t, err)

	_, err = svc.Create(context.Background(), globalVisaRequest(), "admin")
	require.Error(t, err)
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrDuplicateRule.Code, appErr.Code)
}

func TestRuleServiceGlobalRequiresFullFine(t *testing.T) {
	svc, _ := newRuleServiceForTest(t)
	req := globalVisaRequest()
	req.FineType = nil
	_, err := svc.Create(context.Background(), req, "admin")
	require.Error(t, err)
}

func TestRuleServiceCompanyPartialOverrideAllowed(t *testing.T) {
	svc, _ := newRuleServiceForTest(t)
	_, err := svc.Create(context.Background(), globalVisaRequest(), "admin")
	require.NoError(t, err)

	companyID := "company-1"
	rate := decimal.NewFromInt(100)
	_, err = svc.Create(context.Background(), WriteRuleRequest{
		CompanyID: &companyID,
		TypeKey:   models.DocTypeVisa,
		FineRate:  &rate,
	}, "admin")
	require.NoError(t, err)

	// The effective rule carries the company rate over the global one, with
	// every other field falling through.
	effective, err := svc.Effective(context.Background(), companyID, models.DocTypeVisa)
	require.NoError(t, err)
	assert.True(t, effective.FineRate.Equal(rate))
	assert.Equal(t, 30, effective.GraceDays)
}

func TestRuleServiceUpdateKeepsScope(t *testing.T) {
	svc, repo := newRuleServiceForTest(t)
	created, err := svc.Create(context.Background(), globalVisaRequest(), "admin")
	require.NoError(t, err)

	companyID := "company-1"
	req := globalVisaRequest()
	req.CompanyID = &companyID
	req.TypeKey = models.DocTypePassport
	updated, err := svc.Update(context.Background(), created.ID, req, "admin")
	require.NoError(t, err)
	assert.Nil(t, updated.CompanyID)
	assert.Equal(t, models.DocTypeVisa, updated.TypeKey)
	assert.Equal(t, models.DocTypeVisa, repo.rules[created.ID].TypeKey)
}

func TestRuleServiceEffectiveNoRule(t *testing.T) {
	svc, _ := newRuleServiceForTest(t)
	_, err := svc.Effective(context.Background(), "company-1", models.DocTypeVisa)
	require.Error(t, err)
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrRuleNotFound.Code, appErr.Code)
}

func TestRuleServiceDeleteMissing(t *testing.T) {
	svc, _ := newRuleServiceForTest(t)
	err := svc.Delete(context.Background(), "missing", "admin")
	require.Error(t, err)
}
