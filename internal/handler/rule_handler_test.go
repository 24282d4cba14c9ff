package handler

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/manpowerhq/compliance-api/internal/models"
	"github.com/manpowerhq/compliance-api/internal/service"
)

type fakeRuleRepo struct {
	rules []models.ComplianceRule
}

func (f *fakeRuleRepo) List(context.Context, models.RuleFilter) ([]models.ComplianceRule, error) {
	return f.rules, nil
}

func (f *fakeRuleRepo) ListForScope(_ context.Context, companyID string) ([]models.ComplianceRule, error) {
	var out []models.ComplianceRule
	for _, rule := range f.rules {
		if rule.CompanyID == nil || *rule.CompanyID == companyID {
			out = append(out, rule)
		}
	}
	return out, nil
}

func (f *fakeRuleRepo) FindByID(_ context.Context, id string) (*models.ComplianceRule, error) {
	for i := range f.rules {
		if f.rules[i].ID == id {
			return &f.rules[i], nil
		}
	}
	return nil, sql.ErrNoRows
}

func (f *fakeRuleRepo) ExistsForScope(context.Context, *string, string, string) (bool, error) {
	return false, nil
}

func (f *fakeRuleRepo) Create(_ context.Context, rule *models.ComplianceRule) error {
	f.rules = append(f.rules, *rule)
	return nil
}

func (f *fakeRuleRepo) Update(context.Context, *models.ComplianceRule) error {
	return nil
}

func (f *fakeRuleRepo) Delete(context.Context, string) error {
	return nil
}

type fakeTypeCatalog struct{}

func (fakeTypeCatalog) FindByKey(_ context.Context, key string) (*models.DocumentType, error) {
	if key == "visa" {
		return &models.DocumentType{Key: "visa", DisplayName: "Residence Visa", Mandatory: true, HasExpiry: true}, nil
	}
	return nil, sql.ErrNoRows
}

func newRuleHandlerForTest(repo *fakeRuleRepo) *RuleHandler {
	svc := service.NewRuleService(service.RuleServiceParams{Repo: repo, Catalog: fakeTypeCatalog{}})
	return NewRuleHandler(svc)
}

func TestRuleHandlerEffectiveRequiresScope(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := newRuleHandlerForTest(&fakeRuleRepo{})

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/rules/effective?type=visa", nil)

	handler.Effective(c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRuleHandlerEffectiveResolvesGlobal(t *testing.T) {
	gin.SetMode(gin.TestMode)
	grace := 30
	fineType := models.FineDaily
	rate := decimal.NewFromInt(50)
	handler := newRuleHandlerForTest(&fakeRuleRepo{rules: []models.ComplianceRule{
		{ID: "rule-1", TypeKey: "visa", GraceDays: &grace, FineRate: &rate, FineType: &fineType},
	}})

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/rules/effective?company_id=company-1&type=visa", nil)

	handler.Effective(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	var envelope struct {
		Data struct {
			GraceDays int    `json:"grace_days"`
			FineRate  string `json:"fine_rate"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.Equal(t, 30, envelope.Data.GraceDays)
	assert.Equal(t, "50", envelope.Data.FineRate)
}

func TestRuleHandlerEffectiveMissingRule(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := newRuleHandlerForTest(&fakeRuleRepo{})

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/rules/effective?company_id=company-1&type=visa", nil)

	handler.Effective(c)

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}
