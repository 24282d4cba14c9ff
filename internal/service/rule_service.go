package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/manpowerhq/compliance-api/internal/compliance"
	"github.com/manpowerhq/compliance-api/internal/models"
	appErrors "github.com/manpowerhq/compliance-api/pkg/errors"
)

type ruleRepository interface {
	List(ctx context.Context, filter models.RuleFilter) ([]models.ComplianceRule, error)
	ListForScope(ctx context.Context, companyID string) ([]models.ComplianceRule, error)
	FindByID(ctx context.Context, id string) (*models.ComplianceRule, error)
	ExistsForScope(ctx context.Context, companyID *string, typeKey string, excludeID string) (bool, error)
	Create(ctx context.Context, rule *models.ComplianceRule) error
	Update(ctx context.Context, rule *models.ComplianceRule) error
	Delete(ctx context.Context, id string) error
}

// WriteRuleRequest creates or updates a rule. For company rules every fine
// field is optional; a nil field falls through to the global rule. Global
// rules for date-bearing types must carry the full fine definition.
type WriteRuleRequest struct {
	CompanyID         *string          `json:"company_id"`
	TypeKey           string           `json:"type_key" validate:"required"`
	GraceDays         *int             `json:"grace_days" validate:"omitempty,min=0"`
	FineRate          *decimal.Decimal `json:"fine_rate"`
	FineType          *models.FineType `json:"fine_type"`
	FineCap           *decimal.Decimal `json:"fine_cap"`
	MandatoryOverride *bool            `json:"mandatory_override"`
}

// RuleService manages the compliance rule table.
type RuleService struct {
	repo      ruleRepository
	catalog   documentTypeFinder
	audit     auditRecorder
	invalidor cacheInvalidator
	validator *validator.Validate
	logger    *zap.Logger
}

// RuleServiceParams bundles dependencies for NewRuleService.
type RuleServiceParams struct {
	Repo      ruleRepository
	Catalog   documentTypeFinder
	Audit     auditRecorder
	Cache     cacheInvalidator
	Validator *validator.Validate
	Logger    *zap.Logger
}

// NewRuleService constructs the rule service.
func NewRuleService(params RuleServiceParams) *RuleService {
	if params.Validator == nil {
		params.Validator = validator.New()
	}
	if params.Logger == nil {
		params.Logger = zap.NewNop()
	}
	return &RuleService{
		repo:      params.Repo,
		catalog:   params.Catalog,
		audit:     params.Audit,
		invalidor: params.Cache,
		validator: params.Validator,
		logger:    params.Logger,
	}
}

// List returns rules matching the filter.
func (s *RuleService) List(ctx context.Context, filter models.RuleFilter) ([]models.ComplianceRule, error) {
	rules, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list rules")
	}
	return rules, nil
}

// Get returns one rule row.
func (s *RuleService) Get(ctx context.Context, id string) (*models.ComplianceRule, error) {
	rule, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "rule not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load rule")
	}
	return rule, nil
}

// Effective resolves the rule that actually applies to one document type in
// one company scope, after field-level override resolution.
func (s *RuleService) Effective(ctx context.Context, companyID, typeKey string) (*compliance.EffectiveRule, error) {
	docType, err := s.catalog.FindByKey(ctx, typeKey)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "unknown document type")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load document type")
	}
	rows, err := s.repo.ListForScope(ctx, companyID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load rules")
	}
	resolved, err := compliance.NewRuleSet(rows, companyID).Resolve(*docType)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrRuleNotFound, "")
	}
	return &resolved, nil
}

// Create inserts a rule, enforcing one row per (company, type) scope.
func (s *RuleService) Create(ctx context.Context, req WriteRuleRequest, actorID string) (*models.ComplianceRule, error) {
	if err := s.validateWrite(ctx, req); err != nil {
		return nil, err
	}
	exists, err := s.repo.ExistsForScope(ctx, req.CompanyID, req.TypeKey, "")
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check rule scope")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrDuplicateRule, "")
	}

	rule := &models.ComplianceRule{
		CompanyID:         req.CompanyID,
		TypeKey:           req.TypeKey,
		GraceDays:         req.GraceDays,
		FineRate:          req.FineRate,
		FineType:          req.FineType,
		FineCap:           req.FineCap,
		MandatoryOverride: req.MandatoryOverride,
	}
	if err := s.repo.Create(ctx, rule); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create rule")
	}
	s.afterWrite(ctx, actorID, rule, "create")
	return rule, nil
}

// Update modifies an existing rule row.
func (s *RuleService) Update(ctx context.Context, id string, req WriteRuleRequest, actorID string) (*models.ComplianceRule, error) {
	rule, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "rule not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load rule")
	}

	// Scope is immutable; only the rule fields change.
	req.CompanyID = rule.CompanyID
	req.TypeKey = rule.TypeKey
	if err := s.validateWrite(ctx, req); err != nil {
		return nil, err
	}

	rule.GraceDays = req.GraceDays
	rule.FineRate = req.FineRate
	rule.FineType = req.FineType
	rule.FineCap = req.FineCap
	rule.MandatoryOverride = req.MandatoryOverride
	if err := s.repo.Update(ctx, rule); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update rule")
	}
	s.afterWrite(ctx, actorID, rule, "update")
	return rule, nil
}

// Delete removes a rule row.
func (s *RuleService) Delete(ctx context.Context, id string, actorID string) error {
	rule, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "rule not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load rule")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete rule")
	}
	s.afterWrite(ctx, actorID, rule, "delete")
	return nil
}

func (s *RuleService) validateWrite(ctx context.Context, req WriteRuleRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid rule payload")
	}
	if req.FineType != nil && !req.FineType.Valid() {
		return appErrors.Clone(appErrors.ErrValidation, "fine_type must be daily, monthly or one_time")
	}
	if req.FineRate != nil && req.FineRate.IsNegative() {
		return appErrors.Clone(appErrors.ErrValidation, "fine_rate must not be negative")
	}
	if req.FineCap != nil && req.FineCap.IsNegative() {
		return appErrors.Clone(appErrors.ErrValidation, "fine_cap must not be negative")
	}

	docType, err := s.catalog.FindByKey(ctx, req.TypeKey)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrValidation, "unknown document type")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load document type")
	}

	// Global rules for date-bearing types must be self-sufficient; there is
	// nothing below them to fall through to.
	if req.CompanyID == nil && docType.HasExpiry {
		if req.GraceDays == nil || req.FineRate == nil || req.FineType == nil {
			return appErrors.Clone(appErrors.ErrValidation, "global rules require grace_days, fine_rate and fine_type")
		}
	}
	return nil
}

func (s *RuleService) afterWrite(ctx context.Context, actorID string, rule *models.ComplianceRule, operation string) {
	if s.invalidor != nil {
		scope := "*"
		if rule.CompanyID != nil {
			scope = *rule.CompanyID
		}
		if err := s.invalidor.InvalidateCompany(ctx, scope); err != nil {
			s.logger.Warn("failed to invalidate compliance cache after rule write", zap.Error(err))
		}
	}
	if s.audit == nil {
		return
	}
	payload, _ := json.Marshal(map[string]string{"operation": operation, "type_key": rule.TypeKey})
	entry := &models.AuditLog{
		Action:     models.AuditActionRuleWrite,
		Resource:   "compliance_rule",
		ResourceID: &rule.ID,
		NewValues:  payload,
	}
	if actorID != "" {
		entry.UserID = &actorID
	}
	if err := s.audit.Create(ctx, entry); err != nil {
		s.logger.Warn("failed to record rule audit log", zap.Error(err))
	}
}
