package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/manpowerhq/compliance-api/internal/compliance"
	"github.com/manpowerhq/compliance-api/internal/models"
	appErrors "github.com/manpowerhq/compliance-api/pkg/errors"
)

type complianceEmployeeRepository interface {
	FindByID(ctx context.Context, id string) (*models.Employee, error)
	ListByCompany(ctx context.Context, companyID string) ([]models.Employee, error)
	ListAllActive(ctx context.Context) ([]models.Employee, error)
}

type complianceDocumentRepository interface {
	ListByEmployee(ctx context.Context, employeeID string) ([]models.DocumentRecord, error)
	ListActiveByEmployees(ctx context.Context, employeeIDs []string) (map[string][]models.DocumentRecord, error)
}

type complianceRuleRepository interface {
	ListForScope(ctx context.Context, companyID string) ([]models.ComplianceRule, error)
	ListAll(ctx context.Context) ([]models.ComplianceRule, error)
}

// CompanyComplianceView is the evaluated state of one company at one day.
type CompanyComplianceView struct {
	CompanyID string                         `json:"company_id"`
	AsOf      time.Time                      `json:"as_of"`
	Group     compliance.GroupSummary        `json:"group"`
	Employees []compliance.EmployeeSummary   `json:"employees"`
}

// EmployeeComplianceView is the evaluated state of one employee at one day.
type EmployeeComplianceView struct {
	AsOf    time.Time                  `json:"as_of"`
	Summary compliance.EmployeeSummary `json:"summary"`
}

// ComplianceService loads snapshots and runs the evaluation engine over them.
// Evaluation itself is pure; this service owns the snapshot reads, the
// per-day cache, and the exported gauges.
type ComplianceService struct {
	engine    *compliance.Engine
	employees complianceEmployeeRepository
	documents complianceDocumentRepository
	rules     complianceRuleRepository
	catalog   documentTypeCatalog
	cache     *CacheService
	metrics   *MetricsService
	logger    *zap.Logger
	viewTTL   time.Duration
}

// ComplianceServiceParams bundles dependencies for NewComplianceService.
type ComplianceServiceParams struct {
	Engine    *compliance.Engine
	Employees complianceEmployeeRepository
	Documents complianceDocumentRepository
	Rules     complianceRuleRepository
	Catalog   documentTypeCatalog
	Cache     *CacheService
	Metrics   *MetricsService
	Logger    *zap.Logger
	ViewTTL   time.Duration
}

// NewComplianceService constructs the compliance service.
func NewComplianceService(params ComplianceServiceParams) *ComplianceService {
	if params.Engine == nil {
		params.Engine = compliance.NewEngine(compliance.Config{})
	}
	if params.Logger == nil {
		params.Logger = zap.NewNop()
	}
	if params.ViewTTL <= 0 {
		params.ViewTTL = 15 * time.Minute
	}
	return &ComplianceService{
		engine:    params.Engine,
		employees: params.Employees,
		documents: params.Documents,
		rules:     params.Rules,
		catalog:   params.Catalog,
		cache:     params.Cache,
		metrics:   params.Metrics,
		logger:    params.Logger,
		viewTTL:   params.ViewTTL,
	}
}

// EmployeeView evaluates one employee. A zero asOf means today.
func (s *ComplianceService) EmployeeView(ctx context.Context, employeeID string, asOf time.Time) (*EmployeeComplianceView, error) {
	asOf = normalizeAsOf(asOf)

	employee, err := s.employees.FindByID(ctx, employeeID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "employee not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load employee")
	}

	key := EmployeeViewKey(employee.CompanyID, employeeID, asOf)
	var cached EmployeeComplianceView
	if hit, _ := s.cache.Get(ctx, key, &cached); hit {
		return &cached, nil
	}

	docs, err := s.documents.ListByEmployee(ctx, employeeID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load documents")
	}
	types, err := s.loadCatalog(ctx)
	if err != nil {
		return nil, err
	}
	ruleRows, err := s.rules.ListForScope(ctx, employee.CompanyID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load rules")
	}

	ruleSet := compliance.NewRuleSet(ruleRows, employee.CompanyID)
	summary := s.engine.EvaluateEmployee(*employee, docs, types, ruleSet, asOf)

	view := &EmployeeComplianceView{AsOf: asOf, Summary: summary}
	if err := s.cache.Set(ctx, key, view, s.viewTTL); err != nil {
		s.logger.Warn("failed to cache employee view", zap.Error(err))
	}
	return view, nil
}

// CompanyView evaluates every tracked employee of one company.
func (s *ComplianceService) CompanyView(ctx context.Context, companyID string, asOf time.Time) (*CompanyComplianceView, error) {
	asOf = normalizeAsOf(asOf)

	key := CompanyViewKey(companyID, asOf)
	var cached CompanyComplianceView
	if hit, _ := s.cache.Get(ctx, key, &cached); hit {
		return &cached, nil
	}

	employees, err := s.employees.ListByCompany(ctx, companyID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load employees")
	}

	summaries, err := s.evaluate(ctx, employees, companyID, asOf)
	if err != nil {
		return nil, err
	}

	view := &CompanyComplianceView{
		CompanyID: companyID,
		AsOf:      asOf,
		Group:     compliance.SummarizeGroup(summaries),
		Employees: summaries,
	}
	s.publishExposure(companyID, view.Group, summaries)
	if err := s.cache.Set(ctx, key, view, s.viewTTL); err != nil {
		s.logger.Warn("failed to cache company view", zap.Error(err))
	}
	return view, nil
}

// GlobalSummary rolls the whole workforce up into one group view.
func (s *ComplianceService) GlobalSummary(ctx context.Context, asOf time.Time) (*compliance.GroupSummary, error) {
	asOf = normalizeAsOf(asOf)

	employees, err := s.employees.ListAllActive(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load employees")
	}

	summaries, err := s.evaluate(ctx, employees, "", asOf)
	if err != nil {
		return nil, err
	}
	group := compliance.SummarizeGroup(summaries)
	return &group, nil
}

// EvaluateCompanyEmployees exposes raw summaries for exports and dashboards.
func (s *ComplianceService) EvaluateCompanyEmployees(ctx context.Context, companyID string, asOf time.Time) ([]compliance.EmployeeSummary, error) {
	asOf = normalizeAsOf(asOf)
	employees, err := s.employees.ListByCompany(ctx, companyID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load employees")
	}
	return s.evaluate(ctx, employees, companyID, asOf)
}

// evaluate bulk-loads documents and rules for the given employees and runs
// the engine batch. An empty companyID loads the full rule table instead of
// one scope.
func (s *ComplianceService) evaluate(ctx context.Context, employees []models.Employee, companyID string, asOf time.Time) ([]compliance.EmployeeSummary, error) {
	if len(employees) == 0 {
		return []compliance.EmployeeSummary{}, nil
	}
	start := time.Now()

	ids := make([]string, len(employees))
	for i, emp := range employees {
		ids[i] = emp.ID
	}
	docsByEmployee, err := s.documents.ListActiveByEmployees(ctx, ids)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load documents")
	}
	types, err := s.loadCatalog(ctx)
	if err != nil {
		return nil, err
	}

	var ruleRows []models.ComplianceRule
	if companyID == "" {
		ruleRows, err = s.rules.ListAll(ctx)
	} else {
		ruleRows, err = s.rules.ListForScope(ctx, companyID)
	}
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load rules")
	}

	inputs := make([]compliance.EmployeeInput, len(employees))
	for i, emp := range employees {
		inputs[i] = compliance.EmployeeInput{Employee: emp, Documents: docsByEmployee[emp.ID]}
	}

	summaries, err := s.engine.EvaluateBatch(ctx, inputs, types, ruleRows, asOf)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "batch evaluation failed")
	}

	if s.metrics != nil {
		s.metrics.ObserveEvaluation(len(employees), time.Since(start))
	}
	return summaries, nil
}

func (s *ComplianceService) loadCatalog(ctx context.Context) (map[string]models.DocumentType, error) {
	rows, err := s.catalog.ListAll(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load document types")
	}
	types := make(map[string]models.DocumentType, len(rows))
	for _, row := range rows {
		types[row.Key] = row
	}
	return types, nil
}

func (s *ComplianceService) publishExposure(companyID string, group compliance.GroupSummary, summaries []compliance.EmployeeSummary) {
	if s.metrics == nil {
		return
	}
	penaltyDocs := 0
	for _, emp := range summaries {
		for _, doc := range emp.Documents {
			if doc.State == compliance.StatePenaltyActive {
				penaltyDocs++
			}
		}
	}
	totalFine, _ := group.TotalFine.Float64()
	burnRate, _ := group.DailyBurnRate.Float64()
	s.metrics.RecordCompanyExposure(companyID, totalFine, burnRate, penaltyDocs)
}

func normalizeAsOf(asOf time.Time) time.Time {
	if asOf.IsZero() {
		asOf = time.Now()
	}
	return compliance.Day(asOf)
}
