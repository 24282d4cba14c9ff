package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/manpowerhq/compliance-api/internal/compliance"
	"github.com/manpowerhq/compliance-api/internal/models"
	appErrors "github.com/manpowerhq/compliance-api/pkg/errors"
)

type employeeRepository interface {
	List(ctx context.Context, filter models.EmployeeFilter) ([]models.EmployeeWithCompany, int, error)
	FindByID(ctx context.Context, id string) (*models.Employee, error)
	ExistsByMobile(ctx context.Context, mobile string, excludeID string) (bool, error)
	Create(ctx context.Context, employee *models.Employee) error
	Update(ctx context.Context, employee *models.Employee) error
	SetStatus(ctx context.Context, id string, status models.EmployeeStatus) error
}

type employeeCompanyRepository interface {
	FindByID(ctx context.Context, id string) (*models.Company, error)
}

type employeeDocumentRepository interface {
	Create(ctx context.Context, doc *models.DocumentRecord) error
}

type documentTypeCatalog interface {
	ListAll(ctx context.Context) ([]models.DocumentType, error)
}

type employeeStatusEvaluator interface {
	EmployeeView(ctx context.Context, employeeID string, asOf time.Time) (*EmployeeComplianceView, error)
}

// EmployeeListItem is one list row with the evaluated compliance status
// attached. Status is empty when no evaluator is wired.
type EmployeeListItem struct {
	models.EmployeeWithCompany
	ComplianceStatus compliance.State `json:"compliance_status,omitempty"`
}

// CreateEmployeeRequest holds payload for onboarding an employee.
type CreateEmployeeRequest struct {
	CompanyID      string    `json:"company_id" validate:"required"`
	Name           string    `json:"name" validate:"required"`
	Trade          string    `json:"trade" validate:"required"`
	Mobile         string    `json:"mobile" validate:"required"`
	JoiningDate    time.Time `json:"joining_date" validate:"required"`
	Nationality    *string   `json:"nationality"`
	PassportNumber *string   `json:"passport_number"`
}

// UpdateEmployeeRequest holds payload for updating an employee.
type UpdateEmployeeRequest struct {
	Name           string                `json:"name" validate:"required"`
	Trade          string                `json:"trade" validate:"required"`
	Mobile         string                `json:"mobile" validate:"required"`
	JoiningDate    time.Time             `json:"joining_date" validate:"required"`
	Nationality    *string               `json:"nationality"`
	PassportNumber *string               `json:"passport_number"`
	Status         models.EmployeeStatus `json:"status" validate:"required,oneof=active inactive on_leave"`
}

// EmployeeService handles employee use-cases.
type EmployeeService struct {
	repo       employeeRepository
	companies  employeeCompanyRepository
	documents  employeeDocumentRepository
	catalog    documentTypeCatalog
	compliance employeeStatusEvaluator
	invalidor  cacheInvalidator
	validator  *validator.Validate
	logger     *zap.Logger
}

// EmployeeServiceParams bundles dependencies for NewEmployeeService.
type EmployeeServiceParams struct {
	Repo       employeeRepository
	Companies  employeeCompanyRepository
	Documents  employeeDocumentRepository
	Catalog    documentTypeCatalog
	Compliance employeeStatusEvaluator
	Cache      cacheInvalidator
	Validator  *validator.Validate
	Logger     *zap.Logger
}

// NewEmployeeService constructs the employee service.
func NewEmployeeService(params EmployeeServiceParams) *EmployeeService {
	if params.Validator == nil {
		params.Validator = validator.New()
	}
	if params.Logger == nil {
		params.Logger = zap.NewNop()
	}
	return &EmployeeService{
		repo:       params.Repo,
		companies:  params.Companies,
		documents:  params.Documents,
		catalog:    params.Catalog,
		compliance: params.Compliance,
		invalidor:  params.Cache,
		validator:  params.Validator,
		logger:     params.Logger,
	}
}

// List returns employees and pagination metadata. Each row carries the
// engine-evaluated compliance status for today; rows keep an empty status
// when evaluation fails so the list itself never errors on a bad document.
func (s *EmployeeService) List(ctx context.Context, filter models.EmployeeFilter) ([]EmployeeListItem, *models.Pagination, error) {
	employees, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list employees")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}

	items := make([]EmployeeListItem, len(employees))
	for i, employee := range employees {
		items[i] = EmployeeListItem{EmployeeWithCompany: employee}
		if s.compliance == nil {
			continue
		}
		view, err := s.compliance.EmployeeView(ctx, employee.ID, time.Time{})
		if err != nil {
			s.logger.Warn("failed to evaluate employee status for list",
				zap.String("employee_id", employee.ID), zap.Error(err))
			continue
		}
		items[i].ComplianceStatus = view.Summary.Status
	}
	return items, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Get returns one employee.
func (s *EmployeeService) Get(ctx context.Context, id string) (*models.Employee, error) {
	employee, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "employee not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load employee")
	}
	return employee, nil
}

// Create onboards a new employee. Every mandatory document type from the
// catalog gets a placeholder record immediately, so the employee shows up as
// incomplete until the real documents are captured.
func (s *EmployeeService) Create(ctx context.Context, req CreateEmployeeRequest) (*models.Employee, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid employee payload")
	}
	if _, err := s.companies.FindByID(ctx, req.CompanyID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "company not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load company")
	}
	exists, err := s.repo.ExistsByMobile(ctx, req.Mobile, "")
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to validate mobile")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "mobile number already used")
	}

	employee := &models.Employee{
		CompanyID:      req.CompanyID,
		Name:           req.Name,
		Trade:          req.Trade,
		Mobile:         req.Mobile,
		JoiningDate:    req.JoiningDate,
		Nationality:    req.Nationality,
		PassportNumber: req.PassportNumber,
		Status:         models.EmployeeActive,
	}
	if err := s.repo.Create(ctx, employee); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create employee")
	}

	if err := s.seedMandatoryDocuments(ctx, employee.ID); err != nil {
		s.logger.Warn("failed to seed mandatory document placeholders",
			zap.String("employee_id", employee.ID), zap.Error(err))
	}

	s.invalidate(ctx, employee.CompanyID)
	return employee, nil
}

// Update modifies an existing employee record.
func (s *EmployeeService) Update(ctx context.Context, id string, req UpdateEmployeeRequest) (*models.Employee, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid employee payload")
	}
	employee, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "employee not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load employee")
	}
	exists, err := s.repo.ExistsByMobile(ctx, req.Mobile, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to validate mobile")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "mobile number already used")
	}

	employee.Name = req.Name
	employee.Trade = req.Trade
	employee.Mobile = req.Mobile
	employee.JoiningDate = req.JoiningDate
	employee.Nationality = req.Nationality
	employee.PassportNumber = req.PassportNumber
	employee.Status = req.Status
	if err := s.repo.Update(ctx, employee); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update employee")
	}

	s.invalidate(ctx, employee.CompanyID)
	return employee, nil
}

// Offboard marks an employee inactive, taking them out of compliance
// tracking without erasing their document history.
func (s *EmployeeService) Offboard(ctx context.Context, id string) error {
	employee, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "employee not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load employee")
	}
	if err := s.repo.SetStatus(ctx, id, models.EmployeeInactive); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to offboard employee")
	}
	s.invalidate(ctx, employee.CompanyID)
	return nil
}

func (s *EmployeeService) seedMandatoryDocuments(ctx context.Context, employeeID string) error {
	if s.catalog == nil || s.documents == nil {
		return nil
	}
	types, err := s.catalog.ListAll(ctx)
	if err != nil {
		return err
	}
	for _, docType := range types {
		if !docType.Mandatory {
			continue
		}
		doc := &models.DocumentRecord{
			EmployeeID: employeeID,
			TypeKey:    docType.Key,
			Fields:     models.JSONMap{},
		}
		if err := s.documents.Create(ctx, doc); err != nil {
			return err
		}
	}
	return nil
}

func (s *EmployeeService) invalidate(ctx context.Context, companyID string) {
	if s.invalidor == nil {
		return
	}
	if err := s.invalidor.InvalidateCompany(ctx, companyID); err != nil {
		s.logger.Warn("failed to invalidate compliance cache", zap.String("company_id", companyID), zap.Error(err))
	}
}
