package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/manpowerhq/compliance-api/internal/models"
	appErrors "github.com/manpowerhq/compliance-api/pkg/errors"
)

type companyRepository interface {
	List(ctx context.Context, filter models.CompanyFilter) ([]models.Company, int, error)
	ListAll(ctx context.Context) ([]models.Company, error)
	FindByID(ctx context.Context, id string) (*models.Company, error)
	Create(ctx context.Context, company *models.Company) error
	Update(ctx context.Context, company *models.Company) error
}

// WriteCompanyRequest creates or updates a company.
type WriteCompanyRequest struct {
	Name         string  `json:"name" validate:"required"`
	TradeLicense *string `json:"trade_license"`
	ContactEmail *string `json:"contact_email" validate:"omitempty,email"`
}

// CompanyService manages company records.
type CompanyService struct {
	repo      companyRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewCompanyService constructs the company service.
func NewCompanyService(repo companyRepository, validate *validator.Validate, logger *zap.Logger) *CompanyService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CompanyService{repo: repo, validator: validate, logger: logger}
}

// List returns companies matching the filter with pagination metadata.
func (s *CompanyService) List(ctx context.Context, filter models.CompanyFilter) ([]models.Company, *models.Pagination, error) {
	companies, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list companies")
	}
	return companies, models.NewPagination(filter.Page, filter.PageSize, total), nil
}

// Get returns one company.
func (s *CompanyService) Get(ctx context.Context, id string) (*models.Company, error) {
	company, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "company not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load company")
	}
	return company, nil
}

// Create inserts a company.
func (s *CompanyService) Create(ctx context.Context, req WriteCompanyRequest) (*models.Company, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid company payload")
	}
	company := &models.Company{
		Name:         req.Name,
		TradeLicense: req.TradeLicense,
		ContactEmail: req.ContactEmail,
	}
	if err := s.repo.Create(ctx, company); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create company")
	}
	return company, nil
}

// Update modifies a company.
func (s *CompanyService) Update(ctx context.Context, id string, req WriteCompanyRequest) (*models.Company, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid company payload")
	}
	company, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	company.Name = req.Name
	company.TradeLicense = req.TradeLicense
	company.ContactEmail = req.ContactEmail
	if err := s.repo.Update(ctx, company); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update company")
	}
	return company, nil
}
