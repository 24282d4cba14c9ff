package service

import (
	"context"

	"github.com/go-playground/validator/v10"
	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/manpowerhq/compliance-api/internal/models"
	appErrors "github.com/manpowerhq/compliance-api/pkg/errors"
)

type documentTypeStore interface {
	ListAll(ctx context.Context) ([]models.DocumentType, error)
	Upsert(ctx context.Context, docType *models.DocumentType) error
}

// UpsertDocumentTypeRequest creates or replaces a catalog entry.
type UpsertDocumentTypeRequest struct {
	DisplayName    string   `json:"display_name" validate:"required"`
	Mandatory      bool     `json:"mandatory"`
	HasExpiry      bool     `json:"has_expiry"`
	RequiredFields []string `json:"required_fields"`
}

// CatalogService administers the document type catalog. Entries are reference
// data: rows are upserted by key and never deleted, since document records
// and rules refer to them.
type CatalogService struct {
	repo      documentTypeStore
	validator *validator.Validate
	logger    *zap.Logger
}

// NewCatalogService constructs the catalog service.
func NewCatalogService(repo documentTypeStore, validate *validator.Validate, logger *zap.Logger) *CatalogService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CatalogService{repo: repo, validator: validate, logger: logger}
}

// List returns every catalog entry.
func (s *CatalogService) List(ctx context.Context) ([]models.DocumentType, error) {
	types, err := s.repo.ListAll(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list document types")
	}
	return types, nil
}

// Upsert writes one catalog entry keyed by the type key.
func (s *CatalogService) Upsert(ctx context.Context, key string, req UpsertDocumentTypeRequest) (*models.DocumentType, error) {
	if key == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "type key is required")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid document type payload")
	}
	docType := &models.DocumentType{
		Key:            key,
		DisplayName:    req.DisplayName,
		Mandatory:      req.Mandatory,
		HasExpiry:      req.HasExpiry,
		RequiredFields: pq.StringArray(req.RequiredFields),
	}
	if err := s.repo.Upsert(ctx, docType); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to upsert document type")
	}
	return docType, nil
}
