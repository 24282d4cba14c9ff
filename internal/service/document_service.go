package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/manpowerhq/compliance-api/internal/models"
	appErrors "github.com/manpowerhq/compliance-api/pkg/errors"
)

type documentRepository interface {
	List(ctx context.Context, filter models.DocumentFilter) ([]models.DocumentRecord, int, error)
	FindByID(ctx context.Context, id string) (*models.DocumentRecord, error)
	FindActiveByType(ctx context.Context, employeeID, typeKey string) (*models.DocumentRecord, error)
	Create(ctx context.Context, doc *models.DocumentRecord) error
	Update(ctx context.Context, doc *models.DocumentRecord) error
	Renew(ctx context.Context, oldID string, replacement *models.DocumentRecord) error
	Deactivate(ctx context.Context, id string) error
}

type documentEmployeeFinder interface {
	FindByID(ctx context.Context, id string) (*models.Employee, error)
}

type documentTypeFinder interface {
	FindByKey(ctx context.Context, key string) (*models.DocumentType, error)
}

type fileStore interface {
	Save(filename string, data []byte) (string, error)
	Delete(filename string) error
}

// FileUpload carries an uploaded scan alongside a document write.
type FileUpload struct {
	Name        string
	ContentType string
	Data        []byte
}

// CaptureDocumentRequest records or replaces the data of a document.
type CaptureDocumentRequest struct {
	EmployeeID string            `json:"employee_id" validate:"required"`
	TypeKey    string            `json:"type_key" validate:"required"`
	IssueDate  *time.Time        `json:"issue_date"`
	ExpiryDate *time.Time        `json:"expiry_date"`
	Fields     map[string]string `json:"fields"`
}

// RenewDocumentRequest supersedes the active instance with a fresh one.
type RenewDocumentRequest struct {
	IssueDate  *time.Time        `json:"issue_date" validate:"required"`
	ExpiryDate *time.Time        `json:"expiry_date" validate:"required"`
	Fields     map[string]string `json:"fields"`
}

// DocumentService handles document capture, update and renewal.
type DocumentService struct {
	repo      documentRepository
	employees documentEmployeeFinder
	catalog   documentTypeFinder
	files     fileStore
	audit     auditRecorder
	invalidor cacheInvalidator
	validator *validator.Validate
	logger    *zap.Logger
}

// DocumentServiceParams bundles dependencies for NewDocumentService.
type DocumentServiceParams struct {
	Repo      documentRepository
	Employees documentEmployeeFinder
	Catalog   documentTypeFinder
	Files     fileStore
	Audit     auditRecorder
	Cache     cacheInvalidator
	Validator *validator.Validate
	Logger    *zap.Logger
}

// NewDocumentService constructs the document service.
func NewDocumentService(params DocumentServiceParams) *DocumentService {
	if params.Validator == nil {
		params.Validator = validator.New()
	}
	if params.Logger == nil {
		params.Logger = zap.NewNop()
	}
	return &DocumentService{
		repo:      params.Repo,
		employees: params.Employees,
		catalog:   params.Catalog,
		files:     params.Files,
		audit:     params.Audit,
		invalidor: params.Cache,
		validator: params.Validator,
		logger:    params.Logger,
	}
}

// List returns document records and pagination metadata.
func (s *DocumentService) List(ctx context.Context, filter models.DocumentFilter) ([]models.DocumentRecord, *models.Pagination, error) {
	docs, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list documents")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	return docs, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Get returns one document record.
func (s *DocumentService) Get(ctx context.Context, id string) (*models.DocumentRecord, error) {
	doc, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "document not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load document")
	}
	return doc, nil
}

// Capture fills in the data of a document. If an active instance of the type
// already exists it is updated in place; otherwise a new instance is created.
// Onboarding placeholders get completed through this path.
func (s *DocumentService) Capture(ctx context.Context, req CaptureDocumentRequest, upload *FileUpload, actorID string) (*models.DocumentRecord, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid document payload")
	}

	employee, err := s.employees.FindByID(ctx, req.EmployeeID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "employee not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load employee")
	}
	docType, err := s.catalog.FindByKey(ctx, req.TypeKey)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "unknown document type")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load document type")
	}
	if err := validateDates(docType, req.IssueDate, req.ExpiryDate); err != nil {
		return nil, err
	}

	doc, err := s.repo.FindActiveByType(ctx, req.EmployeeID, req.TypeKey)
	switch {
	case err == nil:
		doc.IssueDate = req.IssueDate
		doc.ExpiryDate = req.ExpiryDate
		doc.Fields = models.JSONMap(req.Fields)
		if err := s.attachFile(doc, upload); err != nil {
			return nil, err
		}
		if err := s.repo.Update(ctx, doc); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update document")
		}
	case errors.Is(err, sql.ErrNoRows):
		doc = &models.DocumentRecord{
			EmployeeID: req.EmployeeID,
			TypeKey:    req.TypeKey,
			IssueDate:  req.IssueDate,
			ExpiryDate: req.ExpiryDate,
			Fields:     models.JSONMap(req.Fields),
		}
		if err := s.attachFile(doc, upload); err != nil {
			return nil, err
		}
		if err := s.repo.Create(ctx, doc); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create document")
		}
	default:
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load document")
	}

	s.recordAudit(ctx, actorID, doc, "capture")
	s.invalidate(ctx, employee.CompanyID)
	return doc, nil
}

// Renew supersedes the active instance of a document with a fresh one. The
// superseded instance stays in the history chain; its fine accrual stops the
// moment it goes inactive.
func (s *DocumentService) Renew(ctx context.Context, documentID string, req RenewDocumentRequest, upload *FileUpload, actorID string) (*models.DocumentRecord, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid renewal payload")
	}

	current, err := s.repo.FindByID(ctx, documentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "document not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load document")
	}
	if !current.Active {
		return nil, appErrors.Clone(appErrors.ErrDocumentSuperseded, "document has already been renewed")
	}
	docType, err := s.catalog.FindByKey(ctx, current.TypeKey)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load document type")
	}
	if err := validateDates(docType, req.IssueDate, req.ExpiryDate); err != nil {
		return nil, err
	}

	fields := models.JSONMap(req.Fields)
	if fields == nil {
		fields = current.Fields
	}
	replacement := &models.DocumentRecord{
		EmployeeID: current.EmployeeID,
		TypeKey:    current.TypeKey,
		IssueDate:  req.IssueDate,
		ExpiryDate: req.ExpiryDate,
		Fields:     fields,
	}
	if err := s.attachFile(replacement, upload); err != nil {
		return nil, err
	}

	if err := s.repo.Renew(ctx, current.ID, replacement); err != nil {
		var appErr *appErrors.Error
		if errors.As(err, &appErr) {
			return nil, appErr
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to renew document")
	}

	employee, err := s.employees.FindByID(ctx, current.EmployeeID)
	if err == nil {
		s.invalidate(ctx, employee.CompanyID)
	}
	s.recordAudit(ctx, actorID, replacement, "renew")
	return replacement, nil
}

// Deactivate retires a document without replacement.
func (s *DocumentService) Deactivate(ctx context.Context, id string, actorID string) error {
	doc, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "document not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load document")
	}
	if err := s.repo.Deactivate(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to deactivate document")
	}

	employee, err := s.employees.FindByID(ctx, doc.EmployeeID)
	if err == nil {
		s.invalidate(ctx, employee.CompanyID)
	}
	s.recordAudit(ctx, actorID, doc, "deactivate")
	return nil
}

func (s *DocumentService) attachFile(doc *models.DocumentRecord, upload *FileUpload) error {
	if upload == nil || len(upload.Data) == 0 {
		return nil
	}
	if s.files == nil {
		return appErrors.Clone(appErrors.ErrInternal, "file storage is not configured")
	}
	ext := filepath.Ext(upload.Name)
	relPath := fmt.Sprintf("documents/%s/%s%s", doc.EmployeeID, uuid.NewString(), ext)
	stored, err := s.files.Save(relPath, upload.Data)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store file")
	}
	size := int64(len(upload.Data))
	doc.FileName = &upload.Name
	doc.FilePath = &stored
	doc.FileSize = &size
	doc.FileType = &upload.ContentType
	return nil
}

func (s *DocumentService) recordAudit(ctx context.Context, actorID string, doc *models.DocumentRecord, operation string) {
	if s.audit == nil {
		return
	}
	payload, _ := json.Marshal(map[string]string{
		"operation":   operation,
		"type_key":    doc.TypeKey,
		"employee_id": doc.EmployeeID,
	})
	entry := &models.AuditLog{
		Action:     models.AuditActionDocumentWrite,
		Resource:   "document",
		ResourceID: &doc.ID,
		NewValues:  payload,
	}
	if actorID != "" {
		entry.UserID = &actorID
	}
	if err := s.audit.Create(ctx, entry); err != nil {
		s.logger.Warn("failed to record document audit log", zap.Error(err))
	}
}

func (s *DocumentService) invalidate(ctx context.Context, companyID string) {
	if s.invalidor == nil {
		return
	}
	if err := s.invalidor.InvalidateCompany(ctx, companyID); err != nil {
		s.logger.Warn("failed to invalidate compliance cache", zap.String("company_id", companyID), zap.Error(err))
	}
}

func validateDates(docType *models.DocumentType, issue, expiry *time.Time) error {
	if !docType.HasExpiry {
		return nil
	}
	if issue != nil && expiry != nil && expiry.Before(*issue) {
		return appErrors.Clone(appErrors.ErrValidation, "expiry date precedes issue date")
	}
	return nil
}
