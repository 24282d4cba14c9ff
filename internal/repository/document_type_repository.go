package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/manpowerhq/compliance-api/internal/models"
)

// DocumentTypeRepository manages the document type catalog. Reference data,
// loaded whole.
type DocumentTypeRepository struct {
	db *sqlx.DB
}

// NewDocumentTypeRepository constructs a DocumentTypeRepository.
func NewDocumentTypeRepository(db *sqlx.DB) *DocumentTypeRepository {
	return &DocumentTypeRepository{db: db}
}

// ListAll returns the full catalog.
func (r *DocumentTypeRepository) ListAll(ctx context.Context) ([]models.DocumentType, error) {
	const query = `SELECT key, display_name, mandatory, has_expiry, required_fields, created_at FROM document_types ORDER BY key`
	var types []models.DocumentType
	if err := r.db.SelectContext(ctx, &types, query); err != nil {
		return nil, fmt.Errorf("list document types: %w", err)
	}
	return types, nil
}

// FindByKey fetches one catalog entry.
func (r *DocumentTypeRepository) FindByKey(ctx context.Context, key string) (*models.DocumentType, error) {
	const query = `SELECT key, display_name, mandatory, has_expiry, required_fields, created_at FROM document_types WHERE key = $1`
	var docType models.DocumentType
	if err := r.db.GetContext(ctx, &docType, query, key); err != nil {
		return nil, err
	}
	return &docType, nil
}

// Upsert creates or replaces a catalog entry.
func (r *DocumentTypeRepository) Upsert(ctx context.Context, docType *models.DocumentType) error {
	if docType.CreatedAt.IsZero() {
		docType.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO document_types (key, display_name, mandatory, has_expiry, required_fields, created_at)
        VALUES (:key, :display_name, :mandatory, :has_expiry, :required_fields, :created_at)
        ON CONFLICT (key) DO UPDATE SET display_name = EXCLUDED.display_name, mandatory = EXCLUDED.mandatory, has_expiry = EXCLUDED.has_expiry, required_fields = EXCLUDED.required_fields`
	if _, err := r.db.NamedExecContext(ctx, query, docType); err != nil {
		return fmt.Errorf("upsert document type: %w", err)
	}
	return nil
}
