package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/manpowerhq/compliance-api/internal/models"
	appErrors "github.com/manpowerhq/compliance-api/pkg/errors"
)

// DocumentRepository manages persistence for document records and the
// renewal chain between instances.
type DocumentRepository struct {
	db *sqlx.DB
}

// NewDocumentRepository constructs a DocumentRepository.
func NewDocumentRepository(db *sqlx.DB) *DocumentRepository {
	return &DocumentRepository{db: db}
}

const documentColumns = `id, employee_id, type_key, issue_date, expiry_date, fields, file_name, file_path, file_size, file_type, active, renewed_from, created_at, updated_at`

// List returns document records matching the provided filters.
func (r *DocumentRepository) List(ctx context.Context, filter models.DocumentFilter) ([]models.DocumentRecord, int, error) {
	base := "FROM document_records"
	args := []interface{}{}
	conditions := []string{"1=1"}

	if filter.EmployeeID != "" {
		conditions = append(conditions, fmt.Sprintf("employee_id = $%d", len(args)+1))
		args = append(args, filter.EmployeeID)
	}
	if filter.TypeKey != "" {
		conditions = append(conditions, fmt.Sprintf("type_key = $%d", len(args)+1))
		args = append(args, filter.TypeKey)
	}
	if filter.ActiveOnly {
		conditions = append(conditions, "active = true")
	}
	base = fmt.Sprintf("%s WHERE %s", base, strings.Join(conditions, " AND "))

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf("SELECT %s %s ORDER BY created_at DESC LIMIT %d OFFSET %d", documentColumns, base, size, offset)
	var docs []models.DocumentRecord
	if err := r.db.SelectContext(ctx, &docs, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list documents: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(id) "+base, args...); err != nil {
		return nil, 0, fmt.Errorf("count documents: %w", err)
	}
	return docs, total, nil
}

// FindByID fetches one document record.
func (r *DocumentRepository) FindByID(ctx context.Context, id string) (*models.DocumentRecord, error) {
	query := fmt.Sprintf("SELECT %s FROM document_records WHERE id = $1", documentColumns)
	var doc models.DocumentRecord
	if err := r.db.GetContext(ctx, &doc, query, id); err != nil {
		return nil, err
	}
	return &doc, nil
}

// ListByEmployee returns every document of one employee, active and
// superseded. Callers evaluating compliance filter on Active themselves.
func (r *DocumentRepository) ListByEmployee(ctx context.Context, employeeID string) ([]models.DocumentRecord, error) {
	query := fmt.Sprintf("SELECT %s FROM document_records WHERE employee_id = $1 ORDER BY type_key, created_at DESC", documentColumns)
	var docs []models.DocumentRecord
	if err := r.db.SelectContext(ctx, &docs, query, employeeID); err != nil {
		return nil, fmt.Errorf("list employee documents: %w", err)
	}
	return docs, nil
}

// ListActiveByEmployees bulk-loads the active documents of many employees in
// one round trip, grouped by employee.
func (r *DocumentRepository) ListActiveByEmployees(ctx context.Context, employeeIDs []string) (map[string][]models.DocumentRecord, error) {
	grouped := make(map[string][]models.DocumentRecord, len(employeeIDs))
	if len(employeeIDs) == 0 {
		return grouped, nil
	}

	query, args, err := sqlx.In(
		fmt.Sprintf("SELECT %s FROM document_records WHERE active = true AND employee_id IN (?)", documentColumns),
		employeeIDs,
	)
	if err != nil {
		return nil, fmt.Errorf("build documents query: %w", err)
	}
	query = r.db.Rebind(query)

	var docs []models.DocumentRecord
	if err := r.db.SelectContext(ctx, &docs, query, args...); err != nil {
		return nil, fmt.Errorf("list documents by employees: %w", err)
	}
	for _, doc := range docs {
		grouped[doc.EmployeeID] = append(grouped[doc.EmployeeID], doc)
	}
	return grouped, nil
}

// ListExpiringActive returns active date-bearing documents whose expiry falls
// on or before the horizon, joined with employee and company names for alert
// feeds.
func (r *DocumentRepository) ListExpiringActive(ctx context.Context, horizon time.Time) ([]models.DocumentWithEmployee, error) {
	const query = `SELECT d.id, d.employee_id, d.type_key, d.issue_date, d.expiry_date, d.fields, d.file_name, d.file_path, d.file_size, d.file_type, d.active, d.renewed_from, d.created_at, d.updated_at,
        e.name AS employee_name, e.company_id AS company_id, c.name AS company_name
        FROM document_records d
        JOIN employees e ON e.id = d.employee_id
        JOIN companies c ON c.id = e.company_id
        WHERE d.active = true AND d.expiry_date IS NOT NULL AND d.expiry_date <= $1 AND e.status <> $2
        ORDER BY d.expiry_date`
	var docs []models.DocumentWithEmployee
	if err := r.db.SelectContext(ctx, &docs, query, horizon, models.EmployeeInactive); err != nil {
		return nil, fmt.Errorf("list expiring documents: %w", err)
	}
	return docs, nil
}

// FindActiveByType fetches the single active instance of one type for one
// employee.
func (r *DocumentRepository) FindActiveByType(ctx context.Context, employeeID, typeKey string) (*models.DocumentRecord, error) {
	query := fmt.Sprintf("SELECT %s FROM document_records WHERE employee_id = $1 AND type_key = $2 AND active = true LIMIT 1", documentColumns)
	var doc models.DocumentRecord
	if err := r.db.GetContext(ctx, &doc, query, employeeID, typeKey); err != nil {
		return nil, err
	}
	return &doc, nil
}

// Create inserts a new document record.
func (r *DocumentRepository) Create(ctx context.Context, doc *models.DocumentRecord) error {
	prepareDocument(doc)
	const query = `INSERT INTO document_records (id, employee_id, type_key, issue_date, expiry_date, fields, file_name, file_path, file_size, file_type, active, renewed_from, created_at, updated_at)
        VALUES (:id, :employee_id, :type_key, :issue_date, :expiry_date, :fields, :file_name, :file_path, :file_size, :file_type, :active, :renewed_from, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, doc); err != nil {
		return fmt.Errorf("create document: %w", err)
	}
	return nil
}

// Update modifies an existing document record in place. Renewal goes through
// Renew instead so the old instance survives.
func (r *DocumentRepository) Update(ctx context.Context, doc *models.DocumentRecord) error {
	doc.UpdatedAt = time.Now().UTC()
	const query = `UPDATE document_records SET issue_date = :issue_date, expiry_date = :expiry_date, fields = :fields, file_name = :file_name, file_path = :file_path, file_size = :file_size, file_type = :file_type, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, doc); err != nil {
		return fmt.Errorf("update document: %w", err)
	}
	return nil
}

// Renew supersedes the old instance and inserts the replacement in one
// transaction, so there is never a moment with two active instances of the
// same type.
func (r *DocumentRepository) Renew(ctx context.Context, oldID string, replacement *models.DocumentRecord) error {
	prepareDocument(replacement)
	replacement.RenewedFrom = &oldID

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin renewal: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx,
		`UPDATE document_records SET active = false, updated_at = $2 WHERE id = $1 AND active = true`,
		oldID, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("supersede document: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("supersede document: %w", err)
	}
	if affected == 0 {
		return appErrors.ErrDocumentSuperseded
	}

	const insert = `INSERT INTO document_records (id, employee_id, type_key, issue_date, expiry_date, fields, file_name, file_path, file_size, file_type, active, renewed_from, created_at, updated_at)
        VALUES (:id, :employee_id, :type_key, :issue_date, :expiry_date, :fields, :file_name, :file_path, :file_size, :file_type, :active, :renewed_from, :created_at, :updated_at)`
	if _, err := tx.NamedExecContext(ctx, insert, replacement); err != nil {
		return fmt.Errorf("insert renewal: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit renewal: %w", err)
	}
	return nil
}

// Deactivate marks a document record inactive without a replacement.
func (r *DocumentRepository) Deactivate(ctx context.Context, id string) error {
	const query = `UPDATE document_records SET active = false, updated_at = $2 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, time.Now().UTC()); err != nil {
		return fmt.Errorf("deactivate document: %w", err)
	}
	return nil
}

func prepareDocument(doc *models.DocumentRecord) {
	if doc.ID == "" {
		doc.ID = uuid.NewString()
	}
	if doc.Fields == nil {
		doc.Fields = models.JSONMap{}
	}
	now := time.Now().UTC()
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = now
	}
	doc.UpdatedAt = now
	doc.Active = true
}
