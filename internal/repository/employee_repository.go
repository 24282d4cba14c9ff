package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/manpowerhq/compliance-api/internal/models"
)

// EmployeeRepository manages persistence for employee records.
type EmployeeRepository struct {
	db *sqlx.DB
}

// NewEmployeeRepository constructs an EmployeeRepository.
func NewEmployeeRepository(db *sqlx.DB) *EmployeeRepository {
	return &EmployeeRepository{db: db}
}

// List returns employees matching the provided filters.
func (r *EmployeeRepository) List(ctx context.Context, filter models.EmployeeFilter) ([]models.EmployeeWithCompany, int, error) {
	base := "FROM employees e JOIN companies c ON c.id = e.company_id"
	args := []interface{}{}
	conditions := []string{"1=1"}

	if filter.CompanyID != "" {
		conditions = append(conditions, fmt.Sprintf("e.company_id = $%d", len(args)+1))
		args = append(args, filter.CompanyID)
	}
	if filter.Status != nil {
		conditions = append(conditions, fmt.Sprintf("e.status = $%d", len(args)+1))
		args = append(args, *filter.Status)
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(LOWER(e.name) LIKE $%d OR LOWER(e.trade) LIKE $%d OR e.mobile LIKE $%d)", len(args)+1, len(args)+1, len(args)+1))
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}

	base = fmt.Sprintf("%s WHERE %s", base, strings.Join(conditions, " AND "))

	allowedSorts := map[string]string{
		"name":         "e.name",
		"joining_date": "e.joining_date",
		"created_at":   "e.created_at",
	}
	column, ok := allowedSorts[filter.SortBy]
	if !ok {
		column = "e.created_at"
	}
	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "DESC"
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf(`SELECT e.id, e.company_id, e.name, e.trade, e.mobile, e.joining_date, e.nationality, e.passport_number, e.status, e.created_at, e.updated_at,
        c.name AS company_name
        %s ORDER BY %s %s LIMIT %d OFFSET %d`, base, column, order, size, offset)

	var employees []models.EmployeeWithCompany
	if err := r.db.SelectContext(ctx, &employees, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list employees: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(e.id) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count employees: %w", err)
	}
	return employees, total, nil
}

// FindByID fetches an employee by ID.
func (r *EmployeeRepository) FindByID(ctx context.Context, id string) (*models.Employee, error) {
	const query = `SELECT id, company_id, name, trade, mobile, joining_date, nationality, passport_number, status, created_at, updated_at
        FROM employees WHERE id = $1`
	var employee models.Employee
	if err := r.db.GetContext(ctx, &employee, query, id); err != nil {
		return nil, err
	}
	return &employee, nil
}

// ListByCompany returns every employee of one company regardless of paging.
// Batch evaluation loads whole companies at once.
func (r *EmployeeRepository) ListByCompany(ctx context.Context, companyID string) ([]models.Employee, error) {
	const query = `SELECT id, company_id, name, trade, mobile, joining_date, nationality, passport_number, status, created_at, updated_at
        FROM employees WHERE company_id = $1 AND status <> $2 ORDER BY name`
	var employees []models.Employee
	if err := r.db.SelectContext(ctx, &employees, query, companyID, models.EmployeeInactive); err != nil {
		return nil, fmt.Errorf("list company employees: %w", err)
	}
	return employees, nil
}

// ListAllActive returns every tracked employee across companies.
func (r *EmployeeRepository) ListAllActive(ctx context.Context) ([]models.Employee, error) {
	const query = `SELECT id, company_id, name, trade, mobile, joining_date, nationality, passport_number, status, created_at, updated_at
        FROM employees WHERE status <> $1 ORDER BY company_id, name`
	var employees []models.Employee
	if err := r.db.SelectContext(ctx, &employees, query, models.EmployeeInactive); err != nil {
		return nil, fmt.Errorf("list active employees: %w", err)
	}
	return employees, nil
}

// ExistsByMobile checks if an employee with the mobile number exists,
// optionally excluding an ID.
func (r *EmployeeRepository) ExistsByMobile(ctx context.Context, mobile string, excludeID string) (bool, error) {
	query := "SELECT 1 FROM employees WHERE mobile = $1"
	args := []interface{}{mobile}
	if excludeID != "" {
		query += " AND id <> $2"
		args = append(args, excludeID)
	}
	var exists int
	if err := r.db.GetContext(ctx, &exists, query+" LIMIT 1", args...); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check mobile: %w", err)
	}
	return true, nil
}

// Create inserts a new employee record.
func (r *EmployeeRepository) Create(ctx context.Context, employee *models.Employee) error {
	if employee.ID == "" {
		employee.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if employee.CreatedAt.IsZero() {
		employee.CreatedAt = now
	}
	employee.UpdatedAt = now
	const query = `INSERT INTO employees (id, company_id, name, trade, mobile, joining_date, nationality, passport_number, status, created_at, updated_at)
        VALUES (:id, :company_id, :name, :trade, :mobile, :joining_date, :nationality, :passport_number, :status, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, employee); err != nil {
		return fmt.Errorf("create employee: %w", err)
	}
	return nil
}

// Update modifies an existing employee.
func (r *EmployeeRepository) Update(ctx context.Context, employee *models.Employee) error {
	employee.UpdatedAt = time.Now().UTC()
	const query = `UPDATE employees SET company_id = :company_id, name = :name, trade = :trade, mobile = :mobile, joining_date = :joining_date, nationality = :nationality, passport_number = :passport_number, status = :status, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, employee); err != nil {
		return fmt.Errorf("update employee: %w", err)
	}
	return nil
}

// SetStatus transitions an employee's employment status.
func (r *EmployeeRepository) SetStatus(ctx context.Context, id string, status models.EmployeeStatus) error {
	const query = `UPDATE employees SET status = $2, updated_at = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, status, time.Now().UTC()); err != nil {
		return fmt.Errorf("set employee status: %w", err)
	}
	return nil
}
