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

// RuleRepository manages persistence for compliance rules.
type RuleRepository struct {
	db *sqlx.DB
}

// NewRuleRepository constructs a RuleRepository.
func NewRuleRepository(db *sqlx.DB) *RuleRepository {
	return &RuleRepository{db: db}
}

const ruleColumns = `id, company_id, type_key, grace_days, fine_rate, fine_type, fine_cap, mandatory_override, created_at, updated_at`

// List returns rules matching the provided filters.
func (r *RuleRepository) List(ctx context.Context, filter models.RuleFilter) ([]models.ComplianceRule, error) {
	base := "FROM compliance_rules"
	args := []interface{}{}
	conditions := []string{"1=1"}

	if filter.CompanyID != nil {
		if *filter.CompanyID == "" {
			conditions = append(conditions, "company_id IS NULL")
		} else {
			conditions = append(conditions, fmt.Sprintf("company_id = $%d", len(args)+1))
			args = append(args, *filter.CompanyID)
		}
	}
	if filter.TypeKey != "" {
		conditions = append(conditions, fmt.Sprintf("type_key = $%d", len(args)+1))
		args = append(args, filter.TypeKey)
	}
	base = fmt.Sprintf("%s WHERE %s", base, strings.Join(conditions, " AND "))

	query := fmt.Sprintf("SELECT %s %s ORDER BY type_key, company_id NULLS FIRST", ruleColumns, base)
	var rules []models.ComplianceRule
	if err := r.db.SelectContext(ctx, &rules, query, args...); err != nil {
		return nil, fmt.Errorf("list rules: %w", err)
	}
	return rules, nil
}

// ListForScope returns the rule snapshot relevant to one company: all global
// rows plus the rows scoped to that company. An empty companyID loads global
// rows only.
func (r *RuleRepository) ListForScope(ctx context.Context, companyID string) ([]models.ComplianceRule, error) {
	query := fmt.Sprintf("SELECT %s FROM compliance_rules WHERE company_id IS NULL", ruleColumns)
	args := []interface{}{}
	if companyID != "" {
		query += " OR company_id = $1"
		args = append(args, companyID)
	}
	var rules []models.ComplianceRule
	if err := r.db.SelectContext(ctx, &rules, query+" ORDER BY type_key", args...); err != nil {
		return nil, fmt.Errorf("list scope rules: %w", err)
	}
	return rules, nil
}

// ListAll returns every rule row for global batch evaluation.
func (r *RuleRepository) ListAll(ctx context.Context) ([]models.ComplianceRule, error) {
	query := fmt.Sprintf("SELECT %s FROM compliance_rules ORDER BY type_key", ruleColumns)
	var rules []models.ComplianceRule
	if err := r.db.SelectContext(ctx, &rules, query); err != nil {
		return nil, fmt.Errorf("list all rules: %w", err)
	}
	return rules, nil
}

// FindByID fetches one rule row.
func (r *RuleRepository) FindByID(ctx context.Context, id string) (*models.ComplianceRule, error) {
	query := fmt.Sprintf("SELECT %s FROM compliance_rules WHERE id = $1", ruleColumns)
	var rule models.ComplianceRule
	if err := r.db.GetContext(ctx, &rule, query, id); err != nil {
		return nil, err
	}
	return &rule, nil
}

// ExistsForScope checks whether a rule already exists for the exact
// (company, type) scope, optionally excluding an ID. One row per scope is an
// invariant enforced at the service layer.
func (r *RuleRepository) ExistsForScope(ctx context.Context, companyID *string, typeKey string, excludeID string) (bool, error) {
	query := "SELECT 1 FROM compliance_rules WHERE type_key = $1"
	args := []interface{}{typeKey}
	if companyID == nil {
		query += " AND company_id IS NULL"
	} else {
		query += fmt.Sprintf(" AND company_id = $%d", len(args)+1)
		args = append(args, *companyID)
	}
	if excludeID != "" {
		query += fmt.Sprintf(" AND id <> $%d", len(args)+1)
		args = append(args, excludeID)
	}
	var exists int
	if err := r.db.GetContext(ctx, &exists, query+" LIMIT 1", args...); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check rule scope: %w", err)
	}
	return true, nil
}

// Create inserts a new rule row.
func (r *RuleRepository) Create(ctx context.Context, rule *models.ComplianceRule) error {
	if rule.ID == "" {
		rule.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if rule.CreatedAt.IsZero() {
		rule.CreatedAt = now
	}
	rule.UpdatedAt = now
	const query = `INSERT INTO compliance_rules (id, company_id, type_key, grace_days, fine_rate, fine_type, fine_cap, mandatory_override, created_at, updated_at)
        VALUES (:id, :company_id, :type_key, :grace_days, :fine_rate, :fine_type, :fine_cap, :mandatory_override, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, rule); err != nil {
		return fmt.Errorf("create rule: %w", err)
	}
	return nil
}

// Update modifies an existing rule row.
func (r *RuleRepository) Update(ctx context.Context, rule *models.ComplianceRule) error {
	rule.UpdatedAt = time.Now().UTC()
	const query = `UPDATE compliance_rules SET grace_days = :grace_days, fine_rate = :fine_rate, fine_type = :fine_type, fine_cap = :fine_cap, mandatory_override = :mandatory_override, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, rule); err != nil {
		return fmt.Errorf("update rule: %w", err)
	}
	return nil
}

// Delete removes a rule row.
func (r *RuleRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, "DELETE FROM compliance_rules WHERE id = $1", id); err != nil {
		return fmt.Errorf("delete rule: %w", err)
	}
	return nil
}
