package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/manpowerhq/compliance-api/internal/models"
)

func newRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestRuleRepositoryListForScope(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewRuleRepository(db)

	rows := sqlmock.NewRows([]string{"id", "company_id", "type_key", "grace_days", "fine_rate", "fine_type", "fine_cap", "mandatory_override", "created_at", "updated_at"}).
		AddRow("rule-1", nil, "visa", 30, "50", "daily", "5000", nil, time.Now(), time.Now()).
		AddRow("rule-2", "co-1", "visa", nil, "100", nil, nil, nil, time.Now(), time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, company_id, type_key, grace_days, fine_rate, fine_type, fine_cap, mandatory_override, created_at, updated_at FROM compliance_rules WHERE company_id IS NULL OR company_id = $1 ORDER BY type_key")).
		WithArgs("co-1").
		WillReturnRows(rows)

	rules, err := repo.ListForScope(context.Background(), "co-1")
	require.NoError(t, err)
	require.Len(t, rules, 2)
	require.True(t, rules[0].IsGlobal())
	require.False(t, rules[1].IsGlobal())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRuleRepositoryExistsForScopeGlobal(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewRuleRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM compliance_rules WHERE type_key = $1 AND company_id IS NULL LIMIT 1")).
		WithArgs("visa").
		WillReturnRows(sqlmock.NewRows([]string{"?column?"}).AddRow(1))

	exists, err := repo.ExistsForScope(context.Background(), nil, "visa", "")
	require.NoError(t, err)
	require.True(t, exists)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRuleRepositoryExistsForScopeNoRow(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewRuleRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM compliance_rules WHERE type_key = $1 AND company_id = $2 LIMIT 1")).
		WithArgs("visa", "co-1").
		WillReturnRows(sqlmock.NewRows([]string{"?column?"}))

	companyID := "co-1"
	exists, err := repo.ExistsForScope(context.Background(), &companyID, "visa", "")
	require.NoError(t, err)
	require.False(t, exists)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRuleRepositoryDelete(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewRuleRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM compliance_rules WHERE id = $1")).
		WithArgs("rule-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Delete(context.Background(), "rule-1"))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRuleRepositoryListDecodesNullableFields(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewRuleRepository(db)

	rows := sqlmock.NewRows([]string{"id", "company_id", "type_key", "grace_days", "fine_rate", "fine_type", "fine_cap", "mandatory_override", "created_at", "updated_at"}).
		AddRow("rule-2", "co-1", "visa", nil, nil, nil, nil, true, time.Now(), time.Now())
	mock.ExpectQuery("SELECT .* FROM compliance_rules WHERE 1=1 AND company_id = \\$1").
		WithArgs("co-1").
		WillReturnRows(rows)

	companyID := "co-1"
	rules, err := repo.List(context.Background(), models.RuleFilter{CompanyID: &companyID})
	require.NoError(t, err)
	require.Len(t, rules, 1)
	require.Nil(t, rules[0].GraceDays)
	require.Nil(t, rules[0].FineRate)
	require.NotNil(t, rules[0].MandatoryOverride)
	require.True(t, *rules[0].MandatoryOverride)
	require.NoError(t, mock.ExpectationsWereMet())
}
