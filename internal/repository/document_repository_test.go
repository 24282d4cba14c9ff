package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	"github.com/manpowerhq/compliance-api/internal/models"
	appErrors "github.com/manpowerhq/compliance-api/pkg/errors"
)

func TestDocumentRepositoryRenew(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewDocumentRepository(db)

	expiry := time.Date(2028, time.June, 1, 0, 0, 0, 0, time.UTC)
	replacement := &models.DocumentRecord{
		EmployeeID: "emp-1",
		TypeKey:    "visa",
		ExpiryDate: &expiry,
		Fields:     models.JSONMap{"visa_number": "123"},
	}

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE document_records SET active = false, updated_at = $2 WHERE id = $1 AND active = true")).
		WithArgs("doc-old", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO document_records")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := repo.Renew(context.Background(), "doc-old", replacement)
	require.NoError(t, err)
	require.NotEmpty(t, replacement.ID)
	require.True(t, replacement.Active)
	require.NotNil(t, replacement.RenewedFrom)
	require.Equal(t, "doc-old", *replacement.RenewedFrom)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDocumentRepositoryRenewAlreadySuperseded(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewDocumentRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE document_records SET active = false, updated_at = $2 WHERE id = $1 AND active = true")).
		WithArgs("doc-old", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := repo.Renew(context.Background(), "doc-old", &models.DocumentRecord{EmployeeID: "emp-1", TypeKey: "visa"})
	require.Error(t, err)
	require.True(t, errors.Is(err, appErrors.ErrDocumentSuperseded) || err == appErrors.ErrDocumentSuperseded)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDocumentRepositoryListByEmployee(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewDocumentRepository(db)

	rows := sqlmock.NewRows([]string{"id", "employee_id", "type_key", "issue_date", "expiry_date", "fields", "file_name", "file_path", "file_size", "file_type", "active", "renewed_from", "created_at", "updated_at"}).
		AddRow("doc-1", "emp-1", "visa", nil, nil, []byte(`{"visa_number":"123"}`), nil, nil, nil, nil, true, nil, time.Now(), time.Now())
	mock.ExpectQuery("SELECT .* FROM document_records WHERE employee_id = \\$1").
		WithArgs("emp-1").
		WillReturnRows(rows)

	docs, err := repo.ListByEmployee(context.Background(), "emp-1")
	require.NoError(t, err)
	require.Len(t, docs, 1)
	require.Equal(t, "123", docs[0].Fields["visa_number"])
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDocumentRepositoryListActiveByEmployeesEmpty(t *testing.T) {
	db, _, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewDocumentRepository(db)

	grouped, err := repo.ListActiveByEmployees(context.Background(), nil)
	require.NoError(t, err)
	require.Empty(t, grouped)
}
