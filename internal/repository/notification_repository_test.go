package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	"github.com/manpowerhq/compliance-api/internal/models"
)

func TestNotificationRepositoryInsertTierIfAbsent(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewNotificationRepository(db)

	day := time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC)
	entry := &models.AlertLedgerEntry{DocumentID: "doc-1", Tier: "pre_30", DayBucket: day}

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO alert_ledger")).
		WithArgs(sqlmock.AnyArg(), "doc-1", "pre_30", day, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	inserted, err := repo.InsertTierIfAbsent(context.Background(), entry)
	require.NoError(t, err)
	require.True(t, inserted)
	require.NotEmpty(t, entry.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestNotificationRepositoryInsertTierIfAbsentConflict(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewNotificationRepository(db)

	day := time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC)
	entry := &models.AlertLedgerEntry{DocumentID: "doc-1", Tier: "grace", DayBucket: day}

	// ON CONFLICT DO NOTHING reports zero rows; the tier was raised before.
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO alert_ledger")).
		WithArgs(sqlmock.AnyArg(), "doc-1", "grace", day, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	inserted, err := repo.InsertTierIfAbsent(context.Background(), entry)
	require.NoError(t, err)
	require.False(t, inserted)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestNotificationRepositoryCountUnread(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewNotificationRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(id) FROM notifications WHERE user_id = $1 AND read = false")).
		WithArgs("user-1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))

	count, err := repo.CountUnread(context.Background(), "user-1")
	require.NoError(t, err)
	require.Equal(t, 3, count)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestNotificationRepositoryMarkRead(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewNotificationRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE notifications SET read = true WHERE id = $1 AND user_id = $2")).
		WithArgs("ntf-1", "user-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.MarkRead(context.Background(), "ntf-1", "user-1"))
	require.NoError(t, mock.ExpectationsWereMet())
}
