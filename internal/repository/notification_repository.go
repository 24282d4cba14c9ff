package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/manpowerhq/compliance-api/internal/models"
)

// NotificationRepository manages in-app notifications and the alert tier
// ledger that keeps the sweep idempotent.
type NotificationRepository struct {
	db *sqlx.DB
}

// NewNotificationRepository constructs a NotificationRepository.
func NewNotificationRepository(db *sqlx.DB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

// ListByUser returns a user's notifications, newest first.
func (r *NotificationRepository) ListByUser(ctx context.Context, userID string, unreadOnly bool, limit int) ([]models.Notification, error) {
	query := `SELECT id, user_id, title, message, type, read, entity_type, entity_id, created_at FROM notifications WHERE user_id = $1`
	if unreadOnly {
		query += " AND read = false"
	}
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT %d", limit)

	var notifications []models.Notification
	if err := r.db.SelectContext(ctx, &notifications, query, userID); err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	return notifications, nil
}

// CountUnread returns the unread badge count for a user.
func (r *NotificationRepository) CountUnread(ctx context.Context, userID string) (int, error) {
	var count int
	if err := r.db.GetContext(ctx, &count, "SELECT COUNT(id) FROM notifications WHERE user_id = $1 AND read = false", userID); err != nil {
		return 0, fmt.Errorf("count unread: %w", err)
	}
	return count, nil
}

// Create inserts a notification row.
func (r *NotificationRepository) Create(ctx context.Context, notification *models.Notification) error {
	if notification.ID == "" {
		notification.ID = uuid.NewString()
	}
	if notification.CreatedAt.IsZero() {
		notification.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO notifications (id, user_id, title, message, type, read, entity_type, entity_id, created_at)
        VALUES (:id, :user_id, :title, :message, :type, :read, :entity_type, :entity_id, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, notification); err != nil {
		return fmt.Errorf("create notification: %w", err)
	}
	return nil
}

// CreateBatch inserts many notification rows in one transaction.
func (r *NotificationRepository) CreateBatch(ctx context.Context, notifications []models.Notification) error {
	if len(notifications) == 0 {
		return nil
	}
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin notification batch: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	const query = `INSERT INTO notifications (id, user_id, title, message, type, read, entity_type, entity_id, created_at)
        VALUES (:id, :user_id, :title, :message, :type, :read, :entity_type, :entity_id, :created_at)`
	for i := range notifications {
		if notifications[i].ID == "" {
			notifications[i].ID = uuid.NewString()
		}
		if notifications[i].CreatedAt.IsZero() {
			notifications[i].CreatedAt = time.Now().UTC()
		}
		if _, err := tx.NamedExecContext(ctx, query, notifications[i]); err != nil {
			return fmt.Errorf("insert notification: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit notification batch: %w", err)
	}
	return nil
}

// MarkRead flags one notification as read for its owner.
func (r *NotificationRepository) MarkRead(ctx context.Context, id, userID string) error {
	if _, err := r.db.ExecContext(ctx, "UPDATE notifications SET read = true WHERE id = $1 AND user_id = $2", id, userID); err != nil {
		return fmt.Errorf("mark notification read: %w", err)
	}
	return nil
}

// MarkAllRead flags every notification of a user as read.
func (r *NotificationRepository) MarkAllRead(ctx context.Context, userID string) error {
	if _, err := r.db.ExecContext(ctx, "UPDATE notifications SET read = true WHERE user_id = $1 AND read = false", userID); err != nil {
		return fmt.Errorf("mark all read: %w", err)
	}
	return nil
}

// InsertTierIfAbsent records an alert tier occurrence. It reports true when
// this call inserted the row and false when the (document, tier, day) key was
// already present, which is how a concurrent or repeated sweep stays silent.
func (r *NotificationRepository) InsertTierIfAbsent(ctx context.Context, entry *models.AlertLedgerEntry) (bool, error) {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO alert_ledger (id, document_id, tier, day_bucket, created_at)
        VALUES ($1, $2, $3, $4, $5)
        ON CONFLICT (document_id, tier, day_bucket) DO NOTHING`
	res, err := r.db.ExecContext(ctx, query, entry.ID, entry.DocumentID, entry.Tier, entry.DayBucket, entry.CreatedAt)
	if err != nil {
		return false, fmt.Errorf("insert alert tier: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("insert alert tier: %w", err)
	}
	return affected > 0, nil
}

// ListRaisedTiers loads the ledger entries for a set of documents so the
// sweep can pre-filter before attempting inserts.
func (r *NotificationRepository) ListRaisedTiers(ctx context.Context, documentIDs []string) ([]models.AlertLedgerEntry, error) {
	if len(documentIDs) == 0 {
		return nil, nil
	}
	query, args, err := sqlx.In("SELECT id, document_id, tier, day_bucket, created_at FROM alert_ledger WHERE document_id IN (?)", documentIDs)
	if err != nil {
		return nil, fmt.Errorf("build ledger query: %w", err)
	}
	query = r.db.Rebind(query)

	var entries []models.AlertLedgerEntry
	if err := r.db.SelectContext(ctx, &entries, query, args...); err != nil {
		return nil, fmt.Errorf("list raised tiers: %w", err)
	}
	return entries, nil
}
