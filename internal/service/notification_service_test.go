package service

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/manpowerhq/compliance-api/internal/compliance"
	"github.com/manpowerhq/compliance-api/internal/models"
)

type notificationRepoStub struct {
	notifications []models.Notification
	ledger        map[string]struct{}
}

func newNotificationRepoStub() *notificationRepoStub {
	return &notificationRepoStub{ledger: map[string]struct{}{}}
}

func (r *notificationRepoStub) ListByUser(ctx context.Context, userID string, unreadOnly bool, limit int) ([]models.Notification, error) {
	var out []models.Notification
	for _, n := range r.notifications {
		if n.UserID != userID {
			continue
		}
		if unreadOnly && n.Read {
			continue
		}
		out = append(out, n)
	}
	return out, nil
}

func (r *notificationRepoStub) CountUnread(ctx context.Context, userID string) (int, error) {
	count := 0
	for _, n := range r.notifications {
		if n.UserID == userID && !n.Read {
			count++
		}
	}
	return count, nil
}

func (r *notificationRepoStub) CreateBatch(ctx context.Context, notifications []models.Notification) error {
	r.notifications = append(r.notifications, notifications...)
	return nil
}

func (r *notificationRepoStub) MarkRead(ctx context.Context, id, userID string) error {
	for i := range r.notifications {
		if r.notifications[i].ID == id && r.notifications[i].UserID == userID {
			r.notifications[i].Read = true
		}
	}
	return nil
}

func (r *notificationRepoStub) MarkAllRead(ctx context.Context, userID string) error {
	for i := range r.notifications {
		if r.notifications[i].UserID == userID {
			r.notifications[i].Read = true
		}
	}
	return nil
}

func (r *notificationRepoStub) InsertTierIfAbsent(ctx context.Context, entry *models.AlertLedgerEntry) (bool, error) {
	key := compliance.TierKey(entry.DocumentID, entry.Tier, entry.DayBucket)
	if _, ok := r.ledger[key]; ok {
		return false, nil
	}
	r.ledger[key] = struct{}{}
	return true, nil
}

func (r *notificationRepoStub) ListRaisedTiers(ctx context.Context, documentIDs []string) ([]models.AlertLedgerEntry, error) {
	// The stub ledger keeps keys only; the sweep test replays inserts through
	// InsertTierIfAbsent, so an empty prior set plus conflict checks is enough.
	return nil, nil
}

type sweepDocsStub struct {
	docs []models.DocumentWithEmployee
}

func (s sweepDocsStub) ListExpiringActive(ctx context.Context, horizon time.Time) ([]models.DocumentWithEmployee, error) {
	return s.docs, nil
}

type sweepRulesStub struct {
	rules []models.ComplianceRule
}

func (s sweepRulesStub) ListAll(ctx context.Context) ([]models.ComplianceRule, error) {
	return s.rules, nil
}

type catalogStub struct {
	types []models.DocumentType
}

func (s catalogStub) ListAll(ctx context.Context) ([]models.DocumentType, error) {
	return s.types, nil
}

type sweepUsersStub struct {
	users []models.User
}

func (s sweepUsersStub) ListActive(ctx context.Context, roles ...models.UserRole) ([]models.User, error) {
	return s.users, nil
}

func sweepFixtures(expiry time.Time) (sweepDocsStub, sweepRulesStub, catalogStub) {
	doc := models.DocumentWithEmployee{
		DocumentRecord: models.DocumentRecord{
			ID:         "doc-1",
			EmployeeID: "emp-1",
			TypeKey:    models.DocTypeVisa,
			ExpiryDate: &expiry,
			Active:     true,
		},
		EmployeeName: "Ravi Kumar",
		CompanyID:    "company-1",
		CompanyName:  "Falcon Contracting",
	}
	grace := 30
	rate := decimal.NewFromInt(50)
	fineType := models.FineDaily
	rule := models.ComplianceRule{
		ID:        "rule-1",
		TypeKey:   models.DocTypeVisa,
		GraceDays: &grace,
		FineRate:  &rate,
		FineType:  &fineType,
	}
	visaType := models.DocumentType{
		Key:         models.DocTypeVisa,
		DisplayName: "Residence Visa",
		Mandatory:   true,
		HasExpiry:   true,
	}
	return sweepDocsStub{docs: []models.DocumentWithEmployee{doc}},
		sweepRulesStub{rules: []models.ComplianceRule{rule}},
		catalogStub{types: []models.DocumentType{visaType}}
}

func newNotificationServiceForTest(t *testing.T, docs sweepDocsStub, rules sweepRulesStub, catalog catalogStub) (*NotificationService, *notificationRepoStub) {
	t.Helper()
	repo := newNotificationRepoStub()
	svc := NewNotificationService(NotificationServiceParams{
		Repo:      repo,
		Documents: docs,
		Rules:     rules,
		Catalog:   catalog,
		Users: sweepUsersStub{users: []models.User{
			{ID: "user-hr", Role: models.RoleHR, Active: true},
			{ID: "user-admin", Role: models.RoleAdmin, Active: true},
		}},
	})
	return svc, repo
}

func TestSweepEmitsTiersAndFansOut(t *testing.T) {
	asOf := time.Date(2026, 1, 10, 8, 0, 0, 0, time.UTC)
	expiry := time.Date(2026, 1, 30, 0, 0, 0, 0, time.UTC)
	docs, rules, catalog := sweepFixtures(expiry)
	svc, repo := newNotificationServiceForTest(t, docs, rules, catalog)

	// 20 days before expiry the 90, 60 and 30 day thresholds have been crossed.
	emitted, err := svc.Sweep(context.Background(), asOf)
	require.NoError(t, err)
	assert.Equal(t, 3, emitted)
	// One notification per recipient per tier.
	assert.Len(t, repo.notifications, 6)

	unread, err := repo.CountUnread(context.Background(), "user-hr")
	require.NoError(t, err)
	assert.Equal(t, 3, unread)
}

func TestSweepSecondRunIsSilent(t *testing.T) {
	asOf := time.Date(2026, 1, 10, 8, 0, 0, 0, time.UTC)
	expiry := time.Date(2026, 1, 30, 0, 0, 0, 0, time.UTC)
	docs, rules, catalog := sweepFixtures(expiry)
	svc, repo := newNotificationServiceForTest(t, docs, rules, catalog)

	first, err := svc.Sweep(context.Background(), asOf)
	require.NoError(t, err)
	require.Equal(t, 3, first)

	second, err := svc.Sweep(context.Background(), asOf)
	require.NoError(t, err)
	assert.Zero(t, second)
	assert.Len(t, repo.notifications, 6)
}

func TestSweepPenaltyTierFiresDaily(t *testing.T) {
	// Expired 40 days ago with a 30 day grace, so the document is in penalty.
	asOf := time.Date(2026, 3, 12, 0, 0, 0, 0, time.UTC)
	expiry := time.Date(2026, 1, 31, 0, 0, 0, 0, time.UTC)
	docs, rules, catalog := sweepFixtures(expiry)
	svc, repo := newNotificationServiceForTest(t, docs, rules, catalog)

	// First run: all five pre-expiry tiers plus the penalty tier.
	first, err := svc.Sweep(context.Background(), asOf)
	require.NoError(t, err)
	assert.Equal(t, 6, first)

	// Same day again: nothing.
	again, err := svc.Sweep(context.Background(), asOf)
	require.NoError(t, err)
	assert.Zero(t, again)

	// Next day: only the penalty tier re-fires.
	next, err := svc.Sweep(context.Background(), asOf.AddDate(0, 0, 1))
	require.NoError(t, err)
	assert.Equal(t, 1, next)
	assert.Len(t, repo.notifications, 14)
}

func TestSweepSkipsTypesWithoutRule(t *testing.T) {
	asOf := time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC)
	expiry := time.Date(2026, 1, 30, 0, 0, 0, 0, time.UTC)
	docs, _, catalog := sweepFixtures(expiry)
	svc, repo := newNotificationServiceForTest(t, docs, sweepRulesStub{}, catalog)

	emitted, err := svc.Sweep(context.Background(), asOf)
	require.NoError(t, err)
	assert.Zero(t, emitted)
	assert.Empty(t, repo.notifications)
}

func TestNotificationFeedMarkRead(t *testing.T) {
	repo := newNotificationRepoStub()
	repo.notifications = []models.Notification{
		{ID: "n-1", UserID: "user-hr", Title: "Ravi Kumar - Falcon Contracting"},
		{ID: "n-2", UserID: "user-hr", Title: "Ravi Kumar - Falcon Contracting"},
	}
	svc := NewNotificationService(NotificationServiceParams{Repo: repo})

	list, unread, err := svc.ListForUser(context.Background(), "user-hr", true, 10)
	require.NoError(t, err)
	assert.Len(t, list, 2)
	assert.Equal(t, 2, unread)

	require.NoError(t, svc.MarkRead(context.Background(), "n-1", "user-hr"))
	_, unread, err = svc.ListForUser(context.Background(), "user-hr", false, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, unread)

	require.NoError(t, svc.MarkAllRead(context.Background(), "user-hr"))
	_, unread, err = svc.ListForUser(context.Background(), "user-hr", false, 10)
	require.NoError(t, err)
	assert.Zero(t, unread)
}
