package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/manpowerhq/compliance-api/internal/compliance"
	"github.com/manpowerhq/compliance-api/internal/models"
	appErrors "github.com/manpowerhq/compliance-api/pkg/errors"
)

type notificationRepository interface {
	ListByUser(ctx context.Context, userID string, unreadOnly bool, limit int) ([]models.Notification, error)
	CountUnread(ctx context.Context, userID string) (int, error)
	CreateBatch(ctx context.Context, notifications []models.Notification) error
	MarkRead(ctx context.Context, id, userID string) error
	MarkAllRead(ctx context.Context, userID string) error
	InsertTierIfAbsent(ctx context.Context, entry *models.AlertLedgerEntry) (bool, error)
	ListRaisedTiers(ctx context.Context, documentIDs []string) ([]models.AlertLedgerEntry, error)
}

type sweepDocumentRepository interface {
	ListExpiringActive(ctx context.Context, horizon time.Time) ([]models.DocumentWithEmployee, error)
}

type sweepRuleRepository interface {
	ListAll(ctx context.Context) ([]models.ComplianceRule, error)
}

type sweepUserRepository interface {
	ListActive(ctx context.Context, roles ...models.UserRole) ([]models.User, error)
}

// NotificationService delivers tiered document alerts and serves the in-app
// notification feed. The sweep is idempotent for a given day: the tier ledger
// absorbs repeated runs and concurrent instances.
type NotificationService struct {
	repo      notificationRepository
	documents sweepDocumentRepository
	rules     sweepRuleRepository
	catalog   documentTypeCatalog
	users     sweepUserRepository
	engine    *compliance.Engine
	metrics   *MetricsService
	logger    *zap.Logger

	sweepInterval time.Duration
	stop          chan struct{}
}

// NotificationServiceParams bundles dependencies for NewNotificationService.
type NotificationServiceParams struct {
	Repo          notificationRepository
	Documents     sweepDocumentRepository
	Rules         sweepRuleRepository
	Catalog       documentTypeCatalog
	Users         sweepUserRepository
	Engine        *compliance.Engine
	Metrics       *MetricsService
	Logger        *zap.Logger
	SweepInterval time.Duration
}

// NewNotificationService constructs the notification service.
func NewNotificationService(params NotificationServiceParams) *NotificationService {
	if params.Engine == nil {
		params.Engine = compliance.NewEngine(compliance.Config{})
	}
	if params.Logger == nil {
		params.Logger = zap.NewNop()
	}
	if params.SweepInterval <= 0 {
		params.SweepInterval = time.Hour
	}
	return &NotificationService{
		repo:          params.Repo,
		documents:     params.Documents,
		rules:         params.Rules,
		catalog:       params.Catalog,
		users:         params.Users,
		engine:        params.Engine,
		metrics:       params.Metrics,
		logger:        params.Logger,
		sweepInterval: params.SweepInterval,
		stop:          make(chan struct{}),
	}
}

// ListForUser returns a user's notification feed.
func (s *NotificationService) ListForUser(ctx context.Context, userID string, unreadOnly bool, limit int) ([]models.Notification, int, error) {
	notifications, err := s.repo.ListByUser(ctx, userID, unreadOnly, limit)
	if err != nil {
		return nil, 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list notifications")
	}
	unread, err := s.repo.CountUnread(ctx, userID)
	if err != nil {
		return nil, 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count unread notifications")
	}
	return notifications, unread, nil
}

// MarkRead flags one notification as read.
func (s *NotificationService) MarkRead(ctx context.Context, id, userID string) error {
	if err := s.repo.MarkRead(ctx, id, userID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to mark notification read")
	}
	return nil
}

// MarkAllRead flags every notification of a user as read.
func (s *NotificationService) MarkAllRead(ctx context.Context, userID string) error {
	if err := s.repo.MarkAllRead(ctx, userID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to mark notifications read")
	}
	return nil
}

// Start runs the periodic sweep until Stop is called or the context ends.
func (s *NotificationService) Start(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(s.sweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-s.stop:
				return
			case <-ticker.C:
				if _, err := s.Sweep(ctx, time.Now()); err != nil {
					s.logger.Error("alert sweep failed", zap.Error(err))
				}
			}
		}
	}()
}

// Stop halts the periodic sweep.
func (s *NotificationService) Stop() {
	close(s.stop)
}

// Sweep evaluates expiring and overdue documents at the given day, records
// newly due alert tiers in the ledger, and fans notifications out to the
// back office. It returns the number of tiers emitted.
func (s *NotificationService) Sweep(ctx context.Context, asOf time.Time) (int, error) {
	asOf = compliance.Day(asOf)
	start := time.Now()
	defer func() {
		if s.metrics != nil {
			s.metrics.ObserveSweep(time.Since(start))
		}
	}()

	// The widest pre-expiry tier is 90 days, so the horizon covers every
	// document that could owe an alert, already-expired ones included.
	horizon := asOf.AddDate(0, 0, compliance.PreExpiryTiers[0])
	docs, err := s.documents.ListExpiringActive(ctx, horizon)
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load expiring documents")
	}
	if len(docs) == 0 {
		return 0, nil
	}

	typeRows, err := s.catalog.ListAll(ctx)
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load document types")
	}
	types := make(map[string]models.DocumentType, len(typeRows))
	for _, row := range typeRows {
		types[row.Key] = row
	}

	ruleRows, err := s.rules.ListAll(ctx)
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load rules")
	}
	ruleSets := make(map[string]compliance.RuleSet)

	docIDs := make([]string, len(docs))
	for i, doc := range docs {
		docIDs[i] = doc.ID
	}
	ledger, err := s.repo.ListRaisedTiers(ctx, docIDs)
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load alert ledger")
	}
	prior := compliance.RaisedSet{}
	for _, entry := range ledger {
		prior.Add(entry.DocumentID, entry.Tier, entry.DayBucket)
	}

	recipients, err := s.loadRecipients(ctx)
	if err != nil {
		return 0, err
	}

	emitted := 0
	for _, doc := range docs {
		docType, ok := types[doc.TypeKey]
		if !ok {
			continue
		}
		ruleSet, ok := ruleSets[doc.CompanyID]
		if !ok {
			ruleSet = compliance.NewRuleSet(ruleRows, doc.CompanyID)
			ruleSets[doc.CompanyID] = ruleSet
		}
		rule, err := ruleSet.Resolve(docType)
		if err != nil {
			s.logger.Warn("document skipped by sweep, no rule resolves",
				zap.String("document_id", doc.ID), zap.String("type_key", doc.TypeKey))
			continue
		}

		cfg := s.engine.Config()
		state := compliance.EvaluateLifecycle(doc.DocumentRecord, docType, rule, asOf, cfg.ExpiringSoonDays)
		fine := compliance.AccrueFine(doc.DocumentRecord, rule, state, asOf, cfg.MonthlyBlockDays)

		for _, tier := range compliance.DueAlerts(doc.DocumentRecord, docType, rule, state, fine, asOf, prior) {
			inserted, err := s.repo.InsertTierIfAbsent(ctx, &models.AlertLedgerEntry{
				DocumentID: tier.DocumentID,
				Tier:       tier.Tier,
				DayBucket:  tier.DayBucket,
			})
			if err != nil {
				s.logger.Error("failed to record alert tier", zap.String("document_id", tier.DocumentID), zap.Error(err))
				continue
			}
			if !inserted {
				continue
			}
			prior.Add(tier.DocumentID, tier.Tier, tier.DayBucket)
			emitted++
			if s.metrics != nil {
				s.metrics.RecordAlertEmitted(tier.Tier)
			}
			if err := s.fanOut(ctx, doc, tier, recipients); err != nil {
				s.logger.Error("failed to deliver notifications", zap.String("document_id", tier.DocumentID), zap.Error(err))
			}
		}
	}

	s.logger.Info("alert sweep finished",
		zap.Time("as_of", asOf),
		zap.Int("documents", len(docs)),
		zap.Int("tiers_emitted", emitted))
	return emitted, nil
}

func (s *NotificationService) loadRecipients(ctx context.Context) ([]models.User, error) {
	if s.users == nil {
		return nil, nil
	}
	recipients, err := s.users.ListActive(ctx, models.RoleAdmin, models.RoleHR)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load notification recipients")
	}
	return recipients, nil
}

func (s *NotificationService) fanOut(ctx context.Context, doc models.DocumentWithEmployee, tier compliance.AlertTier, recipients []models.User) error {
	if len(recipients) == 0 {
		return nil
	}
	notifications := make([]models.Notification, 0, len(recipients))
	for _, user := range recipients {
		notifications = append(notifications, models.Notification{
			UserID:     user.ID,
			Title:      doc.EmployeeName + " - " + doc.CompanyName,
			Message:    tier.Message,
			Type:       tier.Tier,
			EntityType: "document",
			EntityID:   doc.ID,
		})
	}
	return s.repo.CreateBatch(ctx, notifications)
}
