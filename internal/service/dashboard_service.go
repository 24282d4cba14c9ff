package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/manpowerhq/compliance-api/internal/compliance"
	"github.com/manpowerhq/compliance-api/internal/dto"
	"github.com/manpowerhq/compliance-api/internal/models"
	appErrors "github.com/manpowerhq/compliance-api/pkg/errors"
)

type dashboardCompanyLister interface {
	ListAll(ctx context.Context) ([]models.Company, error)
}

type dashboardComplianceViewer interface {
	CompanyView(ctx context.Context, companyID string, asOf time.Time) (*CompanyComplianceView, error)
	GlobalSummary(ctx context.Context, asOf time.Time) (*compliance.GroupSummary, error)
}

type auditLister interface {
	ListRecent(ctx context.Context, resource string, limit int) ([]models.AuditLog, error)
}

// DashboardServiceConfig tunes dashboard behaviour.
type DashboardServiceConfig struct {
	CacheTTL       time.Duration
	ExpiringWindow int
	FeedLimit      int
	ActivityLimit  int
}

// DashboardService composes the back-office dashboard payloads.
type DashboardService struct {
	companies  dashboardCompanyLister
	compliance dashboardComplianceViewer
	documents  sweepDocumentRepository
	audit      auditLister
	cache      *CacheService
	logger     *zap.Logger
	cfg        DashboardServiceConfig
}

// DashboardServiceParams groups constructor dependencies.
type DashboardServiceParams struct {
	Companies  dashboardCompanyLister
	Compliance dashboardComplianceViewer
	Documents  sweepDocumentRepository
	Audit      auditLister
	Cache      *CacheService
	Logger     *zap.Logger
	Config     DashboardServiceConfig
}

// NewDashboardService constructs a DashboardService with sane defaults.
func NewDashboardService(params DashboardServiceParams) *DashboardService {
	cfg := params.Config
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 5 * time.Minute
	}
	if cfg.ExpiringWindow <= 0 {
		cfg.ExpiringWindow = 30
	}
	if cfg.FeedLimit <= 0 {
		cfg.FeedLimit = 20
	}
	if cfg.ActivityLimit <= 0 {
		cfg.ActivityLimit = 10
	}
	logger := params.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DashboardService{
		companies:  params.Companies,
		compliance: params.Compliance,
		documents:  params.Documents,
		audit:      params.Audit,
		cache:      params.Cache,
		logger:     logger,
		cfg:        cfg,
	}
}

// Overview returns the global dashboard and reports cache utilisation.
func (s *DashboardService) Overview(ctx context.Context, asOf time.Time) (*dto.DashboardResponse, bool, error) {
	asOf = normalizeAsOf(asOf)

	cacheKey := fmt.Sprintf("compliance:dashboard:%s", asOf.Format("2006-01-02"))
	if s.cache != nil {
		var cached dto.DashboardResponse
		if hit, _ := s.cache.Get(ctx, cacheKey, &cached); hit {
			return &cached, true, nil
		}
	}

	resp, err := s.compose(ctx, asOf)
	if err != nil {
		return nil, false, err
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, cacheKey, resp, s.cfg.CacheTTL); err != nil {
			s.logger.Warn("dashboard cache write failed", zap.String("key", cacheKey), zap.Error(err))
		}
	}
	return resp, false, nil
}

func (s *DashboardService) compose(ctx context.Context, asOf time.Time) (*dto.DashboardResponse, error) {
	global, err := s.compliance.GlobalSummary(ctx, asOf)
	if err != nil {
		return nil, err
	}

	cards, err := s.companyCards(ctx, asOf)
	if err != nil {
		return nil, err
	}

	feed, err := s.expiringFeed(ctx, asOf)
	if err != nil {
		return nil, err
	}

	resp := &dto.DashboardResponse{
		AsOf:         asOf,
		Global:       *global,
		Companies:    cards,
		ExpiringSoon: feed,
	}

	if s.audit != nil {
		activity, err := s.audit.ListRecent(ctx, "", s.cfg.ActivityLimit)
		if err != nil {
			s.logger.Warn("recent activity fetch failed", zap.Error(err))
		} else {
			resp.RecentActivity = activity
		}
	}
	return resp, nil
}

// companyCards evaluates every company through the cached per-company views,
// worst exposure first.
func (s *DashboardService) companyCards(ctx context.Context, asOf time.Time) ([]dto.CompanyCard, error) {
	companies, err := s.companies.ListAll(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load companies")
	}

	cards := make([]dto.CompanyCard, 0, len(companies))
	for _, company := range companies {
		view, err := s.compliance.CompanyView(ctx, company.ID, asOf)
		if err != nil {
			s.logger.Warn("company view failed", zap.String("company_id", company.ID), zap.Error(err))
			continue
		}
		cards = append(cards, dto.CompanyCard{
			CompanyID:      company.ID,
			CompanyName:    company.Name,
			Employees:      view.Group.Employees,
			TotalFine:      view.Group.TotalFine,
			DailyBurnRate:  view.Group.DailyBurnRate,
			CompletionRate: view.Group.CompletionRate,
			StatusCounts:   view.Group.StatusCounts,
		})
	}
	sort.SliceStable(cards, func(i, j int) bool {
		return cards[i].TotalFine.GreaterThan(cards[j].TotalFine)
	})
	return cards, nil
}

// expiringFeed lists the soonest-expiring active documents inside the window,
// expired ones included so overdue documents surface at the top.
func (s *DashboardService) expiringFeed(ctx context.Context, asOf time.Time) ([]dto.ExpiringDocumentEntry, error) {
	horizon := asOf.AddDate(0, 0, s.cfg.ExpiringWindow)
	docs, err := s.documents.ListExpiringActive(ctx, horizon)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load expiring documents")
	}

	entries := make([]dto.ExpiringDocumentEntry, 0, len(docs))
	for _, doc := range docs {
		if doc.ExpiryDate == nil {
			continue
		}
		entries = append(entries, dto.ExpiringDocumentEntry{
			DocumentID:   doc.ID,
			TypeKey:      doc.TypeKey,
			EmployeeID:   doc.EmployeeID,
			EmployeeName: doc.EmployeeName,
			CompanyID:    doc.CompanyID,
			CompanyName:  doc.CompanyName,
			ExpiryDate:   *doc.ExpiryDate,
			DaysLeft:     compliance.DaysBetween(asOf, *doc.ExpiryDate),
		})
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].DaysLeft < entries[j].DaysLeft
	})
	if len(entries) > s.cfg.FeedLimit {
		entries = entries[:s.cfg.FeedLimit]
	}
	return entries, nil
}
