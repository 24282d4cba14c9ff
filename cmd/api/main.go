package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/manpowerhq/compliance-api/api/swagger"
	"github.com/manpowerhq/compliance-api/internal/compliance"
	"github.com/manpowerhq/compliance-api/internal/handler"
	"github.com/manpowerhq/compliance-api/internal/middleware"
	"github.com/manpowerhq/compliance-api/internal/models"
	"github.com/manpowerhq/compliance-api/internal/repository"
	"github.com/manpowerhq/compliance-api/internal/service"
	"github.com/manpowerhq/compliance-api/pkg/cache"
	"github.com/manpowerhq/compliance-api/pkg/config"
	"github.com/manpowerhq/compliance-api/pkg/database"
	"github.com/manpowerhq/compliance-api/pkg/export"
	"github.com/manpowerhq/compliance-api/pkg/jobs"
	"github.com/manpowerhq/compliance-api/pkg/logger"
	corsmiddleware "github.com/manpowerhq/compliance-api/pkg/middleware/cors"
	reqidmiddleware "github.com/manpowerhq/compliance-api/pkg/middleware/requestid"
	"github.com/manpowerhq/compliance-api/pkg/storage"
)

// @title Manpower Compliance API
// @version 1.0.0
// @description Document compliance and fine accrual engine for workforce suppliers
// @BasePath /api/v1
// @schemes http

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close() //nolint:errcheck

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, caching disabled", "error", err)
		redisClient = nil
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Repositories.
	userRepo := repository.NewUserRepository(db)
	companyRepo := repository.NewCompanyRepository(db)
	employeeRepo := repository.NewEmployeeRepository(db)
	documentRepo := repository.NewDocumentRepository(db)
	typeRepo := repository.NewDocumentTypeRepository(db)
	ruleRepo := repository.NewRuleRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)
	auditRepo := repository.NewAuditRepository(db)
	reportRepo := repository.NewReportRepository(db)

	// Observability and caching.
	metricsSvc := service.NewMetricsService()
	var cacheSvc *service.CacheService
	if redisClient != nil {
		cacheRepo := repository.NewCacheRepository(redisClient, logr)
		cacheSvc = service.NewCacheService(cacheRepo, metricsSvc, cfg.Compliance.EmployeeViewTTL, logr, true)
	}

	engine := compliance.NewEngine(compliance.Config{
		ExpiringSoonDays:  cfg.Compliance.ExpiringSoonDays,
		MonthlyBlockDays:  cfg.Compliance.MonthlyBlockDays,
		PassportMinMonths: cfg.Compliance.PassportMinMonths,
		Workers:           cfg.Compliance.BatchWorkers,
	})

	// Storage.
	uploadStore, err := storage.NewLocalStorage(cfg.Uploads.StorageDir)
	if err != nil {
		logr.Sugar().Fatalw("failed to init upload storage", "error", err)
	}
	exportStore, err := storage.NewLocalStorage(cfg.Exports.StorageDir)
	if err != nil {
		logr.Sugar().Fatalw("failed to init export storage", "error", err)
	}
	exportSigner := storage.NewSignedURLSigner(cfg.Exports.SignedURLSecret, cfg.Exports.SignedURLTTL)

	// Services.
	authSvc := service.NewAuthService(userRepo, auditRepo, nil, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             "compliance-api",
	})
	companySvc := service.NewCompanyService(companyRepo, nil, logr)
	catalogSvc := service.NewCatalogService(typeRepo, nil, logr)
	complianceSvc := service.NewComplianceService(service.ComplianceServiceParams{
		Engine:    engine,
		Employees: employeeRepo,
		Documents: documentRepo,
		Rules:     ruleRepo,
		Catalog:   typeRepo,
		Cache:     cacheSvc,
		Metrics:   metricsSvc,
		Logger:    logr,
		ViewTTL:   cfg.Compliance.EmployeeViewTTL,
	})
	employeeSvc := service.NewEmployeeService(service.EmployeeServiceParams{
		Repo:       employeeRepo,
		Companies:  companyRepo,
		Documents:  documentRepo,
		Catalog:    typeRepo,
		Compliance: complianceSvc,
		Cache:      cacheSvc,
		Logger:     logr,
	})
	documentSvc := service.NewDocumentService(service.DocumentServiceParams{
		Repo:      documentRepo,
		Employees: employeeRepo,
		Catalog:   typeRepo,
		Files:     uploadStore,
		Audit:     auditRepo,
		Cache:     cacheSvc,
		Logger:    logr,
	})
	ruleSvc := service.NewRuleService(service.RuleServiceParams{
		Repo:    ruleRepo,
		Catalog: typeRepo,
		Audit:   auditRepo,
		Cache:   cacheSvc,
		Logger:  logr,
	})
	notificationSvc := service.NewNotificationService(service.NotificationServiceParams{
		Repo:          notificationRepo,
		Documents:     documentRepo,
		Rules:         ruleRepo,
		Catalog:       typeRepo,
		Users:         userRepo,
		Engine:        engine,
		Metrics:       metricsSvc,
		Logger:        logr,
		SweepInterval: cfg.Notifications.SweepInterval,
	})
	exportSvc := service.NewExportService(
		complianceSvc, employeeRepo, companyRepo, exportStore, exportSigner,
		service.ExportConfig{APIPrefix: cfg.APIPrefix, ResultTTL: cfg.Exports.SignedURLTTL},
		logr, export.NewCSVExporter(), export.NewPDFExporter(),
	)
	reportWorker := service.NewReportWorker(reportRepo, exportSvc, 3, logr)
	reportQueue := jobs.NewQueue("reports", reportWorker.Handle, jobs.QueueConfig{
		Workers:    cfg.Exports.Workers,
		MaxRetries: 3,
		Logger:     logr,
	})
	reportSvc := service.NewReportService(reportRepo, reportQueue, exportSvc, auditRepo, logr, service.ReportServiceConfig{
		ResultTTL:       cfg.Exports.SignedURLTTL,
		CleanupInterval: cfg.Exports.CleanupInterval,
	})
	dashboardSvc := service.NewDashboardService(service.DashboardServiceParams{
		Companies:  companyRepo,
		Compliance: complianceSvc,
		Documents:  documentRepo,
		Audit:      auditRepo,
		Cache:      cacheSvc,
		Logger:     logr,
		Config:     service.DashboardServiceConfig{CacheTTL: cfg.Dashboard.CacheTTL, ExpiringWindow: cfg.Compliance.ExpiringSoonDays},
	})

	// Background workers.
	if cfg.Exports.Enabled {
		reportQueue.Start(ctx)
		reportSvc.RecoverPendingJobs(ctx)
		reportSvc.StartCleanup(ctx)
	}
	if cfg.Notifications.Enabled {
		notificationSvc.Start(ctx)
		defer notificationSvc.Stop()
	}

	// Handlers.
	authHandler := handler.NewAuthHandler(authSvc)
	companyHandler := handler.NewCompanyHandler(companySvc)
	employeeHandler := handler.NewEmployeeHandler(employeeSvc)
	documentHandler := handler.NewDocumentHandler(documentSvc)
	catalogHandler := handler.NewCatalogHandler(catalogSvc)
	ruleHandler := handler.NewRuleHandler(ruleSvc)
	complianceHandler := handler.NewComplianceHandler(complianceSvc)
	dashboardHandler := handler.NewDashboardHandler(dashboardSvc)
	notificationHandler := handler.NewNotificationHandler(notificationSvc)
	reportHandler := handler.NewReportHandler(reportSvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))
	r.MaxMultipartMemory = cfg.Uploads.MaxFileSizeBytes

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Health)
	r.GET("/metrics", metricsHandler.Prometheus)
	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)

	api.POST("/auth/login", authHandler.Login)
	api.POST("/auth/refresh", authHandler.Refresh)
	api.GET("/exports/:token", reportHandler.Download)

	protected := api.Group("", middleware.JWT(authSvc))
	protected.POST("/auth/logout", authHandler.Logout)
	protected.POST("/auth/change-password", authHandler.ChangePassword)
	protected.GET("/auth/me", authHandler.Me)

	adminOnly := middleware.RequireRoles(models.RoleAdmin)
	writers := middleware.RequireRoles(models.RoleAdmin, models.RoleHR)

	protected.GET("/companies", companyHandler.List)
	protected.GET("/companies/:id", companyHandler.Get)
	protected.POST("/companies", adminOnly, companyHandler.Create)
	protected.PUT("/companies/:id", adminOnly, companyHandler.Update)

	protected.GET("/employees", employeeHandler.List)
	protected.GET("/employees/:id", employeeHandler.Get)
	protected.POST("/employees", writers, middleware.Audit(auditRepo, models.AuditActionEmployeeWrite, "employee"), employeeHandler.Create)
	protected.PUT("/employees/:id", writers, middleware.Audit(auditRepo, models.AuditActionEmployeeWrite, "employee"), employeeHandler.Update)
	protected.DELETE("/employees/:id", writers, middleware.Audit(auditRepo, models.AuditActionEmployeeWrite, "employee"), employeeHandler.Offboard)

	protected.GET("/documents", documentHandler.List)
	protected.GET("/documents/:id", documentHandler.Get)
	protected.POST("/documents", writers, documentHandler.Capture)
	protected.POST("/documents/:id/renew", writers, documentHandler.Renew)
	protected.DELETE("/documents/:id", writers, documentHandler.Deactivate)

	protected.GET("/document-types", catalogHandler.List)
	protected.PUT("/document-types/:key", adminOnly, catalogHandler.Upsert)

	protected.GET("/rules", ruleHandler.List)
	protected.GET("/rules/effective", ruleHandler.Effective)
	protected.GET("/rules/:id", ruleHandler.Get)
	protected.POST("/rules", adminOnly, ruleHandler.Create)
	protected.PUT("/rules/:id", adminOnly, ruleHandler.Update)
	protected.DELETE("/rules/:id", adminOnly, ruleHandler.Delete)

	protected.GET("/compliance/employees/:id", complianceHandler.EmployeeView)
	protected.GET("/compliance/companies/:id", complianceHandler.CompanyView)
	protected.GET("/compliance/summary", complianceHandler.GlobalSummary)

	if cfg.Dashboard.Enabled {
		protected.GET("/dashboard", dashboardHandler.Overview)
	}

	protected.GET("/notifications", notificationHandler.List)
	protected.POST("/notifications/:id/read", notificationHandler.MarkRead)
	protected.POST("/notifications/read-all", notificationHandler.MarkAllRead)

	if cfg.Exports.Enabled {
		protected.POST("/reports", reportHandler.Create)
		protected.GET("/reports/:id", reportHandler.Status)
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Sugar().Infow("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("graceful shutdown failed", "error", err)
	}
	reportQueue.Stop()
}
