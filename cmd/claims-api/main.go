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
	"go.uber.org/zap"

	_ "github.com/campusops/claimflow/api/swagger"
	"github.com/campusops/claimflow/internal/handler"
	"github.com/campusops/claimflow/internal/middleware"
	"github.com/campusops/claimflow/internal/models"
	"github.com/campusops/claimflow/internal/rbac"
	"github.com/campusops/claimflow/internal/repository"
	"github.com/campusops/claimflow/internal/service"
	"github.com/campusops/claimflow/pkg/cache"
	"github.com/campusops/claimflow/pkg/config"
	"github.com/campusops/claimflow/pkg/database"
	"github.com/campusops/claimflow/pkg/jobs"
	"github.com/campusops/claimflow/pkg/logger"
	corsmiddleware "github.com/campusops/claimflow/pkg/middleware/cors"
	reqidmiddleware "github.com/campusops/claimflow/pkg/middleware/requestid"
)

// @title ClaimFlow API
// @version 0.1.0
// @description Reimbursement claim tracking with SLA clocks, escalations and an append-only audit ledger
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

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("postgres connection failed", "error", err)
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, caching and audit propagation degraded", "error", err)
		redisClient = nil
	}

	claimRepo := repository.NewClaimRepository(db)
	policyRepo := repository.NewSLARepository(db)
	escalationRepo := repository.NewEscalationRepository(db)
	auditRepo := repository.NewAuditRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)

	metrics := service.NewMetricsService()

	var sink service.AuditSink
	if redisClient != nil {
		sink = service.AuditSinkFunc(func(ctx context.Context, entry *models.AuditLogEntry) error {
			return cacheRepo.PublishAuditEntry(ctx, cfg.Audit.SinkStream, cfg.Audit.SinkMaxLen, entry)
		})
	}
	auditService := service.NewAuditService(auditRepo, sink, metrics, logr, jobs.QueueConfig{
		Workers:    cfg.Audit.WorkerConcurrency,
		MaxRetries: cfg.Audit.WorkerRetries,
		RetryDelay: cfg.Audit.RetryDelay,
	})

	cacheService := service.NewCacheService(cacheRepo, metrics, cfg.Dashboard.CacheTTL, logr, cfg.Dashboard.Enabled && redisClient != nil)
	claimService := service.NewClaimService(claimRepo, policyRepo, auditService, cacheService, metrics, logr)
	escalationService := service.NewEscalationService(escalationRepo, claimRepo, policyRepo, auditService, metrics, logr, service.EscalationServiceConfig{
		TargetPoolID: cfg.Escalation.TargetPoolID,
	})
	dashboardService := service.NewDashboardService(claimRepo, escalationRepo, policyRepo, cacheService, logr, service.DashboardServiceConfig{
		CacheTTL: cfg.Dashboard.CacheTTL,
	})
	exportService := service.NewExportService(claimRepo, dashboardService, logr, cfg.Exports.Enabled, nil, nil)

	claimHandler := handler.NewClaimHandler(claimService, auditService)
	escalationHandler := handler.NewEscalationHandler(escalationService)
	auditHandler := handler.NewAuditHandler(auditService)
	dashboardHandler := handler.NewDashboardHandler(dashboardService)
	exportHandler := handler.NewExportHandler(exportService)
	metricsHandler := handler.NewMetricsHandler(metrics)

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	auditService.Start(rootCtx)
	defer auditService.Stop()

	if cfg.Escalation.SweepEnabled {
		go runEscalationSweeper(rootCtx, escalationService, cfg.Escalation, logr)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metrics))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	api.Use(middleware.Identity(cfg.Identity))
	{
		api.POST("/claims", middleware.RequireAction(rbac.ActionSubmitClaim), claimHandler.Submit)
		api.GET("/claims", middleware.RequireAction(rbac.ActionViewOwnClaims, rbac.ActionViewDepartmentClaims), claimHandler.List)
		api.GET("/claims/:id", middleware.RequireAction(rbac.ActionViewOwnClaims, rbac.ActionViewDepartmentClaims), claimHandler.Get)
		api.GET("/claims/:id/sla", middleware.RequireAction(rbac.ActionViewOwnClaims, rbac.ActionViewDepartmentClaims), claimHandler.SLA)
		api.GET("/claims/:id/timeline", middleware.RequireAction(rbac.ActionViewOwnClaims, rbac.ActionViewDepartmentClaims), claimHandler.Timeline)
		api.POST("/claims/:id/approve", middleware.RequireAction(rbac.ActionApproveClaim), claimHandler.Approve)
		api.POST("/claims/:id/reject", middleware.RequireAction(rbac.ActionRejectClaim), claimHandler.Reject)
		api.POST("/claims/:id/pay", middleware.RequireAction(rbac.ActionApproveClaim), claimHandler.Pay)
		api.POST("/claims/:id/escalate", middleware.RequireAction(rbac.ActionEscalateClaim), escalationHandler.Trigger)
		api.POST("/claims/:id/reescalate", middleware.RequireAction(rbac.ActionEscalateClaim), escalationHandler.Reescalate)

		api.GET("/escalations", middleware.RequireAction(rbac.ActionViewEscalations), escalationHandler.List)
		api.POST("/escalations/:id/resolve", middleware.RequireAction(rbac.ActionViewEscalations), escalationHandler.Resolve)

		api.GET("/audit-logs", middleware.RequireAction(rbac.ActionViewAuditLog), auditHandler.List)

		api.GET("/dashboards/student/claims", middleware.RequireAction(rbac.ActionViewOwnClaims), dashboardHandler.Student)
		api.GET("/dashboards/approver/claims", middleware.RequireAction(rbac.ActionViewDepartmentClaims), dashboardHandler.Approver)
		api.GET("/dashboards/admin/metrics", middleware.RequireAction(rbac.ActionViewAuditLog), dashboardHandler.Admin)

		api.GET("/exports/claims", middleware.RequireAction(rbac.ActionViewDepartmentClaims), exportHandler.Claims)
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{Addr: addr, Handler: r}

	go func() {
		logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-rootCtx.Done()
	logr.Sugar().Infow("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("server shutdown failed", "error", err)
	}
}

// runEscalationSweeper periodically re-evaluates open claims and fires the
// escalation trigger for any that breached since the last pass.
func runEscalationSweeper(ctx context.Context, escalations *service.EscalationService, cfg config.EscalationConfig, logr *zap.Logger) {
	ticker := time.NewTicker(cfg.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			created, err := escalations.Sweep(ctx, cfg.SweeperUserID)
			if err != nil {
				logr.Sugar().Warnw("escalation sweep failed", "error", err)
				continue
			}
			if created > 0 {
				logr.Sugar().Infow("escalation sweep completed", "created", created)
			}
		}
	}
}
