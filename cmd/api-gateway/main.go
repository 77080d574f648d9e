package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/sma-invigilation-api/api/swagger"
	"github.com/noah-isme/sma-invigilation-api/internal/handler"
	internalmiddleware "github.com/noah-isme/sma-invigilation-api/internal/middleware"
	"github.com/noah-isme/sma-invigilation-api/internal/models"
	"github.com/noah-isme/sma-invigilation-api/internal/repository"
	"github.com/noah-isme/sma-invigilation-api/internal/service"
	"github.com/noah-isme/sma-invigilation-api/pkg/cache"
	"github.com/noah-isme/sma-invigilation-api/pkg/config"
	"github.com/noah-isme/sma-invigilation-api/pkg/database"
	"github.com/noah-isme/sma-invigilation-api/pkg/export"
	"github.com/noah-isme/sma-invigilation-api/pkg/jobs"
	"github.com/noah-isme/sma-invigilation-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/sma-invigilation-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/sma-invigilation-api/pkg/middleware/requestid"
	"github.com/noah-isme/sma-invigilation-api/pkg/storage"
)

// @title SMA Invigilation API
// @version 1.0.0
// @description Assigns exam supervisors to sessions, stores rosters and renders exports.
// @BasePath /api/v1
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

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

	policyFile, err := config.LoadPolicyFile(cfg.Invigilation.PolicyFile)
	if err != nil {
		logr.Sugar().Fatalw("failed to load policy file", "path", cfg.Invigilation.PolicyFile, "error", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect database", "error", err)
	}
	defer db.Close()
	if err := database.EnsureSchema(ctx, db); err != nil {
		logr.Sugar().Fatalw("failed to apply schema", "error", err)
	}

	metricsSvc := service.NewMetricsService()

	var (
		redisClient *redis.Client
		cacheRepo   service.CacheRepository
	)
	if cfg.Invigilation.CacheEnabled {
		redisClient, err = cache.NewRedis(ctx, cfg.Redis)
		if err != nil {
			logr.Warn("redis unavailable, run cache disabled", zap.Error(err))
		} else {
			repo := repository.NewCacheRepository(redisClient, logr)
			defer repo.Close() //nolint:errcheck
			cacheRepo = repo
		}
	}
	cacheSvc := service.NewCacheService(cacheRepo, metricsSvc, cfg.Invigilation.CacheTTL, logr, cfg.Invigilation.CacheEnabled)

	validate := validator.New()
	rosterRepo := repository.NewRosterRepository(db)
	exportJobRepo := repository.NewExportJobRepository(db)
	auditRepo := repository.NewAuditRepository(db)

	invigilationSvc := service.NewInvigilationService(
		rosterRepo,
		cacheSvc,
		metricsSvc,
		validate,
		logr,
		service.InvigilationSettings(cfg.Invigilation, policyFile),
	)
	invigilationSvc.StartProposalSweeper(ctx, 0)
	authSvc := service.NewAuthService(logr, service.AuthConfig{
		AccessTokenSecret: cfg.JWT.Secret,
		AccessTokenExpiry: cfg.JWT.TokenTTL,
		Issuer:            cfg.JWT.Issuer,
	})

	var (
		exportQueue *jobs.Queue
		exportJobs  *service.ExportJobService
	)
	if cfg.Exports.Enabled {
		exportQueue, exportJobs, err = buildExports(ctx, cfg, logr, validate, invigilationSvc, rosterRepo, exportJobRepo, metricsSvc)
		if err != nil {
			logr.Sugar().Fatalw("failed to init exports", "error", err)
		}
	}

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(internalmiddleware.Metrics(metricsSvc))
	r.Use(internalmiddleware.WithResponseMeta())

	checks := map[string]handler.ReadinessCheck{
		"database": func(ctx context.Context) error { return db.PingContext(ctx) },
	}
	if redisClient != nil {
		checks["redis"] = func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }
	}
	metricsHandler := handler.NewMetricsHandler(metricsSvc, checks)
	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	registerRoutes(api, routeDeps{
		cfg:          cfg,
		logger:       logr,
		auth:         authSvc,
		audit:        auditRepo,
		metrics:      metricsHandler,
		invigilation: invigilationSvc,
		exports:      exportJobs,
	})

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Warn("graceful shutdown failed", zap.Error(err))
	}
	if exportQueue != nil {
		exportQueue.Stop()
	}
}

func buildExports(
	ctx context.Context,
	cfg *config.Config,
	logr *zap.Logger,
	validate *validator.Validate,
	snapshots *service.InvigilationService,
	rosters *repository.RosterRepository,
	jobRepo *repository.ExportJobRepository,
	metrics *service.MetricsService,
) (*jobs.Queue, *service.ExportJobService, error) {
	store, err := storage.NewLocalStorage(cfg.Exports.StorageDir)
	if err != nil {
		return nil, nil, fmt.Errorf("export storage: %w", err)
	}
	signer := storage.NewSignedURLSigner(cfg.Exports.SignedURLSecret, cfg.Exports.SignedURLTTL)
	exporter := service.NewExportService(snapshots, store, signer, service.ExportConfig{
		APIPrefix:    cfg.APIPrefix,
		ResultTTL:    cfg.Exports.SignedURLTTL,
		SchoolName:   cfg.Exports.SchoolName,
		AcademicYear: cfg.Exports.AcademicYear,
		Semester:     cfg.Exports.Semester,
	}, logr, service.ExportRenderers{PDF: export.NewPDFExporter(cfg.Exports.FontPath)})

	worker := service.NewExportWorker(jobRepo, exporter, metrics, logr)

	// the job service needs the queue and the queue reports give-ups back to it
	var jobSvc *service.ExportJobService
	queue := jobs.NewQueue("invigilation-exports", worker.Handle, jobs.QueueConfig{
		Workers:       cfg.Exports.WorkerConcurrency,
		MaxRetries:    cfg.Exports.WorkerRetries,
		RetryDelay:    2 * time.Second,
		MaxRetryDelay: time.Minute,
		Logger:        logr,
		OnGiveUp: func(ctx context.Context, job jobs.Job, cause error) {
			jobSvc.GiveUp(ctx, job, cause)
		},
	})
	jobSvc = service.NewExportJobService(jobRepo, rosters, queue, exporter, metrics, validate, logr, service.ExportJobServiceConfig{
		ResultTTL:       cfg.Exports.SignedURLTTL,
		CleanupInterval: cfg.Exports.CleanupInterval,
	})

	queue.Start(ctx)
	jobSvc.RecoverPendingJobs(ctx)
	jobSvc.StartCleanup(ctx)
	return queue, jobSvc, nil
}

type routeDeps struct {
	cfg          *config.Config
	logger       *zap.Logger
	auth         *service.AuthService
	audit        internalmiddleware.AuditWriter
	metrics      *handler.MetricsHandler
	invigilation *service.InvigilationService
	exports      *service.ExportJobService
}

func registerRoutes(api *gin.RouterGroup, deps routeDeps) {
	authn := internalmiddleware.JWT(deps.auth)
	managers := internalmiddleware.RequireRoles(internalmiddleware.RosterManagers...)
	audit := func(action, resource string) gin.HandlerFunc {
		return internalmiddleware.Audit(deps.audit, deps.logger, action, resource)
	}

	admin := api.Group("/admin", authn, internalmiddleware.RequireRoles(models.RoleSuperAdmin, models.RoleAdmin))
	admin.GET("/metrics", deps.metrics.System)

	if !deps.cfg.Invigilation.Enabled {
		return
	}

	rosters := handler.NewInvigilationHandler(deps.invigilation, deps.cfg.Invigilation.MaxUploadMB)
	inv := api.Group("/invigilation", authn)
	inv.POST("/generate", managers, rosters.Generate)
	inv.POST("/upload", managers, rosters.Upload)
	inv.GET("/proposals/:id", managers, rosters.GetProposal)
	inv.POST("/rosters", managers, audit(models.AuditActionRosterSave, "roster"), rosters.Save)
	inv.GET("/rosters", rosters.List)
	inv.GET("/rosters/:id", rosters.Get)
	inv.PATCH("/rosters/:id/publish", managers, audit(models.AuditActionRosterPublish, "roster"), rosters.Publish)
	inv.DELETE("/rosters/:id", managers, audit(models.AuditActionRosterDelete, "roster"), rosters.Delete)
	inv.DELETE("/cache", internalmiddleware.RequireRoles(models.RoleSuperAdmin, models.RoleAdmin), audit(models.AuditActionCacheFlush, "run_cache"), rosters.FlushCache)

	if deps.exports == nil {
		return
	}
	exports := handler.NewExportHandler(deps.exports)
	inv.POST("/rosters/:id/exports", managers, audit(models.AuditActionExportCreate, "roster"), exports.Create)
	inv.GET("/exports/:jobId", exports.Status)
	// signed tokens authorise downloads
	api.GET("/invigilation/exports/download/:token", exports.Download)
}
