package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	importapp "github.com/orgmap/backend/internal/application/import"
	"github.com/orgmap/backend/internal/infrastructure/cache"
	"github.com/orgmap/backend/internal/infrastructure/config"
	"github.com/orgmap/backend/internal/infrastructure/logger"
	"github.com/orgmap/backend/internal/infrastructure/persistence"
	"github.com/orgmap/backend/internal/infrastructure/storage"
	"github.com/orgmap/backend/internal/infrastructure/telemetry"
	"github.com/orgmap/backend/internal/interfaces/http/handler"
	"github.com/orgmap/backend/internal/interfaces/http/middleware"
	"github.com/orgmap/backend/internal/interfaces/http/router"
	"go.uber.org/zap"
)

//	@title			orgmap API
//	@version		1.0
//	@description	Loads business units, job roles, grades and the job-role/grade mapping from CSV or XLSX uploads.

//	@host		localhost:8080
//	@BasePath	/api/v1

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger
	log, err := logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	log.Info("Starting orgmap",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	rootCtx, stop := context.WithCancel(context.Background())
	defer stop()

	// Tracing
	tp, err := telemetry.NewTracerProvider(rootCtx, telemetry.Config{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize tracer provider", zap.Error(err))
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tp.Shutdown(ctx); err != nil {
			log.Error("Error shutting down tracer provider", zap.Error(err))
		}
	}()

	// Log export rides on the same collector as traces
	lp, err := telemetry.NewLoggerProvider(rootCtx, telemetry.LogsConfig{
		Enabled:           cfg.Telemetry.Enabled && cfg.Telemetry.LogsEnabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize logger provider", zap.Error(err))
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := lp.Shutdown(ctx); err != nil {
			log.Error("Error shutting down logger provider", zap.Error(err))
		}
	}()
	log = telemetry.BridgeLogger(log, lp, cfg.Telemetry.ServiceName, logger.ParseLevel(cfg.Log.Level))

	// Create GORM logger backed by zap
	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level),
		cfg.Telemetry.DBSlowQueryThresh, cfg.Telemetry.DBLogFullSQL)

	db, err := persistence.NewDatabaseWithLogger(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected successfully")

	dbTracingCfg := telemetry.DefaultDBTracingConfig()
	dbTracingCfg.Enabled = cfg.Telemetry.Enabled && cfg.Telemetry.DBTraceEnabled
	dbTracingCfg.LogFullSQL = cfg.Telemetry.DBLogFullSQL
	if cfg.Telemetry.DBSlowQueryThresh > 0 {
		dbTracingCfg.SlowQueryThresh = cfg.Telemetry.DBSlowQueryThresh
	}
	if err := telemetry.NewDBTracingPlugin(dbTracingCfg, log).RegisterOtelGorm(db.DB); err != nil {
		log.Fatal("Failed to register database tracing", zap.Error(err))
	}

	// Metrics
	reg := telemetry.NewRegistry()
	importMetrics := telemetry.NewImportMetrics(reg)

	// Idempotency-Key guard
	guard, err := cache.NewUploadGuardFactory(cfg.Redis, cache.WithLogger(log)).Create(rootCtx)
	if err != nil {
		log.Fatal("Failed to create upload guard", zap.Error(err))
	}
	defer func() {
		if err := guard.Close(); err != nil {
			log.Warn("Error closing upload guard", zap.Error(err))
		}
	}()

	// Raw upload archive
	var archive importapp.UploadArchive = storage.NoopArchive{}
	if cfg.Storage.Enabled {
		s3Archive, err := storage.NewS3Archive(rootCtx, &cfg.Storage, storage.WithLogger(log))
		if err != nil {
			log.Fatal("Failed to create upload archive", zap.Error(err))
		}
		if err := s3Archive.EnsureBucket(rootCtx); err != nil {
			log.Fatal("Failed to prepare archive bucket", zap.Error(err), zap.String("bucket", s3Archive.Bucket()))
		}
		archive = s3Archive
		log.Info("Upload archive enabled", zap.String("bucket", s3Archive.Bucket()))
	}

	// Application services
	historyService := importapp.NewImportHistoryService(persistence.NewGormImportHistoryRepository(db.DB))
	importService := importapp.NewCatalogImportService(
		persistence.NewGormUnitOfWork(db.DB),
		historyService,
		importapp.Options{
			GradeCeiling:        cfg.Import.GradeCeiling,
			MaxFileSize:         cfg.Import.MaxFileSize,
			MaxErrors:           cfg.Import.MaxErrors,
			CreateMissingGrades: cfg.Import.CreateMissingGrade,
			IdempotencyTTL:      cfg.Import.IdempotencyTTL,
		},
		importapp.WithUploadGuard(guard),
		importapp.WithArchive(archive),
		importapp.WithMetrics(importMetrics),
	)
	queryService := importapp.NewCatalogQueryService(
		persistence.NewGormOrganizationRepository(db.DB),
		cfg.Import.GradeCeiling,
	)

	// Set Gin mode based on environment
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Setup custom validator with json tag names
	middleware.SetupValidator()

	engine := gin.New()
	if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
		log.Fatal("Invalid trusted proxies", zap.Error(err))
	}

	corsCfg := middleware.DefaultCORSConfig()
	corsCfg.AllowOrigins = cfg.HTTP.CORSAllowOrigins
	if len(cfg.HTTP.CORSAllowMethods) > 0 {
		corsCfg.AllowMethods = cfg.HTTP.CORSAllowMethods
	}
	if len(cfg.HTTP.CORSAllowHeaders) > 0 {
		corsCfg.AllowHeaders = cfg.HTTP.CORSAllowHeaders
	}

	engine.Use(middleware.RequestID())
	engine.Use(middleware.TracingWithConfig(middleware.TracingConfig{
		ServiceName: cfg.Telemetry.ServiceName,
		Enabled:     cfg.Telemetry.Enabled,
	}))
	engine.Use(middleware.TracingAttributeInjector())
	engine.Use(logger.Recovery(log))
	engine.Use(logger.GinMiddleware(log))
	engine.Use(middleware.SpanErrorMarker())
	engine.Use(middleware.Secure())
	engine.Use(middleware.CORSWithConfig(corsCfg))
	engine.Use(middleware.BodyLimit(cfg.HTTP.MaxBodySize))

	apiOpts := router.APIOptions{}
	if cfg.Telemetry.MetricsEnabled {
		if _, err := telemetry.RegisterDBMetrics(db.DB, reg, cfg.Telemetry.DBSlowQueryThresh, log); err != nil {
			log.Fatal("Failed to register database metrics", zap.Error(err))
		}
		engine.Use(middleware.HTTPMetrics(reg))
		apiOpts.Metrics = telemetry.MetricsHandler(reg)
	}
	if cfg.HTTP.UploadRateLimit > 0 {
		limiter := middleware.NewRateLimiter(cfg.HTTP.UploadRateLimit, cfg.HTTP.UploadRateWindow)
		go limiter.Run(rootCtx)
		apiOpts.UploadMiddleware = append(apiOpts.UploadMiddleware, middleware.RateLimit(limiter))
		log.Info("Upload rate limiting enabled",
			zap.Int("limit", cfg.HTTP.UploadRateLimit),
			zap.Duration("window", cfg.HTTP.UploadRateWindow),
		)
	}

	router.RegisterAPI(engine, router.Handlers{
		Import:  handler.NewImportHandler(importService),
		Catalog: handler.NewCatalogHandler(queryService),
		History: handler.NewImportHistoryHandler(historyService),
		System:  handler.NewSystemHandler(cfg.App.Name, telemetry.ServiceVersion, db),
	}, apiOpts)

	// Create HTTP server with config
	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	// Start server in goroutine
	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")
	stop()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
		return
	}

	log.Info("Server exited gracefully")
}
