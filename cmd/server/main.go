package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	appinv "github.com/garage/backoffice/internal/application/invoicing"
	"github.com/garage/backoffice/internal/infrastructure/auth"
	"github.com/garage/backoffice/internal/infrastructure/cache"
	"github.com/garage/backoffice/internal/infrastructure/config"
	"github.com/garage/backoffice/internal/infrastructure/event"
	"github.com/garage/backoffice/internal/infrastructure/logger"
	"github.com/garage/backoffice/internal/infrastructure/migration"
	"github.com/garage/backoffice/internal/infrastructure/persistence"
	"github.com/garage/backoffice/internal/infrastructure/scheduler"
	"github.com/garage/backoffice/internal/infrastructure/telemetry"
	"github.com/garage/backoffice/internal/interfaces/http/handler"
	"github.com/garage/backoffice/internal/interfaces/http/middleware"
	"github.com/garage/backoffice/internal/interfaces/http/router"
	"github.com/gin-gonic/gin"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// version is overridden at build time with -ldflags "-X main.version=..."
var version = "dev"

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// OpenTelemetry log export is attached to the zap logger as an extra core
	logProvider, err := telemetry.NewLoggerProvider(ctx, cfg.Telemetry)
	if err != nil {
		panic("Failed to initialize log exporter: " + err.Error())
	}

	log, err := logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: logger.DefaultTimeFormat,
	}, logProvider.ZapCore(zapcore.InfoLevel))
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = log.Sync()
	}()

	log.Info("Starting garage back office",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
		zap.String("version", version),
	)

	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Tracing, metrics and profiling
	tracerProvider, err := telemetry.NewTracerProvider(ctx, cfg.Telemetry, log)
	if err != nil {
		log.Fatal("Failed to initialize tracing", zap.Error(err))
	}
	meterProvider, err := telemetry.NewMeterProvider(ctx, cfg.Telemetry, log)
	if err != nil {
		log.Fatal("Failed to initialize metrics", zap.Error(err))
	}
	profiler, err := telemetry.NewProfiler(cfg.Telemetry, log)
	if err != nil {
		log.Fatal("Failed to start profiler", zap.Error(err))
	}
	if profiler.IsEnabled() {
		tracerProvider.EnableSpanProfiles()
	}

	var meter metric.Meter
	if meterProvider.IsEnabled() {
		meter = meterProvider.Meter(cfg.Telemetry.ServiceName)
	}

	// Create GORM logger backed by zap
	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level),
		logger.WithSlowThreshold(cfg.Telemetry.DBSlowQueryThresh))

	db, err := persistence.NewDatabaseWithCustomLogger(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected successfully", zap.String("driver", cfg.Database.Driver))

	if cfg.Database.Driver == config.DriverSQLite || cfg.Database.AutoMigrate {
		if err := migrateSchema(cfg, db, log); err != nil {
			log.Fatal("Failed to migrate database schema", zap.Error(err))
		}
	}

	if cfg.Telemetry.Enabled && cfg.Telemetry.DBTraceEnabled {
		if err := telemetry.NewDBTracingPlugin(cfg.Telemetry, cfg.Database.Driver, log).Register(db.DB); err != nil {
			log.Warn("Failed to register database tracing", zap.Error(err))
		}
	}
	var dbMetrics *telemetry.DBMetrics
	if meter != nil {
		dbMetrics, err = telemetry.NewDBMetrics(meter, cfg.Telemetry.DBSlowQueryThresh, cfg.Telemetry.MetricsInterval, log)
		if err != nil {
			log.Warn("Failed to create database metrics", zap.Error(err))
		} else if err := dbMetrics.Register(db.DB); err != nil {
			log.Warn("Failed to register database metrics", zap.Error(err))
			dbMetrics = nil
		} else {
			dbMetrics.Start(ctx)
		}
	}

	// Redis is optional; it backs counters, event idempotency and token revocation
	var redisClient *redis.Client
	if cfg.Redis.Host != "" {
		redisClient, err = cache.NewRedisClient(cfg.Redis)
		if err != nil {
			log.Fatal("Failed to connect to Redis", zap.Error(err), zap.String("addr", cfg.Redis.Addr()))
		}
		defer func() {
			if err := redisClient.Close(); err != nil {
				log.Error("Error closing Redis client", zap.Error(err))
			}
		}()
		log.Info("Redis connected successfully", zap.String("addr", cfg.Redis.Addr()))
	}

	counters, err := cache.NewCounterStore(cfg.Sequence, redisClient)
	if err != nil {
		log.Fatal("Failed to configure document counters", zap.Error(err))
	}

	// Repositories
	quoteRepo := persistence.NewGormQuoteRepository(db.DB)
	invoiceRepo := persistence.NewGormInvoiceRepository(db.DB)
	creditNoteRepo := persistence.NewGormCreditNoteRepository(db.DB)
	replacementRepo := persistence.NewGormReplacementRepository(db.DB)
	directory := persistence.NewGormPartyDirectory(db.DB)
	receivables := persistence.NewGormReceivablesMetricsProvider(db.DB)

	txScope := persistence.NewGormTransactionScope(db.DB)
	if counters != nil {
		txScope = txScope.WithCounterStore(counters)
	}

	// Event bus: audit trail always, business metrics when a meter is configured
	idempotency := cache.NewIdempotencyStore(redisClient, log)
	eventBus := event.NewInMemoryEventBus(log)
	auditHandler := event.NewIdempotentHandler(appinv.NewInvoicingAuditHandler(log), idempotency, log)
	eventBus.Subscribe(auditHandler, auditHandler.EventTypes()...)

	var invoicingMetrics *telemetry.InvoicingMetrics
	if meter != nil {
		invoicingMetrics, err = telemetry.NewInvoicingMetrics(telemetry.InvoicingMetricsConfig{
			Meter:               meter,
			Logger:              log,
			CollectInterval:     cfg.Scheduler.MetricsCollectTick,
			ReceivablesProvider: receivables,
		})
		if err != nil {
			log.Warn("Failed to create invoicing metrics", zap.Error(err))
		} else {
			metricsHandler := appinv.NewInvoicingMetricsHandler(invoicingMetrics, log)
			eventBus.Subscribe(metricsHandler, metricsHandler.EventTypes()...)
			invoicingMetrics.StartPeriodicCollection(ctx, receivables, cfg.Scheduler.MetricsCollectTick)
		}
	}
	if err := eventBus.Start(ctx); err != nil {
		log.Fatal("Failed to start event bus", zap.Error(err))
	}

	// Application services
	quoteService := appinv.NewQuoteService(quoteRepo, invoiceRepo, txScope, log)
	quoteService.SetDirectories(directory, directory)
	quoteService.SetEventPublisher(eventBus)

	invoicingService := appinv.NewInvoicingService(
		quoteRepo, invoiceRepo, creditNoteRepo, replacementRepo, txScope,
		appinv.Config{PaymentTerm: cfg.Invoicing.PaymentTerm()},
		log,
	)
	invoicingService.SetDirectories(directory, directory)
	invoicingService.SetEventPublisher(eventBus)

	// Overdue sweep; it also finishes replacements interrupted by a crash
	sweepScheduler, err := scheduler.NewOverdueSweepScheduler(invoicingService, cfg.Scheduler, log)
	if err != nil {
		log.Fatal("Failed to create overdue sweep scheduler", zap.Error(err))
	}
	if err := sweepScheduler.Start(ctx); err != nil {
		log.Fatal("Failed to start overdue sweep scheduler", zap.Error(err))
	}
	if !cfg.Scheduler.Enabled {
		resumed, err := invoicingService.ResumePendingReplacements(ctx, cfg.Scheduler.ResumeBatchSize)
		if err != nil {
			log.Error("Failed to resume pending replacements", zap.Error(err))
		} else if resumed > 0 {
			log.Info("Resumed pending replacements", zap.Int("count", resumed))
		}
	}

	// Identity
	jwtService := auth.NewJWTService(cfg.JWT)
	var revocations auth.RevocationList = auth.NewInMemoryRevocationList()
	if redisClient != nil {
		revocations = auth.NewRedisRevocationList(redisClient, "")
	}

	var rateLimiter *middleware.RateLimiter
	if cfg.HTTP.RateLimitRequests > 0 {
		rateLimiter = middleware.NewRateLimiter(cfg.HTTP.RateLimitRequests, cfg.HTTP.RateLimitWindow)
	}

	healthChecks := map[string]handler.HealthCheck{
		"database": func(context.Context) error { return db.Ping() },
	}
	if redisClient != nil {
		healthChecks["redis"] = func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }
	}

	engine := router.NewEngine(router.Dependencies{
		Config:       cfg,
		Logger:       log,
		Quotes:       quoteService,
		Invoicing:    invoicingService,
		Verifier:     jwtService,
		Revocations:  revocations,
		Meter:        meter,
		RateLimiter:  rateLimiter,
		HealthChecks: healthChecks,
		Version:      version,
	})

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
		log.Info("Server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}

	if err := sweepScheduler.Stop(shutdownCtx); err != nil {
		log.Error("Error stopping overdue sweep scheduler", zap.Error(err))
	}
	if err := eventBus.Stop(shutdownCtx); err != nil {
		log.Error("Error stopping event bus", zap.Error(err))
	}
	if invoicingMetrics != nil {
		invoicingMetrics.Stop()
	}
	if dbMetrics != nil {
		dbMetrics.Stop()
	}
	if rateLimiter != nil {
		rateLimiter.Stop()
	}
	cancel()

	if err := profiler.Stop(); err != nil {
		log.Error("Error stopping profiler", zap.Error(err))
	}
	if err := meterProvider.Shutdown(shutdownCtx); err != nil {
		log.Error("Error shutting down meter provider", zap.Error(err))
	}
	if err := tracerProvider.Shutdown(shutdownCtx); err != nil {
		log.Error("Error shutting down tracer provider", zap.Error(err))
	}
	if err := logProvider.Shutdown(shutdownCtx, log); err != nil {
		log.Error("Error shutting down log provider", zap.Error(err))
	}

	log.Info("Server exited")
}

// migrateSchema applies the embedded migrations on PostgreSQL. SQLite
// databases are created from the models instead.
func migrateSchema(cfg *config.Config, db *persistence.Database, log *zap.Logger) error {
	if cfg.Database.Driver == config.DriverSQLite {
		return db.AutoMigrate()
	}

	// The migrator closes the connection it is given
	sqlDB, err := sql.Open("postgres", cfg.Database.DSN())
	if err != nil {
		return err
	}
	m, err := migration.New(sqlDB, "", log)
	if err != nil {
		_ = sqlDB.Close()
		return err
	}
	defer func() {
		if err := m.Close(); err != nil {
			log.Warn("Error closing migrator", zap.Error(err))
		}
	}()
	return m.Up()
}
