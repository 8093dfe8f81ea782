package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	appstock "github.com/nursery/backend/internal/application/stock"
	"github.com/nursery/backend/internal/infrastructure/auth"
	"github.com/nursery/backend/internal/infrastructure/config"
	"github.com/nursery/backend/internal/infrastructure/event"
	"github.com/nursery/backend/internal/infrastructure/lock"
	"github.com/nursery/backend/internal/infrastructure/logger"
	"github.com/nursery/backend/internal/infrastructure/persistence"
	"github.com/nursery/backend/internal/infrastructure/persistence/models"
	"github.com/nursery/backend/internal/infrastructure/telemetry"
	"github.com/nursery/backend/internal/interfaces/http/handler"
	"github.com/nursery/backend/internal/interfaces/http/middleware"
	"github.com/nursery/backend/internal/interfaces/http/router"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// version is set at build time with -ldflags "-X main.version=..."
var version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	logCfg := &logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	}
	log, err := logger.New(logCfg)
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}

	ctx := context.Background()
	otelCfg := telemetry.Config{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}

	// Rebuild the logger with the OTLP bridge once the log exporter is up
	logsCfg := otelCfg
	logsCfg.Enabled = cfg.Telemetry.Enabled && cfg.Telemetry.LogsEnabled
	logProvider, err := telemetry.NewLoggerProvider(ctx, logsCfg, log)
	if err != nil {
		log.Fatal("Failed to initialize log exporter", zap.Error(err))
	}
	if logProvider.IsEnabled() {
		if log, err = logger.New(logCfg, logProvider.ZapCore(logger.ParseLevel(cfg.Log.Level))); err != nil {
			panic("Failed to initialize logger: " + err.Error())
		}
	}
	defer func() {
		_ = log.Sync()
	}()

	log.Info("Starting nursery backend",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
		zap.String("version", version),
	)

	tracerProvider, err := telemetry.NewTracerProvider(ctx, otelCfg, log)
	if err != nil {
		log.Fatal("Failed to initialize tracer provider", zap.Error(err))
	}
	meterProvider, err := telemetry.NewMeterProvider(ctx, telemetry.MetricsConfig{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ExportInterval:    cfg.Telemetry.MetricsInterval,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize meter provider", zap.Error(err))
	}
	profiler, err := telemetry.NewProfiler(telemetry.ProfilerConfig{
		Enabled:         cfg.Telemetry.ProfilingEnabled,
		ServerAddress:   cfg.Telemetry.ProfilingAddress,
		ApplicationName: cfg.Telemetry.ServiceName,
	}, log)
	if err != nil {
		log.Fatal("Failed to start profiler", zap.Error(err))
	}
	if profiler.IsEnabled() {
		tracerProvider.EnableSpanProfiles()
	}

	db, err := persistence.NewDatabase(&cfg.Database, persistence.Options{
		Logger:             log,
		SlowQueryThreshold: cfg.Telemetry.SlowQueryThreshold,
		Tracing:            cfg.Telemetry.Enabled && cfg.Telemetry.DBTraceEnabled,
	})
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	if db.Driver == "sqlite" {
		// postgres is migrated by cmd/migrate; sqlite is a local convenience
		if err := db.DB.AutoMigrate(models.AllModels()...); err != nil {
			log.Fatal("Failed to migrate sqlite schema", zap.Error(err))
		}
	}
	log.Info("Database connected", zap.String("driver", db.Driver))

	unitRepo := persistence.NewGormUnitRepository(db.DB)
	eventRepo := persistence.NewGormEventRepository(db.DB)
	zoneRepo := persistence.NewGormZoneRepository(db.DB)
	plantingRepo := persistence.NewGormPlantingRepository(db.DB)
	holdRepo := persistence.NewGormHoldRepository(db.DB)
	txScope := persistence.NewGormTransactionScope(db.DB)

	eventBus := event.NewInMemoryEventBus(log)
	eventBus.Subscribe(event.NewLogHandler(log))
	if err := eventBus.Start(ctx); err != nil {
		log.Fatal("Failed to start event bus", zap.Error(err))
	}

	stockMetrics, err := telemetry.NewStockMetricsFromProvider(meterProvider)
	if err != nil {
		log.Fatal("Failed to register stock metrics", zap.Error(err))
	}

	healthChecks := []handler.HealthCheck{{Name: "database", Check: db.Ping}}

	var locker appstock.GroupLocker = appstock.NewLocalGroupLocker(cfg.Allocation.LockWait)
	var redisClient *redis.Client
	if cfg.Redis.Enabled {
		redisClient, err = lock.NewRedisClient(ctx, &cfg.Redis)
		if err != nil {
			log.Fatal("Failed to connect to Redis", zap.Error(err))
		}
		defer func() {
			_ = redisClient.Close()
		}()
		locker = lock.NewRedisGroupLocker(redisClient, cfg.Allocation.LockTTL, cfg.Allocation.LockWait, log)
		healthChecks = append(healthChecks, handler.HealthCheck{
			Name:  "redis",
			Check: func(ctx context.Context) error { return redisClient.Ping(ctx).Err() },
		})
		log.Info("Allocation locks use Redis", zap.String("addr", cfg.Redis.Addr))
	} else {
		log.Info("Redis disabled, allocation locks are process-local")
	}

	lifecycleService := appstock.NewLifecycleService(txScope, unitRepo, zoneRepo,
		appstock.NewRoleAuthorizer(cfg.Lifecycle.CorrectionRoles), log)
	lifecycleService.SetEventPublisher(eventBus)
	lifecycleService.SetMetrics(stockMetrics)

	ledgerService := appstock.NewLedgerService(unitRepo, eventRepo, log)
	rollupService := appstock.NewRollupService(unitRepo, plantingRepo, holdRepo, log)
	zoneService := appstock.NewZoneService(zoneRepo, plantingRepo, log)

	allocationService := appstock.NewAllocationService(holdRepo, unitRepo, rollupService, lifecycleService,
		locker, cfg.Allocation.HoldTTL, log)
	allocationService.SetEventPublisher(eventBus)
	allocationService.SetMetrics(stockMetrics)

	expirationService := appstock.NewHoldExpirationService(holdRepo, log)
	expirationService.SetEventPublisher(eventBus)
	expirationService.SetMetrics(stockMetrics)

	sweepCtx, stopSweep := context.WithCancel(ctx)
	defer stopSweep()
	if cfg.Allocation.SweepEnabled {
		go expirationService.Run(sweepCtx, cfg.Allocation.SweepInterval)
		log.Info("Hold expiry sweep started", zap.Duration("interval", cfg.Allocation.SweepInterval))
	}

	var verifier middleware.TokenVerifier
	if cfg.Auth.Enabled {
		verifier = auth.NewJWTService(cfg.Auth)
	} else {
		log.Warn("Authentication disabled, actors are read from request headers")
	}

	engine, err := router.NewEngine(router.Handlers{
		Zone:       handler.NewZoneHandler(zoneService),
		Unit:       handler.NewUnitHandler(lifecycleService, ledgerService),
		Rollup:     handler.NewRollupHandler(rollupService),
		Allocation: handler.NewAllocationHandler(allocationService, expirationService),
		Health:     handler.NewHealthHandler(cfg.App.Name, version, healthChecks...),
	}, router.Options{
		Logger:      log,
		ServiceName: cfg.Telemetry.ServiceName,
		Tracing:     tracerProvider.IsEnabled(),
		Profiling:   profiler.IsEnabled(),
		CORSOrigins: cfg.HTTP.CORSAllowOrigins,
		MaxBodySize: cfg.HTTP.MaxBodySize,
		Meter:       meterProvider.Meter("github.com/nursery/backend/http"),
		Verifier:    verifier,
	})
	if err != nil {
		log.Fatal("Failed to build HTTP engine", zap.Error(err))
	}

	srv := &http.Server{
		Addr:         ":" + cfg.App.Port,
		Handler:      engine,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	stopSweep()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}
	shutdownTelemetry(shutdownCtx, log, eventBus, tracerProvider, meterProvider, logProvider, profiler)

	log.Info("Server exited gracefully")
}

type shutdowner interface {
	Shutdown(ctx context.Context) error
}

// shutdownTelemetry flushes exporters in reverse start order
func shutdownTelemetry(
	ctx context.Context,
	log *zap.Logger,
	bus *event.InMemoryEventBus,
	tp *telemetry.TracerProvider,
	mp *telemetry.MeterProvider,
	lp *telemetry.LoggerProvider,
	profiler *telemetry.Profiler,
) {
	if err := bus.Stop(ctx); err != nil {
		log.Warn("Event bus stop failed", zap.Error(err))
	}
	if err := profiler.Stop(); err != nil {
		log.Warn("Profiler stop failed", zap.Error(err))
	}
	providers := []struct {
		name string
		p    shutdowner
	}{{"meter", mp}, {"tracer", tp}, {"logger", lp}}
	for _, prov := range providers {
		if err := prov.p.Shutdown(ctx); err != nil {
			log.Warn("Telemetry shutdown failed", zap.String("provider", prov.name), zap.Error(err))
		}
	}
}
