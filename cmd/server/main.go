package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	connectorapp "github.com/erp/prestashop-connector/internal/application/connector"
	"github.com/erp/prestashop-connector/internal/infrastructure/auth"
	"github.com/erp/prestashop-connector/internal/infrastructure/config"
	"github.com/erp/prestashop-connector/internal/infrastructure/lock"
	"github.com/erp/prestashop-connector/internal/infrastructure/logger"
	"github.com/erp/prestashop-connector/internal/infrastructure/persistence"
	"github.com/erp/prestashop-connector/internal/infrastructure/prestashop"
	"github.com/erp/prestashop-connector/internal/infrastructure/queue"
	"github.com/erp/prestashop-connector/internal/infrastructure/scheduler"
	"github.com/erp/prestashop-connector/internal/infrastructure/storage"
	"github.com/erp/prestashop-connector/internal/infrastructure/telemetry"
	"github.com/erp/prestashop-connector/internal/interfaces/http/handler"
	"github.com/erp/prestashop-connector/internal/interfaces/http/middleware"
	"github.com/erp/prestashop-connector/internal/interfaces/http/router"
)

// version is set at build time with -ldflags "-X main.version=..."
var version = "dev"

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

	log.Info("Starting PrestaShop connector",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
		zap.String("version", version),
	)

	ctx := context.Background()

	// Telemetry
	telemetryConfig := telemetry.Config{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		ServiceName:       cfg.App.Name,
		ServiceVersion:    version,
		Insecure:          cfg.Telemetry.Insecure,
		MetricsInterval:   cfg.Telemetry.MetricsInterval,
		Logs:              cfg.Telemetry.Logs,
	}
	loggerProvider, err := telemetry.NewLoggerProvider(ctx, telemetryConfig, log)
	if err != nil {
		log.Fatal("Failed to initialize logger provider", zap.Error(err))
	}
	log = loggerProvider.Bridge(log)

	tracerProvider, err := telemetry.NewTracerProvider(ctx, telemetryConfig, log)
	if err != nil {
		log.Fatal("Failed to initialize tracer provider", zap.Error(err))
	}
	meterProvider, err := telemetry.NewMeterProvider(ctx, telemetryConfig, log)
	if err != nil {
		log.Fatal("Failed to initialize meter provider", zap.Error(err))
	}
	jobMetrics, err := telemetry.NewJobMetrics(meterProvider.Meter("prestashop-connector/queue"))
	if err != nil {
		log.Fatal("Failed to create job metrics", zap.Error(err))
	}

	// Database
	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.DBLevel))
	db, err := persistence.NewDatabaseWithLogger(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	log.Info("Database connected successfully")

	if cfg.Telemetry.DBTracing {
		dbTracing := telemetry.DefaultDBTracingConfig()
		dbTracing.Enabled = true
		dbTracing.LogFullSQL = cfg.App.Env == "development"
		if cfg.Telemetry.SlowQueryThresh > 0 {
			dbTracing.SlowQueryThresh = cfg.Telemetry.SlowQueryThresh
		}
		if err := telemetry.RegisterDBTracing(db.DB, dbTracing, tracerProvider.Provider(), log); err != nil {
			log.Fatal("Failed to register database tracing", zap.Error(err))
		}
	}

	// Redis is optional. It backs the import locks when lock_backend is redis.
	var redisClient *redis.Client
	if cfg.Redis.Enabled {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr(),
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := redisClient.Ping(ctx).Err(); err != nil {
			log.Fatal("Failed to connect to redis", zap.Error(err))
		}
		log.Info("Redis connected", zap.String("addr", cfg.Redis.Addr()))
	}

	var locker lock.Locker
	switch cfg.Queue.LockBackend {
	case "redis":
		if redisClient == nil {
			log.Fatal("Redis lock backend requires redis.enabled")
		}
		locker = lock.NewRedisLocker(redisClient, cfg.Queue.LockTTL, log)
	case "memory":
		locker = lock.NewMemoryLocker()
	default:
		locker = lock.NewPostgresLocker()
	}

	// Product images
	var images connectorapp.ImageStore
	if cfg.Storage.Enabled {
		store, err := storage.NewS3ImageStore(&cfg.Storage,
			storage.WithLogger(log),
			storage.WithPresignExpiration(cfg.Storage.PresignExpiration),
		)
		if err != nil {
			log.Fatal("Failed to initialize image storage", zap.Error(err))
		}
		if err := store.EnsureBucket(ctx); err != nil {
			log.Fatal("Failed to prepare image bucket", zap.Error(err))
		}
		images = store
	}

	// Application service
	clients := connectorapp.NewClientFactory(prestashop.Config{
		Timeout:         cfg.PrestaShop.Timeout,
		RetryCount:      cfg.PrestaShop.RetryCount,
		RetryWait:       cfg.PrestaShop.RetryWait,
		MaxResponseSize: cfg.PrestaShop.MaxResponseSize,
		Debug:           cfg.PrestaShop.Debug,
	}, log)
	options := connectorapp.DefaultOptions()
	if cfg.PrestaShop.PageSize > 0 {
		options.PageSize = cfg.PrestaShop.PageSize
	}
	options.MaxAttempts = cfg.Queue.MaxAttempts
	service := connectorapp.NewBackendService(db.DB, clients, connectorapp.Dependencies{
		Locker:  locker,
		Images:  images,
		Logger:  log,
		Options: options,
	})

	// Job queue
	poolOptions := []queue.Option{queue.WithRecorder(jobMetrics)}
	var notifier *queue.AMQPNotifier
	if cfg.RabbitMQ.Enabled {
		notifier, err = queue.NewAMQPNotifier(ctx, &cfg.RabbitMQ, log)
		if err != nil {
			log.Fatal("Failed to connect to rabbitmq", zap.Error(err))
		}
		poolOptions = append(poolOptions, queue.WithNotifier(notifier))
	}
	pool, err := queue.NewWorkerPool(queue.Config{
		Workers:       cfg.Queue.Workers,
		BufferSize:    cfg.Queue.BufferSize,
		PollInterval:  cfg.Queue.PollInterval,
		JobTimeout:    cfg.Queue.JobTimeout,
		StaleAfter:    cfg.Queue.StaleAfter,
		RetryDelay:    cfg.Queue.RetryDelay,
		MaxRetryDelay: cfg.Queue.MaxRetry,
	}, persistence.NewGormJobRepository(db.DB), service, log, poolOptions...)
	if err != nil {
		log.Fatal("Failed to create worker pool", zap.Error(err))
	}
	if err := pool.Start(ctx); err != nil {
		log.Fatal("Failed to start worker pool", zap.Error(err))
	}

	// Scheduled actions
	var sched *scheduler.Scheduler
	if cfg.Scheduler.Enabled {
		schedConfig := scheduler.DefaultConfig()
		if cfg.Scheduler.MaxParallelSyncs > 0 {
			schedConfig.MaxParallel = cfg.Scheduler.MaxParallelSyncs
		}
		sched, err = scheduler.New(schedConfig, service, log, scheduledTasks(cfg.Scheduler, service)...)
		if err != nil {
			log.Fatal("Failed to create scheduler", zap.Error(err))
		}
		if err := sched.Start(ctx); err != nil {
			log.Fatal("Failed to start scheduler", zap.Error(err))
		}
	}

	// HTTP API
	systemHandler := handler.NewSystemHandler(cfg.App.Name, version)
	systemHandler.AddCheck("database", db.Ping)
	systemHandler.AddCheck("queue", func(context.Context) error {
		if !pool.IsRunning() {
			return queue.ErrPoolNotRunning
		}
		return nil
	})
	if redisClient != nil {
		systemHandler.AddCheck("redis", func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		})
	}

	var tokens middleware.TokenValidator
	if cfg.Auth.Secret != "" {
		tokens = auth.NewJWTService(cfg.Auth)
	}

	engine, err := router.New(router.Config{
		ServiceName:      cfg.App.Name,
		MaxBodySize:      cfg.HTTP.MaxBodySize,
		CORSAllowOrigins: cfg.HTTP.CORSAllowOrigins,
		TrustedProxies:   cfg.HTTP.TrustedProxies,
		Tracing:          tracerProvider.IsEnabled(),
		TracerProvider:   tracerProvider.Provider(),
	}, log, tokens, router.Handlers{
		System:  systemHandler,
		Backend: handler.NewBackendHandler(service),
		Action:  handler.NewActionHandler(service),
		Sync:    handler.NewSyncHandler(service),
	})
	if err != nil {
		log.Fatal("Failed to build router", zap.Error(err))
	}

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
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}
	if sched != nil {
		if err := sched.Stop(shutdownCtx); err != nil {
			log.Error("Error stopping scheduler", zap.Error(err))
		}
	}
	if err := pool.Stop(shutdownCtx); err != nil {
		log.Error("Error stopping worker pool", zap.Error(err))
	}
	if notifier != nil {
		if err := notifier.Close(); err != nil {
			log.Error("Error closing rabbitmq notifier", zap.Error(err))
		}
	}
	if err := meterProvider.Shutdown(shutdownCtx); err != nil {
		log.Error("Error shutting down meter provider", zap.Error(err))
	}
	if err := tracerProvider.Shutdown(shutdownCtx); err != nil {
		log.Error("Error shutting down tracer provider", zap.Error(err))
	}
	if redisClient != nil {
		if err := redisClient.Close(); err != nil {
			log.Error("Error closing redis", zap.Error(err))
		}
	}
	if err := db.Close(); err != nil {
		log.Error("Error closing database", zap.Error(err))
	}

	log.Info("Server exited gracefully")
	if err := loggerProvider.Shutdown(shutdownCtx); err != nil {
		log.Error("Error shutting down logger provider", zap.Error(err))
	}
}

// scheduledTasks turns the configured cron specs into scheduler tasks.
// Actions that only enqueue jobs return once the jobs are stored.
func scheduledTasks(cfg config.SchedulerConfig, service *connectorapp.BackendService) []scheduler.Task {
	wrap := func(action func(context.Context, uuid.UUID) (*connectorapp.ActionResult, error)) scheduler.ActionFunc {
		return func(ctx context.Context, backendID uuid.UUID) error {
			_, err := action(ctx, backendID)
			return err
		}
	}
	return []scheduler.Task{
		{Name: connectorapp.ActionImportCustomers, Spec: cfg.ImportCustomers, Run: wrap(service.ImportCustomersSince)},
		{Name: connectorapp.ActionImportProducts, Spec: cfg.ImportProducts, Run: wrap(service.ImportProducts)},
		{Name: connectorapp.ActionImportSaleOrders, Spec: cfg.ImportOrders, Run: wrap(service.ImportSaleOrders)},
		{Name: connectorapp.ActionImportCarts, Spec: cfg.ImportCarts, Run: wrap(service.ImportCarts)},
		{Name: connectorapp.ActionImportCarriers, Spec: cfg.ImportCarriers, Run: wrap(service.ImportCarriers)},
		{Name: connectorapp.ActionExportStockQty, Spec: cfg.ExportStock, Run: wrap(
			func(ctx context.Context, backendID uuid.UUID) (*connectorapp.ActionResult, error) {
				return service.ExportStockQty(ctx, backendID, connectorapp.ExportStockRequest{})
			},
		)},
	}
}
