package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/banking/fraud-monitor/internal/api"
	"github.com/banking/fraud-monitor/internal/cache"
	"github.com/banking/fraud-monitor/internal/config"
	"github.com/banking/fraud-monitor/internal/events"
	"github.com/banking/fraud-monitor/internal/lifecycle"
	"github.com/banking/fraud-monitor/internal/pkg/logger"
	"github.com/banking/fraud-monitor/internal/pkg/metrics"
	"github.com/banking/fraud-monitor/internal/pkg/tracing"
	"github.com/banking/fraud-monitor/internal/repository"
	"github.com/banking/fraud-monitor/internal/scoring"
	"github.com/banking/fraud-monitor/internal/service"
)

func main() {
	// 1. Load Configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// 2. Initialize Logger
	log, err := logger.New(cfg.Telemetry.ServiceName, cfg.Telemetry.Environment, cfg.Telemetry.Debug)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 3. Tracing
	shutdownTracing, err := tracing.Init(ctx, cfg.Telemetry)
	if err != nil {
		log.Fatal("failed to initialize tracing", zap.Error(err))
	}

	// 4. Metrics
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	collector := metrics.NewCollector(registry)

	// 5. Storage
	txRepo, alertRepo, closeStore, err := openStore(ctx, cfg, log)
	if err != nil {
		log.Fatal("failed to open store", zap.Error(err))
	}
	defer closeStore()

	// 6. Cache and events
	metricsCache, closeCache := openCache(ctx, cfg, log)
	defer closeCache()

	publisher, err := openPublisher(cfg, log)
	if err != nil {
		log.Fatal("failed to create event publisher", zap.Error(err))
	}
	defer func() {
		if err := publisher.Close(); err != nil {
			log.Warn("failed to close event publisher", zap.Error(err))
		}
	}()

	// 7. Service
	scorer := scoring.NewScorer(scoring.DefaultCatalog(scoring.Config{
		BaseProbability: cfg.Scoring.BaseProbability,
		MaxProbability:  cfg.Scoring.MaxProbability,
		BaseCurrency:    cfg.Scoring.BaseCurrency,
	}))
	svc := service.New(service.Deps{
		Scorer:       scorer,
		Policy:       lifecycle.Policy{LargeAmountBlockThreshold: decimal.NewFromFloat(cfg.Lifecycle.LargeAmountBlockThreshold)},
		Transactions: txRepo,
		Alerts:       alertRepo,
		Cache:        metricsCache,
		Publisher:    publisher,
		Logger:       log,
		Metrics:      collector,
		Import: service.ImportConfig{
			BatchSize:   cfg.Import.BatchSize,
			MaxBatch:    cfg.Import.MaxBatch,
			Parallelism: cfg.Import.Parallelism,
		},
	})

	// 8. HTTP servers
	e := api.NewServer(cfg, svc, log.Named("http"), collector)
	serverAddr := fmt.Sprintf(":%d", cfg.Server.Port)

	metricsServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.MetricsPort),
		Handler:           collector.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("metrics server stopped", zap.Error(err))
		}
	}()

	go func() {
		if err := e.Start(serverAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("shutting down the server", zap.Error(err))
		}
	}()

	log.Info("server started",
		zap.String("addr", serverAddr),
		zap.Int("metrics_port", cfg.Server.MetricsPort),
	)

	// Wait for interrupt signal to gracefully shutdown the server with a timeout
	<-ctx.Done()
	log.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error("http server shutdown failed", zap.Error(err))
	}
	if err := metricsServer.Shutdown(shutdownCtx); err != nil {
		log.Error("metrics server shutdown failed", zap.Error(err))
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		log.Warn("tracer shutdown failed", zap.Error(err))
	}

	log.Info("server exited properly")
}

// openStore selects PostgreSQL when a database host is configured and the
// in-memory store otherwise. Both sit behind a circuit breaker
func openStore(ctx context.Context, cfg *config.Config, log *logger.Logger) (repository.TransactionRepository, repository.AlertRepository, func(), error) {
	breakerCfg := repository.BreakerConfig{
		MaxRequests:      cfg.Database.BreakerMaxRequests,
		Interval:         cfg.Database.BreakerInterval,
		Timeout:          cfg.Database.BreakerTimeout,
		FailureThreshold: cfg.Database.BreakerFailureThreshold,
	}
	storeLog := log.Named("store")

	var (
		txRepo    repository.TransactionRepository
		alertRepo repository.AlertRepository
		closeFn   = func() {}
	)

	if cfg.Database.Host == "" {
		storeLog.Warn("no database host configured, using in-memory store")
		txRepo = repository.NewMemoryTransactions()
		alertRepo = repository.NewMemoryAlerts()
	} else {
		pool, err := repository.NewPool(ctx, cfg.Database)
		if err != nil {
			return nil, nil, nil, err
		}
		storeLog.Info("connected to postgres",
			zap.String("host", cfg.Database.Host),
			zap.String("database", cfg.Database.Database),
		)
		txRepo = repository.NewPostgresTransactions(pool)
		alertRepo = repository.NewPostgresAlerts(pool)
		closeFn = pool.Close
	}

	txRepo = repository.NewBreakerTransactions(txRepo, repository.NewBreaker("transactions", breakerCfg, storeLog))
	alertRepo = repository.NewBreakerAlerts(alertRepo, repository.NewBreaker("alerts", breakerCfg, storeLog))
	return txRepo, alertRepo, closeFn, nil
}

// openCache connects Redis when enabled. An unreachable Redis disables
// caching instead of failing startup
func openCache(ctx context.Context, cfg *config.Config, log *logger.Logger) (cache.MetricsCache, func()) {
	if !cfg.Redis.Enabled {
		return cache.NoopMetricsCache{}, func() {}
	}

	client := cache.NewRedisClient(cfg.Redis)
	pingCtx, cancel := context.WithTimeout(ctx, cfg.Redis.DialTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		log.Warn("redis unavailable, metrics cache disabled", zap.String("addr", cfg.Redis.Addr()), zap.Error(err))
		_ = client.Close()
		return cache.NoopMetricsCache{}, func() {}
	}

	log.Info("connected to redis", zap.String("addr", cfg.Redis.Addr()))
	return cache.NewRedisMetricsCache(client, cfg.Redis.MetricsCacheTTL), func() { _ = client.Close() }
}

func openPublisher(cfg *config.Config, log *logger.Logger) (events.Publisher, error) {
	if !cfg.Kafka.Enabled {
		return events.NoopPublisher{}, nil
	}
	p, err := events.NewKafkaPublisher(cfg.Kafka)
	if err != nil {
		return nil, err
	}
	log.Info("kafka publisher ready", zap.Strings("brokers", cfg.Kafka.Brokers))
	return p, nil
}
