package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/boddenberg/fintrack-go/internal/analysis"
	"github.com/boddenberg/fintrack-go/internal/categorize"
	"github.com/boddenberg/fintrack-go/internal/config"
	"github.com/boddenberg/fintrack-go/internal/dataset"
	"github.com/boddenberg/fintrack-go/internal/domain"
	"github.com/boddenberg/fintrack-go/internal/fraud"
	"github.com/boddenberg/fintrack-go/internal/handler"
	"github.com/boddenberg/fintrack-go/internal/infra/cache"
	"github.com/boddenberg/fintrack-go/internal/infra/client"
	"github.com/boddenberg/fintrack-go/internal/infra/events"
	"github.com/boddenberg/fintrack-go/internal/infra/memstore"
	"github.com/boddenberg/fintrack-go/internal/infra/observability"
	"github.com/boddenberg/fintrack-go/internal/infra/resilience"
	"github.com/boddenberg/fintrack-go/internal/infra/sqlite"
	"github.com/boddenberg/fintrack-go/internal/port"
	"github.com/boddenberg/fintrack-go/internal/service"

	"go.uber.org/zap"
)

func main() {
	// --- Load .env file (for local development) ---
	_ = config.LoadDotEnv(".env")

	// --- Config ---
	cfg := config.Load()

	// --- Logger ---
	logger := observability.NewLogger(cfg.LogLevel)
	defer logger.Sync()

	logger.Info("configuration loaded",
		zap.Int("port", cfg.Port),
		zap.String("log_level", cfg.LogLevel),
		zap.String("store_driver", cfg.StoreDriver),
		zap.Bool("redis", cfg.RedisAddr != ""),
		zap.Strings("kafka_brokers", cfg.KafkaBrokers),
		zap.String("llm_model", cfg.LLMModel),
		zap.Bool("llm_key_configured", cfg.LLMAPIKey != ""),
		zap.Duration("llm_timeout", cfg.LLMTimeout),
		zap.Duration("cache_ttl", cfg.CacheTTL),
		zap.Bool("fraud_dataset_rule", cfg.FraudDatasetRule),
		zap.Duration("jwt_access_ttl", cfg.JWTAccessTTL),
	)

	// --- Tracing ---
	shutdown, err := observability.InitTracer(cfg.OTLPEndpoint, "fintrack")
	if err != nil {
		logger.Fatal("failed to init tracer", zap.Error(err))
	}
	defer shutdown(context.Background())

	// --- Metrics ---
	metrics := observability.NewMetrics()

	// --- Store ---
	store := openStore(cfg, logger)
	defer store.Close()

	// --- Cache ---
	reportCache, closeCache := newReportCache(cfg, logger)
	defer closeCache()

	// --- Events ---
	var publisher port.EventPublisher = events.NopPublisher{}
	if len(cfg.KafkaBrokers) > 0 {
		kp, err := events.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaFlaggedTopic, logger)
		if err != nil {
			logger.Warn("kafka unavailable, flagged events disabled", zap.Error(err))
		} else {
			publisher = kp
			logger.Info("publishing flagged transactions",
				zap.String("topic", cfg.KafkaFlaggedTopic),
			)
		}
	}
	defer publisher.Close()

	// --- Generative model client ---
	llm := client.NewLLMClient(
		&http.Client{Timeout: cfg.LLMTimeout + 5*time.Second},
		cfg.LLMAPIURL,
		cfg.LLMModel,
		resilience.NewCircuitBreaker("llm", logger),
		resilience.NewBulkhead(cfg.LLMMaxConcurrency),
	)

	// --- Scoring ---
	patterns := dataset.NewCache()
	categorizer := categorize.New()

	var engineOpts []fraud.Option
	if cfg.FraudDatasetRule {
		engineOpts = append(engineOpts, fraud.WithDatasetPatterns(patterns))
	}
	engine := fraud.NewEngine(engineOpts...)

	orchestrator := analysis.New(llm, patterns, metrics, logger, analysis.WithTimeout(cfg.LLMTimeout))

	// --- Services ---
	healthSvc := service.NewHealthService(store, logger)
	txSvc := service.NewTransactionService(store, healthSvc, categorizer, engine, publisher, metrics, logger)
	planningSvc := service.NewPlanningService(store, healthSvc, logger)
	authSvc := service.NewAuthService(store, healthSvc, cfg.JWTSecret, cfg.JWTAccessTTL, logger)
	analysisSvc := service.NewAnalysisService(store, orchestrator, patterns, reportCache, cfg.LLMAPIKey, metrics, logger)
	receiptSvc := service.NewReceiptService(llm, categorizer, cfg.LLMAPIKey, cfg.LLMTimeout, metrics, logger)
	datasetSvc := service.NewDatasetService(patterns, metrics, logger)

	// Requests served before the dataset is mined see no patterns.
	warmupCtx, cancelWarmup := context.WithCancel(context.Background())
	defer cancelWarmup()
	go func() {
		if err := datasetSvc.Warmup(warmupCtx, cfg.DatasetDir); err != nil {
			logger.Warn("dataset warmup skipped", zap.String("dir", cfg.DatasetDir), zap.Error(err))
		}
	}()

	// --- Router ---
	router := handler.NewRouter(
		handler.Services{
			Auth:         authSvc,
			Transactions: txSvc,
			Receipts:     receiptSvc,
			Planning:     planningSvc,
			Health:       healthSvc,
			Analysis:     analysisSvc,
			Datasets:     datasetSvc,
		},
		handler.Options{
			AllowedOrigins: cfg.CORSAllowedOrigins,
			Ping:           store.Ping,
		},
		metrics,
		logger,
	)

	// --- Server ---
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: cfg.LLMTimeout + 30*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// --- Graceful shutdown ---
	go func() {
		logger.Info("server starting", zap.Int("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("server shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server forced shutdown", zap.Error(err))
	}

	logger.Info("server stopped")
}

// openStore returns the configured store, falling back to memory when the
// database cannot be opened.
func openStore(cfg *config.Config, logger *zap.Logger) port.Store {
	if cfg.StoreDriver == "memory" {
		logger.Info("using in-memory store")
		return memstore.New()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	db, err := sqlite.Open(ctx, cfg.SQLitePath, resilience.Config{
		MaxRetries:     cfg.MaxRetries,
		InitialBackoff: cfg.InitialBackoff,
	}, logger)
	if err != nil {
		logger.Error("sqlite unavailable, falling back to in-memory store",
			zap.String("path", cfg.SQLitePath),
			zap.Error(err),
		)
		return memstore.New()
	}
	logger.Info("using sqlite store", zap.String("path", cfg.SQLitePath))
	return db
}

// newReportCache picks Redis when configured, else a process-local cache.
func newReportCache(cfg *config.Config, logger *zap.Logger) (port.Cache[*domain.FraudAnalysisResult], func()) {
	if cfg.RedisAddr != "" {
		rc, err := cache.NewRedisClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err == nil {
			logger.Info("using redis report cache", zap.String("addr", cfg.RedisAddr))
			return cache.NewRedis[*domain.FraudAnalysisResult](rc, "fintrack:analysis:", cfg.CacheTTL, logger),
				func() { _ = rc.Close() }
		}
		logger.Warn("redis unavailable, using in-memory cache", zap.Error(err))
	}
	mem := cache.New[*domain.FraudAnalysisResult](cfg.CacheTTL)
	return mem, func() { _ = mem.Close() }
}
