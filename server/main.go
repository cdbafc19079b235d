package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/phambaophuc/vision-gateway/internal/config"
	"github.com/phambaophuc/vision-gateway/internal/http/handlers"
	"github.com/phambaophuc/vision-gateway/internal/http/routes"
	"github.com/phambaophuc/vision-gateway/internal/metrics"
	"github.com/phambaophuc/vision-gateway/internal/services/analysis"
	"github.com/phambaophuc/vision-gateway/internal/services/inference"
	"github.com/phambaophuc/vision-gateway/internal/services/processor"
	"github.com/phambaophuc/vision-gateway/internal/services/queue"
	"github.com/phambaophuc/vision-gateway/internal/services/staging"
	"github.com/phambaophuc/vision-gateway/internal/services/usage"
	"go.uber.org/zap"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration: ", err)
	}

	// Initialize logger
	logger, err := newLogger(cfg.Log.Level)
	if err != nil {
		log.Fatal("Failed to initialize logger: ", err)
	}
	defer logger.Sync()

	metrics.Register()

	// Initialize services
	client := inference.NewClient(cfg.Vision, logger)
	if !client.HasDefaultAPIKey() {
		logger.Warn("DASHSCOPE_API_KEY is not set; requests must supply api_key")
	}

	var (
		serviceOpts []analysis.Option
		handlerOpts = []handlers.Option{handlers.WithDefaultCredential(client.HasDefaultAPIKey())}
	)

	if cfg.RedisEnabled() {
		ledger := usage.NewRedisLedger(cfg.Redis)
		defer ledger.Close()
		if err := ledger.Ping(context.Background()); err != nil {
			logger.Warn("Redis is not reachable; usage will be recorded once it recovers", zap.Error(err))
		}
		serviceOpts = append(serviceOpts, analysis.WithUsageRecorder(ledger))
		handlerOpts = append(handlerOpts, handlers.WithUsageStore(ledger))
	}

	if cfg.RabbitMQEnabled() {
		events, err := queue.NewQueueService(cfg.RabbitMQ.URL, logger)
		if err != nil {
			logger.Warn("Failed to initialize queue service", zap.Error(err))
			// Continue without analysis events
		} else {
			defer events.Close()
			if stats, err := events.GetQueueStats(); err == nil {
				logger.Info("Analysis events queue ready",
					zap.String("queue", stats.Name),
					zap.Int("pending", stats.Pending),
					zap.Int("consumers", stats.Consumers))
				if stats.Unconsumed() {
					logger.Warn("Analysis events are queued but nothing consumes them")
				}
			}
			serviceOpts = append(serviceOpts, analysis.WithEventPublisher(events))
			handlerOpts = append(handlerOpts, handlers.WithQueueHealth(events))
		}
	}

	service := analysis.NewService(
		client,
		processor.NewImageProcessor(cfg.Storage.MaxImageDimension),
		cfg.Vision,
		cfg.Batch,
		logger,
		serviceOpts...,
	)
	stager := staging.NewStager(cfg.Storage.StagingDir, logger)

	// Initialize handlers
	analysisHandler := handlers.NewAnalysisHandler(service, stager, logger, handlerOpts...)

	router := routes.NewRouter(analysisHandler, cfg, logger)

	// Create HTTP server
	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		Handler:      router.SetupRoutes(),
	}

	// Start server
	go func() {
		logger.Info("Starting server",
			zap.String("addr", server.Addr),
			zap.String("model", cfg.Vision.Model),
			zap.Int("batch_workers", cfg.Batch.Workers))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server failed to start", zap.Error(err))
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	// Graceful shutdown
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server exited")
}

func newLogger(level string) (*zap.Logger, error) {
	atomicLevel, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return nil, err
	}

	zapCfg := zap.NewProductionConfig()
	zapCfg.Level = atomicLevel
	return zapCfg.Build()
}
