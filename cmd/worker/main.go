package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"pulsewire.app/ingest/common/id"
	"pulsewire.app/ingest/common/llm"
	"pulsewire.app/ingest/common/logger"
	"pulsewire.app/ingest/common/otel"
	"pulsewire.app/ingest/core/config"
	"pulsewire.app/ingest/core/db"
	"pulsewire.app/ingest/internal/dedup"
	"pulsewire.app/ingest/internal/queue"
	"pulsewire.app/ingest/internal/service"
	"pulsewire.app/ingest/internal/store"
	"pulsewire.app/ingest/internal/task"
	"pulsewire.app/ingest/internal/worker"
)

func main() {
	fmt.Printf("%s\n", banner)
	ctx := context.Background()

	cfg, err := config.Load(config.ServiceTypeWorker)
	if err != nil {
		slog.ErrorContext(ctx, "failed to load config", "error", err)
		os.Exit(1)
	}

	telemetry, err := otel.Setup(ctx, cfg.OTel)
	if err != nil {
		os.Stderr.WriteString("failed to initialize otel: " + err.Error() + "\n")
		os.Exit(1)
	}

	logger.Setup(cfg)

	slog.InfoContext(ctx, "worker starting",
		"env", cfg.Env,
		"consumer_group", cfg.Queue.Group,
		"consumer_name", cfg.Queue.Consumer)

	// Different node ID than the server so snowflakes never collide.
	if err := id.Init(2); err != nil {
		slog.ErrorContext(ctx, "failed to initialize snowflake id generator", "error", err)
		os.Exit(1)
	}

	database, err := db.New(ctx, cfg.DB)
	if err != nil {
		slog.ErrorContext(ctx, "failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer database.Close()
	slog.InfoContext(ctx, "database connected")

	redisOpts, err := redis.ParseURL(cfg.Queue.RedisURL)
	if err != nil {
		slog.ErrorContext(ctx, "failed to parse redis url", "error", err)
		os.Exit(1)
	}

	redisClient := redis.NewClient(redisOpts)
	if err := redisClient.Ping(ctx).Err(); err != nil {
		slog.ErrorContext(ctx, "failed to connect to redis", "error", err)
		os.Exit(1)
	}
	defer redisClient.Close()
	slog.InfoContext(ctx, "redis connected", "stream", cfg.Queue.Stream)

	consumer, err := queue.NewRedisConsumer(redisClient, queue.ConsumerConfig{
		Stream:       cfg.Queue.Stream,
		Group:        cfg.Queue.Group,
		Consumer:     cfg.Queue.Consumer,
		DLQStream:    cfg.Queue.DLQStream,
		BatchSize:    10,
		Block:        5 * time.Second,
		MaxAttempts:  cfg.Queue.MaxAttempts,
		RequeueDelay: cfg.Queue.RequeueDelay,
	})
	if err != nil {
		slog.ErrorContext(ctx, "failed to create consumer", "error", err)
		os.Exit(1)
	}

	// The dedup stage enqueues follow-up summarize tasks, so the worker
	// produces to the same stream it consumes.
	producer := queue.NewRedisProducer(redisClient, cfg.Queue.Stream, nil)

	stores := store.NewStores(database)
	registry := task.NewRegistry(cfg.Tasks.TTL, task.SystemClock())

	providers := buildProviders(ctx, cfg.Providers)
	cache := service.NewSummaryCache(cfg.Summary.CacheTTL)

	dedupSvc := service.NewDedupService(stores, dedup.New(cfg.Dedup.SimilarityThreshold), registry, producer, cfg.Dedup, nil)
	summarizeSvc := service.NewSummarizeService(stores, providers, cache, registry, cfg.Summary, nil)

	w := worker.New(consumer, dedupSvc, summarizeSvc, worker.Config{
		MaxAttempts: cfg.Queue.MaxAttempts,
	})

	reclaimer := worker.NewRedisReclaimer(redisClient, worker.RedisReclaimerConfig{
		Stream:    cfg.Queue.Stream,
		Group:     cfg.Queue.Group,
		Consumer:  cfg.Queue.Consumer + "-reclaimer",
		MinIdle:   5 * time.Minute,
		Interval:  time.Minute,
		BatchSize: 10,
	}, consumer, w.ProcessMessage)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	errCh := make(chan error, 2)
	go func() {
		errCh <- w.Run(runCtx)
	}()
	go func() {
		reclaimer.Run(runCtx)
		errCh <- nil
	}()

	slog.InfoContext(ctx, "worker initialized and running")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-quit:
		slog.InfoContext(ctx, "shutting down...")
	case err := <-errCh:
		if err != nil && err != context.Canceled {
			slog.ErrorContext(ctx, "worker stopped with error", "error", err)
		}
	}

	w.Stop()
	reclaimer.Stop()
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if telemetry != nil {
		if err := telemetry.Shutdown(shutdownCtx); err != nil {
			slog.ErrorContext(shutdownCtx, "otel shutdown error", "error", err)
		}
	}

	slog.InfoContext(shutdownCtx, "shutdown complete")
}

func buildProviders(ctx context.Context, configs []config.ProviderConfig) []llm.Provider {
	var providers []llm.Provider
	for _, pc := range configs {
		provider, err := llm.New(pc.Name, llm.Config{
			APIKey:          pc.APIKey,
			BaseURL:         pc.BaseURL,
			Model:           pc.Model,
			InputCostPer1K:  pc.InputCostPer1K,
			OutputCostPer1K: pc.OutputCostPer1K,
		})
		if err != nil {
			slog.WarnContext(ctx, "skipping LLM provider", "provider", pc.Name, "error", err)
			continue
		}
		providers = append(providers, provider)
		slog.InfoContext(ctx, "LLM provider configured", "provider", pc.Name, "model", pc.Model)
	}
	if len(providers) == 0 {
		slog.WarnContext(ctx, "no LLM providers configured, summarization will fail")
	}
	return providers
}

const banner = `
██████╗ ██╗   ██╗██╗     ███████╗███████╗██╗    ██╗██╗██████╗ ███████╗
██╔══██╗██║   ██║██║     ██╔════╝██╔════╝██║    ██║██║██╔══██╗██╔════╝
██████╔╝██║   ██║██║     ███████╗█████╗  ██║ █╗ ██║██║██████╔╝█████╗
██╔═══╝ ██║   ██║██║     ╚════██║██╔══╝  ██║███╗██║██║██╔══██╗██╔══╝
██║     ╚██████╔╝███████╗███████╗███████╗╚███╔███╔╝██║██║  ██║███████╗
╚═╝      ╚═════╝ ╚══════╝╚══════╝╚══════╝ ╚══╝╚══╝ ╚═╝╚═╝  ╚═╝╚══════╝
`
