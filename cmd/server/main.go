package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"pulsewire.app/ingest/common/id"
	"pulsewire.app/ingest/common/llm"
	"pulsewire.app/ingest/common/logger"
	"pulsewire.app/ingest/common/otel"
	"pulsewire.app/ingest/core/config"
	"pulsewire.app/ingest/core/db"
	"pulsewire.app/ingest/internal/http/middleware"
	httprouter "pulsewire.app/ingest/internal/http/router"
	"pulsewire.app/ingest/internal/queue"
	"pulsewire.app/ingest/internal/scheduler"
	"pulsewire.app/ingest/internal/service"
	"pulsewire.app/ingest/internal/store"
	"pulsewire.app/ingest/internal/task"
	"pulsewire.app/ingest/internal/upstream"
)

func main() {
	fmt.Printf("%s\n", banner)
	ctx := context.Background()

	cfg, err := config.Load(config.ServiceTypeServer)
	if err != nil {
		slog.ErrorContext(ctx, "failed to load config", "error", err)
		os.Exit(1)
	}

	// OTel must init before logger (logger uses OTel provider in production)
	telemetry, err := otel.Setup(ctx, cfg.OTel)
	if err != nil {
		// Can't use slog yet — OTel failed before logger setup
		os.Stderr.WriteString("failed to initialize otel: " + err.Error() + "\n")
		os.Exit(1)
	}

	logger.Setup(cfg)

	if telemetry != nil {
		slog.InfoContext(ctx, "otel initialized", "endpoint", cfg.OTel.Endpoint)
	} else {
		slog.InfoContext(ctx, "otel disabled (no endpoint configured)")
	}

	slog.InfoContext(ctx, "server starting", "env", cfg.Env, "service", cfg.OTel.ServiceName)
	if err := id.Init(1); err != nil {
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

	if err := store.Migrate(ctx, database); err != nil {
		slog.ErrorContext(ctx, "failed to run migrations", "error", err)
		os.Exit(1)
	}

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
	slog.InfoContext(ctx, "redis connected", "stream", cfg.Queue.Stream)

	producer := queue.NewRedisProducer(redisClient, cfg.Queue.Stream, nil)
	defer producer.Close()

	stores := store.NewStores(database)

	registry := task.NewRegistry(cfg.Tasks.TTL, task.SystemClock())
	go registry.RunSweeper(ctx, cfg.Tasks.TTL/4)

	fetcher := upstream.NewClient(cfg.Upstream)
	defer fetcher.Close()

	providers := buildProviders(ctx, cfg.Providers)

	services := service.NewServices(cfg, stores, registry, producer, fetcher, providers, nil)

	sched := scheduler.New(cfg.Scheduler, stores.Accounts(), services.Ingest(), nil)
	if err := sched.Start(); err != nil {
		slog.ErrorContext(ctx, "failed to start scheduler", "error", err)
		os.Exit(1)
	}

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := setupRouter(cfg, services, registry, stores)
	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		slog.InfoContext(ctx, "http server starting", "port", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.ErrorContext(ctx, "http server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.InfoContext(ctx, "shutting down...")

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if cfg.Scheduler.Enabled() {
		sched.Stop()
	}

	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.ErrorContext(shutdownCtx, "http server shutdown error", "error", err)
	}

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

func setupRouter(cfg config.Config, services *service.Services, registry *task.Registry, stores *store.Stores) *gin.Engine {
	router := gin.New()

	// Order matters: OTel creates span → Recovery catches panics → Logger logs with trace context
	if cfg.OTel.Enabled() {
		router.Use(otelgin.Middleware(cfg.OTel.ServiceName))
	}
	router.Use(middleware.Recovery())
	router.Use(middleware.Logger())

	httprouter.SetupRoutes(router, services, registry, stores.Accounts())

	return router
}

const banner = `
██████╗ ██╗   ██╗██╗     ███████╗███████╗██╗    ██╗██╗██████╗ ███████╗
██╔══██╗██║   ██║██║     ██╔════╝██╔════╝██║    ██║██║██╔══██╗██╔════╝
██████╔╝██║   ██║██║     ███████╗█████╗  ██║ █╗ ██║██║██████╔╝█████╗
██╔═══╝ ██║   ██║██║     ╚════██║██╔══╝  ██║███╗██║██║██╔══██╗██╔══╝
██║     ╚██████╔╝███████╗███████║███████╗╚███╔███╔╝██║██║  ██║███████╗
╚═╝      ╚═════╝ ╚══════╝╚══════╝╚══════╝ ╚══╝╚══╝ ╚═╝╚═╝  ╚═╝╚══════╝
`
