package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"pulsewire.app/ingest/common/logger"
	"pulsewire.app/ingest/core/config"
	"pulsewire.app/ingest/internal/queue"
	"pulsewire.app/ingest/internal/task"
	"pulsewire.app/ingest/internal/upstream"
	"pulsewire.app/ingest/pkg/async"
)

// Fetcher is the slice of the upstream client the ingest path needs.
type Fetcher interface {
	FetchPosts(ctx context.Context, account string, limit int) (*upstream.Envelope, error)
}

type IngestParams struct {
	Accounts []string `json:"accounts"`
	Limit    int      `json:"limit"`
	TraceID  *string  `json:"trace_id,omitempty"`
}

// AccountIngest is one account's outcome inside a batch run. A fetch
// failure fails only that account; the rest of the batch proceeds.
type AccountIngest struct {
	Account string `json:"account"`
	Fetched int    `json:"fetched"`
	Saved   int    `json:"saved"`
	Skipped int    `json:"skipped"`
	Errors  int    `json:"errors"`
	Error   string `json:"error,omitempty"`
}

type IngestResult struct {
	Accounts       []AccountIngest `json:"accounts"`
	Fetched        int             `json:"fetched"`
	Saved          int             `json:"saved"`
	Skipped        int             `json:"skipped"`
	Errors         int             `json:"errors"`
	FailedAccounts int             `json:"failed_accounts"`
	ElapsedMs      int64           `json:"elapsed_ms"`
}

type IngestService interface {
	Run(ctx context.Context, params IngestParams) (*IngestResult, error)
	RunAsync(ctx context.Context, params IngestParams) (string, error)
}

type ingestService struct {
	fetcher  Fetcher
	stores   StoreProvider
	registry *task.Registry
	producer queue.Producer
	cfg      config.IngestConfig
	logger   *slog.Logger
}

func NewIngestService(fetcher Fetcher, stores StoreProvider, registry *task.Registry, producer queue.Producer, cfg config.IngestConfig, logger *slog.Logger) IngestService {
	if logger == nil {
		logger = slog.Default()
	}
	return &ingestService{
		fetcher:  fetcher,
		stores:   stores,
		registry: registry,
		producer: producer,
		cfg:      cfg,
		logger:   logger,
	}
}

// RunAsync registers a task and runs the batch in the background. The
// returned task ID is immediately pollable; the work survives the
// caller's request context being cancelled.
func (s *ingestService) RunAsync(ctx context.Context, params IngestParams) (string, error) {
	if len(params.Accounts) == 0 {
		return "", fmt.Errorf("at least one account is required")
	}

	taskID := s.registry.Create("ingest", map[string]string{
		"accounts": fmt.Sprint(len(params.Accounts)),
	})

	bgCtx := context.WithoutCancel(ctx)
	go func() {
		s.registry.MarkRunning(taskID)
		result, err := s.run(bgCtx, params, func(done, total int) {
			s.registry.SetProgress(taskID, done, total)
		})
		if err != nil {
			s.registry.Fail(taskID, err.Error())
			return
		}
		s.registry.Complete(taskID, result)
	}()

	return taskID, nil
}

func (s *ingestService) Run(ctx context.Context, params IngestParams) (*IngestResult, error) {
	if len(params.Accounts) == 0 {
		return nil, fmt.Errorf("at least one account is required")
	}
	return s.run(ctx, params, nil)
}

func (s *ingestService) run(ctx context.Context, params IngestParams, progress func(done, total int)) (*IngestResult, error) {
	limit := params.Limit
	if limit <= 0 {
		limit = s.cfg.DefaultLimit
	}

	start := time.Now()
	total := len(params.Accounts)
	var done atomic.Int64

	outcomes := async.MapPool(ctx, s.cfg.Concurrency, params.Accounts, func(ctx context.Context, account string) (AccountIngest, error) {
		outcome := s.ingestAccount(ctx, account, limit, params.TraceID)
		if progress != nil {
			progress(int(done.Add(1)), total)
		}
		return outcome, nil
	})

	result := &IngestResult{}
	for _, outcome := range outcomes {
		acct, _ := outcome.Unpack()
		result.Accounts = append(result.Accounts, acct)
		result.Fetched += acct.Fetched
		result.Saved += acct.Saved
		result.Skipped += acct.Skipped
		result.Errors += acct.Errors
		if acct.Error != "" {
			result.FailedAccounts++
		}
	}

	result.ElapsedMs = time.Since(start).Milliseconds()

	s.logger.InfoContext(ctx, "ingest run finished",
		"accounts", total,
		"fetched", result.Fetched,
		"saved", result.Saved,
		"skipped", result.Skipped,
		"errors", result.Errors,
		"failed_accounts", result.FailedAccounts,
		"elapsed_ms", result.ElapsedMs)

	return result, nil
}

func (s *ingestService) ingestAccount(ctx context.Context, account string, limit int, traceID *string) AccountIngest {
	ctx = logger.WithLogFields(ctx, logger.LogFields{
		Component: "ingest.service",
		Account:   &account,
	})

	outcome := AccountIngest{Account: account}

	envelope, err := s.fetcher.FetchPosts(ctx, account, limit)
	if err != nil {
		s.logger.ErrorContext(ctx, "fetching posts failed", "error", err)
		outcome.Error = err.Error()
		return outcome
	}

	posts := upstream.Parse(envelope)
	outcome.Fetched = len(posts)

	cleaned := posts[:0]
	for _, post := range posts {
		valid, err := upstream.ValidateAndClean(post)
		if err != nil {
			s.logger.WarnContext(ctx, "dropping invalid post", "post_id", post.ID, "error", err)
			outcome.Errors++
			continue
		}
		valid.FetchedAt = time.Now().UTC()
		cleaned = append(cleaned, valid)
	}

	saved, err := s.stores.Posts().SaveBatch(ctx, cleaned, s.cfg.EarlyStopThreshold)
	outcome.Saved = saved.Success
	outcome.Skipped = saved.Skipped
	outcome.Errors += saved.Errors
	if err != nil {
		s.logger.ErrorContext(ctx, "saving batch failed", "error", err)
		outcome.Error = err.Error()
		return outcome
	}

	// Deduplication runs out of band; a queue hiccup here must not fail
	// the ingest that already persisted the posts.
	if len(saved.SavedIDs) > 0 && s.producer != nil {
		if err := s.producer.Enqueue(ctx, queue.TaskMessage{
			TaskType: queue.TaskTypeDedup,
			Account:  account,
			PostIDs:  saved.SavedIDs,
			TraceID:  traceID,
		}); err != nil {
			s.logger.ErrorContext(ctx, "enqueueing dedup task failed", "error", err, "post_count", len(saved.SavedIDs))
		}
	}

	return outcome
}
