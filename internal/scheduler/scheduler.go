// Package scheduler drives the periodic ingestion of tracked accounts.
// It wraps robfig/cron with slog logging in the style of the rest of
// the codebase.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/samber/lo"

	"pulsewire.app/ingest/common/logger"
	"pulsewire.app/ingest/core/config"
	"pulsewire.app/ingest/internal/model"
	"pulsewire.app/ingest/internal/service"
	"pulsewire.app/ingest/internal/store"
)

const jobTimeout = 30 * time.Minute

type Scheduler struct {
	cron     *cron.Cron
	accounts store.AccountStore
	ingest   service.IngestService
	cfg      config.SchedulerConfig
	logger   *slog.Logger
}

func New(cfg config.SchedulerConfig, accounts store.AccountStore, ingest service.IngestService, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		cron:     cron.New(),
		accounts: accounts,
		ingest:   ingest,
		cfg:      cfg,
		logger:   logger,
	}
}

// Start registers the scrape job and begins the cron loop. A scheduler
// with no cron expression configured is a no-op.
func (s *Scheduler) Start() error {
	if !s.cfg.Enabled() {
		s.logger.Info("scheduler disabled, no cron expression configured")
		return nil
	}

	if _, err := s.cron.AddFunc(s.cfg.CronSpec, s.scrapeTrackedAccounts); err != nil {
		return fmt.Errorf("scheduling scrape job: %w", err)
	}

	s.cron.Start()
	s.logger.Info("scheduler started", "cron", s.cfg.CronSpec, "limit", s.cfg.Limit)
	return nil
}

// Stop halts the cron loop and waits for a running job to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.logger.Info("scheduler stopped")
}

func (s *Scheduler) scrapeTrackedAccounts() {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	ctx = logger.WithLogFields(ctx, logger.LogFields{
		Component: "ingest.scheduler",
	})

	accounts, err := s.accounts.List(ctx, true)
	if err != nil {
		s.logger.ErrorContext(ctx, "listing tracked accounts failed", "error", err)
		return
	}
	if len(accounts) == 0 {
		s.logger.InfoContext(ctx, "no active tracked accounts, nothing to scrape")
		return
	}

	handles := lo.Map(accounts, func(a model.TrackedAccount, _ int) string { return a.Handle })

	start := time.Now()
	result, err := s.ingest.Run(ctx, service.IngestParams{
		Accounts: handles,
		Limit:    s.cfg.Limit,
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "scheduled ingest failed", "error", err)
		return
	}

	s.logger.InfoContext(ctx, "scheduled ingest finished",
		"accounts", len(handles),
		"saved", result.Saved,
		"skipped", result.Skipped,
		"failed_accounts", result.FailedAccounts,
		"duration", time.Since(start))
}
