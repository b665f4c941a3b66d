package service

import (
	"log/slog"

	"pulsewire.app/ingest/common/llm"
	"pulsewire.app/ingest/core/config"
	"pulsewire.app/ingest/internal/dedup"
	"pulsewire.app/ingest/internal/queue"
	"pulsewire.app/ingest/internal/task"
)

type Services struct {
	cfg       config.Config
	stores    StoreProvider
	registry  *task.Registry
	producer  queue.Producer
	fetcher   Fetcher
	providers []llm.Provider
	cache     *SummaryCache
	logger    *slog.Logger
}

func NewServices(cfg config.Config, stores StoreProvider, registry *task.Registry, producer queue.Producer, fetcher Fetcher, providers []llm.Provider, logger *slog.Logger) *Services {
	return &Services{
		cfg:       cfg,
		stores:    stores,
		registry:  registry,
		producer:  producer,
		fetcher:   fetcher,
		providers: providers,
		cache:     NewSummaryCache(cfg.Summary.CacheTTL),
		logger:    logger,
	}
}

func (s *Services) Ingest() IngestService {
	return NewIngestService(s.fetcher, s.stores, s.registry, s.producer, s.cfg.Ingest, s.logger)
}

func (s *Services) Dedup() DedupService {
	return NewDedupService(s.stores, dedup.New(s.cfg.Dedup.SimilarityThreshold), s.registry, s.producer, s.cfg.Dedup, s.logger)
}

func (s *Services) Summarize() SummarizeService {
	return NewSummarizeService(s.stores, s.providers, s.cache, s.registry, s.cfg.Summary, s.logger)
}

func (s *Services) Tasks() *task.Registry {
	return s.registry
}
