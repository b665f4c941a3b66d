package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/samber/lo"

	"pulsewire.app/ingest/common/id"
	"pulsewire.app/ingest/common/logger"
	"pulsewire.app/ingest/core/config"
	"pulsewire.app/ingest/internal/dedup"
	"pulsewire.app/ingest/internal/model"
	"pulsewire.app/ingest/internal/queue"
	"pulsewire.app/ingest/internal/task"
)

type DedupParams struct {
	PostIDs []string `json:"post_ids"`
	TraceID *string  `json:"trace_id,omitempty"`
}

type DedupResult struct {
	Total         int `json:"total"`
	Groups        int `json:"groups"`
	ExactGroups   int `json:"exact_groups"`
	SimilarGroups int `json:"similar_groups"`

	// Affected counts the non-representative members folded into a
	// group; Preserved is the number of distinct pieces of content left
	// after collapsing duplicates (ungrouped posts plus one
	// representative per group).
	Affected  int   `json:"affected"`
	Preserved int   `json:"preserved"`
	ElapsedMs int64 `json:"elapsed_ms"`
}

type DedupService interface {
	Deduplicate(ctx context.Context, params DedupParams) (*DedupResult, error)
	DeduplicateAsync(ctx context.Context, params DedupParams) (string, error)
}

type dedupService struct {
	stores   StoreProvider
	detector *dedup.Detector
	registry *task.Registry
	producer queue.Producer
	cfg      config.DedupConfig
	logger   *slog.Logger
}

func NewDedupService(stores StoreProvider, detector *dedup.Detector, registry *task.Registry, producer queue.Producer, cfg config.DedupConfig, logger *slog.Logger) DedupService {
	if logger == nil {
		logger = slog.Default()
	}
	return &dedupService{
		stores:   stores,
		detector: detector,
		registry: registry,
		producer: producer,
		cfg:      cfg,
		logger:   logger,
	}
}

// DeduplicateAsync registers a task and runs deduplication in the
// background, detached from the caller's request context.
func (s *dedupService) DeduplicateAsync(ctx context.Context, params DedupParams) (string, error) {
	if len(params.PostIDs) == 0 {
		return "", fmt.Errorf("at least one post id is required")
	}

	taskID := s.registry.Create("deduplicate", map[string]string{
		"posts": fmt.Sprint(len(params.PostIDs)),
	})

	bgCtx := context.WithoutCancel(ctx)
	go func() {
		s.registry.MarkRunning(taskID)
		result, err := s.Deduplicate(bgCtx, params)
		if err != nil {
			s.registry.Fail(taskID, err.Error())
			return
		}
		s.registry.Complete(taskID, result)
	}()

	return taskID, nil
}

// Deduplicate partitions the referenced posts into duplicate groups and
// persists them. Posts already claimed by a group are left untouched,
// so re-running over the same IDs is a no-op.
func (s *dedupService) Deduplicate(ctx context.Context, params DedupParams) (*DedupResult, error) {
	if len(params.PostIDs) == 0 {
		return nil, fmt.Errorf("at least one post id is required")
	}

	start := time.Now()
	ctx = logger.WithLogFields(ctx, logger.LogFields{
		Component: "ingest.service.dedup",
	})

	posts, err := s.stores.Posts().GetByIDs(ctx, lo.Uniq(params.PostIDs))
	if err != nil {
		return nil, fmt.Errorf("loading posts: %w", err)
	}

	candidates := lo.Filter(posts, func(p model.Post, _ int) bool {
		return p.GroupID == nil
	})

	result := &DedupResult{Total: len(posts)}

	for _, batch := range lo.Chunk(candidates, s.cfg.BatchSize) {
		groups := s.detector.Detect(batch)

		for _, group := range groups {
			if err := s.persistGroup(ctx, group, params.TraceID); err != nil {
				s.logger.ErrorContext(ctx, "persisting duplicate group failed", "error", err, "members", len(group.Members))
				continue
			}

			result.Groups++
			result.Affected += len(group.Members) - 1
			switch group.Kind {
			case model.GroupKindExact:
				result.ExactGroups++
			case model.GroupKindSimilar:
				result.SimilarGroups++
			}
		}
	}

	result.Preserved = result.Total - result.Affected
	result.ElapsedMs = time.Since(start).Milliseconds()

	s.logger.InfoContext(ctx, "deduplication finished",
		"total", result.Total,
		"groups", result.Groups,
		"exact", result.ExactGroups,
		"similar", result.SimilarGroups,
		"affected", result.Affected,
		"preserved", result.Preserved)

	return result, nil
}

func (s *dedupService) persistGroup(ctx context.Context, group dedup.Group, traceID *string) error {
	rep := group.Representative()

	record := &model.DuplicateGroup{
		ID:               id.New(),
		RepresentativeID: rep.ID,
		Kind:             group.Kind,
		Score:            group.Score,
		MemberIDs:        group.MemberIDs(),
	}

	if err := s.stores.Groups().CreateWithMembers(ctx, record); err != nil {
		return err
	}

	s.logger.InfoContext(ctx, "duplicate group created",
		"group_id", record.ID,
		"kind", record.Kind,
		"members", len(record.MemberIDs),
		"representative", rep.ID)

	// The representative carries the group's summary; queueing it here
	// keeps summarization flowing without waiting for the next sweep.
	if s.producer != nil {
		if err := s.producer.Enqueue(ctx, queue.TaskMessage{
			TaskType: queue.TaskTypeSummarize,
			PostIDs:  []string{rep.ID},
			TraceID:  traceID,
		}); err != nil {
			s.logger.ErrorContext(ctx, "enqueueing summarize task failed", "error", err, "post_id", rep.ID)
		}
	}

	return nil
}
