package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/samber/lo"

	"pulsewire.app/ingest/common/id"
	"pulsewire.app/ingest/common/llm"
	"pulsewire.app/ingest/common/logger"
	"pulsewire.app/ingest/core/config"
	"pulsewire.app/ingest/internal/model"
	"pulsewire.app/ingest/internal/store"
	"pulsewire.app/ingest/internal/task"
	"pulsewire.app/ingest/pkg/async"
)

const summarySystemPrompt = `You are a social media analyst. Summarize the given post in one or two sentences, keeping the key facts and dropping filler. If the post is not written in the target language, also provide a translation of your summary into the target language.`

// summaryOutput is the structured shape requested from providers.
type summaryOutput struct {
	Summary     string  `json:"summary" jsonschema_description:"One to two sentence summary of the post"`
	Translation *string `json:"translation,omitempty" jsonschema_description:"Summary translated to the target language, only when the post is in another language"`
}

type SummarizeParams struct {
	PostIDs []string `json:"post_ids"`
	TraceID *string  `json:"trace_id,omitempty"`

	// ForceRefresh skips the cache and content-hash lookups and always
	// asks a provider; the fresh result still refreshes the cache.
	ForceRefresh bool `json:"force_refresh,omitempty"`
}

type ProviderUsage struct {
	Requests         int     `json:"requests"`
	PromptTokens     int     `json:"prompt_tokens"`
	CompletionTokens int     `json:"completion_tokens"`
	Cost             float64 `json:"cost"`
}

type SummarizeResult struct {
	Total     int                      `json:"total"`
	Generated int                      `json:"generated"`
	Cached    int                      `json:"cached"`
	Short     int                      `json:"short"`
	FannedOut int                      `json:"fanned_out"`
	Failed    int                      `json:"failed"`
	Cost      float64                  `json:"cost"`
	Providers map[string]ProviderUsage `json:"providers,omitempty"`
	ElapsedMs int64                    `json:"elapsed_ms"`
}

type SummarizeService interface {
	Summarize(ctx context.Context, params SummarizeParams) (*SummarizeResult, error)
	SummarizeAsync(ctx context.Context, params SummarizeParams) (string, error)
}

type summarizeService struct {
	stores    StoreProvider
	providers []llm.Provider
	cache     *SummaryCache
	registry  *task.Registry
	cfg       config.SummaryConfig
	logger    *slog.Logger
}

func NewSummarizeService(stores StoreProvider, providers []llm.Provider, cache *SummaryCache, registry *task.Registry, cfg config.SummaryConfig, logger *slog.Logger) SummarizeService {
	if logger == nil {
		logger = slog.Default()
	}
	return &summarizeService{
		stores:    stores,
		providers: providers,
		cache:     cache,
		registry:  registry,
		cfg:       cfg,
		logger:    logger,
	}
}

// SummarizeAsync registers a task and runs summarization in the
// background, detached from the caller's request context.
func (s *summarizeService) SummarizeAsync(ctx context.Context, params SummarizeParams) (string, error) {
	if len(params.PostIDs) == 0 {
		return "", fmt.Errorf("at least one post id is required")
	}

	taskID := s.registry.Create("summarize", map[string]string{
		"posts": fmt.Sprint(len(params.PostIDs)),
	})

	bgCtx := context.WithoutCancel(ctx)
	go func() {
		s.registry.MarkRunning(taskID)
		result, err := s.Summarize(bgCtx, params)
		if err != nil {
			s.registry.Fail(taskID, err.Error())
			return
		}
		s.registry.Complete(taskID, result)
	}()

	return taskID, nil
}

// postOutcome is one post's summarization result, accumulated into the
// batch result after the pool drains.
type postOutcome struct {
	kind             string // "generated", "cached", "short", "failed"
	provider         string
	promptTokens     int
	completionTokens int
	cost             float64
	fannedOut        int
	err              error // set when kind is "failed"
}

// Summarize produces a summary record for every referenced post.
// Grouped posts resolve to their group representative; the members
// receive copies of the representative's summary. Failures are
// per-post: one post exhausting the provider chain does not abort the
// batch. Only when every target fails does the run itself return an
// error.
func (s *summarizeService) Summarize(ctx context.Context, params SummarizeParams) (*SummarizeResult, error) {
	if len(params.PostIDs) == 0 {
		return nil, fmt.Errorf("at least one post id is required")
	}

	start := time.Now()
	ctx = logger.WithLogFields(ctx, logger.LogFields{
		Component: "ingest.service.summarize",
	})

	// Background runs link back to the trace of the request that queued
	// them.
	if params.TraceID != nil {
		sc := logger.StartSpanFromTraceID(ctx, *params.TraceID, "summarize.run")
		defer sc.End()
		ctx = sc.Context()
	}

	posts, err := s.stores.Posts().GetByIDs(ctx, lo.Uniq(params.PostIDs))
	if err != nil {
		return nil, fmt.Errorf("loading posts: %w", err)
	}

	targets, err := s.resolveTargets(ctx, posts)
	if err != nil {
		return nil, err
	}

	result := &SummarizeResult{Total: len(posts), Providers: map[string]ProviderUsage{}}

	outcomes := async.MapPool(ctx, s.cfg.Concurrency, targets, func(ctx context.Context, target model.Post) (postOutcome, error) {
		return s.summarizeOne(ctx, target, params.ForceRefresh), nil
	})

	var lastErr error
	for _, o := range outcomes {
		outcome, _ := o.Unpack()
		switch outcome.kind {
		case "generated":
			result.Generated++
		case "cached":
			result.Cached++
		case "short":
			result.Short++
		case "failed":
			result.Failed++
			if outcome.err != nil {
				lastErr = outcome.err
			}
		}
		result.FannedOut += outcome.fannedOut
		result.Cost += outcome.cost

		if outcome.provider != "" {
			usage := result.Providers[outcome.provider]
			usage.Requests++
			usage.PromptTokens += outcome.promptTokens
			usage.CompletionTokens += outcome.completionTokens
			usage.Cost += outcome.cost
			result.Providers[outcome.provider] = usage
		}
	}

	result.ElapsedMs = time.Since(start).Milliseconds()

	// A partial run still returns its aggregate; losing every target is
	// a hard failure.
	if len(targets) > 0 && result.Failed == len(targets) {
		if lastErr == nil {
			lastErr = fmt.Errorf("no summary was written")
		}
		s.logger.ErrorContext(ctx, "summarization failed for every target", "targets", len(targets), "error", lastErr)
		return nil, fmt.Errorf("summarizing all %d targets failed: %w", len(targets), lastErr)
	}

	s.logger.InfoContext(ctx, "summarization finished",
		"total", result.Total,
		"generated", result.Generated,
		"cached", result.Cached,
		"short", result.Short,
		"fanned_out", result.FannedOut,
		"failed", result.Failed,
		"cost", result.Cost)

	return result, nil
}

// resolveTargets maps each requested post to the post whose text will
// actually be summarized: itself when ungrouped, otherwise its group's
// representative. Duplicate targets collapse so a group summarizes once
// no matter how many of its members were requested.
func (s *summarizeService) resolveTargets(ctx context.Context, posts []model.Post) ([]model.Post, error) {
	seen := make(map[string]struct{}, len(posts))
	var targets []model.Post

	for _, post := range posts {
		target := post
		if post.GroupID != nil {
			group, err := s.stores.Groups().GetByID(ctx, *post.GroupID)
			if err != nil {
				return nil, fmt.Errorf("loading group %d: %w", *post.GroupID, err)
			}
			if group.RepresentativeID != post.ID {
				rep, err := s.stores.Posts().GetByID(ctx, group.RepresentativeID)
				if err != nil {
					return nil, fmt.Errorf("loading representative %s: %w", group.RepresentativeID, err)
				}
				target = *rep
			}
		}

		if _, ok := seen[target.ID]; ok {
			continue
		}
		seen[target.ID] = struct{}{}
		targets = append(targets, target)
	}

	return targets, nil
}

func (s *summarizeService) summarizeOne(ctx context.Context, post model.Post, forceRefresh bool) postOutcome {
	ctx = logger.WithLogFields(ctx, logger.LogFields{
		PostID: &post.ID,
	})

	text := summaryText(post)

	// Very short posts are stored verbatim; a model call would only
	// paraphrase them at cost.
	if utf8.RuneCountInString(text) < s.cfg.ShortTextThreshold {
		record := model.SummaryRecord{
			ID:          id.New(),
			PostID:      post.ID,
			Summary:     text,
			IsGenerated: false,
			ContentHash: ContentHash("summary", text),
		}
		if err := s.persist(ctx, post, record); err != nil {
			s.logger.ErrorContext(ctx, "persisting short-text summary failed", "error", err)
			return postOutcome{kind: "failed", err: err}
		}
		return postOutcome{kind: "short", fannedOut: s.fanOut(ctx, post, record)}
	}

	hash := ContentHash("summary", text)

	if !forceRefresh {
		if cached, ok := s.cache.Get(hash); ok {
			return s.reuse(ctx, post, cached, hash)
		}

		if existing, err := s.stores.Summaries().FindByContentHash(ctx, hash); err == nil {
			s.cache.Put(hash, *existing)
			return s.reuse(ctx, post, *existing, hash)
		} else if !errors.Is(err, store.ErrNotFound) {
			s.logger.ErrorContext(ctx, "content hash lookup failed", "error", err)
		}
	}

	completion, provider, err := s.complete(ctx, text)
	if err != nil {
		s.logger.ErrorContext(ctx, "all providers failed", "error", err)
		return postOutcome{kind: "failed", err: err}
	}

	output := parseSummaryOutput(completion.Text)

	record := model.SummaryRecord{
		ID:               id.New(),
		PostID:           post.ID,
		Summary:          output.Summary,
		Translation:      output.Translation,
		Provider:         provider.Name(),
		Model:            provider.Model(),
		PromptTokens:     completion.PromptTokens,
		CompletionTokens: completion.CompletionTokens,
		TotalTokens:      completion.PromptTokens + completion.CompletionTokens,
		Cost:             completion.Cost,
		IsGenerated:      true,
		ContentHash:      hash,
	}

	if err := s.persist(ctx, post, record); err != nil {
		s.logger.ErrorContext(ctx, "persisting summary failed", "error", err)
		return postOutcome{kind: "failed", err: err}
	}
	s.cache.Put(hash, record)

	return postOutcome{
		kind:             "generated",
		provider:         provider.Name(),
		promptTokens:     completion.PromptTokens,
		completionTokens: completion.CompletionTokens,
		cost:             completion.Cost,
		fannedOut:        s.fanOut(ctx, post, record),
	}
}

// reuse persists a copy of a previously generated summary for this
// post. Copies carry no token usage; the cost was paid once by the
// record that generated the text.
func (s *summarizeService) reuse(ctx context.Context, post model.Post, source model.SummaryRecord, hash string) postOutcome {
	record := model.SummaryRecord{
		ID:          id.New(),
		PostID:      post.ID,
		Summary:     source.Summary,
		Translation: source.Translation,
		Provider:    source.Provider,
		Model:       source.Model,
		Cached:      true,
		IsGenerated: source.IsGenerated,
		ContentHash: hash,
	}
	if err := s.persist(ctx, post, record); err != nil {
		s.logger.ErrorContext(ctx, "persisting cached summary failed", "error", err)
		return postOutcome{kind: "failed", err: err}
	}
	return postOutcome{kind: "cached", fannedOut: s.fanOut(ctx, post, record)}
}

// complete walks the provider chain. A temporary failure earns exactly
// one retry against the same provider; anything else advances to the
// next provider immediately. The error returned on exhaustion wraps the
// last provider's failure.
func (s *summarizeService) complete(ctx context.Context, text string) (*llm.Completion, llm.Provider, error) {
	if len(s.providers) == 0 {
		return nil, nil, fmt.Errorf("no LLM providers configured")
	}

	req := llm.CompletionRequest{
		SystemPrompt: summarySystemPrompt,
		Prompt:       fmt.Sprintf("Target language: %s\n\nPost:\n%s", s.cfg.TargetLanguage, text),
		SchemaName:   "post_summary",
		Schema:       llm.GenerateSchema[summaryOutput](),
		MaxTokens:    s.cfg.MaxTokens,
		Temperature:  llm.Temp(0.2),
	}

	var lastErr error
	for _, provider := range s.providers {
		name := provider.Name()
		ctx := logger.WithLogFields(ctx, logger.LogFields{Provider: &name})

		completion, err := provider.Complete(ctx, req)
		if err == nil {
			return completion, provider, nil
		}

		if llm.Classify(err) == llm.ErrorTemporary {
			s.logger.WarnContext(ctx, "temporary provider failure, retrying once", "error", err)
			completion, err = provider.Complete(ctx, req)
			if err == nil {
				return completion, provider, nil
			}
		}

		s.logger.WarnContext(ctx, "provider failed, advancing chain", "error", err, "class", llm.Classify(err).String())
		lastErr = err
	}

	return nil, nil, fmt.Errorf("provider chain exhausted: %w", lastErr)
}

func (s *summarizeService) persist(ctx context.Context, post model.Post, record model.SummaryRecord) error {
	now := time.Now().UTC()
	record.CreatedAt = now
	record.UpdatedAt = now
	return s.stores.Summaries().Create(ctx, &record)
}

// fanOut copies the representative's summary to every other member of
// its group. Member copies are cached records with zero token usage.
func (s *summarizeService) fanOut(ctx context.Context, post model.Post, record model.SummaryRecord) int {
	if post.GroupID == nil {
		return 0
	}

	group, err := s.stores.Groups().GetByID(ctx, *post.GroupID)
	if err != nil {
		s.logger.ErrorContext(ctx, "loading group for fan-out failed", "error", err, "group_id", *post.GroupID)
		return 0
	}
	if group.RepresentativeID != post.ID {
		return 0
	}

	now := time.Now().UTC()
	var copies []model.SummaryRecord
	for _, memberID := range group.MemberIDs {
		if memberID == post.ID {
			continue
		}
		copies = append(copies, model.SummaryRecord{
			ID:          id.New(),
			PostID:      memberID,
			Summary:     record.Summary,
			Translation: record.Translation,
			Provider:    record.Provider,
			Model:       record.Model,
			Cached:      true,
			IsGenerated: record.IsGenerated,
			ContentHash: record.ContentHash,
			CreatedAt:   now,
			UpdatedAt:   now,
		})
	}
	if len(copies) == 0 {
		return 0
	}

	if err := s.stores.Summaries().CreateBatch(ctx, copies); err != nil {
		s.logger.ErrorContext(ctx, "fanning out summaries failed", "error", err, "group_id", group.ID)
		return 0
	}
	return len(copies)
}

// summaryText picks the text to summarize: the post's own text, or the
// quoted original when a bare repost carries none of its own.
func summaryText(post model.Post) string {
	text := strings.TrimSpace(post.Text)
	if text == "" && post.Quoted != nil {
		text = strings.TrimSpace(post.Quoted.Text)
	}
	return text
}

// parseSummaryOutput decodes the provider's structured reply, falling
// back to treating the raw text as the summary when the model ignored
// the schema.
func parseSummaryOutput(text string) summaryOutput {
	var output summaryOutput
	if err := json.Unmarshal([]byte(text), &output); err == nil && output.Summary != "" {
		return output
	}
	return summaryOutput{Summary: strings.TrimSpace(text)}
}
