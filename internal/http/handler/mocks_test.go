package handler_test

import (
	"context"

	"pulsewire.app/ingest/internal/service"
)

type mockIngestService struct {
	runFn      func(ctx context.Context, params service.IngestParams) (*service.IngestResult, error)
	runAsyncFn func(ctx context.Context, params service.IngestParams) (string, error)
}

func (m *mockIngestService) Run(ctx context.Context, params service.IngestParams) (*service.IngestResult, error) {
	if m.runFn != nil {
		return m.runFn(ctx, params)
	}
	return &service.IngestResult{}, nil
}

func (m *mockIngestService) RunAsync(ctx context.Context, params service.IngestParams) (string, error) {
	if m.runAsyncFn != nil {
		return m.runAsyncFn(ctx, params)
	}
	return "task-1", nil
}

type mockDedupService struct {
	deduplicateFn      func(ctx context.Context, params service.DedupParams) (*service.DedupResult, error)
	deduplicateAsyncFn func(ctx context.Context, params service.DedupParams) (string, error)
}

func (m *mockDedupService) Deduplicate(ctx context.Context, params service.DedupParams) (*service.DedupResult, error) {
	if m.deduplicateFn != nil {
		return m.deduplicateFn(ctx, params)
	}
	return &service.DedupResult{}, nil
}

func (m *mockDedupService) DeduplicateAsync(ctx context.Context, params service.DedupParams) (string, error) {
	if m.deduplicateAsyncFn != nil {
		return m.deduplicateAsyncFn(ctx, params)
	}
	return "task-2", nil
}

type mockSummarizeService struct {
	summarizeFn      func(ctx context.Context, params service.SummarizeParams) (*service.SummarizeResult, error)
	summarizeAsyncFn func(ctx context.Context, params service.SummarizeParams) (string, error)
}

func (m *mockSummarizeService) Summarize(ctx context.Context, params service.SummarizeParams) (*service.SummarizeResult, error) {
	if m.summarizeFn != nil {
		return m.summarizeFn(ctx, params)
	}
	return &service.SummarizeResult{}, nil
}

func (m *mockSummarizeService) SummarizeAsync(ctx context.Context, params service.SummarizeParams) (string, error) {
	if m.summarizeAsyncFn != nil {
		return m.summarizeAsyncFn(ctx, params)
	}
	return "task-3", nil
}
