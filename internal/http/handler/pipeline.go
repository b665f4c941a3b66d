package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/trace"

	"pulsewire.app/ingest/internal/http/dto"
	"pulsewire.app/ingest/internal/service"
)

// PipelineHandler exposes the dedup and summarize stages directly, for
// reprocessing and operational poking. The steady-state path runs them
// through the queue instead.
type PipelineHandler struct {
	dedup     service.DedupService
	summarize service.SummarizeService
}

func NewPipelineHandler(dedup service.DedupService, summarize service.SummarizeService) *PipelineHandler {
	return &PipelineHandler{dedup: dedup, summarize: summarize}
}

// requestTraceID extracts the active trace ID, if any, so background
// work spawned by the request can link back to it.
func requestTraceID(ctx context.Context) *string {
	if spanCtx := trace.SpanContextFromContext(ctx); spanCtx.IsValid() {
		traceID := spanCtx.TraceID().String()
		return &traceID
	}
	return nil
}

func (h *PipelineHandler) Deduplicate(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.PostBatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		slog.WarnContext(ctx, "invalid deduplicate request", "error", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	params := service.DedupParams{PostIDs: req.PostIDs, TraceID: requestTraceID(ctx)}

	if req.Sync {
		result, err := h.dedup.Deduplicate(ctx, params)
		if err != nil {
			slog.ErrorContext(ctx, "deduplication failed", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "deduplication failed"})
			return
		}
		c.JSON(http.StatusOK, result)
		return
	}

	taskID, err := h.dedup.DeduplicateAsync(ctx, params)
	if err != nil {
		slog.ErrorContext(ctx, "starting dedup task failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to start deduplication"})
		return
	}

	c.JSON(http.StatusAccepted, dto.TaskAcceptedResponse{TaskID: taskID})
}

func (h *PipelineHandler) Summarize(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.SummarizeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		slog.WarnContext(ctx, "invalid summarize request", "error", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	params := service.SummarizeParams{
		PostIDs:      req.PostIDs,
		ForceRefresh: req.ForceRefresh,
		TraceID:      requestTraceID(ctx),
	}

	if req.Sync {
		result, err := h.summarize.Summarize(ctx, params)
		if err != nil {
			slog.ErrorContext(ctx, "summarization failed", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "summarization failed"})
			return
		}
		c.JSON(http.StatusOK, result)
		return
	}

	taskID, err := h.summarize.SummarizeAsync(ctx, params)
	if err != nil {
		slog.ErrorContext(ctx, "starting summarize task failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to start summarization"})
		return
	}

	c.JSON(http.StatusAccepted, dto.TaskAcceptedResponse{TaskID: taskID})
}
