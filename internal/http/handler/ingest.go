package handler

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"pulsewire.app/ingest/internal/http/dto"
	"pulsewire.app/ingest/internal/service"
)

type IngestHandler struct {
	service service.IngestService
}

func NewIngestHandler(service service.IngestService) *IngestHandler {
	return &IngestHandler{service: service}
}

// Ingest starts an ingestion run. The default mode registers a task and
// returns 202 with its ID; sync mode blocks and returns the aggregate.
func (h *IngestHandler) Ingest(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.IngestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		slog.WarnContext(ctx, "invalid ingest request", "error", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	params := service.IngestParams{
		Accounts: req.Accounts,
		Limit:    req.Limit,
		TraceID:  requestTraceID(ctx),
	}

	if req.Sync {
		result, err := h.service.Run(ctx, params)
		if err != nil {
			slog.ErrorContext(ctx, "ingest run failed", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "ingest failed"})
			return
		}
		c.JSON(http.StatusOK, result)
		return
	}

	taskID, err := h.service.RunAsync(ctx, params)
	if err != nil {
		slog.ErrorContext(ctx, "starting ingest task failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to start ingest"})
		return
	}

	c.JSON(http.StatusAccepted, dto.TaskAcceptedResponse{TaskID: taskID})
}
