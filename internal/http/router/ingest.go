package router

import (
	"github.com/gin-gonic/gin"

	"pulsewire.app/ingest/internal/http/handler"
)

func IngestRouter(rg *gin.RouterGroup, h *handler.IngestHandler) {
	rg.POST("/ingest", h.Ingest)
}

func PipelineRouter(rg *gin.RouterGroup, h *handler.PipelineHandler) {
	rg.POST("/deduplicate", h.Deduplicate)
	rg.POST("/summarize", h.Summarize)
}
