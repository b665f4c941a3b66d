package router

import (
	"github.com/gin-gonic/gin"

	"pulsewire.app/ingest/internal/http/handler"
)

func TaskRouter(rg *gin.RouterGroup, h *handler.TaskHandler) {
	rg.GET("", h.List)
	rg.GET("/:id", h.Get)
}

func AccountRouter(rg *gin.RouterGroup, h *handler.AccountHandler) {
	rg.GET("", h.List)
	rg.POST("", h.Create)
	rg.DELETE("/:handle", h.Delete)
}
