package router

import (
	"github.com/gin-gonic/gin"

	"pulsewire.app/ingest/internal/http/handler"
	"pulsewire.app/ingest/internal/service"
	"pulsewire.app/ingest/internal/store"
	"pulsewire.app/ingest/internal/task"
)

func SetupRoutes(router *gin.Engine, services *service.Services, registry *task.Registry, accounts store.AccountStore) {
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	v1 := router.Group("/api/v1")
	{
		ingestHandler := handler.NewIngestHandler(services.Ingest())
		IngestRouter(v1, ingestHandler)

		pipelineHandler := handler.NewPipelineHandler(services.Dedup(), services.Summarize())
		PipelineRouter(v1, pipelineHandler)

		taskHandler := handler.NewTaskHandler(registry)
		TaskRouter(v1.Group("/tasks"), taskHandler)

		accountHandler := handler.NewAccountHandler(accounts)
		AccountRouter(v1.Group("/accounts"), accountHandler)
	}
}
