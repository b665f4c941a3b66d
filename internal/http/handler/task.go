package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"pulsewire.app/ingest/internal/model"
	"pulsewire.app/ingest/internal/task"
)

type TaskHandler struct {
	registry *task.Registry
}

func NewTaskHandler(registry *task.Registry) *TaskHandler {
	return &TaskHandler{registry: registry}
}

func (h *TaskHandler) Get(c *gin.Context) {
	t, ok := h.registry.Get(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "task not found"})
		return
	}
	c.JSON(http.StatusOK, t)
}

func (h *TaskHandler) List(c *gin.Context) {
	status := model.TaskStatus(c.Query("status"))
	switch status {
	case "", model.TaskStatusPending, model.TaskStatusRunning, model.TaskStatusCompleted, model.TaskStatusFailed:
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown status filter"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"tasks": h.registry.List(status)})
}
