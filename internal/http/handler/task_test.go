package handler_test

import (
	"net/http"
	"net/http/httptest"
	"time"

	"github.com/gin-gonic/gin"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"pulsewire.app/ingest/internal/http/handler"
	"pulsewire.app/ingest/internal/task"
)

var _ = Describe("TaskHandler", func() {
	var (
		registry *task.Registry
		router   *gin.Engine
	)

	BeforeEach(func() {
		registry = task.NewRegistry(time.Hour, task.SystemClock())
		h := handler.NewTaskHandler(registry)
		router = gin.New()
		router.GET("/tasks", h.List)
		router.GET("/tasks/:id", h.Get)
	})

	get := func(path string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		return rec
	}

	It("returns 404 for unknown task ids", func() {
		Expect(get("/tasks/nope").Code).To(Equal(http.StatusNotFound))
	})

	It("returns a registered task", func() {
		taskID := registry.Create("ingest", nil)

		rec := get("/tasks/" + taskID)
		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(rec.Body.String()).To(ContainSubstring(`"pending"`))
	})

	It("filters the list by status", func() {
		running := registry.Create("ingest", nil)
		registry.MarkRunning(running)
		registry.Create("ingest", nil)

		rec := get("/tasks?status=running")
		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(rec.Body.String()).To(ContainSubstring(running))
		Expect(rec.Body.String()).NotTo(ContainSubstring(`"pending"`))
	})

	It("rejects unknown status filters", func() {
		Expect(get("/tasks?status=bogus").Code).To(Equal(http.StatusBadRequest))
	})
})
