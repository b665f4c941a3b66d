package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"

	"github.com/gin-gonic/gin"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"pulsewire.app/ingest/internal/http/handler"
	"pulsewire.app/ingest/internal/service"
)

func postJSON(router *gin.Engine, path string, body any) *httptest.ResponseRecorder {
	data, err := json.Marshal(body)
	Expect(err).NotTo(HaveOccurred())

	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

var _ = Describe("IngestHandler", func() {
	var (
		svc    *mockIngestService
		router *gin.Engine
	)

	BeforeEach(func() {
		svc = &mockIngestService{}
		router = gin.New()
		router.POST("/ingest", handler.NewIngestHandler(svc).Ingest)
	})

	Context("with no accounts", func() {
		It("returns 400", func() {
			rec := postJSON(router, "/ingest", gin.H{"accounts": []string{}})
			Expect(rec.Code).To(Equal(http.StatusBadRequest))
		})
	})

	Context("with a default async request", func() {
		It("returns 202 and the task id", func() {
			var captured service.IngestParams
			svc.runAsyncFn = func(_ context.Context, params service.IngestParams) (string, error) {
				captured = params
				return "task-42", nil
			}

			rec := postJSON(router, "/ingest", gin.H{"accounts": []string{"alice", "bob"}, "limit": 25})

			Expect(rec.Code).To(Equal(http.StatusAccepted))
			Expect(rec.Body.String()).To(ContainSubstring("task-42"))
			Expect(captured.Accounts).To(Equal([]string{"alice", "bob"}))
			Expect(captured.Limit).To(Equal(25))
		})
	})

	Context("with a sync request", func() {
		It("returns 200 and the aggregate result", func() {
			svc.runFn = func(_ context.Context, _ service.IngestParams) (*service.IngestResult, error) {
				return &service.IngestResult{Fetched: 10, Saved: 7, Skipped: 3}, nil
			}

			rec := postJSON(router, "/ingest", gin.H{"accounts": []string{"alice"}, "sync": true})

			Expect(rec.Code).To(Equal(http.StatusOK))

			var result service.IngestResult
			Expect(json.Unmarshal(rec.Body.Bytes(), &result)).To(Succeed())
			Expect(result.Saved).To(Equal(7))
		})
	})

	Context("when the service fails", func() {
		It("returns 500", func() {
			svc.runAsyncFn = func(_ context.Context, _ service.IngestParams) (string, error) {
				return "", errors.New("boom")
			}

			rec := postJSON(router, "/ingest", gin.H{"accounts": []string{"alice"}})
			Expect(rec.Code).To(Equal(http.StatusInternalServerError))
		})
	})
})

var _ = Describe("PipelineHandler", func() {
	var (
		dedup     *mockDedupService
		summarize *mockSummarizeService
		router    *gin.Engine
	)

	BeforeEach(func() {
		dedup = &mockDedupService{}
		summarize = &mockSummarizeService{}
		h := handler.NewPipelineHandler(dedup, summarize)
		router = gin.New()
		router.POST("/deduplicate", h.Deduplicate)
		router.POST("/summarize", h.Summarize)
	})

	It("rejects an empty post id list", func() {
		rec := postJSON(router, "/deduplicate", gin.H{"post_ids": []string{}})
		Expect(rec.Code).To(Equal(http.StatusBadRequest))
	})

	It("starts an async deduplication task by default", func() {
		var captured service.DedupParams
		dedup.deduplicateAsyncFn = func(_ context.Context, params service.DedupParams) (string, error) {
			captured = params
			return "task-7", nil
		}

		rec := postJSON(router, "/deduplicate", gin.H{"post_ids": []string{"a", "b", "c"}})

		Expect(rec.Code).To(Equal(http.StatusAccepted))
		Expect(rec.Body.String()).To(ContainSubstring("task-7"))
		Expect(captured.PostIDs).To(HaveLen(3))
	})

	It("runs deduplication synchronously when asked", func() {
		dedup.deduplicateFn = func(_ context.Context, _ service.DedupParams) (*service.DedupResult, error) {
			return &service.DedupResult{Total: 3, Groups: 1}, nil
		}

		rec := postJSON(router, "/deduplicate", gin.H{"post_ids": []string{"a", "b", "c"}, "sync": true})

		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(rec.Body.String()).To(ContainSubstring(`"groups":1`))
	})

	It("starts an async summarization task by default", func() {
		rec := postJSON(router, "/summarize", gin.H{"post_ids": []string{"a", "b"}})

		Expect(rec.Code).To(Equal(http.StatusAccepted))
		Expect(rec.Body.String()).To(ContainSubstring("task-3"))
	})

	It("passes force_refresh through to the service", func() {
		var captured service.SummarizeParams
		summarize.summarizeFn = func(_ context.Context, params service.SummarizeParams) (*service.SummarizeResult, error) {
			captured = params
			return &service.SummarizeResult{Total: 2, Generated: 2}, nil
		}

		rec := postJSON(router, "/summarize", gin.H{"post_ids": []string{"a", "b"}, "force_refresh": true, "sync": true})

		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(rec.Body.String()).To(ContainSubstring(`"generated":2`))
		Expect(captured.ForceRefresh).To(BeTrue())
	})
})
