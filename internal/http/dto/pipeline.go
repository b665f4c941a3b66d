package dto

// PostBatchRequest names the posts a deduplication call should cover.
// Sync blocks and returns the aggregate instead of a task ID.
type PostBatchRequest struct {
	PostIDs []string `json:"post_ids" binding:"required,min=1"`
	Sync    bool     `json:"sync"`
}

// SummarizeRequest names the posts to summarize. ForceRefresh bypasses
// the summary cache and content-hash reuse.
type SummarizeRequest struct {
	PostIDs      []string `json:"post_ids" binding:"required,min=1"`
	ForceRefresh bool     `json:"force_refresh"`
	Sync         bool     `json:"sync"`
}

// TaskAcceptedResponse acknowledges an asynchronous pipeline run.
type TaskAcceptedResponse struct {
	TaskID string `json:"task_id"`
}
