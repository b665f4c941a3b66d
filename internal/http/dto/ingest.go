package dto

type IngestRequest struct {
	Accounts []string `json:"accounts" binding:"required,min=1"`
	Limit    int      `json:"limit"`
	// Sync makes the call block for the full result instead of
	// returning a task ID.
	Sync bool `json:"sync"`
}
