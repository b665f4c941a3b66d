package model

import "time"

// SummaryRecord is one post's summarization outcome. Every member of a
// duplicate group gets its own record sharing the representative's
// content hash; token counts and cost are carried only on the
// representative's record and are zero everywhere else.
type SummaryRecord struct {
	ID          int64   `json:"id"`
	PostID      string  `json:"post_id"`
	Summary     string  `json:"summary"`
	Translation *string `json:"translation,omitempty"`

	Provider string `json:"provider"`
	Model    string `json:"model"`

	PromptTokens     int     `json:"prompt_tokens"`
	CompletionTokens int     `json:"completion_tokens"`
	TotalTokens      int     `json:"total_tokens"`
	Cost             float64 `json:"cost"`

	// Cached is true when the text came from the in-memory cache or was
	// fanned out from a group representative rather than generated.
	Cached bool `json:"cached"`

	// IsGenerated is false when the source text was too short to
	// summarize and the original text was stored verbatim.
	IsGenerated bool `json:"is_generated"`

	ContentHash string `json:"content_hash"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
