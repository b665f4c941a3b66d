package upstream

import (
	"fmt"
	"regexp"
	"strings"

	"pulsewire.app/ingest/internal/model"
)

var whitespaceRun = regexp.MustCompile(`\s+`)

// ValidationError lists every required field a post is missing. The
// offending post is skipped and counted; siblings proceed.
type ValidationError struct {
	PostID  string
	Missing []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("post %q missing required fields: %s", e.PostID, strings.Join(e.Missing, ", "))
}

// ValidateAndClean enforces required-field invariants and normalizes
// text and timestamps. Cleaning collapses whitespace runs to single
// spaces, trims, truncates to the text length cap, and forces
// timestamps to UTC.
func ValidateAndClean(post model.Post) (model.Post, error) {
	var missing []string
	if post.ID == "" {
		missing = append(missing, "id")
	}
	if post.AuthorHandle == "" {
		missing = append(missing, "author_handle")
	}
	if post.Text == "" {
		missing = append(missing, "text")
	}
	if post.CreatedAt.IsZero() {
		missing = append(missing, "created_at")
	}
	if len(missing) > 0 {
		return model.Post{}, &ValidationError{PostID: post.ID, Missing: missing}
	}

	post.Text = CleanText(post.Text)
	post.CreatedAt = post.CreatedAt.UTC()
	if !post.FetchedAt.IsZero() {
		post.FetchedAt = post.FetchedAt.UTC()
	}
	if post.Quoted != nil {
		post.Quoted.Text = CleanText(post.Quoted.Text)
	}

	return post, nil
}

// CleanText collapses all whitespace runs (including newlines) to
// single spaces, trims, and truncates to MaxTextLength runes.
func CleanText(s string) string {
	s = strings.TrimSpace(whitespaceRun.ReplaceAllString(s, " "))
	runes := []rune(s)
	if len(runes) > model.MaxTextLength {
		s = string(runes[:model.MaxTextLength])
	}
	return s
}
