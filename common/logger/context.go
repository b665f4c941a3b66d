package logger

import "context"

type contextKey string

const logFieldsKey contextKey = "log_fields"

// LogFields contains structured fields automatically added to all logs within a context.
// Fields flow through context enrichment, enabling zero-touch logging where pipeline
// context (task_id, account, group_id, etc.) is automatically included in all log statements.
type LogFields struct {
	TaskID    *string // Task registry ID for the owning async operation
	Account   *string // Tracked account handle being ingested
	PostID    *string // Provider-assigned post ID
	GroupID   *int64  // Duplicate group ID
	Provider  *string // LLM provider name
	MessageID *string // Redis stream message ID
	Component string  // Component name (e.g., "ingest.service", "queue.consumer")
}

// WithLogFields enriches context with structured log fields.
// Multiple calls merge fields, with newer non-nil/non-empty values taking precedence.
// Context timeouts and cancellation are preserved.
func WithLogFields(ctx context.Context, fields LogFields) context.Context {
	existing := GetLogFields(ctx)
	merged := mergeFields(existing, fields)
	return context.WithValue(ctx, logFieldsKey, merged)
}

// GetLogFields retrieves log fields from context.
// Returns empty LogFields if none are set.
func GetLogFields(ctx context.Context) LogFields {
	if fields, ok := ctx.Value(logFieldsKey).(LogFields); ok {
		return fields
	}
	return LogFields{}
}

func mergeFields(existing, next LogFields) LogFields {
	result := existing

	if next.TaskID != nil {
		result.TaskID = next.TaskID
	}
	if next.Account != nil {
		result.Account = next.Account
	}
	if next.PostID != nil {
		result.PostID = next.PostID
	}
	if next.GroupID != nil {
		result.GroupID = next.GroupID
	}
	if next.Provider != nil {
		result.Provider = next.Provider
	}
	if next.MessageID != nil {
		result.MessageID = next.MessageID
	}
	if next.Component != "" {
		result.Component = next.Component
	}

	return result
}

// Ptr is a helper to create a pointer from a value.
// Useful for setting LogFields inline: logger.WithLogFields(ctx, logger.LogFields{Account: logger.Ptr(handle)})
func Ptr[T any](v T) *T {
	return &v
}

// Truncate truncates a string to maxLen characters, appending "..." if truncated.
// Useful for logging potentially long strings like post text or error messages.
func Truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
