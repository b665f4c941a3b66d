package queue

type TaskType string

const (
	TaskTypeDedup     TaskType = "dedup"
	TaskTypeSummarize TaskType = "summarize"
)
