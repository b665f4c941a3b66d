package task

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"pulsewire.app/ingest/common/id"
	"pulsewire.app/ingest/internal/model"
)

// Clock abstracts time for the registry so TTL expiry is testable.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// SystemClock reads the wall clock.
func SystemClock() Clock { return systemClock{} }

// Registry tracks asynchronous tasks for the lifetime of the process.
// It is constructed once at startup and handed to every orchestrator;
// there is deliberately no package-level instance. Terminal tasks are
// garbage-collected after the TTL. A restart loses all tasks.
type Registry struct {
	mu    sync.Mutex
	tasks map[string]*model.Task
	ttl   time.Duration
	clock Clock
}

func NewRegistry(ttl time.Duration, clock Clock) *Registry {
	if clock == nil {
		clock = SystemClock()
	}
	return &Registry{
		tasks: make(map[string]*model.Task),
		ttl:   ttl,
		clock: clock,
	}
}

// Create registers a new pending task and returns its ID.
func (r *Registry) Create(name string, metadata map[string]string) string {
	taskID := id.NewString()

	r.mu.Lock()
	defer r.mu.Unlock()

	r.tasks[taskID] = &model.Task{
		ID:        taskID,
		Name:      name,
		Status:    model.TaskStatusPending,
		CreatedAt: r.clock.Now(),
		Metadata:  metadata,
	}
	return taskID
}

// MarkRunning transitions a pending task to running.
func (r *Registry) MarkRunning(taskID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.tasks[taskID]
	if !ok {
		return
	}
	now := r.clock.Now()
	t.Status = model.TaskStatusRunning
	t.StartedAt = &now
}

// Complete marks the task completed and attaches its result payload.
func (r *Registry) Complete(taskID string, result any) {
	r.finish(taskID, model.TaskStatusCompleted, result, "")
}

// Fail marks the task failed with the given error string.
func (r *Registry) Fail(taskID string, errMsg string) {
	r.finish(taskID, model.TaskStatusFailed, nil, errMsg)
}

func (r *Registry) finish(taskID string, status model.TaskStatus, result any, errMsg string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.tasks[taskID]
	if !ok {
		return
	}
	now := r.clock.Now()
	t.Status = status
	t.CompletedAt = &now
	t.Result = result
	t.Error = errMsg
}

// SetProgress updates the task's progress counters.
func (r *Registry) SetProgress(taskID string, current, total int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.tasks[taskID]
	if !ok {
		return
	}
	progress := &model.TaskProgress{Current: current, Total: total}
	if total > 0 {
		progress.Percentage = float64(current) / float64(total) * 100
	}
	t.Progress = progress
}

// Get returns a copy of the task, so callers cannot mutate registry state.
func (r *Registry) Get(taskID string) (model.Task, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.tasks[taskID]
	if !ok {
		return model.Task{}, false
	}
	return *t, true
}

// List returns copies of all tasks, optionally filtered by status.
func (r *Registry) List(status model.TaskStatus) []model.Task {
	r.mu.Lock()
	defer r.mu.Unlock()

	tasks := make([]model.Task, 0, len(r.tasks))
	for _, t := range r.tasks {
		if status != "" && t.Status != status {
			continue
		}
		tasks = append(tasks, *t)
	}
	return tasks
}

// Sweep drops terminal tasks whose completion is older than the TTL and
// returns how many were removed.
func (r *Registry) Sweep() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	cutoff := r.clock.Now().Add(-r.ttl)
	removed := 0
	for taskID, t := range r.tasks {
		if t.Status.Terminal() && t.CompletedAt != nil && t.CompletedAt.Before(cutoff) {
			delete(r.tasks, taskID)
			removed++
		}
	}
	return removed
}

// RunSweeper sweeps on the given interval until ctx is cancelled.
func (r *Registry) RunSweeper(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if removed := r.Sweep(); removed > 0 {
				slog.DebugContext(ctx, "swept terminal tasks", "removed", removed)
			}
		}
	}
}
