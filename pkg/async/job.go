package async

import (
	"context"
	"sync/atomic"
)

// JobHandle tracks a single background job. Wait blocks until the job
// finishes; Stop cancels the job's context.
type JobHandle[T any] struct {
	cancel func()
	done   chan Result[T]
	err    atomic.Pointer[error]
}

// Job starts fn on its own goroutine and returns a handle for it.
func Job[T any](fn func(ctx context.Context) (T, error)) *JobHandle[T] {
	ctx, cancel := context.WithCancel(context.Background())
	handle := &JobHandle[T]{
		cancel: cancel,
		done:   make(chan Result[T], 1),
	}

	go func() {
		defer cancel()

		res, err := fn(ctx)

		handle.err.Store(&err)
		handle.done <- Result[T]{Value: res, Err: err}
	}()

	return handle
}

func (j *JobHandle[T]) Stop() {
	j.cancel()
}

func (j *JobHandle[T]) Wait() (T, error) {
	return (<-j.done).Unpack()
}

func (j *JobHandle[T]) Error() error {
	err := j.err.Load()
	if err == nil {
		return nil
	}
	return *err
}
