package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"pulsewire.app/ingest/common/logger"
	"pulsewire.app/ingest/internal/queue"
	"pulsewire.app/ingest/internal/service"
)

type Config struct {
	MaxAttempts int
}

// Worker drains the task stream and dispatches each message to the
// matching service. A message is acknowledged only after its service
// call returns; failures are requeued until MaxAttempts, then parked
// in the DLQ.
type Worker struct {
	consumer  *queue.RedisConsumer
	dedup     service.DedupService
	summarize service.SummarizeService
	cfg       Config

	stopCh    chan struct{}
	stoppedCh chan struct{}
}

func New(consumer *queue.RedisConsumer, dedup service.DedupService, summarize service.SummarizeService, cfg Config) *Worker {
	return &Worker{
		consumer:  consumer,
		dedup:     dedup,
		summarize: summarize,
		cfg:       cfg,
		stopCh:    make(chan struct{}),
		stoppedCh: make(chan struct{}),
	}
}

func (w *Worker) Run(ctx context.Context) error {
	defer close(w.stoppedCh)

	slog.InfoContext(ctx, "worker started")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-w.stopCh:
			slog.InfoContext(ctx, "worker stopping")
			return nil
		default:
			if err := w.processOneBatch(ctx); err != nil {
				slog.ErrorContext(ctx, "batch processing error", "error", err)
				// Brief backoff on error
				time.Sleep(time.Second)
			}
		}
	}
}

func (w *Worker) Stop() {
	close(w.stopCh)
	<-w.stoppedCh
}

func (w *Worker) processOneBatch(ctx context.Context) error {
	messages, err := w.consumer.Read(ctx)
	if err != nil {
		return fmt.Errorf("reading from stream: %w", err)
	}

	for _, msg := range messages {
		if err := w.processMessageSafe(ctx, msg); err != nil {
			slog.ErrorContext(ctx, "message processing failed",
				"error", err,
				"message_id", msg.ID,
				"task_type", msg.TaskType)
			w.handleFailedMessage(ctx, msg, err)
			continue
		}

		if err := w.consumer.Ack(ctx, msg); err != nil {
			// Message will be reclaimed and reprocessed, which is safe:
			// both task types are idempotent.
			slog.WarnContext(ctx, "failed to ACK message",
				"error", err,
				"message_id", msg.ID)
		}
	}

	return nil
}

func (w *Worker) processMessageSafe(ctx context.Context, msg queue.Message) (err error) {
	defer func() {
		if r := recover(); r != nil {
			slog.ErrorContext(ctx, "panic recovered in message processing",
				"panic", r,
				"message_id", msg.ID,
				"task_type", msg.TaskType)
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return w.ProcessMessage(ctx, msg)
}

// ProcessMessage runs one task. Exported so it can be reused by the
// reclaimer.
func (w *Worker) ProcessMessage(ctx context.Context, msg queue.Message) error {
	ctx = logger.WithLogFields(ctx, logger.LogFields{
		Component: "ingest.worker",
		MessageID: &msg.ID,
	})
	if msg.TraceID != "" {
		sc := logger.StartSpanFromTraceID(ctx, msg.TraceID, "worker.process")
		defer sc.End()
		ctx = sc.Context()
	}

	slog.InfoContext(ctx, "processing message",
		"task_type", msg.TaskType,
		"post_count", len(msg.PostIDs),
		"attempt", msg.Attempt)

	traceID := msg.TraceID
	var tracePtr *string
	if traceID != "" {
		tracePtr = &traceID
	}

	start := time.Now()
	var err error

	switch msg.TaskType {
	case queue.TaskTypeDedup:
		_, err = w.dedup.Deduplicate(ctx, service.DedupParams{PostIDs: msg.PostIDs, TraceID: tracePtr})
	case queue.TaskTypeSummarize:
		_, err = w.summarize.Summarize(ctx, service.SummarizeParams{PostIDs: msg.PostIDs, TraceID: tracePtr})
	default:
		// Unknown types are acknowledged, not retried: redelivery
		// cannot make them known.
		slog.ErrorContext(ctx, "dropping message with unknown task type", "task_type", msg.TaskType)
		return nil
	}

	if err != nil {
		return fmt.Errorf("%s task: %w", msg.TaskType, err)
	}

	slog.InfoContext(ctx, "message processed",
		"task_type", msg.TaskType,
		"duration_ms", time.Since(start).Milliseconds())
	return nil
}

func (w *Worker) handleFailedMessage(ctx context.Context, msg queue.Message, err error) {
	if msg.Attempt >= w.cfg.MaxAttempts {
		slog.ErrorContext(ctx, "max attempts reached, sending to DLQ",
			"message_id", msg.ID,
			"task_type", msg.TaskType,
			"attempts", msg.Attempt)
		if dlqErr := w.consumer.SendDLQ(ctx, msg, err.Error()); dlqErr != nil {
			slog.ErrorContext(ctx, "failed to send to DLQ", "error", dlqErr)
		}
		return
	}

	slog.WarnContext(ctx, "requeuing failed message",
		"message_id", msg.ID,
		"task_type", msg.TaskType,
		"attempt", msg.Attempt)
	if requeueErr := w.consumer.Requeue(ctx, msg, err.Error()); requeueErr != nil {
		slog.ErrorContext(ctx, "failed to requeue message", "error", requeueErr)
	}
}
