package queue

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/redis/go-redis/v9"
)

type TaskMessage struct {
	TaskType TaskType
	TaskID   string
	Account  string
	PostIDs  []string
	TraceID  *string
	Attempt  int
}

type Producer interface {
	Enqueue(ctx context.Context, msg TaskMessage) error
	Close() error
}

type redisProducer struct {
	client *redis.Client
	stream string
	logger *slog.Logger
}

func NewRedisProducer(client *redis.Client, stream string, logger *slog.Logger) Producer {
	if logger == nil {
		logger = slog.Default()
	}
	return &redisProducer{
		client: client,
		stream: stream,
		logger: logger,
	}
}

func (p *redisProducer) Enqueue(ctx context.Context, msg TaskMessage) error {
	if msg.TaskType == "" {
		return fmt.Errorf("task_type is required")
	}

	attempt := msg.Attempt
	if attempt <= 0 {
		attempt = 1
	}

	fields := map[string]any{
		"task_type": string(msg.TaskType),
		"attempt":   attempt,
	}
	if msg.TaskID != "" {
		fields["task_id"] = msg.TaskID
	}
	if msg.Account != "" {
		fields["account"] = msg.Account
	}
	if len(msg.PostIDs) > 0 {
		fields["post_ids"] = strings.Join(msg.PostIDs, ",")
	}
	if msg.TraceID != nil && *msg.TraceID != "" {
		fields["trace_id"] = *msg.TraceID
	}

	if err := p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: p.stream,
		Values: fields,
	}).Err(); err != nil {
		return fmt.Errorf("enqueue task: %w", err)
	}

	p.logger.InfoContext(ctx, "enqueued task", "task_type", msg.TaskType, "task_id", msg.TaskID, "post_count", len(msg.PostIDs), "attempt", attempt)
	return nil
}

func (p *redisProducer) Close() error {
	return p.client.Close()
}
