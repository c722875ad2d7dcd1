package queue

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// TaskMessage is one dispatch task: the envelope fields plus routing metadata.
type TaskMessage struct {
	TaskType       TaskType
	EventType      string
	TenantID       string
	IdempotencyKey string
	Payload        []byte // JSON object
	OccurredAt     time.Time
	TraceID        string
	Attempt        int
}

type Producer interface {
	Enqueue(ctx context.Context, msg TaskMessage) error
	// Depth returns the current stream length, used as a backpressure signal.
	Depth(ctx context.Context) (int64, error)
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
	attempt := msg.Attempt
	if attempt <= 0 {
		attempt = 1
	}

	fields := map[string]any{
		"task_type":       string(msg.TaskType),
		"event_type":      msg.EventType,
		"tenant_id":       msg.TenantID,
		"idempotency_key": msg.IdempotencyKey,
		"payload":         string(msg.Payload),
		"occurred_at":     msg.OccurredAt.UTC().Format(time.RFC3339Nano),
		"attempt":         attempt,
	}

	if msg.TraceID != "" {
		fields["trace_id"] = msg.TraceID
	}

	if err := p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: p.stream,
		Values: fields,
	}).Err(); err != nil {
		return fmt.Errorf("enqueue task: %w", err)
	}

	p.logger.InfoContext(ctx, "enqueued dispatch task",
		"task_type", msg.TaskType,
		"event_type", msg.EventType,
		"tenant_id", msg.TenantID,
		"idempotency_key", msg.IdempotencyKey,
		"attempt", attempt)
	return nil
}

func (p *redisProducer) Depth(ctx context.Context) (int64, error) {
	return p.client.XLen(ctx, p.stream).Result()
}

func (p *redisProducer) Close() error {
	return p.client.Close()
}
