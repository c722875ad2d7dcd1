package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"wrenchio.app/dispatch/common/logger"
	"wrenchio.app/dispatch/internal/queue"
)

type ReclaimerConfig struct {
	Stream    string
	Group     string
	Consumer  string
	MinIdle   time.Duration
	Interval  time.Duration
	BatchSize int64
}

// Reclaimer sweeps the consumer group's pending list for entries whose owner
// went away between XREADGROUP and XACK, claims them, and runs them through
// the normal processor. Without it a crashed worker would strand its
// in-flight dispatch tasks forever.
type Reclaimer struct {
	client    *redis.Client
	cfg       ReclaimerConfig
	consumer  *queue.RedisConsumer
	processor queue.MessageProcessor

	stopCh    chan struct{}
	stoppedCh chan struct{}
}

func NewReclaimer(client *redis.Client, cfg ReclaimerConfig, consumer *queue.RedisConsumer, processor queue.MessageProcessor) *Reclaimer {
	return &Reclaimer{
		client:    client,
		cfg:       cfg,
		consumer:  consumer,
		processor: processor,
		stopCh:    make(chan struct{}),
		stoppedCh: make(chan struct{}),
	}
}

// Run sweeps on the configured interval until Stop is called or ctx ends.
func (r *Reclaimer) Run(ctx context.Context) {
	ctx = logger.WithLogFields(ctx, logger.LogFields{
		Component: "dispatch.worker.reclaimer",
	})

	defer close(r.stoppedCh)

	ticker := time.NewTicker(r.cfg.Interval)
	defer ticker.Stop()

	slog.InfoContext(ctx, "reclaimer started",
		"interval", r.cfg.Interval,
		"min_idle", r.cfg.MinIdle,
		"stream", r.cfg.Stream,
		"group", r.cfg.Group)

	for {
		select {
		case <-ctx.Done():
			return
		case <-r.stopCh:
			slog.InfoContext(ctx, "reclaimer stopping")
			return
		case <-ticker.C:
			if err := r.sweep(ctx); err != nil {
				slog.ErrorContext(ctx, "reclaim sweep error", "error", err)
			}
		}
	}
}

// Stop shuts the loop down and waits for the current sweep to finish.
func (r *Reclaimer) Stop() {
	close(r.stopCh)
	<-r.stoppedCh
}

func (r *Reclaimer) sweep(ctx context.Context) error {
	stale, err := r.client.XPendingExt(ctx, &redis.XPendingExtArgs{
		Stream: r.cfg.Stream,
		Group:  r.cfg.Group,
		Idle:   r.cfg.MinIdle,
		Start:  "-",
		End:    "+",
		Count:  r.cfg.BatchSize,
	}).Result()
	if err != nil {
		return fmt.Errorf("xpending: %w", err)
	}

	if len(stale) == 0 {
		return nil
	}

	slog.InfoContext(ctx, "found stale pending tasks", "count", len(stale))

	for _, entry := range stale {
		if err := r.claimAndProcess(ctx, entry); err != nil {
			slog.ErrorContext(ctx, "failed to reclaim task",
				"error", err,
				"message_id", entry.ID,
				"original_consumer", entry.Consumer,
				"idle_time", entry.Idle)
		}
	}

	return nil
}

func (r *Reclaimer) claimAndProcess(ctx context.Context, entry redis.XPendingExt) error {
	msgID := entry.ID
	ctx = logger.WithLogFields(ctx, logger.LogFields{
		MessageID: &msgID,
	})

	slog.InfoContext(ctx, "reclaiming stale task",
		"original_consumer", entry.Consumer,
		"idle_time", entry.Idle,
		"retry_count", entry.RetryCount)

	claimed, err := r.client.XClaim(ctx, &redis.XClaimArgs{
		Stream:   r.cfg.Stream,
		Group:    r.cfg.Group,
		Consumer: r.cfg.Consumer,
		MinIdle:  r.cfg.MinIdle,
		Messages: []string{entry.ID},
	}).Result()
	if err != nil {
		return fmt.Errorf("xclaim: %w", err)
	}

	// Another reclaimer may have claimed it first; XCLAIM then returns nothing.
	if len(claimed) == 0 {
		slog.DebugContext(ctx, "task already reclaimed elsewhere")
		return nil
	}

	raw := claimed[0]

	task, err := queue.ParseMessage(raw)
	if err != nil {
		// Unparseable entries get acked, otherwise every sweep rediscovers them.
		slog.ErrorContext(ctx, "failed to parse reclaimed task, acknowledging",
			"error", err)
		_ = r.consumer.Ack(ctx, queue.Message{ID: raw.ID, Raw: raw})
		return nil
	}

	ctx = logger.WithLogFields(ctx, logger.LogFields{
		TenantID:       &task.TenantID,
		EventType:      &task.EventType,
		IdempotencyKey: &task.IdempotencyKey,
	})

	start := time.Now()
	if err := r.processor(ctx, task); err != nil {
		return fmt.Errorf("processing reclaimed task: %w", err)
	}

	if err := r.consumer.Ack(ctx, task); err != nil {
		return fmt.Errorf("acking reclaimed task: %w", err)
	}

	slog.InfoContext(ctx, "reclaimed task processed",
		"duration_ms", time.Since(start).Milliseconds())

	return nil
}
