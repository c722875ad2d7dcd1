package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/trace"

	"wrenchio.app/dispatch/common/logger"
	"wrenchio.app/dispatch/internal/automation"
	"wrenchio.app/dispatch/internal/domain"
	"wrenchio.app/dispatch/internal/metrics"
	"wrenchio.app/dispatch/internal/queue"
	"wrenchio.app/dispatch/internal/webhook"
)

type Config struct {
	MaxAttempts int
}

// Worker consumes dispatch tasks from the stream and routes them to the
// automation path or the webhook fan-out path. The two paths arrive as
// separate messages, so a failure in one never cancels the other.
type Worker struct {
	consumer   *queue.RedisConsumer
	automation *automation.Processor
	webhooks   *webhook.Dispatcher
	cfg        Config

	stopCh    chan struct{}
	stoppedCh chan struct{}
}

func New(consumer *queue.RedisConsumer, automationProc *automation.Processor, webhooks *webhook.Dispatcher, cfg Config) *Worker {
	return &Worker{
		consumer:   consumer,
		automation: automationProc,
		webhooks:   webhooks,
		cfg:        cfg,
		stopCh:     make(chan struct{}),
		stoppedCh:  make(chan struct{}),
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
			slog.ErrorContext(ctx, "failed to ack message", "error", err, "message_id", msg.ID)
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

// ProcessMessage handles one dispatch task. Exported so it can be reused by
// the reclaimer.
func (w *Worker) ProcessMessage(ctx context.Context, msg queue.Message) error {
	sc := logger.StartSpanFromTraceID(ctx, msg.TraceID, "worker.process_message",
		trace.WithSpanKind(trace.SpanKindConsumer))
	defer sc.End()
	ctx = sc.Context()

	ctx = logger.WithLogFields(ctx, logger.LogFields{
		TenantID:       logger.Ptr(msg.TenantID),
		EventType:      logger.Ptr(msg.EventType),
		IdempotencyKey: logger.Ptr(msg.IdempotencyKey),
		MessageID:      logger.Ptr(msg.ID),
		Component:      "dispatch.worker",
	})

	slog.InfoContext(ctx, "processing dispatch task",
		"task_type", msg.TaskType,
		"attempt", msg.Attempt)

	envelope, err := envelopeFromMessage(msg)
	if err != nil {
		return err
	}

	switch msg.TaskType {
	case queue.TaskTypeAutomation:
		// Action failures are best-effort, at-most-once: they are recorded by
		// the processor and do NOT fail the task. Only infrastructure errors
		// (store unavailable) requeue the task.
		if _, err := w.automation.Process(ctx, envelope); err != nil {
			sc.RecordError(err)
			return fmt.Errorf("automation path: %w", err)
		}
		return nil

	case queue.TaskTypeWebhookFanout:
		if err := w.webhooks.FanOut(ctx, envelope); err != nil {
			sc.RecordError(err)
			return fmt.Errorf("webhook path: %w", err)
		}
		return nil

	default:
		return fmt.Errorf("unknown task type %q", msg.TaskType)
	}
}

func (w *Worker) handleFailedMessage(ctx context.Context, msg queue.Message, procErr error) {
	if msg.Attempt >= w.cfg.MaxAttempts {
		if err := w.consumer.SendDLQ(ctx, msg, procErr.Error()); err != nil {
			slog.ErrorContext(ctx, "failed to send message to DLQ", "error", err, "message_id", msg.ID)
			return
		}
		metrics.DLQMessages.Inc()
		return
	}

	if err := w.consumer.Requeue(ctx, msg, procErr.Error()); err != nil {
		slog.ErrorContext(ctx, "failed to requeue message", "error", err, "message_id", msg.ID)
	}
}

func envelopeFromMessage(msg queue.Message) (domain.Envelope, error) {
	var payload map[string]any
	if len(msg.Payload) > 0 {
		if err := json.Unmarshal(msg.Payload, &payload); err != nil {
			return domain.Envelope{}, fmt.Errorf("decoding payload: %w", err)
		}
	}
	if payload == nil {
		payload = map[string]any{}
	}

	return domain.Envelope{
		Type:           domain.EventType(msg.EventType),
		TenantID:       msg.TenantID,
		Payload:        payload,
		OccurredAt:     msg.OccurredAt,
		IdempotencyKey: msg.IdempotencyKey,
		TraceID:        msg.TraceID,
	}, nil
}
