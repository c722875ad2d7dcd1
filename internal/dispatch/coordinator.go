// Package dispatch is the single entry point domain collaborators use to
// hand an event to the automation and webhook fan-out paths.
package dispatch

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel/trace"

	"wrenchio.app/dispatch/common/logger"
	"wrenchio.app/dispatch/internal/domain"
	"wrenchio.app/dispatch/internal/metrics"
	"wrenchio.app/dispatch/internal/queue"
)

// Coordinator fans an event envelope out to the automation path and the
// webhook path as two independent queue tasks. It is fire-and-forget: no
// failure here ever propagates back into the domain transaction that raised
// the event, and the caller is blocked only for the two enqueue calls.
type Coordinator struct {
	producer queue.Producer
	logger   *slog.Logger
}

func NewCoordinator(producer queue.Producer, logger *slog.Logger) *Coordinator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Coordinator{
		producer: producer,
		logger:   logger,
	}
}

// Dispatch submits one automation task and one webhook fan-out task for the
// envelope. The two paths do not share a failure domain: an enqueue error on
// one is logged and does not stop the other.
func (c *Coordinator) Dispatch(ctx context.Context, envelope domain.Envelope) {
	ctx = logger.WithLogFields(ctx, logger.LogFields{
		TenantID:       logger.Ptr(envelope.TenantID),
		EventType:      logger.Ptr(string(envelope.Type)),
		IdempotencyKey: logger.Ptr(envelope.IdempotencyKey),
		Component:      "dispatch.coordinator",
	})

	payload, err := envelope.MarshalPayload()
	if err != nil {
		// Cannot serialize the payload at all; neither path can run.
		slog.ErrorContext(ctx, "failed to serialize event payload", "error", err)
		return
	}

	traceID := envelope.TraceID
	if traceID == "" {
		if span := trace.SpanFromContext(ctx); span.SpanContext().IsValid() {
			traceID = span.SpanContext().TraceID().String()
		}
	}

	metrics.EventsDispatched.WithLabelValues(string(envelope.Type)).Inc()

	for _, taskType := range []queue.TaskType{queue.TaskTypeAutomation, queue.TaskTypeWebhookFanout} {
		msg := queue.TaskMessage{
			TaskType:       taskType,
			EventType:      string(envelope.Type),
			TenantID:       envelope.TenantID,
			IdempotencyKey: envelope.IdempotencyKey,
			Payload:        payload,
			OccurredAt:     envelope.OccurredAt,
			TraceID:        traceID,
		}
		if err := c.producer.Enqueue(ctx, msg); err != nil {
			slog.ErrorContext(ctx, "failed to enqueue dispatch task",
				"error", err,
				"task_type", taskType)
			continue
		}
	}

	if depth, err := c.producer.Depth(ctx); err == nil {
		metrics.QueueDepth.Set(float64(depth))
	}
}
