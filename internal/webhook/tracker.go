package webhook

import (
	"context"
	"log/slog"
	"time"

	"wrenchio.app/dispatch/common/id"
	"wrenchio.app/dispatch/common/logger"
	"wrenchio.app/dispatch/internal/model"
	"wrenchio.app/dispatch/internal/store"
)

// AttemptOutcome is what one delivery attempt produced.
type AttemptOutcome struct {
	HTTPStatus  *int
	Succeeded   bool
	ErrorDetail *string
}

// Tracker records delivery outcomes and subscription health. Its writes never
// block the delivery path: a tracking-write failure is logged and swallowed,
// it does not retry the HTTP delivery or abort remaining attempts.
type Tracker struct {
	deliveries    store.DeliveryStore
	subscriptions store.SubscriptionStore
	logger        *slog.Logger
}

func NewTracker(deliveries store.DeliveryStore, subscriptions store.SubscriptionStore, logger *slog.Logger) *Tracker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Tracker{
		deliveries:    deliveries,
		subscriptions: subscriptions,
		logger:        logger,
	}
}

// Record writes one delivery record. Concurrent writers are fine: each write
// is scoped to a single subscription/event/attempt tuple.
func (t *Tracker) Record(ctx context.Context, subscriptionID int64, eventType, idempotencyKey string, attempt int, outcome AttemptOutcome) {
	ctx = logger.WithLogFields(ctx, logger.LogFields{
		SubscriptionID: logger.Ptr(subscriptionID),
		Component:      "dispatch.webhook.tracker",
	})

	rec := &model.DeliveryRecord{
		ID:             id.New(),
		SubscriptionID: subscriptionID,
		EventType:      eventType,
		IdempotencyKey: idempotencyKey,
		Attempt:        attempt,
		HTTPStatus:     outcome.HTTPStatus,
		Succeeded:      outcome.Succeeded,
		ErrorDetail:    outcome.ErrorDetail,
		AttemptedAt:    time.Now().UTC(),
	}

	if err := t.deliveries.Create(ctx, rec); err != nil {
		slog.ErrorContext(ctx, "failed to record delivery attempt",
			"error", err,
			"attempt", attempt,
			"succeeded", outcome.Succeeded)
	}
}

// UpdateLastTriggered marks the subscription healthy. Called only on the
// first successful attempt for a given logical event.
func (t *Tracker) UpdateLastTriggered(ctx context.Context, subscriptionID int64, at time.Time) {
	if err := t.subscriptions.UpdateLastTriggered(ctx, subscriptionID, at); err != nil {
		slog.ErrorContext(ctx, "failed to update last_triggered_at",
			"error", err,
			"subscription_id", subscriptionID)
	}
}

// History returns the newest delivery records for a subscription, used for
// operator-facing delivery logs.
func (t *Tracker) History(ctx context.Context, subscriptionID int64, limit int32) ([]model.DeliveryRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	return t.deliveries.ListBySubscription(ctx, subscriptionID, limit)
}

// AttemptsUsed returns how many attempts a logical event has already consumed
// against a subscription.
func (t *Tracker) AttemptsUsed(ctx context.Context, subscriptionID int64, eventType, idempotencyKey string) (int, error) {
	return t.deliveries.CountForEvent(ctx, subscriptionID, eventType, idempotencyKey)
}

// AlreadyDelivered reports whether the logical event already has a successful
// delivery to the subscription.
func (t *Tracker) AlreadyDelivered(ctx context.Context, subscriptionID int64, eventType, idempotencyKey string) (bool, error) {
	return t.deliveries.HasSucceededForEvent(ctx, subscriptionID, eventType, idempotencyKey)
}
