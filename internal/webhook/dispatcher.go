package webhook

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"go.opentelemetry.io/otel/trace"

	"wrenchio.app/dispatch/common/logger"
	"wrenchio.app/dispatch/common/signature"
	"wrenchio.app/dispatch/internal/domain"
	"wrenchio.app/dispatch/internal/metrics"
	"wrenchio.app/dispatch/internal/model"
	"wrenchio.app/dispatch/internal/store"
)

// Config controls the delivery retry policy and concurrency bounds.
type Config struct {
	MaxAttempts    int           // attempts per subscription per logical event
	BackoffBase    time.Duration // first retry delay, doubled each attempt
	BackoffCap     time.Duration // upper bound on a retry delay
	AttemptTimeout time.Duration // per-attempt HTTP timeout
	MaxInFlight    int           // bound on concurrent outbound deliveries
}

func (c Config) withDefaults() Config {
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 5
	}
	if c.BackoffBase <= 0 {
		c.BackoffBase = 2 * time.Second
	}
	if c.BackoffCap <= 0 {
		c.BackoffCap = 60 * time.Second
	}
	if c.AttemptTimeout <= 0 {
		c.AttemptTimeout = 10 * time.Second
	}
	if c.MaxInFlight <= 0 {
		c.MaxInFlight = 32
	}
	return c
}

// Dispatcher fans one event out to every matching active subscription, with
// signed payloads, bounded parallelism across subscriptions, and sequential
// retry/backoff per subscription.
type Dispatcher struct {
	subscriptions store.SubscriptionStore
	tracker       *Tracker
	client        *http.Client
	cfg           Config
	sem           chan struct{}
	logger        *slog.Logger
}

func NewDispatcher(subscriptions store.SubscriptionStore, tracker *Tracker, cfg Config, logger *slog.Logger) *Dispatcher {
	cfg = cfg.withDefaults()
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		subscriptions: subscriptions,
		tracker:       tracker,
		client:        &http.Client{Timeout: cfg.AttemptTimeout},
		cfg:           cfg,
		sem:           make(chan struct{}, cfg.MaxInFlight),
		logger:        logger,
	}
}

// FanOut delivers the envelope to every active subscription of the event's
// tenant whose event set contains the event type. Deliveries run in parallel
// per subscription, bounded by the in-flight semaphore; a slow or failing
// subscriber never delays delivery to others. FanOut returns after every
// subscription's delivery loop has finished so the queue message can be acked.
func (d *Dispatcher) FanOut(ctx context.Context, envelope domain.Envelope) error {
	ctx = logger.WithLogFields(ctx, logger.LogFields{
		Component: "dispatch.webhook.dispatcher",
	})

	subs, err := d.subscriptions.ListActiveByEvent(ctx, envelope.TenantID, envelope.Type)
	if err != nil {
		return fmt.Errorf("listing subscriptions for %s: %w", envelope.Type, err)
	}

	if len(subs) == 0 {
		slog.DebugContext(ctx, "no subscriptions for event")
		return nil
	}

	body, err := envelope.CanonicalBody()
	if err != nil {
		return fmt.Errorf("serializing delivery body: %w", err)
	}

	slog.InfoContext(ctx, "fanning out to subscriptions", "count", len(subs))

	var wg sync.WaitGroup
	for _, sub := range subs {
		wg.Add(1)
		go func(sub model.Subscription) {
			defer wg.Done()
			d.sem <- struct{}{}
			defer func() { <-d.sem }()
			d.deliverWithRetry(ctx, sub, envelope, body)
		}(sub)
	}
	wg.Wait()

	return nil
}

// deliverWithRetry runs the sequential attempt loop for one subscription.
// Attempts already recorded for this logical event count against the budget,
// so a re-dispatched event never exceeds it in aggregate.
func (d *Dispatcher) deliverWithRetry(ctx context.Context, sub model.Subscription, envelope domain.Envelope, body []byte) {
	ctx = logger.WithLogFields(ctx, logger.LogFields{
		SubscriptionID: logger.Ptr(sub.ID),
	})

	delivered, err := d.tracker.AlreadyDelivered(ctx, sub.ID, string(envelope.Type), envelope.IdempotencyKey)
	if err != nil {
		slog.ErrorContext(ctx, "failed to check delivery state", "error", err)
	} else if delivered {
		slog.InfoContext(ctx, "event already delivered, skipping")
		return
	}

	used, err := d.tracker.AttemptsUsed(ctx, sub.ID, string(envelope.Type), envelope.IdempotencyKey)
	if err != nil {
		slog.ErrorContext(ctx, "failed to count prior attempts", "error", err)
		used = 0
	}
	if used >= d.cfg.MaxAttempts {
		slog.WarnContext(ctx, "retry budget already exhausted", "attempts_used", used)
		return
	}

	sig := signature.Sign(sub.Secret, body)

	for attempt := used + 1; attempt <= d.cfg.MaxAttempts; attempt++ {
		outcome := d.attempt(ctx, sub.URL, body, sig)

		d.tracker.Record(ctx, sub.ID, string(envelope.Type), envelope.IdempotencyKey, attempt, outcome)

		if outcome.Succeeded {
			metrics.DeliveryAttempts.WithLabelValues("success").Inc()
			d.tracker.UpdateLastTriggered(ctx, sub.ID, time.Now().UTC())
			slog.InfoContext(ctx, "delivery succeeded", "attempt", attempt)
			return
		}

		metrics.DeliveryAttempts.WithLabelValues("failure").Inc()
		slog.WarnContext(ctx, "delivery attempt failed",
			"attempt", attempt,
			"http_status", outcome.HTTPStatus,
			"error", outcome.ErrorDetail)

		if attempt == d.cfg.MaxAttempts {
			break
		}

		if !d.sleepBackoff(ctx, attempt-used) {
			slog.InfoContext(ctx, "delivery retries cancelled", "after_attempt", attempt)
			return
		}

		// A subscription deactivated mid-retry abandons pending attempts;
		// already-recorded delivery records are left as written.
		current, err := d.subscriptions.GetByID(ctx, sub.ID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				slog.InfoContext(ctx, "subscription deleted mid-retry, abandoning")
				return
			}
			slog.ErrorContext(ctx, "failed to re-check subscription", "error", err)
		} else if !current.IsActive {
			slog.InfoContext(ctx, "subscription deactivated mid-retry, abandoning")
			return
		}
	}

	// Budget exhausted. The subscription is observably degraded through its
	// stale last_triggered_at and the failed records, but deactivation stays
	// an explicit operator action.
	slog.ErrorContext(ctx, "delivery retry budget exhausted",
		"max_attempts", d.cfg.MaxAttempts,
		"url", sub.URL)
}

// attempt performs one signed HTTP POST. Any 2xx response is success; any
// other response, timeout, or transport error is a failed attempt.
func (d *Dispatcher) attempt(ctx context.Context, url string, body []byte, sig string) AttemptOutcome {
	attemptCtx, cancel := context.WithTimeout(ctx, d.cfg.AttemptTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(attemptCtx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		detail := err.Error()
		return AttemptOutcome{ErrorDetail: &detail}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(signature.Header, sig)

	resp, err := d.client.Do(req)
	if err != nil {
		detail := err.Error()
		return AttemptOutcome{ErrorDetail: &detail}
	}
	defer resp.Body.Close()

	// Drain so the connection can be reused.
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	status := resp.StatusCode
	if status >= 200 && status < 300 {
		return AttemptOutcome{HTTPStatus: &status, Succeeded: true}
	}

	detail := fmt.Sprintf("unexpected status %d", status)
	return AttemptOutcome{HTTPStatus: &status, ErrorDetail: &detail}
}

// sleepBackoff waits out the exponential backoff delay for the given retry
// ordinal (1-based). Returns false if the context was cancelled while waiting.
func (d *Dispatcher) sleepBackoff(ctx context.Context, retry int) bool {
	delay := d.cfg.BackoffBase
	for i := 1; i < retry; i++ {
		delay *= 2
		if delay >= d.cfg.BackoffCap {
			delay = d.cfg.BackoffCap
			break
		}
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

// TestDeliver performs one synchronous delivery attempt against the
// subscription with the given envelope, without touching delivery records,
// retry state, or last_triggered_at. Used by the operator "test delivery"
// endpoint; the outcome is surfaced directly.
func (d *Dispatcher) TestDeliver(ctx context.Context, sub *model.Subscription, envelope domain.Envelope) AttemptOutcome {
	sc := logger.StartSpan(ctx, "webhook.test_delivery", trace.WithSpanKind(trace.SpanKindClient))
	defer sc.End()
	ctx = sc.Context()

	body, err := envelope.CanonicalBody()
	if err != nil {
		detail := err.Error()
		return AttemptOutcome{ErrorDetail: &detail}
	}
	sig := signature.Sign(sub.Secret, body)
	return d.attempt(ctx, sub.URL, body, sig)
}
