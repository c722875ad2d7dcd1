package webhook_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"wrenchio.app/dispatch/common/signature"
	"wrenchio.app/dispatch/internal/domain"
	"wrenchio.app/dispatch/internal/model"
	"wrenchio.app/dispatch/internal/store"
	"wrenchio.app/dispatch/internal/webhook"
)

// receiver is an httptest-backed webhook endpoint that captures every request.
type receiver struct {
	mu       sync.Mutex
	server   *httptest.Server
	status   int
	bodies   [][]byte
	sigs     []string
	arrivals []time.Time
}

func newReceiver(status int) *receiver {
	r := &receiver{status: status}
	r.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		body, _ := io.ReadAll(req.Body)
		r.mu.Lock()
		r.bodies = append(r.bodies, body)
		r.sigs = append(r.sigs, req.Header.Get(signature.Header))
		r.arrivals = append(r.arrivals, time.Now())
		status := r.status
		r.mu.Unlock()
		w.WriteHeader(status)
	}))
	return r
}

func (r *receiver) setStatus(status int) {
	r.mu.Lock()
	r.status = status
	r.mu.Unlock()
}

func (r *receiver) requests() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.bodies)
}

var _ = Describe("Dispatcher", func() {
	var (
		subs       *mockSubscriptionStore
		deliveries *mockDeliveryStore
		tracker    *webhook.Tracker
		cfg        webhook.Config
		ctx        context.Context
	)

	BeforeEach(func() {
		subs = &mockSubscriptionStore{}
		deliveries = &mockDeliveryStore{}
		tracker = webhook.NewTracker(deliveries, subs, nil)
		cfg = webhook.Config{
			MaxAttempts:    3,
			BackoffBase:    5 * time.Millisecond,
			BackoffCap:     20 * time.Millisecond,
			AttemptTimeout: time.Second,
			MaxInFlight:    8,
		}
		ctx = context.Background()
	})

	newSub := func(id int64, url string) model.Subscription {
		return model.Subscription{
			ID:       id,
			TenantID: "tenant-1",
			URL:      url,
			Secret:   "sub-secret",
			Events:   []string{"quote-approved"},
			IsActive: true,
		}
	}

	envelope := func() domain.Envelope {
		return domain.Envelope{
			Type:           domain.EventTypeQuoteApproved,
			TenantID:       "tenant-1",
			Payload:        map[string]any{"quoteId": "q-1", "total": 500.0},
			OccurredAt:     time.Now().UTC(),
			IdempotencyKey: "evt-1",
		}
	}

	It("delivers a correctly signed canonical body to every active subscription", func() {
		recA := newReceiver(http.StatusOK)
		defer recA.server.Close()
		recB := newReceiver(http.StatusNoContent)
		defer recB.server.Close()

		subA := newSub(1, recA.server.URL)
		subB := newSub(2, recB.server.URL)
		subs.listActiveByEventFn = func(context.Context, string, domain.EventType) ([]model.Subscription, error) {
			return []model.Subscription{subA, subB}, nil
		}

		d := webhook.NewDispatcher(subs, tracker, cfg, nil)
		Expect(d.FanOut(ctx, envelope())).To(Succeed())

		Expect(recA.requests()).To(Equal(1))
		Expect(recB.requests()).To(Equal(1))

		// The signature must verify over exactly the bytes the subscriber saw.
		Expect(signature.Verify("sub-secret", recA.bodies[0], recA.sigs[0])).To(BeTrue())
		Expect(string(recA.bodies[0])).To(ContainSubstring(`"type":"quote-approved"`))
		Expect(string(recA.bodies[0])).To(ContainSubstring(`"idempotencyKey":"evt-1"`))

		recs := deliveries.forSubscription(1)
		Expect(recs).To(HaveLen(1))
		Expect(recs[0].Succeeded).To(BeTrue())
		Expect(recs[0].Attempt).To(Equal(1))
		Expect(*recs[0].HTTPStatus).To(Equal(http.StatusOK))
		Expect(subs.lastTriggeredCalls).To(HaveLen(2))
	})

	It("records one failed attempt per try until the budget is exhausted", func() {
		rec := newReceiver(http.StatusServiceUnavailable)
		defer rec.server.Close()

		sub := newSub(1, rec.server.URL)
		subs.listActiveByEventFn = func(context.Context, string, domain.EventType) ([]model.Subscription, error) {
			return []model.Subscription{sub}, nil
		}
		subs.getByIDFn = func(context.Context, int64) (*model.Subscription, error) {
			return &sub, nil
		}

		start := time.Now()
		d := webhook.NewDispatcher(subs, tracker, cfg, nil)
		Expect(d.FanOut(ctx, envelope())).To(Succeed())

		Expect(rec.requests()).To(Equal(3))

		recs := deliveries.forSubscription(1)
		Expect(recs).To(HaveLen(3))
		for i, r := range recs {
			Expect(r.Attempt).To(Equal(i + 1))
			Expect(r.Succeeded).To(BeFalse())
			Expect(*r.HTTPStatus).To(Equal(http.StatusServiceUnavailable))
			Expect(*r.ErrorDetail).To(ContainSubstring("503"))
		}

		// Two backoff waits (5ms then 10ms) must have elapsed.
		Expect(time.Since(start)).To(BeNumerically(">=", 15*time.Millisecond))
		Expect(subs.lastTriggeredCalls).To(BeEmpty())
	})

	It("records a failed attempt with error detail when the endpoint is unreachable", func() {
		sub := newSub(1, "http://127.0.0.1:1") // nothing listens here
		subs.listActiveByEventFn = func(context.Context, string, domain.EventType) ([]model.Subscription, error) {
			return []model.Subscription{sub}, nil
		}
		subs.getByIDFn = func(context.Context, int64) (*model.Subscription, error) {
			return &sub, nil
		}

		d := webhook.NewDispatcher(subs, tracker, cfg, nil)
		Expect(d.FanOut(ctx, envelope())).To(Succeed())

		recs := deliveries.forSubscription(1)
		Expect(recs).To(HaveLen(3))
		Expect(recs[0].HTTPStatus).To(BeNil())
		Expect(recs[0].ErrorDetail).NotTo(BeNil())
	})

	It("counts prior attempts against the budget on re-dispatch", func() {
		rec := newReceiver(http.StatusServiceUnavailable)
		defer rec.server.Close()

		sub := newSub(1, rec.server.URL)
		subs.listActiveByEventFn = func(context.Context, string, domain.EventType) ([]model.Subscription, error) {
			return []model.Subscription{sub}, nil
		}
		subs.getByIDFn = func(context.Context, int64) (*model.Subscription, error) {
			return &sub, nil
		}

		// Two attempts already burned by an earlier dispatch of the same event.
		for i := 1; i <= 2; i++ {
			deliveries.records = append(deliveries.records, model.DeliveryRecord{
				SubscriptionID: 1,
				EventType:      "quote-approved",
				IdempotencyKey: "evt-1",
				Attempt:        i,
			})
		}

		d := webhook.NewDispatcher(subs, tracker, cfg, nil)
		Expect(d.FanOut(ctx, envelope())).To(Succeed())

		// Only the one remaining attempt runs; aggregate stays at MaxAttempts.
		Expect(rec.requests()).To(Equal(1))
		Expect(deliveries.forSubscription(1)).To(HaveLen(3))
	})

	It("skips delivery entirely when the event already succeeded", func() {
		rec := newReceiver(http.StatusOK)
		defer rec.server.Close()

		sub := newSub(1, rec.server.URL)
		subs.listActiveByEventFn = func(context.Context, string, domain.EventType) ([]model.Subscription, error) {
			return []model.Subscription{sub}, nil
		}
		deliveries.records = append(deliveries.records, model.DeliveryRecord{
			SubscriptionID: 1,
			EventType:      "quote-approved",
			IdempotencyKey: "evt-1",
			Attempt:        1,
			Succeeded:      true,
		})

		d := webhook.NewDispatcher(subs, tracker, cfg, nil)
		Expect(d.FanOut(ctx, envelope())).To(Succeed())

		Expect(rec.requests()).To(BeZero())
	})

	It("abandons pending retries when the subscription is deactivated mid-retry", func() {
		rec := newReceiver(http.StatusServiceUnavailable)
		defer rec.server.Close()

		sub := newSub(1, rec.server.URL)
		subs.listActiveByEventFn = func(context.Context, string, domain.EventType) ([]model.Subscription, error) {
			return []model.Subscription{sub}, nil
		}
		inactive := sub
		inactive.IsActive = false
		subs.getByIDFn = func(context.Context, int64) (*model.Subscription, error) {
			return &inactive, nil
		}

		d := webhook.NewDispatcher(subs, tracker, cfg, nil)
		Expect(d.FanOut(ctx, envelope())).To(Succeed())

		// First attempt ran and was recorded; the re-check stopped the rest.
		Expect(rec.requests()).To(Equal(1))
		Expect(deliveries.forSubscription(1)).To(HaveLen(1))
	})

	It("abandons pending retries when the subscription is deleted mid-retry", func() {
		rec := newReceiver(http.StatusServiceUnavailable)
		defer rec.server.Close()

		sub := newSub(1, rec.server.URL)
		subs.listActiveByEventFn = func(context.Context, string, domain.EventType) ([]model.Subscription, error) {
			return []model.Subscription{sub}, nil
		}
		subs.getByIDFn = func(context.Context, int64) (*model.Subscription, error) {
			return nil, store.ErrNotFound
		}

		d := webhook.NewDispatcher(subs, tracker, cfg, nil)
		Expect(d.FanOut(ctx, envelope())).To(Succeed())

		Expect(rec.requests()).To(Equal(1))
	})

	It("retries after a failure and stops at the first success", func() {
		rec := newReceiver(http.StatusServiceUnavailable)
		defer rec.server.Close()

		sub := newSub(1, rec.server.URL)
		subs.listActiveByEventFn = func(context.Context, string, domain.EventType) ([]model.Subscription, error) {
			return []model.Subscription{sub}, nil
		}
		subs.getByIDFn = func(context.Context, int64) (*model.Subscription, error) {
			// Flip the endpoint healthy while the dispatcher backs off.
			rec.setStatus(http.StatusOK)
			return &sub, nil
		}

		d := webhook.NewDispatcher(subs, tracker, cfg, nil)
		Expect(d.FanOut(ctx, envelope())).To(Succeed())

		Expect(rec.requests()).To(Equal(2))

		recs := deliveries.forSubscription(1)
		Expect(recs).To(HaveLen(2))
		Expect(recs[0].Succeeded).To(BeFalse())
		Expect(recs[1].Succeeded).To(BeTrue())
		Expect(recs[1].Attempt).To(Equal(2))
		Expect(subs.lastTriggeredCalls).To(HaveLen(1))
	})

	Describe("TestDeliver", func() {
		It("performs one attempt without touching records or last_triggered_at", func() {
			rec := newReceiver(http.StatusOK)
			defer rec.server.Close()

			sub := newSub(1, rec.server.URL)
			d := webhook.NewDispatcher(subs, tracker, cfg, nil)

			outcome := d.TestDeliver(ctx, &sub, envelope())
			Expect(outcome.Succeeded).To(BeTrue())
			Expect(*outcome.HTTPStatus).To(Equal(http.StatusOK))

			Expect(deliveries.forSubscription(1)).To(BeEmpty())
			Expect(subs.lastTriggeredCalls).To(BeEmpty())
			Expect(signature.Verify("sub-secret", rec.bodies[0], rec.sigs[0])).To(BeTrue())
		})

		It("surfaces a failing endpoint's status", func() {
			rec := newReceiver(http.StatusBadGateway)
			defer rec.server.Close()

			sub := newSub(1, rec.server.URL)
			d := webhook.NewDispatcher(subs, tracker, cfg, nil)

			outcome := d.TestDeliver(ctx, &sub, envelope())
			Expect(outcome.Succeeded).To(BeFalse())
			Expect(*outcome.HTTPStatus).To(Equal(http.StatusBadGateway))
			Expect(rec.requests()).To(Equal(1))
		})
	})
})
