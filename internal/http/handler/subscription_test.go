package handler_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"time"

	"github.com/gin-gonic/gin"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"wrenchio.app/dispatch/internal/http/handler"
	"wrenchio.app/dispatch/internal/http/middleware"
	"wrenchio.app/dispatch/internal/model"
	"wrenchio.app/dispatch/internal/service"
	"wrenchio.app/dispatch/internal/webhook"
)

var _ = Describe("SubscriptionHandler", func() {
	var (
		router     *gin.Engine
		svc        *mockSubscriptionService
		deliveries *mockDeliveryStore
		subStore   *mockSubscriptionStore
	)

	BeforeEach(func() {
		gin.SetMode(gin.TestMode)
		router = gin.New()
		svc = &mockSubscriptionService{}
		deliveries = &mockDeliveryStore{}
		subStore = &mockSubscriptionStore{}

		tracker := webhook.NewTracker(deliveries, subStore, nil)
		dispatcher := webhook.NewDispatcher(subStore, tracker, webhook.Config{
			MaxAttempts:    1,
			BackoffBase:    time.Millisecond,
			BackoffCap:     time.Millisecond,
			AttemptTimeout: time.Second,
			MaxInFlight:    1,
		}, nil)
		h := handler.NewSubscriptionHandler(svc, tracker, dispatcher)

		subs := router.Group("/api/v1/subscriptions")
		subs.Use(middleware.RequireAdminAPIKey(adminKey))
		{
			subs.POST("", h.Create)
			subs.GET("/:id", h.Get)
			subs.GET("/:id/deliveries", h.Deliveries)
			subs.POST("/:id/test", h.TestDeliver)
		}
	})

	Describe("Create", func() {
		It("returns the secret exactly once, in the create response", func() {
			svc.createFn = func(_ context.Context, params service.SubscriptionParams) (*model.Subscription, error) {
				return &model.Subscription{
					ID:       21,
					TenantID: params.TenantID,
					URL:      params.URL,
					Secret:   "generated-secret",
					Events:   params.Events,
					IsActive: true,
				}, nil
			}

			body, _ := json.Marshal(map[string]any{
				"tenant_id": "tenant-1",
				"url":       "https://hooks.example.com/x",
				"events":    []string{"quote-approved"},
			})

			w := httptest.NewRecorder()
			router.ServeHTTP(w, adminRequest(http.MethodPost, "/api/v1/subscriptions", body))

			Expect(w.Code).To(Equal(http.StatusCreated))

			var resp map[string]any
			Expect(json.Unmarshal(w.Body.Bytes(), &resp)).To(Succeed())
			Expect(resp["secret"]).To(Equal("generated-secret"))
		})
	})

	Describe("Get", func() {
		It("never echoes the secret", func() {
			svc.getFn = func(context.Context, int64) (*model.Subscription, error) {
				return &model.Subscription{
					ID:       21,
					TenantID: "tenant-1",
					URL:      "https://hooks.example.com/x",
					Secret:   "generated-secret",
					Events:   []string{"quote-approved"},
					IsActive: true,
				}, nil
			}

			w := httptest.NewRecorder()
			router.ServeHTTP(w, adminRequest(http.MethodGet, "/api/v1/subscriptions/21", nil))

			Expect(w.Code).To(Equal(http.StatusOK))
			Expect(w.Body.String()).NotTo(ContainSubstring("generated-secret"))

			var resp map[string]any
			Expect(json.Unmarshal(w.Body.Bytes(), &resp)).To(Succeed())
			Expect(resp).NotTo(HaveKey("secret"))
		})

		It("returns 404 for a missing subscription", func() {
			w := httptest.NewRecorder()
			router.ServeHTTP(w, adminRequest(http.MethodGet, "/api/v1/subscriptions/99", nil))
			Expect(w.Code).To(Equal(http.StatusNotFound))
		})
	})

	Describe("Deliveries", func() {
		It("returns the delivery history, newest first", func() {
			svc.getFn = func(context.Context, int64) (*model.Subscription, error) {
				return &model.Subscription{ID: 21}, nil
			}
			status := http.StatusServiceUnavailable
			detail := "unexpected status 503"
			deliveries.records = []model.DeliveryRecord{
				{ID: 1, SubscriptionID: 21, EventType: "quote-approved", IdempotencyKey: "evt-1", Attempt: 1, HTTPStatus: &status, ErrorDetail: &detail, AttemptedAt: time.Now()},
				{ID: 2, SubscriptionID: 21, EventType: "quote-approved", IdempotencyKey: "evt-1", Attempt: 2, HTTPStatus: &status, ErrorDetail: &detail, AttemptedAt: time.Now()},
			}

			w := httptest.NewRecorder()
			router.ServeHTTP(w, adminRequest(http.MethodGet, "/api/v1/subscriptions/21/deliveries", nil))

			Expect(w.Code).To(Equal(http.StatusOK))

			var resp struct {
				Deliveries []map[string]any `json:"deliveries"`
			}
			Expect(json.Unmarshal(w.Body.Bytes(), &resp)).To(Succeed())
			Expect(resp.Deliveries).To(HaveLen(2))
			Expect(resp.Deliveries[0]["attempt"]).To(BeEquivalentTo(2))
		})
	})

	Describe("TestDeliver", func() {
		It("performs a single signed attempt and surfaces the outcome", func() {
			received := make(chan string, 1)
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
				received <- req.Header.Get("X-Webhook-Signature")
				w.WriteHeader(http.StatusOK)
			}))
			defer server.Close()

			svc.getFn = func(context.Context, int64) (*model.Subscription, error) {
				return &model.Subscription{
					ID:       21,
					TenantID: "tenant-1",
					URL:      server.URL,
					Secret:   "s",
					Events:   []string{"quote-approved"},
					IsActive: true,
				}, nil
			}

			w := httptest.NewRecorder()
			router.ServeHTTP(w, adminRequest(http.MethodPost, "/api/v1/subscriptions/21/test", nil))

			Expect(w.Code).To(Equal(http.StatusOK))

			var resp map[string]any
			Expect(json.Unmarshal(w.Body.Bytes(), &resp)).To(Succeed())
			Expect(resp["succeeded"]).To(BeTrue())
			Expect(<-received).NotTo(BeEmpty())

			// A test delivery leaves no records behind.
			Expect(deliveries.records).To(BeEmpty())
		})

		It("rejects an unknown event type", func() {
			svc.getFn = func(context.Context, int64) (*model.Subscription, error) {
				return &model.Subscription{ID: 21, TenantID: "tenant-1", Events: []string{"quote-approved"}}, nil
			}

			body, _ := json.Marshal(map[string]any{"event_type": "comet-sighted"})
			w := httptest.NewRecorder()
			router.ServeHTTP(w, adminRequest(http.MethodPost, "/api/v1/subscriptions/21/test", body))

			Expect(w.Code).To(Equal(http.StatusBadRequest))
		})
	})
})
