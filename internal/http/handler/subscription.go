package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"wrenchio.app/dispatch/internal/domain"
	"wrenchio.app/dispatch/internal/http/dto"
	"wrenchio.app/dispatch/internal/service"
	"wrenchio.app/dispatch/internal/store"
	"wrenchio.app/dispatch/internal/webhook"
)

type SubscriptionHandler struct {
	subscriptions service.SubscriptionService
	tracker       *webhook.Tracker
	dispatcher    *webhook.Dispatcher
}

func NewSubscriptionHandler(subscriptions service.SubscriptionService, tracker *webhook.Tracker, dispatcher *webhook.Dispatcher) *SubscriptionHandler {
	return &SubscriptionHandler{
		subscriptions: subscriptions,
		tracker:       tracker,
		dispatcher:    dispatcher,
	}
}

// Create registers a webhook subscription. This is the only response that
// carries the shared secret.
func (h *SubscriptionHandler) Create(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.CreateSubscriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	params := service.SubscriptionParams{
		TenantID: req.TenantID,
		URL:      req.URL,
		Secret:   req.Secret,
		Events:   req.Events,
		IsActive: true,
	}
	if req.IsActive != nil {
		params.IsActive = *req.IsActive
	}

	sub, err := h.subscriptions.Create(ctx, params)
	if err != nil {
		if errors.Is(err, service.ErrValidation) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		slog.ErrorContext(ctx, "failed to create subscription", "error", err, "tenant_id", req.TenantID)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create subscription"})
		return
	}

	slog.InfoContext(ctx, "webhook subscription created",
		"subscription_id", sub.ID,
		"tenant_id", sub.TenantID,
		"events", sub.Events,
	)

	c.JSON(http.StatusCreated, dto.CreateSubscriptionResponse{
		SubscriptionResponse: dto.ToSubscriptionResponse(sub),
		Secret:               sub.Secret,
	})
}

// Get fetches a subscription by ID; the secret is never echoed
func (h *SubscriptionHandler) Get(c *gin.Context) {
	ctx := c.Request.Context()

	subID, ok := pathID(c)
	if !ok {
		return
	}

	sub, err := h.subscriptions.Get(ctx, subID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "subscription not found"})
			return
		}
		slog.ErrorContext(ctx, "failed to get subscription", "error", err, "subscription_id", subID)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get subscription"})
		return
	}

	c.JSON(http.StatusOK, dto.ToSubscriptionResponse(sub))
}

// Update replaces URL, events and active flag. The secret is immutable; rotate
// by recreating the subscription.
func (h *SubscriptionHandler) Update(c *gin.Context) {
	ctx := c.Request.Context()

	subID, ok := pathID(c)
	if !ok {
		return
	}

	var req dto.UpdateSubscriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	params := service.SubscriptionUpdateParams{
		URL:      req.URL,
		Events:   req.Events,
		IsActive: true,
	}
	if req.IsActive != nil {
		params.IsActive = *req.IsActive
	}

	sub, err := h.subscriptions.Update(ctx, subID, params)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrValidation):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		case errors.Is(err, store.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "subscription not found"})
		default:
			slog.ErrorContext(ctx, "failed to update subscription", "error", err, "subscription_id", subID)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update subscription"})
		}
		return
	}

	c.JSON(http.StatusOK, dto.ToSubscriptionResponse(sub))
}

// SetActive pauses or resumes deliveries for a subscription
func (h *SubscriptionHandler) SetActive(c *gin.Context) {
	ctx := c.Request.Context()

	subID, ok := pathID(c)
	if !ok {
		return
	}

	var req setActiveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: is_active is required"})
		return
	}

	if err := h.subscriptions.SetActive(ctx, subID, *req.IsActive); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "subscription not found"})
			return
		}
		slog.ErrorContext(ctx, "failed to toggle subscription", "error", err, "subscription_id", subID)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to toggle subscription"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"id": subID, "is_active": *req.IsActive})
}

// Delete removes a subscription; delivery history goes with it
func (h *SubscriptionHandler) Delete(c *gin.Context) {
	ctx := c.Request.Context()

	subID, ok := pathID(c)
	if !ok {
		return
	}

	if err := h.subscriptions.Delete(ctx, subID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "subscription not found"})
			return
		}
		slog.ErrorContext(ctx, "failed to delete subscription", "error", err, "subscription_id", subID)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete subscription"})
		return
	}

	c.Status(http.StatusNoContent)
}

// List returns a tenant's subscriptions (admin only)
func (h *SubscriptionHandler) List(c *gin.Context) {
	ctx := c.Request.Context()

	tenantID := c.Query("tenant_id")
	if tenantID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "tenant_id is required"})
		return
	}

	limit, offset := pagination(c)
	subs, err := h.subscriptions.List(ctx, tenantID, limit, offset)
	if err != nil {
		slog.ErrorContext(ctx, "failed to list subscriptions", "error", err, "tenant_id", tenantID)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list subscriptions"})
		return
	}

	resp := dto.ListSubscriptionsResponse{Subscriptions: make([]dto.SubscriptionResponse, len(subs))}
	for i := range subs {
		resp.Subscriptions[i] = dto.ToSubscriptionResponse(&subs[i])
	}

	c.JSON(http.StatusOK, resp)
}

// Deliveries returns recent delivery attempts for a subscription, newest first
func (h *SubscriptionHandler) Deliveries(c *gin.Context) {
	ctx := c.Request.Context()

	subID, ok := pathID(c)
	if !ok {
		return
	}

	if _, err := h.subscriptions.Get(ctx, subID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "subscription not found"})
			return
		}
		slog.ErrorContext(ctx, "failed to get subscription", "error", err, "subscription_id", subID)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch delivery history"})
		return
	}

	limit, _ := pagination(c)
	records, err := h.tracker.History(ctx, subID, limit)
	if err != nil {
		slog.ErrorContext(ctx, "failed to fetch delivery history", "error", err, "subscription_id", subID)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch delivery history"})
		return
	}

	resp := dto.DeliveryHistoryResponse{Deliveries: make([]dto.DeliveryRecordResponse, len(records))}
	for i, rec := range records {
		resp.Deliveries[i] = dto.ToDeliveryRecordResponse(rec)
	}

	c.JSON(http.StatusOK, resp)
}

type testDeliveryRequest struct {
	EventType string         `json:"event_type,omitempty"`
	Payload   map[string]any `json:"payload,omitempty"`
}

// TestDeliver sends a synthetic signed event to the subscription endpoint.
// Nothing is recorded and last_triggered_at is untouched.
func (h *SubscriptionHandler) TestDeliver(c *gin.Context) {
	ctx := c.Request.Context()

	subID, ok := pathID(c)
	if !ok {
		return
	}

	var req testDeliveryRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	sub, err := h.subscriptions.Get(ctx, subID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "subscription not found"})
			return
		}
		slog.ErrorContext(ctx, "failed to get subscription", "error", err, "subscription_id", subID)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to run test delivery"})
		return
	}

	eventType := req.EventType
	if eventType == "" {
		eventType = sub.Events[0]
	}
	if !domain.IsKnownEventType(domain.EventType(eventType)) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown event type"})
		return
	}

	payload := req.Payload
	if payload == nil {
		payload = map[string]any{"test": true}
	}

	envelope, err := domain.NewEnvelope(domain.EventType(eventType), sub.TenantID, payload, "")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	outcome := h.dispatcher.TestDeliver(ctx, sub, envelope)

	c.JSON(http.StatusOK, dto.TestDeliveryResponse{
		Succeeded:   outcome.Succeeded,
		HTTPStatus:  outcome.HTTPStatus,
		ErrorDetail: outcome.ErrorDetail,
	})
}
