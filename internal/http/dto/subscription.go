package dto

import (
	"time"

	"wrenchio.app/dispatch/internal/model"
)

type CreateSubscriptionRequest struct {
	TenantID string   `json:"tenant_id" binding:"required"`
	URL      string   `json:"url" binding:"required"`
	Secret   string   `json:"secret,omitempty"`
	Events   []string `json:"events" binding:"required"`
	IsActive *bool    `json:"is_active,omitempty"`
}

type UpdateSubscriptionRequest struct {
	URL      string   `json:"url" binding:"required"`
	Events   []string `json:"events" binding:"required"`
	IsActive *bool    `json:"is_active,omitempty"`
}

// SubscriptionResponse never carries the secret; it is exposed exactly once,
// in CreateSubscriptionResponse.
type SubscriptionResponse struct {
	ID              int64    `json:"id"`
	TenantID        string   `json:"tenant_id"`
	URL             string   `json:"url"`
	Events          []string `json:"events"`
	IsActive        bool     `json:"is_active"`
	LastTriggeredAt *string  `json:"last_triggered_at,omitempty"`
	CreatedAt       string   `json:"created_at"`
	UpdatedAt       string   `json:"updated_at"`
}

type CreateSubscriptionResponse struct {
	SubscriptionResponse
	Secret string `json:"secret"`
}

func ToSubscriptionResponse(sub *model.Subscription) SubscriptionResponse {
	resp := SubscriptionResponse{
		ID:        sub.ID,
		TenantID:  sub.TenantID,
		URL:       sub.URL,
		Events:    sub.Events,
		IsActive:  sub.IsActive,
		CreatedAt: sub.CreatedAt.Format(time.RFC3339),
		UpdatedAt: sub.UpdatedAt.Format(time.RFC3339),
	}
	if sub.LastTriggeredAt != nil {
		formatted := sub.LastTriggeredAt.Format(time.RFC3339)
		resp.LastTriggeredAt = &formatted
	}
	return resp
}

type ListSubscriptionsResponse struct {
	Subscriptions []SubscriptionResponse `json:"subscriptions"`
}

type DeliveryRecordResponse struct {
	ID             int64   `json:"id"`
	SubscriptionID int64   `json:"subscription_id"`
	EventType      string  `json:"event_type"`
	IdempotencyKey string  `json:"idempotency_key"`
	Attempt        int     `json:"attempt"`
	HTTPStatus     *int    `json:"http_status,omitempty"`
	Succeeded      bool    `json:"succeeded"`
	ErrorDetail    *string `json:"error_detail,omitempty"`
	AttemptedAt    string  `json:"attempted_at"`
}

func ToDeliveryRecordResponse(rec model.DeliveryRecord) DeliveryRecordResponse {
	return DeliveryRecordResponse{
		ID:             rec.ID,
		SubscriptionID: rec.SubscriptionID,
		EventType:      rec.EventType,
		IdempotencyKey: rec.IdempotencyKey,
		Attempt:        rec.Attempt,
		HTTPStatus:     rec.HTTPStatus,
		Succeeded:      rec.Succeeded,
		ErrorDetail:    rec.ErrorDetail,
		AttemptedAt:    rec.AttemptedAt.Format(time.RFC3339),
	}
}

type DeliveryHistoryResponse struct {
	Deliveries []DeliveryRecordResponse `json:"deliveries"`
}

type TestDeliveryResponse struct {
	Succeeded   bool    `json:"succeeded"`
	HTTPStatus  *int    `json:"http_status,omitempty"`
	ErrorDetail *string `json:"error_detail,omitempty"`
}
