package model

import "time"

// DeliveryRecord captures the outcome of one webhook delivery attempt.
// One row is written per attempt; a logical event never exceeds the configured
// retry budget in aggregate rows per subscription.
type DeliveryRecord struct {
	AttemptedAt    time.Time `json:"attempted_at"`
	EventType      string    `json:"event_type"`
	IdempotencyKey string    `json:"idempotency_key"`
	ErrorDetail    *string   `json:"error_detail,omitempty"`
	HTTPStatus     *int      `json:"http_status,omitempty"`
	ID             int64     `json:"id"`
	SubscriptionID int64     `json:"subscription_id"`
	Attempt        int       `json:"attempt"`
	Succeeded      bool      `json:"succeeded"`
}
