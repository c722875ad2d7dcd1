package domain

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// EventType represents the semantic type of a domain transition the engine reacts to.
type EventType string

const (
	EventTypeQuoteApproved         EventType = "quote-approved"
	EventTypeServiceOrderCompleted EventType = "service-order-completed"
	EventTypeInvoiceIssued         EventType = "invoice-issued"
	EventTypePaymentReceived       EventType = "payment-received"
	EventTypeStockLow              EventType = "stock-low"
	EventTypeAppointmentScheduled  EventType = "appointment-scheduled"
)

// KnownEventTypes lists every event type the engine accepts, in a stable order.
var KnownEventTypes = []EventType{
	EventTypeQuoteApproved,
	EventTypeServiceOrderCompleted,
	EventTypeInvoiceIssued,
	EventTypePaymentReceived,
	EventTypeStockLow,
	EventTypeAppointmentScheduled,
}

// IsKnownEventType reports whether t is one of the enumerated trigger types.
func IsKnownEventType(t EventType) bool {
	for _, known := range KnownEventTypes {
		if t == known {
			return true
		}
	}
	return false
}

// Envelope is the immutable record describing one domain occurrence.
// It is constructed once per state transition and never persisted by the
// engine itself; collaborators may log it on their side.
type Envelope struct {
	Type           EventType      `json:"type"`
	TenantID       string         `json:"tenantId"`
	Payload        map[string]any `json:"payload"`
	OccurredAt     time.Time      `json:"occurredAt"`
	IdempotencyKey string         `json:"idempotencyKey"`
	TraceID        string         `json:"-"`
}

// NewEnvelope builds a validated envelope. An empty idempotency key is
// filled with a fresh UUID so re-dispatch of the same transition stays
// the caller's responsibility to key consistently.
func NewEnvelope(eventType EventType, tenantID string, payload map[string]any, idempotencyKey string) (Envelope, error) {
	if !IsKnownEventType(eventType) {
		return Envelope{}, fmt.Errorf("unknown event type %q", eventType)
	}
	if tenantID == "" {
		return Envelope{}, fmt.Errorf("tenant id is required")
	}
	if payload == nil {
		payload = map[string]any{}
	}
	if idempotencyKey == "" {
		idempotencyKey = uuid.NewString()
	}

	return Envelope{
		Type:           eventType,
		TenantID:       tenantID,
		Payload:        payload,
		OccurredAt:     time.Now().UTC(),
		IdempotencyKey: idempotencyKey,
	}, nil
}

// CanonicalBody serializes the envelope to the canonical JSON form delivered
// to webhook subscribers. The signature is computed over exactly these bytes.
func (e Envelope) CanonicalBody() ([]byte, error) {
	body := struct {
		Type           EventType      `json:"type"`
		TenantID       string         `json:"tenantId"`
		Payload        map[string]any `json:"payload"`
		OccurredAt     string         `json:"occurredAt"`
		IdempotencyKey string         `json:"idempotencyKey"`
	}{
		Type:           e.Type,
		TenantID:       e.TenantID,
		Payload:        e.Payload,
		OccurredAt:     e.OccurredAt.UTC().Format(time.RFC3339Nano),
		IdempotencyKey: e.IdempotencyKey,
	}
	return json.Marshal(body)
}

// MarshalPayload returns the payload as raw JSON for queue transport.
func (e Envelope) MarshalPayload() (json.RawMessage, error) {
	return json.Marshal(e.Payload)
}
