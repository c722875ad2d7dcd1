package dto

type IngestEventRequest struct {
	Type           string         `json:"type" binding:"required"`
	TenantID       string         `json:"tenant_id" binding:"required"`
	Payload        map[string]any `json:"payload"`
	IdempotencyKey string         `json:"idempotency_key,omitempty"`
}

type IngestEventResponse struct {
	Status         string `json:"status"`
	IdempotencyKey string `json:"idempotency_key"`
}
