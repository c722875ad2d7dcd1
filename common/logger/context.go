package logger

import "context"

type contextKey string

const logFieldsKey contextKey = "log_fields"

// LogFields contains structured fields automatically added to all logs within a context.
// Fields flow through context enrichment, enabling zero-touch logging where dispatch
// context (tenant_id, event_type, etc.) is automatically included in all log statements.
type LogFields struct {
	TenantID       *string // Owning tenant of the event being dispatched
	EventType      *string // Event type (e.g., "quote-approved", "stock-low")
	IdempotencyKey *string // Logical event identifier
	RuleID         *int64  // Automation rule being matched or executed
	SubscriptionID *int64  // Webhook subscription being delivered to
	MessageID      *string // Redis stream message ID
	Component      string  // Component name (OTel semantic convention style, e.g., "dispatch.webhook.dispatcher")
}

// WithLogFields enriches context with structured log fields.
// Multiple calls merge fields, with newer non-nil/non-empty values taking precedence.
// Context timeouts and cancellation are preserved.
func WithLogFields(ctx context.Context, fields LogFields) context.Context {
	existing := GetLogFields(ctx)
	merged := mergeFields(existing, fields)
	return context.WithValue(ctx, logFieldsKey, merged)
}

// GetLogFields retrieves log fields from context.
// Returns empty LogFields if none are set.
func GetLogFields(ctx context.Context) LogFields {
	if fields, ok := ctx.Value(logFieldsKey).(LogFields); ok {
		return fields
	}
	return LogFields{}
}

func mergeFields(existing, next LogFields) LogFields {
	result := existing

	if next.TenantID != nil {
		result.TenantID = next.TenantID
	}
	if next.EventType != nil {
		result.EventType = next.EventType
	}
	if next.IdempotencyKey != nil {
		result.IdempotencyKey = next.IdempotencyKey
	}
	if next.RuleID != nil {
		result.RuleID = next.RuleID
	}
	if next.SubscriptionID != nil {
		result.SubscriptionID = next.SubscriptionID
	}
	if next.MessageID != nil {
		result.MessageID = next.MessageID
	}
	if next.Component != "" {
		result.Component = next.Component
	}

	return result
}

// Ptr is a helper to create a pointer from a value.
// Useful for setting LogFields inline: logger.WithLogFields(ctx, logger.LogFields{RuleID: logger.Ptr(id)})
func Ptr[T any](v T) *T {
	return &v
}

// Truncate truncates a string to maxLen characters, appending "..." if truncated.
// Useful for logging potentially long strings like payloads or error messages.
func Truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
