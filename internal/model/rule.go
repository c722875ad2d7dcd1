package model

import (
	"encoding/json"
	"time"

	"wrenchio.app/dispatch/internal/domain"
)

// ActionType is the closed set of effects a rule can execute.
type ActionType string

const (
	ActionTypeSendEmail          ActionType = "send-email"
	ActionTypeSendSMS            ActionType = "send-sms"
	ActionTypeCreateNotification ActionType = "create-notification"
	ActionTypeCreateJob          ActionType = "create-job"
	ActionTypeUpdateStatus       ActionType = "update-status"
	ActionTypeCustom             ActionType = "custom"
)

// KnownActionTypes lists every action kind the executor handles.
var KnownActionTypes = []ActionType{
	ActionTypeSendEmail,
	ActionTypeSendSMS,
	ActionTypeCreateNotification,
	ActionTypeCreateJob,
	ActionTypeUpdateStatus,
	ActionTypeCustom,
}

// IsKnownActionType reports whether t is one of the enumerated action kinds.
func IsKnownActionType(t ActionType) bool {
	for _, known := range KnownActionTypes {
		if t == known {
			return true
		}
	}
	return false
}

// Conditions is an equality-only mapping evaluated against an event payload.
// Every key must be present in the payload with an equal scalar value for the
// rule to match. An empty mapping matches unconditionally.
type Conditions map[string]any

// Rule is a persisted automation rule: if trigger + conditions then action.
type Rule struct {
	CreatedAt    time.Time        `json:"created_at"`
	UpdatedAt    time.Time        `json:"updated_at"`
	Name         string           `json:"name"`
	Description  *string          `json:"description,omitempty"`
	TenantID     string           `json:"tenant_id"`
	Trigger      domain.EventType `json:"trigger"`
	Action       ActionType       `json:"action"`
	Conditions   Conditions       `json:"conditions"`
	ActionConfig json.RawMessage  `json:"action_config"`
	ID           int64            `json:"id"`
	IsActive     bool             `json:"is_active"`
}
