package automation

import (
	"encoding/json"
	"fmt"

	"wrenchio.app/dispatch/internal/model"
)

// ActionSpec is the closed tagged union over the five built-in action kinds
// plus the custom escape hatch. Exactly one config field is non-nil, matching
// the Kind, so the executor can handle every kind exhaustively.
type ActionSpec struct {
	Kind         model.ActionType
	Email        *EmailConfig
	SMS          *SMSConfig
	Notification *NotificationConfig
	Job          *JobConfig
	Status       *StatusConfig
	Custom       *CustomConfig
}

// EmailConfig parameterizes a send-email action. The recipient is resolved
// from the event payload at execution time via RecipientField.
type EmailConfig struct {
	Subject        string  `json:"subject"`
	TemplateID     *string `json:"template_id,omitempty"`
	Body           *string `json:"body,omitempty"`
	RecipientField string  `json:"recipient_field,omitempty"`
}

type SMSConfig struct {
	Message        string `json:"message"`
	RecipientField string `json:"recipient_field,omitempty"`
}

type NotificationConfig struct {
	Message string `json:"message"`
}

type JobConfig struct {
	JobType string `json:"job_type"`
}

// StatusConfig parameterizes an update-status action. EntityField names the
// payload field carrying the entity's identifier; Entity names its kind
// (e.g. "service-order").
type StatusConfig struct {
	Entity      string `json:"entity"`
	EntityField string `json:"entity_field"`
	Status      string `json:"status"`
}

type CustomConfig struct {
	Handler string `json:"handler"`
}

const (
	defaultEmailRecipientField = "email"
	defaultSMSRecipientField   = "phone"
)

// ParseActionSpec decodes and validates a rule's action configuration into the
// typed spec for its action kind. A config missing required keys is rejected
// here so the executor never partially executes a misconfigured rule.
func ParseActionSpec(action model.ActionType, raw json.RawMessage) (ActionSpec, error) {
	if len(raw) == 0 {
		raw = json.RawMessage(`{}`)
	}

	spec := ActionSpec{Kind: action}

	switch action {
	case model.ActionTypeSendEmail:
		var cfg EmailConfig
		if err := json.Unmarshal(raw, &cfg); err != nil {
			return ActionSpec{}, fmt.Errorf("decoding send-email config: %w", err)
		}
		if cfg.Subject == "" {
			return ActionSpec{}, fmt.Errorf("send-email config requires subject")
		}
		if cfg.RecipientField == "" {
			cfg.RecipientField = defaultEmailRecipientField
		}
		spec.Email = &cfg

	case model.ActionTypeSendSMS:
		var cfg SMSConfig
		if err := json.Unmarshal(raw, &cfg); err != nil {
			return ActionSpec{}, fmt.Errorf("decoding send-sms config: %w", err)
		}
		if cfg.Message == "" {
			return ActionSpec{}, fmt.Errorf("send-sms config requires message")
		}
		if cfg.RecipientField == "" {
			cfg.RecipientField = defaultSMSRecipientField
		}
		spec.SMS = &cfg

	case model.ActionTypeCreateNotification:
		var cfg NotificationConfig
		if err := json.Unmarshal(raw, &cfg); err != nil {
			return ActionSpec{}, fmt.Errorf("decoding create-notification config: %w", err)
		}
		if cfg.Message == "" {
			return ActionSpec{}, fmt.Errorf("create-notification config requires message")
		}
		spec.Notification = &cfg

	case model.ActionTypeCreateJob:
		var cfg JobConfig
		if err := json.Unmarshal(raw, &cfg); err != nil {
			return ActionSpec{}, fmt.Errorf("decoding create-job config: %w", err)
		}
		if cfg.JobType == "" {
			return ActionSpec{}, fmt.Errorf("create-job config requires job_type")
		}
		spec.Job = &cfg

	case model.ActionTypeUpdateStatus:
		var cfg StatusConfig
		if err := json.Unmarshal(raw, &cfg); err != nil {
			return ActionSpec{}, fmt.Errorf("decoding update-status config: %w", err)
		}
		if cfg.Entity == "" || cfg.EntityField == "" || cfg.Status == "" {
			return ActionSpec{}, fmt.Errorf("update-status config requires entity, entity_field, and status")
		}
		spec.Status = &cfg

	case model.ActionTypeCustom:
		var cfg CustomConfig
		if err := json.Unmarshal(raw, &cfg); err != nil {
			return ActionSpec{}, fmt.Errorf("decoding custom config: %w", err)
		}
		if cfg.Handler == "" {
			return ActionSpec{}, fmt.Errorf("custom config requires handler")
		}
		spec.Custom = &cfg

	default:
		return ActionSpec{}, fmt.Errorf("unknown action type %q", action)
	}

	return spec, nil
}
