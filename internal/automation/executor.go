package automation

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"wrenchio.app/dispatch/common/logger"
	"wrenchio.app/dispatch/internal/domain"
	"wrenchio.app/dispatch/internal/metrics"
	"wrenchio.app/dispatch/internal/model"
)

// CustomHandler is a collaborator-registered handler for the custom action
// kind, keyed by the handler identifier in the rule's action config.
type CustomHandler func(ctx context.Context, rule model.Rule, envelope domain.Envelope) error

// ExecutionResult reports the outcome of one rule execution. Automation
// actions are best-effort, at-most-once: a failure is recorded here and in
// the logs but never retried by the engine.
type ExecutionResult struct {
	RuleID int64
	Action model.ActionType
	Err    error
}

func (r ExecutionResult) Succeeded() bool {
	return r.Err == nil
}

// Executor runs the action configured by a matched rule.
type Executor interface {
	Execute(ctx context.Context, rule model.Rule, envelope domain.Envelope) ExecutionResult
	RegisterCustomHandler(name string, handler CustomHandler)
}

type executor struct {
	collaborators Collaborators
	logger        *slog.Logger

	mu       sync.RWMutex
	handlers map[string]CustomHandler
}

func NewExecutor(collaborators Collaborators, logger *slog.Logger) Executor {
	if logger == nil {
		logger = slog.Default()
	}
	return &executor{
		collaborators: collaborators,
		logger:        logger,
		handlers:      make(map[string]CustomHandler),
	}
}

// RegisterCustomHandler registers a handler for the custom action kind.
// Registration replaces any previous handler under the same name.
func (e *executor) RegisterCustomHandler(name string, handler CustomHandler) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.handlers[name] = handler
}

func (e *executor) Execute(ctx context.Context, rule model.Rule, envelope domain.Envelope) ExecutionResult {
	ctx = logger.WithLogFields(ctx, logger.LogFields{
		RuleID:    logger.Ptr(rule.ID),
		Component: "dispatch.automation.executor",
	})

	result := ExecutionResult{RuleID: rule.ID, Action: rule.Action}
	result.Err = e.run(ctx, rule, envelope)

	outcome := "success"
	if result.Err != nil {
		outcome = "failure"
		slog.ErrorContext(ctx, "action execution failed",
			"error", result.Err,
			"action", rule.Action,
			"rule_name", rule.Name)
	} else {
		slog.InfoContext(ctx, "action executed",
			"action", rule.Action,
			"rule_name", rule.Name)
	}
	metrics.ActionExecutions.WithLabelValues(string(rule.Action), outcome).Inc()

	return result
}

func (e *executor) run(ctx context.Context, rule model.Rule, envelope domain.Envelope) error {
	// Incomplete config rejects the rule before any effect runs.
	spec, err := ParseActionSpec(rule.Action, rule.ActionConfig)
	if err != nil {
		return fmt.Errorf("invalid action config: %w", err)
	}

	switch spec.Kind {
	case model.ActionTypeSendEmail:
		if e.collaborators.Mailer == nil {
			return fmt.Errorf("no mailer collaborator configured")
		}
		to := payloadString(envelope.Payload, spec.Email.RecipientField)
		return e.collaborators.Mailer.SendEmail(ctx, to, spec.Email.Subject, spec.Email.TemplateID, spec.Email.Body)

	case model.ActionTypeSendSMS:
		if e.collaborators.SMSSender == nil {
			return fmt.Errorf("no sms collaborator configured")
		}
		to := payloadString(envelope.Payload, spec.SMS.RecipientField)
		return e.collaborators.SMSSender.SendSMS(ctx, to, spec.SMS.Message)

	case model.ActionTypeCreateNotification:
		if e.collaborators.Notifier == nil {
			return fmt.Errorf("no notifier collaborator configured")
		}
		return e.collaborators.Notifier.CreateNotification(ctx, envelope.TenantID, spec.Notification.Message)

	case model.ActionTypeCreateJob:
		if e.collaborators.JobQueue == nil {
			return fmt.Errorf("no job queue collaborator configured")
		}
		return e.collaborators.JobQueue.EnqueueJob(ctx, spec.Job.JobType, envelope.Payload)

	case model.ActionTypeUpdateStatus:
		if e.collaborators.StatusUpdater == nil {
			return fmt.Errorf("no status updater collaborator configured")
		}
		entityID := payloadString(envelope.Payload, spec.Status.EntityField)
		if entityID == "" {
			return fmt.Errorf("payload field %q does not identify an entity", spec.Status.EntityField)
		}
		ref := EntityRef{Type: spec.Status.Entity, ID: entityID}
		return e.collaborators.StatusUpdater.UpdateEntityStatus(ctx, ref, spec.Status.Status)

	case model.ActionTypeCustom:
		e.mu.RLock()
		handler, ok := e.handlers[spec.Custom.Handler]
		e.mu.RUnlock()
		if !ok {
			return fmt.Errorf("no custom handler registered for %q", spec.Custom.Handler)
		}
		return handler(ctx, rule, envelope)

	default:
		return fmt.Errorf("unknown action type %q", spec.Kind)
	}
}

// payloadString resolves a payload field to its string form. Numeric IDs are
// rendered without a trailing ".0" so snowflake/serial identifiers round-trip.
func payloadString(payload map[string]any, field string) string {
	value, ok := payload[field]
	if !ok || value == nil {
		return ""
	}
	switch v := value.(type) {
	case string:
		return v
	case float64:
		if v == float64(int64(v)) {
			return fmt.Sprintf("%d", int64(v))
		}
		return fmt.Sprintf("%v", v)
	default:
		return fmt.Sprintf("%v", v)
	}
}
