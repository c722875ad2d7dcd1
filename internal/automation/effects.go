package automation

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// streamEffects hands every action side effect to the host application over a
// Redis stream. The engine never talks to SMTP or SMS providers directly; the
// workshop app consumes effect entries and performs them with its own
// integrations.
type streamEffects struct {
	client *redis.Client
	stream string
	logger *slog.Logger
}

// NewStreamCollaborators returns a Collaborators bundle whose every member
// appends effect entries to the given Redis stream.
func NewStreamCollaborators(client *redis.Client, stream string, logger *slog.Logger) Collaborators {
	if logger == nil {
		logger = slog.Default()
	}
	effects := &streamEffects{
		client: client,
		stream: stream,
		logger: logger,
	}
	return Collaborators{
		Mailer:        effects,
		SMSSender:     effects,
		Notifier:      effects,
		JobQueue:      effects,
		StatusUpdater: effects,
	}
}

func (s *streamEffects) emit(ctx context.Context, effectType string, body map[string]any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshaling %s effect: %w", effectType, err)
	}

	err = s.client.XAdd(ctx, &redis.XAddArgs{
		Stream: s.stream,
		Values: map[string]any{
			"effect_type": effectType,
			"body":        string(data),
			"emitted_at":  time.Now().UTC().Format(time.RFC3339Nano),
		},
	}).Err()
	if err != nil {
		return fmt.Errorf("appending %s effect: %w", effectType, err)
	}

	s.logger.DebugContext(ctx, "effect emitted", "effect_type", effectType, "stream", s.stream)
	return nil
}

func (s *streamEffects) SendEmail(ctx context.Context, to, subject string, templateID, body *string) error {
	effect := map[string]any{"to": to, "subject": subject}
	if templateID != nil {
		effect["template_id"] = *templateID
	}
	if body != nil {
		effect["body"] = *body
	}
	return s.emit(ctx, "send-email", effect)
}

func (s *streamEffects) SendSMS(ctx context.Context, to, message string) error {
	return s.emit(ctx, "send-sms", map[string]any{"to": to, "message": message})
}

func (s *streamEffects) CreateNotification(ctx context.Context, tenantID, message string) error {
	return s.emit(ctx, "create-notification", map[string]any{"tenant_id": tenantID, "message": message})
}

func (s *streamEffects) EnqueueJob(ctx context.Context, jobType string, data map[string]any) error {
	return s.emit(ctx, "create-job", map[string]any{"job_type": jobType, "data": data})
}

func (s *streamEffects) UpdateEntityStatus(ctx context.Context, ref EntityRef, newStatus string) error {
	return s.emit(ctx, "update-status", map[string]any{
		"entity_type": ref.Type,
		"entity_id":   ref.ID,
		"status":      newStatus,
	})
}
