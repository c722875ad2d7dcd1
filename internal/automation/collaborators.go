package automation

import "context"

// The executor only resolves arguments; the effects are owned by external
// collaborator modules behind these interfaces.

// Mailer sends transactional email on behalf of a matched rule.
type Mailer interface {
	SendEmail(ctx context.Context, to, subject string, templateID, body *string) error
}

// SMSSender sends a text message on behalf of a matched rule.
type SMSSender interface {
	SendSMS(ctx context.Context, to, message string) error
}

// Notifier creates an in-app notification for a tenant.
type Notifier interface {
	CreateNotification(ctx context.Context, tenantID, message string) error
}

// JobQueue enqueues a background job carrying the event payload.
type JobQueue interface {
	EnqueueJob(ctx context.Context, jobType string, data map[string]any) error
}

// EntityRef identifies an entity owned by a domain collaborator.
type EntityRef struct {
	Type string
	ID   string
}

// StatusUpdater transitions an entity's status field in its owning module.
type StatusUpdater interface {
	UpdateEntityStatus(ctx context.Context, ref EntityRef, newStatus string) error
}

// Collaborators bundles every external service the executor delegates to.
type Collaborators struct {
	Mailer        Mailer
	SMSSender     SMSSender
	Notifier      Notifier
	JobQueue      JobQueue
	StatusUpdater StatusUpdater
}
