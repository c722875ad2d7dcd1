package store

import (
	"context"
	"errors"
	"time"

	"wrenchio.app/dispatch/internal/domain"
	"wrenchio.app/dispatch/internal/model"
)

// ErrNotFound is returned when a requested entity does not exist
var ErrNotFound = errors.New("not found")

// RuleStore defines the contract for automation rule data access
type RuleStore interface {
	GetByID(ctx context.Context, id int64) (*model.Rule, error)
	Create(ctx context.Context, rule *model.Rule) error
	Update(ctx context.Context, rule *model.Rule) error
	SetActive(ctx context.Context, id int64, active bool) error
	Delete(ctx context.Context, id int64) error
	ListByTenant(ctx context.Context, tenantID string, limit, offset int32) ([]model.Rule, error)
	ListActiveByTrigger(ctx context.Context, tenantID string, trigger domain.EventType) ([]model.Rule, error)
}

// SubscriptionStore defines the contract for webhook subscription data access
type SubscriptionStore interface {
	GetByID(ctx context.Context, id int64) (*model.Subscription, error)
	Create(ctx context.Context, sub *model.Subscription) error
	Update(ctx context.Context, sub *model.Subscription) error
	SetActive(ctx context.Context, id int64, active bool) error
	Delete(ctx context.Context, id int64) error
	ListByTenant(ctx context.Context, tenantID string, limit, offset int32) ([]model.Subscription, error)
	ListActiveByEvent(ctx context.Context, tenantID string, eventType domain.EventType) ([]model.Subscription, error)
	UpdateLastTriggered(ctx context.Context, id int64, at time.Time) error
}

// DeliveryStore defines the contract for delivery attempt records
type DeliveryStore interface {
	Create(ctx context.Context, rec *model.DeliveryRecord) error
	ListBySubscription(ctx context.Context, subscriptionID int64, limit int32) ([]model.DeliveryRecord, error)
	CountForEvent(ctx context.Context, subscriptionID int64, eventType, idempotencyKey string) (int, error)
	HasSucceededForEvent(ctx context.Context, subscriptionID int64, eventType, idempotencyKey string) (bool, error)
}
