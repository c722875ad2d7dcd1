package service

import (
	"context"
	"fmt"
	"net/url"

	"github.com/google/uuid"

	"wrenchio.app/dispatch/common/id"
	"wrenchio.app/dispatch/internal/domain"
	"wrenchio.app/dispatch/internal/model"
	"wrenchio.app/dispatch/internal/store"
)

// SubscriptionService owns operator CRUD on webhook subscriptions. The shared
// secret is returned exactly once, from Create; no other operation exposes it.
type SubscriptionService interface {
	Create(ctx context.Context, params SubscriptionParams) (*model.Subscription, error)
	Get(ctx context.Context, id int64) (*model.Subscription, error)
	Update(ctx context.Context, id int64, params SubscriptionUpdateParams) (*model.Subscription, error)
	SetActive(ctx context.Context, id int64, active bool) error
	Delete(ctx context.Context, id int64) error
	List(ctx context.Context, tenantID string, limit, offset int32) ([]model.Subscription, error)
}

type SubscriptionParams struct {
	TenantID string
	URL      string
	Secret   string // generated when empty
	Events   []string
	IsActive bool
}

type SubscriptionUpdateParams struct {
	URL      string
	Events   []string
	IsActive bool
}

type subscriptionService struct {
	subscriptions store.SubscriptionStore
}

func NewSubscriptionService(subscriptions store.SubscriptionStore) SubscriptionService {
	return &subscriptionService{subscriptions: subscriptions}
}

func (s *subscriptionService) Create(ctx context.Context, params SubscriptionParams) (*model.Subscription, error) {
	if params.TenantID == "" {
		return nil, fmt.Errorf("%w: tenant_id is required", ErrValidation)
	}
	if err := validateURL(params.URL); err != nil {
		return nil, err
	}
	if err := validateEvents(params.Events); err != nil {
		return nil, err
	}

	secret := params.Secret
	if secret == "" {
		secret = uuid.NewString()
	}

	sub := &model.Subscription{
		ID:       id.New(),
		TenantID: params.TenantID,
		URL:      params.URL,
		Secret:   secret,
		Events:   params.Events,
		IsActive: params.IsActive,
	}

	if err := s.subscriptions.Create(ctx, sub); err != nil {
		return nil, fmt.Errorf("creating subscription: %w", err)
	}
	return sub, nil
}

func (s *subscriptionService) Get(ctx context.Context, subID int64) (*model.Subscription, error) {
	return s.subscriptions.GetByID(ctx, subID)
}

func (s *subscriptionService) Update(ctx context.Context, subID int64, params SubscriptionUpdateParams) (*model.Subscription, error) {
	if err := validateURL(params.URL); err != nil {
		return nil, err
	}
	if err := validateEvents(params.Events); err != nil {
		return nil, err
	}

	sub, err := s.subscriptions.GetByID(ctx, subID)
	if err != nil {
		return nil, err
	}

	sub.URL = params.URL
	sub.Events = params.Events
	sub.IsActive = params.IsActive

	if err := s.subscriptions.Update(ctx, sub); err != nil {
		return nil, fmt.Errorf("updating subscription: %w", err)
	}
	return sub, nil
}

func (s *subscriptionService) SetActive(ctx context.Context, subID int64, active bool) error {
	return s.subscriptions.SetActive(ctx, subID, active)
}

func (s *subscriptionService) Delete(ctx context.Context, subID int64) error {
	return s.subscriptions.Delete(ctx, subID)
}

func (s *subscriptionService) List(ctx context.Context, tenantID string, limit, offset int32) ([]model.Subscription, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return s.subscriptions.ListByTenant(ctx, tenantID, limit, offset)
}

func validateURL(raw string) error {
	if raw == "" {
		return fmt.Errorf("%w: url is required", ErrValidation)
	}
	parsed, err := url.Parse(raw)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		return fmt.Errorf("%w: url must be a valid http(s) URL", ErrValidation)
	}
	return nil
}

// validateEvents enforces the non-empty invariant: a subscription matching
// zero event types is rejected at creation, never persisted.
func validateEvents(events []string) error {
	if len(events) == 0 {
		return fmt.Errorf("%w: events must be non-empty", ErrValidation)
	}
	for _, e := range events {
		if !domain.IsKnownEventType(domain.EventType(e)) {
			return fmt.Errorf("%w: unknown event type %q", ErrValidation, e)
		}
	}
	return nil
}
