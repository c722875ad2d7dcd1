package service_test

import (
	"context"
	"time"

	"wrenchio.app/dispatch/internal/domain"
	"wrenchio.app/dispatch/internal/model"
	"wrenchio.app/dispatch/internal/store"
)

type mockRuleStore struct {
	created []*model.Rule
	updated []*model.Rule

	getByIDFn func(ctx context.Context, id int64) (*model.Rule, error)
	createErr error
}

func (m *mockRuleStore) GetByID(ctx context.Context, id int64) (*model.Rule, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, id)
	}
	return nil, store.ErrNotFound
}

func (m *mockRuleStore) Create(_ context.Context, rule *model.Rule) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.created = append(m.created, rule)
	return nil
}

func (m *mockRuleStore) Update(_ context.Context, rule *model.Rule) error {
	m.updated = append(m.updated, rule)
	return nil
}

func (m *mockRuleStore) SetActive(context.Context, int64, bool) error { return nil }
func (m *mockRuleStore) Delete(context.Context, int64) error          { return nil }

func (m *mockRuleStore) ListByTenant(context.Context, string, int32, int32) ([]model.Rule, error) {
	return nil, nil
}

func (m *mockRuleStore) ListActiveByTrigger(context.Context, string, domain.EventType) ([]model.Rule, error) {
	return nil, nil
}

type mockSubscriptionStore struct {
	created []*model.Subscription
	updated []*model.Subscription

	getByIDFn func(ctx context.Context, id int64) (*model.Subscription, error)
	createErr error
}

func (m *mockSubscriptionStore) GetByID(ctx context.Context, id int64) (*model.Subscription, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, id)
	}
	return nil, store.ErrNotFound
}

func (m *mockSubscriptionStore) Create(_ context.Context, sub *model.Subscription) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.created = append(m.created, sub)
	return nil
}

func (m *mockSubscriptionStore) Update(_ context.Context, sub *model.Subscription) error {
	m.updated = append(m.updated, sub)
	return nil
}

func (m *mockSubscriptionStore) SetActive(context.Context, int64, bool) error { return nil }
func (m *mockSubscriptionStore) Delete(context.Context, int64) error          { return nil }

func (m *mockSubscriptionStore) ListByTenant(context.Context, string, int32, int32) ([]model.Subscription, error) {
	return nil, nil
}

func (m *mockSubscriptionStore) ListActiveByEvent(context.Context, string, domain.EventType) ([]model.Subscription, error) {
	return nil, nil
}

func (m *mockSubscriptionStore) UpdateLastTriggered(context.Context, int64, time.Time) error {
	return nil
}
