package automation_test

import (
	"context"
	"time"

	"wrenchio.app/dispatch/internal/automation"
	"wrenchio.app/dispatch/internal/domain"
	"wrenchio.app/dispatch/internal/model"
)

type mockRuleStore struct {
	getByIDFn             func(ctx context.Context, id int64) (*model.Rule, error)
	createFn              func(ctx context.Context, rule *model.Rule) error
	updateFn              func(ctx context.Context, rule *model.Rule) error
	setActiveFn           func(ctx context.Context, id int64, active bool) error
	deleteFn              func(ctx context.Context, id int64) error
	listByTenantFn        func(ctx context.Context, tenantID string, limit, offset int32) ([]model.Rule, error)
	listActiveByTriggerFn func(ctx context.Context, tenantID string, trigger domain.EventType) ([]model.Rule, error)
}

func (m *mockRuleStore) GetByID(ctx context.Context, id int64) (*model.Rule, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, id)
	}
	return nil, nil
}

func (m *mockRuleStore) Create(ctx context.Context, rule *model.Rule) error {
	if m.createFn != nil {
		return m.createFn(ctx, rule)
	}
	return nil
}

func (m *mockRuleStore) Update(ctx context.Context, rule *model.Rule) error {
	if m.updateFn != nil {
		return m.updateFn(ctx, rule)
	}
	return nil
}

func (m *mockRuleStore) SetActive(ctx context.Context, id int64, active bool) error {
	if m.setActiveFn != nil {
		return m.setActiveFn(ctx, id, active)
	}
	return nil
}

func (m *mockRuleStore) Delete(ctx context.Context, id int64) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, id)
	}
	return nil
}

func (m *mockRuleStore) ListByTenant(ctx context.Context, tenantID string, limit, offset int32) ([]model.Rule, error) {
	if m.listByTenantFn != nil {
		return m.listByTenantFn(ctx, tenantID, limit, offset)
	}
	return nil, nil
}

func (m *mockRuleStore) ListActiveByTrigger(ctx context.Context, tenantID string, trigger domain.EventType) ([]model.Rule, error) {
	if m.listActiveByTriggerFn != nil {
		return m.listActiveByTriggerFn(ctx, tenantID, trigger)
	}
	return nil, nil
}

type emailCall struct {
	To         string
	Subject    string
	TemplateID *string
	Body       *string
}

type mockMailer struct {
	calls []emailCall
	err   error
}

func (m *mockMailer) SendEmail(_ context.Context, to, subject string, templateID, body *string) error {
	m.calls = append(m.calls, emailCall{To: to, Subject: subject, TemplateID: templateID, Body: body})
	return m.err
}

type smsCall struct {
	To      string
	Message string
}

type mockSMSSender struct {
	calls []smsCall
	err   error
}

func (m *mockSMSSender) SendSMS(_ context.Context, to, message string) error {
	m.calls = append(m.calls, smsCall{To: to, Message: message})
	return m.err
}

type notificationCall struct {
	TenantID string
	Message  string
}

type mockNotifier struct {
	calls []notificationCall
	err   error
}

func (m *mockNotifier) CreateNotification(_ context.Context, tenantID, message string) error {
	m.calls = append(m.calls, notificationCall{TenantID: tenantID, Message: message})
	return m.err
}

type jobCall struct {
	JobType string
	Data    map[string]any
}

type mockJobQueue struct {
	calls []jobCall
	err   error
}

func (m *mockJobQueue) EnqueueJob(_ context.Context, jobType string, data map[string]any) error {
	m.calls = append(m.calls, jobCall{JobType: jobType, Data: data})
	return m.err
}

type statusCall struct {
	Ref    automation.EntityRef
	Status string
}

type mockStatusUpdater struct {
	calls []statusCall
	err   error
}

func (m *mockStatusUpdater) UpdateEntityStatus(_ context.Context, ref automation.EntityRef, newStatus string) error {
	m.calls = append(m.calls, statusCall{Ref: ref, Status: newStatus})
	return m.err
}

func testEnvelope(eventType domain.EventType, payload map[string]any) domain.Envelope {
	return domain.Envelope{
		Type:           eventType,
		TenantID:       "tenant-1",
		Payload:        payload,
		OccurredAt:     time.Now().UTC(),
		IdempotencyKey: "idem-1",
	}
}
