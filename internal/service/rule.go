package service

import (
	"context"
	"errors"
	"fmt"

	"wrenchio.app/dispatch/common/id"
	"wrenchio.app/dispatch/internal/automation"
	"wrenchio.app/dispatch/internal/domain"
	"wrenchio.app/dispatch/internal/model"
	"wrenchio.app/dispatch/internal/store"
)

// ErrValidation marks configuration errors rejected at write time. They never
// reach dispatch.
var ErrValidation = errors.New("validation error")

// RuleService owns operator CRUD on automation rules, enforcing the write-time
// validation that keeps malformed rules out of the dispatch hot path.
type RuleService interface {
	Create(ctx context.Context, params RuleParams) (*model.Rule, error)
	Get(ctx context.Context, id int64) (*model.Rule, error)
	Update(ctx context.Context, id int64, params RuleParams) (*model.Rule, error)
	SetActive(ctx context.Context, id int64, active bool) error
	Delete(ctx context.Context, id int64) error
	List(ctx context.Context, tenantID string, limit, offset int32) ([]model.Rule, error)
}

type RuleParams struct {
	TenantID     string
	Name         string
	Description  *string
	Trigger      domain.EventType
	Conditions   model.Conditions
	Action       model.ActionType
	ActionConfig []byte
	IsActive     bool
}

type ruleService struct {
	rules store.RuleStore
}

func NewRuleService(rules store.RuleStore) RuleService {
	return &ruleService{rules: rules}
}

func (s *ruleService) Create(ctx context.Context, params RuleParams) (*model.Rule, error) {
	if err := validateRuleParams(params); err != nil {
		return nil, err
	}

	rule := &model.Rule{
		ID:           id.New(),
		TenantID:     params.TenantID,
		Name:         params.Name,
		Description:  params.Description,
		Trigger:      params.Trigger,
		Conditions:   normalizeConditions(params.Conditions),
		Action:       params.Action,
		ActionConfig: params.ActionConfig,
		IsActive:     params.IsActive,
	}

	if err := s.rules.Create(ctx, rule); err != nil {
		return nil, fmt.Errorf("creating rule: %w", err)
	}
	return rule, nil
}

func (s *ruleService) Get(ctx context.Context, ruleID int64) (*model.Rule, error) {
	return s.rules.GetByID(ctx, ruleID)
}

func (s *ruleService) Update(ctx context.Context, ruleID int64, params RuleParams) (*model.Rule, error) {
	rule, err := s.rules.GetByID(ctx, ruleID)
	if err != nil {
		return nil, err
	}

	// The tenant is immutable; validation runs against the stored one.
	params.TenantID = rule.TenantID
	if err := validateRuleParams(params); err != nil {
		return nil, err
	}

	rule.Name = params.Name
	rule.Description = params.Description
	rule.Trigger = params.Trigger
	rule.Conditions = normalizeConditions(params.Conditions)
	rule.Action = params.Action
	rule.ActionConfig = params.ActionConfig
	rule.IsActive = params.IsActive

	if err := s.rules.Update(ctx, rule); err != nil {
		return nil, fmt.Errorf("updating rule: %w", err)
	}
	return rule, nil
}

func (s *ruleService) SetActive(ctx context.Context, ruleID int64, active bool) error {
	return s.rules.SetActive(ctx, ruleID, active)
}

func (s *ruleService) Delete(ctx context.Context, ruleID int64) error {
	return s.rules.Delete(ctx, ruleID)
}

func (s *ruleService) List(ctx context.Context, tenantID string, limit, offset int32) ([]model.Rule, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return s.rules.ListByTenant(ctx, tenantID, limit, offset)
}

func validateRuleParams(params RuleParams) error {
	if params.TenantID == "" {
		return fmt.Errorf("%w: tenant_id is required", ErrValidation)
	}
	if params.Name == "" {
		return fmt.Errorf("%w: name is required", ErrValidation)
	}
	if !domain.IsKnownEventType(params.Trigger) {
		return fmt.Errorf("%w: unknown trigger %q", ErrValidation, params.Trigger)
	}
	if !model.IsKnownActionType(params.Action) {
		return fmt.Errorf("%w: unknown action %q", ErrValidation, params.Action)
	}

	// Conditions are equality-only over scalars; arrays and objects are
	// rejected here rather than silently never matching.
	for key, value := range params.Conditions {
		switch value.(type) {
		case nil, string, bool, float64, float32, int, int32, int64:
		default:
			return fmt.Errorf("%w: condition %q must be a scalar value", ErrValidation, key)
		}
	}

	// An incomplete action config never reaches the executor.
	if _, err := automation.ParseActionSpec(params.Action, params.ActionConfig); err != nil {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}

	return nil
}

func normalizeConditions(conditions model.Conditions) model.Conditions {
	if conditions == nil {
		return model.Conditions{}
	}
	return conditions
}
