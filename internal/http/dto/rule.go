package dto

import (
	"encoding/json"
	"time"

	"wrenchio.app/dispatch/internal/model"
)

type CreateRuleRequest struct {
	TenantID     string          `json:"tenant_id" binding:"required"`
	Name         string          `json:"name" binding:"required"`
	Description  *string         `json:"description,omitempty"`
	Trigger      string          `json:"trigger" binding:"required"`
	Conditions   map[string]any  `json:"conditions"`
	Action       string          `json:"action" binding:"required"`
	ActionConfig json.RawMessage `json:"action_config"`
	IsActive     *bool           `json:"is_active,omitempty"`
}

type UpdateRuleRequest struct {
	Name         string          `json:"name" binding:"required"`
	Description  *string         `json:"description,omitempty"`
	Trigger      string          `json:"trigger" binding:"required"`
	Conditions   map[string]any  `json:"conditions"`
	Action       string          `json:"action" binding:"required"`
	ActionConfig json.RawMessage `json:"action_config"`
	IsActive     *bool           `json:"is_active,omitempty"`
}

type RuleResponse struct {
	ID           int64           `json:"id"`
	TenantID     string          `json:"tenant_id"`
	Name         string          `json:"name"`
	Description  *string         `json:"description,omitempty"`
	Trigger      string          `json:"trigger"`
	Conditions   map[string]any  `json:"conditions"`
	Action       string          `json:"action"`
	ActionConfig json.RawMessage `json:"action_config"`
	IsActive     bool            `json:"is_active"`
	CreatedAt    string          `json:"created_at"`
	UpdatedAt    string          `json:"updated_at"`
}

func ToRuleResponse(rule *model.Rule) RuleResponse {
	return RuleResponse{
		ID:           rule.ID,
		TenantID:     rule.TenantID,
		Name:         rule.Name,
		Description:  rule.Description,
		Trigger:      string(rule.Trigger),
		Conditions:   rule.Conditions,
		Action:       string(rule.Action),
		ActionConfig: rule.ActionConfig,
		IsActive:     rule.IsActive,
		CreatedAt:    rule.CreatedAt.Format(time.RFC3339),
		UpdatedAt:    rule.UpdatedAt.Format(time.RFC3339),
	}
}

type ListRulesResponse struct {
	Rules []RuleResponse `json:"rules"`
}
