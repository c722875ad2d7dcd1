package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"wrenchio.app/dispatch/internal/domain"
	"wrenchio.app/dispatch/internal/http/dto"
	"wrenchio.app/dispatch/internal/model"
	"wrenchio.app/dispatch/internal/service"
	"wrenchio.app/dispatch/internal/store"
)

type RuleHandler struct {
	rules service.RuleService
}

func NewRuleHandler(rules service.RuleService) *RuleHandler {
	return &RuleHandler{rules: rules}
}

// Create registers a new automation rule (admin only)
func (h *RuleHandler) Create(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.CreateRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	params := service.RuleParams{
		TenantID:     req.TenantID,
		Name:         req.Name,
		Description:  req.Description,
		Trigger:      domain.EventType(req.Trigger),
		Conditions:   model.Conditions(req.Conditions),
		Action:       model.ActionType(req.Action),
		ActionConfig: req.ActionConfig,
		IsActive:     true,
	}
	if req.IsActive != nil {
		params.IsActive = *req.IsActive
	}

	rule, err := h.rules.Create(ctx, params)
	if err != nil {
		if errors.Is(err, service.ErrValidation) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		slog.ErrorContext(ctx, "failed to create rule", "error", err, "tenant_id", req.TenantID)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create rule"})
		return
	}

	slog.InfoContext(ctx, "automation rule created",
		"rule_id", rule.ID,
		"tenant_id", rule.TenantID,
		"trigger", rule.Trigger,
		"action", rule.Action,
	)

	c.JSON(http.StatusCreated, dto.ToRuleResponse(rule))
}

// Get fetches a single rule by ID (admin only)
func (h *RuleHandler) Get(c *gin.Context) {
	ctx := c.Request.Context()

	ruleID, ok := pathID(c)
	if !ok {
		return
	}

	rule, err := h.rules.Get(ctx, ruleID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "rule not found"})
			return
		}
		slog.ErrorContext(ctx, "failed to get rule", "error", err, "rule_id", ruleID)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get rule"})
		return
	}

	c.JSON(http.StatusOK, dto.ToRuleResponse(rule))
}

// Update replaces a rule's definition (admin only)
func (h *RuleHandler) Update(c *gin.Context) {
	ctx := c.Request.Context()

	ruleID, ok := pathID(c)
	if !ok {
		return
	}

	var req dto.UpdateRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	params := service.RuleParams{
		Name:         req.Name,
		Description:  req.Description,
		Trigger:      domain.EventType(req.Trigger),
		Conditions:   model.Conditions(req.Conditions),
		Action:       model.ActionType(req.Action),
		ActionConfig: req.ActionConfig,
		IsActive:     true,
	}
	if req.IsActive != nil {
		params.IsActive = *req.IsActive
	}

	rule, err := h.rules.Update(ctx, ruleID, params)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrValidation):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		case errors.Is(err, store.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "rule not found"})
		default:
			slog.ErrorContext(ctx, "failed to update rule", "error", err, "rule_id", ruleID)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update rule"})
		}
		return
	}

	c.JSON(http.StatusOK, dto.ToRuleResponse(rule))
}

type setActiveRequest struct {
	IsActive *bool `json:"is_active" binding:"required"`
}

// SetActive toggles a rule without touching its definition (admin only)
func (h *RuleHandler) SetActive(c *gin.Context) {
	ctx := c.Request.Context()

	ruleID, ok := pathID(c)
	if !ok {
		return
	}

	var req setActiveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: is_active is required"})
		return
	}

	if err := h.rules.SetActive(ctx, ruleID, *req.IsActive); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "rule not found"})
			return
		}
		slog.ErrorContext(ctx, "failed to toggle rule", "error", err, "rule_id", ruleID)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to toggle rule"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"id": ruleID, "is_active": *req.IsActive})
}

// Delete removes a rule (admin only)
func (h *RuleHandler) Delete(c *gin.Context) {
	ctx := c.Request.Context()

	ruleID, ok := pathID(c)
	if !ok {
		return
	}

	if err := h.rules.Delete(ctx, ruleID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "rule not found"})
			return
		}
		slog.ErrorContext(ctx, "failed to delete rule", "error", err, "rule_id", ruleID)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete rule"})
		return
	}

	c.Status(http.StatusNoContent)
}

// List returns a tenant's rules, newest first (admin only)
func (h *RuleHandler) List(c *gin.Context) {
	ctx := c.Request.Context()

	tenantID := c.Query("tenant_id")
	if tenantID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "tenant_id is required"})
		return
	}

	limit, offset := pagination(c)
	rules, err := h.rules.List(ctx, tenantID, limit, offset)
	if err != nil {
		slog.ErrorContext(ctx, "failed to list rules", "error", err, "tenant_id", tenantID)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list rules"})
		return
	}

	resp := dto.ListRulesResponse{Rules: make([]dto.RuleResponse, len(rules))}
	for i := range rules {
		resp.Rules[i] = dto.ToRuleResponse(&rules[i])
	}

	c.JSON(http.StatusOK, resp)
}

func pathID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return 0, false
	}
	return id, true
}

func pagination(c *gin.Context) (limit, offset int32) {
	limit = 50
	if raw := c.Query("limit"); raw != "" {
		if v, err := strconv.ParseInt(raw, 10, 32); err == nil {
			limit = int32(v)
		}
	}
	if raw := c.Query("offset"); raw != "" {
		if v, err := strconv.ParseInt(raw, 10, 32); err == nil {
			offset = int32(v)
		}
	}
	return limit, offset
}
