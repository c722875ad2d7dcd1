package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"wrenchio.app/dispatch/internal/domain"
	"wrenchio.app/dispatch/internal/model"
)

type ruleStore struct {
	db DBTX
}

const ruleColumns = `id, tenant_id, name, description, trigger, conditions, action, action_config, is_active, created_at, updated_at`

func (s *ruleStore) GetByID(ctx context.Context, id int64) (*model.Rule, error) {
	row := s.db.QueryRow(ctx, `SELECT `+ruleColumns+` FROM automation_rules WHERE id = $1`, id)
	rule, err := scanRule(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return rule, nil
}

func (s *ruleStore) Create(ctx context.Context, rule *model.Rule) error {
	conditions, err := json.Marshal(rule.Conditions)
	if err != nil {
		return fmt.Errorf("encoding conditions: %w", err)
	}

	row := s.db.QueryRow(ctx, `
		INSERT INTO automation_rules (id, tenant_id, name, description, trigger, conditions, action, action_config, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at, updated_at`,
		rule.ID, rule.TenantID, rule.Name, rule.Description, rule.Trigger,
		conditions, rule.Action, []byte(rule.ActionConfig), rule.IsActive,
	)
	return row.Scan(&rule.CreatedAt, &rule.UpdatedAt)
}

func (s *ruleStore) Update(ctx context.Context, rule *model.Rule) error {
	conditions, err := json.Marshal(rule.Conditions)
	if err != nil {
		return fmt.Errorf("encoding conditions: %w", err)
	}

	row := s.db.QueryRow(ctx, `
		UPDATE automation_rules
		SET name = $2, description = $3, trigger = $4, conditions = $5,
		    action = $6, action_config = $7, is_active = $8, updated_at = now()
		WHERE id = $1
		RETURNING updated_at`,
		rule.ID, rule.Name, rule.Description, rule.Trigger,
		conditions, rule.Action, []byte(rule.ActionConfig), rule.IsActive,
	)
	if err := row.Scan(&rule.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return err
	}
	return nil
}

func (s *ruleStore) SetActive(ctx context.Context, id int64, active bool) error {
	tag, err := s.db.Exec(ctx, `UPDATE automation_rules SET is_active = $2, updated_at = now() WHERE id = $1`, id, active)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *ruleStore) Delete(ctx context.Context, id int64) error {
	_, err := s.db.Exec(ctx, `DELETE FROM automation_rules WHERE id = $1`, id)
	return err
}

func (s *ruleStore) ListByTenant(ctx context.Context, tenantID string, limit, offset int32) ([]model.Rule, error) {
	rows, err := s.db.Query(ctx, `
		SELECT `+ruleColumns+`
		FROM automation_rules
		WHERE tenant_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`,
		tenantID, limit, offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectRules(rows)
}

func (s *ruleStore) ListActiveByTrigger(ctx context.Context, tenantID string, trigger domain.EventType) ([]model.Rule, error) {
	rows, err := s.db.Query(ctx, `
		SELECT `+ruleColumns+`
		FROM automation_rules
		WHERE tenant_id = $1 AND trigger = $2 AND is_active = true`,
		tenantID, trigger,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectRules(rows)
}

func collectRules(rows pgx.Rows) ([]model.Rule, error) {
	var result []model.Rule
	for rows.Next() {
		rule, err := scanRule(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *rule)
	}
	return result, rows.Err()
}

func scanRule(row pgx.Row) (*model.Rule, error) {
	var (
		rule       model.Rule
		conditions []byte
		config     []byte
	)
	if err := row.Scan(
		&rule.ID, &rule.TenantID, &rule.Name, &rule.Description, &rule.Trigger,
		&conditions, &rule.Action, &config, &rule.IsActive,
		&rule.CreatedAt, &rule.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if len(conditions) > 0 {
		if err := json.Unmarshal(conditions, &rule.Conditions); err != nil {
			return nil, fmt.Errorf("decoding conditions for rule %d: %w", rule.ID, err)
		}
	}
	if rule.Conditions == nil {
		rule.Conditions = model.Conditions{}
	}
	rule.ActionConfig = config
	return &rule, nil
}
