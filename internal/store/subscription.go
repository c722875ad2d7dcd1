package store

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"wrenchio.app/dispatch/internal/domain"
	"wrenchio.app/dispatch/internal/model"
)

type subscriptionStore struct {
	db DBTX
}

const subscriptionColumns = `id, tenant_id, url, secret, events, is_active, last_triggered_at, created_at, updated_at`

func (s *subscriptionStore) GetByID(ctx context.Context, id int64) (*model.Subscription, error) {
	row := s.db.QueryRow(ctx, `SELECT `+subscriptionColumns+` FROM webhook_subscriptions WHERE id = $1`, id)
	sub, err := scanSubscription(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return sub, nil
}

func (s *subscriptionStore) Create(ctx context.Context, sub *model.Subscription) error {
	row := s.db.QueryRow(ctx, `
		INSERT INTO webhook_subscriptions (id, tenant_id, url, secret, events, is_active)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at, updated_at`,
		sub.ID, sub.TenantID, sub.URL, sub.Secret, sub.Events, sub.IsActive,
	)
	return row.Scan(&sub.CreatedAt, &sub.UpdatedAt)
}

func (s *subscriptionStore) Update(ctx context.Context, sub *model.Subscription) error {
	row := s.db.QueryRow(ctx, `
		UPDATE webhook_subscriptions
		SET url = $2, events = $3, is_active = $4, updated_at = now()
		WHERE id = $1
		RETURNING updated_at`,
		sub.ID, sub.URL, sub.Events, sub.IsActive,
	)
	if err := row.Scan(&sub.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return err
	}
	return nil
}

func (s *subscriptionStore) SetActive(ctx context.Context, id int64, active bool) error {
	tag, err := s.db.Exec(ctx, `UPDATE webhook_subscriptions SET is_active = $2, updated_at = now() WHERE id = $1`, id, active)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *subscriptionStore) Delete(ctx context.Context, id int64) error {
	_, err := s.db.Exec(ctx, `DELETE FROM webhook_subscriptions WHERE id = $1`, id)
	return err
}

func (s *subscriptionStore) ListByTenant(ctx context.Context, tenantID string, limit, offset int32) ([]model.Subscription, error) {
	rows, err := s.db.Query(ctx, `
		SELECT `+subscriptionColumns+`
		FROM webhook_subscriptions
		WHERE tenant_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`,
		tenantID, limit, offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectSubscriptions(rows)
}

func (s *subscriptionStore) ListActiveByEvent(ctx context.Context, tenantID string, eventType domain.EventType) ([]model.Subscription, error) {
	rows, err := s.db.Query(ctx, `
		SELECT `+subscriptionColumns+`
		FROM webhook_subscriptions
		WHERE tenant_id = $1 AND is_active = true AND $2 = ANY(events)`,
		tenantID, string(eventType),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectSubscriptions(rows)
}

// UpdateLastTriggered is called only on the first successful delivery attempt
// for a logical event. Later-arriving retries never move the timestamp backwards.
func (s *subscriptionStore) UpdateLastTriggered(ctx context.Context, id int64, at time.Time) error {
	_, err := s.db.Exec(ctx, `
		UPDATE webhook_subscriptions
		SET last_triggered_at = GREATEST(COALESCE(last_triggered_at, $2), $2), updated_at = now()
		WHERE id = $1`,
		id, at,
	)
	return err
}

func collectSubscriptions(rows pgx.Rows) ([]model.Subscription, error) {
	var result []model.Subscription
	for rows.Next() {
		sub, err := scanSubscription(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *sub)
	}
	return result, rows.Err()
}

func scanSubscription(row pgx.Row) (*model.Subscription, error) {
	var (
		sub           model.Subscription
		lastTriggered pgtype.Timestamptz
	)
	if err := row.Scan(
		&sub.ID, &sub.TenantID, &sub.URL, &sub.Secret, &sub.Events,
		&sub.IsActive, &lastTriggered, &sub.CreatedAt, &sub.UpdatedAt,
	); err != nil {
		return nil, err
	}
	sub.LastTriggeredAt = toTimePointer(lastTriggered)
	return &sub, nil
}
