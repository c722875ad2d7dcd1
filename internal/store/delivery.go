package store

import (
	"context"

	"wrenchio.app/dispatch/internal/model"
)

type deliveryStore struct {
	db DBTX
}

func (s *deliveryStore) Create(ctx context.Context, rec *model.DeliveryRecord) error {
	row := s.db.QueryRow(ctx, `
		INSERT INTO delivery_records (id, subscription_id, event_type, idempotency_key, attempt, http_status, succeeded, error_detail, attempted_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING attempted_at`,
		rec.ID, rec.SubscriptionID, rec.EventType, rec.IdempotencyKey,
		rec.Attempt, rec.HTTPStatus, rec.Succeeded, rec.ErrorDetail, rec.AttemptedAt,
	)
	return row.Scan(&rec.AttemptedAt)
}

func (s *deliveryStore) ListBySubscription(ctx context.Context, subscriptionID int64, limit int32) ([]model.DeliveryRecord, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, subscription_id, event_type, idempotency_key, attempt, http_status, succeeded, error_detail, attempted_at
		FROM delivery_records
		WHERE subscription_id = $1
		ORDER BY attempted_at DESC, attempt DESC
		LIMIT $2`,
		subscriptionID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []model.DeliveryRecord
	for rows.Next() {
		var rec model.DeliveryRecord
		if err := rows.Scan(
			&rec.ID, &rec.SubscriptionID, &rec.EventType, &rec.IdempotencyKey,
			&rec.Attempt, &rec.HTTPStatus, &rec.Succeeded, &rec.ErrorDetail, &rec.AttemptedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, rec)
	}
	return result, rows.Err()
}

// CountForEvent returns the number of attempts already recorded for one
// logical event against one subscription. The dispatcher uses it to keep
// re-dispatched events within the aggregate retry budget.
func (s *deliveryStore) CountForEvent(ctx context.Context, subscriptionID int64, eventType, idempotencyKey string) (int, error) {
	var count int
	err := s.db.QueryRow(ctx, `
		SELECT COUNT(*)
		FROM delivery_records
		WHERE subscription_id = $1 AND event_type = $2 AND idempotency_key = $3`,
		subscriptionID, eventType, idempotencyKey,
	).Scan(&count)
	return count, err
}

// HasSucceededForEvent reports whether a logical event was already delivered
// successfully to the subscription, so a re-dispatch can be skipped entirely.
func (s *deliveryStore) HasSucceededForEvent(ctx context.Context, subscriptionID int64, eventType, idempotencyKey string) (bool, error) {
	var exists bool
	err := s.db.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM delivery_records
			WHERE subscription_id = $1 AND event_type = $2 AND idempotency_key = $3 AND succeeded
		)`,
		subscriptionID, eventType, idempotencyKey,
	).Scan(&exists)
	return exists, err
}
