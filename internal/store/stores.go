package store

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
)

// DBTX abstracts over a pgx pool or transaction so stores work in both modes.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Stores provides access to all store implementations.
// It can be instantiated with either a connection pool or a transaction.
type Stores struct {
	db DBTX
}

// NewStores creates a new Stores instance. The db can be backed by either a
// connection pool (non-transactional) or a pgx.Tx (all operations share the
// same transaction).
func NewStores(db DBTX) *Stores {
	return &Stores{db: db}
}

// Rules returns the RuleStore
func (s *Stores) Rules() RuleStore {
	return &ruleStore{db: s.db}
}

// Subscriptions returns the SubscriptionStore
func (s *Stores) Subscriptions() SubscriptionStore {
	return &subscriptionStore{db: s.db}
}

// Deliveries returns the DeliveryStore
func (s *Stores) Deliveries() DeliveryStore {
	return &deliveryStore{db: s.db}
}

func toTimePointer(value pgtype.Timestamptz) *time.Time {
	if !value.Valid {
		return nil
	}
	t := value.Time
	return &t
}
