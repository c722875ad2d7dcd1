package model

import "time"

// Subscription is a persisted webhook registration. Its secret signs every
// delivery body and is never exposed by any read API after creation.
type Subscription struct {
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
	LastTriggeredAt *time.Time `json:"last_triggered_at,omitempty"`
	URL             string     `json:"url"`
	Secret          string     `json:"-"`
	TenantID        string     `json:"tenant_id"`
	Events          []string   `json:"events"`
	ID              int64      `json:"id"`
	IsActive        bool       `json:"is_active"`
}

// SubscribesTo reports whether the subscription's event set contains eventType.
func (s *Subscription) SubscribesTo(eventType string) bool {
	for _, e := range s.Events {
		if e == eventType {
			return true
		}
	}
	return false
}
