package automation

import (
	"context"
	"fmt"

	"wrenchio.app/dispatch/internal/domain"
	"wrenchio.app/dispatch/internal/model"
	"wrenchio.app/dispatch/internal/store"
)

// Matcher selects the active rules that fire for an event.
type Matcher interface {
	Match(ctx context.Context, envelope domain.Envelope) ([]model.Rule, error)
}

type matcher struct {
	rules store.RuleStore
}

func NewMatcher(rules store.RuleStore) Matcher {
	return &matcher{rules: rules}
}

// Match returns every rule of the event's tenant that is active, whose trigger
// equals the event type, and whose conditions all hold against the payload.
// Order of the result is unspecified; callers execute rules independently.
func (m *matcher) Match(ctx context.Context, envelope domain.Envelope) ([]model.Rule, error) {
	candidates, err := m.rules.ListActiveByTrigger(ctx, envelope.TenantID, envelope.Type)
	if err != nil {
		return nil, fmt.Errorf("listing rules for trigger %s: %w", envelope.Type, err)
	}

	var matched []model.Rule
	for _, rule := range candidates {
		if ConditionsMatch(rule.Conditions, envelope.Payload) {
			matched = append(matched, rule)
		}
	}
	return matched, nil
}

// ConditionsMatch reports whether every condition key is present in the
// payload with an equal scalar value. A payload missing a referenced field is
// a non-match, never a fault. An empty condition set matches unconditionally.
func ConditionsMatch(conditions model.Conditions, payload map[string]any) bool {
	for key, expected := range conditions {
		actual, ok := payload[key]
		if !ok {
			return false
		}
		if !scalarEqual(expected, actual) {
			return false
		}
	}
	return true
}

// scalarEqual compares condition and payload values with string/number/boolean
// equality. Numbers compare by value so 500 and 500.0 are equal regardless of
// which JSON decoder produced them. Arrays and objects never match; richer
// predicates are deliberately out of scope.
func scalarEqual(expected, actual any) bool {
	if expected == nil || actual == nil {
		return expected == nil && actual == nil
	}

	if en, eok := toFloat(expected); eok {
		an, aok := toFloat(actual)
		return aok && en == an
	}

	switch e := expected.(type) {
	case string:
		a, ok := actual.(string)
		return ok && e == a
	case bool:
		a, ok := actual.(bool)
		return ok && e == a
	default:
		return false
	}
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}
