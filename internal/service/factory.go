package service

import (
	"wrenchio.app/dispatch/internal/store"
)

type Services struct {
	stores *store.Stores
}

func NewServices(stores *store.Stores) *Services {
	return &Services{stores: stores}
}

func (s *Services) Rules() RuleService {
	return NewRuleService(s.stores.Rules())
}

func (s *Services) Subscriptions() SubscriptionService {
	return NewSubscriptionService(s.stores.Subscriptions())
}
