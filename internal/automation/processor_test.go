package automation_test

import (
	"context"
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"wrenchio.app/dispatch/internal/automation"
	"wrenchio.app/dispatch/internal/domain"
	"wrenchio.app/dispatch/internal/model"
)

type mockExecutor struct {
	executeFn func(ctx context.Context, rule model.Rule, envelope domain.Envelope) automation.ExecutionResult
}

func (m *mockExecutor) Execute(ctx context.Context, rule model.Rule, envelope domain.Envelope) automation.ExecutionResult {
	if m.executeFn != nil {
		return m.executeFn(ctx, rule, envelope)
	}
	return automation.ExecutionResult{RuleID: rule.ID, Action: rule.Action}
}

func (m *mockExecutor) RegisterCustomHandler(string, automation.CustomHandler) {}

var _ = Describe("Processor", func() {
	var (
		rules     *mockRuleStore
		executor  *mockExecutor
		processor *automation.Processor
		ctx       context.Context
	)

	BeforeEach(func() {
		rules = &mockRuleStore{}
		executor = &mockExecutor{}
		processor = automation.NewProcessor(automation.NewMatcher(rules), executor, nil)
		ctx = context.Background()
	})

	It("executes every matched rule and reports per-rule outcomes", func() {
		rules.listActiveByTriggerFn = func(context.Context, string, domain.EventType) ([]model.Rule, error) {
			return []model.Rule{{ID: 1}, {ID: 2}, {ID: 3}}, nil
		}
		executor.executeFn = func(_ context.Context, rule model.Rule, _ domain.Envelope) automation.ExecutionResult {
			result := automation.ExecutionResult{RuleID: rule.ID}
			if rule.ID == 2 {
				result.Err = errors.New("collaborator failed")
			}
			return result
		}

		results, err := processor.Process(ctx, testEnvelope(domain.EventTypeQuoteApproved, map[string]any{}))
		Expect(err).NotTo(HaveOccurred())
		Expect(results).To(HaveLen(3))
		Expect(results[0].Succeeded()).To(BeTrue())
		Expect(results[1].Err).To(HaveOccurred())
		Expect(results[2].Succeeded()).To(BeTrue())
	})

	It("contains a panicking rule so the others still execute", func() {
		rules.listActiveByTriggerFn = func(context.Context, string, domain.EventType) ([]model.Rule, error) {
			return []model.Rule{{ID: 1}, {ID: 2}}, nil
		}
		executor.executeFn = func(_ context.Context, rule model.Rule, _ domain.Envelope) automation.ExecutionResult {
			if rule.ID == 1 {
				panic("handler exploded")
			}
			return automation.ExecutionResult{RuleID: rule.ID}
		}

		results, err := processor.Process(ctx, testEnvelope(domain.EventTypeQuoteApproved, map[string]any{}))
		Expect(err).NotTo(HaveOccurred())
		Expect(results).To(HaveLen(2))
		Expect(results[0].Err).To(MatchError(ContainSubstring("panic")))
		Expect(results[1].Succeeded()).To(BeTrue())
	})

	It("returns no results when nothing matches", func() {
		results, err := processor.Process(ctx, testEnvelope(domain.EventTypeInvoiceIssued, map[string]any{}))
		Expect(err).NotTo(HaveOccurred())
		Expect(results).To(BeEmpty())
	})

	It("fails when the matcher cannot list rules", func() {
		rules.listActiveByTriggerFn = func(context.Context, string, domain.EventType) ([]model.Rule, error) {
			return nil, errors.New("db down")
		}

		_, err := processor.Process(ctx, testEnvelope(domain.EventTypeQuoteApproved, map[string]any{}))
		Expect(err).To(HaveOccurred())
	})
})
