package automation

import (
	"context"
	"fmt"
	"log/slog"

	"wrenchio.app/dispatch/common/logger"
	"wrenchio.app/dispatch/internal/domain"
	"wrenchio.app/dispatch/internal/model"
)

// Processor runs the full automation path for one event: match, then execute
// every matched rule independently.
type Processor struct {
	matcher  Matcher
	executor Executor
	logger   *slog.Logger
}

func NewProcessor(matcher Matcher, executor Executor, logger *slog.Logger) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Processor{
		matcher:  matcher,
		executor: executor,
		logger:   logger,
	}
}

// Process matches and executes rules for the envelope. One rule's failure or
// panic never prevents execution of the others; per-rule outcomes are logged
// and the aggregate is returned for the worker's records.
func (p *Processor) Process(ctx context.Context, envelope domain.Envelope) ([]ExecutionResult, error) {
	ctx = logger.WithLogFields(ctx, logger.LogFields{
		Component: "dispatch.automation.processor",
	})

	rules, err := p.matcher.Match(ctx, envelope)
	if err != nil {
		return nil, fmt.Errorf("matching rules: %w", err)
	}

	if len(rules) == 0 {
		slog.DebugContext(ctx, "no rules matched")
		return nil, nil
	}

	slog.InfoContext(ctx, "rules matched", "count", len(rules))

	results := make([]ExecutionResult, 0, len(rules))
	for _, rule := range rules {
		results = append(results, p.executeSafe(ctx, rule, envelope))
	}
	return results, nil
}

func (p *Processor) executeSafe(ctx context.Context, rule model.Rule, envelope domain.Envelope) (result ExecutionResult) {
	defer func() {
		if r := recover(); r != nil {
			slog.ErrorContext(ctx, "panic recovered in action execution",
				"panic", r,
				"rule_id", rule.ID)
			result = ExecutionResult{
				RuleID: rule.ID,
				Action: rule.Action,
				Err:    fmt.Errorf("panic: %v", r),
			}
		}
	}()
	return p.executor.Execute(ctx, rule, envelope)
}
