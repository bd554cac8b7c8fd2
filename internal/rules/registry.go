package rules

import (
	"fmt"
	"log/slog"
	"math"

	"github.com/AditiSurve17/intelligent-cloud-waste-detector/internal/models"
	"github.com/AditiSurve17/intelligent-cloud-waste-detector/internal/policy"
)

// DefaultRuleRegistry is a simple, ordered, in-memory registry.
// Rules are evaluated in registration order.
// Register panics on duplicate rule IDs to catch wiring mistakes at startup.
type DefaultRuleRegistry struct {
	rules  []Rule
	index  map[string]struct{}
	logger *slog.Logger
}

// NewDefaultRuleRegistry returns an empty registry ready for rule registration.
func NewDefaultRuleRegistry() *DefaultRuleRegistry {
	return &DefaultRuleRegistry{
		index:  make(map[string]struct{}),
		logger: slog.Default(),
	}
}

// SetLogger replaces the logger used to report misbehaving rules.
func (r *DefaultRuleRegistry) SetLogger(l *slog.Logger) {
	if l != nil {
		r.logger = l
	}
}

// Register adds rule to the registry. Panics if the same ID is registered twice.
func (r *DefaultRuleRegistry) Register(rule Rule) {
	if _, exists := r.index[rule.ID()]; exists {
		panic(fmt.Sprintf("duplicate rule ID: %q", rule.ID()))
	}
	r.rules = append(r.rules, rule)
	r.index[rule.ID()] = struct{}{}
}

// All returns all registered rules in registration order.
func (r *DefaultRuleRegistry) All() []Rule {
	return r.rules
}

// EvaluateAll runs every rule not disabled by ctx.Policy and returns one
// signal per evaluated rule, in registration order.
//
// A rule that panics is logged and reported as not triggered. The returned
// signals always satisfy: Heuristic == rule ID, and Weight > 0 iff Triggered.
func (r *DefaultRuleRegistry) EvaluateAll(ctx RuleContext) []models.WasteSignal {
	signals := make([]models.WasteSignal, 0, len(r.rules))
	for _, rule := range r.rules {
		if !policy.IsRuleEnabled(rule.ID(), ctx.Policy) {
			continue
		}
		signals = append(signals, r.evaluate(rule, ctx))
	}
	return signals
}

func (r *DefaultRuleRegistry) evaluate(rule Rule, ctx RuleContext) (sig models.WasteSignal) {
	defer func() {
		if p := recover(); p != nil {
			r.logger.Error("rule panicked; treating as not triggered",
				"rule", rule.ID(), "resource_id", ctx.Record.ResourceID, "panic", fmt.Sprint(p))
			sig = models.NotTriggered(rule.ID())
		}
	}()

	sig = rule.Evaluate(ctx)
	sig.Heuristic = rule.ID()
	if !sig.Triggered {
		return models.NotTriggered(rule.ID())
	}
	// Written so NaN fails the check too.
	if !(sig.Weight > 0) || math.IsInf(sig.Weight, 1) {
		r.logger.Warn("rule triggered with invalid weight; ignoring",
			"rule", rule.ID(), "resource_id", ctx.Record.ResourceID, "weight", sig.Weight)
		return models.NotTriggered(rule.ID())
	}
	return sig
}
