package rules

import (
	"github.com/AditiSurve17/intelligent-cloud-waste-detector/internal/models"
	"github.com/AditiSurve17/intelligent-cloud-waste-detector/internal/policy"
)

// RuleContext carries everything known about a single resource at evaluation
// time. It is the sole input to Rule.Evaluate; rules must never make network
// calls or read external state.
type RuleContext struct {
	// Record is the most recent observation of the resource.
	Record models.UsageRecord

	// History holds earlier observations of the same resource, oldest first.
	// May be empty.
	History []models.UsageRecord

	// PrimaryRegion is the account's declared home region. Empty disables
	// region comparisons.
	PrimaryRegion string

	// Policy holds the active PolicyConfig for threshold overrides. May be nil
	// when no policy file is loaded; rules must treat nil as "use defaults".
	Policy *policy.PolicyConfig
}

// Rule is a single deterministic waste heuristic.
// Rules must be stateless and safe to call concurrently.
type Rule interface {
	// ID returns the unique, stable identifier for this rule (e.g. "IDLE_RESOURCE").
	ID() string

	// Name returns a short human-readable rule name.
	Name() string

	// Evaluate inspects ctx and returns exactly one signal. Missing optional
	// inputs yield a non-triggered signal, never an error.
	Evaluate(ctx RuleContext) models.WasteSignal
}

// RuleRegistry manages the set of active rules and drives evaluation.
type RuleRegistry interface {
	// Register adds a rule to the registry. Panics on duplicate ID.
	Register(rule Rule)

	// All returns all registered rules in registration order.
	All() []Rule

	// EvaluateAll runs every enabled rule against ctx.
	EvaluateAll(ctx RuleContext) []models.WasteSignal
}

// IDs returns the IDs of rs in order.
func IDs(rs []Rule) []string {
	ids := make([]string, len(rs))
	for i, r := range rs {
		ids[i] = r.ID()
	}
	return ids
}
