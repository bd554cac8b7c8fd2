// Package waste provides the rule pack for cloud waste detection.
// New returns every waste heuristic in evaluation order; callers register
// them into a RuleRegistry via a loop rather than listing each rule.
//
// Adding a new heuristic:
//  1. Implement the rule in internal/rules/ following the Rule interface.
//  2. Append it to the slice returned by New().
//  3. No other files need to change.
package waste

import "github.com/AditiSurve17/intelligent-cloud-waste-detector/internal/rules"

// New returns all waste heuristics in the order they should be evaluated.
// The order also fixes the order of rationales in a recommendation.
func New() []rules.Rule {
	return []rules.Rule{
		rules.LowComputeUtilizationRule{},
		rules.StorageOverprovisionedRule{},
		rules.IdleResourceRule{},
		rules.RegionalInefficiencyRule{},
		rules.InstanceSizeMismatchRule{},
		rules.CostAnomalyRule{},
	}
}

// NewRegistry returns a registry with every rule from New registered.
func NewRegistry() *rules.DefaultRuleRegistry {
	reg := rules.NewDefaultRuleRegistry()
	for _, r := range New() {
		reg.Register(r)
	}
	return reg
}
