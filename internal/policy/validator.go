package policy

import (
	"fmt"
	"strings"

	"github.com/AditiSurve17/intelligent-cloud-waste-detector/internal/models"
)

// canonicalPriority maps "high", "HIGH", "High" to models.PriorityHigh etc.
func canonicalPriority(s string) models.Priority {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return ""
	}
	return models.Priority(strings.ToUpper(s[:1]) + s[1:])
}

// Validate checks cfg for semantic correctness and returns all validation errors
// found. An empty slice means the config is valid.
//
// Checks performed:
//   - version must be 1
//   - scoring thresholds must be non-negative and high >= medium when both set
//   - regional price multipliers must be positive
//   - rule IDs must appear in availableRuleIDs
//   - rule params must be non-negative
//   - enforcement fail_on_priority must be High, Medium or Low if set
//
// All errors are collected before returning; Validate never stops at the first error.
func Validate(cfg *PolicyConfig, availableRuleIDs []string) []error {
	if cfg == nil {
		return []error{fmt.Errorf("policy config is nil")}
	}

	knownIDs := make(map[string]struct{}, len(availableRuleIDs))
	for _, id := range availableRuleIDs {
		knownIDs[id] = struct{}{}
	}

	var errs []error

	if cfg.Version != 1 {
		errs = append(errs, fmt.Errorf("version: unsupported value %d; must be 1", cfg.Version))
	}

	if cfg.Scoring.High < 0 {
		errs = append(errs, fmt.Errorf("scoring.high: must be >= 0, got %g", cfg.Scoring.High))
	}
	if cfg.Scoring.Medium < 0 {
		errs = append(errs, fmt.Errorf("scoring.medium: must be >= 0, got %g", cfg.Scoring.Medium))
	}
	if cfg.Scoring.High > 0 && cfg.Scoring.Medium > 0 && cfg.Scoring.High < cfg.Scoring.Medium {
		errs = append(errs, fmt.Errorf("scoring: high (%g) must be >= medium (%g)", cfg.Scoring.High, cfg.Scoring.Medium))
	}

	for region, mult := range cfg.RegionalPriceIndex {
		if mult <= 0 {
			errs = append(errs, fmt.Errorf("regional_price_index.%s: multiplier must be > 0, got %g", region, mult))
		}
	}

	for ruleID, rcfg := range cfg.Rules {
		if _, ok := knownIDs[ruleID]; !ok {
			errs = append(errs, fmt.Errorf("rules.%s: unknown rule ID", ruleID))
		}
		for key, v := range rcfg.Params {
			if v < 0 {
				errs = append(errs, fmt.Errorf("rules.%s.params.%s: must be >= 0, got %g", ruleID, key, v))
			}
		}
	}

	if p := cfg.Enforcement.FailOnPriority; p != "" {
		if _, ok := models.PriorityRank[canonicalPriority(p)]; !ok {
			errs = append(errs, fmt.Errorf("enforcement.fail_on_priority: invalid value %q; valid values: High, Medium, Low", p))
		}
	}

	return errs
}
