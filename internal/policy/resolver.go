package policy

// IsRuleEnabled reports whether ruleID should be evaluated. Rules are enabled
// unless the policy explicitly sets enabled: false. Safe with cfg == nil.
func IsRuleEnabled(ruleID string, cfg *PolicyConfig) bool {
	if cfg == nil {
		return true
	}
	rc, ok := cfg.Rules[ruleID]
	if !ok || rc.Enabled == nil {
		return true
	}
	return *rc.Enabled
}

// PriceMultiplier returns the relative price of region, preferring the policy
// override over builtin. The boolean is false when neither knows the region.
func PriceMultiplier(region string, builtin map[string]float64, cfg *PolicyConfig) (float64, bool) {
	if cfg != nil {
		if v, ok := cfg.RegionalPriceIndex[region]; ok {
			return v, true
		}
	}
	v, ok := builtin[region]
	return v, ok
}

// PrimaryRegion returns the configured primary region or fallback.
func PrimaryRegion(cfg *PolicyConfig, fallback string) string {
	if cfg == nil || cfg.PrimaryRegion == "" {
		return fallback
	}
	return cfg.PrimaryRegion
}
