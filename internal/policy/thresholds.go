package policy

// GetThreshold returns the configured float64 parameter value for a rule, or
// defaultValue when no override is present. It is safe to call with cfg == nil.
//
// Lookup order:
//  1. cfg == nil → defaultValue
//  2. cfg.Rules[ruleID] absent → defaultValue
//  3. cfg.Rules[ruleID].Params[key] absent → defaultValue
//  4. Otherwise → configured value
func GetThreshold(ruleID, key string, defaultValue float64, cfg *PolicyConfig) float64 {
	if cfg == nil {
		return defaultValue
	}
	rc, ok := cfg.Rules[ruleID]
	if !ok {
		return defaultValue
	}
	v, ok := rc.Params[key]
	if !ok {
		return defaultValue
	}
	return v
}

// ScoreThresholds returns the High and Medium composite-score thresholds,
// substituting the given defaults for unset values.
func ScoreThresholds(cfg *PolicyConfig, defaultHigh, defaultMedium float64) (high, medium float64) {
	high, medium = defaultHigh, defaultMedium
	if cfg == nil {
		return
	}
	if cfg.Scoring.High > 0 {
		high = cfg.Scoring.High
	}
	if cfg.Scoring.Medium > 0 {
		medium = cfg.Scoring.Medium
	}
	return
}
