package policy

// PolicyConfig is the tunable detection policy loaded from a YAML file.
// Every field is optional; rules and the aggregator fall back to built-in
// defaults for anything not set.
type PolicyConfig struct {
	Version int `yaml:"version"`

	// PrimaryRegion is the account's declared home region. Resources outside
	// it are candidates for the regional-inefficiency heuristic.
	PrimaryRegion string `yaml:"primary_region"`

	// RegionalPriceIndex maps region names to a relative price multiplier
	// (1.0 = us-east-1 on-demand). Overrides the built-in index per region.
	RegionalPriceIndex map[string]float64 `yaml:"regional_price_index"`

	Scoring     ScoringConfig         `yaml:"scoring"`
	Rules       map[string]RuleConfig `yaml:"rules"`
	Enforcement EnforcementConfig     `yaml:"enforcement"`
}

// ScoringConfig holds the composite-score thresholds for priority buckets.
// Zero values mean "use the default".
type ScoringConfig struct {
	High   float64 `yaml:"high"`
	Medium float64 `yaml:"medium"`
}

// RuleConfig toggles a single heuristic and overrides its parameters.
type RuleConfig struct {
	Enabled *bool              `yaml:"enabled,omitempty"`
	Params  map[string]float64 `yaml:"params,omitempty"`
}

// EnforcementConfig makes `cwd collect` exit non-zero when a recommendation
// at or above FailOnPriority is produced.
type EnforcementConfig struct {
	FailOnPriority string `yaml:"fail_on_priority,omitempty"`
}
