package policy

import "testing"

func TestGetThreshold(t *testing.T) {
	cfg := &PolicyConfig{
		Rules: map[string]RuleConfig{
			"COST_ANOMALY": {Params: map[string]float64{"deviation_percent": 75}},
			"IDLE_RESOURCE": {},
		},
	}

	tests := []struct {
		name   string
		cfg    *PolicyConfig
		ruleID string
		key    string
		want   float64
	}{
		{"nil config", nil, "COST_ANOMALY", "deviation_percent", 50},
		{"rule absent", cfg, "REGIONAL_INEFFICIENCY", "weight", 50},
		{"param absent", cfg, "IDLE_RESOURCE", "quantity_epsilon", 50},
		{"configured", cfg, "COST_ANOMALY", "deviation_percent", 75},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := GetThreshold(tt.ruleID, tt.key, 50, tt.cfg); got != tt.want {
				t.Errorf("GetThreshold() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestScoreThresholds(t *testing.T) {
	h, m := ScoreThresholds(nil, 30, 20)
	if h != 30 || m != 20 {
		t.Errorf("nil cfg: got %v/%v", h, m)
	}

	h, m = ScoreThresholds(&PolicyConfig{Scoring: ScoringConfig{High: 50}}, 30, 20)
	if h != 50 || m != 20 {
		t.Errorf("partial override: got %v/%v", h, m)
	}
}
