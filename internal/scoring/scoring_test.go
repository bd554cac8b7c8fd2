package scoring

import (
	"testing"

	"github.com/AditiSurve17/intelligent-cloud-waste-detector/internal/models"
	"github.com/AditiSurve17/intelligent-cloud-waste-detector/internal/policy"
)

func TestAggregate_SumsOnlyTriggered(t *testing.T) {
	a := NewAggregator(DefaultThresholds())
	score := a.Aggregate([]models.WasteSignal{
		{Heuristic: "A", Triggered: true, Weight: 12},
		{Heuristic: "B", Triggered: false, Weight: 99},
		{Heuristic: "C", Triggered: true, Weight: 10},
	})
	if score.Composite != 22 {
		t.Errorf("composite = %v, want 22", score.Composite)
	}
	if score.Priority != models.PriorityMedium {
		t.Errorf("priority = %s, want Medium", score.Priority)
	}
	if got := score.Heuristics(); len(got) != 2 || got[0] != "A" || got[1] != "C" {
		t.Errorf("heuristics = %v", got)
	}
}

func TestAggregate_NoSignals(t *testing.T) {
	score := NewAggregator(DefaultThresholds()).Aggregate(nil)
	if score.Composite != 0 || score.Priority != models.PriorityLow {
		t.Errorf("got %+v", score)
	}
}

func TestPriorityFor_Boundaries(t *testing.T) {
	th := DefaultThresholds()
	tests := []struct {
		score float64
		want  models.Priority
	}{
		{0, models.PriorityLow},
		{19.99, models.PriorityLow},
		{20, models.PriorityMedium},
		{29.99, models.PriorityMedium},
		{30, models.PriorityHigh},
		{500, models.PriorityHigh},
	}
	for _, tt := range tests {
		if got := th.PriorityFor(tt.score); got != tt.want {
			t.Errorf("PriorityFor(%v) = %s, want %s", tt.score, got, tt.want)
		}
	}
}

func TestPriorityFor_Monotone(t *testing.T) {
	th := Thresholds{High: 42, Medium: 17}
	prev := models.PriorityRank[th.PriorityFor(0)]
	for s := 0.0; s <= 100; s += 0.5 {
		rank := models.PriorityRank[th.PriorityFor(s)]
		if rank > prev {
			t.Fatalf("priority dropped at score %v", s)
		}
		prev = rank
	}
}

func TestThresholdsFromPolicy(t *testing.T) {
	if got := ThresholdsFromPolicy(nil); got != DefaultThresholds() {
		t.Errorf("nil policy = %+v", got)
	}
	got := ThresholdsFromPolicy(&policy.PolicyConfig{Scoring: policy.ScoringConfig{High: 40, Medium: 25}})
	if got.High != 40 || got.Medium != 25 {
		t.Errorf("override = %+v", got)
	}
}
