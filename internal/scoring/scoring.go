// Package scoring folds a resource's waste signals into one composite score
// and a priority bucket.
package scoring

import (
	"github.com/AditiSurve17/intelligent-cloud-waste-detector/internal/models"
	"github.com/AditiSurve17/intelligent-cloud-waste-detector/internal/policy"
)

const (
	DefaultHighThreshold   = 30.0
	DefaultMediumThreshold = 20.0
)

// Thresholds are the inclusive lower bounds of the High and Medium buckets.
type Thresholds struct {
	High   float64
	Medium float64
}

// DefaultThresholds returns the built-in bucket bounds.
func DefaultThresholds() Thresholds {
	return Thresholds{High: DefaultHighThreshold, Medium: DefaultMediumThreshold}
}

// ThresholdsFromPolicy applies the policy's scoring block over the defaults.
func ThresholdsFromPolicy(cfg *policy.PolicyConfig) Thresholds {
	h, m := policy.ScoreThresholds(cfg, DefaultHighThreshold, DefaultMediumThreshold)
	return Thresholds{High: h, Medium: m}
}

// PriorityFor maps a composite score to its bucket. It is monotone in score
// as long as High >= Medium.
func (t Thresholds) PriorityFor(score float64) models.Priority {
	switch {
	case score >= t.High:
		return models.PriorityHigh
	case score >= t.Medium:
		return models.PriorityMedium
	default:
		return models.PriorityLow
	}
}

// Score is the aggregate of one resource's signals.
type Score struct {
	Composite float64
	Priority  models.Priority
	// Triggered holds the triggered signals in evaluation order.
	Triggered []models.WasteSignal
}

// Aggregator sums triggered weights and buckets the result.
type Aggregator struct {
	Thresholds Thresholds
}

// NewAggregator returns an Aggregator using t.
func NewAggregator(t Thresholds) *Aggregator {
	return &Aggregator{Thresholds: t}
}

// Aggregate returns the composite score of signals. Signals with
// Triggered == false never contribute, whatever their Weight.
func (a *Aggregator) Aggregate(signals []models.WasteSignal) Score {
	var s Score
	for _, sig := range signals {
		if !sig.Triggered {
			continue
		}
		s.Composite += sig.Weight
		s.Triggered = append(s.Triggered, sig)
	}
	s.Priority = a.Thresholds.PriorityFor(s.Composite)
	return s
}

// Heuristics returns the names of the triggered signals.
func (s Score) Heuristics() []string {
	names := make([]string, len(s.Triggered))
	for i, sig := range s.Triggered {
		names[i] = sig.Heuristic
	}
	return names
}
