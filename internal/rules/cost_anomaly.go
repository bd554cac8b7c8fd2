package rules

import (
	"fmt"
	"math"
	"time"

	"github.com/AditiSurve17/intelligent-cloud-waste-detector/internal/models"
	"github.com/AditiSurve17/intelligent-cloud-waste-detector/internal/policy"
)

const (
	CostAnomalyRuleID = "COST_ANOMALY"

	anomalyDefaultBaselineDays     = 7.0
	anomalyDefaultDeviationPercent = 50.0
	anomalyDefaultBaseWeight       = 15.0
	anomalyDefaultMaxWeight        = 60.0
)

// CostAnomalyRule flags a resource whose latest cost is well above the mean
// of its trailing baseline window. The weight scales with the deviation.
//
// Records without a timestamp, or without any history inside the window,
// cannot be evaluated.
type CostAnomalyRule struct{}

func (r CostAnomalyRule) ID() string   { return CostAnomalyRuleID }
func (r CostAnomalyRule) Name() string { return "Cost Anomaly" }

func (r CostAnomalyRule) Evaluate(ctx RuleContext) models.WasteSignal {
	rec := ctx.Record
	if rec.Timestamp.IsZero() {
		return models.NotTriggered(r.ID())
	}

	days := policy.GetThreshold(r.ID(), "baseline_days", anomalyDefaultBaselineDays, ctx.Policy)
	windowStart := rec.Timestamp.Add(-time.Duration(days * float64(24*time.Hour)))

	var sum float64
	var n int
	for _, h := range ctx.History {
		if h.Timestamp.IsZero() || h.Timestamp.Before(windowStart) || !h.Timestamp.Before(rec.Timestamp) {
			continue
		}
		sum += h.Cost.InexactFloat64()
		n++
	}
	if n == 0 {
		return models.NotTriggered(r.ID())
	}
	baseline := sum / float64(n)
	if baseline <= 0 {
		return models.NotTriggered(r.ID())
	}

	threshold := policy.GetThreshold(r.ID(), "deviation_percent", anomalyDefaultDeviationPercent, ctx.Policy)
	deviation := (rec.Cost.InexactFloat64() - baseline) / baseline * 100
	if deviation <= threshold || threshold <= 0 {
		return models.NotTriggered(r.ID())
	}

	base := policy.GetThreshold(r.ID(), "base_weight", anomalyDefaultBaseWeight, ctx.Policy)
	maxW := policy.GetThreshold(r.ID(), "max_weight", anomalyDefaultMaxWeight, ctx.Policy)

	return models.WasteSignal{
		Heuristic: r.ID(),
		Triggered: true,
		Weight:    math.Min(base*deviation/threshold, maxW),
		Rationale: fmt.Sprintf("cost $%s is %.0f%% above the %.0f-day baseline of $%.2f", rec.Cost.StringFixed(2), deviation, days, baseline),
	}
}
