package rules

import (
	"fmt"

	"github.com/AditiSurve17/intelligent-cloud-waste-detector/internal/models"
	"github.com/AditiSurve17/intelligent-cloud-waste-detector/internal/policy"
)

const (
	LowComputeUtilizationRuleID = "LOW_COMPUTE_UTILIZATION"

	lowUtilDefaultThreshold      = 10.0
	lowUtilDefaultBaseWeight     = 20.0
	lowUtilDefaultWeightPerPoint = 2.0
)

// LowComputeUtilizationRule flags EC2 instances whose average CPU utilisation
// is below the threshold. The weight grows with the distance below it.
//
// Records with unknown utilisation are never flagged.
type LowComputeUtilizationRule struct{}

func (r LowComputeUtilizationRule) ID() string   { return LowComputeUtilizationRuleID }
func (r LowComputeUtilizationRule) Name() string { return "Low Compute Utilization" }

func (r LowComputeUtilizationRule) Evaluate(ctx RuleContext) models.WasteSignal {
	rec := ctx.Record
	if rec.Service != models.ServiceEC2 {
		return models.NotTriggered(r.ID())
	}
	util, ok := rec.UtilizationValue()
	if !ok {
		return models.NotTriggered(r.ID())
	}

	threshold := policy.GetThreshold(r.ID(), "utilization_threshold", lowUtilDefaultThreshold, ctx.Policy)
	if util >= threshold {
		return models.NotTriggered(r.ID())
	}

	base := policy.GetThreshold(r.ID(), "base_weight", lowUtilDefaultBaseWeight, ctx.Policy)
	perPoint := policy.GetThreshold(r.ID(), "weight_per_point", lowUtilDefaultWeightPerPoint, ctx.Policy)

	return models.WasteSignal{
		Heuristic: r.ID(),
		Triggered: true,
		Weight:    base + perPoint*(threshold-util),
		Rationale: fmt.Sprintf("CPU utilization %.1f%% is below the %.0f%% threshold", util, threshold),
	}
}
