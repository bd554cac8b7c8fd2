package rules

import (
	"fmt"

	"github.com/AditiSurve17/intelligent-cloud-waste-detector/internal/models"
	"github.com/AditiSurve17/intelligent-cloud-waste-detector/internal/policy"
)

const (
	IdleResourceRuleID = "IDLE_RESOURCE"

	idleDefaultUsageEpsilon = 0.01
	idleDefaultWeight       = 50.0
)

// IdleResourceRule flags resources that keep costing money while reporting
// essentially no usage across the whole observation window.
type IdleResourceRule struct{}

func (r IdleResourceRule) ID() string   { return IdleResourceRuleID }
func (r IdleResourceRule) Name() string { return "Idle Resource" }

func (r IdleResourceRule) Evaluate(ctx RuleContext) models.WasteSignal {
	rec := ctx.Record
	if !rec.Cost.IsPositive() {
		return models.NotTriggered(r.ID())
	}

	eps := policy.GetThreshold(r.ID(), "usage_epsilon", idleDefaultUsageEpsilon, ctx.Policy)
	if rec.UsageQuantity.InexactFloat64() > eps {
		return models.NotTriggered(r.ID())
	}
	for _, h := range ctx.History {
		if h.UsageQuantity.InexactFloat64() > eps {
			return models.NotTriggered(r.ID())
		}
	}

	return models.WasteSignal{
		Heuristic: r.ID(),
		Triggered: true,
		Weight:    policy.GetThreshold(r.ID(), "weight", idleDefaultWeight, ctx.Policy),
		Rationale: fmt.Sprintf("costs $%s with no measurable usage over %d observation(s)", rec.Cost.StringFixed(2), len(ctx.History)+1),
	}
}
