package rules

import (
	"fmt"

	"github.com/AditiSurve17/intelligent-cloud-waste-detector/internal/models"
	"github.com/AditiSurve17/intelligent-cloud-waste-detector/internal/policy"
)

const (
	RegionalInefficiencyRuleID = "REGIONAL_INEFFICIENCY"

	regionalDefaultWeight = 10.0
)

// RegionalPriceIndex is the built-in relative on-demand price of common
// regions (us-east-1 = 1.0). Policy regional_price_index entries override it.
var RegionalPriceIndex = map[string]float64{
	"us-east-1":      1.00,
	"us-east-2":      1.00,
	"us-west-1":      1.12,
	"us-west-2":      1.00,
	"ca-central-1":   1.08,
	"eu-west-1":      1.08,
	"eu-west-2":      1.12,
	"eu-central-1":   1.15,
	"ap-south-1":     1.05,
	"ap-southeast-1": 1.18,
	"ap-southeast-2": 1.20,
	"ap-northeast-1": 1.23,
	"sa-east-1":      1.55,
}

// RegionalInefficiencyRule flags resources running outside the primary
// region when the primary region offers the same capacity for less.
type RegionalInefficiencyRule struct{}

func (r RegionalInefficiencyRule) ID() string   { return RegionalInefficiencyRuleID }
func (r RegionalInefficiencyRule) Name() string { return "Regional Inefficiency" }

func (r RegionalInefficiencyRule) Evaluate(ctx RuleContext) models.WasteSignal {
	region := ctx.Record.Region
	if region == "" || ctx.PrimaryRegion == "" || region == ctx.PrimaryRegion {
		return models.NotTriggered(r.ID())
	}

	here, ok := policy.PriceMultiplier(region, RegionalPriceIndex, ctx.Policy)
	if !ok {
		return models.NotTriggered(r.ID())
	}
	home, ok := policy.PriceMultiplier(ctx.PrimaryRegion, RegionalPriceIndex, ctx.Policy)
	if !ok || home >= here {
		return models.NotTriggered(r.ID())
	}

	return models.WasteSignal{
		Heuristic: r.ID(),
		Triggered: true,
		Weight:    policy.GetThreshold(r.ID(), "weight", regionalDefaultWeight, ctx.Policy),
		Rationale: fmt.Sprintf("runs in %s, about %.0f%% pricier than primary region %s", region, (here/home-1)*100, ctx.PrimaryRegion),
	}
}
