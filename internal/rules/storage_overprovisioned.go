package rules

import (
	"fmt"

	"github.com/AditiSurve17/intelligent-cloud-waste-detector/internal/models"
	"github.com/AditiSurve17/intelligent-cloud-waste-detector/internal/policy"
)

const (
	StorageOverprovisionedRuleID = "STORAGE_OVERPROVISIONED"

	storageDefaultMinCost  = 1.0
	storageDefaultGBPerUSD = 12.5 // ~$0.08/GB-month gp3
	storageDefaultFactor   = 2.0
	storageDefaultWeight   = 30.0
)

// StorageOverprovisionedRule flags EBS volumes and S3 buckets whose billed
// quantity is far larger than their cost would normally buy, which points at
// provisioned-but-unused capacity.
type StorageOverprovisionedRule struct{}

func (r StorageOverprovisionedRule) ID() string   { return StorageOverprovisionedRuleID }
func (r StorageOverprovisionedRule) Name() string { return "Storage Over-provisioning" }

func (r StorageOverprovisionedRule) Evaluate(ctx RuleContext) models.WasteSignal {
	rec := ctx.Record
	if !rec.Service.IsStorage() {
		return models.NotTriggered(r.ID())
	}

	cost := rec.Cost.InexactFloat64()
	minCost := policy.GetThreshold(r.ID(), "min_cost", storageDefaultMinCost, ctx.Policy)
	if cost < minCost {
		return models.NotTriggered(r.ID())
	}

	gbPerUSD := policy.GetThreshold(r.ID(), "gb_per_usd", storageDefaultGBPerUSD, ctx.Policy)
	factor := policy.GetThreshold(r.ID(), "overprovision_factor", storageDefaultFactor, ctx.Policy)
	expected := cost * gbPerUSD
	qty := rec.UsageQuantity.InexactFloat64()
	if qty <= expected*factor {
		return models.NotTriggered(r.ID())
	}

	return models.WasteSignal{
		Heuristic: r.ID(),
		Triggered: true,
		Weight:    policy.GetThreshold(r.ID(), "weight", storageDefaultWeight, ctx.Policy),
		Rationale: fmt.Sprintf("%s usage %.1f is %.1fx what $%.2f typically buys", rec.Service, qty, qty/expected, cost),
	}
}
