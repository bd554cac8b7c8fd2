package rules

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/AditiSurve17/intelligent-cloud-waste-detector/internal/models"
	"github.com/AditiSurve17/intelligent-cloud-waste-detector/internal/policy"
)

const (
	InstanceSizeMismatchRuleID = "INSTANCE_SIZE_MISMATCH"

	sizeMismatchDefaultFraction = 0.5
	sizeMismatchDefaultWeight   = 20.0
)

// tierTypicalLoad is the average CPU percentage a workload sized to each
// capacity tier is expected to sustain.
var tierTypicalLoad = map[string]float64{
	"nano":   10,
	"micro":  15,
	"small":  20,
	"medium": 25,
	"large":  30,
	"xlarge": 40,
	"metal":  60,
}

// TypicalLoad returns the expected CPU percentage for instanceType, e.g.
// "m5.2xlarge" or "db.r5.large". ok is false for unknown sizes.
func TypicalLoad(instanceType string) (load float64, ok bool) {
	if instanceType == "" {
		return 0, false
	}
	size := instanceType[strings.LastIndex(instanceType, ".")+1:]
	if v, ok := tierTypicalLoad[size]; ok {
		return v, true
	}
	// 2xlarge, 4xlarge, ... 48xlarge
	if n, found := strings.CutSuffix(size, "xlarge"); found {
		if _, err := strconv.Atoi(n); err == nil {
			return 50, true
		}
	}
	return 0, false
}

// InstanceSizeMismatchRule flags EC2 and RDS instances whose utilisation stays
// well below what their capacity tier is meant to carry.
type InstanceSizeMismatchRule struct{}

func (r InstanceSizeMismatchRule) ID() string   { return InstanceSizeMismatchRuleID }
func (r InstanceSizeMismatchRule) Name() string { return "Instance Size Mismatch" }

func (r InstanceSizeMismatchRule) Evaluate(ctx RuleContext) models.WasteSignal {
	rec := ctx.Record
	if !rec.Service.IsCompute() {
		return models.NotTriggered(r.ID())
	}
	util, ok := rec.UtilizationValue()
	if !ok {
		return models.NotTriggered(r.ID())
	}
	typical, ok := TypicalLoad(rec.InstanceType)
	if !ok {
		return models.NotTriggered(r.ID())
	}

	fraction := policy.GetThreshold(r.ID(), "mismatch_fraction", sizeMismatchDefaultFraction, ctx.Policy)
	limit := typical * fraction
	if util >= limit {
		return models.NotTriggered(r.ID())
	}
	// Persistent: no earlier known reading may reach the limit either.
	for _, h := range ctx.History {
		if u, ok := h.UtilizationValue(); ok && u >= limit {
			return models.NotTriggered(r.ID())
		}
	}

	return models.WasteSignal{
		Heuristic: r.ID(),
		Triggered: true,
		Weight:    policy.GetThreshold(r.ID(), "weight", sizeMismatchDefaultWeight, ctx.Policy),
		Rationale: fmt.Sprintf("%s averages %.1f%% CPU, under %.0f%% of the %.0f%% its tier is sized for",
			rec.InstanceType, util, fraction*100, typical),
	}
}
