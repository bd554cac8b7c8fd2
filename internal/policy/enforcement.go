package policy

import (
	"github.com/AditiSurve17/intelligent-cloud-waste-detector/internal/models"
)

// ShouldFail reports whether any recommendation has a priority at or above
// the configured enforcement.fail_on_priority.
//
// It returns false when cfg is nil, when no threshold is configured, when the
// threshold is not a recognised priority, or when recs is empty.
func ShouldFail(recs []models.WasteRecommendation, cfg *PolicyConfig) bool {
	if cfg == nil || cfg.Enforcement.FailOnPriority == "" {
		return false
	}
	threshold, ok := models.PriorityRank[canonicalPriority(cfg.Enforcement.FailOnPriority)]
	if !ok {
		return false
	}
	for _, r := range recs {
		if rank, ok := models.PriorityRank[r.Priority]; ok && rank <= threshold {
			return true
		}
	}
	return false
}
