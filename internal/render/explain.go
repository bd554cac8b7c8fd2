// Package render provides presentation helpers for explaining a single
// recommendation. It does no scoring and makes no AWS calls.
package render

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/AditiSurve17/intelligent-cloud-waste-detector/internal/models"
)

// RenderRecommendationExplanation writes a structured breakdown of rec to w.
// Heuristics are sorted for stable output and the joined rationale is split
// back into one line per triggered heuristic.
//
// Example output:
//
//	RECOMMENDATION i-0abc (ec2, us-east-1)
//	Priority: High  Score: 34  Confidence: 0.80
//	Current cost: $50.00  Estimated savings: $510.00/month
//	Status: Active
//
//	Heuristics (1):
//	  ✓ LOW_COMPUTE_UTILIZATION
//
//	Rationale:
//	  - CPU utilization 3.0% is below 10%
func RenderRecommendationExplanation(w io.Writer, rec models.WasteRecommendation) {
	fmt.Fprintf(w, "RECOMMENDATION %s (%s, %s)\n", rec.ResourceID, rec.Service, rec.Region)
	if rec.InstanceType != "" {
		fmt.Fprintf(w, "Instance type: %s\n", rec.InstanceType)
	}
	fmt.Fprintf(w, "Priority: %s  Score: %g  Confidence: %.2f\n", rec.Priority, rec.CompositeScore, rec.Confidence)
	fmt.Fprintf(w, "Current cost: $%s  Estimated savings: $%s/month\n",
		rec.CurrentCost.StringFixed(2), rec.EstimatedMonthlySavings.StringFixed(2))
	fmt.Fprintf(w, "Status: %s\n", rec.Status)
	fmt.Fprintln(w)

	heuristics := append([]string(nil), rec.Heuristics...)
	sort.Strings(heuristics)
	fmt.Fprintf(w, "Heuristics (%d):\n", len(heuristics))
	for _, h := range heuristics {
		fmt.Fprintf(w, "  ✓ %s\n", h)
	}

	if rec.Rationale == "" {
		return
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Rationale:")
	for _, part := range strings.Split(rec.Rationale, "; ") {
		if part = strings.TrimSpace(part); part != "" {
			fmt.Fprintf(w, "  - %s\n", part)
		}
	}
}

// WriteExplainJSON writes the explanation as indented JSON to w.
//
// When rec is non-nil, the output is:
//
//	{"recommendation": { ...fields... }}
//
// When rec is nil (nothing stored for the resource), the output is:
//
//	{"error": "No recommendation found for resource <id>"}
func WriteExplainJSON(w io.Writer, rec *models.WasteRecommendation, resourceID string) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")

	if rec == nil {
		return enc.Encode(map[string]string{
			"error": fmt.Sprintf("No recommendation found for resource %s", resourceID),
		})
	}
	return enc.Encode(map[string]any{
		"recommendation": rec,
	})
}
