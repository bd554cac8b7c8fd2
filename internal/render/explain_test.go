package render

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/AditiSurve17/intelligent-cloud-waste-detector/internal/models"
)

func makeRec(heuristics []string, rationale string) models.WasteRecommendation {
	return models.WasteRecommendation{
		ResourceID:              "i-0abc",
		Service:                 models.ServiceEC2,
		Region:                  "us-east-1",
		InstanceType:            "m5.large",
		CompositeScore:          34,
		Priority:                models.PriorityHigh,
		EstimatedMonthlySavings: decimal.RequireFromString("510"),
		CurrentCost:             decimal.RequireFromString("50"),
		Confidence:              0.8,
		Heuristics:              heuristics,
		Rationale:               rationale,
		Status:                  models.StatusActive,
	}
}

// TestExplain_HappyPath verifies the header lines, sorted heuristic markers
// and one rationale line per heuristic.
func TestExplain_HappyPath(t *testing.T) {
	rec := makeRec(
		[]string{"LOW_COMPUTE_UTILIZATION", "IDLE_RESOURCE"},
		"CPU utilization 3.0% is below 10%; usage stayed near zero",
	)

	var buf bytes.Buffer
	RenderRecommendationExplanation(&buf, rec)
	out := buf.String()

	for _, want := range []string{
		"RECOMMENDATION i-0abc (ec2, us-east-1)",
		"Instance type: m5.large",
		"Priority: High  Score: 34  Confidence: 0.80",
		"Current cost: $50.00  Estimated savings: $510.00/month",
		"Status: Active",
		"Heuristics (2):",
		"  - CPU utilization 3.0% is below 10%",
		"  - usage stayed near zero",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q;\ngot:\n%s", want, out)
		}
	}

	idle := strings.Index(out, "✓ IDLE_RESOURCE")
	low := strings.Index(out, "✓ LOW_COMPUTE_UTILIZATION")
	if idle < 0 || low < 0 || idle > low {
		t.Errorf("heuristics not sorted;\ngot:\n%s", out)
	}
}

func TestExplain_NoRationale(t *testing.T) {
	var buf bytes.Buffer
	RenderRecommendationExplanation(&buf, makeRec(nil, ""))
	out := buf.String()

	if !strings.Contains(out, "Heuristics (0):") {
		t.Errorf("got:\n%s", out)
	}
	if strings.Contains(out, "Rationale:") {
		t.Errorf("empty rationale should be omitted;\ngot:\n%s", out)
	}
}

func TestExplain_DoesNotReorderInput(t *testing.T) {
	rec := makeRec([]string{"Z_RULE", "A_RULE"}, "")
	RenderRecommendationExplanation(&bytes.Buffer{}, rec)
	if rec.Heuristics[0] != "Z_RULE" {
		t.Errorf("input slice was sorted in place: %v", rec.Heuristics)
	}
}

func TestWriteExplainJSON_Found(t *testing.T) {
	rec := makeRec([]string{"LOW_COMPUTE_UTILIZATION"}, "")

	var buf bytes.Buffer
	if err := WriteExplainJSON(&buf, &rec, rec.ResourceID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var got struct {
		Recommendation models.WasteRecommendation `json:"recommendation"`
	}
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if got.Recommendation.ResourceID != "i-0abc" {
		t.Errorf("resource_id = %q", got.Recommendation.ResourceID)
	}
}

func TestWriteExplainJSON_NotFound(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteExplainJSON(&buf, nil, "vol-9"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var got map[string]string
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if got["error"] != "No recommendation found for resource vol-9" {
		t.Errorf("error = %q", got["error"])
	}
}
