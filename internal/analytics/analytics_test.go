package analytics

import (
	"math"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/AditiSurve17/intelligent-cloud-waste-detector/internal/models"
)

var now = time.Date(2024, 3, 8, 6, 0, 0, 0, time.UTC)

func usage(id string, svc models.ServiceType, cost, qty float64, daysAgo int) models.UsageRecord {
	return models.UsageRecord{
		ResourceID:    id,
		Service:       svc,
		Region:        "us-east-1",
		Cost:          decimal.NewFromFloat(cost),
		UsageQuantity: decimal.NewFromFloat(qty),
		Timestamp:     now.AddDate(0, 0, -daysAgo),
	}
}

func approx(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func TestTrendDirection(t *testing.T) {
	tests := []struct {
		name  string
		daily map[string]float64
		want  string
	}{
		{"empty", map[string]float64{}, TrendInsufficientData},
		{"single day", map[string]float64{"2024-03-01": 5}, TrendInsufficientData},
		{"flat", map[string]float64{"2024-03-01": 10, "2024-03-02": 10.5}, TrendStable},
		{"rising", map[string]float64{
			"2024-03-01": 1, "2024-03-02": 1, "2024-03-03": 1,
			"2024-03-04": 2, "2024-03-05": 2, "2024-03-06": 2,
		}, TrendIncreasing},
		{"falling", map[string]float64{
			"2024-03-01": 5, "2024-03-02": 5, "2024-03-03": 5,
			"2024-03-04": 5, "2024-03-05": 1,
		}, TrendDecreasing},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := TrendDirection(tt.daily); got != tt.want {
				t.Errorf("TrendDirection = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestAnalyzeCostTrends(t *testing.T) {
	recs := []models.UsageRecord{
		usage("i-1", models.ServiceEC2, 1, 1, 2),
		usage("vol-1", models.ServiceEBS, 1, 1, 2),
		usage("i-1", models.ServiceEC2, 4, 1, 1),
		usage("i-1", models.ServiceEC2, 100, 1, 20), // outside the window
	}
	got := AnalyzeCostTrends(recs, now.AddDate(0, 0, -7), now)

	if len(got.DailyCosts) != 2 {
		t.Fatalf("DailyCosts = %v", got.DailyCosts)
	}
	if got.DailyCosts["2024-03-06"] != 2 || got.DailyCosts["2024-03-07"] != 4 {
		t.Errorf("DailyCosts = %v", got.DailyCosts)
	}
	if got.ServiceTrends[models.ServiceEBS]["2024-03-06"] != 1 {
		t.Errorf("ServiceTrends = %v", got.ServiceTrends)
	}
	s := got.Statistics
	if s.AverageDailyCost != 3 || s.MaxDailyCost != 4 || s.MinDailyCost != 2 {
		t.Errorf("stats = %+v", s)
	}
	if s.CostVariance != 2 {
		t.Errorf("CostVariance = %v, want 2 (sample variance)", s.CostVariance)
	}
	// With two days the first-three and last-three windows coincide.
	if s.TrendDirection != TrendStable {
		t.Errorf("TrendDirection = %s", s.TrendDirection)
	}
}

func TestAnalyzeServices(t *testing.T) {
	util := 10.0
	ec2a := usage("i-1", models.ServiceEC2, 1, 5, 1)
	ec2a.Utilization = &util
	recs := []models.UsageRecord{
		ec2a,
		usage("i-2", models.ServiceEC2, 2, 5, 1),
		usage("bucket", models.ServiceS3, 0.2, 100, 1),
	}
	got := AnalyzeServices(recs)

	ec2 := got.Services[models.ServiceEC2]
	if ec2.TotalCost != 3 || ec2.RecordCount != 2 || ec2.AverageUsagePerRecord != 5 {
		t.Errorf("ec2 stats = %+v", ec2)
	}
	if ec2.AverageUtilization == nil || *ec2.AverageUtilization != 10 || ec2.UtilizationObservations != 1 {
		t.Errorf("ec2 utilization = %v (%d)", ec2.AverageUtilization, ec2.UtilizationObservations)
	}
	if !approx(ec2.CostEfficiency, 10.0/3.0) {
		t.Errorf("CostEfficiency = %v", ec2.CostEfficiency)
	}
	if got.Services[models.ServiceS3].AverageUtilization != nil {
		t.Error("s3 has no utilization observations")
	}

	if len(got.TopCostServices) != 1 || got.TopCostServices[0].Service != models.ServiceEC2 {
		t.Errorf("TopCostServices = %+v", got.TopCostServices)
	}
	if len(got.UnderutilizedServices) != 1 || got.UnderutilizedServices[0].Service != models.ServiceEC2 {
		t.Errorf("UnderutilizedServices = %+v", got.UnderutilizedServices)
	}
}

func TestDetectSpikes(t *testing.T) {
	var recs []models.UsageRecord
	add := func(id string, costs ...float64) {
		for i, c := range costs {
			recs = append(recs, usage(id, models.ServiceEC2, c, 1, i))
		}
	}
	add("medium", 1, 1, 1, 10)                 // mean 3.25, peak > 3x, < 5x
	add("high", 1, 1, 1, 1, 1, 1, 1, 1, 1, 20) // mean 2.9, peak > 5x
	add("cheap", 0.02, 0.02, 0.02, 0.3)        // mean below 0.1
	add("steady", 2, 2, 2, 2)                  // no spike
	add("single", 50)                          // one record

	got := DetectSpikes(recs, now)
	if got.TotalAnomalies != 2 || got.HighSeverity != 1 || got.MediumSeverity != 1 {
		t.Fatalf("summary = %+v", got)
	}
	if got.Anomalies[0].ResourceID != "high" || got.Anomalies[0].Severity != SeverityHigh {
		t.Errorf("first anomaly = %+v", got.Anomalies[0])
	}
	if got.Anomalies[1].ResourceID != "medium" || got.Anomalies[1].SpikeCost != 10 {
		t.Errorf("second anomaly = %+v", got.Anomalies[1])
	}
}

func TestAnalyzeEffectiveness(t *testing.T) {
	recs := []models.WasteRecommendation{
		{ResourceID: "a", Priority: models.PriorityHigh, Status: models.StatusActive, EstimatedMonthlySavings: decimal.RequireFromString("40"), Confidence: 8},
		{ResourceID: "b", Priority: models.PriorityLow, Status: models.StatusTerminated, EstimatedMonthlySavings: decimal.RequireFromString("0.5"), Confidence: 2},
		{ResourceID: "c", Priority: models.PriorityMedium, Status: models.StatusActive, EstimatedMonthlySavings: decimal.RequireFromString("60"), Confidence: 0},
	}
	got := AnalyzeEffectiveness(recs)

	if got.TotalRecommendations != 3 {
		t.Errorf("Total = %d", got.TotalRecommendations)
	}
	if got.ByPriority[models.PriorityHigh] != 1 || got.ByPriority[models.PriorityMedium] != 1 || got.ByPriority[models.PriorityLow] != 1 {
		t.Errorf("ByPriority = %v", got.ByPriority)
	}
	if got.ByStatus[models.StatusActive] != 2 || got.ByStatus[models.StatusTerminated] != 1 {
		t.Errorf("ByStatus = %v", got.ByStatus)
	}
	if got.TotalPotentialSavings != 100.5 {
		t.Errorf("TotalPotentialSavings = %v", got.TotalPotentialSavings)
	}
	if got.AverageConfidence != 5 {
		t.Errorf("AverageConfidence = %v, want 5 (zero confidences ignored)", got.AverageConfidence)
	}
	if len(got.TopRecommendations) != 2 || got.TopRecommendations[0].ResourceID != "c" {
		t.Errorf("TopRecommendations = %+v", got.TopRecommendations)
	}
}

func TestSummarize(t *testing.T) {
	recs := []models.UsageRecord{
		usage("i-1", models.ServiceEC2, 7, 10, 1),
		usage("vol-1", models.ServiceEBS, 7, 4, 2),
		usage("i-old", models.ServiceEC2, 99, 1, 30),
	}
	active := []models.WasteRecommendation{
		{Priority: models.PriorityHigh, EstimatedMonthlySavings: decimal.RequireFromString("12.50")},
		{Priority: models.PriorityLow, EstimatedMonthlySavings: decimal.RequireFromString("1.50")},
	}
	got := Summarize(recs, active, now.AddDate(0, 0, -7), now)

	if got.Period.DaysAnalyzed != 7 || got.Period.StartDate != "2024-03-01" || got.Period.EndDate != "2024-03-08" {
		t.Errorf("Period = %+v", got.Period)
	}
	if got.CostMetrics.TotalCost != 14 || got.CostMetrics.AverageDailyCost != 2 || got.CostMetrics.TotalUsageUnits != 14 {
		t.Errorf("CostMetrics = %+v", got.CostMetrics)
	}
	if got.ResourceMetrics.UniqueResources != 2 || got.ResourceMetrics.UniqueServices != 2 || got.ResourceMetrics.AverageCostPerResource != 7 {
		t.Errorf("ResourceMetrics = %+v", got.ResourceMetrics)
	}
	if got.Recommendations.ActiveCount != 2 || got.Recommendations.TotalPotentialSavings != 14 || got.Recommendations.HighPriorityCount != 1 {
		t.Errorf("Recommendations = %+v", got.Recommendations)
	}
}

func TestPrepareFeatures(t *testing.T) {
	older := usage("i-1", models.ServiceEC2, 1, 2, 2)
	latest := usage("i-1", models.ServiceEC2, 2, 2, 1)
	latest.InstanceType = "t3.large"
	recs := []models.UsageRecord{latest, older, usage("b", models.ServiceS3, 0.1, 50, 1)}

	got := PrepareFeatures(recs)
	if len(got) != 2 || got[0].ResourceID != "b" {
		t.Fatalf("features = %+v", got)
	}
	f := got[1]
	if f.TotalCost != 3 || f.AverageCost != 1.5 || f.UsageFrequency != 2 || f.DaysActive != 2 {
		t.Errorf("i-1 features = %+v", f)
	}
	if f.InstanceType != "t3.large" || !f.LastSeen.Equal(latest.Timestamp) {
		t.Errorf("descriptive fields not taken from latest record: %+v", f)
	}
	if f.IsHighCost != 1 || f.IsLowUtilization != 1 || f.CostCategory != "high" {
		t.Errorf("flags = %d/%d/%s", f.IsHighCost, f.IsLowUtilization, f.CostCategory)
	}
	if f.CostPerUsageUnit != 0.75 {
		t.Errorf("CostPerUsageUnit = %v", f.CostPerUsageUnit)
	}
}
