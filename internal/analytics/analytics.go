// Package analytics derives cost trends, per-service statistics, cost
// spikes and recommendation effectiveness from stored usage history.
// Every function here is pure; Runner does the I/O.
package analytics

import (
	"math"
	"slices"
	"sort"
	"time"

	"github.com/AditiSurve17/intelligent-cloud-waste-detector/internal/models"
)

const dayLayout = "2006-01-02"

// Trend directions.
const (
	TrendIncreasing       = "increasing"
	TrendDecreasing       = "decreasing"
	TrendStable           = "stable"
	TrendInsufficientData = "insufficient_data"
)

// TrendStats summarises daily totals.
type TrendStats struct {
	AverageDailyCost  float64 `json:"average_daily_cost"`
	MaxDailyCost      float64 `json:"max_daily_cost"`
	MinDailyCost      float64 `json:"min_daily_cost"`
	CostVariance      float64 `json:"cost_variance"`
	TotalDaysAnalyzed int     `json:"total_days_analyzed"`
	TrendDirection    string  `json:"trend_direction"`
}

// CostTrends holds total cost per day and per service per day.
type CostTrends struct {
	DailyCosts    map[string]float64                        `json:"daily_costs"`
	ServiceTrends map[models.ServiceType]map[string]float64 `json:"service_trends"`
	Statistics    TrendStats                                `json:"statistics"`
}

// AnalyzeCostTrends totals cost by UTC day for records in [from, to].
func AnalyzeCostTrends(recs []models.UsageRecord, from, to time.Time) CostTrends {
	t := CostTrends{
		DailyCosts:    make(map[string]float64),
		ServiceTrends: make(map[models.ServiceType]map[string]float64),
	}
	for _, r := range recs {
		if r.Timestamp.Before(from) || r.Timestamp.After(to) {
			continue
		}
		day := r.Timestamp.UTC().Format(dayLayout)
		cost := r.Cost.InexactFloat64()
		t.DailyCosts[day] += cost
		if t.ServiceTrends[r.Service] == nil {
			t.ServiceTrends[r.Service] = make(map[string]float64)
		}
		t.ServiceTrends[r.Service][day] += cost
	}

	values := make([]float64, 0, len(t.DailyCosts))
	for _, v := range t.DailyCosts {
		values = append(values, v)
	}
	t.Statistics = TrendStats{
		AverageDailyCost:  mean(values),
		CostVariance:      sampleVariance(values),
		TotalDaysAnalyzed: len(values),
		TrendDirection:    TrendDirection(t.DailyCosts),
	}
	if len(values) > 0 {
		t.Statistics.MaxDailyCost = slices.Max(values)
		t.Statistics.MinDailyCost = slices.Min(values)
	}
	return t
}

// TrendDirection compares the mean of the last three days with the mean of
// the first three. A change beyond 10% either way is a trend.
func TrendDirection(daily map[string]float64) string {
	if len(daily) < 2 {
		return TrendInsufficientData
	}
	days := make([]string, 0, len(daily))
	for d := range daily {
		days = append(days, d)
	}
	sort.Strings(days)

	n := min(3, len(days))
	var earlier, recent []float64
	for _, d := range days[:n] {
		earlier = append(earlier, daily[d])
	}
	for _, d := range days[len(days)-n:] {
		recent = append(recent, daily[d])
	}

	recentAvg, earlierAvg := mean(recent), mean(earlier)
	switch {
	case recentAvg > earlierAvg*1.1:
		return TrendIncreasing
	case recentAvg < earlierAvg*0.9:
		return TrendDecreasing
	}
	return TrendStable
}

// ServiceStats describes one service across all of its records.
type ServiceStats struct {
	TotalCost               float64  `json:"total_cost"`
	AverageCostPerRecord    float64  `json:"average_cost_per_resource"`
	TotalUsage              float64  `json:"total_usage"`
	AverageUsagePerRecord   float64  `json:"average_usage_per_resource"`
	RecordCount             int      `json:"resource_count"`
	CostEfficiency          float64  `json:"cost_efficiency"`
	CostVariance            float64  `json:"cost_variance"`
	AverageUtilization      *float64 `json:"average_utilization,omitempty"`
	UtilizationObservations int      `json:"utilization_observations"`
}

// ServiceCost pairs a service with a cost figure.
type ServiceCost struct {
	Service  models.ServiceType `json:"service"`
	Cost     float64            `json:"cost"`
	AvgUsage float64            `json:"avg_usage,omitempty"`
}

// ServiceAnalysis is the per-service breakdown.
type ServiceAnalysis struct {
	Services              map[models.ServiceType]ServiceStats `json:"services"`
	TopCostServices       []ServiceCost                       `json:"top_cost_services"`
	UnderutilizedServices []ServiceCost                       `json:"underutilized_services"`
}

const (
	topCostMin          = 1.0
	underutilizedUsage  = 10.0
	underutilizedMinUSD = 0.5
)

// AnalyzeServices aggregates cost, usage and utilization per service.
// Services costing more than 1 USD are listed as top cost, most expensive
// first; services averaging under 10 usage units per record while costing
// more than 0.5 USD are listed as underutilized.
func AnalyzeServices(recs []models.UsageRecord) ServiceAnalysis {
	type acc struct {
		costs []float64
		usage float64
		utils []float64
	}
	by := make(map[models.ServiceType]*acc)
	for _, r := range recs {
		a := by[r.Service]
		if a == nil {
			a = &acc{}
			by[r.Service] = a
		}
		a.costs = append(a.costs, r.Cost.InexactFloat64())
		a.usage += r.UsageQuantity.InexactFloat64()
		if u, ok := r.UtilizationValue(); ok {
			a.utils = append(a.utils, u)
		}
	}

	out := ServiceAnalysis{
		Services:              make(map[models.ServiceType]ServiceStats, len(by)),
		TopCostServices:       []ServiceCost{},
		UnderutilizedServices: []ServiceCost{},
	}
	for svc, a := range by {
		total := sum(a.costs)
		n := len(a.costs)
		s := ServiceStats{
			TotalCost:               total,
			AverageCostPerRecord:    total / float64(n),
			TotalUsage:              a.usage,
			AverageUsagePerRecord:   a.usage / float64(n),
			RecordCount:             n,
			CostVariance:            sampleVariance(a.costs),
			UtilizationObservations: len(a.utils),
		}
		if total > 0 {
			s.CostEfficiency = a.usage / total
		}
		if len(a.utils) > 0 {
			avg := mean(a.utils)
			s.AverageUtilization = &avg
		}
		out.Services[svc] = s

		if total > topCostMin {
			out.TopCostServices = append(out.TopCostServices, ServiceCost{Service: svc, Cost: total})
		}
		if s.AverageUsagePerRecord < underutilizedUsage && total > underutilizedMinUSD {
			out.UnderutilizedServices = append(out.UnderutilizedServices, ServiceCost{Service: svc, Cost: total, AvgUsage: s.AverageUsagePerRecord})
		}
	}
	sortServiceCosts(out.TopCostServices)
	sortServiceCosts(out.UnderutilizedServices)
	return out
}

func sortServiceCosts(s []ServiceCost) {
	sort.Slice(s, func(i, j int) bool {
		if s[i].Cost != s[j].Cost {
			return s[i].Cost > s[j].Cost
		}
		return s[i].Service < s[j].Service
	})
}

// Severity of a cost spike.
const (
	SeverityHigh   = "High"
	SeverityMedium = "Medium"
)

// Spike is a resource whose peak cost far exceeds its mean.
type Spike struct {
	Type        string  `json:"type"`
	ResourceID  string  `json:"resource_id"`
	AverageCost float64 `json:"average_cost"`
	SpikeCost   float64 `json:"spike_cost"`
	Severity    string  `json:"severity"`
}

// SpikeSummary lists detected spikes with severity counts.
type SpikeSummary struct {
	Anomalies      []Spike   `json:"anomalies"`
	TotalAnomalies int       `json:"total_anomalies"`
	HighSeverity   int       `json:"high_severity"`
	MediumSeverity int       `json:"medium_severity"`
	DetectedAt     time.Time `json:"detected_at"`
}

// DetectSpikes flags resources with at least two records whose maximum
// cost is more than 3x their mean cost, ignoring means of 0.1 USD or less.
// Above 5x the spike is High severity.
func DetectSpikes(recs []models.UsageRecord, now time.Time) SpikeSummary {
	costs := make(map[string][]float64)
	for _, r := range recs {
		costs[r.ResourceID] = append(costs[r.ResourceID], r.Cost.InexactFloat64())
	}
	ids := make([]string, 0, len(costs))
	for id := range costs {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	out := SpikeSummary{Anomalies: []Spike{}, DetectedAt: now.UTC()}
	for _, id := range ids {
		c := costs[id]
		if len(c) < 2 {
			continue
		}
		avg, peak := mean(c), slices.Max(c)
		if peak <= avg*3 || avg <= 0.1 {
			continue
		}
		s := Spike{Type: "cost_spike", ResourceID: id, AverageCost: avg, SpikeCost: peak, Severity: SeverityMedium}
		if peak > avg*5 {
			s.Severity = SeverityHigh
			out.HighSeverity++
		} else {
			out.MediumSeverity++
		}
		out.Anomalies = append(out.Anomalies, s)
	}
	out.TotalAnomalies = len(out.Anomalies)
	return out
}

// TopRecommendation is a recommendation worth more than 1 USD a month.
type TopRecommendation struct {
	RecommendationID string             `json:"recommendation_id"`
	ResourceID       string             `json:"resource_id"`
	Service          models.ServiceType `json:"service_type"`
	EstimatedSavings float64            `json:"estimated_savings"`
	Priority         models.Priority    `json:"priority"`
	Confidence       float64            `json:"confidence_score"`
}

// Effectiveness summarises every stored recommendation.
type Effectiveness struct {
	TotalRecommendations  int                     `json:"total_recommendations"`
	ByPriority            map[models.Priority]int `json:"by_priority"`
	ByStatus              map[models.Status]int   `json:"by_status"`
	TotalPotentialSavings float64                 `json:"total_potential_savings"`
	AverageConfidence     float64                 `json:"average_confidence"`
	TopRecommendations    []TopRecommendation     `json:"top_recommendations"`
}

// AnalyzeEffectiveness counts recommendations by priority and status, sums
// their savings and averages the positive confidence scores.
func AnalyzeEffectiveness(recs []models.WasteRecommendation) Effectiveness {
	e := Effectiveness{
		TotalRecommendations: len(recs),
		ByPriority: map[models.Priority]int{
			models.PriorityHigh:   0,
			models.PriorityMedium: 0,
			models.PriorityLow:    0,
		},
		ByStatus:           make(map[models.Status]int),
		TopRecommendations: []TopRecommendation{},
	}

	var confidences []float64
	for _, r := range recs {
		if _, ok := e.ByPriority[r.Priority]; ok {
			e.ByPriority[r.Priority]++
		}
		status := r.Status
		if status == "" {
			status = models.StatusActive
		}
		e.ByStatus[status]++

		savings := r.EstimatedMonthlySavings.InexactFloat64()
		e.TotalPotentialSavings += savings
		if r.Confidence > 0 {
			confidences = append(confidences, r.Confidence)
		}
		if savings > 1.0 {
			e.TopRecommendations = append(e.TopRecommendations, TopRecommendation{
				RecommendationID: r.RecommendationID,
				ResourceID:       r.ResourceID,
				Service:          r.Service,
				EstimatedSavings: savings,
				Priority:         r.Priority,
				Confidence:       r.Confidence,
			})
		}
	}
	e.AverageConfidence = mean(confidences)
	sort.Slice(e.TopRecommendations, func(i, j int) bool {
		a, b := e.TopRecommendations[i], e.TopRecommendations[j]
		if a.EstimatedSavings != b.EstimatedSavings {
			return a.EstimatedSavings > b.EstimatedSavings
		}
		return a.ResourceID < b.ResourceID
	})
	return e
}

// WeeklySummary covers one reporting window.
type WeeklySummary struct {
	Period struct {
		StartDate    string `json:"start_date"`
		EndDate      string `json:"end_date"`
		DaysAnalyzed int    `json:"days_analyzed"`
	} `json:"period"`
	CostMetrics struct {
		TotalCost        float64 `json:"total_cost"`
		AverageDailyCost float64 `json:"average_daily_cost"`
		TotalUsageUnits  float64 `json:"total_usage_units"`
	} `json:"cost_metrics"`
	ResourceMetrics struct {
		UniqueResources        int     `json:"unique_resources"`
		UniqueServices         int     `json:"unique_services"`
		AverageCostPerResource float64 `json:"average_cost_per_resource"`
	} `json:"resource_metrics"`
	Recommendations struct {
		ActiveCount           int     `json:"active_count"`
		TotalPotentialSavings float64 `json:"total_potential_savings"`
		HighPriorityCount     int     `json:"high_priority_count"`
	} `json:"recommendations"`
}

// Summarize builds the summary for usage in [from, to] and the currently
// active recommendations.
func Summarize(usage []models.UsageRecord, active []models.WasteRecommendation, from, to time.Time) WeeklySummary {
	var w WeeklySummary
	days := int(math.Round(to.Sub(from).Hours() / 24))
	if days < 1 {
		days = 1
	}
	w.Period.StartDate = from.UTC().Format(dayLayout)
	w.Period.EndDate = to.UTC().Format(dayLayout)
	w.Period.DaysAnalyzed = days

	resources := make(map[string]bool)
	services := make(map[models.ServiceType]bool)
	for _, r := range usage {
		if r.Timestamp.Before(from) || r.Timestamp.After(to) {
			continue
		}
		w.CostMetrics.TotalCost += r.Cost.InexactFloat64()
		w.CostMetrics.TotalUsageUnits += r.UsageQuantity.InexactFloat64()
		resources[r.ResourceID] = true
		services[r.Service] = true
	}
	w.CostMetrics.AverageDailyCost = w.CostMetrics.TotalCost / float64(days)
	w.ResourceMetrics.UniqueResources = len(resources)
	w.ResourceMetrics.UniqueServices = len(services)
	if len(resources) > 0 {
		w.ResourceMetrics.AverageCostPerResource = w.CostMetrics.TotalCost / float64(len(resources))
	}

	s := models.Summarize(active)
	w.Recommendations.ActiveCount = s.Total
	w.Recommendations.TotalPotentialSavings = s.TotalEstimatedMonthlySavings.InexactFloat64()
	w.Recommendations.HighPriorityCount = s.High
	return w
}

// ResourceFeatures is one per-resource feature vector for offline model
// training.
type ResourceFeatures struct {
	ResourceID       string             `json:"resource_id"`
	Service          models.ServiceType `json:"service_type"`
	InstanceType     string             `json:"instance_type"`
	AvailabilityZone string             `json:"availability_zone"`
	Region           string             `json:"region"`
	TotalCost        float64            `json:"total_cost"`
	AverageCost      float64            `json:"average_cost"`
	TotalUsage       float64            `json:"total_usage"`
	AverageUsage     float64            `json:"average_usage"`
	UsageFrequency   int                `json:"usage_frequency"`
	CostPerUsageUnit float64            `json:"cost_per_usage_unit"`
	DaysActive       int                `json:"days_active"`
	LastSeen         time.Time          `json:"last_seen"`
	IsHighCost       int                `json:"is_high_cost"`
	IsLowUtilization int                `json:"is_low_utilization"`
	CostCategory     string             `json:"cost_category"`
}

// PrepareFeatures builds one feature vector per resource, sorted by
// resource ID. Descriptive fields come from the latest record.
func PrepareFeatures(recs []models.UsageRecord) []ResourceFeatures {
	by := make(map[string][]models.UsageRecord)
	for _, r := range recs {
		by[r.ResourceID] = append(by[r.ResourceID], r)
	}
	ids := make([]string, 0, len(by))
	for id := range by {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	out := make([]ResourceFeatures, 0, len(ids))
	for _, id := range ids {
		group := by[id]
		latest := group[0]
		var cost, usage float64
		days := make(map[string]bool)
		for _, r := range group {
			cost += r.Cost.InexactFloat64()
			usage += r.UsageQuantity.InexactFloat64()
			days[r.Timestamp.UTC().Format(dayLayout)] = true
			if r.Timestamp.After(latest.Timestamp) {
				latest = r
			}
		}
		n := float64(len(group))
		f := ResourceFeatures{
			ResourceID:       id,
			Service:          latest.Service,
			InstanceType:     latest.InstanceType,
			AvailabilityZone: latest.AvailabilityZone,
			Region:           latest.Region,
			TotalCost:        cost,
			AverageCost:      cost / n,
			TotalUsage:       usage,
			AverageUsage:     usage / n,
			UsageFrequency:   len(group),
			DaysActive:       len(days),
			LastSeen:         latest.Timestamp,
			CostCategory:     "low",
		}
		if usage > 0 {
			f.CostPerUsageUnit = cost / usage
		}
		if cost > 1.0 {
			f.IsHighCost = 1
		}
		if f.AverageUsage < underutilizedUsage {
			f.IsLowUtilization = 1
		}
		switch {
		case cost > 2.0:
			f.CostCategory = "high"
		case cost > 0.5:
			f.CostCategory = "medium"
		}
		out = append(out, f)
	}
	return out
}

func sum(v []float64) float64 {
	var s float64
	for _, x := range v {
		s += x
	}
	return s
}

func mean(v []float64) float64 {
	if len(v) == 0 {
		return 0
	}
	return sum(v) / float64(len(v))
}

// sampleVariance uses the n-1 denominator; fewer than two values give 0.
func sampleVariance(v []float64) float64 {
	if len(v) < 2 {
		return 0
	}
	m := mean(v)
	var ss float64
	for _, x := range v {
		ss += (x - m) * (x - m)
	}
	return ss / float64(len(v)-1)
}
