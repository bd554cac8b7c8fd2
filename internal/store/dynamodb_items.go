package store

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/AditiSurve17/intelligent-cloud-waste-detector/internal/models"
)

// Item shapes stored in DynamoDB. Money is kept as decimal strings so no
// precision is lost through the Number type; timestamps are RFC 3339 UTC.

type recommendationItem struct {
	ResourceID              string   `dynamodbav:"resource_id"`
	RecommendationID        string   `dynamodbav:"recommendation_id"`
	ServiceType             string   `dynamodbav:"service_type"`
	Region                  string   `dynamodbav:"region,omitempty"`
	InstanceType            string   `dynamodbav:"instance_type,omitempty"`
	WastageScore            float64  `dynamodbav:"wastage_score"`
	Priority                string   `dynamodbav:"priority"`
	EstimatedMonthlySavings string   `dynamodbav:"estimated_monthly_savings"`
	CurrentCost             string   `dynamodbav:"current_cost"`
	ConfidenceScore         float64  `dynamodbav:"confidence_score"`
	Heuristics              []string `dynamodbav:"heuristics"`
	Rationale               string   `dynamodbav:"rationale,omitempty"`
	Status                  string   `dynamodbav:"status"`
	CreatedAt               string   `dynamodbav:"created_at"`
	UpdatedAt               string   `dynamodbav:"updated_at"`
}

func toRecItem(r models.WasteRecommendation) recommendationItem {
	return recommendationItem{
		ResourceID:              r.ResourceID,
		RecommendationID:        r.RecommendationID,
		ServiceType:             string(r.Service),
		Region:                  r.Region,
		InstanceType:            r.InstanceType,
		WastageScore:            r.CompositeScore,
		Priority:                string(r.Priority),
		EstimatedMonthlySavings: r.EstimatedMonthlySavings.String(),
		CurrentCost:             r.CurrentCost.String(),
		ConfidenceScore:         r.Confidence,
		Heuristics:              append([]string{}, r.Heuristics...),
		Rationale:               r.Rationale,
		Status:                  string(r.Status),
		CreatedAt:               formatTS(r.CreatedAt),
		UpdatedAt:               formatTS(r.UpdatedAt),
	}
}

func (ri recommendationItem) toModel() (models.WasteRecommendation, error) {
	savings, err := decimal.NewFromString(ri.EstimatedMonthlySavings)
	if err != nil {
		return models.WasteRecommendation{}, fmt.Errorf("parsing savings for %q: %w", ri.ResourceID, err)
	}
	cost, err := decimal.NewFromString(ri.CurrentCost)
	if err != nil {
		return models.WasteRecommendation{}, fmt.Errorf("parsing current cost for %q: %w", ri.ResourceID, err)
	}
	created, err := parseTS(ri.CreatedAt)
	if err != nil {
		return models.WasteRecommendation{}, err
	}
	updated, err := parseTS(ri.UpdatedAt)
	if err != nil {
		return models.WasteRecommendation{}, err
	}
	return models.WasteRecommendation{
		RecommendationID:        ri.RecommendationID,
		ResourceID:              ri.ResourceID,
		Service:                 models.ServiceType(ri.ServiceType),
		Region:                  ri.Region,
		InstanceType:            ri.InstanceType,
		CompositeScore:          ri.WastageScore,
		Priority:                models.Priority(ri.Priority),
		EstimatedMonthlySavings: savings,
		CurrentCost:             cost,
		Confidence:              ri.ConfidenceScore,
		Heuristics:              ri.Heuristics,
		Rationale:               ri.Rationale,
		Status:                  models.Status(ri.Status),
		CreatedAt:               created,
		UpdatedAt:               updated,
	}, nil
}

type usageItem struct {
	ResourceID       string   `dynamodbav:"resource_id"`
	RecordKey        string   `dynamodbav:"record_key"`
	Timestamp        string   `dynamodbav:"timestamp"`
	ServiceType      string   `dynamodbav:"service_type"`
	Region           string   `dynamodbav:"region,omitempty"`
	UnblendedCost    string   `dynamodbav:"unblended_cost"`
	UsageAmount      string   `dynamodbav:"usage_amount"`
	Utilization      *float64 `dynamodbav:"utilization,omitempty"`
	UsageType        string   `dynamodbav:"usage_type,omitempty"`
	Operation        string   `dynamodbav:"operation,omitempty"`
	InstanceType     string   `dynamodbav:"instance_type,omitempty"`
	AvailabilityZone string   `dynamodbav:"availability_zone,omitempty"`
	FileSource       string   `dynamodbav:"file_source,omitempty"`
}

func toUsageItem(r models.UsageRecord) usageItem {
	return usageItem{
		ResourceID:       r.ResourceID,
		RecordKey:        UsageKey(r),
		Timestamp:        formatTS(r.Timestamp),
		ServiceType:      string(r.Service),
		Region:           r.Region,
		UnblendedCost:    r.Cost.String(),
		UsageAmount:      r.UsageQuantity.String(),
		Utilization:      r.Utilization,
		UsageType:        r.UsageType,
		Operation:        r.Operation,
		InstanceType:     r.InstanceType,
		AvailabilityZone: r.AvailabilityZone,
		FileSource:       r.Source,
	}
}

func (ui usageItem) toModel() (models.UsageRecord, error) {
	cost, err := decimal.NewFromString(ui.UnblendedCost)
	if err != nil {
		return models.UsageRecord{}, fmt.Errorf("parsing cost for %q: %w", ui.ResourceID, err)
	}
	qty, err := decimal.NewFromString(ui.UsageAmount)
	if err != nil {
		return models.UsageRecord{}, fmt.Errorf("parsing usage amount for %q: %w", ui.ResourceID, err)
	}
	ts, err := parseTS(ui.Timestamp)
	if err != nil {
		return models.UsageRecord{}, err
	}
	return models.UsageRecord{
		ResourceID:       ui.ResourceID,
		Service:          models.ServiceType(ui.ServiceType),
		Region:           ui.Region,
		Cost:             cost,
		UsageQuantity:    qty,
		Utilization:      ui.Utilization,
		Timestamp:        ts,
		UsageType:        ui.UsageType,
		InstanceType:     ui.InstanceType,
		AvailabilityZone: ui.AvailabilityZone,
		Operation:        ui.Operation,
		Source:           ui.FileSource,
	}, nil
}

type predictionItem struct {
	PredictionDate     string  `dynamodbav:"prediction_date"`
	EnsemblePrediction float64 `dynamodbav:"ensemble_prediction"`
	ConfidenceScore    float64 `dynamodbav:"confidence_score"`
	Trend              string  `dynamodbav:"trend"`
	Recommendation     string  `dynamodbav:"recommendation"`
	RangeMin           float64 `dynamodbav:"range_min"`
	RangeMax           float64 `dynamodbav:"range_max"`
	ProphetWeight      float64 `dynamodbav:"prophet_weight"`
	ARIMAWeight        float64 `dynamodbav:"arima_weight"`
	CreatedAt          string  `dynamodbav:"created_at"`
}

func toPredictionItem(p models.Prediction) predictionItem {
	return predictionItem{
		PredictionDate:     p.PredictionDate,
		EnsemblePrediction: p.EnsemblePrediction,
		ConfidenceScore:    p.ConfidenceScore,
		Trend:              p.Trend,
		Recommendation:     p.Recommendation,
		RangeMin:           p.ForecastRange.Min,
		RangeMax:           p.ForecastRange.Max,
		ProphetWeight:      p.ProphetWeight,
		ARIMAWeight:        p.ARIMAWeight,
		CreatedAt:          formatTS(p.CreatedAt),
	}
}

func (pi predictionItem) toModel() (models.Prediction, error) {
	created, err := parseTS(pi.CreatedAt)
	if err != nil {
		return models.Prediction{}, err
	}
	return models.Prediction{
		PredictionDate:     pi.PredictionDate,
		EnsemblePrediction: pi.EnsemblePrediction,
		ConfidenceScore:    pi.ConfidenceScore,
		Trend:              pi.Trend,
		Recommendation:     pi.Recommendation,
		ForecastRange:      models.ForecastRange{Min: pi.RangeMin, Max: pi.RangeMax},
		ProphetWeight:      pi.ProphetWeight,
		ARIMAWeight:        pi.ARIMAWeight,
		CreatedAt:          created,
	}, nil
}
