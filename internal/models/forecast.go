package models

import "time"

// ForecastModelResult is the subset of a forecasting model's result file
// consumed by the ensemble. The model itself runs outside this module.
type ForecastModelResult struct {
	Model           string `json:"model,omitempty"`
	ForecastSummary struct {
		AvgPredictedCost float64 `json:"avg_predicted_cost"`
	} `json:"forecast_summary"`
	PerformanceMetrics struct {
		MAPE float64 `json:"mape"`
	} `json:"performance_metrics"`
}

// ForecastRange is the spread between the individual model forecasts.
type ForecastRange struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// Prediction is one persisted daily ensemble forecast.
type Prediction struct {
	PredictionDate     string        `json:"prediction_date"`
	EnsemblePrediction float64       `json:"ensemble_prediction"`
	ConfidenceScore    float64       `json:"confidence_score"`
	Trend              string        `json:"trend"`
	Recommendation     string        `json:"recommendation"`
	ForecastRange      ForecastRange `json:"forecast_range"`
	ProphetWeight      float64       `json:"prophet_weight"`
	ARIMAWeight        float64       `json:"arima_weight"`
	CreatedAt          time.Time     `json:"created_at"`
}
