// Package forecast combines externally produced Prophet and ARIMA cost
// forecasts into one daily ensemble prediction, persists it and raises
// alerts when the predicted cost is too high.
package forecast

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/AditiSurve17/intelligent-cloud-waste-detector/internal/models"
)

var (
	// ErrInvalidMAPE is returned when a model reports a MAPE <= 0, which
	// cannot be turned into an inverse-error weight.
	ErrInvalidMAPE = errors.New("model MAPE must be greater than zero")

	// ErrNoModelResults is returned when no result file exists for a model.
	ErrNoModelResults = errors.New("no model result files found")
)

const (
	// DefaultTrendThreshold separates "decreasing" from "stable" forecasts.
	DefaultTrendThreshold = 2.50

	// agreementMonitorLevel is the model agreement (percent) above which
	// the forecast only needs monitoring.
	agreementMonitorLevel = 70

	TrendDecreasing = "decreasing"
	TrendStable     = "stable"

	RecommendMonitor     = "monitor"
	RecommendInvestigate = "investigate"

	predictionDateLayout = "2006-01-02"
)

// Ensemble weights the two model forecasts by inverse MAPE and derives the
// confidence, trend and recommendation. It is pure; now sets the
// prediction date (UTC) and CreatedAt.
func Ensemble(prophet, arima models.ForecastModelResult, trendThreshold float64, now time.Time) (models.Prediction, error) {
	pMAPE := prophet.PerformanceMetrics.MAPE
	aMAPE := arima.PerformanceMetrics.MAPE
	if pMAPE <= 0 {
		return models.Prediction{}, fmt.Errorf("prophet: %w (got %g)", ErrInvalidMAPE, pMAPE)
	}
	if aMAPE <= 0 {
		return models.Prediction{}, fmt.Errorf("arima: %w (got %g)", ErrInvalidMAPE, aMAPE)
	}
	if trendThreshold <= 0 {
		trendThreshold = DefaultTrendThreshold
	}

	pAvg := prophet.ForecastSummary.AvgPredictedCost
	aAvg := arima.ForecastSummary.AvgPredictedCost

	wP := 1 / pMAPE
	wA := 1 / aMAPE
	total := wP + wA
	wP /= total
	wA /= total

	ensemble := pAvg*wP + aAvg*wA
	agreement := Agreement(pAvg, aAvg)

	p := models.Prediction{
		PredictionDate:     now.UTC().Format(predictionDateLayout),
		EnsemblePrediction: round(ensemble, 3),
		ConfidenceScore:    round(agreement, 1),
		Trend:              TrendStable,
		Recommendation:     RecommendInvestigate,
		ForecastRange: models.ForecastRange{
			Min: round(math.Min(pAvg, aAvg), 2),
			Max: round(math.Max(pAvg, aAvg), 2),
		},
		ProphetWeight: round(wP, 4),
		ARIMAWeight:   round(wA, 4),
		CreatedAt:     now.UTC(),
	}
	if ensemble < trendThreshold {
		p.Trend = TrendDecreasing
	}
	if agreement > agreementMonitorLevel {
		p.Recommendation = RecommendMonitor
	}
	return p, nil
}

// Agreement is 100 minus the relative gap between the two forecasts, in
// percent. Two zero forecasts agree fully.
func Agreement(a, b float64) float64 {
	hi := math.Max(a, b)
	if hi == 0 {
		if a == b {
			return 100
		}
		return 0
	}
	return 100 - math.Abs(a-b)/hi*100
}

func round(v float64, places int) float64 {
	pow := math.Pow(10, float64(places))
	return math.Round(v*pow) / pow
}
