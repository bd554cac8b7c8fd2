package forecast

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/AditiSurve17/intelligent-cloud-waste-detector/internal/metrics"
	"github.com/AditiSurve17/intelligent-cloud-waste-detector/internal/models"
	"github.com/AditiSurve17/intelligent-cloud-waste-detector/internal/providers/aws/common"
	"github.com/AditiSurve17/intelligent-cloud-waste-detector/internal/store"
)

// Options configures a Runner. Zero values take the defaults below.
type Options struct {
	Bucket            string
	ProphetPrefix     string
	ARIMAPrefix       string
	PredictionsPrefix string

	TrendThreshold float64

	// AlertThreshold triggers the notifier when the ensemble prediction
	// exceeds it. Zero disables alerts.
	AlertThreshold float64

	Metrics *metrics.Metrics
}

const (
	DefaultProphetPrefix     = "ml-results/prophet_results_"
	DefaultARIMAPrefix       = "ml-results/arima_results_"
	DefaultPredictionsPrefix = "predictions/"
)

func (o Options) withDefaults() Options {
	if o.ProphetPrefix == "" {
		o.ProphetPrefix = DefaultProphetPrefix
	}
	if o.ARIMAPrefix == "" {
		o.ARIMAPrefix = DefaultARIMAPrefix
	}
	if o.PredictionsPrefix == "" {
		o.PredictionsPrefix = DefaultPredictionsPrefix
	}
	if o.TrendThreshold <= 0 {
		o.TrendThreshold = DefaultTrendThreshold
	}
	return o
}

// Result reports what one Run did.
type Result struct {
	Prediction  models.Prediction
	ProphetKey  string
	ARIMAKey    string
	ArtifactKey string
	Alerted     bool
}

// Runner produces the daily ensemble prediction.
type Runner struct {
	s3       common.S3Client
	store    store.PredictionStore
	notifier Notifier
	opts     Options
	logger   *slog.Logger
	now      func() time.Time
}

// NewRunner returns a Runner. notifier may be nil when alerts are disabled.
func NewRunner(client common.S3Client, ps store.PredictionStore, notifier Notifier, opts Options, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{
		s3:       client,
		store:    ps,
		notifier: notifier,
		opts:     opts.withDefaults(),
		logger:   logger,
		now:      time.Now,
	}
}

// Run loads the latest result file of each model, computes the ensemble,
// stores it in the prediction store and as a JSON artifact in S3, and
// notifies when the forecast exceeds the alert threshold. A failed alert is
// logged; it does not fail the run.
func (r *Runner) Run(ctx context.Context) (*Result, error) {
	prophetKey, err := r.latestKey(ctx, r.opts.ProphetPrefix)
	if err != nil {
		return nil, err
	}
	arimaKey, err := r.latestKey(ctx, r.opts.ARIMAPrefix)
	if err != nil {
		return nil, err
	}

	prophet, err := r.loadResult(ctx, prophetKey)
	if err != nil {
		return nil, err
	}
	arima, err := r.loadResult(ctx, arimaKey)
	if err != nil {
		return nil, err
	}

	pred, err := Ensemble(prophet, arima, r.opts.TrendThreshold, r.now())
	if err != nil {
		return nil, err
	}

	if err := r.store.PutPrediction(ctx, pred); err != nil {
		return nil, fmt.Errorf("store prediction %s: %w", pred.PredictionDate, err)
	}

	key := r.opts.PredictionsPrefix + "prediction-" + strings.ReplaceAll(pred.PredictionDate, "-", "") + ".json"
	if err := r.putJSON(ctx, key, pred); err != nil {
		return nil, err
	}

	res := &Result{Prediction: pred, ProphetKey: prophetKey, ARIMAKey: arimaKey, ArtifactKey: key}
	r.logger.Info("ensemble prediction saved",
		"date", pred.PredictionDate,
		"prediction", pred.EnsemblePrediction,
		"confidence", pred.ConfidenceScore,
		"key", key,
	)

	if r.notifier != nil && r.opts.AlertThreshold > 0 && pred.EnsemblePrediction > r.opts.AlertThreshold {
		alert := Alert{Prediction: pred, Threshold: r.opts.AlertThreshold, At: r.now().UTC()}
		if err := r.notifier.Notify(ctx, alert); err != nil {
			r.logger.Warn("forecast alert failed", "error", err)
		} else {
			res.Alerted = true
		}
	}
	r.opts.Metrics.ObservePrediction(pred, res.Alerted)
	return res, nil
}

// latestKey returns the lexicographically greatest key under prefix.
func (r *Runner) latestKey(ctx context.Context, prefix string) (string, error) {
	var keys []string
	p := s3.NewListObjectsV2Paginator(r.s3, &s3.ListObjectsV2Input{
		Bucket: aws.String(r.opts.Bucket),
		Prefix: aws.String(prefix),
	})
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return "", fmt.Errorf("list s3://%s/%s: %w", r.opts.Bucket, prefix, err)
		}
		for _, obj := range page.Contents {
			keys = append(keys, aws.ToString(obj.Key))
		}
	}
	if len(keys) == 0 {
		return "", fmt.Errorf("prefix %q: %w", prefix, ErrNoModelResults)
	}
	sort.Strings(keys)
	return keys[len(keys)-1], nil
}

func (r *Runner) loadResult(ctx context.Context, key string) (models.ForecastModelResult, error) {
	var res models.ForecastModelResult
	out, err := r.s3.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(r.opts.Bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return res, fmt.Errorf("get s3://%s/%s: %w", r.opts.Bucket, key, err)
	}
	defer out.Body.Close()

	if err := json.NewDecoder(out.Body).Decode(&res); err != nil {
		return res, fmt.Errorf("decode model result %s: %w", key, err)
	}
	return res, nil
}

func (r *Runner) putJSON(ctx context.Context, key string, v any) error {
	body, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	_, err = r.s3.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(r.opts.Bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("put s3://%s/%s: %w", r.opts.Bucket, key, err)
	}
	return nil
}
