package analytics

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/AditiSurve17/intelligent-cloud-waste-detector/internal/models"
	"github.com/AditiSurve17/intelligent-cloud-waste-detector/internal/providers/aws/common"
	"github.com/AditiSurve17/intelligent-cloud-waste-detector/internal/store"
)

// Report is the analytics artifact written to S3.
type Report struct {
	GeneratedAt     time.Time          `json:"generated_at"`
	CostTrends      CostTrends         `json:"cost_trends"`
	ServiceAnalysis ServiceAnalysis    `json:"service_analysis"`
	Recommendations Effectiveness      `json:"recommendation_analysis"`
	Anomalies       SpikeSummary       `json:"anomalies"`
	WeeklySummary   WeeklySummary      `json:"weekly_summary"`
	Features        []ResourceFeatures `json:"ml_features"`
}

// Options configures a Runner.
type Options struct {
	Bucket string
	Prefix string // default "analytics/"

	// TrendDays is the window of the trend and weekly summary (default 7).
	TrendDays int
	// HistoryDays bounds the usage read for service statistics, spikes
	// and features (default 30).
	HistoryDays int
}

// Runner builds analytics reports from the stores and uploads them.
type Runner struct {
	usage  store.UsageStore
	recs   store.RecommendationStore
	s3     common.S3Client
	opts   Options
	logger *slog.Logger
	now    func() time.Time
}

// NewRunner returns a Runner. s3 may be nil when reports are only built.
func NewRunner(usage store.UsageStore, recs store.RecommendationStore, client common.S3Client, opts Options, logger *slog.Logger) *Runner {
	if opts.Prefix == "" {
		opts.Prefix = "analytics/"
	}
	if opts.TrendDays <= 0 {
		opts.TrendDays = 7
	}
	if opts.HistoryDays <= 0 {
		opts.HistoryDays = 30
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{usage: usage, recs: recs, s3: client, opts: opts, logger: logger, now: time.Now}
}

// Build reads usage and recommendations and computes the report.
func (r *Runner) Build(ctx context.Context) (*Report, error) {
	now := r.now().UTC()
	historyFrom := now.AddDate(0, 0, -r.opts.HistoryDays)
	trendFrom := now.AddDate(0, 0, -r.opts.TrendDays)

	usage, err := r.usage.UsageSince(ctx, historyFrom)
	if err != nil {
		return nil, fmt.Errorf("load usage since %s: %w", historyFrom.Format(dayLayout), err)
	}

	var all, active []models.WasteRecommendation
	for _, st := range []models.Status{models.StatusActive, models.StatusTerminated, models.StatusDismissed} {
		recs, err := r.recs.ListByStatus(ctx, st)
		if err != nil {
			return nil, fmt.Errorf("list %s recommendations: %w", st, err)
		}
		all = append(all, recs...)
		if st == models.StatusActive {
			active = recs
		}
	}

	return &Report{
		GeneratedAt:     now,
		CostTrends:      AnalyzeCostTrends(usage, trendFrom, now),
		ServiceAnalysis: AnalyzeServices(usage),
		Recommendations: AnalyzeEffectiveness(all),
		Anomalies:       DetectSpikes(usage, now),
		WeeklySummary:   Summarize(usage, active, trendFrom, now),
		Features:        PrepareFeatures(usage),
	}, nil
}

// Run builds the report and uploads it as
// <prefix>analytics-report-<YYYYMMDD_HHMMSS>.json. It returns the key.
func (r *Runner) Run(ctx context.Context) (*Report, string, error) {
	report, err := r.Build(ctx)
	if err != nil {
		return nil, "", err
	}
	if r.s3 == nil {
		return report, "", fmt.Errorf("upload analytics report: no S3 client configured")
	}

	key := r.opts.Prefix + "analytics-report-" + report.GeneratedAt.Format("20060102_150405") + ".json"
	body, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return nil, "", fmt.Errorf("encode analytics report: %w", err)
	}
	_, err = r.s3.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(r.opts.Bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return nil, "", fmt.Errorf("put s3://%s/%s: %w", r.opts.Bucket, key, err)
	}

	r.logger.Info("analytics report stored",
		"key", key,
		"days", report.CostTrends.Statistics.TotalDaysAnalyzed,
		"services", len(report.ServiceAnalysis.Services),
		"anomalies", report.Anomalies.TotalAnomalies,
		"features", len(report.Features),
	)
	return report, key, nil
}
