package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"time"

	"github.com/shopspring/decimal"

	"github.com/AditiSurve17/intelligent-cloud-waste-detector/internal/metrics"
	"github.com/AditiSurve17/intelligent-cloud-waste-detector/internal/models"
	"github.com/AditiSurve17/intelligent-cloud-waste-detector/internal/normalize"
	"github.com/AditiSurve17/intelligent-cloud-waste-detector/internal/policy"
	"github.com/AditiSurve17/intelligent-cloud-waste-detector/internal/recommend"
	"github.com/AditiSurve17/intelligent-cloud-waste-detector/internal/rules"
	"github.com/AditiSurve17/intelligent-cloud-waste-detector/internal/scoring"
	"github.com/AditiSurve17/intelligent-cloud-waste-detector/internal/store"
)

const (
	// DefaultMinCost is the smallest latest-period cost worth a recommendation.
	DefaultMinCost = 0.01

	// DefaultPrimaryRegion is used when neither options nor policy name one.
	DefaultPrimaryRegion = "us-east-1"

	maxResourceIDLen = 2048
)

// resourceIDPattern accepts instance/volume IDs, bucket names and ARNs.
var resourceIDPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._:/@+=,\-]*$`)

// Options wires a Pipeline. Registry and Recommendations are required.
type Options struct {
	Registry        rules.RuleRegistry
	Recommendations store.RecommendationStore

	// Usage, when set, receives every normalized record and supplies the
	// history for both Run and Rescore.
	Usage store.UsageStore

	// Policy supplies rule thresholds, score buckets and the primary region.
	// May be nil.
	Policy *policy.PolicyConfig

	// PrimaryRegion overrides the policy's primary_region.
	PrimaryRegion string

	// MinCost defaults to DefaultMinCost when zero.
	MinCost float64

	Emitter recommend.Options
	Metrics *metrics.Metrics
	Logger  *slog.Logger
}

// Pipeline is the production Engine: normalize → group → evaluate → score →
// emit. Evaluation is sequential and has no shared mutable state; each
// resource is scored independently.
type Pipeline struct {
	registry   rules.RuleRegistry
	aggregator *scoring.Aggregator
	emitter    *recommend.Emitter
	recs       store.RecommendationStore
	usage      store.UsageStore
	policy     *policy.PolicyConfig
	primary    string
	minCost    decimal.Decimal
	metrics    *metrics.Metrics
	logger     *slog.Logger
	now        func() time.Time
}

// NewPipeline constructs a Pipeline from opts.
func NewPipeline(opts Options) *Pipeline {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	primary := opts.PrimaryRegion
	if primary == "" {
		primary = policy.PrimaryRegion(opts.Policy, DefaultPrimaryRegion)
	}
	minCost := opts.MinCost
	if minCost <= 0 {
		minCost = DefaultMinCost
	}
	return &Pipeline{
		registry:   opts.Registry,
		aggregator: scoring.NewAggregator(scoring.ThresholdsFromPolicy(opts.Policy)),
		emitter:    recommend.NewEmitter(opts.Recommendations, opts.Emitter),
		recs:       opts.Recommendations,
		usage:      opts.Usage,
		policy:     opts.Policy,
		primary:    primary,
		minCost:    decimal.NewFromFloat(minCost),
		metrics:    opts.Metrics,
		logger:     logger,
		now:        time.Now,
	}
}

// Run scores a batch of raw rows. Malformed rows are skipped, and a storage
// failure for one resource does not stop the others; the returned error is
// non-nil only when ctx is cancelled.
func (p *Pipeline) Run(ctx context.Context, rows []normalize.RawRow) (*BatchResult, error) {
	start := p.now()
	res := &BatchResult{RowsRead: len(rows)}

	records := make([]models.UsageRecord, 0, len(rows))
	for _, row := range rows {
		rec, err := normalize.Normalize(row)
		if err != nil {
			p.logger.Warn("skipping row", "source", row.Source, "line", row.Line, "error", err)
			res.RowsSkipped = append(res.RowsSkipped, RowError{Line: row.Line, Source: row.Source, Err: err, Reason: err.Error()})
			continue
		}
		records = append(records, rec)
	}

	records, res.RowsDropped = dropEmpty(records)
	records = mergeLineItems(records)

	if p.usage != nil && len(records) > 0 {
		if err := p.usage.PutUsage(ctx, records); err != nil {
			p.logger.Error("persisting usage history failed; scoring batch only", "records", len(records), "error", err)
			res.UsageErr = err
		}
	}

	groups, ids := groupByResource(records)
	res.Resources = len(ids)

	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		history := p.historyFor(ctx, id, groups[id], res.UsageErr == nil)
		res.Records += len(history)

		rec, score := p.evaluate(history)
		if !p.worthRecommending(rec, score) {
			removed, err := p.recs.DeleteActive(ctx, id)
			switch {
			case err != nil:
				p.logger.Error("stale recommendation not removed", "resource_id", id, "error", err)
				res.Failures = append(res.Failures, ResourceError{ResourceID: id, Err: err, Reason: err.Error()})
			case removed:
				p.logger.Info("recommendation resolved", "resource_id", id)
				res.Resolved = append(res.Resolved, id)
			}
			continue
		}

		out, persisted, err := p.emit(ctx, rec, score)
		switch {
		case err != nil:
			p.logger.Error("recommendation not stored", "resource_id", id, "error", err)
			res.Failures = append(res.Failures, ResourceError{ResourceID: id, Err: err, Reason: err.Error()})
		case !persisted:
			res.Unchanged = append(res.Unchanged, id)
		default:
			res.Recommendations = append(res.Recommendations, out)
		}
	}

	SortRecommendations(res.Recommendations)
	p.metrics.ObserveBatch(metrics.BatchStats{
		RowsRead:        res.RowsRead,
		RowsSkipped:     len(res.RowsSkipped),
		RowsDropped:     res.RowsDropped,
		Recommendations: res.Recommendations,
		Failures:        len(res.Failures),
		Duration:        p.now().Sub(start),
	})
	p.logger.Info("batch scored",
		"rows", res.RowsRead,
		"skipped", len(res.RowsSkipped),
		"dropped", res.RowsDropped,
		"resources", res.Resources,
		"batch_cost", totalCost(records).StringFixed(2),
		"recommendations", len(res.Recommendations),
		"unchanged", len(res.Unchanged),
		"resolved", len(res.Resolved),
		"failures", len(res.Failures),
	)
	return res, nil
}

// Rescore re-evaluates one resource from its stored usage history.
func (p *Pipeline) Rescore(ctx context.Context, resourceID string) (*RescoreResult, error) {
	if err := ValidateResourceID(resourceID); err != nil {
		return nil, err
	}
	if p.usage == nil {
		return nil, ErrNoUsageStore
	}

	stored, err := p.usage.UsageFor(ctx, resourceID)
	if err != nil {
		return nil, fmt.Errorf("load usage for %q: %w", resourceID, err)
	}
	stored, _ = dropEmpty(stored)
	if len(stored) == 0 {
		return nil, fmt.Errorf("%w: %q", ErrNoUsage, resourceID)
	}

	rec, score := p.evaluate(consolidate(stored))
	if !p.worthRecommending(rec, score) {
		removed, err := p.recs.DeleteActive(ctx, resourceID)
		if err != nil {
			return nil, fmt.Errorf("remove stale recommendation for %q: %w", resourceID, err)
		}
		return &RescoreResult{Recommendation: p.emitter.Build(rec, score), Resolved: removed}, nil
	}

	out, persisted, err := p.emit(ctx, rec, score)
	if err != nil {
		return nil, err
	}
	return &RescoreResult{Recommendation: out, Persisted: persisted}, nil
}

// ValidateResourceID rejects empty, oversized or malformed resource IDs.
func ValidateResourceID(id string) error {
	if id == "" || len(id) > maxResourceIDLen || !resourceIDPattern.MatchString(id) {
		return fmt.Errorf("%w: %q", ErrInvalidResourceID, id)
	}
	return nil
}

// historyFor returns the resource's consolidated observations, oldest first.
// With a usage store the stored history (which includes this batch) is used;
// otherwise, or when loading fails, only the batch records.
func (p *Pipeline) historyFor(ctx context.Context, id string, batch []models.UsageRecord, useStore bool) []models.UsageRecord {
	if p.usage == nil || !useStore {
		return consolidate(batch)
	}
	stored, err := p.usage.UsageFor(ctx, id)
	if err != nil {
		p.logger.Warn("loading usage history failed; using batch only", "resource_id", id, "error", err)
		return consolidate(batch)
	}
	stored, _ = dropEmpty(stored)
	if len(stored) == 0 {
		return consolidate(batch)
	}
	return consolidate(stored)
}

// evaluate scores the latest observation with the earlier ones as history.
// obs must be non-empty and ordered oldest first.
func (p *Pipeline) evaluate(obs []models.UsageRecord) (models.UsageRecord, scoring.Score) {
	latest := obs[len(obs)-1]
	signals := p.registry.EvaluateAll(rules.RuleContext{
		Record:        latest,
		History:       obs[:len(obs)-1],
		PrimaryRegion: p.primary,
		Policy:        p.policy,
	})
	return latest, p.aggregator.Aggregate(signals)
}

func (p *Pipeline) worthRecommending(rec models.UsageRecord, score scoring.Score) bool {
	return score.Composite > 0 && rec.Cost.GreaterThanOrEqual(p.minCost)
}

// emit builds and stores the recommendation unless an operator has already
// moved the stored one out of Active. persisted is false in that case and the
// stored entity is returned.
func (p *Pipeline) emit(ctx context.Context, rec models.UsageRecord, score scoring.Score) (models.WasteRecommendation, bool, error) {
	existing, err := p.recs.Get(ctx, rec.ResourceID)
	switch {
	case err == nil && existing.Status != models.StatusActive:
		return existing, false, nil
	case err != nil && !errors.Is(err, store.ErrNotFound):
		return models.WasteRecommendation{}, false, fmt.Errorf("read recommendation for %q: %w", rec.ResourceID, err)
	}

	out := p.emitter.Build(rec, score)
	if err == nil {
		out.CreatedAt = existing.CreatedAt
	}
	if err := p.emitter.Emit(ctx, out); err != nil {
		return models.WasteRecommendation{}, false, err
	}
	return out, true, nil
}

var _ Engine = (*Pipeline)(nil)
