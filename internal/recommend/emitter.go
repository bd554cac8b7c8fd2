// Package recommend turns a scored resource into a persisted
// WasteRecommendation.
package recommend

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/AditiSurve17/intelligent-cloud-waste-detector/internal/models"
	"github.com/AditiSurve17/intelligent-cloud-waste-detector/internal/scoring"
	"github.com/AditiSurve17/intelligent-cloud-waste-detector/internal/store"
)

const (
	DefaultMaxSavingsFraction = 0.8
	DefaultCostPeriodDays     = 30
)

// idNamespace scopes the name-based UUIDs used for recommendation IDs.
var idNamespace = uuid.NewSHA1(uuid.NameSpaceURL,
	[]byte("https://github.com/AditiSurve17/intelligent-cloud-waste-detector/recommendations"))

// RecommendationID returns the stable ID for resourceID's recommendation.
func RecommendationID(resourceID string) string {
	return "rec-" + uuid.NewSHA1(idNamespace, []byte(resourceID)).String()
}

// Options tunes the savings estimate.
type Options struct {
	// MaxSavingsFraction caps the share of current cost assumed recoverable.
	MaxSavingsFraction float64
	// CostPeriodDays converts the observed (daily) cost into a monthly figure.
	CostPeriodDays int
}

func (o Options) withDefaults() Options {
	if o.MaxSavingsFraction <= 0 {
		o.MaxSavingsFraction = DefaultMaxSavingsFraction
	}
	if o.CostPeriodDays <= 0 {
		o.CostPeriodDays = DefaultCostPeriodDays
	}
	return o
}

// Emitter builds recommendations and writes them to a RecommendationStore.
type Emitter struct {
	store store.RecommendationStore
	opts  Options
	now   func() time.Time
}

// NewEmitter returns an Emitter writing to s.
func NewEmitter(s store.RecommendationStore, opts Options) *Emitter {
	return &Emitter{store: s, opts: opts.withDefaults(), now: func() time.Time { return time.Now().UTC() }}
}

// Build returns an Active recommendation for rec scored as score. It has no
// side effects; the only non-deterministic fields are the timestamps.
func (e *Emitter) Build(rec models.UsageRecord, score scoring.Score) models.WasteRecommendation {
	fraction := math.Min(score.Composite/100, e.opts.MaxSavingsFraction)
	savings := rec.Cost.
		Mul(decimal.NewFromFloat(fraction)).
		Mul(decimal.NewFromInt(int64(e.opts.CostPeriodDays))).
		Round(2)

	rationales := make([]string, 0, len(score.Triggered))
	for _, sig := range score.Triggered {
		if sig.Rationale != "" {
			rationales = append(rationales, sig.Rationale)
		}
	}

	now := e.now()
	return models.WasteRecommendation{
		RecommendationID:        RecommendationID(rec.ResourceID),
		ResourceID:              rec.ResourceID,
		Service:                 rec.Service,
		Region:                  rec.Region,
		InstanceType:            rec.InstanceType,
		CompositeScore:          score.Composite,
		Priority:                score.Priority,
		EstimatedMonthlySavings: savings,
		CurrentCost:             rec.Cost,
		Confidence:              math.Min(score.Composite/10, 10),
		Heuristics:              score.Heuristics(),
		Rationale:               strings.Join(rationales, "; "),
		Status:                  models.StatusActive,
		CreatedAt:               now,
		UpdatedAt:               now,
	}
}

// Emit persists rec. Store failures are returned unchanged apart from context.
func (e *Emitter) Emit(ctx context.Context, rec models.WasteRecommendation) error {
	if err := e.store.Put(ctx, rec); err != nil {
		return fmt.Errorf("persist recommendation for %q: %w", rec.ResourceID, err)
	}
	return nil
}
