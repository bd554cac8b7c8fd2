// Package store persists recommendations, usage history and forecasts.
// Every backend implements the same three narrow interfaces so the pipeline,
// API and CLI never depend on a concrete database.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/AditiSurve17/intelligent-cloud-waste-detector/internal/models"
)

// ErrNotFound is returned when the requested key has no stored value.
var ErrNotFound = errors.New("not found")

// RecommendationStore is keyed by resource ID: each resource has at most one
// current recommendation.
type RecommendationStore interface {
	Get(ctx context.Context, resourceID string) (models.WasteRecommendation, error)
	// Put writes or overwrites the recommendation for rec.ResourceID.
	Put(ctx context.Context, rec models.WasteRecommendation) error
	ListByStatus(ctx context.Context, status models.Status) ([]models.WasteRecommendation, error)
	// UpdateStatus sets the status of an existing recommendation and returns
	// the updated entity. ErrNotFound when none exists.
	UpdateStatus(ctx context.Context, resourceID string, status models.Status, at time.Time) (models.WasteRecommendation, error)
	// DeleteActive removes the recommendation only while it is Active and
	// reports whether one was removed. Operator decisions are never deleted.
	DeleteActive(ctx context.Context, resourceID string) (bool, error)
}

// UsageStore keeps normalized usage history per resource. Records are keyed
// by resource, timestamp, usage type and operation; writing the same key again
// overwrites it.
type UsageStore interface {
	PutUsage(ctx context.Context, recs []models.UsageRecord) error
	// UsageFor returns the resource's records ordered by timestamp.
	UsageFor(ctx context.Context, resourceID string) ([]models.UsageRecord, error)
	// UsageSince returns every record with Timestamp >= since.
	UsageSince(ctx context.Context, since time.Time) ([]models.UsageRecord, error)
}

// PredictionStore keeps one ensemble prediction per prediction date.
type PredictionStore interface {
	PutPrediction(ctx context.Context, p models.Prediction) error
	// LatestPrediction returns the prediction with the greatest date.
	// ErrNotFound when the store is empty.
	LatestPrediction(ctx context.Context) (models.Prediction, error)
}

// Store bundles the three stores of one backend.
type Store interface {
	RecommendationStore
	UsageStore
	PredictionStore
	Close() error
}

// UsageKey identifies one stored usage record within its resource. Records
// sharing a key overwrite each other, so callers merge line items per key
// before writing.
func UsageKey(r models.UsageRecord) string {
	return r.Timestamp.UTC().Format(time.RFC3339) + "#" + r.UsageType + "#" + r.Operation
}

var (
	_ Store = (*Memory)(nil)
	_ Store = (*SQLite)(nil)
	_ Store = (*DynamoDB)(nil)
	_ Store = (*Postgres)(nil)
)
