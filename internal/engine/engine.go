package engine

import (
	"context"
	"errors"

	"github.com/AditiSurve17/intelligent-cloud-waste-detector/internal/models"
	"github.com/AditiSurve17/intelligent-cloud-waste-detector/internal/normalize"
)

var (
	// ErrInvalidResourceID is returned by Rescore for empty or malformed IDs.
	ErrInvalidResourceID = errors.New("invalid resource id")
	// ErrNoUsage is returned by Rescore when no usage history exists.
	ErrNoUsage = errors.New("no usage records for resource")
	// ErrNoUsageStore is returned by Rescore when the pipeline has no usage store.
	ErrNoUsageStore = errors.New("usage store not configured")
)

// Engine is the central orchestration interface. It turns raw rows into
// persisted recommendations and re-scores single resources on demand.
//
// Engine must not call AWS SDK clients directly; input arrives as raw rows and
// output leaves through the injected stores.
type Engine interface {
	Run(ctx context.Context, rows []normalize.RawRow) (*BatchResult, error)
	Rescore(ctx context.Context, resourceID string) (*RescoreResult, error)
}

// RowError records a row that failed normalization.
type RowError struct {
	Line   int    `json:"line"`
	Source string `json:"source,omitempty"`
	Err    error  `json:"-"`
	Reason string `json:"reason"`
}

// ResourceError records a resource whose recommendation could not be stored.
type ResourceError struct {
	ResourceID string `json:"resource_id"`
	Err        error  `json:"-"`
	Reason     string `json:"reason"`
}

// BatchResult summarises one Run.
type BatchResult struct {
	RowsRead    int        `json:"rows_read"`
	RowsSkipped []RowError `json:"rows_skipped,omitempty"`
	// RowsDropped counts rows with zero cost and zero usage.
	RowsDropped int `json:"rows_dropped"`
	// Records is the number of consolidated observations evaluated.
	Records   int `json:"records"`
	Resources int `json:"resources"`

	Recommendations []models.WasteRecommendation `json:"recommendations"`
	// Unchanged lists resources whose stored recommendation carries an
	// operator status and was therefore not overwritten.
	Unchanged []string `json:"unchanged,omitempty"`
	// Resolved lists resources that no longer score as waste and whose
	// Active recommendation was removed.
	Resolved []string        `json:"resolved,omitempty"`
	Failures []ResourceError `json:"failures,omitempty"`
	// UsageErr is set when usage history could not be persisted. Scoring
	// still ran on the batch.
	UsageErr error `json:"-"`
}

// RescoreResult is the outcome of re-scoring one resource.
type RescoreResult struct {
	Recommendation models.WasteRecommendation `json:"recommendation"`
	// Persisted is false when the resource scored no waste, or when an
	// operator status protected the stored recommendation.
	Persisted bool `json:"persisted"`
	// Resolved is true when the resource no longer scores as waste and its
	// Active recommendation was removed.
	Resolved bool `json:"resolved,omitempty"`
}
