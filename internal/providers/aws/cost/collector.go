package cost

import (
	"context"
	"log/slog"

	"github.com/AditiSurve17/intelligent-cloud-waste-detector/internal/normalize"
	"github.com/AditiSurve17/intelligent-cloud-waste-detector/internal/providers/aws/common"
)

// DefaultServices are the Cost Explorer SERVICE values queried when
// CollectOptions.Services is empty. EBS volumes are billed under
// "EC2 - Other" with an "EBS:" usage type.
var DefaultServices = []string{
	"Amazon Elastic Compute Cloud - Compute",
	"EC2 - Other",
	"Amazon Relational Database Service",
	"Amazon Simple Storage Service",
}

// CollectOptions carries the parameters of one Cost Explorer collection.
type CollectOptions struct {
	// Regions are searched when enriching resources with instance metadata
	// and CPU utilization. Empty means the profile's home region only.
	Regions []string

	// DaysBack is the lookback window. Resource-level Cost Explorer data is
	// only retained for 14 days, so larger values are clamped.
	DaysBack int

	// Services overrides DefaultServices.
	Services []string

	// SkipEnrichment disables the EC2, RDS and CloudWatch lookups.
	SkipEnrichment bool

	Logger *slog.Logger
}

// CostCollector turns Cost Explorer resource-level data into raw rows in
// the simplified format. It must not apply business rules.
type CostCollector interface {
	// CollectRows queries daily per-resource costs and returns one row per
	// (resource, usage type, day), enriched with instance type, availability
	// zone and daily CPU utilization where those can be found. Enrichment
	// failures are logged and tolerated; Cost Explorer failures are not.
	CollectRows(
		ctx context.Context,
		profile *common.ProfileConfig,
		provider common.AWSClientProvider,
		opts CollectOptions,
	) ([]normalize.RawRow, error)
}
