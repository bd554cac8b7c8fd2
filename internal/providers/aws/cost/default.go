package cost

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/AditiSurve17/intelligent-cloud-waste-detector/internal/normalize"
	"github.com/AditiSurve17/intelligent-cloud-waste-detector/internal/providers/aws/common"
)

const (
	// maxConcurrentRegions is the maximum number of regions enriched in parallel.
	maxConcurrentRegions = 5

	// maxConcurrentMetrics bounds in-flight CloudWatch queries.
	maxConcurrentMetrics = 10

	// maxDaysBack is the resource-level retention of Cost Explorer.
	maxDaysBack = 14

	dayLayout = "2006-01-02"
)

// DefaultCostCollector is the production implementation of CostCollector.
//
// Inject a custom costClientFactory via NewDefaultCostCollectorWithFactory
// to replace real SDK clients with mocks in unit tests.
type DefaultCostCollector struct {
	factory costClientFactory
	now     func() time.Time
}

// NewDefaultCostCollector returns a collector backed by the real AWS SDK.
func NewDefaultCostCollector() *DefaultCostCollector {
	return &DefaultCostCollector{factory: newDefaultCostClients, now: time.Now}
}

// NewDefaultCostCollectorWithFactory returns a collector that uses f to
// create its service clients. Pass a mock factory in tests.
func NewDefaultCostCollectorWithFactory(f costClientFactory) *DefaultCostCollector {
	return &DefaultCostCollector{factory: f, now: time.Now}
}

// CollectRows implements CostCollector.
//
// Flow:
//  1. Query Cost Explorer once per service (CE is global, so us-east-1).
//  2. Look up the EC2 and RDS resources in every region in parallel.
//  3. Fetch daily CPU averages for every resource that was found.
//  4. Emit rows sorted by resource, day and usage type.
func (d *DefaultCostCollector) CollectRows(
	ctx context.Context,
	profile *common.ProfileConfig,
	provider common.AWSClientProvider,
	opts CollectOptions,
) ([]normalize.RawRow, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	services := opts.Services
	if len(services) == 0 {
		services = DefaultServices
	}
	regions := opts.Regions
	if len(regions) == 0 {
		regions = []string{profile.Region}
	}

	days := effectiveDaysBack(opts.DaysBack)
	startDay, endDay := d.billingDateRange(days)

	ceClients := d.factory(provider.ConfigForRegion(profile, "us-east-1"))
	var rows []costRow
	for _, service := range services {
		got, err := collectResourceCosts(ctx, ceClients.CE, service, startDay, endDay)
		if err != nil {
			return nil, err
		}
		rows = append(rows, got...)
	}
	logger.Info("cost explorer rows collected", "rows", len(rows), "start", startDay, "end", endDay)

	var (
		meta  map[string]instanceMeta
		usage map[string]map[string]float64
	)
	if !opts.SkipEnrichment && len(rows) > 0 {
		clients := make(map[string]*costClients, len(regions))
		for _, region := range regions {
			clients[region] = d.factory(provider.ConfigForRegion(profile, region))
		}
		meta = d.lookupResources(ctx, clients, rows, logger)

		start, _ := time.Parse(dayLayout, startDay)
		end, _ := time.Parse(dayLayout, endDay)
		usage = d.fetchUtilization(ctx, clients, meta, start, end, logger)
	}

	sort.Slice(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		if a.ResourceID != b.ResourceID {
			return a.ResourceID < b.ResourceID
		}
		if a.Day != b.Day {
			return a.Day < b.Day
		}
		return a.UsageType < b.UsageType
	})

	source := fmt.Sprintf("costexplorer:%s/%s", startDay, endDay)
	out := make([]normalize.RawRow, 0, len(rows))
	for i, r := range rows {
		out = append(out, toRawRow(r, meta, usage, source, i+1))
	}
	return out, nil
}

// lookupResources finds instance metadata for the EC2 instances and RDS
// databases named in rows, keyed by the id Cost Explorer used. A region
// that fails is logged and skipped.
func (d *DefaultCostCollector) lookupResources(
	ctx context.Context,
	clients map[string]*costClients,
	rows []costRow,
	logger *slog.Logger,
) map[string]instanceMeta {
	var instanceIDs []string
	seen := make(map[string]bool)
	wantRDS := false
	for _, r := range rows {
		if seen[r.ResourceID] {
			continue
		}
		seen[r.ResourceID] = true
		switch {
		case isEC2Instance(r.ResourceID):
			instanceIDs = append(instanceIDs, r.ResourceID)
		case isRDSResource(r.ResourceID):
			wantRDS = true
		}
	}
	sort.Strings(instanceIDs)

	var (
		mu    sync.Mutex
		found = make(map[string]instanceMeta)
	)
	if len(instanceIDs) == 0 && !wantRDS {
		return found
	}

	regions := make([]string, 0, len(clients))
	for region := range clients {
		regions = append(regions, region)
	}
	sort.Strings(regions)

	sem := make(chan struct{}, maxConcurrentRegions)
	g, gctx := errgroup.WithContext(ctx)

REGIONS:
	for _, region := range regions {
		select {
		case sem <- struct{}{}: // acquire semaphore slot; blocks when at capacity
		case <-gctx.Done():
			break REGIONS
		}

		c := clients[region]
		g.Go(func() error {
			defer func() { <-sem }()

			local := make(map[string]instanceMeta)
			if len(instanceIDs) > 0 {
				got, err := lookupInstances(gctx, c.EC2, region, instanceIDs)
				if err != nil {
					logger.Warn("instance lookup failed", "region", region, "error", err)
				}
				for k, v := range got {
					local[k] = v
				}
			}
			if wantRDS {
				got, err := lookupDBInstances(gctx, c.RDS, region)
				if err != nil {
					logger.Warn("database lookup failed", "region", region, "error", err)
				}
				for k, v := range got {
					local[k] = v
				}
			}

			mu.Lock()
			for k, v := range local {
				if seen[k] {
					found[k] = v
				}
			}
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait() // region failures are logged, never returned

	return found
}

// fetchUtilization returns daily CPU averages keyed by CE resource id.
// Resources whose metric query fails keep unknown utilization.
func (d *DefaultCostCollector) fetchUtilization(
	ctx context.Context,
	clients map[string]*costClients,
	meta map[string]instanceMeta,
	start, end time.Time,
	logger *slog.Logger,
) map[string]map[string]float64 {
	ids := make([]string, 0, len(meta))
	for id := range meta {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var (
		mu    sync.Mutex
		usage = make(map[string]map[string]float64)
	)

	sem := make(chan struct{}, maxConcurrentMetrics)
	g, gctx := errgroup.WithContext(ctx)

RESOURCES:
	for _, id := range ids {
		m := meta[id]
		c, ok := clients[m.Region]
		if !ok {
			continue
		}

		select {
		case sem <- struct{}{}:
		case <-gctx.Done():
			break RESOURCES
		}

		g.Go(func() error {
			defer func() { <-sem }()

			daily, err := fetchDailyCPU(gctx, c.CW, m, start, end)
			if err != nil {
				logger.Warn("utilization lookup failed", "resource_id", id, "error", err)
				return nil
			}
			mu.Lock()
			usage[id] = daily
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	return usage
}

// toRawRow renders one cost cell as a simplified-format row.
func toRawRow(
	r costRow,
	meta map[string]instanceMeta,
	usage map[string]map[string]float64,
	source string,
	line int,
) normalize.RawRow {
	cols := map[string]string{
		"ResourceId":     r.ResourceID,
		"UnblendedCost":  r.Cost,
		"UsageAmount":    r.Usage,
		"ProductName":    r.Service,
		"UsageType":      r.UsageType,
		"UsageStartDate": r.Day,
	}
	if m, ok := meta[r.ResourceID]; ok {
		cols["instanceType"] = m.InstanceType
		cols["AvailabilityZone"] = m.AvailabilityZone
		cols["region"] = m.Region
	} else if region := regionFromARN(r.ResourceID); region != "" {
		cols["region"] = region
	}
	if v, ok := usage[r.ResourceID][r.Day]; ok {
		cols["Utilization"] = strconv.FormatFloat(v, 'f', 2, 64)
	}
	return normalize.RawRow{
		Format:  normalize.FormatSimplified,
		Columns: cols,
		Line:    line,
		Source:  source,
	}
}

// regionFromARN returns the region field of an ARN, or "".
func regionFromARN(id string) string {
	if !strings.HasPrefix(id, "arn:") {
		return ""
	}
	parts := strings.SplitN(id, ":", 5)
	if len(parts) < 5 {
		return ""
	}
	return parts[3]
}

// effectiveDaysBack returns daysBack clamped to [1, maxDaysBack], with
// maxDaysBack used for zero or negative values.
func effectiveDaysBack(daysBack int) int {
	if daysBack <= 0 || daysBack > maxDaysBack {
		return maxDaysBack
	}
	return daysBack
}

// billingDateRange returns start and end dates for a Cost Explorer query.
// end is today (UTC, exclusive); start is daysBack days earlier.
func (d *DefaultCostCollector) billingDateRange(daysBack int) (start, end string) {
	now := d.now().UTC()
	end = now.Format(dayLayout)
	start = now.AddDate(0, 0, -daysBack).Format(dayLayout)
	return
}

// compile-time check
var _ CostCollector = (*DefaultCostCollector)(nil)
