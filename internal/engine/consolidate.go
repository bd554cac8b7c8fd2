package engine

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/AditiSurve17/intelligent-cloud-waste-detector/internal/models"
	"github.com/AditiSurve17/intelligent-cloud-waste-detector/internal/store"
)

// dropEmpty removes records with zero cost and zero usage; they carry no
// signal for any heuristic.
func dropEmpty(recs []models.UsageRecord) (kept []models.UsageRecord, dropped int) {
	kept = recs[:0:0]
	for _, r := range recs {
		if r.Cost.IsZero() && r.UsageQuantity.IsZero() {
			dropped++
			continue
		}
		kept = append(kept, r)
	}
	return kept, dropped
}

// groupByResource buckets records per resource and returns the resource IDs
// in sorted order.
func groupByResource(recs []models.UsageRecord) (map[string][]models.UsageRecord, []string) {
	groups := make(map[string][]models.UsageRecord)
	for _, r := range recs {
		groups[r.ResourceID] = append(groups[r.ResourceID], r)
	}
	ids := make([]string, 0, len(groups))
	for id := range groups {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return groups, ids
}

// consolidate merges one resource's line items into a single observation per
// timestamp and returns them oldest first. A CUR file typically holds several
// line items per resource and period (usage types, operations).
func consolidate(recs []models.UsageRecord) []models.UsageRecord {
	out := mergeBy(recs, func(r models.UsageRecord) string {
		return r.Timestamp.UTC().Format(time.RFC3339Nano)
	})
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	return out
}

// mergeLineItems folds records that share a resource and usage key into one,
// so a usage store that keeps one row per key sees the period's full cost.
// Input order is preserved.
func mergeLineItems(recs []models.UsageRecord) []models.UsageRecord {
	return mergeBy(recs, func(r models.UsageRecord) string {
		return r.ResourceID + "\x00" + store.UsageKey(r)
	})
}

// mergeBy folds records with the same key in first-seen order. Cost and usage
// are summed; utilization is the mean of known values; descriptive fields
// keep the first non-empty value in input order.
func mergeBy(recs []models.UsageRecord, key func(models.UsageRecord) string) []models.UsageRecord {
	type acc struct {
		rec      models.UsageRecord
		utilSum  float64
		utilSeen int
	}
	byKey := make(map[string]*acc)
	var order []string

	for _, r := range recs {
		k := key(r)
		a, ok := byKey[k]
		if !ok {
			a = &acc{rec: r}
			a.rec.Timestamp = r.Timestamp.UTC()
			a.rec.Utilization = nil
			byKey[k] = a
			order = append(order, k)
		} else {
			a.rec.Cost = a.rec.Cost.Add(r.Cost)
			a.rec.UsageQuantity = a.rec.UsageQuantity.Add(r.UsageQuantity)
			fillEmpty(&a.rec, r)
		}
		if u, ok := r.UtilizationValue(); ok {
			a.utilSum += u
			a.utilSeen++
		}
	}

	out := make([]models.UsageRecord, 0, len(order))
	for _, k := range order {
		a := byKey[k]
		if a.utilSeen > 0 {
			mean := a.utilSum / float64(a.utilSeen)
			a.rec.Utilization = &mean
		}
		out = append(out, a.rec)
	}
	return out
}

func fillEmpty(dst *models.UsageRecord, src models.UsageRecord) {
	if dst.Service == models.ServiceOther || dst.Service == "" {
		dst.Service = src.Service
	}
	if dst.Region == "" {
		dst.Region = src.Region
	}
	if dst.InstanceType == "" {
		dst.InstanceType = src.InstanceType
	}
	if dst.AvailabilityZone == "" {
		dst.AvailabilityZone = src.AvailabilityZone
	}
	if dst.UsageType == "" {
		dst.UsageType = src.UsageType
	}
	if dst.Operation == "" {
		dst.Operation = src.Operation
	}
}

// totalCost sums the cost of recs.
func totalCost(recs []models.UsageRecord) decimal.Decimal {
	sum := decimal.Zero
	for _, r := range recs {
		sum = sum.Add(r.Cost)
	}
	return sum
}
