package engine

import (
	"sort"

	"github.com/AditiSurve17/intelligent-cloud-waste-detector/internal/models"
)

// SortRecommendations orders recs High → Medium → Low, ties broken by
// estimated savings descending, then resource ID.
func SortRecommendations(recs []models.WasteRecommendation) {
	sort.SliceStable(recs, func(i, j int) bool {
		ri, rj := models.PriorityRank[recs[i].Priority], models.PriorityRank[recs[j].Priority]
		if ri != rj {
			return ri < rj
		}
		if c := recs[i].EstimatedMonthlySavings.Cmp(recs[j].EstimatedMonthlySavings); c != 0 {
			return c > 0
		}
		return recs[i].ResourceID < recs[j].ResourceID
	})
}
