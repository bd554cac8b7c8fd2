package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/AditiSurve17/intelligent-cloud-waste-detector/internal/models"
)

// Memory is an in-process Store used by tests and dry runs.
type Memory struct {
	mu          sync.RWMutex
	recs        map[string]models.WasteRecommendation
	usage       map[string]map[string]models.UsageRecord
	predictions map[string]models.Prediction
}

// NewMemory returns an empty Memory store.
func NewMemory() *Memory {
	return &Memory{
		recs:        make(map[string]models.WasteRecommendation),
		usage:       make(map[string]map[string]models.UsageRecord),
		predictions: make(map[string]models.Prediction),
	}
}

func (m *Memory) Close() error { return nil }

func (m *Memory) Get(_ context.Context, resourceID string) (models.WasteRecommendation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.recs[resourceID]
	if !ok {
		return models.WasteRecommendation{}, fmt.Errorf("recommendation %q: %w", resourceID, ErrNotFound)
	}
	return cloneRec(rec), nil
}

func (m *Memory) Put(_ context.Context, rec models.WasteRecommendation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.recs[rec.ResourceID] = cloneRec(rec)
	return nil
}

// ListByStatus returns matches ordered by resource ID.
func (m *Memory) ListByStatus(_ context.Context, status models.Status) ([]models.WasteRecommendation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []models.WasteRecommendation
	for _, r := range m.recs {
		if r.Status == status {
			out = append(out, cloneRec(r))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ResourceID < out[j].ResourceID })
	return out, nil
}

func (m *Memory) UpdateStatus(_ context.Context, resourceID string, status models.Status, at time.Time) (models.WasteRecommendation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.recs[resourceID]
	if !ok {
		return models.WasteRecommendation{}, fmt.Errorf("recommendation %q: %w", resourceID, ErrNotFound)
	}
	rec.Status = status
	rec.UpdatedAt = at
	m.recs[resourceID] = rec
	return cloneRec(rec), nil
}

func (m *Memory) DeleteActive(_ context.Context, resourceID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.recs[resourceID]
	if !ok || rec.Status != models.StatusActive {
		return false, nil
	}
	delete(m.recs, resourceID)
	return true, nil
}

func (m *Memory) PutUsage(_ context.Context, recs []models.UsageRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range recs {
		byKey, ok := m.usage[r.ResourceID]
		if !ok {
			byKey = make(map[string]models.UsageRecord)
			m.usage[r.ResourceID] = byKey
		}
		byKey[UsageKey(r)] = r
	}
	return nil
}

func (m *Memory) UsageFor(_ context.Context, resourceID string) ([]models.UsageRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]models.UsageRecord, 0, len(m.usage[resourceID]))
	for _, r := range m.usage[resourceID] {
		out = append(out, r)
	}
	sortUsage(out)
	return out, nil
}

func (m *Memory) UsageSince(_ context.Context, since time.Time) ([]models.UsageRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []models.UsageRecord
	for _, byKey := range m.usage {
		for _, r := range byKey {
			if !r.Timestamp.Before(since) {
				out = append(out, r)
			}
		}
	}
	sortUsage(out)
	return out, nil
}

func (m *Memory) PutPrediction(_ context.Context, p models.Prediction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.predictions[p.PredictionDate] = p
	return nil
}

func (m *Memory) LatestPrediction(_ context.Context) (models.Prediction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var latest models.Prediction
	found := false
	for date, p := range m.predictions {
		if !found || date > latest.PredictionDate {
			latest, found = p, true
		}
	}
	if !found {
		return models.Prediction{}, fmt.Errorf("latest prediction: %w", ErrNotFound)
	}
	return latest, nil
}

func cloneRec(r models.WasteRecommendation) models.WasteRecommendation {
	r.Heuristics = append([]string(nil), r.Heuristics...)
	return r
}

// sortUsage orders by timestamp, then resource, then key for stable output.
func sortUsage(recs []models.UsageRecord) {
	sort.SliceStable(recs, func(i, j int) bool {
		a, b := recs[i], recs[j]
		if !a.Timestamp.Equal(b.Timestamp) {
			return a.Timestamp.Before(b.Timestamp)
		}
		if a.ResourceID != b.ResourceID {
			return a.ResourceID < b.ResourceID
		}
		return UsageKey(a) < UsageKey(b)
	})
}
