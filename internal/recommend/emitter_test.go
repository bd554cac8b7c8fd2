package recommend

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/AditiSurve17/intelligent-cloud-waste-detector/internal/models"
	"github.com/AditiSurve17/intelligent-cloud-waste-detector/internal/scoring"
	"github.com/AditiSurve17/intelligent-cloud-waste-detector/internal/store"
)

type failingStore struct{ store.RecommendationStore }

func (failingStore) Put(context.Context, models.WasteRecommendation) error {
	return errors.New("throttled")
}

func fixedEmitter(s store.RecommendationStore) *Emitter {
	e := NewEmitter(s, Options{})
	e.now = func() time.Time { return time.Date(2024, 3, 8, 12, 0, 0, 0, time.UTC) }
	return e
}

func score(signals ...models.WasteSignal) scoring.Score {
	return scoring.NewAggregator(scoring.DefaultThresholds()).Aggregate(signals)
}

func TestBuild(t *testing.T) {
	rec := models.UsageRecord{
		ResourceID: "i-1", Service: models.ServiceEC2, Region: "us-east-1",
		InstanceType: "m5.large", Cost: decimal.RequireFromString("50.00"),
	}
	s := score(
		models.WasteSignal{Heuristic: "LOW_COMPUTE_UTILIZATION", Triggered: true, Weight: 34, Rationale: "cpu low"},
		models.WasteSignal{Heuristic: "IDLE_RESOURCE"},
		models.WasteSignal{Heuristic: "REGIONAL_INEFFICIENCY", Triggered: true, Weight: 10, Rationale: "pricey region"},
	)

	got := fixedEmitter(store.NewMemory()).Build(rec, s)

	if got.Status != models.StatusActive {
		t.Errorf("status = %s", got.Status)
	}
	if got.CompositeScore != 44 || got.Priority != models.PriorityHigh {
		t.Errorf("score=%v priority=%s", got.CompositeScore, got.Priority)
	}
	// 50 * 0.44 * 30 = 660
	if !got.EstimatedMonthlySavings.Equal(decimal.RequireFromString("660")) {
		t.Errorf("savings = %s", got.EstimatedMonthlySavings)
	}
	if got.Confidence != 4.4 {
		t.Errorf("confidence = %v", got.Confidence)
	}
	if got.Rationale != "cpu low; pricey region" {
		t.Errorf("rationale = %q", got.Rationale)
	}
	if len(got.Heuristics) != 2 || got.Heuristics[1] != "REGIONAL_INEFFICIENCY" {
		t.Errorf("heuristics = %v", got.Heuristics)
	}
	if !strings.HasPrefix(got.RecommendationID, "rec-") {
		t.Errorf("id = %q", got.RecommendationID)
	}
}

func TestBuild_SavingsCappedAndConfidenceCapped(t *testing.T) {
	rec := models.UsageRecord{ResourceID: "vol-1", Cost: decimal.RequireFromString("1.111")}
	got := fixedEmitter(store.NewMemory()).Build(rec, score(
		models.WasteSignal{Heuristic: "A", Triggered: true, Weight: 150},
	))
	// min(1.5, 0.8) * 1.111 * 30 = 26.664 -> 26.66
	if !got.EstimatedMonthlySavings.Equal(decimal.RequireFromString("26.66")) {
		t.Errorf("savings = %s", got.EstimatedMonthlySavings)
	}
	if got.Confidence != 10 {
		t.Errorf("confidence = %v, want cap 10", got.Confidence)
	}
}

func TestRecommendationID_Deterministic(t *testing.T) {
	if RecommendationID("i-1") != RecommendationID("i-1") {
		t.Error("same resource must yield same id")
	}
	if RecommendationID("i-1") == RecommendationID("i-2") {
		t.Error("different resources must yield different ids")
	}
}

func TestEmit(t *testing.T) {
	mem := store.NewMemory()
	e := fixedEmitter(mem)
	rec := e.Build(models.UsageRecord{ResourceID: "i-1", Cost: decimal.NewFromInt(5)},
		score(models.WasteSignal{Heuristic: "A", Triggered: true, Weight: 25}))

	if err := e.Emit(context.Background(), rec); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := mem.Get(context.Background(), "i-1"); err != nil {
		t.Fatalf("recommendation not persisted: %v", err)
	}

	err := fixedEmitter(failingStore{}).Emit(context.Background(), rec)
	if err == nil || !strings.Contains(err.Error(), "throttled") {
		t.Fatalf("expected store error to propagate, got %v", err)
	}
}
