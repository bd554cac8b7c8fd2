package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AditiSurve17/intelligent-cloud-waste-detector/internal/engine"
	"github.com/AditiSurve17/intelligent-cloud-waste-detector/internal/metrics"
	"github.com/AditiSurve17/intelligent-cloud-waste-detector/internal/models"
	"github.com/AditiSurve17/intelligent-cloud-waste-detector/internal/store"
	"github.com/AditiSurve17/intelligent-cloud-waste-detector/internal/terraform"
)

func init() {
	gin.SetMode(gin.TestMode)
}

var t0 = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

type stubRescorer struct {
	got string
	res *engine.RescoreResult
	err error
}

func (s *stubRescorer) Rescore(_ context.Context, id string) (*engine.RescoreResult, error) {
	s.got = id
	return s.res, s.err
}

type stubLister struct {
	files []terraform.File
	err   error
}

func (s stubLister) ListFiles(context.Context) ([]terraform.File, error) {
	return s.files, s.err
}

// failingStore breaks every recommendation call.
type failingStore struct{ store.RecommendationStore }

func (failingStore) ListByStatus(context.Context, models.Status) ([]models.WasteRecommendation, error) {
	return nil, errors.New("table unavailable")
}

func (failingStore) UpdateStatus(context.Context, string, models.Status, time.Time) (models.WasteRecommendation, error) {
	return models.WasteRecommendation{}, errors.New("table unavailable")
}

func rec(id string, p models.Priority, savings string, status models.Status) models.WasteRecommendation {
	return models.WasteRecommendation{
		RecommendationID:        "rec-" + id,
		ResourceID:              id,
		Service:                 models.ServiceEC2,
		Region:                  "us-east-1",
		Priority:                p,
		CompositeScore:          25,
		EstimatedMonthlySavings: decimal.RequireFromString(savings),
		CurrentCost:             decimal.RequireFromString("10"),
		Heuristics:              []string{"low_compute_utilization"},
		Status:                  status,
		CreatedAt:               t0,
		UpdatedAt:               t0,
	}
}

func newTestServer(t *testing.T, deps Deps, cfg Config) *Server {
	t.Helper()
	s := NewServer(cfg, deps, slog.New(slog.NewTextHandler(io.Discard, nil)))
	s.now = func() time.Time { return t0.Add(time.Hour) }
	return s
}

func do(s *Server, method, path, body string) *httptest.ResponseRecorder {
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	return w
}

func TestListRecommendations(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	require.NoError(t, mem.Put(ctx, rec("i-low", models.PriorityLow, "50", models.StatusActive)))
	require.NoError(t, mem.Put(ctx, rec("i-high", models.PriorityHigh, "5", models.StatusActive)))
	require.NoError(t, mem.Put(ctx, rec("i-gone", models.PriorityHigh, "99", models.StatusTerminated)))

	s := newTestServer(t, Deps{Recommendations: mem}, Config{})
	w := do(s, http.MethodGet, "/api/recommendations", "")
	require.Equal(t, http.StatusOK, w.Code)

	var body recommendationsResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, 2, body.Count)
	require.Len(t, body.Recommendations, 2)
	assert.Equal(t, "i-high", body.Recommendations[0].ResourceID)
	assert.Equal(t, "i-low", body.Recommendations[1].ResourceID)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestListRecommendations_EmptyIsArray(t *testing.T) {
	s := newTestServer(t, Deps{Recommendations: store.NewMemory()}, Config{})
	w := do(s, http.MethodGet, "/api/recommendations", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"count":0,"recommendations":[]}`, w.Body.String())
}

func TestListRecommendations_StoreFailure(t *testing.T) {
	s := newTestServer(t, Deps{Recommendations: failingStore{}}, Config{})
	w := do(s, http.MethodGet, "/api/recommendations", "")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "table unavailable")
}

func TestRescore(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		rescorer *stubRescorer
		want     int
	}{
		{
			name:     "ok",
			body:     `{"resource_id":" i-1 "}`,
			rescorer: &stubRescorer{res: &engine.RescoreResult{Recommendation: rec("i-1", models.PriorityHigh, "9", models.StatusActive), Persisted: true}},
			want:     http.StatusOK,
		},
		{name: "malformed json", body: `{"resource_id":`, rescorer: &stubRescorer{}, want: http.StatusBadRequest},
		{
			name:     "invalid id",
			body:     `{"resource_id":"bad id"}`,
			rescorer: &stubRescorer{err: fmt.Errorf("%w: %q", engine.ErrInvalidResourceID, "bad id")},
			want:     http.StatusBadRequest,
		},
		{
			name:     "no usage",
			body:     `{"resource_id":"i-2"}`,
			rescorer: &stubRescorer{err: fmt.Errorf("%w: %q", engine.ErrNoUsage, "i-2")},
			want:     http.StatusNotFound,
		},
		{
			name:     "store failure",
			body:     `{"resource_id":"i-3"}`,
			rescorer: &stubRescorer{err: errors.New("write failed")},
			want:     http.StatusInternalServerError,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t, Deps{Recommendations: store.NewMemory(), Rescorer: tt.rescorer}, Config{})
			w := do(s, http.MethodPost, "/api/recommendations/rescore", tt.body)
			assert.Equal(t, tt.want, w.Code, w.Body.String())
			if tt.want == http.StatusOK {
				assert.Equal(t, "i-1", tt.rescorer.got)
				var res engine.RescoreResult
				require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
				assert.True(t, res.Persisted)
				assert.Equal(t, "rec-i-1", res.Recommendation.RecommendationID)
			} else {
				assert.Contains(t, w.Body.String(), `"error"`)
			}
		})
	}
}

func TestRescore_NotConfigured(t *testing.T) {
	s := newTestServer(t, Deps{Recommendations: store.NewMemory()}, Config{})
	w := do(s, http.MethodPost, "/api/recommendations/rescore", `{"resource_id":"i-1"}`)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestUpdateStatus(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	require.NoError(t, mem.Put(ctx, rec("i-1", models.PriorityHigh, "9", models.StatusActive)))
	s := newTestServer(t, Deps{Recommendations: mem}, Config{})

	w := do(s, http.MethodPatch, "/api/recommendations/i-1/status", `{"status":"terminated"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var got models.WasteRecommendation
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, models.StatusTerminated, got.Status)
	assert.True(t, got.UpdatedAt.Equal(t0.Add(time.Hour)))

	stored, err := mem.Get(ctx, "i-1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusTerminated, stored.Status)

	t.Run("unknown status", func(t *testing.T) {
		w := do(s, http.MethodPatch, "/api/recommendations/i-1/status", `{"status":"deleted"}`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
	t.Run("missing recommendation", func(t *testing.T) {
		w := do(s, http.MethodPatch, "/api/recommendations/i-404/status", `{"status":"dismissed"}`)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
	t.Run("store failure", func(t *testing.T) {
		s := newTestServer(t, Deps{Recommendations: failingStore{}}, Config{})
		w := do(s, http.MethodPatch, "/api/recommendations/i-1/status", `{"status":"dismissed"}`)
		assert.Equal(t, http.StatusInternalServerError, w.Code)
	})
}

func TestLatestPrediction(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	s := newTestServer(t, Deps{Recommendations: mem, Predictions: mem}, Config{})

	w := do(s, http.MethodGet, "/api/predictions/latest", "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	require.NoError(t, mem.PutPrediction(ctx, models.Prediction{PredictionDate: "2024-03-01", EnsemblePrediction: 3.1}))
	require.NoError(t, mem.PutPrediction(ctx, models.Prediction{PredictionDate: "2024-03-02", EnsemblePrediction: 4.2}))

	w = do(s, http.MethodGet, "/api/predictions/latest", "")
	require.Equal(t, http.StatusOK, w.Code)
	var body predictionResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "2024-03-02", body.LatestPrediction.PredictionDate)
	assert.InDelta(t, 4.2, body.LatestPrediction.EnsemblePrediction, 1e-9)
}

func TestTerraformFiles(t *testing.T) {
	files := []terraform.File{{Filename: "a.tf", Path: "terraform-scripts/a.tf", URL: "https://b.s3.amazonaws.com/terraform-scripts/a.tf"}}

	s := newTestServer(t, Deps{Recommendations: store.NewMemory(), Terraform: stubLister{files: files}}, Config{})
	w := do(s, http.MethodGet, "/api/terraform/files", "")
	require.Equal(t, http.StatusOK, w.Code)
	var body terraformFilesResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, files[0].Path, body.TerraformFiles[0].Path)

	s = newTestServer(t, Deps{Recommendations: store.NewMemory(), Terraform: stubLister{err: errors.New("denied")}}, Config{})
	assert.Equal(t, http.StatusInternalServerError, do(s, http.MethodGet, "/api/terraform/files", "").Code)

	s = newTestServer(t, Deps{Recommendations: store.NewMemory()}, Config{})
	assert.Equal(t, http.StatusServiceUnavailable, do(s, http.MethodGet, "/api/terraform/files", "").Code)
}

func TestCORS(t *testing.T) {
	s := newTestServer(t, Deps{Recommendations: store.NewMemory()}, Config{AllowedOrigins: []string{"https://dash.example.com"}})

	req := httptest.NewRequest(http.MethodOptions, "/api/recommendations", nil)
	req.Header.Set("Origin", "https://dash.example.com")
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "https://dash.example.com", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, w.Header().Get("Access-Control-Allow-Methods"), "PATCH")

	req = httptest.NewRequest(http.MethodGet, "/api/recommendations", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	w = httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}

func TestRateLimit(t *testing.T) {
	s := newTestServer(t, Deps{Recommendations: store.NewMemory()}, Config{RatePerSecond: 0.001, Burst: 2})

	assert.Equal(t, http.StatusOK, do(s, http.MethodGet, "/healthz", "").Code)
	assert.Equal(t, http.StatusOK, do(s, http.MethodGet, "/healthz", "").Code)
	w := do(s, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "1", w.Header().Get("Retry-After"))
}

func TestMetricsEndpoint(t *testing.T) {
	m := metrics.New()
	s := newTestServer(t, Deps{Recommendations: store.NewMemory(), Metrics: m}, Config{})

	require.Equal(t, http.StatusOK, do(s, http.MethodGet, "/api/recommendations", "").Code)
	w := do(s, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `route="/api/recommendations"`)

	s = newTestServer(t, Deps{Recommendations: store.NewMemory()}, Config{})
	assert.Equal(t, http.StatusNotFound, do(s, http.MethodGet, "/metrics", "").Code)
}
