// Package api serves recommendations, predictions and generated Terraform
// files over HTTP.
package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/AditiSurve17/intelligent-cloud-waste-detector/internal/engine"
	"github.com/AditiSurve17/intelligent-cloud-waste-detector/internal/metrics"
	"github.com/AditiSurve17/intelligent-cloud-waste-detector/internal/store"
	"github.com/AditiSurve17/intelligent-cloud-waste-detector/internal/terraform"
)

const (
	DefaultAddr          = ":8080"
	DefaultRatePerSecond = 10
	DefaultBurst         = 20

	shutdownTimeout = 10 * time.Second
)

// Config controls the listener and the middleware chain.
type Config struct {
	Addr           string
	RatePerSecond  float64
	Burst          int
	AllowedOrigins []string
}

// Rescorer re-evaluates one resource. *engine.Pipeline satisfies it.
type Rescorer interface {
	Rescore(ctx context.Context, resourceID string) (*engine.RescoreResult, error)
}

// TerraformLister lists generated Terraform files. *terraform.Generator
// satisfies it.
type TerraformLister interface {
	ListFiles(ctx context.Context) ([]terraform.File, error)
}

// Deps are the backends behind the handlers. Predictions, Terraform and
// Metrics may be nil; the matching routes then answer 503 (or are absent
// for /metrics).
type Deps struct {
	Recommendations store.RecommendationStore
	Predictions     store.PredictionStore
	Rescorer        Rescorer
	Terraform       TerraformLister
	Metrics         *metrics.Metrics
}

// Server handles the HTTP API.
type Server struct {
	router *gin.Engine
	cfg    Config
	deps   Deps
	logger *slog.Logger
	now    func() time.Time
}

// NewServer builds the router. gin's mode is left to the caller.
func NewServer(cfg Config, deps Deps, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Addr == "" {
		cfg.Addr = DefaultAddr
	}
	if cfg.RatePerSecond <= 0 {
		cfg.RatePerSecond = DefaultRatePerSecond
	}
	if cfg.Burst <= 0 {
		cfg.Burst = DefaultBurst
	}
	if len(cfg.AllowedOrigins) == 0 {
		cfg.AllowedOrigins = []string{"*"}
	}
	s := &Server{cfg: cfg, deps: deps, logger: logger, now: time.Now}
	s.setupRouter()
	return s
}

func (s *Server) setupRouter() {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(loggingMiddleware(s.logger))
	r.Use(metricsMiddleware(s.deps.Metrics))
	r.Use(corsMiddleware(s.cfg.AllowedOrigins))
	r.Use(rateLimitMiddleware(newRateLimiter(s.cfg.RatePerSecond, s.cfg.Burst)))

	r.GET("/healthz", s.health)
	if s.deps.Metrics != nil {
		r.GET("/metrics", gin.WrapH(s.deps.Metrics.Handler()))
	}

	api := r.Group("/api")
	{
		recs := api.Group("/recommendations")
		{
			recs.GET("", s.listRecommendations)
			recs.POST("/rescore", s.rescore)
			recs.PATCH("/:resourceID/status", s.updateStatus)
		}
		api.GET("/predictions/latest", s.latestPrediction)
		api.GET("/terraform/files", s.terraformFiles)
	}

	s.router = r
}

// Handler exposes the router, mainly for httptest.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run listens on cfg.Addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("api listening", "addr", s.cfg.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("listen on %s: %w", s.cfg.Addr, err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	s.logger.Info("api stopped")
	return nil
}
