package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/AditiSurve17/intelligent-cloud-waste-detector/internal/engine"
	"github.com/AditiSurve17/intelligent-cloud-waste-detector/internal/models"
	"github.com/AditiSurve17/intelligent-cloud-waste-detector/internal/store"
	"github.com/AditiSurve17/intelligent-cloud-waste-detector/internal/terraform"
)

type rescoreRequest struct {
	ResourceID string `json:"resource_id"`
}

type statusRequest struct {
	Status string `json:"status"`
}

type recommendationsResponse struct {
	Count           int                          `json:"count"`
	Recommendations []models.WasteRecommendation `json:"recommendations"`
}

type predictionResponse struct {
	LatestPrediction models.Prediction `json:"latest_prediction"`
}

type terraformFilesResponse struct {
	TerraformFiles []terraform.File `json:"terraform_files"`
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "timestamp": s.now().UTC()})
}

func (s *Server) listRecommendations(c *gin.Context) {
	recs, err := s.deps.Recommendations.ListByStatus(c.Request.Context(), models.StatusActive)
	if err != nil {
		s.fail(c, http.StatusInternalServerError, "failed to fetch recommendations", err)
		return
	}
	if recs == nil {
		recs = []models.WasteRecommendation{}
	}
	engine.SortRecommendations(recs)
	c.JSON(http.StatusOK, recommendationsResponse{Count: len(recs), Recommendations: recs})
}

func (s *Server) rescore(c *gin.Context) {
	var req rescoreRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.fail(c, http.StatusBadRequest, "request body must be JSON with a resource_id", err)
		return
	}
	if s.deps.Rescorer == nil {
		s.fail(c, http.StatusServiceUnavailable, "rescoring is not configured", nil)
		return
	}

	res, err := s.deps.Rescorer.Rescore(c.Request.Context(), strings.TrimSpace(req.ResourceID))
	switch {
	case errors.Is(err, engine.ErrInvalidResourceID):
		s.fail(c, http.StatusBadRequest, "invalid resource_id", err)
	case errors.Is(err, engine.ErrNoUsage):
		s.fail(c, http.StatusNotFound, "no usage recorded for resource", err)
	case err != nil:
		s.fail(c, http.StatusInternalServerError, "rescore failed", err)
	default:
		c.JSON(http.StatusOK, res)
	}
}

func (s *Server) updateStatus(c *gin.Context) {
	id := c.Param("resourceID")
	if err := engine.ValidateResourceID(id); err != nil {
		s.fail(c, http.StatusBadRequest, "invalid resource id", err)
		return
	}
	var req statusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.fail(c, http.StatusBadRequest, "request body must be JSON with a status", err)
		return
	}
	status, err := models.ParseStatus(req.Status)
	if err != nil {
		s.fail(c, http.StatusBadRequest, err.Error(), err)
		return
	}

	rec, err := s.deps.Recommendations.UpdateStatus(c.Request.Context(), id, status, s.now().UTC())
	switch {
	case errors.Is(err, store.ErrNotFound):
		s.fail(c, http.StatusNotFound, "recommendation not found", err)
	case err != nil:
		s.fail(c, http.StatusInternalServerError, "status update failed", err)
	default:
		c.JSON(http.StatusOK, rec)
	}
}

func (s *Server) latestPrediction(c *gin.Context) {
	if s.deps.Predictions == nil {
		s.fail(c, http.StatusServiceUnavailable, "predictions are not configured", nil)
		return
	}
	p, err := s.deps.Predictions.LatestPrediction(c.Request.Context())
	switch {
	case errors.Is(err, store.ErrNotFound):
		s.fail(c, http.StatusNotFound, "no prediction data found", err)
	case err != nil:
		s.fail(c, http.StatusInternalServerError, "failed to fetch prediction", err)
	default:
		c.JSON(http.StatusOK, predictionResponse{LatestPrediction: p})
	}
}

func (s *Server) terraformFiles(c *gin.Context) {
	if s.deps.Terraform == nil {
		s.fail(c, http.StatusServiceUnavailable, "terraform artifacts are not configured", nil)
		return
	}
	files, err := s.deps.Terraform.ListFiles(c.Request.Context())
	if err != nil {
		s.fail(c, http.StatusInternalServerError, "failed to list files", err)
		return
	}
	c.JSON(http.StatusOK, terraformFilesResponse{TerraformFiles: files})
}

// fail writes {"error": msg}. The underlying error goes to the request log,
// not the client.
func (s *Server) fail(c *gin.Context, code int, msg string, err error) {
	if err != nil {
		_ = c.Error(err)
	}
	c.AbortWithStatusJSON(code, gin.H{"error": msg})
}
