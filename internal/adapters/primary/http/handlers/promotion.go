package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"model-promotion-service/internal/adapters/primary/http/dto"
	"model-promotion-service/internal/core/domain"
)

func (h *Handler) RegisterVersion(c *gin.Context) {
	var req dto.RegisterVersionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	version, err := h.promotionSvc.RegisterCandidate(c.Request.Context(),
		req.RunID, req.ArtifactLocation, req.Metrics, req.Tags)
	if err != nil {
		log.WithError(err).Error("register candidate failed")
		mapDomainError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.ToModelVersionResponse(version))
}

func (h *Handler) ListVersions(c *gin.Context) {
	stage := domain.Stage(c.Query("stage"))

	versions, err := h.promotionSvc.ListVersions(c.Request.Context(), stage)
	if err != nil {
		mapDomainError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"model_name": h.promotionSvc.ModelName(),
		"versions":   dto.ToModelVersionResponses(versions),
	})
}

func (h *Handler) DeployedMetrics(c *gin.Context) {
	metricValues, deployed, err := h.promotionSvc.DeployedMetrics(c.Request.Context())
	if err != nil {
		mapDomainError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.DeployedMetricsResponse{
		Deployed: deployed,
		Metrics:  metricValues,
	})
}

func (h *Handler) Promote(c *gin.Context) {
	version, err := strconv.Atoi(c.Param("version"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid version number"})
		return
	}

	var req dto.PromoteRequest
	if err := c.ShouldBindJSON(&req); err != nil && c.Request.ContentLength > 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	archiveExisting := true
	if req.ArchiveExisting != nil {
		archiveExisting = *req.ArchiveExisting
	}

	if err := h.promotionSvc.Promote(c.Request.Context(), version, archiveExisting); err != nil {
		log.WithError(err).WithField("version", version).Error("promote failed")
		mapDomainError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"model_name": h.promotionSvc.ModelName(),
		"version":    version,
		"stage":      string(domain.StageDeployed),
	})
}

// Evaluate is the single entry point for the training pipeline: register
// the run's model and promote it only when it beats the incumbent.
func (h *Handler) Evaluate(c *gin.Context) {
	var req dto.EvaluateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	metricName := req.MetricName
	if metricName == "" {
		metricName = h.targetMetric
	}
	higherIsBetter := h.higherBetter
	if req.HigherIsBetter != nil {
		higherIsBetter = *req.HigherIsBetter
	}

	promoted, err := h.promotionSvc.AutoPromoteIfBetter(c.Request.Context(),
		req.RunID, req.ArtifactLocation, req.Metrics, metricName, higherIsBetter)
	if err != nil {
		log.WithError(err).Error("promotion evaluation failed")
		mapDomainError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.EvaluateResponse{
		Promoted: promoted != nil,
		Version:  dto.ToModelVersionResponse(promoted),
	})
}
