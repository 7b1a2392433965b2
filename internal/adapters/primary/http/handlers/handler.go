package handlers

import (
	"model-promotion-service/internal/core/services"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	promotionSvc *services.PromotionService
	servingSvc   *services.ServingService
	targetMetric string
	higherBetter bool
}

func New(promotionSvc *services.PromotionService, servingSvc *services.ServingService, targetMetric string, higherBetter bool) *Handler {
	return &Handler{
		promotionSvc: promotionSvc,
		servingSvc:   servingSvc,
		targetMetric: targetMetric,
		higherBetter: higherBetter,
	}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	// Serving
	r.POST("/predict", h.Predict)
	r.POST("/reload", h.Reload)
	r.GET("/health", h.Health)

	// Promotion
	r.POST("/versions", h.RegisterVersion)
	r.GET("/versions", h.ListVersions)
	r.GET("/versions/deployed/metrics", h.DeployedMetrics)
	r.POST("/versions/:version/promote", h.Promote)
	r.POST("/promotions/evaluate", h.Evaluate)
}
