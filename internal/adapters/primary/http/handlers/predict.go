package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"model-promotion-service/internal/adapters/primary/http/dto"
	"model-promotion-service/internal/core/domain"
	"model-promotion-service/internal/feature"
)

// Predict scores one appointment. Model unavailability never fails the
// request; the response is tagged "fallback" instead.
func (h *Handler) Predict(c *gin.Context) {
	var req dto.PredictionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	features, err := feature.Vector(feature.Appointment{
		PatientID:      req.PatientID,
		Gender:         req.Gender,
		Age:            req.Age,
		ScheduledDay:   req.ScheduledDay,
		AppointmentDay: req.AppointmentDay,
		Neighbourhood:  req.Neighbourhood,
		Scholarship:    req.Scholarship,
		Hypertension:   req.Hypertension,
		Diabetes:       req.Diabetes,
		Alcoholism:     req.Alcoholism,
		Handicap:       req.Handicap,
		SMSReceived:    req.SMSReceived,
	})
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	prediction := h.servingSvc.Predict(c.Request.Context(), features)

	c.JSON(http.StatusOK, dto.PredictionResponse{
		Probability:         prediction.Probability,
		IsNoShow:            prediction.NoShow,
		ModelName:           prediction.ModelName,
		ModelVersion:        prediction.ModelVersion,
		Status:              string(prediction.Status),
		PredictionTimestamp: prediction.Timestamp.Format(time.RFC3339),
	})
}

// Reload forces a serving cache refresh, typically after a promotion.
func (h *Handler) Reload(c *gin.Context) {
	state := h.servingSvc.Reload(c.Request.Context())

	c.JSON(http.StatusOK, dto.ReloadResponse{
		Status:       string(state.Status),
		ModelName:    h.servingSvc.ModelName(),
		ModelVersion: state.VersionLabel(),
	})
}

func (h *Handler) Health(c *gin.Context) {
	state := h.servingSvc.State()

	status := "healthy"
	if state.Status != domain.ServingStatusReady {
		status = "degraded"
	}

	c.JSON(http.StatusOK, dto.HealthResponse{
		Status:        status,
		ModelLoaded:   state.Loaded(),
		ActiveVersion: state.VersionLabel(),
	})
}
