package dto

import (
	"time"

	"model-promotion-service/internal/core/domain"
)

type RegisterVersionRequest struct {
	RunID            string             `json:"run_id" binding:"required"`
	ArtifactLocation string             `json:"artifact_location" binding:"required"`
	Metrics          map[string]float64 `json:"metrics"`
	Tags             map[string]string  `json:"tags"`
}

type PromoteRequest struct {
	ArchiveExisting *bool `json:"archive_existing"`
}

type EvaluateRequest struct {
	RunID            string             `json:"run_id" binding:"required"`
	ArtifactLocation string             `json:"artifact_location" binding:"required"`
	Metrics          map[string]float64 `json:"metrics"`
	MetricName       string             `json:"metric_name"`
	HigherIsBetter   *bool              `json:"higher_is_better"`
}

type EvaluateResponse struct {
	Promoted bool                  `json:"promoted"`
	Version  *ModelVersionResponse `json:"version,omitempty"`
}

type ModelVersionResponse struct {
	ModelName        string             `json:"model_name"`
	Version          int                `json:"version"`
	Stage            string             `json:"stage"`
	RunID            string             `json:"run_id"`
	ArtifactLocation string             `json:"artifact_location"`
	Metrics          map[string]float64 `json:"metrics"`
	Tags             map[string]string  `json:"tags,omitempty"`
	CreatedAt        time.Time          `json:"created_at"`
	UpdatedAt        time.Time          `json:"updated_at"`
}

type DeployedMetricsResponse struct {
	Deployed bool               `json:"deployed"`
	Metrics  map[string]float64 `json:"metrics,omitempty"`
}

func ToModelVersionResponse(v *domain.ModelVersion) *ModelVersionResponse {
	if v == nil {
		return nil
	}
	return &ModelVersionResponse{
		ModelName:        v.ModelName,
		Version:          v.Version,
		Stage:            string(v.Stage),
		RunID:            v.RunID,
		ArtifactLocation: v.ArtifactLocation,
		Metrics:          v.Metrics,
		Tags:             v.Tags,
		CreatedAt:        v.CreatedAt,
		UpdatedAt:        v.UpdatedAt,
	}
}

func ToModelVersionResponses(versions []*domain.ModelVersion) []*ModelVersionResponse {
	out := make([]*ModelVersionResponse, 0, len(versions))
	for _, v := range versions {
		out = append(out, ToModelVersionResponse(v))
	}
	return out
}
