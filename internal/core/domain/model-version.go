package domain

import (
	"time"
)

// Stage is the lifecycle label of a model version.
type Stage string

const (
	StageUnstaged Stage = "UNSTAGED"
	StageDeployed Stage = "DEPLOYED"
	StageArchived Stage = "ARCHIVED"
)

// IsValid checks if the stage is valid
func (s Stage) IsValid() bool {
	return s == StageUnstaged || s == StageDeployed || s == StageArchived
}

// CanTransitionTo encodes the forward-only lifecycle:
// UNSTAGED -> DEPLOYED -> ARCHIVED. ARCHIVED is terminal; re-deploying an
// archived version requires registering it again as a new version.
func (s Stage) CanTransitionTo(next Stage) bool {
	switch s {
	case StageUnstaged:
		return next == StageDeployed || next == StageArchived
	case StageDeployed:
		return next == StageArchived
	default:
		return false
	}
}

// ModelVersion is one trained artifact registered under a model name.
// Version numbers are assigned by the registry store, strictly increasing
// and never reused. Metrics are fixed at registration time and never
// mutated afterward.
type ModelVersion struct {
	ModelName        string             `json:"model_name"`
	Version          int                `json:"version"`
	Stage            Stage              `json:"stage"`
	RunID            string             `json:"run_id"`
	ArtifactLocation string             `json:"artifact_location"`
	Metrics          map[string]float64 `json:"metrics"`
	Tags             map[string]string  `json:"tags,omitempty"`
	CreatedAt        time.Time          `json:"created_at"`
	UpdatedAt        time.Time          `json:"updated_at"`
}

// PromotionEvent is emitted after a version reaches DEPLOYED, for external
// systems (CI redeploy trigger, in-process cache invalidation) to act on.
type PromotionEvent struct {
	ModelName  string `json:"model_name"`
	NewVersion int    `json:"new_version"`
}
