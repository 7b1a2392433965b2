package ports

import (
	"context"

	"model-promotion-service/internal/core/domain"
)

// RegisterRequest carries everything fixed at registration time. Metrics
// are copied by the store and never mutated afterward.
type RegisterRequest struct {
	ModelName        string
	RunID            string
	ArtifactLocation string
	Metrics          map[string]float64
	Tags             map[string]string
}

// RegistryStore is the narrow contract the core consumes against the
// versioned model store. The store is the single source of truth across
// serving processes; this core adds no cross-process coordination on top.
//
// Implementations must guarantee that ListVersions returns versions in
// ascending version order, so "latest" is always the last element and
// never the result of an unordered search-then-max.
type RegistryStore interface {
	// RegisterVersion creates a new version in stage UNSTAGED with the
	// next available version number for the model name. Returns
	// domain.ErrDuplicateRun if the run was already registered.
	RegisterVersion(ctx context.Context, req RegisterRequest) (*domain.ModelVersion, error)

	// ListVersions returns all versions for the model name, oldest first.
	// A non-empty stage restricts the result to that stage.
	ListVersions(ctx context.Context, name string, stage domain.Stage) ([]*domain.ModelVersion, error)

	// GetRunMetrics returns the metric mapping recorded for a run.
	GetRunMetrics(ctx context.Context, runID string) (map[string]float64, error)

	// FindByRunID returns the version registered for a run, or
	// domain.ErrVersionNotFound.
	FindByRunID(ctx context.Context, name string, runID string) (*domain.ModelVersion, error)

	// TransitionStage moves a version to a new stage. Returns
	// domain.ErrInvalidTransition when the move violates the forward-only
	// lifecycle and domain.ErrVersionNotFound for unknown versions.
	TransitionStage(ctx context.Context, name string, version int, newStage domain.Stage) error
}
