package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"model-promotion-service/internal/core/domain"
	ports "model-promotion-service/internal/core/ports/output"
)

func register(t *testing.T, s *RegistryStore, name, runID string) *domain.ModelVersion {
	t.Helper()
	v, err := s.RegisterVersion(context.Background(), ports.RegisterRequest{
		ModelName:        name,
		RunID:            runID,
		ArtifactLocation: "/models/m.json",
		Metrics:          map[string]float64{"auc": 0.8},
	})
	require.NoError(t, err)
	return v
}

func TestRegistryStore_VersionNumbersIncrease(t *testing.T) {
	s := NewRegistryStore()

	first := register(t, s, "m", "run-1")
	second := register(t, s, "m", "run-2")

	assert.Equal(t, 1, first.Version)
	assert.Equal(t, 2, second.Version)
	assert.Equal(t, domain.StageUnstaged, first.Stage)
}

func TestRegistryStore_DuplicateRun(t *testing.T) {
	s := NewRegistryStore()
	register(t, s, "m", "run-1")

	_, err := s.RegisterVersion(context.Background(), ports.RegisterRequest{
		ModelName: "m",
		RunID:     "run-1",
	})
	assert.ErrorIs(t, err, domain.ErrDuplicateRun)
}

func TestRegistryStore_ListVersionsOrderedAndFiltered(t *testing.T) {
	s := NewRegistryStore()
	register(t, s, "m", "run-1")
	register(t, s, "m", "run-2")
	register(t, s, "m", "run-3")
	require.NoError(t, s.TransitionStage(context.Background(), "m", 2, domain.StageDeployed))

	all, err := s.ListVersions(context.Background(), "m", "")
	require.NoError(t, err)
	require.Len(t, all, 3)
	for i, v := range all {
		assert.Equal(t, i+1, v.Version, "ascending version order")
	}

	deployed, err := s.ListVersions(context.Background(), "m", domain.StageDeployed)
	require.NoError(t, err)
	require.Len(t, deployed, 1)
	assert.Equal(t, 2, deployed[0].Version)
}

func TestRegistryStore_TransitionRules(t *testing.T) {
	s := NewRegistryStore()
	register(t, s, "m", "run-1")

	require.NoError(t, s.TransitionStage(context.Background(), "m", 1, domain.StageDeployed))
	require.NoError(t, s.TransitionStage(context.Background(), "m", 1, domain.StageArchived))

	err := s.TransitionStage(context.Background(), "m", 1, domain.StageDeployed)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)

	err = s.TransitionStage(context.Background(), "m", 9, domain.StageDeployed)
	assert.ErrorIs(t, err, domain.ErrVersionNotFound)

	err = s.TransitionStage(context.Background(), "m", 1, domain.Stage("PRODUCTION"))
	assert.ErrorIs(t, err, domain.ErrInvalidStage)
}

func TestRegistryStore_GetRunMetrics(t *testing.T) {
	s := NewRegistryStore()
	register(t, s, "m", "run-1")

	metrics, err := s.GetRunMetrics(context.Background(), "run-1")
	require.NoError(t, err)
	assert.Equal(t, map[string]float64{"auc": 0.8}, metrics)

	_, err = s.GetRunMetrics(context.Background(), "run-9")
	assert.ErrorIs(t, err, domain.ErrRunNotFound)
}

func TestRegistryStore_ReturnsCopies(t *testing.T) {
	s := NewRegistryStore()
	v := register(t, s, "m", "run-1")

	// mutating a returned version must not leak into the store
	v.Metrics["auc"] = 0.1
	v.Stage = domain.StageDeployed

	stored, err := s.FindByRunID(context.Background(), "m", "run-1")
	require.NoError(t, err)
	assert.Equal(t, 0.8, stored.Metrics["auc"])
	assert.Equal(t, domain.StageUnstaged, stored.Stage)
}
