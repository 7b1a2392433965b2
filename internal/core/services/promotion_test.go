package services

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"model-promotion-service/internal/adapters/secondary/memory"
	"model-promotion-service/internal/core/domain"
	"model-promotion-service/internal/testutil"
)

const testModel = "noshow-prediction-model"

func newPromotionService(t *testing.T) (*PromotionService, *memory.RegistryStore) {
	t.Helper()
	store := memory.NewRegistryStore()
	return NewPromotionService(store, testModel, nil, nil), store
}

func registerCandidate(t *testing.T, svc *PromotionService, metrics map[string]float64) *domain.ModelVersion {
	t.Helper()
	v, err := svc.RegisterCandidate(context.Background(), uuid.New().String(), "/models/m.json", metrics, nil)
	require.NoError(t, err)
	return v
}

func TestIsBetter(t *testing.T) {
	tests := []struct {
		name             string
		candidate        map[string]float64
		incumbent        map[string]float64
		incumbentPresent bool
		metric           string
		higherIsBetter   bool
		want             bool
	}{
		{"candidate missing metric", map[string]float64{}, map[string]float64{"auc": 0.8}, true, "auc", true, false},
		{"candidate missing metric, no incumbent", map[string]float64{}, nil, false, "auc", true, false},
		{"no incumbent", map[string]float64{"auc": 0.1}, nil, false, "auc", true, true},
		{"incumbent missing metric", map[string]float64{"auc": 0.1}, map[string]float64{"f1": 0.9}, true, "auc", true, true},
		{"higher wins", map[string]float64{"auc": 0.85}, map[string]float64{"auc": 0.80}, true, "auc", true, true},
		{"lower loses", map[string]float64{"auc": 0.80}, map[string]float64{"auc": 0.85}, true, "auc", true, false},
		{"tie is not better", map[string]float64{"auc": 0.80}, map[string]float64{"auc": 0.80}, true, "auc", true, false},
		{"lower wins when inverted", map[string]float64{"loss": 0.2}, map[string]float64{"loss": 0.3}, true, "loss", false, true},
		{"higher loses when inverted", map[string]float64{"loss": 0.3}, map[string]float64{"loss": 0.2}, true, "loss", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := IsBetter(tt.candidate, tt.incumbent, tt.incumbentPresent, tt.metric, tt.higherIsBetter)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPromotionService_RegisterCandidate(t *testing.T) {
	svc, _ := newPromotionService(t)

	v, err := svc.RegisterCandidate(context.Background(), "run-1", "/models/m.json",
		map[string]float64{"auc": 0.85}, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, v.Version)
	assert.Equal(t, domain.StageUnstaged, v.Stage)
	assert.Equal(t, map[string]float64{"auc": 0.85}, v.Metrics)
}

func TestPromotionService_RegisterCandidate_DuplicateRunIsNoOp(t *testing.T) {
	svc, _ := newPromotionService(t)

	first, err := svc.RegisterCandidate(context.Background(), "run-1", "/models/m.json",
		map[string]float64{"auc": 0.85}, nil)
	require.NoError(t, err)

	second, err := svc.RegisterCandidate(context.Background(), "run-1", "/models/other.json",
		map[string]float64{"auc": 0.99}, nil)
	require.NoError(t, err)
	assert.Equal(t, first.Version, second.Version)
	assert.Equal(t, 0.85, second.Metrics["auc"], "metrics are write-once")
}

func TestPromotionService_RegisterCandidate_UnrecognizedTag(t *testing.T) {
	store := memory.NewRegistryStore()
	svc := NewPromotionService(store, testModel, []string{"dataset", "git_commit"}, nil)

	_, err := svc.RegisterCandidate(context.Background(), "run-1", "/models/m.json", nil,
		map[string]string{"favourite_colour": "blue"})
	assert.ErrorIs(t, err, domain.ErrUnrecognizedTag)

	_, err = svc.RegisterCandidate(context.Background(), "run-1", "/models/m.json", nil,
		map[string]string{"dataset": "2026-q2"})
	assert.NoError(t, err)
}

func TestPromotionService_DeployedMetrics_Absent(t *testing.T) {
	svc, _ := newPromotionService(t)

	metricValues, deployed, err := svc.DeployedMetrics(context.Background())
	require.NoError(t, err)
	assert.False(t, deployed)
	assert.Nil(t, metricValues)
}

func TestPromotionService_Promote_ArchivesIncumbent(t *testing.T) {
	svc, store := newPromotionService(t)

	first := registerCandidate(t, svc, map[string]float64{"auc": 0.80})
	second := registerCandidate(t, svc, map[string]float64{"auc": 0.85})

	require.NoError(t, svc.Promote(context.Background(), first.Version, true))
	require.NoError(t, svc.Promote(context.Background(), second.Version, true))

	versions, err := store.ListVersions(context.Background(), testModel, "")
	require.NoError(t, err)
	assert.Equal(t, domain.StageArchived, versions[0].Stage)
	assert.Equal(t, domain.StageDeployed, versions[1].Stage)
}

func TestPromotionService_Promote_ArchivedIsRejected(t *testing.T) {
	svc, _ := newPromotionService(t)

	first := registerCandidate(t, svc, map[string]float64{"auc": 0.80})
	second := registerCandidate(t, svc, map[string]float64{"auc": 0.85})

	require.NoError(t, svc.Promote(context.Background(), first.Version, true))
	require.NoError(t, svc.Promote(context.Background(), second.Version, true))

	err := svc.Promote(context.Background(), first.Version, true)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
}

func TestPromotionService_Promote_AlreadyDeployedIsNoOp(t *testing.T) {
	svc, store := newPromotionService(t)

	v := registerCandidate(t, svc, map[string]float64{"auc": 0.80})
	require.NoError(t, svc.Promote(context.Background(), v.Version, true))
	require.NoError(t, svc.Promote(context.Background(), v.Version, true))

	deployed, err := store.ListVersions(context.Background(), testModel, domain.StageDeployed)
	require.NoError(t, err)
	assert.Len(t, deployed, 1)
}

func TestPromotionService_Promote_UnknownVersion(t *testing.T) {
	svc, _ := newPromotionService(t)

	err := svc.Promote(context.Background(), 42, true)
	assert.ErrorIs(t, err, domain.ErrVersionNotFound)
}

func TestPromotionService_Promote_SingleDeployedUnderConcurrency(t *testing.T) {
	svc, store := newPromotionService(t)

	const candidates = 8
	versions := make([]*domain.ModelVersion, candidates)
	for i := range versions {
		versions[i] = registerCandidate(t, svc, map[string]float64{"auc": 0.5})
	}

	var wg sync.WaitGroup
	for _, v := range versions {
		wg.Add(1)
		go func(version int) {
			defer wg.Done()
			// archived candidates lose the race; only the invariant matters
			_ = svc.Promote(context.Background(), version, true)
		}(v.Version)
	}
	wg.Wait()

	deployed, err := store.ListVersions(context.Background(), testModel, domain.StageDeployed)
	require.NoError(t, err)
	assert.Len(t, deployed, 1, "at most one version may be deployed")
}

func TestPromotionService_Promote_EmitsEvent(t *testing.T) {
	svc, _ := newPromotionService(t)
	notifier := new(testutil.MockPromotionNotifier)
	svc.Subscribe(notifier)

	v := registerCandidate(t, svc, map[string]float64{"auc": 0.80})
	notifier.On("ModelPromoted", mock.Anything, domain.PromotionEvent{
		ModelName:  testModel,
		NewVersion: v.Version,
	}).Return(nil)

	require.NoError(t, svc.Promote(context.Background(), v.Version, true))
	notifier.AssertExpectations(t)
}

func TestPromotionService_Promote_NotifierFailureIsSwallowed(t *testing.T) {
	svc, _ := newPromotionService(t)
	notifier := new(testutil.MockPromotionNotifier)
	notifier.On("ModelPromoted", mock.Anything, mock.Anything).Return(assert.AnError)
	svc.Subscribe(notifier)

	v := registerCandidate(t, svc, map[string]float64{"auc": 0.80})
	assert.NoError(t, svc.Promote(context.Background(), v.Version, true))
}

func TestPromotionService_AutoPromote_EmptyRegistry(t *testing.T) {
	svc, _ := newPromotionService(t)

	promoted, err := svc.AutoPromoteIfBetter(context.Background(), "run-1", "/models/m.json",
		map[string]float64{"auc": 0.85}, "auc", true)
	require.NoError(t, err)
	require.NotNil(t, promoted)
	assert.Equal(t, domain.StageDeployed, promoted.Stage)

	metricValues, deployed, err := svc.DeployedMetrics(context.Background())
	require.NoError(t, err)
	assert.True(t, deployed)
	assert.Equal(t, map[string]float64{"auc": 0.85}, metricValues)
}

func TestPromotionService_AutoPromote_WorseCandidateStaysUnstaged(t *testing.T) {
	svc, store := newPromotionService(t)

	incumbent, err := svc.AutoPromoteIfBetter(context.Background(), "run-1", "/models/a.json",
		map[string]float64{"auc": 0.80}, "auc", true)
	require.NoError(t, err)
	require.NotNil(t, incumbent)

	promoted, err := svc.AutoPromoteIfBetter(context.Background(), "run-2", "/models/b.json",
		map[string]float64{"auc": 0.75}, "auc", true)
	require.NoError(t, err)
	assert.Nil(t, promoted)

	deployed, err := store.ListVersions(context.Background(), testModel, domain.StageDeployed)
	require.NoError(t, err)
	require.Len(t, deployed, 1)
	assert.Equal(t, incumbent.Version, deployed[0].Version)

	candidate, err := store.FindByRunID(context.Background(), testModel, "run-2")
	require.NoError(t, err)
	assert.Equal(t, domain.StageUnstaged, candidate.Stage)
}

func TestPromotionService_AutoPromote_BetterCandidateReplacesIncumbent(t *testing.T) {
	svc, store := newPromotionService(t)

	incumbent, err := svc.AutoPromoteIfBetter(context.Background(), "run-1", "/models/a.json",
		map[string]float64{"auc": 0.80}, "auc", true)
	require.NoError(t, err)

	promoted, err := svc.AutoPromoteIfBetter(context.Background(), "run-2", "/models/b.json",
		map[string]float64{"auc": 0.85}, "auc", true)
	require.NoError(t, err)
	require.NotNil(t, promoted)

	old, err := store.FindByRunID(context.Background(), testModel, "run-1")
	require.NoError(t, err)
	assert.Equal(t, domain.StageArchived, old.Stage)
	assert.Equal(t, incumbent.Version, old.Version)
}

func TestPromotionService_AutoPromote_CandidateWithoutMetricNeverPromotes(t *testing.T) {
	svc, _ := newPromotionService(t)

	promoted, err := svc.AutoPromoteIfBetter(context.Background(), "run-1", "/models/m.json",
		map[string]float64{"f1": 0.9}, "auc", true)
	require.NoError(t, err)
	assert.Nil(t, promoted)
}

func TestPromotionService_AutoPromote_ResolvesMetricsFromRun(t *testing.T) {
	svc, _ := newPromotionService(t)

	// the run's metrics were recorded at registration; a later evaluation
	// call without an explicit mapping falls back to them
	_, err := svc.RegisterCandidate(context.Background(), "run-1", "/models/m.json",
		map[string]float64{"auc": 0.9}, nil)
	require.NoError(t, err)

	promoted, err := svc.AutoPromoteIfBetter(context.Background(), "run-1", "/models/m.json",
		nil, "auc", true)
	require.NoError(t, err)
	require.NotNil(t, promoted)
	assert.Equal(t, domain.StageDeployed, promoted.Stage)
}

func TestPromotionService_RegistryUnavailableSurfaces(t *testing.T) {
	store := new(testutil.MockRegistryStore)
	svc := NewPromotionService(store, testModel, nil, nil)

	store.On("FindByRunID", mock.Anything, testModel, "run-1").Return(nil, domain.ErrRegistryUnavailable)

	_, err := svc.RegisterCandidate(context.Background(), "run-1", "/models/m.json", nil, nil)
	assert.ErrorIs(t, err, domain.ErrRegistryUnavailable)
}
