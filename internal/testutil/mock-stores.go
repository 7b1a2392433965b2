package testutil

import (
	"context"

	"github.com/stretchr/testify/mock"

	"model-promotion-service/internal/core/domain"
	ports "model-promotion-service/internal/core/ports/output"
)

// MockRegistryStore is a mock of RegistryStore.
type MockRegistryStore struct {
	mock.Mock
}

func (m *MockRegistryStore) RegisterVersion(ctx context.Context, req ports.RegisterRequest) (*domain.ModelVersion, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ModelVersion), args.Error(1)
}

func (m *MockRegistryStore) ListVersions(ctx context.Context, name string, stage domain.Stage) ([]*domain.ModelVersion, error) {
	args := m.Called(ctx, name, stage)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.ModelVersion), args.Error(1)
}

func (m *MockRegistryStore) GetRunMetrics(ctx context.Context, runID string) (map[string]float64, error) {
	args := m.Called(ctx, runID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]float64), args.Error(1)
}

func (m *MockRegistryStore) FindByRunID(ctx context.Context, name string, runID string) (*domain.ModelVersion, error) {
	args := m.Called(ctx, name, runID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ModelVersion), args.Error(1)
}

func (m *MockRegistryStore) TransitionStage(ctx context.Context, name string, version int, newStage domain.Stage) error {
	args := m.Called(ctx, name, version, newStage)
	return args.Error(0)
}

// MockArtifactStore is a mock of ArtifactStore.
type MockArtifactStore struct {
	mock.Mock
}

func (m *MockArtifactStore) Fetch(ctx context.Context, location string) ([]byte, error) {
	args := m.Called(ctx, location)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

// MockPromotionNotifier records promotion events.
type MockPromotionNotifier struct {
	mock.Mock
}

func (m *MockPromotionNotifier) ModelPromoted(ctx context.Context, event domain.PromotionEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}
