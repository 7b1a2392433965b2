// Package memory provides an in-process RegistryStore for local runs and
// tests. It honors the same ordering and transition rules as the Postgres
// adapter.
package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"model-promotion-service/internal/core/domain"
	ports "model-promotion-service/internal/core/ports/output"
)

type RegistryStore struct {
	mu       sync.RWMutex
	versions map[string][]*domain.ModelVersion // model name -> ascending by version
}

func NewRegistryStore() *RegistryStore {
	return &RegistryStore{versions: make(map[string][]*domain.ModelVersion)}
}

func (s *RegistryStore) RegisterVersion(ctx context.Context, req ports.RegisterRequest) (*domain.ModelVersion, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing := s.versions[req.ModelName]
	for _, v := range existing {
		if v.RunID == req.RunID {
			return nil, domain.ErrDuplicateRun
		}
	}

	next := 1
	if n := len(existing); n > 0 {
		next = existing[n-1].Version + 1
	}

	now := time.Now().UTC()
	version := &domain.ModelVersion{
		ModelName:        req.ModelName,
		Version:          next,
		Stage:            domain.StageUnstaged,
		RunID:            req.RunID,
		ArtifactLocation: req.ArtifactLocation,
		Metrics:          copyMetrics(req.Metrics),
		Tags:             copyTags(req.Tags),
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	s.versions[req.ModelName] = append(existing, version)
	return cloneVersion(version), nil
}

func (s *RegistryStore) ListVersions(ctx context.Context, name string, stage domain.Stage) ([]*domain.ModelVersion, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*domain.ModelVersion
	for _, v := range s.versions[name] {
		if stage == "" || v.Stage == stage {
			out = append(out, cloneVersion(v))
		}
	}
	return out, nil
}

func (s *RegistryStore) GetRunMetrics(ctx context.Context, runID string) (map[string]float64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, versions := range s.versions {
		for _, v := range versions {
			if v.RunID == runID {
				return copyMetrics(v.Metrics), nil
			}
		}
	}
	return nil, domain.ErrRunNotFound
}

func (s *RegistryStore) FindByRunID(ctx context.Context, name string, runID string) (*domain.ModelVersion, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, v := range s.versions[name] {
		if v.RunID == runID {
			return cloneVersion(v), nil
		}
	}
	return nil, domain.ErrVersionNotFound
}

func (s *RegistryStore) TransitionStage(ctx context.Context, name string, version int, newStage domain.Stage) error {
	if !newStage.IsValid() {
		return domain.ErrInvalidStage
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, v := range s.versions[name] {
		if v.Version != version {
			continue
		}
		if !v.Stage.CanTransitionTo(newStage) {
			return fmt.Errorf("%w: %s -> %s", domain.ErrInvalidTransition, v.Stage, newStage)
		}
		v.Stage = newStage
		v.UpdatedAt = time.Now().UTC()
		return nil
	}
	return domain.ErrVersionNotFound
}

func cloneVersion(v *domain.ModelVersion) *domain.ModelVersion {
	c := *v
	c.Metrics = copyMetrics(v.Metrics)
	c.Tags = copyTags(v.Tags)
	return &c
}

func copyMetrics(m map[string]float64) map[string]float64 {
	out := make(map[string]float64, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func copyTags(t map[string]string) map[string]string {
	if t == nil {
		return nil
	}
	out := make(map[string]string, len(t))
	for k, v := range t {
		out[k] = v
	}
	return out
}
