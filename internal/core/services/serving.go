package services

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"model-promotion-service/internal/config"
	"model-promotion-service/internal/core/domain"
	ports "model-promotion-service/internal/core/ports/output"
	"model-promotion-service/internal/metrics"
)

// ServingService is the serving-side model cache. It resolves the active
// version against the registry, loads its artifact into a predictor, and
// answers predictions from an immutable snapshot that is replaced with one
// atomic pointer swap. Serving never fails a request because no model is
// loaded; it degrades to a tagged fallback response instead.
type ServingService struct {
	store     ports.RegistryStore
	artifacts ports.ArtifactStore
	modelName string
	collector *metrics.Collector

	ttl         time.Duration
	loadTimeout time.Duration
	threshold   float64

	state   atomic.Pointer[domain.ServingState]
	reloads singleflight.Group
}

func NewServingService(store ports.RegistryStore, artifacts ports.ArtifactStore, modelName string, cfg config.ServingConfig, collector *metrics.Collector) *ServingService {
	s := &ServingService{
		store:       store,
		artifacts:   artifacts,
		modelName:   modelName,
		collector:   collector,
		ttl:         cfg.ReloadTTL,
		loadTimeout: cfg.ArtifactTimeout,
		threshold:   cfg.PositiveThreshold,
	}
	if s.threshold == 0 {
		s.threshold = 0.5
	}
	s.state.Store(&domain.ServingState{Status: domain.ServingStatusUnloaded})
	return s
}

// ResolveActiveVersion returns the version this process should serve: the
// DEPLOYED version when one exists, otherwise the highest-numbered version
// in any stage (degraded, logged), otherwise ErrNoModelAvailable.
func (s *ServingService) ResolveActiveVersion(ctx context.Context) (*domain.ModelVersion, error) {
	deployed, err := s.store.ListVersions(ctx, s.modelName, domain.StageDeployed)
	if err != nil {
		return nil, fmt.Errorf("list deployed versions: %w", err)
	}
	if len(deployed) > 0 {
		return deployed[len(deployed)-1], nil
	}

	all, err := s.store.ListVersions(ctx, s.modelName, "")
	if err != nil {
		return nil, fmt.Errorf("list versions: %w", err)
	}
	if len(all) > 0 {
		latest := all[len(all)-1]
		log.WithFields(log.Fields{
			"model":   s.modelName,
			"version": latest.Version,
			"stage":   latest.Stage,
		}).Warn("no deployed version, serving latest registered version")
		return latest, nil
	}

	return nil, domain.ErrNoModelAvailable
}

// Reload resolves the active version, loads its artifact and publishes a
// new snapshot. Concurrent calls collapse into one load; only the last
// completed swap is observable. A failed reload never downgrades a usable
// snapshot: the previous predictor stays in place, and FALLBACK is
// published only when nothing valid was ever loaded.
func (s *ServingService) Reload(ctx context.Context) *domain.ServingState {
	v, _, _ := s.reloads.Do("reload", func() (interface{}, error) {
		return s.doReload(ctx), nil
	})
	return v.(*domain.ServingState)
}

func (s *ServingService) doReload(ctx context.Context) *domain.ServingState {
	resolved, err := s.ResolveActiveVersion(ctx)
	if err != nil {
		return s.keepOrFallback(err)
	}

	prev := s.state.Load()
	if prev.Loaded() && prev.ActiveVersion.Version == resolved.Version {
		// same version; refresh the snapshot age without re-reading the artifact
		next := &domain.ServingState{
			ActiveVersion: resolved,
			Predictor:     prev.Predictor,
			Status:        domain.ServingStatusReady,
			LoadedAt:      time.Now().UTC(),
		}
		s.state.Store(next)
		s.collector.IncReload("unchanged")
		return next
	}

	loadCtx, cancel := context.WithTimeout(ctx, s.loadTimeout)
	defer cancel()

	data, err := s.artifacts.Fetch(loadCtx, resolved.ArtifactLocation)
	if err != nil {
		return s.keepOrFallback(fmt.Errorf("%w: %v", domain.ErrArtifactLoadFailure, err))
	}
	predictor, err := domain.ParseLogisticModel(data)
	if err != nil {
		return s.keepOrFallback(fmt.Errorf("%w: %v", domain.ErrArtifactLoadFailure, err))
	}

	next := &domain.ServingState{
		ActiveVersion: resolved,
		Predictor:     predictor,
		Status:        domain.ServingStatusReady,
		LoadedAt:      time.Now().UTC(),
	}
	s.state.Store(next)
	s.collector.IncReload("loaded")
	s.collector.SetActiveVersion(resolved.Version)

	log.WithFields(log.Fields{
		"model":   s.modelName,
		"version": resolved.Version,
		"stage":   resolved.Stage,
	}).Info("model loaded")

	return next
}

// keepOrFallback handles a failed resolve/load: a usable previous snapshot
// is retained untouched, otherwise a FALLBACK snapshot records the reason.
func (s *ServingService) keepOrFallback(cause error) *domain.ServingState {
	s.collector.IncReload("failed")

	prev := s.state.Load()
	if prev.Loaded() {
		log.WithError(cause).WithField("model", s.modelName).
			Warn("reload failed, keeping previously loaded model")
		return prev
	}

	next := &domain.ServingState{
		ActiveVersion: prev.ActiveVersion,
		Status:        domain.ServingStatusFallback,
		LoadedAt:      time.Now().UTC(),
		FailureReason: cause.Error(),
	}
	s.state.Store(next)
	log.WithError(cause).WithField("model", s.modelName).
		Warn("reload failed with no model loaded, serving fallback")
	return next
}

// Predict scores one feature vector against the current snapshot. When no
// predictor is loaded the response is the documented neutral default
// (probability 0.5, negative label) tagged with the fallback identity.
func (s *ServingService) Predict(ctx context.Context, features map[string]float64) domain.Prediction {
	start := time.Now()

	s.maybeReload(ctx)

	// single atomic read; everything below works on this snapshot
	snap := s.state.Load()

	if !snap.Loaded() {
		s.collector.ObservePrediction(string(domain.ServingStatusFallback), time.Since(start))
		return s.fallbackPrediction(snap)
	}

	probability, err := snap.Predictor.Predict(features)
	if err != nil {
		log.WithError(err).WithField("model", s.modelName).Warn("predictor failed, serving fallback")
		s.collector.ObservePrediction(string(domain.ServingStatusFallback), time.Since(start))
		return s.fallbackPrediction(snap)
	}

	s.collector.ObservePrediction(string(domain.ServingStatusReady), time.Since(start))
	return domain.Prediction{
		Probability:  probability,
		NoShow:       probability > s.threshold,
		ModelName:    s.modelName,
		ModelVersion: snap.VersionLabel(),
		Status:       domain.ServingStatusReady,
		Timestamp:    time.Now().UTC(),
	}
}

// State returns the current snapshot for health reporting.
func (s *ServingService) State() *domain.ServingState {
	return s.state.Load()
}

func (s *ServingService) ModelName() string { return s.modelName }

// ModelPromoted makes the serving cache a PromotionNotifier: an in-process
// promotion invalidates the cache immediately instead of waiting out the
// TTL.
func (s *ServingService) ModelPromoted(ctx context.Context, event domain.PromotionEvent) error {
	if event.ModelName != s.modelName {
		return nil
	}
	s.Reload(ctx)
	return nil
}

// maybeReload enforces the staleness bound: a snapshot older than the TTL
// (or never loaded) is refreshed before serving. TTL zero reloads before
// every prediction.
func (s *ServingService) maybeReload(ctx context.Context) {
	snap := s.state.Load()
	if snap.Status == domain.ServingStatusUnloaded ||
		s.ttl == 0 ||
		time.Since(snap.LoadedAt) > s.ttl {
		s.Reload(ctx)
	}
}

func (s *ServingService) fallbackPrediction(snap *domain.ServingState) domain.Prediction {
	return domain.Prediction{
		Probability:  0.5,
		NoShow:       false,
		ModelName:    s.modelName,
		ModelVersion: snap.VersionLabel(),
		Status:       domain.ServingStatusFallback,
		Timestamp:    time.Now().UTC(),
	}
}
