package services

import (
	"context"
	"errors"
	"fmt"
	"sync"

	log "github.com/sirupsen/logrus"

	"model-promotion-service/internal/core/domain"
	ports "model-promotion-service/internal/core/ports/output"
	"model-promotion-service/internal/metrics"
)

// PromotionService registers candidate versions for one model name and
// decides whether they replace the currently deployed incumbent.
type PromotionService struct {
	store      ports.RegistryStore
	modelName  string
	recognized map[string]struct{}
	collector  *metrics.Collector

	notifierMu sync.RWMutex
	notifiers  []ports.PromotionNotifier

	// promoteMu serializes promotions for the model name so two racing
	// Promote calls cannot leave more than one version DEPLOYED. Readers
	// never take this lock.
	promoteMu sync.Mutex
}

func NewPromotionService(store ports.RegistryStore, modelName string, recognizedTags []string, collector *metrics.Collector) *PromotionService {
	var recognized map[string]struct{}
	if len(recognizedTags) > 0 {
		recognized = make(map[string]struct{}, len(recognizedTags))
		for _, k := range recognizedTags {
			recognized[k] = struct{}{}
		}
	}
	return &PromotionService{
		store:      store,
		modelName:  modelName,
		recognized: recognized,
		collector:  collector,
	}
}

// Subscribe adds a notifier called after each successful promotion.
func (s *PromotionService) Subscribe(n ports.PromotionNotifier) {
	s.notifierMu.Lock()
	defer s.notifierMu.Unlock()
	s.notifiers = append(s.notifiers, n)
}

// RegisterCandidate creates a new UNSTAGED version for the model name.
// A run that was already registered is a no-op returning the existing
// version. Metrics are fixed here and never change afterward.
func (s *PromotionService) RegisterCandidate(ctx context.Context, runID, artifactLocation string, metricValues map[string]float64, tags map[string]string) (*domain.ModelVersion, error) {
	if err := s.validateTags(tags); err != nil {
		return nil, err
	}

	if existing, err := s.store.FindByRunID(ctx, s.modelName, runID); err == nil {
		log.WithFields(log.Fields{
			"model":   s.modelName,
			"run_id":  runID,
			"version": existing.Version,
		}).Info("run already registered, returning existing version")
		return existing, nil
	} else if !errors.Is(err, domain.ErrVersionNotFound) {
		return nil, fmt.Errorf("check for existing run: %w", err)
	}

	version, err := s.store.RegisterVersion(ctx, ports.RegisterRequest{
		ModelName:        s.modelName,
		RunID:            runID,
		ArtifactLocation: artifactLocation,
		Metrics:          metricValues,
		Tags:             tags,
	})
	if err != nil {
		if errors.Is(err, domain.ErrDuplicateRun) {
			// lost a registration race for the same run
			return s.store.FindByRunID(ctx, s.modelName, runID)
		}
		return nil, fmt.Errorf("register version: %w", err)
	}

	log.WithFields(log.Fields{
		"model":   s.modelName,
		"run_id":  runID,
		"version": version.Version,
	}).Info("candidate version registered")

	return version, nil
}

// DeployedMetrics returns the metric mapping of the version currently in
// stage DEPLOYED. ok is false when no version is deployed; that is not an
// error.
func (s *PromotionService) DeployedMetrics(ctx context.Context) (map[string]float64, bool, error) {
	deployed, err := s.store.ListVersions(ctx, s.modelName, domain.StageDeployed)
	if err != nil {
		return nil, false, fmt.Errorf("list deployed versions: %w", err)
	}
	if len(deployed) == 0 {
		return nil, false, nil
	}
	// versions are ordered ascending; the invariant keeps this to one entry
	return deployed[len(deployed)-1].Metrics, true, nil
}

// IsBetter applies the comparison policy, in order:
//  1. a candidate without the target metric is never auto-promoted
//  2. no incumbent means anything measurable wins
//  3. an incumbent without the target metric cannot block promotion
//  4. otherwise a strict numeric comparison; ties are not better
func IsBetter(candidate map[string]float64, incumbent map[string]float64, incumbentPresent bool, metricName string, higherIsBetter bool) bool {
	candidateValue, ok := candidate[metricName]
	if !ok {
		return false
	}
	if !incumbentPresent {
		return true
	}
	incumbentValue, ok := incumbent[metricName]
	if !ok {
		return true
	}
	if higherIsBetter {
		return candidateValue > incumbentValue
	}
	return candidateValue < incumbentValue
}

// Promote moves a version to DEPLOYED, archiving every currently deployed
// version first when archiveExisting is set. Between the archive step and
// the deploy step the model name briefly has zero deployed versions; the
// serving side tolerates that window by falling back to the latest
// version. On a store error the registry state is unknown; callers must
// re-query before retrying.
func (s *PromotionService) Promote(ctx context.Context, version int, archiveExisting bool) error {
	s.promoteMu.Lock()
	defer s.promoteMu.Unlock()

	target, err := s.findVersion(ctx, version)
	if err != nil {
		return err
	}

	switch target.Stage {
	case domain.StageDeployed:
		// already there
		return nil
	case domain.StageArchived:
		return domain.ErrInvalidTransition
	}

	if archiveExisting {
		deployed, err := s.store.ListVersions(ctx, s.modelName, domain.StageDeployed)
		if err != nil {
			return fmt.Errorf("list deployed versions: %w", err)
		}
		for _, incumbent := range deployed {
			log.WithFields(log.Fields{
				"model":   s.modelName,
				"version": incumbent.Version,
			}).Info("archiving incumbent version")
			if err := s.store.TransitionStage(ctx, s.modelName, incumbent.Version, domain.StageArchived); err != nil {
				return fmt.Errorf("archive version %d: %w", incumbent.Version, err)
			}
		}
	}

	if err := s.store.TransitionStage(ctx, s.modelName, version, domain.StageDeployed); err != nil {
		return fmt.Errorf("deploy version %d: %w", version, err)
	}

	log.WithFields(log.Fields{
		"model":   s.modelName,
		"version": version,
	}).Info("version promoted to deployed")

	s.notifyPromoted(ctx, domain.PromotionEvent{ModelName: s.modelName, NewVersion: version})
	return nil
}

// AutoPromoteIfBetter is the single entry point after a training run:
// register the candidate, compare against the incumbent on metricName, and
// promote only when strictly better. Returns nil when the candidate stays
// UNSTAGED. A nil metricValues mapping is resolved from the run's recorded
// metrics.
func (s *PromotionService) AutoPromoteIfBetter(ctx context.Context, runID, artifactLocation string, metricValues map[string]float64, metricName string, higherIsBetter bool) (*domain.ModelVersion, error) {
	if metricValues == nil {
		var err error
		metricValues, err = s.store.GetRunMetrics(ctx, runID)
		if err != nil && !errors.Is(err, domain.ErrRunNotFound) {
			return nil, fmt.Errorf("get run metrics: %w", err)
		}
	}

	candidate, err := s.RegisterCandidate(ctx, runID, artifactLocation, metricValues, nil)
	if err != nil {
		return nil, err
	}

	incumbent, present, err := s.DeployedMetrics(ctx)
	if err != nil {
		return nil, err
	}

	if !IsBetter(candidate.Metrics, incumbent, present, metricName, higherIsBetter) {
		log.WithFields(log.Fields{
			"model":   s.modelName,
			"version": candidate.Version,
			"metric":  metricName,
		}).Info("candidate not better than incumbent, keeping it unstaged")
		s.collector.IncPromotion("rejected")
		return nil, nil
	}

	if err := s.Promote(ctx, candidate.Version, true); err != nil {
		return nil, err
	}
	s.collector.IncPromotion("promoted")

	return s.store.FindByRunID(ctx, s.modelName, runID)
}

// ListVersions exposes the registry's ordered version listing.
func (s *PromotionService) ListVersions(ctx context.Context, stage domain.Stage) ([]*domain.ModelVersion, error) {
	if stage != "" && !stage.IsValid() {
		return nil, domain.ErrInvalidStage
	}
	return s.store.ListVersions(ctx, s.modelName, stage)
}

func (s *PromotionService) ModelName() string { return s.modelName }

func (s *PromotionService) findVersion(ctx context.Context, version int) (*domain.ModelVersion, error) {
	versions, err := s.store.ListVersions(ctx, s.modelName, "")
	if err != nil {
		return nil, fmt.Errorf("list versions: %w", err)
	}
	for _, v := range versions {
		if v.Version == version {
			return v, nil
		}
	}
	return nil, domain.ErrVersionNotFound
}

func (s *PromotionService) validateTags(tags map[string]string) error {
	if s.recognized == nil {
		return nil
	}
	for key := range tags {
		if _, ok := s.recognized[key]; !ok {
			return fmt.Errorf("%w: %q", domain.ErrUnrecognizedTag, key)
		}
	}
	return nil
}

func (s *PromotionService) notifyPromoted(ctx context.Context, event domain.PromotionEvent) {
	s.notifierMu.RLock()
	notifiers := make([]ports.PromotionNotifier, len(s.notifiers))
	copy(notifiers, s.notifiers)
	s.notifierMu.RUnlock()

	for _, n := range notifiers {
		if err := n.ModelPromoted(ctx, event); err != nil {
			log.WithError(err).WithFields(log.Fields{
				"model":   event.ModelName,
				"version": event.NewVersion,
			}).Warn("promotion notifier failed")
		}
	}
}
