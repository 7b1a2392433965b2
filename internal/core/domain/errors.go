package domain

import "errors"

var (
	ErrRegistryUnavailable = errors.New("model registry is unreachable")
	ErrModelNotFound       = errors.New("registered model not found")
	ErrVersionNotFound     = errors.New("model version not found")
	ErrRunNotFound         = errors.New("training run not found")
	ErrDuplicateRun        = errors.New("run already registered as a model version")
	ErrInvalidTransition   = errors.New("stage transition violates the forward-only lifecycle")
	ErrNoModelAvailable    = errors.New("no model version available for serving")
	ErrArtifactLoadFailure = errors.New("model artifact could not be loaded")
	ErrUnrecognizedTag     = errors.New("tag key is not recognized")
	ErrInvalidStage        = errors.New("invalid stage")
)
