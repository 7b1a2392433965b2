package domain

import (
	"strconv"
	"time"
)

// ServingStatus represents the state of the in-process serving cache
type ServingStatus string

const (
	ServingStatusReady    ServingStatus = "ready"
	ServingStatusFallback ServingStatus = "fallback"
	ServingStatusUnloaded ServingStatus = "unloaded"
)

// ServingState is one immutable snapshot of "what is loaded right now".
// It is published through a single atomic pointer swap so a reader either
// sees the whole previous snapshot or the whole new one, never a mix of
// the two. Fields must not be mutated after the snapshot is published.
type ServingState struct {
	ActiveVersion *ModelVersion
	Predictor     Predictor
	Status        ServingStatus
	LoadedAt      time.Time
	FailureReason string
}

// Loaded reports whether this snapshot carries a usable predictor.
func (s *ServingState) Loaded() bool {
	return s != nil && s.Status == ServingStatusReady && s.Predictor != nil
}

// VersionLabel returns the active version as a string, or "0" when no
// version is resolved (fallback identity).
func (s *ServingState) VersionLabel() string {
	if s == nil || s.ActiveVersion == nil {
		return "0"
	}
	return strconv.Itoa(s.ActiveVersion.Version)
}

// Prediction is the serving-side answer for one feature vector.
type Prediction struct {
	Probability  float64       `json:"probability"`
	NoShow       bool          `json:"no_show"`
	ModelName    string        `json:"model_name"`
	ModelVersion string        `json:"model_version"`
	Status       ServingStatus `json:"status"`
	Timestamp    time.Time     `json:"timestamp"`
}
