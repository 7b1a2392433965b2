// Package artifact fetches model artifact bytes by opaque location URI.
package artifact

import (
	"context"
	"fmt"
	"strings"

	ports "model-promotion-service/internal/core/ports/output"
)

// Store dispatches on the location scheme: "gs://" goes to Cloud Storage
// when a GCS fetcher is configured, everything else is treated as a local
// path ("file://" prefix allowed).
type Store struct {
	local *FileStore
	gcs   *GCSStore
}

func NewStore(gcs *GCSStore) *Store {
	return &Store{local: NewFileStore(), gcs: gcs}
}

func (s *Store) Fetch(ctx context.Context, location string) ([]byte, error) {
	if strings.HasPrefix(location, "gs://") {
		if s.gcs == nil {
			return nil, fmt.Errorf("gcs artifact %q requested but no gcs client configured", location)
		}
		return s.gcs.Fetch(ctx, location)
	}
	return s.local.Fetch(ctx, location)
}

var _ ports.ArtifactStore = (*Store)(nil)
