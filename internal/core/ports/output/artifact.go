package ports

import "context"

// ArtifactStore fetches raw model artifact bytes by location. Locations
// are opaque URIs ("/path/model.json", "file:///...", "gs://bucket/key");
// scheme dispatch is an adapter concern.
type ArtifactStore interface {
	Fetch(ctx context.Context, location string) ([]byte, error)
}
