package artifact

import (
	"context"
	"fmt"
	"io"
	"strings"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

// GCSStore fetches artifacts from Google Cloud Storage ("gs://bucket/key"
// locations).
type GCSStore struct {
	client *storage.Client
}

// NewGCSStore builds a client with the given service-account key file, or
// application default credentials when keyPath is empty.
func NewGCSStore(ctx context.Context, keyPath string) (*GCSStore, error) {
	var opts []option.ClientOption
	if keyPath != "" {
		opts = append(opts, option.WithCredentialsFile(keyPath))
	}
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create gcs client: %w", err)
	}
	return &GCSStore{client: client}, nil
}

func (g *GCSStore) Fetch(ctx context.Context, location string) ([]byte, error) {
	bucket, object, err := splitGCSLocation(location)
	if err != nil {
		return nil, err
	}

	reader, err := g.client.Bucket(bucket).Object(object).NewReader(ctx)
	if err != nil {
		return nil, fmt.Errorf("open gcs object %s: %w", location, err)
	}
	defer reader.Close()

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("read gcs object %s: %w", location, err)
	}
	return data, nil
}

func (g *GCSStore) Close() error {
	return g.client.Close()
}

func splitGCSLocation(location string) (bucket, object string, err error) {
	trimmed := strings.TrimPrefix(location, "gs://")
	bucket, object, ok := strings.Cut(trimmed, "/")
	if !ok || bucket == "" || object == "" {
		return "", "", fmt.Errorf("malformed gcs location %q", location)
	}
	return bucket, object, nil
}
