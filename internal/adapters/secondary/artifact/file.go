package artifact

import (
	"context"
	"fmt"
	"os"
	"strings"
)

// FileStore reads artifacts from the local filesystem.
type FileStore struct{}

func NewFileStore() *FileStore {
	return &FileStore{}
}

func (f *FileStore) Fetch(ctx context.Context, location string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path := strings.TrimPrefix(location, "file://")
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read artifact %s: %w", path, err)
	}
	return data, nil
}
