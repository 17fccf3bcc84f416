package storage

import (
	"context"
	"fmt"
	"io"

	"github.com/pasticeri/api/internal/config"
	"github.com/pasticeri/api/internal/enum"
)

// PublicPrefix is the URL path under which stored files are served.
const PublicPrefix = "/uploads/"

// Storage persists uploaded media and returns the URL it is reachable at.
// Remove deletes a file by the URL Store returned; a missing file is not an error.
type Storage interface {
	Store(ctx context.Context, name, contentType string, r io.Reader) (string, error)
	Remove(ctx context.Context, url string) error
}

// FromConfig builds the storage backend selected by cfg.Backend.
func FromConfig(cfg config.StorageConfig) (Storage, error) {
	switch cfg.Backend {
	case "", enum.StorageBackendLocal:
		local, err := NewLocalBackend(cfg.UploadDir)
		if err != nil {
			return nil, fmt.Errorf("storage: local backend: %w", err)
		}
		return local, nil
	case enum.StorageBackendNoop:
		return NewNoopBackend(), nil
	default:
		return nil, fmt.Errorf("storage: unsupported backend %q", cfg.Backend)
	}
}
