package storage

import (
	"context"
	"time"
)

// ObjectStore is the narrow contract the pipeline needs from a blob store:
// opaque put/get/delete/exists by path plus time-limited read access.
type ObjectStore interface {
	Put(ctx context.Context, path string, data []byte, metadata map[string]string) (string, error)
	Get(ctx context.Context, path string) ([]byte, error)
	Delete(ctx context.Context, path string) error
	Exists(ctx context.Context, path string) (bool, error)
	SignedURL(ctx context.Context, path string, ttl time.Duration) (string, error)
}
