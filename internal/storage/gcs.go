package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"cloud.google.com/go/storage"
	"google.golang.org/api/googleapi"

	"github.com/fumikura/novelmatch/internal/common"
)

// GCSStore implements ObjectStore on a Google Cloud Storage bucket. Objects
// are written non-public; read access for collaborators goes through V4
// signed URLs.
type GCSStore struct {
	bucket *storage.BucketHandle
	name   string
	logger *slog.Logger
}

func NewGCSStore(ctx context.Context, bucketName string, logger *slog.Logger) (*GCSStore, error) {
	if bucketName == "" {
		return nil, common.NewAppError(common.CodeConfigError, "bucket name must not be empty", nil)
	}
	if logger == nil {
		logger = slog.Default()
	}
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, common.NewAppError(common.CodeGCSError, "failed to create storage client", err)
	}
	return &GCSStore{
		bucket: client.Bucket(bucketName),
		name:   bucketName,
		logger: logger,
	}, nil
}

func (s *GCSStore) Put(ctx context.Context, path string, data []byte, metadata map[string]string) (string, error) {
	w := s.bucket.Object(path).NewWriter(ctx)
	w.ContentType = "application/pdf"
	w.Metadata = metadata
	// No public ACL; reads go through signed URLs.
	w.PredefinedACL = "projectPrivate"

	if _, err := io.Copy(w, bytes.NewReader(data)); err != nil {
		_ = w.Close()
		s.logger.Error("gcs write failed", "bucket", s.name, "path", path, "error", err)
		return "", common.NewAppError(common.CodeUploadFailed, "failed to write object", err)
	}
	if err := w.Close(); err != nil {
		s.logger.Error("gcs writer close failed", "bucket", s.name, "path", path, "error", err)
		return "", common.NewAppError(common.CodeUploadFailed, "failed to finalize object write", err)
	}
	return fmt.Sprintf("gs://%s/%s", s.name, path), nil
}

func (s *GCSStore) Get(ctx context.Context, path string) ([]byte, error) {
	r, err := s.bucket.Object(path).NewReader(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return nil, common.NewAppError(common.CodeNotFound, fmt.Sprintf("object %s not found", path), err)
		}
		return nil, common.NewAppError(common.CodeGCSError, "failed to open object", err)
	}
	defer r.Close()

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, common.NewAppError(common.CodeGCSError, "failed to read object", err)
	}
	return data, nil
}

func (s *GCSStore) Delete(ctx context.Context, path string) error {
	err := s.bucket.Object(path).Delete(ctx)
	if err != nil && !errors.Is(err, storage.ErrObjectNotExist) {
		var gerr *googleapi.Error
		if errors.As(err, &gerr) && gerr.Code == http.StatusNotFound {
			return nil
		}
		return common.NewAppError(common.CodeGCSError, "failed to delete object", err)
	}
	return nil
}

func (s *GCSStore) Exists(ctx context.Context, path string) (bool, error) {
	_, err := s.bucket.Object(path).Attrs(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return false, nil
	}
	if err != nil {
		return false, common.NewAppError(common.CodeGCSError, "failed to stat object", err)
	}
	return true, nil
}

func (s *GCSStore) SignedURL(_ context.Context, path string, ttl time.Duration) (string, error) {
	url, err := s.bucket.SignedURL(path, &storage.SignedURLOptions{
		Scheme:  storage.SigningSchemeV4,
		Method:  http.MethodGet,
		Expires: time.Now().Add(ttl),
	})
	if err != nil {
		return "", common.NewAppError(common.CodeGCSError, "failed to sign URL", err)
	}
	return url, nil
}
