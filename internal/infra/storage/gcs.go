package storage

import (
	"context"
	"errors"
	"fmt"
	"io"

	gcs "cloud.google.com/go/storage"
	"google.golang.org/api/option"

	"enrollment-docgen/internal/domain"
	ports "enrollment-docgen/internal/domain/ports/storage"
)

var _ ports.ArtifactStore = (*GCSArtifactStore)(nil)

// GCSArtifactStore keeps generated documents in a Cloud Storage bucket.
// Writes are keyed deterministically by the caller, so re-running a job
// overwrites the same object rather than accumulating duplicates.
type GCSArtifactStore struct {
	client *gcs.Client
	bucket string
}

func NewGCSArtifactStore(ctx context.Context, bucket string, opts ...option.ClientOption) (*GCSArtifactStore, error) {
	if bucket == "" {
		return nil, errors.New("artifact bucket name is required")
	}
	client, err := gcs.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("storage client: %w", err)
	}
	return &GCSArtifactStore{client: client, bucket: bucket}, nil
}

func (s *GCSArtifactStore) Put(ctx context.Context, key string, data []byte, contentType string) error {
	w := s.client.Bucket(s.bucket).Object(key).NewWriter(ctx)
	w.ContentType = contentType
	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return fmt.Errorf("write artifact %s: %w", key, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("flush artifact %s: %w", key, err)
	}
	return nil
}

func (s *GCSArtifactStore) Get(ctx context.Context, key string) ([]byte, string, error) {
	r, err := s.client.Bucket(s.bucket).Object(key).NewReader(ctx)
	if err != nil {
		if errors.Is(err, gcs.ErrObjectNotExist) {
			return nil, "", domain.ErrNotFound
		}
		return nil, "", fmt.Errorf("open artifact %s: %w", key, err)
	}
	defer r.Close()

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, "", fmt.Errorf("read artifact %s: %w", key, err)
	}
	return data, r.Attrs.ContentType, nil
}

func (s *GCSArtifactStore) Close() error { return s.client.Close() }
