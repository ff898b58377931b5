package storage

import (
	"context"
	"path"
)

// ArtifactStore holds immutable generated documents keyed by a
// deterministically derived key, so re-processing the same job overwrites
// the same object instead of producing a second artifact.
type ArtifactStore interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
	// Get returns the stored bytes and content type, or domain.ErrNotFound.
	Get(ctx context.Context, key string) ([]byte, string, error)
}

// ArtifactKey derives the storage key for a job's document. The derivation
// is a pure function of the job id: redeliveries of the same job always
// write the same object.
func ArtifactKey(prefix, jobID string) string {
	return path.Join(prefix, jobID+".pdf")
}
