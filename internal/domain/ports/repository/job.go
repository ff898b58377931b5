package repository

import (
	"context"
	"time"

	"enrollment-docgen/internal/domain/model"
)

// JobRepository is the record-store contract for document jobs. All status
// mutations are conditional on the currently persisted status; that
// compare-and-swap is the pipeline's only concurrency-control primitive, so
// implementations must report a lost race as domain.ErrConditionFailed and a
// missing row as domain.ErrNotFound.
type JobRepository interface {
	// Create persists a new job. Fails with domain.ErrAlreadyExists if the
	// id is taken (should not occur with generated ids).
	Create(ctx context.Context, tx Tx, job *model.DocumentJob) error

	FindByID(ctx context.Context, tx Tx, id string) (*model.DocumentJob, error)

	// MarkProcessing transitions pending -> processing. A job already in
	// processing is also accepted (redelivery re-entry after a worker
	// crash); completed/failed jobs yield domain.ErrConditionFailed along
	// with the current record.
	MarkProcessing(ctx context.Context, tx Tx, id string) (*model.DocumentJob, error)

	// MarkCompleted transitions processing -> completed, recording the
	// artifact key and completion timestamp.
	MarkCompleted(ctx context.Context, tx Tx, id, artifactKey string) error

	// MarkFailed transitions processing -> failed, recording the error
	// message and failure timestamp.
	MarkFailed(ctx context.Context, tx Tx, id, errorMessage string) error

	// ListStaleProcessing returns jobs stuck in processing whose updated_at
	// is older than the cutoff, for external reconciliation.
	ListStaleProcessing(ctx context.Context, tx Tx, olderThan time.Time, limit int) ([]*model.DocumentJob, error)
}
