package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"enrollment-docgen/internal/domain"
	"enrollment-docgen/internal/domain/model"
	"enrollment-docgen/internal/domain/ports/repository"
)

var _ repository.JobRepository = (*jobRepo)(nil)

type jobRepo struct {
	pool *pgxpool.Pool
}

func NewJobRepo(pool *pgxpool.Pool) *jobRepo {
	return &jobRepo{pool: pool}
}

const jobColumns = `id, student_id, status, artifact_key, error_message, created_at, updated_at, completed_at, failed_at`

func (r *jobRepo) Create(ctx context.Context, tx repository.Tx, job *model.DocumentJob) error {
	const q = `
INSERT INTO document_jobs (id, student_id, status, artifact_key, error_message, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7);`

	_, err := execSQL(ctx, r.pool, tx, q,
		job.ID, job.StudentID, string(job.Status), job.ArtifactKey, job.ErrorMessage, job.CreatedAt, job.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return domain.ErrAlreadyExists
		}
		return err
	}
	return nil
}

func (r *jobRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.DocumentJob, error) {
	row, err := pickRow(ctx, r.pool, tx, `SELECT `+jobColumns+` FROM document_jobs WHERE id = $1;`, id)
	if err != nil {
		return nil, err
	}
	return scanJob(row)
}

// MarkProcessing is the idempotency guard: the CAS admits pending jobs and
// re-admits processing ones (redelivery after a crashed worker), while
// terminal jobs lose the condition and surface ErrConditionFailed.
func (r *jobRepo) MarkProcessing(ctx context.Context, tx repository.Tx, id string) (*model.DocumentJob, error) {
	const q = `
UPDATE document_jobs
SET status = 'processing', updated_at = $2
WHERE id = $1 AND status IN ('pending', 'processing')
RETURNING ` + jobColumns + `;`

	row, err := pickRow(ctx, r.pool, tx, q, id, time.Now())
	if err != nil {
		return nil, err
	}
	job, err := scanJob(row)
	if err == nil {
		return job, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}
	// Zero rows updated: either the job does not exist or it is terminal.
	current, ferr := r.FindByID(ctx, tx, id)
	if ferr != nil {
		return nil, ferr
	}
	return current, domain.ErrConditionFailed
}

func (r *jobRepo) MarkCompleted(ctx context.Context, tx repository.Tx, id, artifactKey string) error {
	const q = `
UPDATE document_jobs
SET status = 'completed', artifact_key = $2, completed_at = $3, updated_at = $3
WHERE id = $1 AND status = 'processing';`

	return r.conditionalTerminal(ctx, tx, q, id, artifactKey)
}

func (r *jobRepo) MarkFailed(ctx context.Context, tx repository.Tx, id, errorMessage string) error {
	const q = `
UPDATE document_jobs
SET status = 'failed', error_message = $2, failed_at = $3, updated_at = $3
WHERE id = $1 AND status = 'processing';`

	return r.conditionalTerminal(ctx, tx, q, id, errorMessage)
}

func (r *jobRepo) conditionalTerminal(ctx context.Context, tx repository.Tx, q, id, payload string) error {
	cmd, err := execSQL(ctx, r.pool, tx, q, id, payload, time.Now())
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		if _, ferr := r.FindByID(ctx, tx, id); ferr != nil {
			return ferr
		}
		return domain.ErrConditionFailed
	}
	return nil
}

func (r *jobRepo) ListStaleProcessing(ctx context.Context, tx repository.Tx, olderThan time.Time, limit int) ([]*model.DocumentJob, error) {
	const q = `
SELECT ` + jobColumns + `
FROM document_jobs
WHERE status = 'processing' AND updated_at < $1
ORDER BY updated_at
LIMIT $2
FOR UPDATE SKIP LOCKED;`

	rows, err := pickRows(ctx, r.pool, tx, q, olderThan, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var jobs []*model.DocumentJob
	for rows.Next() {
		job, err := scanJobValues(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

func scanJob(row pgx.Row) (*model.DocumentJob, error) {
	job, err := scanJobValues(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return job, nil
}

func scanJobValues(row interface {
	Scan(dest ...interface{}) error
}) (*model.DocumentJob, error) {
	var (
		job       model.DocumentJob
		statusStr string
	)
	err := row.Scan(
		&job.ID, &job.StudentID, &statusStr, &job.ArtifactKey, &job.ErrorMessage,
		&job.CreatedAt, &job.UpdatedAt, &job.CompletedAt, &job.FailedAt,
	)
	if err != nil {
		return nil, err
	}
	job.Status = model.JobStatus(statusStr)
	return &job, nil
}
