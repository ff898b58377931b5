package usecase

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"enrollment-docgen/internal/domain"
	"enrollment-docgen/internal/domain/model"
	"enrollment-docgen/internal/domain/ports/queue"
	"enrollment-docgen/internal/domain/ports/repository"
	"enrollment-docgen/internal/infra/logging"
	"enrollment-docgen/internal/infra/metrics"
)

// Compile-time check
var _ SubmissionUseCase = (*submissionUC)(nil)

type SubmissionUseCase interface {
	// Submit creates a pending job for the student and enqueues it for
	// processing. Returns immediately; callers poll for the outcome.
	Submit(ctx context.Context, studentID string) (*model.DocumentJob, error)
}

type submissionUC struct {
	jobs repository.JobRepository
	q    queue.Queue
	log  *zerolog.Logger
}

func NewSubmissionUseCase(jobs repository.JobRepository, q queue.Queue, logger *zerolog.Logger) *submissionUC {
	return &submissionUC{jobs: jobs, q: q, log: logger}
}

func (u *submissionUC) Submit(ctx context.Context, studentID string) (*model.DocumentJob, error) {
	defer logging.TraceDuration(u.log, "SubmissionUC.Submit")()

	studentID = strings.TrimSpace(studentID)
	if studentID == "" {
		return nil, fmt.Errorf("%w: studentId is required", domain.ErrInvalidArgument)
	}

	job := model.NewDocumentJob(uuid.NewString(), studentID)

	// Persist happens-before enqueue: if the send fails the job is still
	// discoverable as stuck-pending instead of silently lost. No rollback
	// on enqueue failure.
	if err := u.jobs.Create(ctx, nil, job); err != nil {
		return nil, fmt.Errorf("create job: %w", err)
	}
	if err := u.q.Enqueue(ctx, model.TaskPayload{JobID: job.ID, StudentID: job.StudentID}); err != nil {
		return nil, fmt.Errorf("enqueue job %s: %w", job.ID, err)
	}

	metrics.IncJobSubmitted()
	return job, nil
}
