package usecase

import (
	"context"

	"github.com/rs/zerolog"

	"enrollment-docgen/internal/domain"
	"enrollment-docgen/internal/domain/model"
	"enrollment-docgen/internal/domain/ports/repository"
	"enrollment-docgen/internal/domain/ports/storage"
	"enrollment-docgen/internal/infra/logging"
)

// Compile-time check
var _ JobQueryUseCase = (*jobQueryUC)(nil)

type JobQueryUseCase interface {
	// GetJob returns the current persisted state; it does not reflect
	// in-flight queue messages.
	GetJob(ctx context.Context, jobID string) (*model.DocumentJob, error)

	// GetArtifact returns the generated document of a completed job.
	GetArtifact(ctx context.Context, jobID string) (data []byte, contentType string, err error)
}

type jobQueryUC struct {
	jobs      repository.JobRepository
	artifacts storage.ArtifactStore
	log       *zerolog.Logger
}

func NewJobQueryUseCase(jobs repository.JobRepository, artifacts storage.ArtifactStore, logger *zerolog.Logger) *jobQueryUC {
	return &jobQueryUC{jobs: jobs, artifacts: artifacts, log: logger}
}

func (u *jobQueryUC) GetJob(ctx context.Context, jobID string) (*model.DocumentJob, error) {
	defer logging.TraceDuration(u.log, "JobQueryUC.GetJob")()

	if jobID == "" {
		return nil, domain.ErrInvalidArgument
	}
	return u.jobs.FindByID(ctx, nil, jobID)
}

func (u *jobQueryUC) GetArtifact(ctx context.Context, jobID string) ([]byte, string, error) {
	defer logging.TraceDuration(u.log, "JobQueryUC.GetArtifact")()

	job, err := u.GetJob(ctx, jobID)
	if err != nil {
		return nil, "", err
	}
	if job.Status != model.JobStatusCompleted {
		return nil, "", domain.ErrNotFound
	}
	return u.artifacts.Get(ctx, job.ArtifactKey)
}
