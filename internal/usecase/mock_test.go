//go:build !integration

package usecase

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"enrollment-docgen/internal/domain"
	"enrollment-docgen/internal/domain/model"
	"enrollment-docgen/internal/domain/ports/queue"
	"enrollment-docgen/internal/domain/ports/repository"
)

func nopLogger() *zerolog.Logger {
	l := zerolog.Nop()
	return &l
}

// stubJobRepo records calls in order so tests can assert that persistence
// happens before the enqueue.
type stubJobRepo struct {
	byID      map[string]*model.DocumentJob
	createErr error
	calls     *[]string
}

var _ repository.JobRepository = (*stubJobRepo)(nil)

func newStubJobRepo(calls *[]string) *stubJobRepo {
	return &stubJobRepo{byID: map[string]*model.DocumentJob{}, calls: calls}
}

func (s *stubJobRepo) Create(ctx context.Context, tx repository.Tx, job *model.DocumentJob) error {
	if s.calls != nil {
		*s.calls = append(*s.calls, "create")
	}
	if s.createErr != nil {
		return s.createErr
	}
	cp := *job
	s.byID[job.ID] = &cp
	return nil
}

func (s *stubJobRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.DocumentJob, error) {
	if j, ok := s.byID[id]; ok {
		cp := *j
		return &cp, nil
	}
	return nil, domain.ErrNotFound
}

func (s *stubJobRepo) MarkProcessing(ctx context.Context, tx repository.Tx, id string) (*model.DocumentJob, error) {
	return nil, domain.ErrNotFound
}

func (s *stubJobRepo) MarkCompleted(ctx context.Context, tx repository.Tx, id, artifactKey string) error {
	return domain.ErrNotFound
}

func (s *stubJobRepo) MarkFailed(ctx context.Context, tx repository.Tx, id, errorMessage string) error {
	return domain.ErrNotFound
}

func (s *stubJobRepo) ListStaleProcessing(ctx context.Context, tx repository.Tx, olderThan time.Time, limit int) ([]*model.DocumentJob, error) {
	return nil, nil
}

type stubQueue struct {
	enqueued   []model.TaskPayload
	enqueueErr error
	calls      *[]string
}

var _ queue.Queue = (*stubQueue)(nil)

func (s *stubQueue) Enqueue(ctx context.Context, p model.TaskPayload) error {
	if s.calls != nil {
		*s.calls = append(*s.calls, "enqueue")
	}
	if s.enqueueErr != nil {
		return s.enqueueErr
	}
	s.enqueued = append(s.enqueued, p)
	return nil
}

func (s *stubQueue) ReceiveBatch(ctx context.Context, maxMessages int, wait time.Duration) ([]queue.Envelope, error) {
	return nil, nil
}

type stubArtifactStore struct {
	blobs map[string]struct {
		data        []byte
		contentType string
	}
}

func newStubArtifactStore() *stubArtifactStore {
	return &stubArtifactStore{blobs: map[string]struct {
		data        []byte
		contentType string
	}{}}
}

func (s *stubArtifactStore) Put(ctx context.Context, key string, data []byte, contentType string) error {
	s.blobs[key] = struct {
		data        []byte
		contentType string
	}{data, contentType}
	return nil
}

func (s *stubArtifactStore) Get(ctx context.Context, key string) ([]byte, string, error) {
	b, ok := s.blobs[key]
	if !ok {
		return nil, "", domain.ErrNotFound
	}
	return b.data, b.contentType, nil
}
