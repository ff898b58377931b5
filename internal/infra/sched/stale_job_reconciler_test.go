//go:build !integration

package sched

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"enrollment-docgen/internal/domain"
	"enrollment-docgen/internal/domain/model"
	"enrollment-docgen/internal/domain/ports/queue"
	"enrollment-docgen/internal/domain/ports/repository"
)

type fakeTxManager struct {
	err error
}

func (f *fakeTxManager) WithTx(ctx context.Context, _ pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error {
	if f.err != nil {
		return f.err
	}
	return fn(ctx, nil)
}

type fakeJobRepo struct {
	stale   []*model.DocumentJob
	touched []string
}

var _ repository.JobRepository = (*fakeJobRepo)(nil)

func (f *fakeJobRepo) Create(ctx context.Context, tx repository.Tx, job *model.DocumentJob) error {
	return errors.New("not implemented")
}

func (f *fakeJobRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.DocumentJob, error) {
	return nil, domain.ErrNotFound
}

func (f *fakeJobRepo) MarkProcessing(ctx context.Context, tx repository.Tx, id string) (*model.DocumentJob, error) {
	f.touched = append(f.touched, id)
	for _, j := range f.stale {
		if j.ID == id {
			cp := *j
			cp.Status = model.JobStatusProcessing
			cp.UpdatedAt = time.Now()
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (f *fakeJobRepo) MarkCompleted(ctx context.Context, tx repository.Tx, id, artifactKey string) error {
	return errors.New("not implemented")
}

func (f *fakeJobRepo) MarkFailed(ctx context.Context, tx repository.Tx, id, errorMessage string) error {
	return errors.New("not implemented")
}

func (f *fakeJobRepo) ListStaleProcessing(ctx context.Context, tx repository.Tx, olderThan time.Time, limit int) ([]*model.DocumentJob, error) {
	if len(f.stale) > limit {
		return f.stale[:limit], nil
	}
	return f.stale, nil
}

type recordingQueue struct {
	enqueued   []model.TaskPayload
	failJobIDs map[string]bool
}

func (q *recordingQueue) Enqueue(ctx context.Context, p model.TaskPayload) error {
	if q.failJobIDs[p.JobID] {
		return domain.ErrTransport
	}
	q.enqueued = append(q.enqueued, p)
	return nil
}

func (q *recordingQueue) ReceiveBatch(ctx context.Context, maxMessages int, wait time.Duration) ([]queue.Envelope, error) {
	return nil, nil
}

func staleJob(id, studentID string, age time.Duration) *model.DocumentJob {
	past := time.Now().Add(-age)
	return &model.DocumentJob{
		ID:        id,
		StudentID: studentID,
		Status:    model.JobStatusProcessing,
		CreatedAt: past,
		UpdatedAt: past,
	}
}

func TestReconcileOnce_RequeuesStaleJobs(t *testing.T) {
	jobs := &fakeJobRepo{stale: []*model.DocumentJob{
		staleJob("job-1", "A123", time.Hour),
		staleJob("job-2", "B456", 2*time.Hour),
	}}
	q := &recordingQueue{}
	nop := zerolog.Nop()
	rec := NewStaleJobReconciler(time.Minute, 10*time.Minute, jobs, q, &fakeTxManager{}, &nop)

	n, err := rec.reconcileOnce(context.Background())
	if err != nil {
		t.Fatalf("reconcileOnce: %v", err)
	}
	if n != 2 {
		t.Fatalf("requeued = %d, want 2", n)
	}
	if len(jobs.touched) != 2 {
		t.Fatalf("touched = %v, want both stale jobs", jobs.touched)
	}
	if len(q.enqueued) != 2 {
		t.Fatalf("enqueued = %+v", q.enqueued)
	}
	if p := q.enqueued[0]; p.JobID != "job-1" || p.StudentID != "A123" {
		t.Fatalf("payload = %+v", p)
	}
}

func TestReconcileOnce_NothingStale(t *testing.T) {
	q := &recordingQueue{}
	nop := zerolog.Nop()
	rec := NewStaleJobReconciler(time.Minute, 10*time.Minute, &fakeJobRepo{}, q, &fakeTxManager{}, &nop)

	n, err := rec.reconcileOnce(context.Background())
	if err != nil {
		t.Fatalf("reconcileOnce: %v", err)
	}
	if n != 0 || len(q.enqueued) != 0 {
		t.Fatalf("requeued %d, enqueued %+v", n, q.enqueued)
	}
}

func TestReconcileOnce_EnqueueFailureLeavesJobForNextPass(t *testing.T) {
	jobs := &fakeJobRepo{stale: []*model.DocumentJob{
		staleJob("job-1", "A123", time.Hour),
		staleJob("job-2", "B456", time.Hour),
	}}
	q := &recordingQueue{failJobIDs: map[string]bool{"job-1": true}}
	nop := zerolog.Nop()
	rec := NewStaleJobReconciler(time.Minute, 10*time.Minute, jobs, q, &fakeTxManager{}, &nop)

	n, err := rec.reconcileOnce(context.Background())
	if err != nil {
		t.Fatalf("reconcileOnce: %v", err)
	}
	// The failed send is skipped, not fatal; the job stays processing and a
	// later pass retries it.
	if n != 1 {
		t.Fatalf("requeued = %d, want 1", n)
	}
	if len(q.enqueued) != 1 || q.enqueued[0].JobID != "job-2" {
		t.Fatalf("enqueued = %+v", q.enqueued)
	}
}

func TestReconcileOnce_TxFailure(t *testing.T) {
	q := &recordingQueue{}
	nop := zerolog.Nop()
	rec := NewStaleJobReconciler(time.Minute, 10*time.Minute, &fakeJobRepo{}, q, &fakeTxManager{err: errors.New("deadlock")}, &nop)

	if _, err := rec.reconcileOnce(context.Background()); err == nil {
		t.Fatal("expected error from failed transaction")
	}
	if len(q.enqueued) != 0 {
		t.Fatal("enqueued despite failed claim transaction")
	}
}
