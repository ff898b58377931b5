//go:build !integration

package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"enrollment-docgen/internal/domain"
	"enrollment-docgen/internal/domain/model"
	"enrollment-docgen/internal/domain/ports/queue"
	"enrollment-docgen/internal/domain/ports/repository"
)

// ---- in-memory JobRepository ----

// memJobRepo enforces the same conditional-update semantics as the Postgres
// implementation and records every status a job passes through, so tests can
// assert transition order.
type memJobRepo struct {
	mu      sync.Mutex
	byID    map[string]*model.DocumentJob
	history map[string][]model.JobStatus

	markProcessingErr error
	markCompletedErr  error
	markFailedErr     error
}

var _ repository.JobRepository = (*memJobRepo)(nil)

func newMemJobRepo() *memJobRepo {
	return &memJobRepo{
		byID:    map[string]*model.DocumentJob{},
		history: map[string][]model.JobStatus{},
	}
}

func (m *memJobRepo) put(job *model.DocumentJob) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *job
	m.byID[job.ID] = &cp
	m.history[job.ID] = append(m.history[job.ID], job.Status)
}

func (m *memJobRepo) get(id string) *model.DocumentJob {
	m.mu.Lock()
	defer m.mu.Unlock()
	if j := m.byID[id]; j != nil {
		cp := *j
		return &cp
	}
	return nil
}

func (m *memJobRepo) statusHistory(id string) []model.JobStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]model.JobStatus(nil), m.history[id]...)
}

func (m *memJobRepo) Create(ctx context.Context, tx repository.Tx, job *model.DocumentJob) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byID[job.ID]; ok {
		return domain.ErrAlreadyExists
	}
	cp := *job
	m.byID[job.ID] = &cp
	m.history[job.ID] = append(m.history[job.ID], job.Status)
	return nil
}

func (m *memJobRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.DocumentJob, error) {
	if j := m.get(id); j != nil {
		return j, nil
	}
	return nil, domain.ErrNotFound
}

func (m *memJobRepo) MarkProcessing(ctx context.Context, tx repository.Tx, id string) (*model.DocumentJob, error) {
	if m.markProcessingErr != nil {
		return nil, m.markProcessingErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.byID[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	if j.Status.IsTerminal() {
		cp := *j
		return &cp, domain.ErrConditionFailed
	}
	j.Status = model.JobStatusProcessing
	j.UpdatedAt = time.Now()
	m.history[id] = append(m.history[id], j.Status)
	cp := *j
	return &cp, nil
}

func (m *memJobRepo) MarkCompleted(ctx context.Context, tx repository.Tx, id, artifactKey string) error {
	if m.markCompletedErr != nil {
		return m.markCompletedErr
	}
	return m.terminal(id, model.JobStatusCompleted, artifactKey)
}

func (m *memJobRepo) MarkFailed(ctx context.Context, tx repository.Tx, id, errorMessage string) error {
	if m.markFailedErr != nil {
		return m.markFailedErr
	}
	return m.terminal(id, model.JobStatusFailed, errorMessage)
}

func (m *memJobRepo) terminal(id string, status model.JobStatus, payload string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.byID[id]
	if !ok {
		return domain.ErrNotFound
	}
	if j.Status != model.JobStatusProcessing {
		return domain.ErrConditionFailed
	}
	now := time.Now()
	j.Status = status
	j.UpdatedAt = now
	if status == model.JobStatusCompleted {
		j.ArtifactKey = payload
		j.CompletedAt = &now
	} else {
		j.ErrorMessage = payload
		j.FailedAt = &now
	}
	m.history[id] = append(m.history[id], status)
	return nil
}

func (m *memJobRepo) ListStaleProcessing(ctx context.Context, tx repository.Tx, olderThan time.Time, limit int) ([]*model.DocumentJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.DocumentJob
	for _, j := range m.byID {
		if j.Status == model.JobStatusProcessing && j.UpdatedAt.Before(olderThan) {
			cp := *j
			out = append(out, &cp)
			if len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

// ---- in-memory StudentRepository ----

type memStudentRepo struct {
	mu      sync.Mutex
	byID    map[string]*model.Student
	findErr error
}

var _ repository.StudentRepository = (*memStudentRepo)(nil)

func newMemStudentRepo(students ...model.Student) *memStudentRepo {
	m := &memStudentRepo{byID: map[string]*model.Student{}}
	for _, s := range students {
		cp := s
		m.byID[s.ID] = &cp
	}
	return m
}

func (m *memStudentRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Student, error) {
	if m.findErr != nil {
		return nil, m.findErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if s := m.byID[id]; s != nil {
		cp := *s
		return &cp, nil
	}
	return nil, domain.ErrNotFound
}

func (m *memStudentRepo) Save(ctx context.Context, tx repository.Tx, s *model.Student) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *s
	m.byID[s.ID] = &cp
	return nil
}

// ---- fake envelope / queue ----

type fakeEnvelope struct {
	mu         sync.Mutex
	body       []byte
	receipt    string
	deliveries int
	acked      bool
	ackErr     error
}

var _ queue.Envelope = (*fakeEnvelope)(nil)

func newFakeEnvelope(p model.TaskPayload, deliveries int) *fakeEnvelope {
	b, _ := p.Encode()
	return &fakeEnvelope{body: b, receipt: fmt.Sprintf("rcpt-%s-%d", p.JobID, deliveries), deliveries: deliveries}
}

func (e *fakeEnvelope) Payload() []byte    { return e.body }
func (e *fakeEnvelope) Receipt() string    { return e.receipt }
func (e *fakeEnvelope) DeliveryCount() int { return e.deliveries }

func (e *fakeEnvelope) Ack(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.ackErr != nil {
		return e.ackErr
	}
	e.acked = true
	return nil
}

func (e *fakeEnvelope) isAcked() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.acked
}

type fakeQueue struct {
	mu       sync.Mutex
	enqueued []model.TaskPayload
}

var _ queue.Queue = (*fakeQueue)(nil)

func (q *fakeQueue) Enqueue(ctx context.Context, p model.TaskPayload) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.enqueued = append(q.enqueued, p)
	return nil
}

func (q *fakeQueue) ReceiveBatch(ctx context.Context, maxMessages int, wait time.Duration) ([]queue.Envelope, error) {
	return nil, nil
}

// ---- in-memory ArtifactStore ----

type blob struct {
	data        []byte
	contentType string
}

type memArtifactStore struct {
	mu     sync.Mutex
	blobs  map[string]blob
	puts   map[string]int
	putErr error
}

func newMemArtifactStore() *memArtifactStore {
	return &memArtifactStore{blobs: map[string]blob{}, puts: map[string]int{}}
}

func (m *memArtifactStore) Put(ctx context.Context, key string, data []byte, contentType string) error {
	if m.putErr != nil {
		return m.putErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.blobs[key] = blob{data: append([]byte(nil), data...), contentType: contentType}
	m.puts[key]++
	return nil
}

func (m *memArtifactStore) Get(ctx context.Context, key string) ([]byte, string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.blobs[key]
	if !ok {
		return nil, "", domain.ErrNotFound
	}
	return b.data, b.contentType, nil
}

func (m *memArtifactStore) keys() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []string
	for k := range m.blobs {
		out = append(out, k)
	}
	return out
}

// ---- stub renderer ----

type stubRenderer struct {
	renderErr error
}

func (r *stubRenderer) Render(s *model.Student) ([]byte, error) {
	if r.renderErr != nil {
		return nil, r.renderErr
	}
	return []byte("%PDF-1.4 declaration for " + s.Name), nil
}

func (r *stubRenderer) ContentType() string { return "application/pdf" }
