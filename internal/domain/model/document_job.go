package model

import "time"

type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
)

// IsTerminal reports whether no further transitions are permitted.
func (s JobStatus) IsTerminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed
}

// CanTransition reports whether the forward transition s -> next is legal.
// Transitions are monotonic: pending -> processing -> completed|failed.
// processing -> processing is allowed so a redelivered envelope can re-enter
// a claim that a crashed worker left behind.
func (s JobStatus) CanTransition(next JobStatus) bool {
	switch s {
	case JobStatusPending:
		return next == JobStatusProcessing
	case JobStatusProcessing:
		return next == JobStatusProcessing || next == JobStatusCompleted || next == JobStatusFailed
	default:
		return false
	}
}

// DocumentJob tracks one requested enrollment-document generation through its
// lifecycle. ArtifactKey is set exactly once, on completion; ErrorMessage is
// set exactly once, on failure. A job never carries both.
type DocumentJob struct {
	ID           string
	StudentID    string
	Status       JobStatus
	ArtifactKey  string
	ErrorMessage string
	CreatedAt    time.Time
	UpdatedAt    time.Time
	CompletedAt  *time.Time
	FailedAt     *time.Time
}

func NewDocumentJob(id, studentID string) *DocumentJob {
	now := time.Now()
	return &DocumentJob{
		ID:        id,
		StudentID: studentID,
		Status:    JobStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Consistent reports whether the status and the terminal payload agree:
// completed jobs carry an artifact key and no error, failed jobs the inverse,
// non-terminal jobs neither.
func (j *DocumentJob) Consistent() bool {
	switch j.Status {
	case JobStatusCompleted:
		return j.ArtifactKey != "" && j.ErrorMessage == ""
	case JobStatusFailed:
		return j.ArtifactKey == "" && j.ErrorMessage != ""
	default:
		return j.ArtifactKey == "" && j.ErrorMessage == ""
	}
}
