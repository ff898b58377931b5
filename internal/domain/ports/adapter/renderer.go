package adapter

import "enrollment-docgen/internal/domain/model"

// DocumentRenderer is a pure transform from student attributes to document
// bytes. No I/O: a failure here is deterministic and marks the job failed
// rather than being retried.
type DocumentRenderer interface {
	Render(student *model.Student) ([]byte, error)
	ContentType() string
}
