package model

import (
	"encoding/json"
	"fmt"

	"enrollment-docgen/internal/domain"
)

// TaskPayload is the queue message body linking an envelope back to its job.
// It is transient: created at submission, consumed by the worker pipeline,
// never persisted. The wire form is a single canonical JSON encoding.
type TaskPayload struct {
	JobID     string `json:"jobId"`
	StudentID string `json:"studentId"`
}

func (p TaskPayload) Encode() ([]byte, error) {
	return json.Marshal(p)
}

// DecodeTaskPayload parses the canonical JSON form. Double-encoded payloads
// (a JSON string containing JSON) are rejected rather than tolerated.
func DecodeTaskPayload(b []byte) (TaskPayload, error) {
	var p TaskPayload
	if err := json.Unmarshal(b, &p); err != nil {
		return TaskPayload{}, fmt.Errorf("%w: %v", domain.ErrInvalidArgument, err)
	}
	if p.JobID == "" || p.StudentID == "" {
		return TaskPayload{}, fmt.Errorf("%w: payload missing jobId or studentId", domain.ErrInvalidArgument)
	}
	return p, nil
}
