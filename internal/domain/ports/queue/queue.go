package queue

import (
	"context"
	"time"

	"enrollment-docgen/internal/domain/model"
)

// Envelope is one queue-delivered message instance. The same payload may be
// delivered more than once (at-least-once transport); each delivery attempt
// carries its own receipt. An envelope that is never acknowledged becomes
// eligible for redelivery once its visibility deadline passes.
type Envelope interface {
	// Payload returns the raw message body.
	Payload() []byte
	// Receipt identifies this delivery attempt.
	Receipt() string
	// DeliveryCount is 1 on first delivery and grows on each redelivery.
	DeliveryCount() int
	// Ack removes the message from the transport. Un-acked envelopes are
	// redelivered after the visibility window.
	Ack(ctx context.Context) error
}

// Queue is an at-least-once delivery channel for document-generation tasks.
type Queue interface {
	// Enqueue sends a task message. Best effort: failure is reported as
	// (wrapped) domain.ErrTransport and the caller decides rollback policy.
	Enqueue(ctx context.Context, payload model.TaskPayload) error

	// ReceiveBatch blocks up to wait for the first message, then drains up
	// to maxMessages without blocking. An empty batch is not an error.
	ReceiveBatch(ctx context.Context, maxMessages int, wait time.Duration) ([]Envelope, error)
}
