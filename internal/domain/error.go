package domain

import "errors"

var (
	// Common domain errors
	ErrNotFound        = errors.New("entity not found")
	ErrAlreadyExists   = errors.New("entity already exists")
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrConditionFailed signals that a conditional status update lost the
	// race: the job's persisted status no longer matches the expected value.
	// Callers treat this as a duplicate-delivery no-op, not a failure.
	ErrConditionFailed = errors.New("status condition failed")

	// ErrTransport signals a queue send/receive failure.
	ErrTransport = errors.New("queue transport error")

	// ErrRender signals a deterministic document rendering failure.
	ErrRender = errors.New("document render failed")

	// Driver-translation errors
	ErrReadDatabaseRow    = errors.New("failed to read database row")
	ErrInvalidExecContext = errors.New("invalid execution context")
)
