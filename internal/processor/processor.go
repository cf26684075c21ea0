// Package processor implements the delivery policies moving queued
// operations to the tracking backend.
//
// A Processor accepts operations from the attribute layer and delivers
// them according to the configured mode:
//
//   - Async: durable disk queue drained by a background consumer
//   - Sync: inline backend call per operation
//   - Offline: durable disk queue, never drained (manual sync later)
//   - ReadOnly: operations are dropped with a one-time warning
//
// Exactly one Processor instance exists per container for the lifetime of
// a run; selection is a pure function of the connection mode.
package processor

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/vnykmshr/runsync/internal/operation"
	"github.com/vnykmshr/runsync/internal/storage"
)

// Common errors returned by processors.
var (
	// ErrConnectionLost marks a transient connectivity failure. Backends
	// wrap it so the consumer retries with backoff instead of dying.
	ErrConnectionLost = errors.New("runsync: connection to backend lost")

	// ErrSyncStopped is returned to waiters when the background consumer
	// has terminated and the awaited operations will not be delivered by
	// this process.
	ErrSyncStopped = errors.New("runsync: synchronization already stopped")
)

// FieldError is a backend-reported failure of one operation, e.g. a type
// mismatch on assignment. Field errors are logged, never retried.
type FieldError struct {
	Path    operation.Path
	Message string
}

// Error implements error.
func (e FieldError) Error() string {
	return fmt.Sprintf("field %s: %s", e.Path, e.Message)
}

// FieldErrors aggregates the per-operation errors of one backend call.
type FieldErrors []FieldError

// Error implements error.
func (e FieldErrors) Error() string {
	msgs := make([]string, len(e))
	for i, fe := range e {
		msgs[i] = fe.Error()
	}
	return fmt.Sprintf("%d operation(s) rejected: %s", len(e), strings.Join(msgs, "; "))
}

// Backend is the narrow interface to the remote metadata service.
//
// ExecuteOperations applies the given operations in order and returns how
// many of them were durably processed, counting from the front. Field
// errors may accompany any response; the operations they refer to are not
// retried. Calls must be safe to repeat for an already-applied prefix:
// acknowledgment only ever advances on the confirmed processed count.
// A transient connectivity failure is reported by an error wrapping
// ErrConnectionLost.
type Backend interface {
	ExecuteOperations(
		ctx context.Context,
		containerID string,
		containerType storage.ContainerType,
		ops []operation.Operation,
		st *storage.OperationStorage,
	) (processed int, fieldErrors []FieldError, err error)
}

// Processor is the contract between a container and its delivery policy.
// These are the only entry points the rest of the client may call.
type Processor interface {
	// EnqueueOperation hands one operation to the processor. With wait
	// set, it blocks until the operation is durably delivered.
	EnqueueOperation(op operation.Operation, wait bool) error

	// Wait blocks until every operation enqueued so far is delivered.
	Wait() error

	// Flush forces locally buffered operations to durable storage.
	Flush() error

	// Start launches background work, if the policy has any.
	Start()

	// Stop drains and shuts the processor down. A positive timeout
	// bounds the wait; zero waits indefinitely, tolerating reconnect
	// stalls up to the configured no-connection window.
	Stop(timeout time.Duration) error
}
