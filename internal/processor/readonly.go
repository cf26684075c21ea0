package processor

import (
	"sync"
	"time"

	"github.com/vnykmshr/runsync/internal/logging"
	"github.com/vnykmshr/runsync/internal/operation"
)

// ReadOnly drops every operation. The first drop logs a warning so a
// misconfigured writer is noticed; repeating it for every call would only
// drown the log.
type ReadOnly struct {
	logger logging.Logger
	once   sync.Once
}

// NewReadOnly creates a read-only processor.
func NewReadOnly(logger logging.Logger) *ReadOnly {
	return &ReadOnly{logger: logger}
}

// EnqueueOperation implements Processor.
func (r *ReadOnly) EnqueueOperation(operation.Operation, bool) error {
	r.once.Do(func() {
		r.logger.Warn("client is in read-only mode, nothing will be saved to the server")
	})
	return nil
}

// Wait implements Processor.
func (r *ReadOnly) Wait() error { return nil }

// Flush implements Processor.
func (r *ReadOnly) Flush() error { return nil }

// Start implements Processor.
func (r *ReadOnly) Start() {}

// Stop implements Processor.
func (r *ReadOnly) Stop(time.Duration) error { return nil }
