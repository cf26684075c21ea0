package processor

import (
	"context"
	"time"

	"github.com/vnykmshr/runsync/internal/operation"
	"github.com/vnykmshr/runsync/internal/storage"
)

// Sync delivers each operation to the backend inline. There is nothing to
// buffer, so every call observes its outcome immediately and Wait, Flush
// and Start are trivial.
type Sync struct {
	containerID   string
	containerType storage.ContainerType
	backend       Backend
	st            *storage.OperationStorage
}

// NewSync creates a synchronous processor with a fresh scratch directory.
func NewSync(containerID string, containerType storage.ContainerType, backend Backend, cfg *Config) (*Sync, error) {
	cfg = cfg.withDefaults()

	st, err := storage.NewOperationStorage(
		storage.SyncQueueDir(cfg.DataDirectory, containerType, containerID),
		containerType,
	)
	if err != nil {
		return nil, err
	}

	return &Sync{
		containerID:   containerID,
		containerType: containerType,
		backend:       backend,
		st:            st,
	}, nil
}

// EnqueueOperation implements Processor. The wait flag is irrelevant:
// delivery is always complete when the call returns. Field errors are
// reported to the caller instead of being logged and dropped.
func (s *Sync) EnqueueOperation(op operation.Operation, _ bool) error {
	_, fieldErrs, err := s.backend.ExecuteOperations(
		context.Background(), s.containerID, s.containerType,
		[]operation.Operation{op}, s.st)
	if err != nil {
		return err
	}
	if len(fieldErrs) > 0 {
		return FieldErrors(fieldErrs)
	}
	return nil
}

// Wait implements Processor.
func (s *Sync) Wait() error { return nil }

// Flush implements Processor.
func (s *Sync) Flush() error { return nil }

// Start implements Processor.
func (s *Sync) Start() {}

// Stop implements Processor. It only removes the scratch directory.
func (s *Sync) Stop(time.Duration) error {
	return s.st.Cleanup()
}
