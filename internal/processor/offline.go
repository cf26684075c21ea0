package processor

import (
	"time"

	"github.com/vnykmshr/runsync/internal/operation"
	"github.com/vnykmshr/runsync/internal/queue"
	"github.com/vnykmshr/runsync/internal/storage"
)

// Offline appends every operation to a durable disk queue that no
// consumer drains. The queue directory is stable across process starts so
// external sync tooling can deliver the data later.
type Offline struct {
	queue *queue.DiskQueue
	st    *storage.OperationStorage
}

// NewOffline creates an offline processor, reopening the container's
// offline queue if one already exists.
func NewOffline(containerID string, containerType storage.ContainerType, cfg *Config) (*Offline, error) {
	cfg = cfg.withDefaults()

	dir := storage.OfflineQueueDir(cfg.DataDirectory, containerType, containerID)

	st, err := storage.NewOperationStorage(dir, containerType)
	if err != nil {
		return nil, err
	}

	q, err := queue.Open(dir, &queue.Options{
		MaxSegmentSize: cfg.MaxSegmentSize,
		MaxBatchBytes:  cfg.MaxBatchBytes,
		Logger:         cfg.Logger,
		Metrics:        cfg.Metrics,
	})
	if err != nil {
		return nil, err
	}

	return &Offline{queue: q, st: st}, nil
}

// EnqueueOperation implements Processor. Nothing ever delivers offline
// data in-process, so the wait flag is meaningless and ignored.
func (o *Offline) EnqueueOperation(op operation.Operation, _ bool) error {
	_, err := o.queue.Put(op)
	return err
}

// Wait implements Processor. Offline data is by definition not delivered
// by this process, so there is nothing to wait for.
func (o *Offline) Wait() error { return nil }

// Flush implements Processor.
func (o *Offline) Flush() error {
	return o.queue.Flush()
}

// Start implements Processor.
func (o *Offline) Start() {}

// Stop implements Processor. The queue directory is deliberately left in
// place for the external sync tooling.
func (o *Offline) Stop(time.Duration) error {
	return o.queue.Close()
}
