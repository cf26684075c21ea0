package processor

import (
	"sync"
	"time"

	"github.com/vnykmshr/runsync/internal/logging"
	"github.com/vnykmshr/runsync/internal/metrics"
	"github.com/vnykmshr/runsync/internal/operation"
	"github.com/vnykmshr/runsync/internal/queue"
	"github.com/vnykmshr/runsync/internal/storage"
)

// Async delivers operations through a durable disk queue drained by a
// background consumer daemon. Enqueueing never blocks on the network;
// durability guarantees are available on demand via wait flags.
type Async struct {
	containerID   string
	containerType storage.ContainerType
	backend       Backend
	st            *storage.OperationStorage
	queue         *queue.DiskQueue
	logger        logging.Logger
	metrics       metrics.Collector

	batchSize       int
	statusInterval  time.Duration
	maxNoConnection time.Duration

	d        *daemon
	consumer *consumer

	mu sync.Mutex

	// lastVersion is the version of the most recently enqueued operation.
	lastVersion uint64

	// consumedVersion is the highest acknowledged version; waiters block
	// until it passes their target.
	consumedVersion uint64

	// verNotify is closed and replaced whenever consumedVersion advances
	// or the daemon exits.
	verNotify chan struct{}

	started bool
}

// NewAsync creates an async processor with a fresh execution directory
// for its disk queue. Call Start to launch the consumer.
func NewAsync(containerID string, containerType storage.ContainerType, backend Backend, cfg *Config) (*Async, error) {
	cfg = cfg.withDefaults()

	dir := storage.AsyncQueueDir(cfg.DataDirectory, containerType, containerID)

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

	a := &Async{
		containerID:     containerID,
		containerType:   containerType,
		backend:         backend,
		st:              st,
		queue:           q,
		logger:          cfg.Logger,
		metrics:         cfg.Metrics,
		batchSize:       cfg.BatchSize,
		statusInterval:  cfg.StatusInterval,
		maxNoConnection: cfg.MaxNoConnection,
		verNotify:       make(chan struct{}),
	}

	a.consumer = &consumer{p: a, flushInterval: cfg.FlushInterval, lastFlush: time.Now()}
	a.d = newDaemon("runsync-consumer", cfg.FlushInterval, a.consumer.work, a.notifyWaiters, cfg.Logger)

	return a, nil
}

// Start launches the consumer daemon.
func (a *Async) Start() {
	a.mu.Lock()
	if a.started {
		a.mu.Unlock()
		return
	}
	a.started = true
	a.mu.Unlock()

	a.d.Start()
}

// EnqueueOperation implements Processor. The operation is appended to the
// disk queue; when the backlog exceeds half a batch the consumer is woken
// proactively. With wait set, blocks until this operation's version is
// acknowledged.
func (a *Async) EnqueueOperation(op operation.Operation, wait bool) error {
	version, err := a.queue.Put(op)
	if err != nil {
		return err
	}

	a.mu.Lock()
	a.lastVersion = version
	a.mu.Unlock()

	if a.queue.Size() > uint64(a.batchSize)/2 {
		a.d.WakeUp()
	}

	if wait {
		return a.Wait()
	}
	return nil
}

// Wait implements Processor. It blocks until every operation enqueued so
// far is acknowledged, following the drain protocol: reconnect stalls are
// tolerated up to the no-connection window, and a dead consumer surfaces
// as ErrSyncStopped instead of hanging forever.
func (a *Async) Wait() error {
	if err := a.Flush(); err != nil {
		return err
	}

	a.mu.Lock()
	target := a.lastVersion
	a.mu.Unlock()

	a.d.WakeUp()

	o := &queueObserver{
		size: func() uint64 {
			a.mu.Lock()
			defer a.mu.Unlock()
			if a.consumedVersion >= target {
				return 0
			}
			return target - a.consumedVersion
		},
		wait:            a.waitProgress,
		isRunning:       a.d.IsRunning,
		lastBackoff:     a.d.LastBackoff,
		logger:          a.logger,
		statusInterval:  a.statusInterval,
		maxNoConnection: a.maxNoConnection,
	}

	return o.waitForDrain(0)
}

// waitProgress blocks up to the given duration for an acknowledgment or a
// daemon exit.
func (a *Async) waitProgress(d time.Duration) {
	if d <= 0 {
		return
	}

	a.mu.Lock()
	notify := a.verNotify
	a.mu.Unlock()

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-notify:
	case <-timer.C:
	}
}

// markConsumed records an acknowledged version and wakes waiters.
func (a *Async) markConsumed(version uint64) {
	a.mu.Lock()
	if version > a.consumedVersion {
		a.consumedVersion = version
	}
	close(a.verNotify)
	a.verNotify = make(chan struct{})
	a.mu.Unlock()
}

// notifyWaiters unblocks every waiter; installed as the daemon's exit
// hook so nobody hangs on a dead consumer.
func (a *Async) notifyWaiters() {
	a.mu.Lock()
	close(a.verNotify)
	a.verNotify = make(chan struct{})
	a.mu.Unlock()
}

// Flush implements Processor.
func (a *Async) Flush() error {
	return a.queue.Flush()
}

// Pause suspends the consumer between batches and flushes the queue so
// on-disk state is consistent while suspended.
func (a *Async) Pause() error {
	a.d.Pause()
	return a.queue.Flush()
}

// Resume lets a paused consumer continue.
func (a *Async) Resume() {
	a.d.Resume()
}

// Stop implements Processor: flush, drain following the observer
// protocol, interrupt and join the consumer, close the queue, and remove
// its directory if everything was delivered.
func (a *Async) Stop(timeout time.Duration) error {
	start := time.Now()

	if err := a.queue.Flush(); err != nil {
		a.logger.Error("failed to flush queue during shutdown",
			logging.F("error", err.Error()),
		)
	}

	a.mu.Lock()
	started := a.started
	a.mu.Unlock()

	if started {
		if a.d.IsRunning() {
			a.d.DisableSleep()
			a.d.WakeUp()

			o := &queueObserver{
				size:            a.queue.Size,
				wait:            a.waitQueueEmpty,
				isRunning:       a.d.IsRunning,
				lastBackoff:     a.d.LastBackoff,
				logger:          a.logger,
				statusInterval:  a.statusInterval,
				maxNoConnection: a.maxNoConnection,
			}
			// A dead consumer is already reported by the observer; stop
			// proceeds with shutdown either way.
			_ = o.waitForDrain(timeout)
		}

		a.d.Interrupt()

		if timeout > 0 {
			remaining := timeout - time.Since(start)
			if remaining < 0 {
				remaining = 0
			}
			if !a.d.JoinTimeout(remaining) {
				a.logger.Warn("consumer daemon did not stop in time")
			}
		} else {
			a.d.Join()
		}
	}

	err := a.queue.Close()
	a.queue.CleanupIfEmpty()
	return err
}

// waitQueueEmpty adapts DiskQueue.WaitForEmpty to the observer's wait
// function.
func (a *Async) waitQueueEmpty(d time.Duration) {
	if d <= 0 {
		return
	}
	a.queue.WaitForEmpty(d)
}
