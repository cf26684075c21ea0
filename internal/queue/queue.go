// Package queue provides the durable FIFO persisting operations before
// delivery to the backend.
//
// DiskQueue is a write-ahead queue built from rotating append-only segment
// files plus two marker files tracking the put and acknowledgment version
// watermarks:
//
//	data-1.log            first segment
//	data-431.log          segment whose first record has version 431
//	last_put_version      highest version appended
//	last_ack_version      highest version durably processed by the backend
//
// Versions are assigned in strictly increasing order as entries are
// appended. Acknowledged segments are garbage-collected once fully behind
// the watermark. On reopen the queue skips already-acknowledged entries and
// resumes at the first unacknowledged one, making recovery idempotent.
//
// NOTICE: DiskQueue is safe for exactly one producer goroutine and one
// consumer goroutine.
package queue

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/vnykmshr/runsync/internal/logging"
	"github.com/vnykmshr/runsync/internal/metrics"
	"github.com/vnykmshr/runsync/internal/operation"
	"github.com/vnykmshr/runsync/internal/segment"
)

const (
	// lastPutFile stores the highest version appended to the queue.
	lastPutFile = "last_put_version"

	// lastAckFile stores the highest version acknowledged by the backend.
	lastAckFile = "last_ack_version"
)

// Common errors returned by queue operations.
var (
	// ErrQueueClosed indicates the queue has been closed.
	ErrQueueClosed = errors.New("runsync: queue closed")

	// ErrMalformedOperation indicates a record that cannot be decoded.
	ErrMalformedOperation = errors.New("runsync: malformed operation record")
)

// Options configures queue behavior.
type Options struct {
	// MaxSegmentSize is the segment rotation threshold in bytes.
	// Default: 64 MB
	MaxSegmentSize int64

	// MaxBatchBytes caps the cumulative serialized size of one GetBatch.
	// Default: 100 MB
	MaxBatchBytes int64

	// Logger for structured logging (nil = no logging)
	Logger logging.Logger

	// Metrics for collecting queue metrics (nil = no metrics)
	Metrics metrics.Collector
}

// DefaultOptions returns sensible defaults for queue configuration.
func DefaultOptions() *Options {
	return &Options{
		MaxSegmentSize: 64 * 1024 * 1024,
		MaxBatchBytes:  100 * 1024 * 1024,
		Logger:         logging.NoopLogger{},
		Metrics:        metrics.Noop{},
	}
}

func (o *Options) withDefaults() *Options {
	out := *o
	if out.MaxSegmentSize <= 0 {
		out.MaxSegmentSize = 64 * 1024 * 1024
	}
	if out.MaxBatchBytes <= 0 {
		out.MaxBatchBytes = 100 * 1024 * 1024
	}
	if out.Logger == nil {
		out.Logger = logging.NoopLogger{}
	}
	if out.Metrics == nil {
		out.Metrics = metrics.Noop{}
	}
	return &out
}

// Element is one dequeued entry: the operation, the version assigned at
// put time, and the serialized record size in bytes.
type Element struct {
	Operation operation.Operation
	Version   uint64
	Size      int
}

// record is the on-disk line format wrapping one serialized operation.
type record struct {
	Obj     json.RawMessage `json:"obj"`
	Version uint64          `json:"version"`
}

// DiskQueue is a durable, segmented FIFO of operations.
type DiskQueue struct {
	dir  string
	opts *Options

	mu sync.Mutex

	// notify is closed and replaced on every ack and on close so that
	// WaitForEmpty waiters re-check promptly.
	notify chan struct{}

	lastPut *offsetFile
	lastAck *offsetFile

	writer *segment.Writer
	reader *segment.Reader

	// shouldSkipToAck makes the first read after open fast-forward past
	// entries the backend already acknowledged in a previous process.
	shouldSkipToAck bool

	closed bool
}

// Open opens or creates a disk queue in the given directory.
func Open(dir string, opts *Options) (*DiskQueue, error) {
	if opts == nil {
		opts = DefaultOptions()
	}
	opts = opts.withDefaults()

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create queue directory: %w", err)
	}

	lastPut, err := openOffsetFile(filepath.Join(dir, lastPutFile), 0)
	if err != nil {
		return nil, err
	}

	lastAck, err := openOffsetFile(filepath.Join(dir, lastAckFile), 0)
	if err != nil {
		_ = lastPut.Close()
		return nil, err
	}

	readVersion, writeVersion, err := segmentBounds(dir)
	if err != nil {
		_ = lastPut.Close()
		_ = lastAck.Close()
		return nil, err
	}

	writer, err := segment.NewWriter(dir, writeVersion)
	if err != nil {
		_ = lastPut.Close()
		_ = lastAck.Close()
		return nil, err
	}

	reader, err := segment.NewReader(dir, readVersion)
	if err != nil {
		_ = writer.Close()
		_ = lastPut.Close()
		_ = lastAck.Close()
		return nil, err
	}

	return &DiskQueue{
		dir:             dir,
		opts:            opts,
		notify:          make(chan struct{}),
		lastPut:         lastPut,
		lastAck:         lastAck,
		writer:          writer,
		reader:          reader,
		shouldSkipToAck: true,
	}, nil
}

// segmentBounds returns the lowest and highest segment base versions in
// the directory, or (1, 1) for a fresh queue.
func segmentBounds(dir string) (first, last uint64, err error) {
	versions, err := segment.Discover(dir)
	if err != nil {
		return 0, 0, err
	}
	if len(versions) == 0 {
		return 1, 1, nil
	}
	return versions[0], versions[len(versions)-1], nil
}

// Size returns the number of entries appended but not yet acknowledged.
func (q *DiskQueue) Size() uint64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.sizeLocked()
}

func (q *DiskQueue) sizeLocked() uint64 {
	return q.lastPut.Local() - q.lastAck.Local()
}

// IsEmpty reports whether every appended entry has been acknowledged.
func (q *DiskQueue) IsEmpty() bool {
	return q.Size() == 0
}

// WaitForEmpty blocks until the queue is empty or the timeout elapses.
// Reports whether the queue was empty when it returned. A non-positive
// timeout checks without blocking.
func (q *DiskQueue) WaitForEmpty(timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)

	for {
		q.mu.Lock()
		if q.sizeLocked() == 0 {
			q.mu.Unlock()
			return true
		}
		notify := q.notify
		q.mu.Unlock()

		remaining := time.Until(deadline)
		if remaining <= 0 {
			return false
		}

		timer := time.NewTimer(remaining)
		select {
		case <-notify:
			timer.Stop()
		case <-timer.C:
		}
	}
}

// notifyLocked wakes every waiter. Callers must hold q.mu.
func (q *DiskQueue) notifyLocked() {
	close(q.notify)
	q.notify = make(chan struct{})
}

// Flush forces written entries and the version markers to durable storage
// without closing anything.
func (q *DiskQueue) Flush() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return ErrQueueClosed
	}

	if err := q.writer.Sync(); err != nil {
		return err
	}
	if err := q.lastPut.Flush(); err != nil {
		return err
	}
	return q.lastAck.Flush()
}

// Close flushes and releases all file handles. Close is idempotent.
func (q *DiskQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil
	}
	q.closed = true
	q.notifyLocked()

	var firstErr error
	if err := q.writer.Sync(); err != nil && firstErr == nil {
		firstErr = err
	}
	if err := q.reader.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	if err := q.writer.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	if err := q.lastPut.Flush(); err != nil && firstErr == nil {
		firstErr = err
	}
	if err := q.lastAck.Flush(); err != nil && firstErr == nil {
		firstErr = err
	}
	if err := q.lastPut.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	if err := q.lastAck.Close(); err != nil && firstErr == nil {
		firstErr = err
	}

	return firstErr
}

// CleanupIfEmpty removes the queue directory if every entry has been
// acknowledged. The parent container directory is removed too once it
// holds nothing else. Call after Close.
func (q *DiskQueue) CleanupIfEmpty() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.sizeLocked() != 0 {
		return
	}

	if err := os.RemoveAll(q.dir); err != nil {
		q.opts.Logger.Warn("failed to remove queue directory",
			logging.F("dir", q.dir),
			logging.F("error", err.Error()),
		)
		return
	}

	// Best effort; fails when the parent still has other executions.
	_ = os.Remove(filepath.Dir(q.dir))
}

// Dir returns the queue directory.
func (q *DiskQueue) Dir() string {
	return q.dir
}
