// Package metrics provides queue and sync metrics collection for runsync.
//
// Collection is optional: components accept the Collector interface and
// default to Noop when none is supplied. The Atomic implementation is
// cheap enough to leave enabled in production and can be bridged to any
// metrics system by reading Snapshot periodically.
package metrics

import (
	"sync/atomic"
	"time"
)

// Collector records queue and synchronization events.
type Collector interface {
	// RecordPut records a successful append of one serialized operation.
	RecordPut(recordSize int, duration time.Duration)

	// RecordGet records a successful read of one serialized operation.
	RecordGet(recordSize int, duration time.Duration)

	// RecordBatch records one consumer batch handed to the backend.
	RecordBatch(count int, totalSize int)

	// RecordAck records operations acknowledged as durably processed.
	RecordAck(count int)

	// RecordFieldErrors records backend-reported per-operation errors.
	RecordFieldErrors(count int)

	// RecordRetry records one connectivity retry and its backoff delay.
	RecordRetry(backoff time.Duration)

	// RecordSegmentRotation records the opening of a new segment file.
	RecordSegmentRotation()

	// UpdateBacklog records the current queue backlog and segment count.
	UpdateBacklog(pending uint64, segments int)
}

// Noop is a Collector that discards everything.
type Noop struct{}

// RecordPut implements Collector.
func (Noop) RecordPut(int, time.Duration) {}

// RecordGet implements Collector.
func (Noop) RecordGet(int, time.Duration) {}

// RecordBatch implements Collector.
func (Noop) RecordBatch(int, int) {}

// RecordAck implements Collector.
func (Noop) RecordAck(int) {}

// RecordFieldErrors implements Collector.
func (Noop) RecordFieldErrors(int) {}

// RecordRetry implements Collector.
func (Noop) RecordRetry(time.Duration) {}

// RecordSegmentRotation implements Collector.
func (Noop) RecordSegmentRotation() {}

// UpdateBacklog implements Collector.
func (Noop) UpdateBacklog(uint64, int) {}

// Atomic is a lock-free Collector backed by atomic counters.
type Atomic struct {
	putTotal    atomic.Uint64
	putBytes    atomic.Uint64
	getTotal    atomic.Uint64
	getBytes    atomic.Uint64
	batchTotal  atomic.Uint64
	batchOps    atomic.Uint64
	ackTotal    atomic.Uint64
	fieldErrors atomic.Uint64
	retryTotal  atomic.Uint64
	rotations   atomic.Uint64

	lastBackoffNanos atomic.Int64

	pending  atomic.Uint64
	segments atomic.Int64
}

// NewAtomic creates an Atomic collector.
func NewAtomic() *Atomic {
	return &Atomic{}
}

// RecordPut implements Collector.
func (a *Atomic) RecordPut(recordSize int, _ time.Duration) {
	a.putTotal.Add(1)
	a.putBytes.Add(uint64(recordSize))
}

// RecordGet implements Collector.
func (a *Atomic) RecordGet(recordSize int, _ time.Duration) {
	a.getTotal.Add(1)
	a.getBytes.Add(uint64(recordSize))
}

// RecordBatch implements Collector.
func (a *Atomic) RecordBatch(count int, _ int) {
	a.batchTotal.Add(1)
	a.batchOps.Add(uint64(count))
}

// RecordAck implements Collector.
func (a *Atomic) RecordAck(count int) {
	a.ackTotal.Add(uint64(count))
}

// RecordFieldErrors implements Collector.
func (a *Atomic) RecordFieldErrors(count int) {
	a.fieldErrors.Add(uint64(count))
}

// RecordRetry implements Collector.
func (a *Atomic) RecordRetry(backoff time.Duration) {
	a.retryTotal.Add(1)
	a.lastBackoffNanos.Store(int64(backoff))
}

// RecordSegmentRotation implements Collector.
func (a *Atomic) RecordSegmentRotation() {
	a.rotations.Add(1)
}

// UpdateBacklog implements Collector.
func (a *Atomic) UpdateBacklog(pending uint64, segments int) {
	a.pending.Store(pending)
	a.segments.Store(int64(segments))
}

// Snapshot is a point-in-time copy of the collected counters.
type Snapshot struct {
	PutTotal    uint64
	PutBytes    uint64
	GetTotal    uint64
	GetBytes    uint64
	BatchTotal  uint64
	BatchOps    uint64
	AckTotal    uint64
	FieldErrors uint64
	RetryTotal  uint64
	Rotations   uint64
	LastBackoff time.Duration
	Pending     uint64
	Segments    int
}

// Snapshot returns the current counter values.
func (a *Atomic) Snapshot() Snapshot {
	return Snapshot{
		PutTotal:    a.putTotal.Load(),
		PutBytes:    a.putBytes.Load(),
		GetTotal:    a.getTotal.Load(),
		GetBytes:    a.getBytes.Load(),
		BatchTotal:  a.batchTotal.Load(),
		BatchOps:    a.batchOps.Load(),
		AckTotal:    a.ackTotal.Load(),
		FieldErrors: a.fieldErrors.Load(),
		RetryTotal:  a.retryTotal.Load(),
		Rotations:   a.rotations.Load(),
		LastBackoff: time.Duration(a.lastBackoffNanos.Load()),
		Pending:     a.pending.Load(),
		Segments:    int(a.segments.Load()),
	}
}
