package queue

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/vnykmshr/runsync/internal/operation"
	"github.com/vnykmshr/runsync/internal/segment"
)

// Put serializes the operation, appends it to the current write segment
// and returns the version assigned to the entry. Rotates to a new segment
// first when the append would exceed the configured maximum segment size.
// Put never blocks on the consumer.
func (q *DiskQueue) Put(op operation.Operation) (uint64, error) {
	start := time.Now()

	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return 0, ErrQueueClosed
	}

	version := q.lastPut.Local() + 1

	obj, err := operation.Encode(op)
	if err != nil {
		return 0, err
	}
	data, err := json.Marshal(record{Obj: obj, Version: version})
	if err != nil {
		return 0, fmt.Errorf("failed to marshal queue record: %w", err)
	}

	if q.writer.Size()+int64(len(data))+1 > q.opts.MaxSegmentSize {
		if err := q.rotateLocked(version); err != nil {
			return 0, err
		}
	}

	if err := q.writer.Write(data); err != nil {
		return 0, err
	}
	if err := q.lastPut.Write(version); err != nil {
		return 0, err
	}

	q.opts.Metrics.RecordPut(len(data)+1, time.Since(start))

	return version, nil
}

// rotateLocked closes the active write segment and opens a fresh one whose
// file name carries the version of the first record it will receive.
// Callers must hold q.mu.
func (q *DiskQueue) rotateLocked(version uint64) error {
	next, err := segment.NewWriter(q.dir, version)
	if err != nil {
		return err
	}

	old := q.writer
	q.writer = next

	if err := old.Close(); err != nil {
		return err
	}

	q.opts.Metrics.RecordSegmentRotation()

	return nil
}
