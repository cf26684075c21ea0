package queue

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/vnykmshr/runsync/internal/logging"
	"github.com/vnykmshr/runsync/internal/operation"
	"github.com/vnykmshr/runsync/internal/segment"
)

// Get reads and deserializes the next entry. Returns (nil, nil) when the
// reader has caught up with the flushed write frontier; Get never blocks
// waiting for more data.
func (q *DiskQueue) Get() (*Element, error) {
	start := time.Now()

	q.mu.Lock()
	defer q.mu.Unlock()

	el, err := q.getLocked()
	if err == nil && el != nil {
		q.opts.Metrics.RecordGet(el.Size, time.Since(start))
	}
	return el, err
}

// GetBatch reads up to maxCount entries, additionally bounded by the
// configured cumulative batch size in bytes. Returns an empty slice when
// the queue is exhausted; never blocks.
func (q *DiskQueue) GetBatch(maxCount int) ([]*Element, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	first, err := q.getLocked()
	if err != nil {
		return nil, err
	}
	if first == nil {
		return nil, nil
	}

	batch := []*Element{first}
	batchBytes := int64(first.Size)

	for len(batch) < maxCount && batchBytes < q.opts.MaxBatchBytes {
		el, err := q.getLocked()
		if err != nil {
			return nil, err
		}
		if el == nil {
			break
		}
		batch = append(batch, el)
		batchBytes += int64(el.Size)
	}

	return batch, nil
}

func (q *DiskQueue) getLocked() (*Element, error) {
	if q.closed {
		return nil, ErrQueueClosed
	}
	// Push buffered appends through to the file so the read frontier is
	// current. This is a buffer flush, not an fsync.
	if err := q.writer.Flush(); err != nil {
		return nil, err
	}
	if q.shouldSkipToAck {
		return q.skipToAckLocked()
	}
	return q.nextLocked()
}

// skipToAckLocked fast-forwards past entries acknowledged by a previous
// process and returns the first unacknowledged one. A gap between the ack
// watermark and the first remaining entry means a segment went missing.
func (q *DiskQueue) skipToAckLocked() (*Element, error) {
	ackVersion := q.lastAck.Local()

	for {
		el, err := q.nextLocked()
		if err != nil {
			return nil, err
		}
		if el == nil {
			return nil, nil
		}
		if el.Version > ackVersion {
			q.shouldSkipToAck = false
			if el.Version > ackVersion+1 {
				q.opts.Logger.Warn("possible data loss",
					logging.F("last_acknowledged_version", ackVersion),
					logging.F("next_version", el.Version),
				)
			}
			return el, nil
		}
	}
}

// nextLocked reads the next complete record, advancing across exhausted
// segments up to the write frontier.
func (q *DiskQueue) nextLocked() (*Element, error) {
	for {
		line, err := q.reader.Next()
		if err == io.EOF {
			if q.reader.BaseVersion() >= q.writer.BaseVersion() {
				return nil, nil
			}
			if err := q.advanceReaderLocked(); err != nil {
				return nil, err
			}
			continue
		}
		if err != nil {
			return nil, err
		}

		var rec record
		if err := json.Unmarshal(line, &rec); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedOperation, err)
		}
		op, err := operation.Decode(rec.Obj)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedOperation, err)
		}

		return &Element{Operation: op, Version: rec.Version, Size: len(line) + 1}, nil
	}
}

// advanceReaderLocked closes the exhausted read segment and opens the next
// one in version order.
func (q *DiskQueue) advanceReaderLocked() error {
	current := q.reader.BaseVersion()

	versions, err := segment.Discover(q.dir)
	if err != nil {
		return err
	}

	var next uint64
	found := false
	for _, v := range versions {
		if v > current {
			next = v
			found = true
			break
		}
	}
	if !found {
		return fmt.Errorf("missing segment file after version %d", current)
	}

	reader, err := segment.NewReader(q.dir, next)
	if err != nil {
		return err
	}

	if err := q.reader.Close(); err != nil {
		_ = reader.Close()
		return err
	}
	q.reader = reader

	return nil
}
