package queue

import (
	"fmt"

	"github.com/vnykmshr/runsync/internal/logging"
	"github.com/vnykmshr/runsync/internal/segment"
)

// Ack advances the acknowledgment watermark to the given version and
// garbage-collects segment files that hold only acknowledged, already-read
// entries. The watermark is monotonic: a version at or below the current
// one is a no-op. Waiters blocked in WaitForEmpty are notified on every
// successful ack.
func (q *DiskQueue) Ack(version uint64) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return ErrQueueClosed
	}

	prev := q.lastAck.Local()
	if version <= prev {
		return nil
	}
	if version > q.lastPut.Local() {
		return fmt.Errorf("runsync: ack version %d exceeds last put version %d", version, q.lastPut.Local())
	}

	if err := q.lastAck.Write(version); err != nil {
		return err
	}

	q.cleanupLocked(version)

	q.opts.Metrics.RecordAck(int(version - prev))
	q.updateBacklogLocked()
	q.notifyLocked()

	return nil
}

// cleanupLocked removes every segment whose successor's base version is at
// or below the watermark: all of its records are acknowledged and the read
// cursor has moved past it. The newest segment is always kept as the write
// target. Callers must hold q.mu.
func (q *DiskQueue) cleanupLocked(version uint64) {
	versions, err := segment.Discover(q.dir)
	if err != nil {
		q.opts.Logger.Warn("failed to list queue segments for cleanup",
			logging.F("error", err.Error()),
		)
		return
	}

	for i := 0; i+1 < len(versions); i++ {
		if versions[i+1] > version {
			break
		}
		if err := segment.Remove(q.dir, versions[i]); err != nil {
			q.opts.Logger.Warn("cannot remove queue segment",
				logging.F("segment", segment.FormatName(versions[i])),
				logging.F("error", err.Error()),
			)
		}
	}
}

func (q *DiskQueue) updateBacklogLocked() {
	versions, err := segment.Discover(q.dir)
	if err != nil {
		return
	}
	q.opts.Metrics.UpdateBacklog(q.sizeLocked(), len(versions))
}
