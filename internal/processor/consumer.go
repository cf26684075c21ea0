package processor

import (
	"context"
	"errors"
	"time"

	"github.com/vnykmshr/runsync/internal/logging"
	"github.com/vnykmshr/runsync/internal/operation"
	"github.com/vnykmshr/runsync/internal/queue"
)

// Connection retry backoff bounds.
const (
	initialRetryBackoff = 2 * time.Second
	maxRetryBackoff     = 120 * time.Second
)

// consumer is the daemon work loop: flush the queue periodically, drain
// batches through the backend, acknowledge what was processed. A batch
// suffix the backend did not accept stays pending and is retried on the
// next cycle.
type consumer struct {
	p             *Async
	flushInterval time.Duration
	lastFlush     time.Time
	backoff       time.Duration
	pending       []*queue.Element
}

func (c *consumer) work() error {
	if time.Since(c.lastFlush) >= c.flushInterval {
		c.lastFlush = time.Now()
		if err := c.p.queue.Flush(); err != nil {
			return err
		}
	}

	for {
		progressed, err := c.processOnce()
		if err != nil {
			return err
		}
		if !progressed {
			return nil
		}
	}
}

// processOnce sends one batch to the backend. It reports whether the
// batch fully went through, so the caller knows to fetch another batch
// immediately or go back to sleep.
func (c *consumer) processOnce() (bool, error) {
	if len(c.pending) == 0 {
		batch, err := c.p.queue.GetBatch(c.p.batchSize)
		if err != nil {
			return false, err
		}
		if len(batch) == 0 {
			return false, nil
		}
		c.pending = batch
	}

	ops := make([]operation.Operation, len(c.pending))
	totalSize := 0
	for i, el := range c.pending {
		ops[i] = el.Operation
		totalSize += el.Size
	}

	processed, fieldErrs, err := c.p.backend.ExecuteOperations(
		context.Background(), c.p.containerID, c.p.containerType, ops, c.p.st)
	if err != nil {
		if errors.Is(err, ErrConnectionLost) {
			c.backoffWait(err)
			return !c.p.d.IsInterrupted(), nil
		}
		return false, err
	}

	c.resetBackoff()
	c.p.metrics.RecordBatch(len(ops), totalSize)

	for _, fe := range fieldErrs {
		c.p.logger.Error("error occurred during asynchronous operation processing",
			logging.F("attribute", fe.Path.String()),
			logging.F("message", fe.Message),
		)
	}
	if len(fieldErrs) > 0 {
		c.p.metrics.RecordFieldErrors(len(fieldErrs))
	}

	if processed > len(c.pending) {
		processed = len(c.pending)
	}
	if processed > 0 {
		ackVersion := c.pending[processed-1].Version
		if err := c.p.queue.Ack(ackVersion); err != nil {
			return false, err
		}
		c.pending = c.pending[processed:]
		c.p.markConsumed(ackVersion)
	}

	if len(c.pending) > 0 {
		// The backend refused a suffix of the batch without signalling a
		// connection problem. Retry it next cycle instead of spinning.
		return false, nil
	}
	return true, nil
}

// backoffWait sleeps for an exponentially growing interval after a
// connection failure. The first failure in a streak is reported loudly;
// subsequent ones only grow the interval.
func (c *consumer) backoffWait(cause error) {
	if c.backoff == 0 {
		c.backoff = initialRetryBackoff
		c.p.logger.Warn("experiencing connection interruptions, will try to reestablish communication with the server",
			logging.F("cause", cause.Error()),
		)
	} else {
		c.backoff *= 2
		if c.backoff > maxRetryBackoff {
			c.backoff = maxRetryBackoff
		}
	}

	c.p.d.setLastBackoff(c.backoff)
	c.p.metrics.RecordRetry(c.backoff)
	c.p.d.sleepFor(c.backoff)
}

// resetBackoff clears the retry state after a successful call.
func (c *consumer) resetBackoff() {
	if c.backoff > 0 {
		c.backoff = 0
		c.p.d.setLastBackoff(0)
		c.p.logger.Info("communication with the server restored")
	}
}
