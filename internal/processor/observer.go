package processor

import (
	"time"

	"github.com/vnykmshr/runsync/internal/logging"
)

// Defaults for the drain protocol.
const (
	// defaultStatusInterval is how often a blocked drain reports progress.
	defaultStatusInterval = 30 * time.Second

	// defaultMaxNoConnection is how long an indefinite drain tolerates a
	// connection outage before giving up.
	defaultMaxNoConnection = 5 * time.Minute
)

// queueObserver runs the wait-for-drain protocol over an abstract source
// of remaining work. It backs both Stop (drain the whole queue) and Wait
// (drain up to one operation's version); the two differ only in the size
// and wait functions plugged in.
//
// Each cycle waits up to min(remaining timeout, status interval) for a
// progress signal, then samples the remaining size. Terminal outcomes:
//
//   - drained: size reached zero (success, nil)
//   - stalled: a connection retry is in progress and the no-connection
//     window is exhausted (warning, nil)
//   - timed out: the caller's budget is exhausted (warning, nil)
//   - consumer dead: the daemon is no longer running (ErrSyncStopped)
type queueObserver struct {
	// size returns the remaining number of undelivered operations.
	size func() uint64

	// wait blocks up to the given duration for a progress signal.
	// A non-positive duration must not block.
	wait func(time.Duration)

	// isRunning reports whether the consumer daemon is alive.
	isRunning func() bool

	// lastBackoff returns the consumer's current retry backoff.
	lastBackoff func() time.Duration

	logger logging.Logger

	statusInterval  time.Duration
	maxNoConnection time.Duration
}

// waitForDrain blocks until a terminal outcome. A zero timeout waits
// indefinitely, tolerating reconnect stalls up to the no-connection
// window; a positive timeout bounds the total wait.
func (o *queueObserver) waitForDrain(timeout time.Duration) error {
	initial := o.size()
	if initial == 0 {
		return nil
	}
	if !o.isRunning() {
		o.logger.Warn(ErrSyncStopped.Error())
		return ErrSyncStopped
	}

	maxReconnectWait := o.maxNoConnection
	if timeout > 0 {
		maxReconnectWait = timeout
	}

	if o.lastBackoff() > 0 {
		o.logger.Warn("experiencing connection interruptions, will keep trying to reach the server",
			logging.F("max_seconds", maxReconnectWait.Seconds()),
			logging.F("hint", "you can kill this process and sync the data manually later"),
		)
	} else {
		o.logger.Info("waiting for remaining operations to synchronize, do not kill this process",
			logging.F("remaining", initial),
		)
	}

	waitingStart := time.Now()
	var elapsed time.Duration

	for {
		var cycle time.Duration
		if timeout <= 0 {
			if o.lastBackoff() == 0 {
				// Reset the stall clock on successful activity.
				waitingStart = time.Now()
			}
			cycle = o.statusInterval
		} else {
			cycle = timeout - elapsed
			if cycle > o.statusInterval {
				cycle = o.statusInterval
			}
			if cycle < 0 {
				cycle = 0
			}
		}

		o.wait(cycle)

		remaining := o.size()
		if remaining == 0 {
			o.logger.Info("all operations synchronized",
				logging.F("count", initial),
			)
			return nil
		}

		elapsed = time.Since(waitingStart)

		if o.lastBackoff() > 0 && elapsed >= maxReconnectWait {
			o.logger.Warn("failed to reconnect with the server, remaining operations are saved on disk and can be synced manually",
				logging.F("waited_seconds", maxReconnectWait.Seconds()),
				logging.F("remaining", remaining),
			)
			return nil
		}

		if timeout > 0 && cycle <= 0 {
			o.logger.Warn("failed to synchronize all operations in time, remaining operations are saved on disk and can be synced manually",
				logging.F("timeout_seconds", timeout.Seconds()),
				logging.F("remaining", remaining),
			)
			return nil
		}

		if !o.isRunning() {
			o.logger.Warn(ErrSyncStopped.Error())
			return ErrSyncStopped
		}

		synced := initial - remaining
		o.logger.Info("still waiting for remaining operations",
			logging.F("remaining", remaining),
			logging.F("percent_done", float64(synced)/float64(initial)*100),
		)
	}
}
