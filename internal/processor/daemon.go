package processor

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/vnykmshr/runsync/internal/logging"
)

// daemonState is the explicit state of the consumer goroutine.
type daemonState int

const (
	stateInit daemonState = iota
	stateWorking
	statePausing
	statePaused
	stateInterrupted
	stateStopped
)

func (s daemonState) String() string {
	switch s {
	case stateInit:
		return "init"
	case stateWorking:
		return "working"
	case statePausing:
		return "pausing"
	case statePaused:
		return "paused"
	case stateInterrupted:
		return "interrupted"
	case stateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// daemon runs one work function in a background goroutine under an
// explicit finite state machine. The loop calls work once per cycle and
// sleeps in between; WakeUp cuts a sleep short, Interrupt makes the loop
// exit after the current cycle completes, Pause/Resume suspend it.
// A non-nil error from work is fatal and stops the daemon.
type daemon struct {
	name   string
	logger logging.Logger
	work   func() error
	onExit func()

	mu    sync.Mutex
	cond  *sync.Cond
	state daemonState

	sleepTime time.Duration

	wake          chan struct{}
	interrupted   chan struct{}
	interruptOnce sync.Once

	done chan struct{}

	// lastBackoff is nonzero while a connection retry is in progress.
	// The queue observer reads it to tell "retrying" from "idle".
	lastBackoff atomic.Int64
}

func newDaemon(name string, sleepTime time.Duration, work func() error, onExit func(), logger logging.Logger) *daemon {
	d := &daemon{
		name:        name,
		logger:      logger,
		work:        work,
		onExit:      onExit,
		state:       stateInit,
		sleepTime:   sleepTime,
		wake:        make(chan struct{}, 1),
		interrupted: make(chan struct{}),
		done:        make(chan struct{}),
	}
	d.cond = sync.NewCond(&d.mu)
	return d
}

// Start launches the daemon goroutine. Start must be called once.
func (d *daemon) Start() {
	go d.run()
}

func (d *daemon) run() {
	d.mu.Lock()
	if d.state == stateInit {
		d.state = stateWorking
	}
	d.mu.Unlock()

	defer func() {
		d.mu.Lock()
		d.state = stateStopped
		d.cond.Broadcast()
		d.mu.Unlock()
		close(d.done)
		if d.onExit != nil {
			d.onExit()
		}
	}()

	for !d.IsInterrupted() {
		d.mu.Lock()
		for d.state == statePausing || d.state == statePaused {
			if d.state == statePausing {
				d.state = statePaused
				d.cond.Broadcast()
			}
			d.cond.Wait()
		}
		working := d.state == stateWorking
		sleep := d.sleepTime
		d.mu.Unlock()

		if !working {
			continue
		}

		if err := d.work(); err != nil {
			d.logger.Error("killing synchronization thread, remaining data is safe on disk and can be synced manually",
				logging.F("daemon", d.name),
				logging.F("error", err.Error()),
			)
			return
		}

		if sleep > 0 && !d.IsInterrupted() {
			d.sleepFor(sleep)
		}
	}
}

// sleepFor waits for the duration, a wake-up, or an interrupt, whichever
// comes first.
func (d *daemon) sleepFor(dur time.Duration) {
	timer := time.NewTimer(dur)
	defer timer.Stop()

	select {
	case <-d.wake:
	case <-d.interrupted:
	case <-timer.C:
	}
}

// WakeUp cuts the current inter-cycle sleep short.
func (d *daemon) WakeUp() {
	select {
	case d.wake <- struct{}{}:
	default:
	}
	d.cond.Broadcast()
}

// DisableSleep makes every subsequent cycle run back to back. Used
// during shutdown to drain as fast as possible.
func (d *daemon) DisableSleep() {
	d.mu.Lock()
	d.sleepTime = 0
	d.mu.Unlock()
}

// Interrupt asks the loop to exit after its current cycle. The in-flight
// backend call is completed, never abandoned.
func (d *daemon) Interrupt() {
	d.interruptOnce.Do(func() { close(d.interrupted) })

	d.mu.Lock()
	if d.state != stateStopped {
		d.state = stateInterrupted
	}
	d.cond.Broadcast()
	d.mu.Unlock()

	d.WakeUp()
}

// Pause suspends the loop between cycles and blocks until it is
// suspended. Pausing an interrupted daemon is a no-op.
func (d *daemon) Pause() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.state == statePaused {
		return
	}
	if d.state == stateWorking || d.state == stateInit {
		d.state = statePausing
	}
	d.cond.Broadcast()

	select {
	case d.wake <- struct{}{}:
	default:
	}

	for d.state == statePausing {
		d.cond.Wait()
	}
}

// Resume lets a paused loop continue.
func (d *daemon) Resume() {
	d.mu.Lock()
	if d.state == statePausing || d.state == statePaused {
		d.state = stateWorking
	}
	d.cond.Broadcast()
	d.mu.Unlock()
}

// IsRunning reports whether the daemon is alive (working or paused).
func (d *daemon) IsRunning() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state == stateWorking || d.state == statePausing || d.state == statePaused
}

// IsInterrupted reports whether the daemon is shutting down or stopped.
func (d *daemon) IsInterrupted() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state == stateInterrupted || d.state == stateStopped
}

// Join blocks until the daemon goroutine has exited.
func (d *daemon) Join() {
	<-d.done
}

// JoinTimeout blocks until the daemon goroutine has exited or the timeout
// elapses. Reports whether it exited.
func (d *daemon) JoinTimeout(timeout time.Duration) bool {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-d.done:
		return true
	case <-timer.C:
		return false
	}
}

// LastBackoff returns the current connection retry backoff, zero when the
// last backend call succeeded.
func (d *daemon) LastBackoff() time.Duration {
	return time.Duration(d.lastBackoff.Load())
}

func (d *daemon) setLastBackoff(backoff time.Duration) {
	d.lastBackoff.Store(int64(backoff))
}
