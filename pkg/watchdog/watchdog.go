// Package watchdog provides a re-armable, single-shot stall timer.
package watchdog

import (
	"sync"
	"time"
)

// DefaultTimeout is used when a Watchdog is created with a non-positive timeout.
const DefaultTimeout = 2 * time.Second

// Watchdog fires its callback when it is not re-armed or cancelled within the
// timeout. Each Arm starts a new cycle; a cycle ends with exactly one of
// "fired" or "cancelled/re-armed", never both.
type Watchdog struct {
	timeout time.Duration
	onStall func()

	// mu guards timer and gen. gen identifies the live cycle; a timer whose
	// cycle is no longer live does nothing when it goes off.
	mu    sync.Mutex
	timer *time.Timer
	gen   uint64
	live  bool
}

// New returns a disarmed Watchdog that calls onStall from its own goroutine
// when a cycle expires.
func New(timeout time.Duration, onStall func()) *Watchdog {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	return &Watchdog{
		timeout: timeout,
		onStall: onStall,
	}
}

// Timeout returns the configured stall timeout.
func (w *Watchdog) Timeout() time.Duration {
	return w.timeout
}

// Arm starts a new cycle, superseding any pending one.
func (w *Watchdog) Arm() {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.stopLocked()
	w.gen++
	w.live = true

	gen := w.gen
	w.timer = time.AfterFunc(w.timeout, func() { w.fire(gen) })
}

// Cancel ends the current cycle without firing. It reports whether a pending
// cycle was cancelled; false means nothing was armed or the cycle already fired.
func (w *Watchdog) Cancel() bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	wasLive := w.live
	w.stopLocked()
	return wasLive
}

func (w *Watchdog) stopLocked() {
	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
	w.live = false
}

func (w *Watchdog) fire(gen uint64) {
	w.mu.Lock()
	if !w.live || gen != w.gen {
		w.mu.Unlock()
		return
	}
	w.live = false
	w.timer = nil
	w.mu.Unlock()

	if w.onStall != nil {
		w.onStall()
	}
}
