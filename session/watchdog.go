package session

import (
	"sync"
	"time"
)

// Watchdog is a resettable deadline: a one-shot timer that fires onExpire
// unless reset or cancelled first. Adapted from the teacher's
// utils.TimeoutManager (timer + reset/cancel channels guarding compile
// jobs that might hang); here it guards end-session's wait for a
// disconnect/terminate response, escalating to AdapterProcess.Kill when the
// adapter doesn't answer in time.
type Watchdog struct {
	mu       sync.Mutex
	timer    *time.Timer
	duration time.Duration
	onExpire func()
	done     bool
}

// NewWatchdog starts a watchdog that calls onExpire after duration unless
// Reset or Cancel is called first.
func NewWatchdog(duration time.Duration, onExpire func()) *Watchdog {
	w := &Watchdog{duration: duration, onExpire: onExpire}
	w.timer = time.AfterFunc(duration, w.fire)
	return w
}

func (w *Watchdog) fire() {
	w.mu.Lock()
	if w.done {
		w.mu.Unlock()
		return
	}
	w.done = true
	w.mu.Unlock()
	w.onExpire()
}

// Reset restarts the countdown from duration, as if the watchdog were
// freshly created.
func (w *Watchdog) Reset() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.done {
		return
	}
	w.timer.Reset(w.duration)
}

// Cancel stops the watchdog permanently; onExpire will not fire.
func (w *Watchdog) Cancel() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.done = true
	w.timer.Stop()
}
