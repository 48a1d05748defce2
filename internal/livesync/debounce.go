package livesync

import (
	"sync"
	"time"
)

// Timer is a pending scheduled call.
type Timer interface {
	Stop() bool
}

// Scheduler runs f after d. The system scheduler uses time.AfterFunc.
type Scheduler interface {
	AfterFunc(d time.Duration, f func()) Timer
}

type systemScheduler struct{}

func (systemScheduler) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// SystemScheduler schedules on the wall clock.
var SystemScheduler Scheduler = systemScheduler{}

// Debouncer coalesces rapid triggers into one trailing call. Each Trigger
// restarts the window; only the last fn passed before the window elapses runs.
type Debouncer struct {
	window time.Duration
	sched  Scheduler

	mu    sync.Mutex
	timer Timer
	fn    func()
	seq   uint64
}

// NewDebouncer returns a debouncer with the given window. A nil scheduler
// uses SystemScheduler.
func NewDebouncer(window time.Duration, sched Scheduler) *Debouncer {
	if sched == nil {
		sched = SystemScheduler
	}
	return &Debouncer{window: window, sched: sched}
}

// Window returns the quiet period.
func (d *Debouncer) Window() time.Duration { return d.window }

// Trigger schedules fn, replacing any pending call and restarting the window.
func (d *Debouncer) Trigger(fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.seq++
	seq := d.seq
	d.fn = fn
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = d.sched.AfterFunc(d.window, func() { d.fire(seq) })
}

// fire runs the pending call if seq is still the latest trigger. A timer that
// lost its Stop race against Trigger, Flush or Cancel finds a newer seq and
// does nothing.
func (d *Debouncer) fire(seq uint64) {
	d.mu.Lock()
	if seq != d.seq || d.fn == nil {
		d.mu.Unlock()
		return
	}
	fn := d.fn
	d.fn = nil
	d.timer = nil
	d.mu.Unlock()

	fn()
}

// Flush runs the pending call now, on the caller's goroutine. It reports
// whether anything was pending.
func (d *Debouncer) Flush() bool {
	d.mu.Lock()
	fn := d.fn
	if fn == nil {
		d.mu.Unlock()
		return false
	}
	d.resetLocked()
	d.mu.Unlock()

	fn()
	return true
}

// Cancel drops the pending call without running it.
func (d *Debouncer) Cancel() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.resetLocked()
}

// Pending reports whether a call is waiting for the window to elapse.
func (d *Debouncer) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.fn != nil
}

func (d *Debouncer) resetLocked() {
	d.seq++
	d.fn = nil
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}
