package livesync_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/five82/gymsync/internal/livesync"
	"github.com/five82/gymsync/internal/livesync/livesynctest"
)

func TestDebouncer_CoalescesBurstIntoOneTrailingCall(t *testing.T) {
	sched := livesynctest.NewScheduler()
	d := livesync.NewDebouncer(500*time.Millisecond, sched)

	var firedAt []time.Duration
	var last int
	for i := 1; i <= 5; i++ {
		n := i
		d.Trigger(func() {
			last = n
			firedAt = append(firedAt, sched.Now())
		})
		sched.Advance(50 * time.Millisecond)
	}
	// Last trigger was at 200ms.
	sched.Advance(449 * time.Millisecond)
	assert.Empty(t, firedAt)
	assert.True(t, d.Pending())

	sched.Advance(time.Millisecond)
	assert.Equal(t, []time.Duration{700 * time.Millisecond}, firedAt)
	assert.Equal(t, 5, last)
	assert.False(t, d.Pending())

	sched.Advance(time.Second)
	assert.Len(t, firedAt, 1)
}

func TestDebouncer_FlushRunsNow(t *testing.T) {
	sched := livesynctest.NewScheduler()
	d := livesync.NewDebouncer(time.Second, sched)

	assert.False(t, d.Flush())

	calls := 0
	d.Trigger(func() { calls++ })
	assert.True(t, d.Flush())
	assert.Equal(t, 1, calls)

	sched.Advance(2 * time.Second)
	assert.Equal(t, 1, calls, "flushed call must not fire again")
}

func TestDebouncer_CancelDropsPendingCall(t *testing.T) {
	sched := livesynctest.NewScheduler()
	d := livesync.NewDebouncer(time.Second, sched)

	calls := 0
	d.Trigger(func() { calls++ })
	d.Cancel()
	sched.Advance(2 * time.Second)

	assert.Zero(t, calls)
	assert.False(t, d.Pending())
	assert.Zero(t, sched.Pending())
}

// staleScheduler hands out timers that cannot be stopped, so a superseded
// timer still fires.
type staleScheduler struct {
	fns []func()
}

type unstoppable struct{}

func (unstoppable) Stop() bool { return false }

func (s *staleScheduler) AfterFunc(_ time.Duration, f func()) livesync.Timer {
	s.fns = append(s.fns, f)
	return unstoppable{}
}

func TestDebouncer_StaleTimerDoesNothing(t *testing.T) {
	sched := &staleScheduler{}
	d := livesync.NewDebouncer(time.Second, sched)

	var got []string
	d.Trigger(func() { got = append(got, "first") })
	d.Trigger(func() { got = append(got, "second") })

	// The first timer fires late, after it was replaced.
	sched.fns[0]()
	assert.Empty(t, got)

	sched.fns[1]()
	assert.Equal(t, []string{"second"}, got)

	d.Trigger(func() { got = append(got, "third") })
	d.Cancel()
	sched.fns[2]()
	assert.Equal(t, []string{"second"}, got)
}

func TestDebouncer_WallClock(t *testing.T) {
	d := livesync.NewDebouncer(5*time.Millisecond, nil)
	assert.Equal(t, 5*time.Millisecond, d.Window())

	done := make(chan struct{})
	d.Trigger(func() { close(done) })
	select {
	case <-done:
	case <-time.After(livesynctest.WaitTimeout):
		t.Fatal("debounced call never ran")
	}
}
