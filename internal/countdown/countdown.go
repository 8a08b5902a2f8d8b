// Package countdown provides one-second countdown timers for confirmation
// expiry and the reconnect delay. Timers never touch shared state themselves:
// the Scheduler delivers every callback onto the owner's event loop, so ticks,
// expiry, and Cancel all execute on one goroutine.
package countdown

import "time"

// Scheduler runs fn after d on the owner's event loop. The returned cancel is
// best-effort; a fired-but-not-yet-delivered callback may still run, which is
// why Timer keeps its own done flag.
type Scheduler interface {
	After(d time.Duration, fn func()) (cancel func())
}

// Timer counts down once per second. onTick receives the remaining seconds
// after each tick (reaching 0 exactly once); onExpire fires once when the
// countdown hits 0, after which the timer is spent.
type Timer struct {
	sched     Scheduler
	remaining int
	onTick    func(remaining int)
	onExpire  func()
	pending   func()
	done      bool
}

// Start begins a countdown of seconds. A non-positive count expires
// immediately without ticking.
func Start(sched Scheduler, seconds int, onTick func(remaining int), onExpire func()) *Timer {
	t := &Timer{sched: sched, remaining: seconds, onTick: onTick, onExpire: onExpire}
	if seconds <= 0 {
		t.done = true
		if onExpire != nil {
			onExpire()
		}
		return t
	}
	t.arm()
	return t
}

func (t *Timer) arm() {
	t.pending = t.sched.After(time.Second, t.tick)
}

func (t *Timer) tick() {
	if t.done {
		// Cancelled while this tick was in flight.
		return
	}
	t.remaining--
	if t.onTick != nil {
		t.onTick(t.remaining)
	}
	if t.remaining <= 0 {
		t.done = true
		if t.onExpire != nil {
			t.onExpire()
		}
		return
	}
	t.arm()
}

// Remaining reports the seconds left.
func (t *Timer) Remaining() int {
	return t.remaining
}

// Cancel stops the countdown. Once Cancel returns, no further callback fires.
// Cancelling a spent or already-cancelled timer is a no-op.
func (t *Timer) Cancel() {
	if t.done {
		return
	}
	t.done = true
	if t.pending != nil {
		t.pending()
	}
}
