package countdown

import (
	"testing"
	"time"
)

// manualScheduler collects scheduled callbacks and fires them on demand, so
// tests advance time deterministically.
type manualScheduler struct {
	queue []*scheduled
}

type scheduled struct {
	fn        func()
	cancelled bool
}

func (s *manualScheduler) After(d time.Duration, fn func()) func() {
	entry := &scheduled{fn: fn}
	s.queue = append(s.queue, entry)
	return func() { entry.cancelled = true }
}

// fire runs the oldest pending callback, including ones whose scheduler-level
// cancel already ran, to exercise the in-flight tick race.
func (s *manualScheduler) fire(t *testing.T, ignoreCancelled bool) {
	t.Helper()
	for len(s.queue) > 0 {
		entry := s.queue[0]
		s.queue = s.queue[1:]
		if entry.cancelled && !ignoreCancelled {
			continue
		}
		entry.fn()
		return
	}
	t.Fatalf("no scheduled callback to fire")
}

func TestTimerTicksDownAndExpiresOnce(t *testing.T) {
	sched := &manualScheduler{}
	var ticks []int
	expires := 0

	Start(sched, 5,
		func(remaining int) { ticks = append(ticks, remaining) },
		func() { expires++ },
	)

	for i := 0; i < 5; i++ {
		sched.fire(t, false)
	}

	want := []int{4, 3, 2, 1, 0}
	if len(ticks) != len(want) {
		t.Fatalf("expected %d ticks, got %v", len(want), ticks)
	}
	for i := range want {
		if ticks[i] != want[i] {
			t.Fatalf("tick %d: expected %d, got %d", i, want[i], ticks[i])
		}
	}
	if expires != 1 {
		t.Fatalf("expected exactly one expiry, got %d", expires)
	}
	if len(sched.queue) != 0 {
		t.Fatalf("expired timer should not re-arm, %d callbacks pending", len(sched.queue))
	}
}

func TestTimerNonPositiveExpiresImmediately(t *testing.T) {
	sched := &manualScheduler{}
	ticks := 0
	expires := 0

	tm := Start(sched, 0, func(int) { ticks++ }, func() { expires++ })

	if expires != 1 {
		t.Fatalf("expected immediate expiry, got %d", expires)
	}
	if ticks != 0 {
		t.Fatalf("expected no ticks, got %d", ticks)
	}
	if len(sched.queue) != 0 {
		t.Fatalf("expected nothing scheduled")
	}
	tm.Cancel() // must be a harmless no-op on a spent timer
}

func TestTimerCancelSuppressesInFlightTick(t *testing.T) {
	sched := &manualScheduler{}
	ticks := 0
	expires := 0

	tm := Start(sched, 2, func(int) { ticks++ }, func() { expires++ })
	tm.Cancel()

	// Simulate a tick that was already dispatched when Cancel ran.
	sched.fire(t, true)

	if ticks != 0 || expires != 0 {
		t.Fatalf("cancelled timer fired: ticks=%d expires=%d", ticks, expires)
	}
}

func TestTimerCancelIdempotent(t *testing.T) {
	sched := &manualScheduler{}
	tm := Start(sched, 3, nil, nil)
	tm.Cancel()
	tm.Cancel()
}

func TestArenaStartReplacesExistingHandle(t *testing.T) {
	sched := &manualScheduler{}
	a := NewArena(sched)
	firstExpired := false
	secondExpired := false

	a.Start("confirm:c1", 1, nil, func() { firstExpired = true })
	a.Start("confirm:c1", 1, nil, func() { secondExpired = true })

	// Two callbacks were scheduled; the first belongs to the replaced timer.
	sched.fire(t, true)
	sched.fire(t, true)

	if firstExpired {
		t.Fatalf("replaced timer should not expire")
	}
	if !secondExpired {
		t.Fatalf("replacement timer should expire")
	}
	if a.Active("confirm:c1") {
		t.Fatalf("expired handle should be swept from the arena")
	}
}

func TestArenaCancelAll(t *testing.T) {
	sched := &manualScheduler{}
	a := NewArena(sched)
	fired := 0

	a.Start("confirm:c1", 5, nil, func() { fired++ })
	a.Start("confirm:c2", 5, nil, func() { fired++ })
	a.Start("reconnect", 5, nil, func() { fired++ })

	a.CancelAll()

	for len(sched.queue) > 0 {
		sched.fire(t, true)
	}
	if fired != 0 {
		t.Fatalf("callbacks fired after CancelAll: %d", fired)
	}
	if a.Active("confirm:c1") || a.Active("reconnect") {
		t.Fatalf("arena should be empty after CancelAll")
	}
}

func TestArenaImmediateExpiryLeavesNoHandle(t *testing.T) {
	sched := &manualScheduler{}
	a := NewArena(sched)
	fired := 0

	a.Start("confirm:c1", 0, nil, func() { fired++ })

	if fired != 1 {
		t.Fatalf("expected immediate expiry, got %d", fired)
	}
	if a.Active("confirm:c1") {
		t.Fatalf("spent handle should not be tracked")
	}
}
