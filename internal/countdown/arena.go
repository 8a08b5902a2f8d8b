package countdown

// Arena tracks live timers by handle id so session teardown can sweep and
// cancel them in one pass. One entry per pending confirmation plus at most one
// for the reconnect delay.
type Arena struct {
	sched  Scheduler
	timers map[string]*Timer
}

func NewArena(sched Scheduler) *Arena {
	return &Arena{sched: sched, timers: make(map[string]*Timer)}
}

// Start launches a countdown under id, replacing (and cancelling) any timer
// already held under that id. The arena removes the entry itself once the
// timer expires.
func (a *Arena) Start(id string, seconds int, onTick func(remaining int), onExpire func()) {
	a.Cancel(id)
	t := Start(a.sched, seconds, onTick, func() {
		delete(a.timers, id)
		if onExpire != nil {
			onExpire()
		}
	})
	if t.done {
		return
	}
	a.timers[id] = t
}

// Cancel stops and forgets the timer under id, if any.
func (a *Arena) Cancel(id string) {
	if t, ok := a.timers[id]; ok {
		t.Cancel()
		delete(a.timers, id)
	}
}

// CancelAll sweeps every outstanding timer. Used at session teardown so no
// callback fires against discarded state.
func (a *Arena) CancelAll() {
	for id, t := range a.timers {
		t.Cancel()
		delete(a.timers, id)
	}
}

// Active reports whether a timer is running under id.
func (a *Arena) Active(id string) bool {
	_, ok := a.timers[id]
	return ok
}
