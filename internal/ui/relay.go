package ui

import (
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// Relay marshals work from other goroutines (the transport reader, expired
// wall-clock timers) onto the bubbletea update loop, where the session lives.
// It also implements countdown.Scheduler: a scheduled callback travels as a
// timerFireMsg and runs inside Update, keeping the session single-threaded.
type Relay struct {
	mu   sync.Mutex
	send func(tea.Msg)
	held []tea.Msg
}

func NewRelay() *Relay {
	return &Relay{}
}

// Bind attaches the running program. Messages posted before Bind are flushed
// in order.
func (r *Relay) Bind(send func(tea.Msg)) {
	r.mu.Lock()
	r.send = send
	held := r.held
	r.held = nil
	r.mu.Unlock()
	for _, msg := range held {
		send(msg)
	}
}

// Post delivers msg to the update loop.
func (r *Relay) Post(msg tea.Msg) {
	r.mu.Lock()
	send := r.send
	if send == nil {
		r.held = append(r.held, msg)
	}
	r.mu.Unlock()
	if send != nil {
		send(msg)
	}
}

// After schedules fn on the update loop once d elapses. The returned cancel
// is best-effort; countdown timers keep their own spent flag for the case
// where the message was already in flight.
func (r *Relay) After(d time.Duration, fn func()) func() {
	t := time.AfterFunc(d, func() {
		r.Post(timerFireMsg{fn: fn})
	})
	return func() { t.Stop() }
}
