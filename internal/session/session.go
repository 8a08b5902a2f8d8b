package session

import (
	"github.com/google/uuid"

	"vectoraiz/internal/assist"
	"vectoraiz/internal/countdown"
)

// Outbound is the action surface of the assistant channel. Declining a
// confirmation is deliberately absent: cancellation is by omission, the
// approval token simply expires server-side.
type Outbound interface {
	SendText(text string) error
	Abort() error
	Confirm(confirmID string) error
	DismissNudge(nudgeID string, permanent bool) error
}

// Config wires a Session's collaborators. Scheduler and Outbound are
// required; the rest default to sensible no-ops.
type Config struct {
	Scheduler countdown.Scheduler
	Outbound  Outbound

	// Triggers persists permanently dismissed nudge triggers. Nil keeps the
	// suppression set session-only.
	Triggers TriggerStore

	// Reconnect asks the transport for a redial once the countdown expires.
	// The outcome comes back through HandleConnected or HandleConnectionLost.
	Reconnect func()

	// ReconnectDelay is the seconds between a drop and the next attempt.
	ReconnectDelay int

	// Logf receives diagnostics for discarded events and lost races.
	Logf func(format string, args ...any)

	// NewID mints message ids. Defaults to uuid.NewString.
	NewID func() string
}

// Session composes the message log, stream controller, confirmation
// handshakes, nudge registry, and connection monitor behind one facade. All
// calls must come from the owning goroutine.
type Session struct {
	log      *messageLog
	timers   *countdown.Arena
	outbound Outbound
	triggers TriggerStore

	reconnectFn    func()
	reconnectDelay int
	logf           func(format string, args ...any)
	newID          func() string

	streaming   bool
	draining    bool
	turnGen     int
	assistantID string

	confirms          map[string]*handshake
	dismissedTriggers map[string]struct{}
	dismissedNudges   map[string]struct{}
	nudgeMessages     map[string]string

	connStatus  ConnStatus
	reconnectIn int
	closed      bool
}

func New(cfg Config) *Session {
	s := &Session{
		log:               newMessageLog(),
		timers:            countdown.NewArena(cfg.Scheduler),
		outbound:          cfg.Outbound,
		triggers:          cfg.Triggers,
		reconnectFn:       cfg.Reconnect,
		reconnectDelay:    cfg.ReconnectDelay,
		logf:              cfg.Logf,
		newID:             cfg.NewID,
		confirms:          make(map[string]*handshake),
		dismissedTriggers: make(map[string]struct{}),
		dismissedNudges:   make(map[string]struct{}),
		nudgeMessages:     make(map[string]string),
		connStatus:        Connected,
	}
	if s.reconnectDelay <= 0 {
		s.reconnectDelay = 5
	}
	if s.logf == nil {
		s.logf = func(string, ...any) {}
	}
	if s.newID == nil {
		s.newID = uuid.NewString
	}
	if s.triggers != nil {
		triggers, err := s.triggers.DismissedTriggers()
		if err != nil {
			s.logf("session: load dismissed triggers: %v", err)
		}
		for _, trig := range triggers {
			s.dismissedTriggers[trig] = struct{}{}
		}
	}
	return s
}

// SendMessage opens a new turn: the user entry settles immediately and an
// empty assistant entry starts streaming. Rejected while a turn is already
// streaming, while a stopped turn is still draining its tail, or while the
// channel is down.
func (s *Session) SendMessage(text string) error {
	if s.streaming || s.draining {
		return ErrBusy
	}
	if s.connStatus != Connected {
		return ErrNotConnected
	}

	s.log.append(&Message{ID: s.newID(), Role: RoleUser, Kind: KindNormal, Content: text})

	s.turnGen++
	assistant := &Message{ID: s.newID(), Role: RoleAssistant, Kind: KindNormal, Streaming: true}
	s.log.append(assistant)
	s.assistantID = assistant.ID
	s.streaming = true

	if err := s.outbound.SendText(text); err != nil {
		s.logf("session: send failed: %v", err)
		s.settleTurn(func(m *Message) {
			m.Err = "send failed: " + err.Error()
		})
	}
	return nil
}

// StopStreaming is the optimistic client-side abort: the assistant entry
// settles immediately, and the session drains the aborted turn's tail. The
// server may not have observed the abort yet, so events keep arriving for a
// while; the drain swallows them until the turn's terminal done or error,
// keeping them away from whatever turn opens next.
func (s *Session) StopStreaming() {
	if !s.streaming {
		return
	}
	s.settleTurn(nil)
	s.draining = true
	if err := s.outbound.Abort(); err != nil {
		s.logf("session: abort send failed: %v", err)
	}
}

// settleTurn closes the streaming assistant entry, applying finish (if any)
// to it, and bumps the generation so stale events are discarded.
func (s *Session) settleTurn(finish func(*Message)) {
	if m := s.log.get(s.assistantID); m != nil {
		m.Streaming = false
		m.ToolStatus = ""
		if finish != nil {
			finish(m)
		}
	}
	s.streaming = false
	s.turnGen++
}

// HandleEvent applies one inbound channel event. Turn-scoped events arriving
// after the turn settled (local stop, error, or disconnect) are stale and
// silently discarded; confirm results and nudges are not turn-scoped.
func (s *Session) HandleEvent(ev assist.Event) {
	if s.closed {
		return
	}
	switch ev := ev.(type) {
	case assist.ConfirmResult:
		s.applyConfirmResult(ev)
		return
	case assist.Nudge:
		s.applyNudge(ev)
		return
	}

	if s.draining {
		switch ev.(type) {
		case assist.Done, assist.StreamError:
			s.draining = false
			s.logf("session: drained aborted turn at %T", ev)
		default:
			s.logf("session: draining, %T dropped", ev)
		}
		return
	}

	if !s.streaming {
		s.logf("session: stale %T for settled turn %d dropped", ev, s.turnGen)
		return
	}

	switch ev := ev.(type) {
	case assist.TokenDelta:
		s.log.appendContent(s.assistantID, ev.Text)
	case assist.ToolStatus:
		s.log.setToolStatus(s.assistantID, ev.Text)
	case assist.ToolResult:
		s.log.appendToolResult(s.assistantID, ToolResult{ToolName: ev.ToolName, Data: ev.Data})
	case assist.ConfirmRequest:
		s.attachConfirm(ev)
	case assist.Done:
		usage := ev.Usage
		s.settleTurn(func(m *Message) {
			m.Usage = &usage
		})
	case assist.StreamError:
		reason := ev.Reason
		s.settleTurn(func(m *Message) {
			m.Err = reason
		})
	default:
		s.logf("session: unhandled event %T dropped", ev)
	}
}

// Messages returns the log in arrival order.
func (s *Session) Messages() []Message {
	return s.log.snapshot()
}

// Streaming reports whether a turn is currently open.
func (s *Session) Streaming() bool {
	return s.streaming
}

// Close tears the session down, sweeping every outstanding timer so no
// callback fires against discarded state. Further events are ignored.
func (s *Session) Close() {
	if s.closed {
		return
	}
	s.closed = true
	s.streaming = false
	s.timers.CancelAll()
}
