package session

// ConnStatus is the health of the assistant channel.
type ConnStatus int

const (
	Connected ConnStatus = iota
	Disconnected
	Reconnecting
)

func (s ConnStatus) String() string {
	switch s {
	case Connected:
		return "connected"
	case Disconnected:
		return "disconnected"
	case Reconnecting:
		return "reconnecting"
	default:
		return "unknown"
	}
}

// ConnState is the read model of the connection monitor. ReconnectIn is the
// seconds until the next reconnect attempt, meaningful while Disconnected.
type ConnState struct {
	Status      ConnStatus
	ReconnectIn int
}

const reconnectTimerID = "reconnect"

// HandleConnectionLost records a channel drop. An in-flight stream is marked
// terminal with an error rather than left streaming indefinitely, and the
// reconnect countdown starts. A failed reconnect attempt lands here again,
// restarting the countdown.
func (s *Session) HandleConnectionLost() {
	if s.streaming {
		s.settleTurn(func(m *Message) {
			m.Err = "connection lost"
		})
	}
	// A dead channel delivers no more of an aborted turn's tail.
	s.draining = false
	s.connStatus = Disconnected
	s.reconnectIn = s.reconnectDelay
	s.timers.Start(reconnectTimerID, s.reconnectDelay,
		func(remaining int) { s.reconnectIn = remaining },
		func() {
			s.connStatus = Reconnecting
			s.reconnectIn = 0
			if s.reconnectFn != nil {
				s.reconnectFn()
			}
		},
	)
}

// HandleConnected records a (re)established channel and clears the countdown.
func (s *Session) HandleConnected() {
	s.timers.Cancel(reconnectTimerID)
	s.connStatus = Connected
	s.reconnectIn = 0
}

// Connection reports the current channel state.
func (s *Session) Connection() ConnState {
	return ConnState{Status: s.connStatus, ReconnectIn: s.reconnectIn}
}
