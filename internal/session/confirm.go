package session

import (
	"vectoraiz/internal/assist"
)

// ConfirmState is the local lifecycle of one destructive-action approval.
// pending is the only non-terminal state; whichever of confirm, cancel, or
// expiry happens first wins and every later transition is a no-op.
type ConfirmState int

const (
	ConfirmPending ConfirmState = iota
	ConfirmConfirmed
	ConfirmCancelled
	ConfirmExpired
)

func (s ConfirmState) String() string {
	switch s {
	case ConfirmPending:
		return "pending"
	case ConfirmConfirmed:
		return "confirmed"
	case ConfirmCancelled:
		return "cancelled"
	case ConfirmExpired:
		return "expired"
	default:
		return "unknown"
	}
}

// ConfirmView is the read model for one handshake: its state and the advisory
// seconds left on the local countdown.
type ConfirmView struct {
	State     ConfirmState
	Remaining int
}

type handshake struct {
	req       assist.ConfirmRequest
	messageID string
	state     ConfirmState
	remaining int
}

func confirmTimerID(confirmID string) string {
	return "confirm:" + confirmID
}

func (s *Session) attachConfirm(req assist.ConfirmRequest) {
	if _, ok := s.confirms[req.ConfirmID]; ok {
		s.logf("session: duplicate confirm_request %s dropped", req.ConfirmID)
		return
	}

	target := s.log.get(s.assistantID)
	if target == nil || target.ConfirmRequest != nil {
		// No open assistant message can carry the card; give it its own entry.
		target = &Message{ID: s.newID(), Role: RoleSystem, Kind: KindNormal}
		s.log.append(target)
	}
	reqCopy := req
	target.ConfirmRequest = &reqCopy

	hs := &handshake{req: req, messageID: target.ID, state: ConfirmPending, remaining: req.ExpiresIn}
	s.confirms[req.ConfirmID] = hs

	s.timers.Start(confirmTimerID(req.ConfirmID), req.ExpiresIn,
		func(remaining int) { hs.remaining = remaining },
		func() { s.expireConfirm(req.ConfirmID) },
	)
}

// resolveConfirm is the single check-and-set for the pending → terminal
// transition. It owns the tie-break between confirm, cancel, and expiry.
func (s *Session) resolveConfirm(confirmID string, to ConfirmState) (*handshake, error) {
	hs, ok := s.confirms[confirmID]
	if !ok {
		return nil, ErrUnknownConfirm
	}
	if hs.state != ConfirmPending {
		return hs, ErrAlreadyResolved
	}
	hs.state = to
	hs.remaining = 0
	s.timers.Cancel(confirmTimerID(confirmID))
	return hs, nil
}

// ConfirmAction approves the pending action and emits the confirm to the
// backend; the backend's outcome lands later as a confirm_result event. A
// handshake that already left pending is left untouched and the call reports
// ErrAlreadyResolved without re-sending.
func (s *Session) ConfirmAction(confirmID string) error {
	_, err := s.resolveConfirm(confirmID, ConfirmConfirmed)
	if err != nil {
		s.logf("session: confirm %s: %v", confirmID, err)
		return err
	}
	if err := s.outbound.Confirm(confirmID); err != nil {
		s.logf("session: confirm %s send failed: %v", confirmID, err)
	}
	return nil
}

// CancelAction declines the pending action. No backend call is made: the
// approval token is simply never consumed and expires server-side on its own.
func (s *Session) CancelAction(confirmID string) error {
	_, err := s.resolveConfirm(confirmID, ConfirmCancelled)
	if err != nil {
		s.logf("session: cancel %s: %v", confirmID, err)
		return err
	}
	return nil
}

func (s *Session) expireConfirm(confirmID string) {
	if _, err := s.resolveConfirm(confirmID, ConfirmExpired); err != nil {
		s.logf("session: expire %s: %v", confirmID, err)
	}
}

func (s *Session) applyConfirmResult(res assist.ConfirmResult) {
	hs, ok := s.confirms[res.ConfirmID]
	if !ok {
		s.logf("session: confirm_result for unknown id %s dropped", res.ConfirmID)
		return
	}
	if hs.state != ConfirmConfirmed {
		s.logf("session: confirm_result for %s in state %s dropped", res.ConfirmID, hs.state)
		return
	}
	msg := s.log.get(hs.messageID)
	if msg == nil {
		return
	}
	if msg.ConfirmResult != nil {
		s.logf("session: duplicate confirm_result for %s dropped", res.ConfirmID)
		return
	}
	resCopy := res
	msg.ConfirmResult = &resCopy
}

// ConfirmView reports the state and advisory countdown of one handshake.
func (s *Session) ConfirmView(confirmID string) (ConfirmView, bool) {
	hs, ok := s.confirms[confirmID]
	if !ok {
		return ConfirmView{}, false
	}
	return ConfirmView{State: hs.state, Remaining: hs.remaining}, true
}
