package session

import "vectoraiz/internal/assist"

// TriggerStore persists permanently dismissed nudge triggers so suppression
// survives restarts. The archive's sqlite store implements it.
type TriggerStore interface {
	DismissedTriggers() ([]string, error)
	AddDismissedTrigger(trigger string) error
}

func (s *Session) applyNudge(n assist.Nudge) {
	if _, suppressed := s.dismissedTriggers[n.Trigger]; suppressed {
		return
	}
	if _, seen := s.dismissedNudges[n.NudgeID]; seen {
		return
	}
	if s.nudgeMessages[n.NudgeID] != "" {
		// Already visible; the channel re-sent it, likely after a reconnect.
		return
	}

	nCopy := n
	msg := &Message{
		ID:      s.newID(),
		Role:    RoleSystem,
		Kind:    KindNudge,
		Content: n.Message,
		Nudge:   &nCopy,
	}
	s.log.append(msg)
	s.nudgeMessages[n.NudgeID] = msg.ID
}

// DismissNudge removes the nudge's banner from the log. With permanent set,
// the trigger joins the suppression set and is persisted, so later nudges
// sharing it never surface. Dismissing an unknown or already-dismissed nudge
// is a no-op.
func (s *Session) DismissNudge(nudgeID, trigger string, permanent bool) {
	msgID, visible := s.nudgeMessages[nudgeID]
	if visible {
		s.log.remove(msgID)
		delete(s.nudgeMessages, nudgeID)
	}
	if _, already := s.dismissedNudges[nudgeID]; !already && visible {
		if err := s.outbound.DismissNudge(nudgeID, permanent); err != nil {
			s.logf("session: dismiss_nudge %s send failed: %v", nudgeID, err)
		}
	}
	s.dismissedNudges[nudgeID] = struct{}{}

	if !permanent || trigger == "" {
		return
	}
	if _, ok := s.dismissedTriggers[trigger]; ok {
		return
	}
	s.dismissedTriggers[trigger] = struct{}{}
	if s.triggers != nil {
		if err := s.triggers.AddDismissedTrigger(trigger); err != nil {
			s.logf("session: persist dismissed trigger %q: %v", trigger, err)
		}
	}
}
