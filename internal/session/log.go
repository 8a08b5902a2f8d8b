package session

// messageLog holds conversation entries in arrival order. Insertion order is
// the only order; nothing reorders by timestamp or priority. Mutations on an
// unknown id are silent no-ops so events for evicted entries never throw.
type messageLog struct {
	entries []*Message
	byID    map[string]*Message
}

func newMessageLog() *messageLog {
	return &messageLog{byID: make(map[string]*Message)}
}

func (l *messageLog) append(m *Message) {
	l.entries = append(l.entries, m)
	l.byID[m.ID] = m
}

func (l *messageLog) get(id string) *Message {
	return l.byID[id]
}

// remove drops an entry from the visible log. Only nudge dismissal uses this;
// conversational entries are never deleted.
func (l *messageLog) remove(id string) {
	if _, ok := l.byID[id]; !ok {
		return
	}
	delete(l.byID, id)
	for i, m := range l.entries {
		if m.ID == id {
			l.entries = append(l.entries[:i], l.entries[i+1:]...)
			return
		}
	}
}

func (l *messageLog) appendContent(id, text string) {
	if m := l.get(id); m != nil {
		m.Content += text
	}
}

func (l *messageLog) setToolStatus(id, status string) {
	if m := l.get(id); m != nil {
		m.ToolStatus = status
	}
}

func (l *messageLog) appendToolResult(id string, res ToolResult) {
	if m := l.get(id); m != nil {
		m.ToolResults = append(m.ToolResults, res)
	}
}

// snapshot returns value copies in log order for the read model. ToolResults
// backing arrays are shared but append-only, so readers see a stable prefix.
func (l *messageLog) snapshot() []Message {
	out := make([]Message, 0, len(l.entries))
	for _, m := range l.entries {
		out = append(out, *m)
	}
	return out
}

func (l *messageLog) len() int {
	return len(l.entries)
}
