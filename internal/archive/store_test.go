package archive

import (
	"path/filepath"
	"testing"

	"vectoraiz/internal/session"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "archive.sqlite"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestDismissedTriggersRoundTrip(t *testing.T) {
	s := openTestStore(t)

	got, err := s.DismissedTriggers()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected empty set, got %v", got)
	}

	if err := s.AddDismissedTrigger("connect-db"); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := s.AddDismissedTrigger("upload"); err != nil {
		t.Fatalf("add: %v", err)
	}
	// Re-adding must be a no-op, not an error.
	if err := s.AddDismissedTrigger("connect-db"); err != nil {
		t.Fatalf("re-add: %v", err)
	}

	got, err = s.DismissedTriggers()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 2 || got[0] != "connect-db" || got[1] != "upload" {
		t.Fatalf("unexpected triggers: %v", got)
	}
}

func TestSaveTurnSkipsNudgesAndOpenEntries(t *testing.T) {
	s := openTestStore(t)

	msgs := []session.Message{
		{Role: session.RoleUser, Content: "show revenue"},
		{Role: session.RoleSystem, Kind: session.KindNudge, Content: "banner"},
		{Role: session.RoleAssistant, Content: "partial", Streaming: true},
		{Role: session.RoleAssistant, Content: "Here are your results"},
	}
	if err := s.SaveTurn("s1", msgs); err != nil {
		t.Fatalf("save turn: %v", err)
	}

	stored, err := s.SessionMessages("s1")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(stored) != 2 {
		t.Fatalf("expected 2 stored entries, got %d", len(stored))
	}
	if stored[0].Role != "user" || stored[1].Content != "Here are your results" {
		t.Fatalf("unexpected stored transcript: %+v", stored)
	}

	infos, err := s.RecentSessions(10)
	if err != nil {
		t.Fatalf("sessions: %v", err)
	}
	if len(infos) != 1 || infos[0].ID != "s1" || infos[0].MessageCount != 2 {
		t.Fatalf("unexpected session info: %+v", infos)
	}
}

func TestSaveTurnAccumulates(t *testing.T) {
	s := openTestStore(t)

	if err := s.SaveTurn("s1", []session.Message{{Role: session.RoleUser, Content: "one"}}); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := s.SaveTurn("s1", []session.Message{{Role: session.RoleAssistant, Content: "two"}}); err != nil {
		t.Fatalf("save: %v", err)
	}

	infos, err := s.RecentSessions(10)
	if err != nil {
		t.Fatalf("sessions: %v", err)
	}
	if len(infos) != 1 || infos[0].MessageCount != 2 {
		t.Fatalf("expected accumulated count 2, got %+v", infos)
	}
}
