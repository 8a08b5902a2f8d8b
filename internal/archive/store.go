// Package archive is the client-side sqlite store: permanently dismissed
// nudge triggers and a transcript history of settled turns, so suppression
// and past conversations survive restarts.
package archive

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"vectoraiz/internal/session"
)

type Store struct {
	db *sql.DB
}

func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open archive db: %w", err)
	}
	s := &Store{db: db}
	if err := s.initSchema(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) initSchema() error {
	stmts := []string{
		`PRAGMA journal_mode = WAL;`,
		`PRAGMA foreign_keys = ON;`,
		`CREATE TABLE IF NOT EXISTS dismissed_triggers (
			trigger TEXT PRIMARY KEY,
			dismissed_ts INTEGER
		);`,
		`CREATE TABLE IF NOT EXISTS sessions (
			id TEXT PRIMARY KEY,
			started_ts INTEGER,
			last_activity_ts INTEGER,
			message_count INTEGER DEFAULT 0
		);`,
		`CREATE TABLE IF NOT EXISTS messages (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			session_id TEXT,
			ts INTEGER,
			role TEXT,
			content TEXT,
			err TEXT
		);`,
		`CREATE INDEX IF NOT EXISTS idx_messages_session_ts ON messages(session_id, ts, id);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("init archive schema: %w", err)
		}
	}
	return nil
}

// DismissedTriggers returns every permanently dismissed nudge trigger.
func (s *Store) DismissedTriggers() ([]string, error) {
	rows, err := s.db.Query(`SELECT trigger FROM dismissed_triggers ORDER BY trigger`)
	if err != nil {
		return nil, fmt.Errorf("query dismissed triggers: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var trig string
		if err := rows.Scan(&trig); err != nil {
			return nil, fmt.Errorf("scan dismissed trigger: %w", err)
		}
		out = append(out, trig)
	}
	return out, rows.Err()
}

// AddDismissedTrigger records a permanent dismissal. Re-adding is a no-op.
func (s *Store) AddDismissedTrigger(trigger string) error {
	_, err := s.db.Exec(
		`INSERT OR IGNORE INTO dismissed_triggers(trigger, dismissed_ts) VALUES(?, ?)`,
		trigger, time.Now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("insert dismissed trigger: %w", err)
	}
	return nil
}

// SaveTurn appends the settled entries of one turn to the session's history.
// Nudge banners are presentation, not conversation, and are skipped.
func (s *Store) SaveTurn(sessionID string, msgs []session.Message) error {
	now := time.Now().Unix()
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin save turn: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(
		`INSERT INTO sessions(id, started_ts, last_activity_ts) VALUES(?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET last_activity_ts = excluded.last_activity_ts`,
		sessionID, now, now,
	); err != nil {
		return fmt.Errorf("upsert session: %w", err)
	}

	saved := 0
	for _, m := range msgs {
		if m.Kind == session.KindNudge || m.Streaming {
			continue
		}
		if _, err := tx.Exec(
			`INSERT INTO messages(session_id, ts, role, content, err) VALUES(?, ?, ?, ?, ?)`,
			sessionID, now, string(m.Role), m.Content, m.Err,
		); err != nil {
			return fmt.Errorf("insert message: %w", err)
		}
		saved++
	}
	if _, err := tx.Exec(
		`UPDATE sessions SET message_count = message_count + ? WHERE id = ?`,
		saved, sessionID,
	); err != nil {
		return fmt.Errorf("bump message count: %w", err)
	}
	return tx.Commit()
}

// SessionInfo summarizes one archived conversation.
type SessionInfo struct {
	ID             string
	StartedTS      int64
	LastActivityTS int64
	MessageCount   int
}

// RecentSessions lists archived conversations, most recently active first.
func (s *Store) RecentSessions(limit int) ([]SessionInfo, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.Query(
		`SELECT id, started_ts, last_activity_ts, message_count
		 FROM sessions ORDER BY last_activity_ts DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer rows.Close()

	var out []SessionInfo
	for rows.Next() {
		var info SessionInfo
		if err := rows.Scan(&info.ID, &info.StartedTS, &info.LastActivityTS, &info.MessageCount); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		out = append(out, info)
	}
	return out, rows.Err()
}

// ArchivedMessage is one stored transcript entry.
type ArchivedMessage struct {
	Role    string
	Content string
	Err     string
	TS      int64
}

// SessionMessages returns a session's stored transcript in insertion order.
func (s *Store) SessionMessages(sessionID string) ([]ArchivedMessage, error) {
	rows, err := s.db.Query(
		`SELECT role, content, err, ts FROM messages WHERE session_id = ? ORDER BY id`, sessionID,
	)
	if err != nil {
		return nil, fmt.Errorf("query messages: %w", err)
	}
	defer rows.Close()

	var out []ArchivedMessage
	for rows.Next() {
		var m ArchivedMessage
		if err := rows.Scan(&m.Role, &m.Content, &m.Err, &m.TS); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}
