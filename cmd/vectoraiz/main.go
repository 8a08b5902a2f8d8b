// Command vectoraiz is the terminal client for the vectoraiz assistant. It
// dials the gateway, runs the chat session in a bubbletea program, archives
// settled turns to sqlite, and reconnects with a visible countdown when the
// channel drops.
package main

import (
	"fmt"
	"io"
	"log"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"

	"vectoraiz/internal/archive"
	"vectoraiz/internal/assist"
	"vectoraiz/internal/clipboard"
	"vectoraiz/internal/config"
	"vectoraiz/internal/export"
	"vectoraiz/internal/session"
	"vectoraiz/internal/transport"
	"vectoraiz/internal/ui"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "vectoraiz:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Parse()
	if err != nil {
		return err
	}

	// The TUI owns stdout, so diagnostics go to a file.
	logf, closeLog, err := openLog(cfg.LogPath)
	if err != nil {
		return err
	}
	defer closeLog()

	store, err := archive.Open(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open archive: %w", err)
	}
	defer store.Close()

	relay := ui.NewRelay()

	client := transport.New(cfg.Server, transport.Handlers{
		Event: func(ev assist.Event) {
			relay.Post(ui.EventMsg{Ev: ev})
		},
		Down: func(err error) {
			relay.Post(ui.ConnLostMsg{Err: err})
		},
		Logf: logf,
	})
	defer client.Close()

	sess := session.New(session.Config{
		Scheduler: relay,
		Outbound:  client,
		Triggers:  store,
		Reconnect: func() {
			// Redial off the update loop; the outcome comes back as a message.
			go func() {
				if err := client.Dial(); err != nil {
					relay.Post(ui.ConnLostMsg{Err: err})
					return
				}
				relay.Post(ui.ConnectedMsg{})
			}()
		},
		ReconnectDelay: cfg.ReconnectDelay,
		Logf:           logf,
	})

	sessionID := uuid.NewString()
	model := ui.NewModel(ui.Deps{
		Session:   sess,
		SessionID: sessionID,
		Archive:   store,
		Exporter:  export.New(cfg.ExportDir),
		Copy:      clipboard.Copy,
		Style:     cfg.Style,
		Logf:      logf,
	})

	p := tea.NewProgram(model, tea.WithAltScreen())
	relay.Bind(p.Send)

	if err := client.Dial(); err != nil {
		logf("initial dial %s: %v", cfg.Server, err)
		relay.Post(ui.ConnLostMsg{Err: err})
	} else {
		relay.Post(ui.ConnectedMsg{})
	}

	_, err = p.Run()
	return err
}

func openLog(path string) (func(format string, args ...any), func(), error) {
	if path == "" {
		logger := log.New(io.Discard, "", 0)
		return logger.Printf, func() {}, nil
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("open log: %w", err)
	}
	logger := log.New(f, "", log.LstdFlags)
	return logger.Printf, func() { f.Close() }, nil
}
