// Package session is the client-side core of a vectoraiz assistant
// conversation: the ordered message log, the streaming turn controller, the
// destructive-action confirmation handshake, nudge banners, and connection
// health, composed behind one facade.
//
// The package is confined to a single goroutine. In the shipped binary that is
// the bubbletea update loop; transport events and timer callbacks are
// marshalled onto it before they reach a Session. Nothing here locks.
package session

import (
	"encoding/json"

	"vectoraiz/internal/assist"
)

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

type Kind string

const (
	KindNormal Kind = "normal"
	KindNudge  Kind = "nudge"
)

// ToolResult is one finished tool invocation recorded on a message. The list
// is append-only and never reordered.
type ToolResult struct {
	ToolName string
	Data     json.RawMessage
}

// Message is one entry in the conversation log.
//
// Mutation rules: while Streaming is true, Content grows by concatenation,
// ToolStatus is replaced, ToolResults append, and ConfirmRequest may be set
// once. Once Streaming is false the entry is settled and only ConfirmResult
// may still be written, once, and only if ConfirmRequest was set first.
type Message struct {
	ID             string
	Role           Role
	Kind           Kind
	Content        string
	Streaming      bool
	ToolStatus     string
	ToolResults    []ToolResult
	ConfirmRequest *assist.ConfirmRequest
	ConfirmResult  *assist.ConfirmResult
	Usage          *assist.Usage
	Nudge          *assist.Nudge

	// Err annotates a turn that ended in the error terminal state
	// (backend failure or connection loss mid-stream).
	Err string
}
