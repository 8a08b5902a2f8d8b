// Package assist defines the event vocabulary of the assistant channel: the
// typed inbound events the session consumes and the decode step that turns one
// wire line into one of them.
package assist

import "encoding/json"

// Event is one inbound assistant-channel event. The concrete types below form
// the closed set a session knows how to apply.
type Event interface {
	eventType() string
}

// TokenDelta carries one chunk of streamed assistant text.
type TokenDelta struct {
	Text string `json:"text"`
}

// ToolStatus is a short-lived human-readable status line ("running query...").
// Each one replaces the previous.
type ToolStatus struct {
	Text string `json:"text"`
}

// ToolResult is one finished tool invocation with its payload.
type ToolResult struct {
	ToolName string          `json:"tool_name"`
	Data     json.RawMessage `json:"data"`
}

// ConfirmRequest asks the user to approve a destructive action. Immutable
// after arrival; lifecycle state lives in the session, keyed by ConfirmID.
type ConfirmRequest struct {
	ConfirmID   string         `json:"confirm_id"`
	ToolName    string         `json:"tool_name"`
	Description string         `json:"description"`
	Details     map[string]any `json:"details"`
	ExpiresIn   int            `json:"expires_in_seconds"`
}

// ConfirmResult is the backend outcome of a previously confirmed action.
type ConfirmResult struct {
	ConfirmID string `json:"confirm_id"`
	Success   bool   `json:"success"`
	Message   string `json:"message"`
}

// Nudge is an advisory, dismissible banner surfaced inline in the conversation.
type Nudge struct {
	NudgeID     string `json:"nudge_id"`
	Trigger     string `json:"trigger"`
	Message     string `json:"message"`
	Dismissable bool   `json:"dismissable"`
	Icon        string `json:"icon"`
}

// Usage is the accounting metadata attached when a turn completes.
type Usage struct {
	Tokens int   `json:"tokens"`
	Millis int64 `json:"millis"`
}

// Done terminates a turn normally.
type Done struct {
	Usage Usage `json:"usage"`
}

// StreamError terminates a turn with a backend-reported failure.
type StreamError struct {
	Reason string `json:"reason"`
}

func (TokenDelta) eventType() string     { return "token_delta" }
func (ToolStatus) eventType() string     { return "tool_status" }
func (ToolResult) eventType() string     { return "tool_result" }
func (ConfirmRequest) eventType() string { return "confirm_request" }
func (ConfirmResult) eventType() string  { return "confirm_result" }
func (Nudge) eventType() string          { return "nudge" }
func (Done) eventType() string           { return "done" }
func (StreamError) eventType() string    { return "error" }
