package assist

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrMalformed wraps any decode failure: bad JSON, missing type tag, or a type
// tag this client does not know. Callers drop the line with a diagnostic and
// keep reading; a bad frame never kills the stream.
var ErrMalformed = errors.New("malformed assistant event")

type envelope struct {
	Type string `json:"type"`
}

// Decode parses one wire line into its typed event.
func Decode(line []byte) (Event, error) {
	var env envelope
	if err := json.Unmarshal(line, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	switch strings.TrimSpace(env.Type) {
	case "token_delta":
		return decodeAs[TokenDelta](line)
	case "tool_status":
		return decodeAs[ToolStatus](line)
	case "tool_result":
		ev, err := decodeAs[ToolResult](line)
		if err != nil {
			return nil, err
		}
		if ev.(ToolResult).ToolName == "" {
			return nil, fmt.Errorf("%w: tool_result without tool_name", ErrMalformed)
		}
		return ev, nil
	case "confirm_request":
		ev, err := decodeAs[ConfirmRequest](line)
		if err != nil {
			return nil, err
		}
		if ev.(ConfirmRequest).ConfirmID == "" {
			return nil, fmt.Errorf("%w: confirm_request without confirm_id", ErrMalformed)
		}
		return ev, nil
	case "confirm_result":
		ev, err := decodeAs[ConfirmResult](line)
		if err != nil {
			return nil, err
		}
		if ev.(ConfirmResult).ConfirmID == "" {
			return nil, fmt.Errorf("%w: confirm_result without confirm_id", ErrMalformed)
		}
		return ev, nil
	case "nudge":
		ev, err := decodeAs[Nudge](line)
		if err != nil {
			return nil, err
		}
		if ev.(Nudge).NudgeID == "" {
			return nil, fmt.Errorf("%w: nudge without nudge_id", ErrMalformed)
		}
		return ev, nil
	case "done":
		return decodeAs[Done](line)
	case "error":
		return decodeAs[StreamError](line)
	case "":
		return nil, fmt.Errorf("%w: missing type", ErrMalformed)
	default:
		return nil, fmt.Errorf("%w: unknown type %q", ErrMalformed, env.Type)
	}
}

func decodeAs[T Event](line []byte) (Event, error) {
	var ev T
	if err := json.Unmarshal(line, &ev); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return ev, nil
}
