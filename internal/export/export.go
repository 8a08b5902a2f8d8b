// Package export turns a conversation into markdown, both for on-disk
// transcripts and for the viewer.
package export

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"vectoraiz/internal/session"
)

type Exporter struct {
	dir string
}

func New(dir string) *Exporter {
	return &Exporter{dir: strings.TrimSpace(dir)}
}

// Export writes the conversation to a timestamped markdown file and returns
// its path.
func (e *Exporter) Export(sessionID string, msgs []session.Message, now time.Time) (string, error) {
	if err := os.MkdirAll(e.dir, 0o755); err != nil {
		return "", fmt.Errorf("create export directory: %w", err)
	}
	name := fmt.Sprintf("vectoraiz-%s-%s.md", now.Format("2006-01-02-150405"), shortID(sessionID))
	path := filepath.Join(e.dir, name)

	var b strings.Builder
	b.WriteString("# vectoraiz session " + shortID(sessionID) + "\n\n")
	b.WriteString("_Exported " + now.UTC().Format(time.RFC3339) + "_\n\n")
	b.WriteString(BuildTranscriptMarkdown(msgs))

	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return "", fmt.Errorf("write export file: %w", err)
	}
	return path, nil
}

// BuildTranscriptMarkdown renders settled conversation entries. Nudge banners
// are presentation chrome and are skipped; an in-flight assistant entry is
// included as far as it has streamed.
func BuildTranscriptMarkdown(msgs []session.Message) string {
	var b strings.Builder
	for _, m := range msgs {
		if m.Kind == session.KindNudge {
			continue
		}
		content := strings.TrimSpace(m.Content)
		if content == "" && len(m.ToolResults) == 0 && m.ConfirmRequest == nil && m.Err == "" {
			continue
		}

		switch m.Role {
		case session.RoleUser:
			b.WriteString("## You\n\n" + content + "\n\n")
		case session.RoleAssistant:
			b.WriteString("## Assistant\n\n")
			writeAssistantBody(&b, m, content)
		default:
			b.WriteString("## System\n\n")
			writeAssistantBody(&b, m, content)
		}
	}
	return strings.TrimSpace(b.String()) + "\n"
}

func writeAssistantBody(b *strings.Builder, m session.Message, content string) {
	for _, res := range m.ToolResults {
		b.WriteString("```" + res.ToolName + "\n")
		b.WriteString(formatToolData(res.Data) + "\n")
		b.WriteString("```\n\n")
	}
	if m.ConfirmRequest != nil {
		b.WriteString("> Confirmation requested: " + m.ConfirmRequest.Description + "\n")
		if m.ConfirmResult != nil {
			outcome := "failed"
			if m.ConfirmResult.Success {
				outcome = "succeeded"
			}
			b.WriteString("> Outcome: " + outcome)
			if m.ConfirmResult.Message != "" {
				b.WriteString(" (" + m.ConfirmResult.Message + ")")
			}
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}
	if content != "" {
		b.WriteString(content + "\n\n")
	}
	if m.Err != "" {
		b.WriteString("> Turn ended with error: " + m.Err + "\n\n")
	}
	if m.Usage != nil {
		b.WriteString(fmt.Sprintf("_%d tokens, %dms_\n\n", m.Usage.Tokens, m.Usage.Millis))
	}
}

func formatToolData(data json.RawMessage) string {
	if len(data) == 0 {
		return "{}"
	}
	var pretty bytes.Buffer
	if err := json.Indent(&pretty, data, "", "  "); err != nil {
		return string(data)
	}
	return pretty.String()
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
