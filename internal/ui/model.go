package ui

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"

	"vectoraiz/internal/assist"
	"vectoraiz/internal/highlight"
	"vectoraiz/internal/session"
)

// TurnArchiver persists settled turns. The sqlite archive implements it.
type TurnArchiver interface {
	SaveTurn(sessionID string, msgs []session.Message) error
}

// TranscriptExporter writes the conversation to disk.
type TranscriptExporter interface {
	Export(sessionID string, msgs []session.Message, now time.Time) (string, error)
}

// Deps wires the model's collaborators. Session and SessionID are required;
// the rest may be nil, which disables the matching key binding.
type Deps struct {
	Session   *session.Session
	SessionID string
	Archive   TurnArchiver
	Exporter  TranscriptExporter
	Copy      func(ctx context.Context, text string) error
	Style     string
	Logf      func(format string, args ...any)
}

// Messages delivered by the Relay from other goroutines.
type (
	// EventMsg carries one decoded assistant-channel event.
	EventMsg struct{ Ev assist.Event }
	// ConnLostMsg reports a dropped channel.
	ConnLostMsg struct{ Err error }
	// ConnectedMsg reports an established channel.
	ConnectedMsg struct{}

	timerFireMsg struct{ fn func() }
)

type renderMsg struct {
	nonce    int
	rendered string
}

type exportMsg struct {
	path string
	err  error
}

type copyMsg struct{ err error }

type turnSavedMsg struct{ err error }

type Model struct {
	deps Deps
	sess *session.Session

	viewport viewport.Model
	composer textinput.Model
	search   textinput.Model
	spinner  spinner.Model
	help     help.Model
	keys     keyMap

	width  int
	height int

	searchMode  bool
	searchQuery string
	matchLines  []int
	matchCount  int
	matchIndex  int

	rendering   bool
	renderNonce int
	rendered    string

	status string
	err    error
}

func NewModel(deps Deps) Model {
	if deps.Logf == nil {
		deps.Logf = func(string, ...any) {}
	}

	composer := textinput.New()
	composer.Placeholder = "Ask the assistant..."
	composer.Prompt = "> "
	composer.CharLimit = 4000
	composer.Focus()

	search := textinput.New()
	search.Placeholder = "Search transcript..."
	search.Prompt = "/ "
	search.CharLimit = 256

	sp := spinner.New()
	sp.Spinner = spinner.Points

	vp := viewport.New(80, 20)

	h := help.New()
	h.ShowAll = false

	return Model{
		deps:       deps,
		sess:       deps.Session,
		viewport:   vp,
		composer:   composer,
		search:     search,
		spinner:    sp,
		help:       h,
		keys:       defaultKeys(),
		matchIndex: -1,
	}
}

func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.resize()
		m.refreshTranscript(true)

	case timerFireMsg:
		// Countdown and reconnect displays read live state in View,
		// so firing the callback is all there is to do.
		msg.fn()

	case EventMsg:
		wasStreaming := m.sess.Streaming()
		m.sess.HandleEvent(msg.Ev)
		m.refreshTranscript(true)
		if !m.sess.Streaming() {
			if wasStreaming {
				cmds = append(cmds, m.saveTurnCmd())
			}
			cmds = append(cmds, m.renderSettled())
		}
		m.resize()

	case ConnLostMsg:
		m.sess.HandleConnectionLost()
		m.status = ""
		m.refreshTranscript(false)

	case ConnectedMsg:
		m.sess.HandleConnected()
		m.status = "connected"

	case renderMsg:
		if msg.nonce != m.renderNonce {
			break
		}
		m.rendering = false
		m.rendered = msg.rendered
		m.setViewportContent(msg.rendered, true)

	case exportMsg:
		if msg.err != nil {
			m.status = "Export failed: " + msg.err.Error()
		} else {
			m.status = "Exported: " + msg.path
		}

	case copyMsg:
		if msg.err != nil {
			m.status = "Could not copy: " + msg.err.Error()
		} else {
			m.status = "Copied last reply"
		}

	case turnSavedMsg:
		if msg.err != nil {
			m.deps.Logf("ui: archive turn: %v", msg.err)
		}

	case spinner.TickMsg:
		if m.sess.Streaming() {
			var spin tea.Cmd
			m.spinner, spin = m.spinner.Update(msg)
			cmds = append(cmds, spin)
		}

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	return m, tea.Batch(cmds...)
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.Quit) {
		m.sess.Close()
		return m, tea.Quit
	}

	if m.searchMode {
		switch msg.String() {
		case "esc":
			m.searchMode = false
			m.searchQuery = ""
			m.search.SetValue("")
			m.search.Blur()
			m.composer.Focus()
			m.setViewportContent(m.rendered, false)
			return m, nil
		case "enter":
			m.searchMode = false
			m.search.Blur()
			m.composer.Focus()
			m.searchQuery = strings.TrimSpace(m.search.Value())
			m.setViewportContent(m.rendered, false)
			if len(m.matchLines) > 0 {
				m.matchIndex = 0
				m.viewport.SetYOffset(m.clampOffset(m.matchLines[0]))
			}
			return m, nil
		}
		var cmd tea.Cmd
		m.search, cmd = m.search.Update(msg)
		return m, cmd
	}

	// A pending confirmation is modal: y runs the action, n declines it.
	if confirmID, _, ok := m.pendingConfirm(); ok {
		switch msg.String() {
		case "y", "Y":
			if err := m.sess.ConfirmAction(confirmID); err != nil {
				m.deps.Logf("ui: confirm %s: %v", confirmID, err)
			}
		case "n", "N", "esc":
			if err := m.sess.CancelAction(confirmID); err != nil {
				m.deps.Logf("ui: cancel %s: %v", confirmID, err)
			}
		default:
			return m, nil
		}
		m.refreshTranscript(false)
		m.resize()
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.Send):
		text := strings.TrimSpace(m.composer.Value())
		if text == "" {
			return m, nil
		}
		if err := m.sess.SendMessage(text); err != nil {
			m.status = m.sendRefusalStatus(err)
			return m, nil
		}
		m.composer.SetValue("")
		m.status = ""
		m.refreshTranscript(true)
		return m, m.spinner.Tick

	case key.Matches(msg, m.keys.Stop):
		if !m.sess.Streaming() {
			return m, nil
		}
		m.sess.StopStreaming()
		m.refreshTranscript(false)
		return m, tea.Batch(m.saveTurnCmd(), m.renderSettled())

	case key.Matches(msg, m.keys.Search):
		m.searchMode = true
		m.composer.Blur()
		m.search.SetValue(m.searchQuery)
		m.search.CursorEnd()
		m.search.Focus()
		return m, nil

	case key.Matches(msg, m.keys.NextMatch):
		m.jumpToMatch(1)
		return m, nil

	case key.Matches(msg, m.keys.Export):
		return m, m.exportCmd()

	case key.Matches(msg, m.keys.Copy):
		return m, m.copyCmd()

	case key.Matches(msg, m.keys.Dismiss):
		m.dismissNewestNudge(false)
		m.refreshTranscript(false)
		return m, nil

	case key.Matches(msg, m.keys.DismissAlways):
		m.dismissNewestNudge(true)
		m.refreshTranscript(false)
		return m, nil

	case key.Matches(msg, m.keys.PageUp):
		m.viewport.HalfViewUp()
		return m, nil

	case key.Matches(msg, m.keys.PageDown):
		m.viewport.HalfViewDown()
		return m, nil
	}

	var cmd tea.Cmd
	m.composer, cmd = m.composer.Update(msg)
	return m, cmd
}

func (m *Model) sendRefusalStatus(err error) string {
	switch err {
	case session.ErrBusy:
		if m.sess.Streaming() {
			return "Still streaming; esc to stop first"
		}
		return "Last turn still winding down; one moment"
	case session.ErrNotConnected:
		return "Offline; waiting for reconnect"
	default:
		return err.Error()
	}
}

// pendingConfirm returns the newest confirmation still awaiting an answer.
func (m *Model) pendingConfirm() (string, session.ConfirmView, bool) {
	msgs := m.sess.Messages()
	for i := len(msgs) - 1; i >= 0; i-- {
		req := msgs[i].ConfirmRequest
		if req == nil {
			continue
		}
		view, ok := m.sess.ConfirmView(req.ConfirmID)
		if ok && view.State == session.ConfirmPending {
			return req.ConfirmID, view, true
		}
	}
	return "", session.ConfirmView{}, false
}

func (m *Model) dismissNewestNudge(permanent bool) {
	msgs := m.sess.Messages()
	for i := len(msgs) - 1; i >= 0; i-- {
		n := msgs[i].Nudge
		if n == nil || !n.Dismissable {
			continue
		}
		m.sess.DismissNudge(n.NudgeID, n.Trigger, permanent)
		if permanent {
			m.status = "Dismissed; trigger " + n.Trigger + " muted"
		} else {
			m.status = "Dismissed"
		}
		return
	}
	m.status = "Nothing to dismiss"
}

// refreshTranscript repaints the viewport from session state. While a turn
// streams the raw markdown goes straight in; glamour runs only on settle.
func (m *Model) refreshTranscript(gotoBottom bool) {
	body := m.buildTranscript()
	if m.sess.Streaming() || !m.rendering {
		m.rendered = body
	}
	m.setViewportContent(m.rendered, gotoBottom)
}

// renderSettled kicks off an async glamour pass over the settled transcript,
// guarded by a nonce so a stale render never lands.
func (m *Model) renderSettled() tea.Cmd {
	m.rendering = true
	m.renderNonce++
	nonce := m.renderNonce
	body := m.buildTranscript()
	wrap := m.viewport.Width - 2
	if wrap < 20 {
		wrap = 20
	}
	style := m.deps.Style
	if style == "" {
		style = "dark"
	}
	return func() tea.Msg {
		r, err := glamour.NewTermRenderer(
			glamour.WithStandardStyle(style),
			glamour.WithWordWrap(wrap),
		)
		if err != nil {
			return renderMsg{nonce: nonce, rendered: body}
		}
		out, err := r.Render(body)
		if err != nil {
			return renderMsg{nonce: nonce, rendered: body}
		}
		return renderMsg{nonce: nonce, rendered: out}
	}
}

func (m *Model) buildTranscript() string {
	msgs := m.sess.Messages()
	if len(msgs) == 0 {
		return "Connected. Ask away."
	}
	var b strings.Builder
	for _, msg := range msgs {
		if b.Len() > 0 {
			b.WriteString("\n\n")
		}
		if msg.Kind == session.KindNudge && msg.Nudge != nil {
			icon := msg.Nudge.Icon
			if icon == "" {
				icon = "hint"
			}
			b.WriteString("> " + icon + ": " + msg.Nudge.Message)
			if msg.Nudge.Dismissable {
				b.WriteString("\n> (ctrl+d dismisses, ctrl+x mutes the trigger)")
			}
			continue
		}
		switch msg.Role {
		case session.RoleUser:
			b.WriteString("## You\n\n" + msg.Content)
		case session.RoleAssistant:
			b.WriteString("## Assistant\n\n")
			b.WriteString(m.assistantBody(msg))
		case session.RoleSystem:
			b.WriteString("## System\n\n" + msg.Content)
			if msg.ConfirmRequest != nil {
				b.WriteString(m.confirmLines(msg))
			}
		}
	}
	return b.String()
}

func (m *Model) assistantBody(msg session.Message) string {
	var b strings.Builder
	if msg.Content != "" {
		b.WriteString(msg.Content)
	}
	if msg.Streaming && msg.ToolStatus != "" {
		if b.Len() > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString("_" + msg.ToolStatus + "_")
	}
	for _, tr := range msg.ToolResults {
		if b.Len() > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString("```json\n" + indentJSON(tr.Data) + "\n```")
	}
	if msg.ConfirmRequest != nil {
		b.WriteString(m.confirmLines(msg))
	}
	if msg.Err != "" {
		if b.Len() > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString("> error: " + msg.Err)
	}
	if msg.Usage != nil && !msg.Streaming {
		if b.Len() > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(fmt.Sprintf("_%d tokens, %dms_", msg.Usage.Tokens, msg.Usage.Millis))
	}
	return b.String()
}

func (m *Model) confirmLines(msg session.Message) string {
	req := msg.ConfirmRequest
	var b strings.Builder
	b.WriteString("\n\n> " + req.ToolName + ": " + req.Description)
	if view, ok := m.sess.ConfirmView(req.ConfirmID); ok && view.State != session.ConfirmPending {
		b.WriteString("\n> " + view.State.String())
	}
	if msg.ConfirmResult != nil {
		outcome := "failed"
		if msg.ConfirmResult.Success {
			outcome = "done"
		}
		b.WriteString("\n> " + outcome)
		if msg.ConfirmResult.Message != "" {
			b.WriteString(": " + msg.ConfirmResult.Message)
		}
	}
	return b.String()
}

func indentJSON(raw json.RawMessage) string {
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "  "); err != nil {
		return string(raw)
	}
	return buf.String()
}

func (m *Model) setViewportContent(content string, gotoBottom bool) {
	query := strings.TrimSpace(m.searchQuery)
	if query != "" {
		res := highlight.Apply(content, query, func(s string) string {
			return searchMatchStyle.Render(s)
		})
		content = res.Text
		m.matchCount = res.Count
		m.matchLines = append(m.matchLines[:0], res.Lines...)
		if m.matchIndex < 0 || m.matchIndex >= len(m.matchLines) {
			m.matchIndex = 0
		}
	} else {
		m.matchLines = nil
		m.matchCount = 0
		m.matchIndex = -1
	}
	m.viewport.SetContent(content)
	if gotoBottom {
		m.viewport.GotoBottom()
	}
}

func (m *Model) jumpToMatch(delta int) {
	if len(m.matchLines) == 0 {
		m.status = "No matches"
		return
	}
	if m.matchIndex < 0 {
		m.matchIndex = 0
	} else {
		m.matchIndex = (m.matchIndex + delta + len(m.matchLines)) % len(m.matchLines)
	}
	m.viewport.SetYOffset(m.clampOffset(m.matchLines[m.matchIndex]))
	m.status = fmt.Sprintf("Match %d/%d", m.matchIndex+1, m.matchCount)
}

func (m *Model) clampOffset(offset int) int {
	if offset < 0 {
		return 0
	}
	maxOffset := m.viewport.TotalLineCount() - m.viewport.Height
	if maxOffset < 0 {
		maxOffset = 0
	}
	if offset > maxOffset {
		return maxOffset
	}
	return offset
}

func (m *Model) saveTurnCmd() tea.Cmd {
	if m.deps.Archive == nil {
		return nil
	}
	msgs := m.lastTurn()
	if len(msgs) == 0 {
		return nil
	}
	archive := m.deps.Archive
	sessionID := m.deps.SessionID
	return func() tea.Msg {
		return turnSavedMsg{err: archive.SaveTurn(sessionID, msgs)}
	}
}

// lastTurn returns the newest user entry and everything after it.
func (m *Model) lastTurn() []session.Message {
	msgs := m.sess.Messages()
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Role == session.RoleUser {
			return msgs[i:]
		}
	}
	return nil
}

func (m *Model) exportCmd() tea.Cmd {
	if m.deps.Exporter == nil {
		return nil
	}
	exporter := m.deps.Exporter
	sessionID := m.deps.SessionID
	msgs := m.sess.Messages()
	return func() tea.Msg {
		path, err := exporter.Export(sessionID, msgs, time.Now())
		return exportMsg{path: path, err: err}
	}
}

func (m *Model) copyCmd() tea.Cmd {
	if m.deps.Copy == nil {
		return nil
	}
	reply := ""
	msgs := m.sess.Messages()
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Role == session.RoleAssistant && !msgs[i].Streaming && msgs[i].Content != "" {
			reply = msgs[i].Content
			break
		}
	}
	if reply == "" {
		m.status = "No settled reply to copy"
		return nil
	}
	copyFn := m.deps.Copy
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		return copyMsg{err: copyFn(ctx, reply)}
	}
}

func (m *Model) resize() {
	if m.width <= 0 || m.height <= 0 {
		return
	}
	body := m.height - 4
	if _, _, ok := m.pendingConfirm(); ok {
		body -= confirmCardHeight
	}
	if body < 4 {
		body = 4
	}
	m.viewport.Width = m.width - 2
	m.viewport.Height = body
	m.composer.Width = m.width - 4
	m.search.Width = m.width - 4
}

func (m Model) View() string {
	if m.width == 0 || m.height == 0 {
		return "Starting..."
	}

	sections := []string{m.statusLine(), m.viewport.View()}
	if confirmID, view, ok := m.pendingConfirm(); ok {
		sections = append(sections, m.confirmCard(confirmID, view))
	}
	if m.searchMode {
		sections = append(sections, m.search.View())
	} else {
		sections = append(sections, m.composer.View())
	}
	sections = append(sections, m.help.View(m.keys))

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m Model) statusLine() string {
	parts := []string{"vectoraiz " + shorten(m.deps.SessionID, 12)}

	conn := m.sess.Connection()
	switch conn.Status {
	case session.Connected:
		if m.sess.Streaming() {
			parts = append(parts, m.spinner.View()+" streaming (esc stops)")
		}
	case session.Disconnected:
		parts = append(parts, fmt.Sprintf("offline, retrying in %ds", conn.ReconnectIn))
	case session.Reconnecting:
		parts = append(parts, "reconnecting...")
	}

	if m.searchQuery != "" {
		if m.matchCount > 0 {
			parts = append(parts, fmt.Sprintf("match %d/%d", m.matchIndex+1, m.matchCount))
		} else {
			parts = append(parts, "no matches")
		}
	}
	if strings.TrimSpace(m.status) != "" {
		parts = append(parts, shorten(strings.TrimSpace(m.status), 64))
	}

	line := strings.Join(parts, "  |  ")
	return statusStyle.Width(m.width).Render(ansi.Truncate(line, m.width-2, "..."))
}

const confirmCardHeight = 6

func (m Model) confirmCard(confirmID string, view session.ConfirmView) string {
	req := m.confirmRequest(confirmID)
	if req == nil {
		return ""
	}
	var b strings.Builder
	b.WriteString(confirmTitleStyle.Render(req.ToolName) + "\n")
	b.WriteString(req.Description + "\n")
	if len(req.Details) > 0 {
		b.WriteString(confirmDetailStyle.Render(formatDetails(req.Details)) + "\n")
	}
	b.WriteString(fmt.Sprintf("expires in %ds   [y] run   [n] dismiss", view.Remaining))
	return confirmCardStyle.Width(m.width - 2).Render(b.String())
}

func (m Model) confirmRequest(confirmID string) *assist.ConfirmRequest {
	for _, msg := range m.sess.Messages() {
		if msg.ConfirmRequest != nil && msg.ConfirmRequest.ConfirmID == confirmID {
			return msg.ConfirmRequest
		}
	}
	return nil
}

func formatDetails(details map[string]any) string {
	parts := make([]string, 0, len(details))
	for k, v := range details {
		parts = append(parts, fmt.Sprintf("%s=%v", k, v))
	}
	return strings.Join(parts, "  ")
}

func shorten(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	if n <= 3 {
		return s[:n]
	}
	return s[:n-3] + "..."
}

var (
	statusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("252")).
			Background(lipgloss.Color("24")).
			Padding(0, 1)
	searchMatchStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("16")).
				Background(lipgloss.Color("220"))
	confirmCardStyle = lipgloss.NewStyle().
				Border(lipgloss.NormalBorder(), true).
				BorderForeground(lipgloss.Color("178")).
				Padding(0, 1)
	confirmTitleStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("178"))
	confirmDetailStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("245"))
)

type keyMap struct {
	Send          key.Binding
	Stop          key.Binding
	Search        key.Binding
	NextMatch     key.Binding
	Export        key.Binding
	Copy          key.Binding
	Dismiss       key.Binding
	DismissAlways key.Binding
	PageUp        key.Binding
	PageDown      key.Binding
	Quit          key.Binding
}

func defaultKeys() keyMap {
	return keyMap{
		Send: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "send"),
		),
		Stop: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "stop streaming"),
		),
		Search: key.NewBinding(
			key.WithKeys("ctrl+f"),
			key.WithHelp("ctrl+f", "search"),
		),
		NextMatch: key.NewBinding(
			key.WithKeys("ctrl+n"),
			key.WithHelp("ctrl+n", "next match"),
		),
		Export: key.NewBinding(
			key.WithKeys("ctrl+e"),
			key.WithHelp("ctrl+e", "export markdown"),
		),
		Copy: key.NewBinding(
			key.WithKeys("ctrl+y"),
			key.WithHelp("ctrl+y", "copy last reply"),
		),
		Dismiss: key.NewBinding(
			key.WithKeys("ctrl+d"),
			key.WithHelp("ctrl+d", "dismiss nudge"),
		),
		DismissAlways: key.NewBinding(
			key.WithKeys("ctrl+x"),
			key.WithHelp("ctrl+x", "mute nudge trigger"),
		),
		PageUp: key.NewBinding(
			key.WithKeys("pgup"),
			key.WithHelp("pgup", "scroll up"),
		),
		PageDown: key.NewBinding(
			key.WithKeys("pgdown"),
			key.WithHelp("pgdn", "scroll down"),
		),
		Quit: key.NewBinding(
			key.WithKeys("ctrl+c"),
			key.WithHelp("ctrl+c", "quit"),
		),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Send, k.Stop, k.Search, k.Export, k.Copy, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Send, k.Stop, k.Search, k.NextMatch},
		{k.Export, k.Copy, k.Dismiss, k.DismissAlways},
		{k.PageUp, k.PageDown, k.Quit},
	}
}
