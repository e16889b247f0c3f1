// Package tui is the terminal surface for one FIR draft session.
package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/cursor"
	"github.com/charmbracelet/bubbles/textarea"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/rbright/voicefir/internal/analysis"
	"github.com/rbright/voicefir/internal/capture"
	"github.com/rbright/voicefir/internal/fsm"
	"github.com/rbright/voicefir/internal/narrative"
	"github.com/rbright/voicefir/internal/session"
)

const (
	tickInterval  = 200 * time.Millisecond
	statusTimeout = 6 * time.Second

	narrativeHeight = 6
	draftHeight     = 16
	minDraftHeight  = 6
	minAreaWidth    = 20
	// rows around the draft editor: header, panel title, analysis, status, footer
	draftChrome = 12

	narrativePlaceholder = "Speak or type what happened, when, where, and who was involved."
)

// Session is the draft workflow driven by the model.
type Session interface {
	Snapshot() session.Snapshot
	SetNarrative(text string) error
	EditDraft(text string) error
	Generate(ctx context.Context) (string, error)
	Validate(ctx context.Context) (analysis.Result, error)
	Export(ctx context.Context) (string, error)
	StartNew()
}

// Voice is the speech capture control. A nil Voice means typing only.
type Voice interface {
	HasSupport() bool
	Start(ctx context.Context) error
	Stop() error
	State() capture.State
	Interim() string
}

type Options struct {
	MinExportScore int
}

// Model is the root bubbletea model.
type Model struct {
	ctx     context.Context
	session Session
	voice   Voice
	notices <-chan session.Notice
	opts    Options

	snap      session.Snapshot
	listening bool
	interim   string

	// Editors hold the text being typed. The *Text fields are the session
	// text last loaded into them, so outside changes can be detected.
	narrativeArea textarea.Model
	draftArea     textarea.Model
	narrativeText string
	draftText     string

	status    string
	statusErr bool
	statusSeq int

	width  int
	height int
}

// New builds a model. notices may be nil.
func New(ctx context.Context, s Session, voice Voice, notices <-chan session.Notice, opts Options) Model {
	m := Model{
		ctx:     ctx,
		session: s,
		voice:   voice,
		notices: notices,
		opts:    opts,
		snap:    s.Snapshot(),

		narrativeArea: newArea(narrativePlaceholder, narrativeHeight),
		draftArea:     newArea("", draftHeight),
	}
	m.syncAreas()
	if !m.voiceSupported() {
		m.status = capture.UnsupportedMessage
	}
	return m
}

func newArea(placeholder string, height int) textarea.Model {
	area := textarea.New()
	area.Placeholder = placeholder
	area.ShowLineNumbers = false
	area.CharLimit = 0
	area.MaxHeight = 0
	area.SetHeight(height)
	_ = area.Cursor.SetMode(cursor.CursorStatic)
	_ = area.Focus()
	return area
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(tickCmd(), waitForNotice(m.notices))
}

func tickCmd() tea.Cmd {
	return tea.Tick(tickInterval, func(time.Time) tea.Msg { return tickMsg{} })
}

// waitForNotice reads one notice; the model re-arms it after each delivery.
func waitForNotice(notices <-chan session.Notice) tea.Cmd {
	if notices == nil {
		return nil
	}
	return func() tea.Msg {
		notice, ok := <-notices
		if !ok {
			return noticesClosedMsg{}
		}
		return NoticeMsg{Notice: notice}
	}
}

func generateCmd(ctx context.Context, s Session) tea.Cmd {
	return func() tea.Msg {
		_, err := s.Generate(ctx)
		return generatedMsg{err: err}
	}
}

func validateCmd(ctx context.Context, s Session) tea.Cmd {
	return func() tea.Msg {
		res, err := s.Validate(ctx)
		return validatedMsg{result: res, err: err}
	}
}

func exportCmd(ctx context.Context, s Session) tea.Cmd {
	return func() tea.Msg {
		location, err := s.Export(ctx)
		return exportedMsg{location: location, err: err}
	}
}

func listenCmd(ctx context.Context, voice Voice, start bool) tea.Cmd {
	return func() tea.Msg {
		if start {
			err := voice.Start(ctx)
			return listenMsg{listening: err == nil, err: err}
		}
		return listenMsg{listening: false, err: voice.Stop()}
	}
}

func startNewCmd(s Session) tea.Cmd {
	return func() tea.Msg {
		s.StartNew()
		return startedNewMsg{}
	}
}

// stopThen stops capture off the update loop, then runs next. A stopping
// device may flush a last segment, so next must not start before Stop returns.
func stopThen(voice Voice, next tea.Cmd) tea.Cmd {
	return func() tea.Msg {
		_ = voice.Stop()
		return next()
	}
}

func clearStatusCmd(seq int) tea.Cmd {
	return tea.Tick(statusTimeout, func(time.Time) tea.Msg { return clearStatusMsg{seq: seq} })
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		width := max(msg.Width-4, minAreaWidth)
		m.narrativeArea.SetWidth(width)
		m.draftArea.SetWidth(width)
		m.draftArea.SetHeight(max(msg.Height-draftChrome, minDraftHeight))
		return m, nil

	case tickMsg:
		m.refresh()
		return m, tickCmd()

	case NoticeMsg:
		cmd := m.setStatus(msg.Notice.Title+": "+msg.Notice.Message, true)
		return m, tea.Batch(cmd, waitForNotice(m.notices))

	case noticesClosedMsg:
		return m, nil

	case generatedMsg:
		m.refresh()
		switch {
		case msg.err == nil:
			return m, m.setStatus("Draft ready. Edit it, then press ctrl+k to validate.", false)
		case reportedByNotice(msg.err):
			return m, nil
		default:
			return m, m.setStatus(msg.err.Error(), true)
		}

	case validatedMsg:
		m.refresh()
		switch {
		case msg.err == nil:
			text := fmt.Sprintf("Validated: completeness %d/100, seriousness %s.", msg.result.Score, msg.result.Severity)
			if msg.result.Score < m.opts.MinExportScore {
				text += fmt.Sprintf(" Export needs %d or more.", m.opts.MinExportScore)
			}
			return m, m.setStatus(text, false)
		case reportedByNotice(msg.err):
			return m, nil
		case errors.Is(msg.err, session.ErrEmptyDraft):
			return m, m.setStatus("The draft is empty.", true)
		default:
			return m, m.setStatus(msg.err.Error(), true)
		}

	case exportedMsg:
		switch {
		case msg.err == nil:
			return m, m.setStatus("Exported "+msg.location, false)
		case reportedByNotice(msg.err):
			return m, nil
		case errors.Is(msg.err, session.ErrNotValidated):
			return m, m.setStatus("Validate the draft before exporting.", true)
		case errors.Is(msg.err, session.ErrScoreBelowThreshold):
			return m, m.setStatus(fmt.Sprintf("Completeness is below %d. Add the missing details and validate again.", m.opts.MinExportScore), true)
		default:
			return m, m.setStatus(msg.err.Error(), true)
		}

	case listenMsg:
		m.listening = msg.listening
		if msg.err != nil && !m.listening {
			m.interim = ""
		}
		return m, nil

	case startedNewMsg:
		return m.startedNew()

	case clearStatusMsg:
		if msg.seq == m.statusSeq {
			m.status = ""
			m.statusErr = false
		}
		return m, nil
	}

	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()
	switch key {
	case keyQuit:
		if m.listening && m.voice != nil {
			m.listening = false
			return m, tea.Sequence(listenCmd(m.ctx, m.voice, false), tea.Quit)
		}
		return m, tea.Quit

	case keyEsc:
		if m.listening {
			return m, listenCmd(m.ctx, m.voice, false)
		}
		return m, nil

	case keyListen:
		if !m.voiceSupported() {
			return m, m.setStatus(capture.UnsupportedMessage, true)
		}
		if m.snap.Stage != fsm.StageRecord {
			return m, nil
		}
		return m, listenCmd(m.ctx, m.voice, !m.listening)

	case keyGenerate:
		if m.snap.Stage != fsm.StageRecord {
			return m, nil
		}
		m.snap.Stage = fsm.StageProcessing
		m.showProgress("Generating FIR draft...")
		if m.listening && m.voice != nil {
			m.listening = false
			m.interim = ""
			return m, stopThen(m.voice, generateCmd(m.ctx, m.session))
		}
		return m, generateCmd(m.ctx, m.session)

	case keyValidate:
		if !fsm.HasDraft(m.snap.Stage) {
			return m, nil
		}
		m.snap.Validating = true
		return m, tea.Batch(validateCmd(m.ctx, m.session), m.setStatus("Checking completeness and seriousness...", false))

	case keyExport:
		if !fsm.HasDraft(m.snap.Stage) {
			return m, nil
		}
		return m, exportCmd(m.ctx, m.session)

	case keyStartNew:
		if m.listening && m.voice != nil {
			m.listening = false
			m.interim = ""
			return m, stopThen(m.voice, startNewCmd(m.session))
		}
		m.session.StartNew()
		return m.startedNew()
	}

	return m.edit(msg)
}

func (m Model) startedNew() (tea.Model, tea.Cmd) {
	m.refresh()
	return m, m.setStatus("Started a new report.", false)
}

// edit hands the key to the focused editor. A changed value is pushed to the
// session; cursor movement alone leaves validation intact.
func (m Model) edit(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	m.refresh()

	var cmd tea.Cmd
	var err error
	switch {
	case m.snap.Stage == fsm.StageRecord:
		before := m.narrativeArea.Value()
		m.narrativeArea, cmd = m.narrativeArea.Update(msg)
		if after := m.narrativeArea.Value(); after != before {
			m.narrativeText = after
			err = m.session.SetNarrative(after)
		}
	case fsm.HasDraft(m.snap.Stage):
		before := m.draftArea.Value()
		m.draftArea, cmd = m.draftArea.Update(msg)
		if after := m.draftArea.Value(); after != before {
			m.draftText = after
			err = m.session.EditDraft(after)
		}
	default:
		return m, nil
	}
	if err != nil {
		return m, tea.Batch(cmd, m.setStatus(err.Error(), true))
	}
	m.refresh()
	return m, cmd
}

func (m *Model) refresh() {
	m.snap = m.session.Snapshot()
	if m.voice != nil && m.voice.HasSupport() {
		m.listening = m.voice.State().Listening
		m.interim = m.voice.Interim()
	}
	m.syncAreas()
}

// syncAreas reloads an editor whose session text changed elsewhere, such as
// a spoken segment, a new draft, or a reset.
func (m *Model) syncAreas() {
	if m.snap.Narrative != m.narrativeText {
		m.narrativeArea.SetValue(m.snap.Narrative)
		m.narrativeText = m.snap.Narrative
	}
	if m.snap.EditableDraft != m.draftText {
		m.draftArea.SetValue(m.snap.EditableDraft)
		m.draftText = m.snap.EditableDraft
	}
}

// showProgress sets a status that the pending result replaces.
func (m *Model) showProgress(text string) {
	m.statusSeq++
	m.status = text
	m.statusErr = false
}

func (m *Model) setStatus(text string, isErr bool) tea.Cmd {
	m.statusSeq++
	m.status = text
	m.statusErr = isErr
	return clearStatusCmd(m.statusSeq)
}

func (m Model) voiceSupported() bool {
	return m.voice != nil && m.voice.HasSupport()
}

// reportedByNotice reports errors already surfaced as a session notice, or
// results the session discarded.
func reportedByNotice(err error) bool {
	return errors.Is(err, session.ErrInputTooShort) ||
		errors.Is(err, session.ErrGenerationFailed) ||
		errors.Is(err, session.ErrAnalysisFailed) ||
		errors.Is(err, session.ErrExportFailed) ||
		errors.Is(err, session.ErrSuperseded)
}

// View renders the header, the focused panel, the status line, and the key help.
func (m Model) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("voicefir · FIR draft"))
	b.WriteString("  ")
	b.WriteString(stageStyle.Render(strings.ToUpper(string(m.snap.Stage))))
	if m.snap.ID != "" {
		b.WriteString("  ")
		b.WriteString(dimStyle.Render("session " + shortID(m.snap.ID)))
	}
	b.WriteString("\n\n")

	switch m.snap.Stage {
	case fsm.StageRecord:
		b.WriteString(m.renderNarrative())
	case fsm.StageProcessing:
		b.WriteString(panelStyle.Render(dimStyle.Render("Generating FIR draft...")))
	default:
		b.WriteString(m.renderDraft())
	}
	b.WriteString("\n")

	if m.status != "" {
		if m.statusErr {
			b.WriteString(errorStyle.Render(m.status))
		} else {
			b.WriteString(okStyle.Render(m.status))
		}
		b.WriteString("\n")
	}

	b.WriteString(m.renderFooter())
	return b.String()
}

func (m Model) renderNarrative() string {
	var body strings.Builder
	body.WriteString(panelTitleStyle.Render("Incident narrative"))
	if m.listening {
		body.WriteString("  " + listeningStyle.Render("● listening"))
	}
	body.WriteString("\n")

	body.WriteString(m.narrativeArea.View())
	if m.interim != "" {
		body.WriteString("\n" + interimStyle.Render(m.interim))
	}

	length := narrative.Length(m.snap.Narrative)
	counter := fmt.Sprintf("%d characters", length)
	if !narrative.LongEnough(m.snap.Narrative) {
		counter += fmt.Sprintf(" (more than %d needed)", narrative.MinGenerateLength)
	}
	body.WriteString("\n" + dimStyle.Render(counter))
	return m.panel(body.String())
}

func (m Model) renderDraft() string {
	var body strings.Builder
	body.WriteString(panelTitleStyle.Render("FIR draft"))
	if m.snap.EditableDraft != m.snap.GeneratedDraft {
		body.WriteString("  " + dimStyle.Render("(edited)"))
	}
	body.WriteString("\n")
	body.WriteString(m.draftArea.View())
	body.WriteString("\n\n")

	switch {
	case m.snap.Validating:
		body.WriteString(dimStyle.Render("Analyzing..."))
	case m.snap.Analysis != nil:
		res := m.snap.Analysis
		body.WriteString("Completeness ")
		body.WriteString(scoreStyle(res.Score, m.opts.MinExportScore).Render(fmt.Sprintf("%d/100", res.Score)))
		body.WriteString("  Seriousness ")
		body.WriteString(severityStyle(string(res.Severity)).Render(string(res.Severity)))
		if missing := analysis.MissingSignals(m.snap.EditableDraft); len(missing) > 0 {
			body.WriteString("\n" + dimStyle.Render("Missing: "+strings.Join(missing, ", ")))
		}
	case m.snap.Preview != nil:
		body.WriteString(dimStyle.Render(fmt.Sprintf("Preview: completeness %d/100, seriousness %s (not validated)", m.snap.Preview.Score, m.snap.Preview.Severity)))
	default:
		body.WriteString(dimStyle.Render("Not validated"))
	}
	return m.panel(body.String())
}

func (m Model) panel(content string) string {
	style := panelStyle
	if m.width > 4 {
		style = style.Width(m.width - 2)
	}
	return style.Render(content)
}

func (m Model) renderFooter() string {
	type binding struct{ key, desc string }
	var bindings []binding
	switch {
	case m.snap.Stage == fsm.StageRecord:
		if m.voiceSupported() {
			label := "listen"
			if m.listening {
				label = "stop"
			}
			bindings = append(bindings, binding{"ctrl+r", label})
		}
		bindings = append(bindings, binding{"ctrl+g", "generate"})
	case fsm.HasDraft(m.snap.Stage):
		bindings = append(bindings, binding{"ctrl+k", "validate"})
		if m.snap.Stage == fsm.StageValidated && m.snap.Analysis != nil && m.snap.Analysis.Score >= m.opts.MinExportScore {
			bindings = append(bindings, binding{"ctrl+e", "export"})
		}
	}
	bindings = append(bindings, binding{"ctrl+n", "new"}, binding{"ctrl+c", "quit"})

	parts := make([]string, 0, len(bindings))
	for _, b := range bindings {
		parts = append(parts, footerKeyStyle.Render(b.key)+" "+footerDescStyle.Render(b.desc))
	}
	return strings.Join(parts, "  ")
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
