package tui

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/require"

	"github.com/rbright/voicefir/internal/analysis"
	"github.com/rbright/voicefir/internal/capture"
	"github.com/rbright/voicefir/internal/fsm"
	"github.com/rbright/voicefir/internal/session"
)

const (
	longNarrative = "my phone was stolen yesterday near the market by a man"
	completeDraft = "A man committed theft of my phone yesterday near the market road."
	weakDraft     = "The complainant submits this report for the record only."
)

type fakeVoice struct {
	supported bool
	starts    atomic.Int32
	stops     atomic.Int32
	listening atomic.Bool
	interim   string
}

func (v *fakeVoice) HasSupport() bool { return v.supported }

func (v *fakeVoice) Start(context.Context) error {
	v.starts.Add(1)
	v.listening.Store(true)
	return nil
}

func (v *fakeVoice) Stop() error {
	v.stops.Add(1)
	v.listening.Store(false)
	return nil
}

func (v *fakeVoice) State() capture.State { return capture.State{Listening: v.listening.Load()} }

func (v *fakeVoice) Interim() string { return v.interim }

type harness struct {
	machine *session.Machine
	notices chan session.Notice
	model   Model
}

func newHarness(t *testing.T, draft string, voice Voice, exporter session.Exporter) *harness {
	t.Helper()
	notices := make(chan session.Notice, 8)
	generator := session.GenerateFunc(func(context.Context, string) (string, error) { return draft, nil })
	machine := session.NewMachine(nil, generator, nil, exporter, session.NotifyFunc(func(n session.Notice) {
		notices <- n
	}), session.Options{MinExportScore: 40})
	t.Cleanup(machine.Close)

	return &harness{
		machine: machine,
		notices: notices,
		model:   New(context.Background(), machine, voice, notices, Options{MinExportScore: 40}),
	}
}

func (h *harness) send(t *testing.T, msg tea.Msg) tea.Cmd {
	t.Helper()
	updated, cmd := h.model.Update(msg)
	h.model = updated.(Model)
	return cmd
}

func (h *harness) typeText(t *testing.T, text string) {
	t.Helper()
	for _, r := range text {
		if r == ' ' {
			h.send(t, tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}})
			continue
		}
		h.send(t, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
	}
}

func (h *harness) generate(t *testing.T) {
	t.Helper()
	cmd := h.send(t, tea.KeyMsg{Type: tea.KeyCtrlG})
	require.NotNil(t, cmd)
	h.send(t, cmd())
}

func (h *harness) press(t *testing.T, key tea.KeyType, times int) {
	t.Helper()
	for range times {
		h.send(t, tea.KeyMsg{Type: key})
	}
}

func (h *harness) validate(t *testing.T) {
	t.Helper()
	h.send(t, validateCmd(context.Background(), h.machine)())
	require.Equal(t, fsm.StageValidated, h.model.snap.Stage)
}

func TestNewWithoutVoiceShowsTypingFallback(t *testing.T) {
	h := newHarness(t, completeDraft, nil, nil)
	require.Equal(t, capture.UnsupportedMessage, h.model.status)

	h.send(t, tea.KeyMsg{Type: tea.KeyCtrlR})
	require.True(t, h.model.statusErr)
	require.Equal(t, capture.UnsupportedMessage, h.model.status)
}

func TestTypingEditsNarrative(t *testing.T) {
	h := newHarness(t, completeDraft, nil, nil)

	h.typeText(t, "my phone")
	h.send(t, tea.KeyMsg{Type: tea.KeyBackspace})
	h.send(t, tea.KeyMsg{Type: tea.KeyEnter})
	require.Equal(t, "my phon\n", h.machine.Snapshot().Narrative)
	require.Contains(t, h.model.View(), "more than 30 needed")
}

func TestBackspaceOnEmptyTextIsIgnored(t *testing.T) {
	h := newHarness(t, completeDraft, nil, nil)
	h.send(t, tea.KeyMsg{Type: tea.KeyBackspace})
	require.Empty(t, h.machine.Snapshot().Narrative)
}

func TestShortNarrativeSurfacesNotice(t *testing.T) {
	h := newHarness(t, completeDraft, nil, nil)
	h.typeText(t, "too short")

	h.generate(t)
	require.Equal(t, fsm.StageRecord, h.model.snap.Stage)

	msg := waitForNotice(h.notices)()
	h.send(t, msg)
	require.True(t, h.model.statusErr)
	require.Equal(t, "Input Required: Please speak or type the incident before generating an FIR.", h.model.status)
}

func TestGenerateValidateExportFlow(t *testing.T) {
	var exported atomic.Int32
	exporter := session.ExportFunc(func(context.Context, string) (string, error) {
		exported.Add(1)
		return "/tmp/fir-VF-1.html", nil
	})
	h := newHarness(t, completeDraft, nil, exporter)
	require.NoError(t, h.machine.SetNarrative(longNarrative))

	h.generate(t)
	require.Equal(t, fsm.StageDraft, h.model.snap.Stage)
	require.Contains(t, h.model.status, "Draft ready")
	require.Contains(t, h.model.View(), "Not validated")
	require.NotContains(t, h.model.View(), "ctrl+e")

	h.send(t, tea.KeyMsg{Type: tea.KeyCtrlK})
	require.True(t, h.model.snap.Validating)
	h.send(t, validateCmd(context.Background(), h.machine)())
	require.Equal(t, fsm.StageValidated, h.model.snap.Stage)
	require.Contains(t, h.model.status, "completeness 100/100, seriousness MEDIUM")
	view := h.model.View()
	require.Contains(t, view, "Completeness")
	require.Contains(t, view, "ctrl+e")

	h.send(t, exportCmd(context.Background(), h.machine)())
	require.Equal(t, "Exported /tmp/fir-VF-1.html", h.model.status)
	require.Equal(t, int32(1), exported.Load())
}

func TestEditingDraftInvalidatesAnalysis(t *testing.T) {
	h := newHarness(t, completeDraft, nil, nil)
	require.NoError(t, h.machine.SetNarrative(longNarrative))
	h.generate(t)
	h.send(t, validateCmd(context.Background(), h.machine)())
	require.Equal(t, fsm.StageValidated, h.model.snap.Stage)

	h.typeText(t, "!")
	snap := h.machine.Snapshot()
	require.Equal(t, fsm.StageDraft, snap.Stage)
	require.Equal(t, completeDraft+"!", snap.EditableDraft)
	require.Contains(t, h.model.View(), "(edited)")
}

func TestMidDraftEditInvalidatesAnalysis(t *testing.T) {
	h := newHarness(t, completeDraft, nil, nil)
	require.NoError(t, h.machine.SetNarrative(longNarrative))
	h.generate(t)
	h.validate(t)

	h.press(t, tea.KeyLeft, len("road."))
	snap := h.machine.Snapshot()
	require.Equal(t, fsm.StageValidated, snap.Stage)
	require.NotNil(t, snap.Analysis)

	h.typeText(t, "main ")
	snap = h.machine.Snapshot()
	require.Equal(t, fsm.StageDraft, snap.Stage)
	require.Nil(t, snap.Analysis)
	require.Equal(t, "A man committed theft of my phone yesterday near the market main road.", snap.EditableDraft)

	h.validate(t)
	h.send(t, tea.KeyMsg{Type: tea.KeyHome})
	h.typeText(t, "Note: ")
	snap = h.machine.Snapshot()
	require.Equal(t, fsm.StageDraft, snap.Stage)
	require.Equal(t, "Note: A man committed theft of my phone yesterday near the market main road.", snap.EditableDraft)
}

func TestNarrativeEditorFollowsSpokenSegments(t *testing.T) {
	h := newHarness(t, completeDraft, nil, nil)
	h.typeText(t, "my phone")
	require.NoError(t, h.machine.AppendSegment("was stolen"))

	h.send(t, tickMsg{})
	h.typeText(t, " today")
	require.Equal(t, "my phone Was stolen today", h.machine.Snapshot().Narrative)
}

func TestExportBelowThresholdExplains(t *testing.T) {
	h := newHarness(t, weakDraft, nil, nil)
	require.NoError(t, h.machine.SetNarrative(longNarrative))
	h.generate(t)
	h.send(t, validateCmd(context.Background(), h.machine)())
	require.Contains(t, h.model.status, "Export needs 40 or more")

	h.send(t, exportCmd(context.Background(), h.machine)())
	require.True(t, h.model.statusErr)
	require.Contains(t, h.model.status, "Completeness is below 40")
}

func TestStartNewResetsView(t *testing.T) {
	h := newHarness(t, completeDraft, nil, nil)
	require.NoError(t, h.machine.SetNarrative(longNarrative))
	h.generate(t)
	before := h.model.snap.ID

	h.send(t, tea.KeyMsg{Type: tea.KeyCtrlN})
	require.Equal(t, fsm.StageRecord, h.model.snap.Stage)
	require.Empty(t, h.model.snap.Narrative)
	require.NotEqual(t, before, h.model.snap.ID)
}

func TestListenToggle(t *testing.T) {
	voice := &fakeVoice{supported: true, interim: "near the"}
	h := newHarness(t, completeDraft, voice, nil)
	require.Empty(t, h.model.status)

	cmd := h.send(t, tea.KeyMsg{Type: tea.KeyCtrlR})
	h.send(t, cmd())
	require.True(t, h.model.listening)
	require.Equal(t, int32(1), voice.starts.Load())

	h.send(t, tickMsg{})
	view := h.model.View()
	require.Contains(t, view, "listening")
	require.Contains(t, view, "near the")

	cmd = h.send(t, tea.KeyMsg{Type: tea.KeyCtrlR})
	h.send(t, cmd())
	require.False(t, h.model.listening)
	require.Equal(t, int32(1), voice.stops.Load())
}

func TestGenerateStopsListening(t *testing.T) {
	voice := &fakeVoice{supported: true}
	h := newHarness(t, completeDraft, voice, nil)
	require.NoError(t, h.machine.SetNarrative(longNarrative))
	h.send(t, listenCmd(context.Background(), voice, true)())

	cmd := h.send(t, tea.KeyMsg{Type: tea.KeyCtrlG})
	require.False(t, h.model.listening)
	require.Equal(t, fsm.StageProcessing, h.model.snap.Stage)
	require.Zero(t, voice.stops.Load())

	h.send(t, cmd())
	require.Equal(t, int32(1), voice.stops.Load())
	require.Equal(t, fsm.StageDraft, h.model.snap.Stage)
}

func TestStartNewWhileListeningStopsFirst(t *testing.T) {
	voice := &fakeVoice{supported: true}
	h := newHarness(t, completeDraft, voice, nil)
	require.NoError(t, h.machine.SetNarrative(longNarrative))
	before := h.machine.Snapshot().ID
	h.send(t, listenCmd(context.Background(), voice, true)())

	cmd := h.send(t, tea.KeyMsg{Type: tea.KeyCtrlN})
	require.Zero(t, voice.stops.Load())
	require.Equal(t, before, h.machine.Snapshot().ID)

	h.send(t, cmd())
	require.Equal(t, int32(1), voice.stops.Load())
	require.NotEqual(t, before, h.model.snap.ID)
	require.Empty(t, h.model.snap.Narrative)
	require.Equal(t, "Started a new report.", h.model.status)
}

func TestQuitWhileListeningStopsOffLoop(t *testing.T) {
	voice := &fakeVoice{supported: true}
	h := newHarness(t, completeDraft, voice, nil)
	h.send(t, listenCmd(context.Background(), voice, true)())

	cmd := h.send(t, tea.KeyMsg{Type: tea.KeyCtrlC})
	require.NotNil(t, cmd)
	require.False(t, h.model.listening)
	require.Zero(t, voice.stops.Load())
}

func TestStaleClearStatusIsIgnored(t *testing.T) {
	h := newHarness(t, completeDraft, nil, nil)
	h.model.setStatus("first", false)
	h.model.setStatus("second", false)

	h.send(t, clearStatusMsg{seq: 1})
	require.Equal(t, "second", h.model.status)
	h.send(t, clearStatusMsg{seq: 2})
	require.Empty(t, h.model.status)
}

func TestReportedByNotice(t *testing.T) {
	require.True(t, reportedByNotice(session.ErrSuperseded))
	require.True(t, reportedByNotice(errors.Join(session.ErrAnalysisFailed, errors.New("x"))))
	require.False(t, reportedByNotice(session.ErrEmptyDraft))
}

func TestViewShowsPreview(t *testing.T) {
	h := newHarness(t, completeDraft, nil, nil)
	h.model.snap = session.Snapshot{
		Stage:         fsm.StageDraft,
		EditableDraft: completeDraft,
		Preview:       &analysis.Result{Score: 80, Severity: analysis.SeverityMedium},
	}
	require.Contains(t, h.model.View(), "Preview: completeness 80/100")
}
