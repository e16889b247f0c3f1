// Package session owns one FIR draft session: narrative capture, generation,
// editing, validation, and export.
package session

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/rbright/voicefir/internal/analysis"
	"github.com/rbright/voicefir/internal/capture"
	"github.com/rbright/voicefir/internal/fsm"
	"github.com/rbright/voicefir/internal/metrics"
	"github.com/rbright/voicefir/internal/narrative"
)

const (
	opGenerate = "generate"
	opValidate = "validate"
	opPreview  = "preview"
	opExport   = "export"
)

type Options struct {
	// MinExportScore gates Export on the validated completeness score.
	MinExportScore int
	// PreviewDebounce delays the live analysis after an edit. Zero disables it.
	PreviewDebounce time.Duration
	Metrics         *metrics.Recorder
}

// Snapshot is a copy of the session state.
type Snapshot struct {
	ID             string
	Stage          fsm.Stage
	Narrative      string
	GeneratedDraft string
	EditableDraft  string
	// Analysis is set only in StageValidated.
	Analysis *analysis.Result
	// Preview is the debounced analysis of the current unvalidated edit.
	Preview    *analysis.Result
	Validating bool
	Revision   uint64
}

// Machine serializes session mutations. Collaborators run outside the lock;
// their results apply only if the session has not moved on since the call began.
type Machine struct {
	logger    *slog.Logger
	generator Generator
	analyzer  analysis.Analyzer
	exporter  Exporter
	notifier  Notifier
	metrics   *metrics.Recorder

	minExportScore  int
	previewDebounce time.Duration

	mu        sync.RWMutex
	id        string
	stage     fsm.Stage
	narrative string
	generated string
	editable  string
	result    *analysis.Result
	preview   *analysis.Result
	pending   int
	// epoch changes only on StartNew; rev changes on every draft change.
	epoch   uint64
	rev     uint64
	preTask *deferred
	closed  bool

	previews sync.WaitGroup
}

func NewMachine(
	logger *slog.Logger,
	generator Generator,
	analyzer analysis.Analyzer,
	exporter Exporter,
	notifier Notifier,
	opts Options,
) *Machine {
	if generator == nil {
		generator = GenerateFunc(unavailableGenerator)
	}
	if analyzer == nil {
		analyzer = analysis.Local{}
	}
	if exporter == nil {
		exporter = ExportFunc(unavailableExporter)
	}
	if notifier == nil {
		notifier = noopNotifier{}
	}

	return &Machine{
		logger:          logger,
		generator:       generator,
		analyzer:        analyzer,
		exporter:        exporter,
		notifier:        notifier,
		metrics:         opts.Metrics,
		minExportScore:  opts.MinExportScore,
		previewDebounce: opts.PreviewDebounce,
		id:              uuid.NewString(),
		stage:           fsm.StageRecord,
	}
}

func (m *Machine) Snapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return Snapshot{
		ID:             m.id,
		Stage:          m.stage,
		Narrative:      m.narrative,
		GeneratedDraft: m.generated,
		EditableDraft:  m.editable,
		Analysis:       copyResult(m.result),
		Preview:        copyResult(m.preview),
		Validating:     m.pending > 0,
		Revision:       m.rev,
	}
}

func (m *Machine) Stage() fsm.Stage {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.stage
}

// SetNarrative replaces the typed narrative. Only allowed while recording.
func (m *Machine) SetNarrative(text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.requireRecordLocked(); err != nil {
		return err
	}
	m.narrative = text
	return nil
}

// AppendSegment adds one committed spoken segment to the narrative.
func (m *Machine) AppendSegment(segment string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.requireRecordLocked(); err != nil {
		return err
	}
	m.narrative = narrative.AppendSegment(m.narrative, segment)
	return nil
}

// Generate submits the normalized narrative and moves to StageDraft on success.
func (m *Machine) Generate(ctx context.Context) (string, error) {
	m.mu.Lock()
	if m.stage == fsm.StageProcessing {
		m.mu.Unlock()
		m.metrics.Call(opGenerate, metrics.OutcomeRejected, 0)
		return "", ErrGenerationInFlight
	}
	if _, err := fsm.Transition(m.stage, fsm.EventGenerate); err != nil {
		m.mu.Unlock()
		return "", err
	}
	input := narrative.Normalize(m.narrative)
	if !narrative.LongEnough(input) {
		id := m.id
		m.mu.Unlock()
		m.metrics.Call(opGenerate, metrics.OutcomeRejected, 0)
		m.notify(newNotice(id, CodeInputTooShort, ErrInputTooShort))
		return "", ErrInputTooShort
	}
	m.applyLocked(fsm.EventGenerate)
	epoch, id := m.epoch, m.id
	m.mu.Unlock()

	started := time.Now()
	draft, err := m.generator.Generate(ctx, input)
	if err == nil && strings.TrimSpace(draft) == "" {
		err = ErrEmptyDraft
	}

	m.mu.Lock()
	if m.epoch != epoch {
		m.mu.Unlock()
		m.metrics.Call(opGenerate, metrics.OutcomeStale, time.Since(started))
		m.log(slog.LevelDebug, "discarding generation for previous session", "session", id)
		return "", ErrSuperseded
	}
	if err != nil {
		m.applyLocked(fsm.EventGenerateFailed)
		m.mu.Unlock()
		m.metrics.Call(opGenerate, metrics.OutcomeError, time.Since(started))
		m.log(slog.LevelWarn, "generation failed", "session", id, "error", err.Error())
		m.notify(newNotice(id, CodeGenerationFailed, err))
		return "", fmt.Errorf("%w: %w", ErrGenerationFailed, err)
	}
	m.applyLocked(fsm.EventGenerated)
	m.generated = draft
	m.editable = draft
	m.result = nil
	m.preview = nil
	m.rev++
	m.mu.Unlock()

	m.metrics.Call(opGenerate, metrics.OutcomeOK, time.Since(started))
	m.log(slog.LevelInfo, "draft generated", "session", id, "chars", len(draft))
	return draft, nil
}

// EditDraft replaces the editable draft. Any edit, including one that
// restores identical text, invalidates a prior validation.
func (m *Machine) EditDraft(text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !fsm.HasDraft(m.stage) {
		_, err := fsm.Transition(m.stage, fsm.EventEdit)
		return err
	}
	m.applyLocked(fsm.EventEdit)
	m.editable = text
	m.result = nil
	m.preview = nil
	m.rev++
	m.schedulePreviewLocked()
	return nil
}

// Validate analyzes the current editable draft. Score and severity are set
// together or not at all.
func (m *Machine) Validate(ctx context.Context) (analysis.Result, error) {
	m.mu.Lock()
	if !fsm.HasDraft(m.stage) {
		_, err := fsm.Transition(m.stage, fsm.EventValidate)
		m.mu.Unlock()
		return analysis.Result{}, err
	}
	draft := m.editable
	if strings.TrimSpace(draft) == "" {
		m.mu.Unlock()
		m.metrics.Call(opValidate, metrics.OutcomeRejected, 0)
		return analysis.Result{}, ErrEmptyDraft
	}
	m.applyLocked(fsm.EventValidate)
	m.result = nil
	m.cancelPreviewLocked()
	m.pending++
	epoch, rev, id := m.epoch, m.rev, m.id
	m.mu.Unlock()

	started := time.Now()
	res, err := analysis.Analyze(ctx, m.analyzer, draft)

	m.mu.Lock()
	if m.epoch == epoch {
		m.pending--
	}
	if m.epoch != epoch || m.rev != rev {
		m.mu.Unlock()
		m.metrics.Call(opValidate, metrics.OutcomeStale, time.Since(started))
		m.log(slog.LevelDebug, "discarding stale analysis", "session", id, "revision", rev)
		return analysis.Result{}, ErrSuperseded
	}
	if err != nil {
		m.applyLocked(fsm.EventAnalysisFailed)
		m.result = nil
		m.mu.Unlock()
		m.metrics.Call(opValidate, metrics.OutcomeError, time.Since(started))
		m.log(slog.LevelWarn, "analysis failed", "session", id, "error", err.Error())
		m.notify(newNotice(id, CodeAnalysisFailed, err))
		return analysis.Result{}, fmt.Errorf("%w: %w", ErrAnalysisFailed, err)
	}
	m.applyLocked(fsm.EventAnalyzed)
	m.result = &res
	m.mu.Unlock()

	m.metrics.Call(opValidate, metrics.OutcomeOK, time.Since(started))
	m.log(slog.LevelInfo, "draft validated", "session", id, "score", res.Score, "severity", string(res.Severity))
	return res, nil
}

// Export renders the validated draft. The session is unchanged either way.
func (m *Machine) Export(ctx context.Context) (string, error) {
	m.mu.RLock()
	if m.stage != fsm.StageValidated || m.result == nil {
		m.mu.RUnlock()
		m.metrics.Call(opExport, metrics.OutcomeRejected, 0)
		return "", ErrNotValidated
	}
	if m.result.Score < m.minExportScore {
		score := m.result.Score
		m.mu.RUnlock()
		m.metrics.Call(opExport, metrics.OutcomeRejected, 0)
		return "", fmt.Errorf("%w: %d < %d", ErrScoreBelowThreshold, score, m.minExportScore)
	}
	draft, id := m.editable, m.id
	m.mu.RUnlock()

	started := time.Now()
	location, err := m.exporter.Render(ctx, draft)
	if err != nil {
		m.metrics.Call(opExport, metrics.OutcomeError, time.Since(started))
		m.log(slog.LevelWarn, "export failed", "session", id, "error", err.Error())
		m.notify(newNotice(id, CodeExportFailed, err))
		return location, fmt.Errorf("%w: %w", ErrExportFailed, err)
	}
	m.metrics.Call(opExport, metrics.OutcomeOK, time.Since(started))
	m.log(slog.LevelInfo, "draft exported", "session", id, "path", location)
	return location, nil
}

// StartNew discards everything and returns to StageRecord. Results of calls
// still in flight are dropped when they arrive.
func (m *Machine) StartNew() {
	m.mu.Lock()
	m.applyLocked(fsm.EventStartNew)
	m.cancelPreviewLocked()
	m.narrative = ""
	m.generated = ""
	m.editable = ""
	m.result = nil
	m.preview = nil
	m.pending = 0
	m.epoch++
	m.rev++
	m.id = uuid.NewString()
	id := m.id
	m.mu.Unlock()

	m.log(slog.LevelInfo, "new session", "session", id)
}

// Consume applies capture events until ctx ends or events closes.
func (m *Machine) Consume(ctx context.Context, events <-chan capture.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-events:
			if !ok {
				return
			}
			m.handleCapture(event)
		}
	}
}

func (m *Machine) handleCapture(event capture.Event) {
	switch event.Kind {
	case capture.EventSegmentFinal:
		if err := m.AppendSegment(event.Text); err != nil {
			m.log(slog.LevelDebug, "dropping spoken segment", "stage", string(m.Stage()), "error", err.Error())
		}
	case capture.EventError:
		m.metrics.CaptureError(string(event.Error))
		err := event.Err
		if err == nil {
			err = fmt.Errorf("capture error: %s", event.Error)
		}
		m.mu.RLock()
		id := m.id
		m.mu.RUnlock()
		notice := newNotice(id, CodeCaptureError, err)
		notice.Kind = event.Error
		notice.Message = event.Error.Message()
		m.notify(notice)
	case capture.EventEnded:
		m.log(slog.LevelDebug, "capture ended")
	}
}

// Close cancels a pending preview and waits for a running one.
func (m *Machine) Close() {
	m.mu.Lock()
	m.closed = true
	m.cancelPreviewLocked()
	m.mu.Unlock()
	m.previews.Wait()
}

func (m *Machine) schedulePreviewLocked() {
	m.cancelPreviewLocked()
	if m.previewDebounce <= 0 || m.closed {
		return
	}
	draft, epoch, rev := m.editable, m.epoch, m.rev
	if strings.TrimSpace(draft) == "" {
		return
	}

	m.previews.Add(1)
	m.preTask = schedule(m.previewDebounce, m.previews.Done, func(ctx context.Context) {
		started := time.Now()
		res, err := analysis.Analyze(ctx, m.analyzer, draft)

		m.mu.Lock()
		current := m.epoch == epoch && m.rev == rev && !m.closed && ctx.Err() == nil
		if current && err == nil {
			m.preview = &res
		}
		m.mu.Unlock()

		switch {
		case !current:
			m.metrics.Call(opPreview, metrics.OutcomeStale, time.Since(started))
		case err != nil:
			m.metrics.Call(opPreview, metrics.OutcomeError, time.Since(started))
			m.log(slog.LevelDebug, "preview analysis failed", "error", err.Error())
		default:
			m.metrics.Call(opPreview, metrics.OutcomeOK, time.Since(started))
		}
	})
}

func (m *Machine) cancelPreviewLocked() {
	m.preTask.Cancel()
	m.preTask = nil
}

func (m *Machine) requireRecordLocked() error {
	if m.stage != fsm.StageRecord {
		return fmt.Errorf("%w: narrative is read-only in %s", fsm.ErrInvalidTransition, m.stage)
	}
	return nil
}

// applyLocked performs a transition already known to be valid for m.stage.
func (m *Machine) applyLocked(event fsm.Event) {
	next, err := fsm.Transition(m.stage, event)
	if err != nil {
		m.log(slog.LevelError, "unexpected transition", "error", err.Error())
		return
	}
	m.metrics.Transition(string(m.stage), string(next))
	m.stage = next
}

func (m *Machine) notify(n Notice) {
	m.notifier.Notify(n)
}

func (m *Machine) log(level slog.Level, msg string, attrs ...any) {
	if m.logger == nil {
		return
	}
	m.logger.Log(context.Background(), level, msg, attrs...)
}

func copyResult(r *analysis.Result) *analysis.Result {
	if r == nil {
		return nil
	}
	out := *r
	return &out
}
