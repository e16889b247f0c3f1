package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/sync/errgroup"

	"github.com/rbright/voicefir/internal/capture"
	"github.com/rbright/voicefir/internal/config"
	"github.com/rbright/voicefir/internal/ipc"
	"github.com/rbright/voicefir/internal/session"
	"github.com/rbright/voicefir/internal/tui"
)

const (
	uiNoticeBuffer = 16
	acquireProbe   = 180 * time.Millisecond
	acquireRetries = 8
)

// commandRecord owns the control socket and runs the interactive session
// until the terminal program exits.
func (r Runner) commandRecord(ctx context.Context, loaded config.Loaded, logger *slog.Logger) int {
	owner, err := acquireControl(ctx, logger)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	if owner != nil {
		defer func() { _ = owner.Close() }()
	}

	cfg := loaded.Config
	svc := newServices(loaded, logger)

	uiNotices := make(chan session.Notice, uiNoticeBuffer)
	fanout := newNoticeFanout(logger, svc.sounds, svc.desktop, uiNotices)
	machine := svc.machine(logger, fanout)
	defer machine.Close()

	engine := capture.NewEngine(logger, capture.NewManager(speechFactory(cfg, logger)))
	defer engine.Close()
	events, unsubscribe := engine.Subscribe()
	defer unsubscribe()

	g, gctx := errgroup.WithContext(ctx)
	runCtx, stop := context.WithCancel(gctx)
	defer stop()

	g.Go(func() error {
		machine.Consume(runCtx, events)
		return nil
	})
	g.Go(func() error { return fanout.run(runCtx) })
	if owner != nil {
		g.Go(func() error { return ipc.Serve(runCtx, owner, controlHandler(machine)) })
	}
	if listen := cfg.Metrics.Listen; listen != "" {
		g.Go(func() error { return svc.metrics.Serve(runCtx, listen, logger) })
	}

	model := tui.New(runCtx,
		cuedSession{Machine: machine, sounds: svc.sounds},
		cuedVoice{Engine: engine, sounds: svc.sounds},
		uiNotices,
		tui.Options{MinExportScore: cfg.Export.MinScore},
	)
	g.Go(func() error {
		defer stop()
		return r.runProgram(runCtx, model)
	})

	err = g.Wait()
	svc.sounds.Wait()

	snap := machine.Snapshot()
	logger.Info("session closed", "session", snap.ID, "stage", string(snap.Stage))
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	return 0
}

// acquireControl claims the control socket. A missing runtime dir disables
// remote control rather than failing the session.
func acquireControl(ctx context.Context, logger *slog.Logger) (*ipc.Owner, error) {
	socketPath, err := ipc.RuntimeSocketPath()
	if err != nil {
		logger.Warn("control socket disabled", "error", err.Error())
		return nil, nil
	}
	return ipc.Acquire(ctx, socketPath, ipc.AcquireOptions{ProbeTimeout: acquireProbe, Retries: acquireRetries})
}

func (r Runner) runProgram(ctx context.Context, model tea.Model) error {
	if r.runUI != nil {
		return r.runUI(ctx, model)
	}

	opts := []tea.ProgramOption{tea.WithContext(ctx), tea.WithAltScreen(), tea.WithOutput(r.Stdout)}
	if r.Stdin != nil {
		opts = append(opts, tea.WithInput(r.Stdin))
	}
	_, err := tea.NewProgram(model, opts...).Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	if err != nil {
		return fmt.Errorf("run terminal ui: %w", err)
	}
	return nil
}
