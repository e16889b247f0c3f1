package app

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/time/rate"

	"github.com/rbright/voicefir/internal/analysis"
	"github.com/rbright/voicefir/internal/capture"
	"github.com/rbright/voicefir/internal/config"
	"github.com/rbright/voicefir/internal/deepgram"
	"github.com/rbright/voicefir/internal/export"
	"github.com/rbright/voicefir/internal/generate"
	"github.com/rbright/voicefir/internal/metrics"
	"github.com/rbright/voicefir/internal/notify"
	"github.com/rbright/voicefir/internal/session"
)

const (
	desktopQueue = 8
	// desktop notices: a burst of three, then one every two seconds
	desktopBurst    = 3
	desktopInterval = 2 * time.Second
)

// services are the collaborators one command builds from config.
type services struct {
	cfg       config.Config
	metrics   *metrics.Recorder
	generator *generate.Client
	exporter  *export.Exporter
	desktop   *notify.Desktop
	sounds    *notify.Sounds
}

func newServices(loaded config.Loaded, logger *slog.Logger) services {
	cfg := loaded.Config
	svc := services{
		cfg:     cfg,
		metrics: metrics.New(),
		generator: generate.New(generate.Config{
			BaseURL:          cfg.Generation.BaseURL,
			Model:            cfg.Generation.Model,
			APIKey:           cfg.Generation.APIKey(),
			Timeout:          cfg.Generation.Timeout(),
			MaxResponseBytes: cfg.Generation.MaxResponseBytes,
		}),
		exporter: export.New(export.Config{Dir: loaded.ExportDir, OpenArgv: cfg.Export.Open.Argv}, logger),
	}
	if cfg.Notify.Enable {
		svc.desktop = notify.NewDesktop(cfg.Notify.AppName, cfg.Notify.TimeoutMS, logger)
		svc.sounds = notify.NewSounds(cfg.Notify.Sound, logger)
	}
	return svc
}

func (s services) machine(logger *slog.Logger, notifier session.Notifier) *session.Machine {
	return session.NewMachine(logger, s.generator, analysis.Local{}, s.exporter, notifier, session.Options{
		MinExportScore:  s.cfg.Export.MinScore,
		PreviewDebounce: s.cfg.Analysis.PreviewDebounce(),
		Metrics:         s.metrics,
	})
}

// speechFactory builds the recognition device, or nil when voice input is off.
func speechFactory(cfg config.Config, logger *slog.Logger) capture.Factory {
	if !cfg.Speech.Enable {
		return nil
	}
	return func() (capture.Device, error) {
		return deepgram.New(deepgram.Config{
			APIKey:          cfg.Speech.APIKey(),
			BaseURL:         cfg.Speech.BaseURL,
			Model:           cfg.Speech.Model,
			SmartFormat:     cfg.Speech.SmartFormat,
			NoSpeechTimeout: cfg.Speech.NoSpeechTimeout(),
		}, deepgram.PulseSource(cfg.Audio.Input, cfg.Audio.Fallback, logger), logger)
	}
}

// noticeFanout delivers session notices to the log, the alert cue, the UI,
// and the desktop. Sends never block the session.
type noticeFanout struct {
	logger  *slog.Logger
	sounds  *notify.Sounds
	ui      chan session.Notice
	desktop *notify.Desktop
	queue   chan session.Notice
	limiter *rate.Limiter
}

func newNoticeFanout(logger *slog.Logger, sounds *notify.Sounds, desktop *notify.Desktop, ui chan session.Notice) *noticeFanout {
	f := &noticeFanout{
		logger:  logger,
		sounds:  sounds,
		ui:      ui,
		desktop: desktop,
		limiter: rate.NewLimiter(rate.Every(desktopInterval), desktopBurst),
	}
	if desktop != nil {
		f.queue = make(chan session.Notice, desktopQueue)
	}
	return f
}

func (f *noticeFanout) Notify(n session.Notice) {
	if f.logger != nil {
		attrs := []any{"session", n.SessionID, "code", string(n.Code)}
		if n.Err != nil {
			attrs = append(attrs, "error", n.Err.Error())
		}
		f.logger.Warn("session notice", attrs...)
	}
	f.sounds.Play(notify.CueAlert)

	if f.ui != nil {
		select {
		case f.ui <- n:
		default:
			f.drop("ui", n)
		}
	}
	if f.queue != nil {
		if !f.limiter.Allow() {
			f.drop("desktop", n)
			return
		}
		select {
		case f.queue <- n:
		default:
			f.drop("desktop", n)
		}
	}
}

// run forwards queued notices to the desktop until ctx ends.
func (f *noticeFanout) run(ctx context.Context) error {
	if f.queue == nil {
		return nil
	}
	for {
		select {
		case <-ctx.Done():
			return nil
		case n := <-f.queue:
			if err := f.desktop.Send(ctx, n.Title, n.Message); err != nil && f.logger != nil {
				f.logger.Debug("desktop notice failed", "error", err.Error())
			}
		}
	}
}

func (f *noticeFanout) drop(target string, n session.Notice) {
	if f.logger != nil {
		f.logger.Debug("notice dropped", "target", target, "code", string(n.Code))
	}
}

// cuedSession plays the ready cue when a draft is generated or exported.
type cuedSession struct {
	*session.Machine
	sounds *notify.Sounds
}

func (s cuedSession) Generate(ctx context.Context) (string, error) {
	draft, err := s.Machine.Generate(ctx)
	if err == nil {
		s.sounds.Play(notify.CueReady)
	}
	return draft, err
}

func (s cuedSession) Export(ctx context.Context) (string, error) {
	location, err := s.Machine.Export(ctx)
	if err == nil {
		s.sounds.Play(notify.CueReady)
	}
	return location, err
}

// cuedVoice plays listen and stop cues around the capture engine.
type cuedVoice struct {
	*capture.Engine
	sounds *notify.Sounds
}

func (v cuedVoice) Start(ctx context.Context) error {
	if err := v.Engine.Start(ctx); err != nil {
		return err
	}
	v.sounds.Play(notify.CueListen)
	return nil
}

func (v cuedVoice) Stop() error {
	listening := v.Engine.State().Listening
	err := v.Engine.Stop()
	if listening {
		v.sounds.Play(notify.CueStop)
	}
	return err
}
