// Package deepgram implements a streaming recognition device over the
// Deepgram live transcription websocket.
package deepgram

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/rbright/voicefir/internal/audio"
	"github.com/rbright/voicefir/internal/capture"
)

const stopGrace = 3 * time.Second

// Config controls the websocket session.
type Config struct {
	APIKey          string
	BaseURL         string
	Model           string
	SmartFormat     bool
	NoSpeechTimeout time.Duration
}

// Source yields PCM chunks until Stop closes the channel.
type Source interface {
	Chunks() <-chan []byte
	Stop() error
}

// OpenSource starts one microphone capture.
type OpenSource func(ctx context.Context) (Source, error)

// PulseSource opens the configured Pulse input on each recording.
func PulseSource(input, fallback string, logger *slog.Logger) OpenSource {
	return func(ctx context.Context) (Source, error) {
		selection, err := audio.SelectDevice(ctx, input, fallback)
		if err != nil {
			return nil, err
		}
		if selection.Warning != "" && logger != nil {
			logger.Warn("audio fallback selected", "warning", selection.Warning)
		}
		c, err := audio.StartCapture(ctx, selection.Device)
		if err != nil {
			return nil, err
		}
		return c, nil
	}
}

// Device is a capture.Device. One stream runs at a time.
type Device struct {
	cfg    Config
	open   OpenSource
	dialer *websocket.Dialer
	logger *slog.Logger

	mu     sync.Mutex
	active *stream
}

// New validates cfg and returns a device. A missing API key is an error so
// the capture manager can report the capability as unsupported.
func New(cfg Config, open OpenSource, logger *slog.Logger) (*Device, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("speech api key is not configured")
	}
	if open == nil {
		return nil, errors.New("audio source is not configured")
	}
	if _, err := listenURL(cfg); err != nil {
		return nil, err
	}
	return &Device{
		cfg:    cfg,
		open:   open,
		dialer: &websocket.Dialer{HandshakeTimeout: 10 * time.Second},
		logger: logger,
	}, nil
}

// Start dials the service, opens the microphone, and begins streaming.
func (d *Device) Start(ctx context.Context, sink capture.Sink) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.active != nil {
		return capture.ErrAlreadyStarted
	}

	target, err := listenURL(d.cfg)
	if err != nil {
		return err
	}

	headers := http.Header{}
	headers.Set("Authorization", "Token "+d.cfg.APIKey)
	conn, resp, err := d.dialer.DialContext(ctx, target, headers)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		if resp != nil && (resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden) {
			return fmt.Errorf("%w: handshake status %d", capture.ErrServiceDisallowed, resp.StatusCode)
		}
		return fmt.Errorf("%w: %w", capture.ErrNetwork, err)
	}

	source, err := d.open(ctx)
	if err != nil {
		_ = conn.Close()
		if errors.Is(err, audio.ErrAccessDenied) {
			return fmt.Errorf("%w: %w", capture.ErrMicDenied, err)
		}
		return fmt.Errorf("%w: %w", capture.ErrMicUnavailable, err)
	}

	s := &stream{
		conn:     conn,
		source:   source,
		sink:     sink,
		logger:   d.logger,
		timeout:  d.cfg.NoSpeechTimeout,
		done:     make(chan struct{}),
		stopping: make(chan struct{}),
	}
	d.active = s
	s.run(func() {
		d.mu.Lock()
		if d.active == s {
			d.active = nil
		}
		d.mu.Unlock()
	})
	return nil
}

// Stop ends the microphone, flushes the service, and waits for the stream to close.
func (d *Device) Stop() error {
	d.mu.Lock()
	s := d.active
	d.mu.Unlock()
	if s == nil {
		return nil
	}
	return s.stop()
}

type stream struct {
	conn    *websocket.Conn
	source  Source
	sink    capture.Sink
	logger  *slog.Logger
	timeout time.Duration

	wg       sync.WaitGroup
	done     chan struct{}
	stopping chan struct{}
	stopOnce sync.Once

	timerMu  sync.Mutex
	timer    *time.Timer
	disarmed bool
}

func (s *stream) run(onDone func()) {
	s.armNoSpeech()

	s.wg.Add(2)
	go s.writeLoop()
	go s.readLoop()
	go func() {
		s.wg.Wait()
		s.disarmNoSpeech()
		_ = s.conn.Close()
		onDone()
		s.sink.Ended()
		close(s.done)
	}()
}

func (s *stream) stop() error {
	s.stopOnce.Do(func() {
		close(s.stopping)
		_ = s.source.Stop()
	})

	select {
	case <-s.done:
	case <-time.After(stopGrace):
		_ = s.conn.Close()
		<-s.done
	}
	return nil
}

func (s *stream) isStopping() bool {
	select {
	case <-s.stopping:
		return true
	default:
		return false
	}
}

func (s *stream) writeLoop() {
	defer s.wg.Done()

	for chunk := range s.source.Chunks() {
		if err := s.conn.WriteMessage(websocket.BinaryMessage, chunk); err != nil {
			s.fail(fmt.Errorf("%w: send audio: %w", capture.ErrNetwork, err))
			_ = s.source.Stop()
			// drain so the capture goroutine can exit
			for range s.source.Chunks() {
			}
			return
		}
	}

	if err := s.conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"CloseStream"}`)); err != nil {
		s.fail(fmt.Errorf("%w: close stream: %w", capture.ErrNetwork, err))
	}
}

func (s *stream) readLoop() {
	defer s.wg.Done()

	for {
		_, payload, err := s.conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseNoStatusReceived) {
				s.fail(fmt.Errorf("%w: read: %w", capture.ErrNetwork, err))
			}
			// unblock writeLoop when the service hangs up first
			_ = s.source.Stop()
			return
		}

		var msg response
		if err := json.Unmarshal(payload, &msg); err != nil {
			s.debug("ignoring undecodable speech message", "error", err.Error())
			continue
		}

		switch {
		case strings.EqualFold(msg.Type, "Error"):
			s.fail(errors.New(msg.errorMessage()))
			_ = s.source.Stop()
		case strings.EqualFold(msg.Type, "Results"), msg.Type == "":
			text := msg.transcript()
			if text == "" {
				continue
			}
			s.armNoSpeech()
			s.sink.Result(text, msg.IsFinal || msg.SpeechFinal)
		}
	}
}

// fail reports err unless the user already asked to stop.
func (s *stream) fail(err error) {
	if s.isStopping() {
		s.debug("speech stream error during stop", "error", err.Error())
		return
	}
	s.sink.Fail(err)
}

// armNoSpeech (re)starts the silence timer. Expiry reports ErrNoSpeech and re-arms.
func (s *stream) armNoSpeech() {
	s.timerMu.Lock()
	defer s.timerMu.Unlock()
	if s.timeout <= 0 || s.disarmed {
		return
	}
	if s.timer != nil {
		s.timer.Stop()
	}
	timeout := s.timeout
	s.timer = time.AfterFunc(timeout, func() {
		if s.isStopping() {
			return
		}
		s.sink.Fail(fmt.Errorf("%w for %s", capture.ErrNoSpeech, timeout))
		s.armNoSpeech()
	})
}

func (s *stream) disarmNoSpeech() {
	s.timerMu.Lock()
	defer s.timerMu.Unlock()
	s.disarmed = true
	if s.timer != nil {
		s.timer.Stop()
	}
}

func (s *stream) debug(msg string, attrs ...any) {
	if s.logger != nil {
		s.logger.Debug(msg, attrs...)
	}
}
