// Package capture turns a streaming recognition device into typed session events.
package capture

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
)

// EventKind distinguishes capture events delivered to subscribers.
type EventKind string

const (
	EventSegmentFinal EventKind = "segment-final"
	EventError        EventKind = "error"
	EventEnded        EventKind = "ended"
)

// Event is one typed capture notification. Text is set for SegmentFinal;
// Error and Err are set for EventError.
type Event struct {
	Kind  EventKind
	Text  string
	Error ErrorKind
	Err   error
}

// Sink receives recognition callbacks from a Device.
type Sink interface {
	Result(text string, final bool)
	Fail(err error)
	Ended()
}

// Device is one streaming recognizer. Start while already running returns
// ErrAlreadyStarted.
type Device interface {
	Start(ctx context.Context, sink Sink) error
	Stop() error
}

// State is the engine-owned listening flag plus the last surfaced error.
type State struct {
	Listening bool
	LastError ErrorKind
}

const subscriberBuffer = 64

// Engine owns listening state for one consumer of the shared device.
type Engine struct {
	logger  *slog.Logger
	manager *Manager
	device  Device

	mu      sync.Mutex
	state   State
	interim string

	subsMu sync.Mutex
	subs   map[int]chan Event
	nextID int
	closed bool
}

// NewEngine acquires the manager's device. Without one, HasSupport is false
// and every other operation is a no-op.
func NewEngine(logger *slog.Logger, manager *Manager) *Engine {
	e := &Engine{
		logger:  logger,
		manager: manager,
		subs:    make(map[int]chan Event),
	}
	if manager == nil {
		return e
	}

	device, err := manager.Acquire()
	if err != nil {
		e.log(slog.LevelInfo, "speech capture unavailable", "error", err.Error())
		return e
	}
	e.device = device
	return e
}

func (e *Engine) HasSupport() bool {
	return e.device != nil
}

// Start begins listening. A device that is already running counts as success.
func (e *Engine) Start(ctx context.Context) error {
	if !e.HasSupport() {
		return nil
	}

	// Set before the device starts: Fail or Ended may arrive before Start returns.
	e.mu.Lock()
	e.state = State{Listening: true}
	e.interim = ""
	e.mu.Unlock()

	err := e.device.Start(ctx, engineSink{e})
	if err == nil || errors.Is(err, ErrAlreadyStarted) {
		return nil
	}
	e.fail(err)
	if Classify(err) == KindNoSpeech {
		e.mu.Lock()
		e.state.Listening = false
		e.mu.Unlock()
	}
	return fmt.Errorf("start capture: %w", err)
}

// Stop ends listening. The flag is cleared even if the device fails to stop.
func (e *Engine) Stop() error {
	if !e.HasSupport() {
		return nil
	}

	err := e.device.Stop()

	e.mu.Lock()
	e.state.Listening = false
	e.interim = ""
	e.mu.Unlock()

	if err != nil {
		e.log(slog.LevelWarn, "stop capture failed", "error", err.Error())
		return fmt.Errorf("stop capture: %w", err)
	}
	return nil
}

func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Interim returns the latest unfinalized hypothesis, for display only.
func (e *Engine) Interim() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.interim
}

// Subscribe attaches a listener. The returned func detaches it and closes the
// channel. Events are dropped for subscribers that fall behind.
func (e *Engine) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, subscriberBuffer)

	e.subsMu.Lock()
	defer e.subsMu.Unlock()
	if e.closed {
		close(ch)
		return ch, func() {}
	}

	id := e.nextID
	e.nextID++
	e.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			e.subsMu.Lock()
			defer e.subsMu.Unlock()
			if sub, ok := e.subs[id]; ok {
				delete(e.subs, id)
				close(sub)
			}
		})
	}
}

// Close stops listening, detaches all subscribers, and releases the device reference.
func (e *Engine) Close() {
	if e.State().Listening {
		_ = e.Stop()
	}

	e.subsMu.Lock()
	if e.closed {
		e.subsMu.Unlock()
		return
	}
	e.closed = true
	for id, ch := range e.subs {
		delete(e.subs, id)
		close(ch)
	}
	e.subsMu.Unlock()

	if e.device != nil {
		e.manager.Release()
	}
}

func (e *Engine) result(text string, final bool) {
	text = cleanSegment(text)
	if text == "" {
		return
	}

	e.mu.Lock()
	if !final {
		e.interim = text
		e.mu.Unlock()
		return
	}
	e.interim = ""
	e.mu.Unlock()

	e.broadcast(Event{Kind: EventSegmentFinal, Text: text})
}

func (e *Engine) fail(err error) {
	kind := Classify(err)
	if kind == KindNoSpeech {
		e.log(slog.LevelDebug, "no speech detected; still listening")
		return
	}

	e.mu.Lock()
	e.state = State{Listening: false, LastError: kind}
	e.interim = ""
	e.mu.Unlock()

	e.log(slog.LevelWarn, "speech capture error", "kind", string(kind), "error", err.Error())
	e.broadcast(Event{Kind: EventError, Error: kind, Err: err})
}

func (e *Engine) ended() {
	e.mu.Lock()
	e.state.Listening = false
	e.interim = ""
	e.mu.Unlock()

	e.broadcast(Event{Kind: EventEnded})
}

func (e *Engine) broadcast(event Event) {
	e.subsMu.Lock()
	defer e.subsMu.Unlock()
	for _, ch := range e.subs {
		select {
		case ch <- event:
		default:
			e.log(slog.LevelWarn, "capture subscriber full; event dropped", "event", string(event.Kind))
		}
	}
}

func (e *Engine) log(level slog.Level, msg string, attrs ...any) {
	if e.logger == nil {
		return
	}
	e.logger.Log(context.Background(), level, msg, attrs...)
}

type engineSink struct{ e *Engine }

func (s engineSink) Result(text string, final bool) { s.e.result(text, final) }
func (s engineSink) Fail(err error)                 { s.e.fail(err) }
func (s engineSink) Ended()                         { s.e.ended() }

func cleanSegment(raw string) string {
	return strings.Join(strings.Fields(raw), " ")
}
