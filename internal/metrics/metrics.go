// Package metrics exposes Prometheus counters for report sessions.
package metrics

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "voicefir"

// Outcome labels for collaborator calls.
const (
	OutcomeOK       = "ok"
	OutcomeError    = "error"
	OutcomeStale    = "stale"
	OutcomeRejected = "rejected"
)

// Recorder owns one set of collectors. A nil *Recorder records nothing.
type Recorder struct {
	gatherer prometheus.Gatherer

	transitions   *prometheus.CounterVec
	calls         *prometheus.CounterVec
	durations     *prometheus.HistogramVec
	captureErrors *prometheus.CounterVec
}

// New registers collectors on a fresh registry.
func New() *Recorder {
	reg := prometheus.NewRegistry()
	return NewWith(reg, reg)
}

// NewWith registers collectors on reg and serves them from gatherer.
func NewWith(reg prometheus.Registerer, gatherer prometheus.Gatherer) *Recorder {
	factory := promauto.With(reg)
	return &Recorder{
		gatherer: gatherer,
		transitions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stage_transitions_total",
			Help:      "Session stage changes by origin and destination stage.",
		}, []string{"from", "to"}),
		calls: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "collaborator_calls_total",
			Help:      "Generate, validate, preview, and export attempts by outcome.",
		}, []string{"operation", "outcome"}),
		durations: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "collaborator_duration_seconds",
			Help:      "Wall time of collaborator calls.",
			Buckets:   []float64{0.01, 0.05, 0.25, 1, 2.5, 5, 10, 30},
		}, []string{"operation"}),
		captureErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "capture_errors_total",
			Help:      "Surfaced speech capture errors by kind.",
		}, []string{"kind"}),
	}
}

func (r *Recorder) Transition(from, to string) {
	if r == nil || from == to {
		return
	}
	r.transitions.WithLabelValues(from, to).Inc()
}

// Call counts one collaborator attempt; elapsed is ignored for rejected calls.
func (r *Recorder) Call(operation, outcome string, elapsed time.Duration) {
	if r == nil {
		return
	}
	r.calls.WithLabelValues(operation, outcome).Inc()
	if outcome != OutcomeRejected {
		r.durations.WithLabelValues(operation).Observe(elapsed.Seconds())
	}
}

func (r *Recorder) CaptureError(kind string) {
	if r == nil {
		return
	}
	r.captureErrors.WithLabelValues(kind).Inc()
}

// Handler serves the recorder's registry in the Prometheus text format.
func (r *Recorder) Handler() http.Handler {
	if r == nil || r.gatherer == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(r.gatherer, promhttp.HandlerOpts{})
}

// Serve exposes /metrics on addr until ctx is cancelled.
func (r *Recorder) Serve(ctx context.Context, addr string, logger *slog.Logger) error {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen metrics %q: %w", addr, err)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", r.Handler())
	server := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	if logger != nil {
		logger.Info("metrics listening", "addr", listener.Addr().String())
	}
	if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serve metrics: %w", err)
	}
	return nil
}
