package metrics

import (
	"context"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestTransitionCountsDistinctStages(t *testing.T) {
	r := New()
	r.Transition("record", "processing")
	r.Transition("record", "processing")
	r.Transition("draft", "draft")

	require.Equal(t, 2.0, testutil.ToFloat64(r.transitions.WithLabelValues("record", "processing")))
	require.Equal(t, 1, testutil.CollectAndCount(r.transitions))
}

func TestCallRecordsOutcomeAndDuration(t *testing.T) {
	r := New()
	r.Call("generate", OutcomeOK, 120*time.Millisecond)
	r.Call("generate", OutcomeError, time.Second)
	r.Call("generate", OutcomeRejected, 0)

	require.Equal(t, 1.0, testutil.ToFloat64(r.calls.WithLabelValues("generate", OutcomeOK)))
	require.Equal(t, 1.0, testutil.ToFloat64(r.calls.WithLabelValues("generate", OutcomeRejected)))
	require.Equal(t, 1, testutil.CollectAndCount(r.durations))

	expected := `
# HELP voicefir_collaborator_calls_total Generate, validate, preview, and export attempts by outcome.
# TYPE voicefir_collaborator_calls_total counter
voicefir_collaborator_calls_total{operation="generate",outcome="error"} 1
voicefir_collaborator_calls_total{operation="generate",outcome="ok"} 1
voicefir_collaborator_calls_total{operation="generate",outcome="rejected"} 1
`
	require.NoError(t, testutil.CollectAndCompare(r.calls, strings.NewReader(expected)))
}

func TestCaptureError(t *testing.T) {
	r := New()
	r.CaptureError("network")
	require.Equal(t, 1.0, testutil.ToFloat64(r.captureErrors.WithLabelValues("network")))
}

func TestNilRecorderIsSafe(t *testing.T) {
	var r *Recorder
	r.Transition("a", "b")
	r.Call("x", OutcomeOK, time.Second)
	r.CaptureError("unknown")

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandlerExposesMetrics(t *testing.T) {
	r := New()
	r.CaptureError("mic-denied")

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `voicefir_capture_errors_total{kind="mic-denied"} 1`)
}

func TestServeStopsOnCancel(t *testing.T) {
	probe, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := probe.Addr().String()
	require.NoError(t, probe.Close())

	r := New()
	r.Transition("record", "processing")

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Serve(ctx, addr, nil) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + addr + "/metrics")
		if err != nil {
			return false
		}
		defer resp.Body.Close()
		body, _ := io.ReadAll(resp.Body)
		return strings.Contains(string(body), "voicefir_stage_transitions_total")
	}, 2*time.Second, 20*time.Millisecond)

	cancel()
	require.NoError(t, <-done)
}
