package generate

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client := New(Config{BaseURL: server.URL + "/", Model: "test-model", APIKey: "sk-test"})
	client.now = func() time.Time { return time.Date(2026, 3, 4, 17, 5, 0, 0, time.UTC) }
	return client
}

func TestGenerateSendsPromptAndReturnsDraft(t *testing.T) {
	var captured chatRequest
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/chat/completions", r.URL.Path)
		require.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"  FIRST INFORMATION REPORT (FIR)\n..."},"finish_reason":"stop"}]}`))
	})

	draft, err := client.Generate(context.Background(), "My phone was stolen yesterday at the market.")
	require.NoError(t, err)
	require.Equal(t, "FIRST INFORMATION REPORT (FIR)\n...", draft)

	require.Equal(t, "test-model", captured.Model)
	require.Len(t, captured.Messages, 2)
	require.Equal(t, "system", captured.Messages[0].Role)
	require.Contains(t, captured.Messages[0].Content, "Not disclosed at the time of reporting")
	require.Contains(t, captured.Messages[0].Content, "(Under Section 154 Cr.P.C.)")
	require.Contains(t, captured.Messages[1].Content, `"My phone was stolen yesterday at the market."`)
	require.Contains(t, captured.Messages[1].Content, "4 March 2026, 5:05 pm")
}

func TestGenerateFailures(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr string
	}{
		{name: "api error", status: http.StatusTooManyRequests, body: `{"error":{"message":"rate limited","type":"requests"}}`, wantErr: "rate limited"},
		{name: "opaque error", status: http.StatusBadGateway, body: `<html>bad gateway</html>`, wantErr: "status 502"},
		{name: "no choices", status: http.StatusOK, body: `{"choices":[]}`, wantErr: ErrEmptyDraft.Error()},
		{name: "blank content", status: http.StatusOK, body: `{"choices":[{"message":{"content":"   "}}]}`, wantErr: ErrEmptyDraft.Error()},
		{name: "truncated", status: http.StatusOK, body: `{"choices":[{"message":{"content":"FIR"},"finish_reason":"length"}]}`, wantErr: "truncated"},
		{name: "malformed", status: http.StatusOK, body: `{"choices":`, wantErr: "decode completion"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			})

			draft, err := client.Generate(context.Background(), "narrative")
			require.ErrorContains(t, err, tc.wantErr)
			require.Empty(t, draft)
		})
	}
}

func TestGenerateRejectsOversizedResponse(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(strings.Repeat("x", 64)))
	})
	client.maxResponseBytes = 16

	_, err := client.Generate(context.Background(), "narrative")
	require.ErrorContains(t, err, "exceeded 16 bytes")
}

func TestGenerateHonorsContext(t *testing.T) {
	var calls atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"FIR"}}]}`))
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := client.Generate(ctx, "narrative")
	require.ErrorIs(t, err, context.Canceled)
	require.Zero(t, calls.Load())
}

func TestPing(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/models" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = w.Write([]byte(`{"data":[]}`))
	})
	require.NoError(t, client.Ping(context.Background()))

	denied := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})
	require.ErrorContains(t, denied.Ping(context.Background()), "status 401")
}

func TestNewDefaults(t *testing.T) {
	client := New(Config{})
	require.Equal(t, defaultBaseURL, client.baseURL)
	require.Equal(t, defaultModel, client.model)
	require.Equal(t, int64(defaultMaxResponseBytes), client.maxResponseBytes)
	require.Equal(t, defaultTimeout, client.http.Timeout)
}
