package ipc

import (
	"context"
	"encoding/json"
	"net"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func serveOn(t *testing.T, socketPath string, handler Handler) (context.CancelFunc, <-chan error) {
	t.Helper()
	listener, err := net.Listen("unix", socketPath)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- Serve(ctx, listener, handler) }()
	return cancel, done
}

func TestCallRoundTrip(t *testing.T) {
	socketPath := filepath.Join(t.TempDir(), "voicefir.sock")
	score := 80
	cancel, done := serveOn(t, socketPath, HandlerFunc(func(_ context.Context, req Request) Response {
		require.Equal(t, CommandStatus, req.Command)
		return Response{OK: true, SessionID: "abc", Stage: "validated", Score: &score, Severity: "HIGH"}
	}))

	resp, err := Call(context.Background(), socketPath, Request{Command: CommandStatus}, 200*time.Millisecond)
	require.NoError(t, err)
	require.True(t, resp.OK)
	require.Equal(t, "validated", resp.Stage)
	require.Equal(t, 80, *resp.Score)
	require.Equal(t, "HIGH", resp.Severity)

	cancel()
	require.NoError(t, <-done)
}

func TestCallDecodeResponseError(t *testing.T) {
	socketPath := filepath.Join(t.TempDir(), "voicefir.sock")
	listener, err := net.Listen("unix", socketPath)
	require.NoError(t, err)
	t.Cleanup(func() { _ = listener.Close() })

	go func() {
		conn, acceptErr := listener.Accept()
		if acceptErr != nil {
			return
		}
		defer conn.Close()
		buf := make([]byte, 256)
		_, _ = conn.Read(buf)
		_, _ = conn.Write([]byte("not-json\n"))
	}()

	_, err = Call(context.Background(), socketPath, Request{Command: CommandStatus}, 200*time.Millisecond)
	require.Error(t, err)
	require.Contains(t, err.Error(), "decode response")
}

func TestCallReadResponseError(t *testing.T) {
	socketPath := filepath.Join(t.TempDir(), "voicefir.sock")
	listener, err := net.Listen("unix", socketPath)
	require.NoError(t, err)
	t.Cleanup(func() { _ = listener.Close() })

	go func() {
		conn, acceptErr := listener.Accept()
		if acceptErr != nil {
			return
		}
		_ = conn.Close()
	}()

	_, err = Call(context.Background(), socketPath, Request{Command: CommandStatus}, 200*time.Millisecond)
	require.Error(t, err)
	require.Contains(t, err.Error(), "read response")
}

func TestServeAnswersMalformedRequest(t *testing.T) {
	socketPath := filepath.Join(t.TempDir(), "voicefir.sock")
	cancel, done := serveOn(t, socketPath, HandlerFunc(func(context.Context, Request) Response {
		return Response{OK: true}
	}))

	conn, err := net.Dial("unix", socketPath)
	require.NoError(t, err)
	_, err = conn.Write([]byte("not-json\n"))
	require.NoError(t, err)

	var resp Response
	require.NoError(t, json.NewDecoder(conn).Decode(&resp))
	require.NoError(t, conn.Close())
	require.False(t, resp.OK)
	require.Contains(t, resp.Error, "decode request")

	cancel()
	require.NoError(t, <-done)
}

func TestRunning(t *testing.T) {
	socketPath := filepath.Join(t.TempDir(), "voicefir.sock")
	cancel, done := serveOn(t, socketPath, HandlerFunc(func(_ context.Context, req Request) Response {
		return Response{OK: req.Command == CommandStatus, Stage: "record"}
	}))

	alive, err := Running(context.Background(), socketPath, 200*time.Millisecond)
	require.NoError(t, err)
	require.True(t, alive)

	cancel()
	require.NoError(t, <-done)

	alive, err = Running(context.Background(), socketPath, 100*time.Millisecond)
	require.NoError(t, err)
	require.False(t, alive)
}

func TestNotRunning(t *testing.T) {
	_, err := Call(context.Background(), filepath.Join(t.TempDir(), "missing.sock"), Request{Command: CommandStatus}, 50*time.Millisecond)
	require.Error(t, err)
	require.True(t, NotRunning(err))
}
