package ipc

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"
)

// ErrAlreadyRunning means another record session owns the control socket.
var ErrAlreadyRunning = errors.New("voicefir session already running")

const defaultBackoff = 25 * time.Millisecond

// RuntimeSocketPath is the control socket under XDG_RUNTIME_DIR.
func RuntimeSocketPath() (string, error) {
	runtimeDir := strings.TrimSpace(os.Getenv("XDG_RUNTIME_DIR"))
	if runtimeDir == "" {
		return "", errors.New("XDG_RUNTIME_DIR is not set")
	}
	return filepath.Join(runtimeDir, "voicefir.sock"), nil
}

// AcquireOptions bound the stale-socket recovery loop.
type AcquireOptions struct {
	// ProbeTimeout caps each liveness probe of an existing socket.
	ProbeTimeout time.Duration
	// Retries is how many more listens follow the first one.
	Retries int
	// Backoff grows linearly per attempt. Zero means 25ms.
	Backoff time.Duration
}

// Owner is the listening control socket of the one live record session.
type Owner struct {
	net.Listener
	path      string
	closeOnce sync.Once
	closeErr  error
}

// Path is the socket file the owner listens on.
func (o *Owner) Path() string { return o.path }

// Close stops listening and unlinks the socket file. It is safe to call twice.
func (o *Owner) Close() error {
	o.closeOnce.Do(func() {
		err := o.Listener.Close()
		if errors.Is(err, net.ErrClosed) {
			err = nil
		}
		if removeErr := os.Remove(o.path); removeErr != nil && !errors.Is(removeErr, os.ErrNotExist) && err == nil {
			err = fmt.Errorf("remove socket %s: %w", o.path, removeErr)
		}
		o.closeErr = err
	})
	return o.closeErr
}

// Acquire listens on path. A socket that still answers means another session
// is live; one that refuses connections is removed and the listen retried.
func Acquire(ctx context.Context, path string, opts AcquireOptions) (*Owner, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("ensure runtime socket dir: %w", err)
	}
	backoff := opts.Backoff
	if backoff <= 0 {
		backoff = defaultBackoff
	}

	for attempt := 0; ; attempt++ {
		listener, err := net.Listen("unix", path)
		if err == nil {
			_ = os.Chmod(path, 0o600)
			return &Owner{Listener: listener, path: path}, nil
		}
		if !errors.Is(err, syscall.EADDRINUSE) {
			return nil, fmt.Errorf("listen unix %s: %w", path, err)
		}

		if err := reclaim(ctx, path, opts.ProbeTimeout); err != nil {
			return nil, err
		}
		if attempt >= opts.Retries {
			return nil, fmt.Errorf("acquire socket %s: still in use after %d retries", path, opts.Retries)
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(time.Duration(attempt+1) * backoff):
		}
	}
}

// reclaim removes path when nothing is serving on it.
func reclaim(ctx context.Context, path string, probeTimeout time.Duration) error {
	alive, err := Running(ctx, path, probeTimeout)
	switch {
	case alive:
		return ErrAlreadyRunning
	case err != nil:
		return fmt.Errorf("probe existing socket %s: %w", path, err)
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove stale socket %s: %w", path, err)
	}
	return nil
}
