// Package notify surfaces session notices as freedesktop notifications and audio cues.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"time"
)

const (
	defaultAppName   = "voicefir"
	defaultTimeoutMS = 4000
	dispatchTimeout  = 500 * time.Millisecond
)

// Desktop sends notifications over the session bus with busctl. Each new
// notification replaces the previous one.
type Desktop struct {
	appName   string
	timeoutMS int
	logger    *slog.Logger

	mu     sync.Mutex
	lastID uint32
}

func NewDesktop(appName string, timeoutMS int, logger *slog.Logger) *Desktop {
	appName = strings.TrimSpace(appName)
	if appName == "" {
		appName = defaultAppName
	}
	if timeoutMS <= 0 {
		timeoutMS = defaultTimeoutMS
	}
	return &Desktop{appName: appName, timeoutMS: timeoutMS, logger: logger}
}

// Send shows summary and body. Failures are logged at debug and returned.
func (d *Desktop) Send(ctx context.Context, summary, body string) error {
	ctx, cancel := context.WithTimeout(ctx, dispatchTimeout)
	defer cancel()

	d.mu.Lock()
	replaceID := d.lastID
	d.mu.Unlock()

	out, err := busctl(ctx,
		"Notify", "susssasa{sv}i",
		d.appName,
		strconv.FormatUint(uint64(replaceID), 10),
		"dialog-information",
		summary,
		body,
		"0", // actions
		"0", // hints
		strconv.Itoa(d.timeoutMS),
	)
	if err != nil {
		d.debug("desktop notify failed", err)
		return err
	}

	id, err := parseNotifyReply(out)
	if err != nil {
		d.debug("desktop notify reply", err)
		return err
	}

	d.mu.Lock()
	d.lastID = id
	d.mu.Unlock()
	return nil
}

// Dismiss closes the last notification, if any.
func (d *Desktop) Dismiss(ctx context.Context) error {
	d.mu.Lock()
	id := d.lastID
	d.lastID = 0
	d.mu.Unlock()
	if id == 0 {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, dispatchTimeout)
	defer cancel()
	_, err := busctl(ctx, "CloseNotification", "u", strconv.FormatUint(uint64(id), 10))
	return err
}

func busctl(ctx context.Context, method string, args ...string) (string, error) {
	argv := append([]string{
		"--user", "call",
		"org.freedesktop.Notifications",
		"/org/freedesktop/Notifications",
		"org.freedesktop.Notifications",
		method,
	}, args...)

	out, err := exec.CommandContext(ctx, "busctl", argv...).CombinedOutput()
	trimmed := strings.TrimSpace(string(out))
	if err != nil {
		if trimmed == "" {
			return "", fmt.Errorf("busctl %s: %w", method, err)
		}
		return "", fmt.Errorf("busctl %s: %w (%s)", method, err, trimmed)
	}
	return trimmed, nil
}

// parseNotifyReply reads busctl's "u <id>" reply.
func parseNotifyReply(out string) (uint32, error) {
	fields := strings.Fields(out)
	if len(fields) < 2 || fields[0] != "u" {
		return 0, fmt.Errorf("unexpected notify reply %q", out)
	}
	id, err := strconv.ParseUint(fields[1], 10, 32)
	if err != nil {
		return 0, fmt.Errorf("parse notification id %q: %w", fields[1], err)
	}
	return uint32(id), nil
}

func (d *Desktop) debug(msg string, err error) {
	if d.logger != nil {
		d.logger.Debug(msg, "error", err.Error())
	}
}
