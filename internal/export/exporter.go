// Package export writes the printable FIR document and hands it to an opener.
package export

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/renameio/v2"

	"github.com/rbright/voicefir/internal/config"
)

const (
	fileTimeLayout = "20060102-150405"
	openTimeout    = 5 * time.Second
)

// Config selects where documents land and what opens them.
type Config struct {
	Dir      string
	OpenArgv []string
}

// Exporter renders validated drafts to disk.
type Exporter struct {
	dir      string
	openArgv []string
	logger   *slog.Logger
	now      func() time.Time
}

func New(cfg Config, logger *slog.Logger) *Exporter {
	return &Exporter{
		dir:      cfg.Dir,
		openArgv: append([]string(nil), cfg.OpenArgv...),
		logger:   logger,
		now:      time.Now,
	}
}

// ID returns the document identifier for t.
func ID(t time.Time) string {
	return "VF-" + strconv.FormatInt(t.UnixMilli(), 10)
}

// FileName returns the document file name for t.
func FileName(t time.Time) string {
	return fmt.Sprintf("fir-%s-%s.html", ID(t), t.Format(fileTimeLayout))
}

// Render writes the document atomically and runs the opener, if any, with
// its path. It returns the document path.
func (e *Exporter) Render(ctx context.Context, draft string) (string, error) {
	if strings.TrimSpace(draft) == "" {
		return "", errors.New("draft is empty")
	}
	if e.dir == "" {
		return "", errors.New("export directory is not configured")
	}
	if err := os.MkdirAll(e.dir, 0o700); err != nil {
		return "", fmt.Errorf("create export dir: %w", err)
	}

	now := e.now()
	path := filepath.Join(e.dir, FileName(now))

	pending, err := renameio.NewPendingFile(path, renameio.WithPermissions(0o600))
	if err != nil {
		return "", fmt.Errorf("create pending document: %w", err)
	}
	defer func() {
		if err := pending.Cleanup(); err != nil && e.logger != nil {
			e.logger.Debug("cleanup pending document", "error", err.Error())
		}
	}()

	if err := Write(pending, ID(now), draft, now); err != nil {
		return "", err
	}
	if err := pending.CloseAtomicallyReplace(); err != nil {
		return "", fmt.Errorf("replace document: %w", err)
	}

	if len(e.openArgv) > 0 {
		openCtx, cancel := context.WithTimeout(ctx, openTimeout)
		defer cancel()
		if err := runOpen(openCtx, e.openArgv, path); err != nil {
			return path, err
		}
	}
	return path, nil
}

func runOpen(ctx context.Context, argv []string, path string) error {
	expanded := config.ExpandArgv(argv, path)
	cmd := exec.CommandContext(ctx, expanded[0], expanded[1:]...)
	if out, err := cmd.CombinedOutput(); err != nil {
		msg := strings.TrimSpace(string(out))
		if msg != "" {
			return fmt.Errorf("open document with %s: %w: %s", argv[0], err, msg)
		}
		return fmt.Errorf("open document with %s: %w", argv[0], err)
	}
	return nil
}
