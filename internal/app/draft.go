package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/rbright/voicefir/internal/analysis"
	"github.com/rbright/voicefir/internal/cli"
	"github.com/rbright/voicefir/internal/config"
)

// commandDraft runs the draft workflow once over a narrative read from a
// file or stdin.
func (r Runner) commandDraft(ctx context.Context, parsed cli.Parsed, loaded config.Loaded, logger *slog.Logger) int {
	text, err := r.readNarrative(parsed.InputPath)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}

	machine := newServices(loaded, logger).machine(logger, newNoticeFanout(logger, nil, nil, nil))
	defer machine.Close()

	if err := machine.SetNarrative(text); err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	draft, err := machine.Generate(ctx)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	result, err := machine.Validate(ctx)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}

	fmt.Fprintln(r.Stdout, draft)
	fmt.Fprintln(r.Stdout)
	fmt.Fprintf(r.Stdout, "score: %d\n", result.Score)
	fmt.Fprintf(r.Stdout, "severity: %s\n", result.Severity)
	if missing := analysis.MissingSignals(draft); len(missing) > 0 {
		fmt.Fprintf(r.Stdout, "missing: %s\n", strings.Join(missing, ", "))
	}

	if parsed.NoExport {
		return 0
	}
	location, err := machine.Export(ctx)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	fmt.Fprintf(r.Stdout, "document: %s\n", location)
	return 0
}

func (r Runner) readNarrative(path string) (string, error) {
	if path == "" || path == "-" {
		if r.Stdin == nil {
			return "", fmt.Errorf("read narrative: no stdin")
		}
		data, err := io.ReadAll(r.Stdin)
		if err != nil {
			return "", fmt.Errorf("read narrative: %w", err)
		}
		return string(data), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read narrative: %w", err)
	}
	return string(data), nil
}
