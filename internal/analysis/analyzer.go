package analysis

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// Analyzer is the asynchronous boundary the session uses for draft analysis.
type Analyzer interface {
	Score(ctx context.Context, draft string) (int, error)
	Classify(ctx context.Context, draft string) (Severity, error)
}

// Local runs the in-process scorer and classifier.
type Local struct{}

func (Local) Score(ctx context.Context, draft string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	return Score(draft), nil
}

func (Local) Classify(ctx context.Context, draft string) (Severity, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return Classify(draft), nil
}

// Analyze runs both analyses concurrently and returns only when both finish.
// Any failure, including an out-of-range score or unknown tier, fails the pair.
func Analyze(ctx context.Context, analyzer Analyzer, draft string) (Result, error) {
	var (
		score    int
		severity Severity
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s, err := analyzer.Score(gctx, draft)
		if err != nil {
			return fmt.Errorf("score draft: %w", err)
		}
		if s < 0 || s > MaxScore {
			return fmt.Errorf("score draft: value %d out of range", s)
		}
		score = s
		return nil
	})
	g.Go(func() error {
		level, err := analyzer.Classify(gctx, draft)
		if err != nil {
			return fmt.Errorf("classify draft: %w", err)
		}
		if !level.Valid() {
			return fmt.Errorf("classify draft: unknown severity %q", level)
		}
		severity = level
		return nil
	})

	if err := g.Wait(); err != nil {
		return Result{}, err
	}
	return Result{Score: score, Severity: severity}, nil
}
