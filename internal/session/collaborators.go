package session

import "context"

// Generator turns a normalized narrative into a formatted draft.
type Generator interface {
	Generate(ctx context.Context, narrative string) (string, error)
}

// GenerateFunc adapts a function to Generator.
type GenerateFunc func(context.Context, string) (string, error)

func (f GenerateFunc) Generate(ctx context.Context, narrative string) (string, error) {
	return f(ctx, narrative)
}

// Exporter renders a validated draft and returns where the document went.
type Exporter interface {
	Render(ctx context.Context, draft string) (string, error)
}

// ExportFunc adapts a function to Exporter.
type ExportFunc func(context.Context, string) (string, error)

func (f ExportFunc) Render(ctx context.Context, draft string) (string, error) {
	return f(ctx, draft)
}

// Notifier receives user-facing notices. Implementations must not block.
type Notifier interface {
	Notify(Notice)
}

// NotifyFunc adapts a function to Notifier.
type NotifyFunc func(Notice)

func (f NotifyFunc) Notify(n Notice) { f(n) }

type noopNotifier struct{}

func (noopNotifier) Notify(Notice) {}

func unavailableGenerator(context.Context, string) (string, error) { return "", ErrUnavailable }

func unavailableExporter(context.Context, string) (string, error) { return "", ErrUnavailable }
