package export

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2026, 3, 4, 17, 5, 9, 0, time.UTC)

func TestIDAndFileName(t *testing.T) {
	require.Equal(t, "VF-1772643909000", ID(fixedNow))
	require.Equal(t, "fir-VF-1772643909000-20260304-170509.html", FileName(fixedNow))
}

func TestWriteEscapesDraftAndCarriesBoilerplate(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, "VF-1", "Accused <unknown> & co.", fixedNow))

	html := buf.String()
	require.Contains(t, html, "<title>FIR Draft - VF-1</title>")
	require.Contains(t, html, "<h1>First Information Report (Draft)</h1>")
	require.Contains(t, html, "Accused &lt;unknown&gt; &amp; co.")
	require.NotContains(t, html, "<unknown>")
	require.Contains(t, html, "This is a computer-generated draft for review before official submission.")
	require.Contains(t, html, "4 March 2026 at 5:05 pm")
	require.Contains(t, html, "@media print")
}

func newTestExporter(t *testing.T, argv []string) (*Exporter, string) {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "exports")
	e := New(Config{Dir: dir, OpenArgv: argv}, nil)
	e.now = func() time.Time { return fixedNow }
	return e, dir
}

func TestRenderWritesDocument(t *testing.T) {
	e, dir := newTestExporter(t, nil)

	path, err := e.Render(context.Background(), "FIRST INFORMATION REPORT (FIR)")
	require.NoError(t, err)
	require.Equal(t, filepath.Join(dir, FileName(fixedNow)), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(data), "FIRST INFORMATION REPORT (FIR)")

	info, err := os.Stat(path)
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
}

func TestRenderRunsOpenerWithPath(t *testing.T) {
	record := filepath.Join(t.TempDir(), "opened.txt")
	script := writeScript(t, "#!/bin/sh\nprintf '%s' \"$2\" > \"$1\"\n")
	e, _ := newTestExporter(t, []string{script, record})

	path, err := e.Render(context.Background(), "draft body")
	require.NoError(t, err)

	opened, err := os.ReadFile(record)
	require.NoError(t, err)
	require.Equal(t, path, string(opened))
}

func TestRenderSubstitutesPathPlaceholder(t *testing.T) {
	record := filepath.Join(t.TempDir(), "opened.txt")
	script := writeScript(t, "#!/bin/sh\nprintf '%s' \"$1\" > \"$2\"\n")
	e, _ := newTestExporter(t, []string{script, "--file={path}", record})

	path, err := e.Render(context.Background(), "draft body")
	require.NoError(t, err)

	opened, err := os.ReadFile(record)
	require.NoError(t, err)
	require.Equal(t, "--file="+path, string(opened))
}

func TestRenderReportsOpenerFailure(t *testing.T) {
	script := writeScript(t, "#!/bin/sh\necho 'no display' >&2\nexit 3\n")
	e, _ := newTestExporter(t, []string{script})

	path, err := e.Render(context.Background(), "draft body")
	require.ErrorContains(t, err, "no display")
	require.NotEmpty(t, path)
}

func TestRenderRejectsEmptyDraftAndMissingDir(t *testing.T) {
	e, _ := newTestExporter(t, nil)
	_, err := e.Render(context.Background(), "  \n")
	require.ErrorContains(t, err, "empty")

	_, err = New(Config{}, nil).Render(context.Background(), "draft")
	require.ErrorContains(t, err, "not configured")
}

func writeScript(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "open.sh")
	require.NoError(t, os.WriteFile(path, []byte(strings.TrimLeft(body, "\n")), 0o755))
	return path
}
