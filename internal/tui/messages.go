package tui

import (
	"github.com/rbright/voicefir/internal/analysis"
	"github.com/rbright/voicefir/internal/session"
)

// tickMsg refreshes the snapshot and live capture state.
type tickMsg struct{}

// NoticeMsg carries one session notice to the status line.
type NoticeMsg struct {
	Notice session.Notice
}

// noticesClosedMsg stops the notice reader.
type noticesClosedMsg struct{}

type generatedMsg struct {
	err error
}

type validatedMsg struct {
	result analysis.Result
	err    error
}

type exportedMsg struct {
	location string
	err      error
}

type listenMsg struct {
	listening bool
	err       error
}

// startedNewMsg follows a reset issued after capture stopped.
type startedNewMsg struct{}

// clearStatusMsg clears a status line set at or before seq.
type clearStatusMsg struct {
	seq int
}
