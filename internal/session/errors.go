package session

import (
	"errors"

	"github.com/rbright/voicefir/internal/capture"
)

var (
	// ErrInputTooShort rejects a narrative at or under the generation threshold.
	ErrInputTooShort = errors.New("narrative is too short to generate a report")
	// ErrGenerationFailed wraps any generator failure.
	ErrGenerationFailed = errors.New("draft generation failed")
	// ErrAnalysisFailed wraps a failure of either draft analysis.
	ErrAnalysisFailed = errors.New("draft analysis failed")
	// ErrExportFailed wraps any exporter failure.
	ErrExportFailed = errors.New("draft export failed")

	ErrGenerationInFlight  = errors.New("generation already in progress")
	ErrEmptyDraft          = errors.New("draft is empty")
	ErrNotValidated        = errors.New("draft has not been validated")
	ErrScoreBelowThreshold = errors.New("completeness score is below the export threshold")
	// ErrSuperseded reports a collaborator result discarded because the
	// session moved on while it was in flight.
	ErrSuperseded = errors.New("result superseded by a newer session change")
	// ErrUnavailable is returned by collaborators that were never wired.
	ErrUnavailable = errors.New("collaborator not configured")
)

// Code classifies user-facing notices.
type Code string

const (
	CodeInputTooShort    Code = "input-too-short"
	CodeGenerationFailed Code = "generation-failed"
	CodeAnalysisFailed   Code = "analysis-failed"
	CodeCaptureError     Code = "capture-error"
	CodeExportFailed     Code = "export-failed"
)

// Notice is one failure surfaced to the user.
type Notice struct {
	SessionID string
	Code      Code
	Title     string
	Message   string
	// Kind is set for CodeCaptureError.
	Kind capture.ErrorKind
	Err  error
}

func newNotice(sessionID string, code Code, err error) Notice {
	n := Notice{SessionID: sessionID, Code: code, Err: err}
	switch code {
	case CodeInputTooShort:
		n.Title, n.Message = "Input Required", "Please speak or type the incident before generating an FIR."
	case CodeGenerationFailed:
		n.Title, n.Message = "Generation Failed", "Could not generate the FIR draft. Please try again."
	case CodeAnalysisFailed:
		n.Title, n.Message = "Analysis Failed", "Could not compute score and seriousness. Please try again."
	case CodeExportFailed:
		n.Title, n.Message = "Export Failed", "Could not create the FIR document. Please try again."
	case CodeCaptureError:
		n.Kind = capture.Classify(err)
		n.Title, n.Message = "Voice Input Error", n.Kind.Message()
	}
	return n
}
