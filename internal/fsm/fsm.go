// Package fsm defines the report session stage graph.
package fsm

import (
	"errors"
	"fmt"
)

type Stage string

type Event string

const (
	StageRecord     Stage = "record"
	StageProcessing Stage = "processing"
	StageDraft      Stage = "draft"
	StageValidated  Stage = "validated"
)

const (
	EventGenerate       Event = "generate"
	EventGenerated      Event = "generated"
	EventGenerateFailed Event = "generate-failed"
	EventValidate       Event = "validate"
	EventAnalyzed       Event = "analyzed"
	EventAnalysisFailed Event = "analysis-failed"
	EventEdit           Event = "edit"
	EventStartNew       Event = "start-new"
)

// ErrInvalidTransition is wrapped by every rejected transition.
var ErrInvalidTransition = errors.New("invalid transition")

// Transition returns the stage reached by applying event to current.
// Rejected events leave the stage unchanged.
func Transition(current Stage, event Event) (Stage, error) {
	if event == EventStartNew {
		return StageRecord, nil
	}

	switch current {
	case StageRecord:
		switch event {
		case EventGenerate:
			return StageProcessing, nil
		default:
			return current, invalidTransition(current, event)
		}
	case StageProcessing:
		switch event {
		case EventGenerated:
			return StageDraft, nil
		case EventGenerateFailed:
			return StageRecord, nil
		default:
			return current, invalidTransition(current, event)
		}
	case StageDraft:
		switch event {
		case EventValidate, EventEdit, EventAnalysisFailed:
			return StageDraft, nil
		case EventAnalyzed:
			return StageValidated, nil
		default:
			return current, invalidTransition(current, event)
		}
	case StageValidated:
		switch event {
		case EventValidate, EventEdit, EventAnalysisFailed:
			return StageDraft, nil
		case EventAnalyzed:
			return StageValidated, nil
		default:
			return current, invalidTransition(current, event)
		}
	default:
		return current, fmt.Errorf("unknown stage %q", current)
	}
}

// HasDraft reports whether a generated draft exists in stage s.
func HasDraft(s Stage) bool {
	return s == StageDraft || s == StageValidated
}

func invalidTransition(stage Stage, event Event) error {
	return fmt.Errorf("%w: %s --(%s)--> ?", ErrInvalidTransition, stage, event)
}
