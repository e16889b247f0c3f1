package app

import (
	"context"
	"fmt"

	"github.com/rbright/voicefir/internal/ipc"
	"github.com/rbright/voicefir/internal/session"
)

type controlSession interface {
	Snapshot() session.Snapshot
	StartNew()
}

// controlHandler answers status and new requests for the running session.
func controlHandler(s controlSession) ipc.Handler {
	return ipc.HandlerFunc(func(_ context.Context, req ipc.Request) ipc.Response {
		switch req.Command {
		case ipc.CommandStatus:
			return statusResponse(s.Snapshot(), "")
		case ipc.CommandStartNew:
			s.StartNew()
			return statusResponse(s.Snapshot(), "started new draft")
		default:
			return ipc.Response{Error: fmt.Sprintf("unsupported command %q", req.Command)}
		}
	})
}

func statusResponse(snap session.Snapshot, message string) ipc.Response {
	resp := ipc.Response{
		OK:        true,
		SessionID: snap.ID,
		Stage:     string(snap.Stage),
		Message:   message,
	}
	if snap.Analysis != nil {
		score := snap.Analysis.Score
		resp.Score = &score
		resp.Severity = string(snap.Analysis.Severity)
	}
	return resp
}

func formatStatus(resp ipc.Response) string {
	line := fmt.Sprintf("stage=%s session=%s", resp.Stage, resp.SessionID)
	if resp.Score != nil {
		line += fmt.Sprintf(" score=%d severity=%s", *resp.Score, resp.Severity)
	}
	return line
}
