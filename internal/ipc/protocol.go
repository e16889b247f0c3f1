package ipc

// Commands accepted by a running record session.
const (
	CommandStatus   = "status"
	CommandStartNew = "new"
)

type Request struct {
	Command string `json:"command"`
}

// Response describes the session after the command ran.
type Response struct {
	OK        bool   `json:"ok"`
	SessionID string `json:"session_id,omitempty"`
	Stage     string `json:"stage,omitempty"`
	Score     *int   `json:"score,omitempty"`
	Severity  string `json:"severity,omitempty"`
	Message   string `json:"message,omitempty"`
	Error     string `json:"error,omitempty"`
}
