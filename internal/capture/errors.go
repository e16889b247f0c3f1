package capture

import "errors"

// ErrorKind is the classified cause of a capture failure.
type ErrorKind string

const (
	KindNoSpeech          ErrorKind = "no-speech"
	KindNetwork           ErrorKind = "network"
	KindMicDenied         ErrorKind = "mic-denied"
	KindMicUnavailable    ErrorKind = "mic-unavailable"
	KindServiceDisallowed ErrorKind = "service-disallowed"
	KindUnknown           ErrorKind = "unknown"
)

// Devices wrap these sentinels so the engine can classify their failures.
var (
	ErrNoSpeech          = errors.New("no speech detected")
	ErrNetwork           = errors.New("speech service unreachable")
	ErrMicDenied         = errors.New("microphone access denied")
	ErrMicUnavailable    = errors.New("microphone unavailable")
	ErrServiceDisallowed = errors.New("speech service disallowed")
	ErrAlreadyStarted    = errors.New("recognition already started")
	ErrUnsupported       = errors.New("speech recognition unsupported")
)

// UnsupportedMessage is shown when no recognition device can be built.
const UnsupportedMessage = "Voice input not supported. Please type instead."

// Classify maps a device error onto its kind. A nil error has no kind.
func Classify(err error) ErrorKind {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrNoSpeech):
		return KindNoSpeech
	case errors.Is(err, ErrNetwork):
		return KindNetwork
	case errors.Is(err, ErrMicDenied):
		return KindMicDenied
	case errors.Is(err, ErrMicUnavailable):
		return KindMicUnavailable
	case errors.Is(err, ErrServiceDisallowed):
		return KindServiceDisallowed
	default:
		return KindUnknown
	}
}

// Message is the user-facing sentence for k.
func (k ErrorKind) Message() string {
	switch k {
	case KindNoSpeech:
		return "No speech was detected."
	case KindNetwork:
		return "Speech recognition lost its network connection."
	case KindMicDenied:
		return "Microphone access was denied."
	case KindMicUnavailable:
		return "No microphone is available."
	case KindServiceDisallowed:
		return "The speech service refused the request."
	default:
		return "Speech recognition failed."
	}
}
