package deepgram

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/rbright/voicefir/internal/audio"
)

const (
	defaultBaseURL = "https://api.deepgram.com/v1"
	defaultModel   = "nova-2"
	// Locale is the fixed recognition language tag.
	Locale = "en-IN"
)

func listenURL(cfg Config) (string, error) {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		base = defaultBaseURL
	}
	switch {
	case strings.HasPrefix(base, "https://"):
		base = "wss://" + strings.TrimPrefix(base, "https://")
	case strings.HasPrefix(base, "http://"):
		base = "ws://" + strings.TrimPrefix(base, "http://")
	}

	u, err := url.Parse(base + "/listen")
	if err != nil {
		return "", fmt.Errorf("parse speech base url: %w", err)
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return "", fmt.Errorf("speech base url %q must be http(s) or ws(s)", cfg.BaseURL)
	}

	model := cfg.Model
	if model == "" {
		model = defaultModel
	}

	q := u.Query()
	q.Set("model", model)
	q.Set("language", Locale)
	q.Set("encoding", "linear16")
	q.Set("sample_rate", strconv.Itoa(audio.SampleRate))
	q.Set("channels", "1")
	q.Set("interim_results", "true")
	q.Set("punctuate", "true")
	q.Set("smart_format", strconv.FormatBool(cfg.SmartFormat))
	u.RawQuery = q.Encode()
	return u.String(), nil
}

type response struct {
	Type        string `json:"type"`
	Message     string `json:"message"`
	Description string `json:"description"`
	IsFinal     bool   `json:"is_final"`
	SpeechFinal bool   `json:"speech_final"`
	Channel     struct {
		Alternatives []struct {
			Transcript string `json:"transcript"`
		} `json:"alternatives"`
	} `json:"channel"`
}

func (r response) transcript() string {
	if len(r.Channel.Alternatives) == 0 {
		return ""
	}
	return strings.TrimSpace(r.Channel.Alternatives[0].Transcript)
}

func (r response) errorMessage() string {
	for _, msg := range []string{r.Description, r.Message} {
		if msg = strings.TrimSpace(msg); msg != "" {
			return msg
		}
	}
	return "speech service returned an unspecified error"
}
