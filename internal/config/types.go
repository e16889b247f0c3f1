// Package config resolves, parses, validates, and defaults voicefir configuration.
package config

import (
	"os"
	"strings"
	"time"
)

// Config is the fully materialized runtime configuration.
type Config struct {
	Speech     SpeechConfig
	Audio      AudioConfig
	Generation GenerationConfig
	Analysis   AnalysisConfig
	Export     ExportConfig
	Notify     NotifyConfig
	Metrics    MetricsConfig
}

// SpeechConfig controls the streaming recognition service.
type SpeechConfig struct {
	Enable            bool
	BaseURL           string
	Model             string
	APIKeyEnv         string
	NoSpeechTimeoutMS int
	SmartFormat       bool
}

// AudioConfig controls preferred and fallback input-source selection.
type AudioConfig struct {
	Input    string
	Fallback string
}

// GenerationConfig controls the chat completions endpoint used for drafting.
type GenerationConfig struct {
	BaseURL          string
	Model            string
	APIKeyEnv        string
	TimeoutMS        int
	MaxResponseBytes int64
}

type AnalysisConfig struct {
	PreviewDebounceMS int
}

// ExportConfig controls where documents are written and how they are opened.
type ExportConfig struct {
	Dir      string
	Open     CommandConfig
	MinScore int
}

// NotifyConfig controls desktop notifications and audio cues.
type NotifyConfig struct {
	Enable    bool
	AppName   string
	TimeoutMS int
	Sound     bool
}

// MetricsConfig controls the Prometheus endpoint. An empty Listen disables it.
type MetricsConfig struct {
	Listen string
}

// CommandConfig stores a raw command string and its parsed argv form.
type CommandConfig struct {
	Raw  string
	Argv []string
}

// Warning is a non-fatal parse/validation message.
type Warning struct {
	Line    int
	Message string
}

// APIKey reads the key from the configured environment variable.
func (c SpeechConfig) APIKey() string {
	return lookupKey(c.APIKeyEnv)
}

func (c SpeechConfig) NoSpeechTimeout() time.Duration {
	return time.Duration(c.NoSpeechTimeoutMS) * time.Millisecond
}

func (c GenerationConfig) APIKey() string {
	return lookupKey(c.APIKeyEnv)
}

func (c GenerationConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutMS) * time.Millisecond
}

func (c AnalysisConfig) PreviewDebounce() time.Duration {
	return time.Duration(c.PreviewDebounceMS) * time.Millisecond
}

func lookupKey(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return ""
	}
	return strings.TrimSpace(os.Getenv(name))
}
