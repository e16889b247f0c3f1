package config

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestValidateDefaults(t *testing.T) {
	t.Setenv("DEEPGRAM_API_KEY", "dg")
	warnings, err := Validate(Default())
	require.NoError(t, err)
	require.Empty(t, warnings)
}

func TestValidateSkipsSpeechChecksWhenDisabled(t *testing.T) {
	t.Setenv("DEEPGRAM_API_KEY", "")
	cfg := Default()
	cfg.Speech.Enable = false
	cfg.Speech.BaseURL = ""

	warnings, err := Validate(cfg)
	require.NoError(t, err)
	require.Empty(t, warnings)
}

func TestValidateRejectsInvalidFields(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "speech url scheme", mutate: func(c *Config) { c.Speech.BaseURL = "ftp://deepgram" }, wantErr: "speech.base_url"},
		{name: "speech key env", mutate: func(c *Config) { c.Speech.APIKeyEnv = " " }, wantErr: "speech.api_key_env"},
		{name: "negative no speech timeout", mutate: func(c *Config) { c.Speech.NoSpeechTimeoutMS = -1 }, wantErr: "no_speech_timeout_ms"},
		{name: "relative generation url", mutate: func(c *Config) { c.Generation.BaseURL = "/v1" }, wantErr: "generation.base_url"},
		{name: "empty model", mutate: func(c *Config) { c.Generation.Model = "" }, wantErr: "generation.model"},
		{name: "zero generation timeout", mutate: func(c *Config) { c.Generation.TimeoutMS = 0 }, wantErr: "generation.timeout_ms"},
		{name: "zero response limit", mutate: func(c *Config) { c.Generation.MaxResponseBytes = 0 }, wantErr: "max_response_bytes"},
		{name: "negative debounce", mutate: func(c *Config) { c.Analysis.PreviewDebounceMS = -5 }, wantErr: "preview_debounce_ms"},
		{name: "score over range", mutate: func(c *Config) { c.Export.MinScore = 101 }, wantErr: "export.min_score"},
		{name: "open command raw but empty argv", mutate: func(c *Config) {
			c.Export.Open = CommandConfig{Raw: "opener"}
		}, wantErr: "export.open_cmd"},
		{name: "open command starting with placeholder", mutate: func(c *Config) {
			c.Export.Open = CommandConfig{Raw: "{path}", Argv: []string{"{path}"}}
		}, wantErr: "must start with a program"},
		{name: "empty app name", mutate: func(c *Config) { c.Notify.AppName = "" }, wantErr: "notify.app_name"},
		{name: "negative notify timeout", mutate: func(c *Config) { c.Notify.TimeoutMS = -1 }, wantErr: "notify.timeout_ms"},
		{name: "metrics without port", mutate: func(c *Config) { c.Metrics.Listen = "localhost" }, wantErr: "metrics.listen"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(&cfg)

			_, err := Validate(cfg)
			require.Error(t, err)
			require.Contains(t, err.Error(), tc.wantErr)
		})
	}
}
