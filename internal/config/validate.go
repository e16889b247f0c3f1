package config

import (
	"fmt"
	"net"
	"net/url"
	"strings"
)

// Validate enforces config invariants and returns non-fatal warnings.
func Validate(cfg Config) ([]Warning, error) {
	warnings := make([]Warning, 0)

	if cfg.Speech.Enable {
		if err := validateURL("speech.base_url", cfg.Speech.BaseURL, "http", "https", "ws", "wss"); err != nil {
			return nil, err
		}
		if strings.TrimSpace(cfg.Speech.APIKeyEnv) == "" {
			return nil, fmt.Errorf("speech.api_key_env must not be empty when speech.enable=true")
		}
		if cfg.Speech.APIKey() == "" {
			warnings = append(warnings, Warning{Message: fmt.Sprintf("%s is unset; voice input is unavailable", cfg.Speech.APIKeyEnv)})
		}
	}
	if cfg.Speech.NoSpeechTimeoutMS < 0 {
		return nil, fmt.Errorf("speech.no_speech_timeout_ms must be >= 0")
	}

	if err := validateURL("generation.base_url", cfg.Generation.BaseURL, "http", "https"); err != nil {
		return nil, err
	}
	if strings.TrimSpace(cfg.Generation.Model) == "" {
		return nil, fmt.Errorf("generation.model must not be empty")
	}
	if cfg.Generation.TimeoutMS <= 0 {
		return nil, fmt.Errorf("generation.timeout_ms must be > 0")
	}
	if cfg.Generation.MaxResponseBytes <= 0 {
		return nil, fmt.Errorf("generation.max_response_bytes must be > 0")
	}

	if cfg.Analysis.PreviewDebounceMS < 0 {
		return nil, fmt.Errorf("analysis.preview_debounce_ms must be >= 0")
	}

	if cfg.Export.MinScore < 0 || cfg.Export.MinScore > 100 {
		return nil, fmt.Errorf("export.min_score must be between 0 and 100")
	}
	if cfg.Export.Open.Raw != "" && len(cfg.Export.Open.Argv) == 0 {
		return nil, fmt.Errorf("export.open_cmd is configured but empty")
	}
	if argv := cfg.Export.Open.Argv; len(argv) > 0 && strings.Contains(argv[0], PathPlaceholder) {
		return nil, fmt.Errorf("export.open_cmd must start with a program, not %s", PathPlaceholder)
	}

	if cfg.Notify.Enable && strings.TrimSpace(cfg.Notify.AppName) == "" {
		return nil, fmt.Errorf("notify.app_name must not be empty when notify.enable=true")
	}
	if cfg.Notify.TimeoutMS < 0 {
		return nil, fmt.Errorf("notify.timeout_ms must be >= 0")
	}

	if listen := strings.TrimSpace(cfg.Metrics.Listen); listen != "" {
		if _, _, err := net.SplitHostPort(listen); err != nil {
			return nil, fmt.Errorf("metrics.listen must be host:port: %w", err)
		}
	}

	return warnings, nil
}

func validateURL(key, raw string, schemes ...string) error {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return fmt.Errorf("%s must not be empty", key)
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	for _, scheme := range schemes {
		if u.Scheme == scheme && u.Host != "" {
			return nil
		}
	}
	return fmt.Errorf("%s must be an absolute %s URL", key, strings.Join(schemes, "/"))
}
