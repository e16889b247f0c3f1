package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
)

type jsoncConfig struct {
	Speech     *jsoncSpeech     `json:"speech"`
	Audio      *jsoncAudio      `json:"audio"`
	Generation *jsoncGeneration `json:"generation"`
	Analysis   *jsoncAnalysis   `json:"analysis"`
	Export     *jsoncExport     `json:"export"`
	Notify     *jsoncNotify     `json:"notify"`
	Metrics    *jsoncMetrics    `json:"metrics"`
}

type jsoncSpeech struct {
	Enable            *bool   `json:"enable"`
	BaseURL           *string `json:"base_url"`
	Model             *string `json:"model"`
	APIKeyEnv         *string `json:"api_key_env"`
	NoSpeechTimeoutMS *int    `json:"no_speech_timeout_ms"`
	SmartFormat       *bool   `json:"smart_format"`
}

type jsoncAudio struct {
	Input    *string `json:"input"`
	Fallback *string `json:"fallback"`
}

type jsoncGeneration struct {
	BaseURL          *string `json:"base_url"`
	Model            *string `json:"model"`
	APIKeyEnv        *string `json:"api_key_env"`
	TimeoutMS        *int    `json:"timeout_ms"`
	MaxResponseBytes *int64  `json:"max_response_bytes"`
}

type jsoncAnalysis struct {
	PreviewDebounceMS *int `json:"preview_debounce_ms"`
}

type jsoncExport struct {
	Dir      *string `json:"dir"`
	OpenCmd  *string `json:"open_cmd"`
	MinScore *int    `json:"min_score"`
}

type jsoncNotify struct {
	Enable    *bool   `json:"enable"`
	AppName   *string `json:"app_name"`
	TimeoutMS *int    `json:"timeout_ms"`
	Sound     *bool   `json:"sound"`
}

type jsoncMetrics struct {
	Listen *string `json:"listen"`
}

func parseJSONC(content string, base Config) (Config, []Warning, error) {
	normalized, err := normalizeJSONC(content)
	if err != nil {
		return Config{}, nil, err
	}

	decoder := json.NewDecoder(strings.NewReader(normalized))
	decoder.DisallowUnknownFields()

	var payload jsoncConfig
	if err := decoder.Decode(&payload); err != nil {
		return Config{}, nil, wrapJSONDecodeError(normalized, err)
	}
	if err := ensureSingleJSONValue(decoder); err != nil {
		return Config{}, nil, wrapJSONDecodeError(normalized, err)
	}

	cfg := base
	if err := payload.applyTo(&cfg); err != nil {
		return Config{}, nil, err
	}

	warnings, err := Validate(cfg)
	if err != nil {
		return Config{}, nil, err
	}
	return cfg, warnings, nil
}

func (payload jsoncConfig) applyTo(cfg *Config) error {
	if s := payload.Speech; s != nil {
		setBool(&cfg.Speech.Enable, s.Enable)
		setTrimmed(&cfg.Speech.BaseURL, s.BaseURL)
		setTrimmed(&cfg.Speech.Model, s.Model)
		setTrimmed(&cfg.Speech.APIKeyEnv, s.APIKeyEnv)
		setInt(&cfg.Speech.NoSpeechTimeoutMS, s.NoSpeechTimeoutMS)
		setBool(&cfg.Speech.SmartFormat, s.SmartFormat)
	}

	if a := payload.Audio; a != nil {
		setTrimmed(&cfg.Audio.Input, a.Input)
		setTrimmed(&cfg.Audio.Fallback, a.Fallback)
	}

	if g := payload.Generation; g != nil {
		setTrimmed(&cfg.Generation.BaseURL, g.BaseURL)
		setTrimmed(&cfg.Generation.Model, g.Model)
		setTrimmed(&cfg.Generation.APIKeyEnv, g.APIKeyEnv)
		setInt(&cfg.Generation.TimeoutMS, g.TimeoutMS)
		if g.MaxResponseBytes != nil {
			cfg.Generation.MaxResponseBytes = *g.MaxResponseBytes
		}
	}

	if payload.Analysis != nil {
		setInt(&cfg.Analysis.PreviewDebounceMS, payload.Analysis.PreviewDebounceMS)
	}

	if e := payload.Export; e != nil {
		setTrimmed(&cfg.Export.Dir, e.Dir)
		setInt(&cfg.Export.MinScore, e.MinScore)
		if e.OpenCmd != nil {
			raw := *e.OpenCmd
			argv, err := parseArgv(raw)
			if err != nil {
				return fmt.Errorf("invalid export.open_cmd: %w", err)
			}
			cfg.Export.Open = CommandConfig{Raw: raw, Argv: argv}
		}
	}

	if n := payload.Notify; n != nil {
		setBool(&cfg.Notify.Enable, n.Enable)
		setTrimmed(&cfg.Notify.AppName, n.AppName)
		setInt(&cfg.Notify.TimeoutMS, n.TimeoutMS)
		setBool(&cfg.Notify.Sound, n.Sound)
	}

	if payload.Metrics != nil {
		setTrimmed(&cfg.Metrics.Listen, payload.Metrics.Listen)
	}

	return nil
}

func setBool(dst *bool, src *bool) {
	if src != nil {
		*dst = *src
	}
}

func setInt(dst *int, src *int) {
	if src != nil {
		*dst = *src
	}
}

func setTrimmed(dst *string, src *string) {
	if src != nil {
		*dst = strings.TrimSpace(*src)
	}
}

func normalizeJSONC(content string) (string, error) {
	withoutComments, err := stripJSONCComments(content)
	if err != nil {
		return "", err
	}
	return stripJSONCTrailingCommas(withoutComments), nil
}

func stripJSONCComments(content string) (string, error) {
	var out strings.Builder
	out.Grow(len(content))

	inString := false
	escape := false
	lineComment := false
	blockComment := false

	for i := 0; i < len(content); i++ {
		ch := content[i]

		if lineComment {
			if ch == '\n' {
				lineComment = false
				out.WriteByte(ch)
				continue
			}
			if ch == '\r' {
				lineComment = false
				out.WriteByte(ch)
				continue
			}
			out.WriteByte(' ')
			continue
		}

		if blockComment {
			if ch == '*' && i+1 < len(content) && content[i+1] == '/' {
				blockComment = false
				out.WriteString("  ")
				i++
				continue
			}
			if ch == '\n' || ch == '\r' || ch == '\t' {
				out.WriteByte(ch)
			} else {
				out.WriteByte(' ')
			}
			continue
		}

		if inString {
			out.WriteByte(ch)
			if escape {
				escape = false
				continue
			}
			if ch == '\\' {
				escape = true
				continue
			}
			if ch == '"' {
				inString = false
			}
			continue
		}

		if ch == '"' {
			inString = true
			out.WriteByte(ch)
			continue
		}

		if ch == '/' && i+1 < len(content) {
			next := content[i+1]
			if next == '/' {
				lineComment = true
				out.WriteString("  ")
				i++
				continue
			}
			if next == '*' {
				blockComment = true
				out.WriteString("  ")
				i++
				continue
			}
		}

		out.WriteByte(ch)
	}

	if blockComment {
		return "", fmt.Errorf("unterminated block comment in JSONC")
	}

	return out.String(), nil
}

func stripJSONCTrailingCommas(content string) string {
	var out strings.Builder
	out.Grow(len(content))

	inString := false
	escape := false

	for i := 0; i < len(content); i++ {
		ch := content[i]

		if inString {
			out.WriteByte(ch)
			if escape {
				escape = false
				continue
			}
			if ch == '\\' {
				escape = true
				continue
			}
			if ch == '"' {
				inString = false
			}
			continue
		}

		if ch == '"' {
			inString = true
			out.WriteByte(ch)
			continue
		}

		if ch == ',' {
			j := i + 1
			for j < len(content) && isJSONWhitespace(content[j]) {
				j++
			}
			if j < len(content) && (content[j] == '}' || content[j] == ']') {
				continue
			}
		}

		out.WriteByte(ch)
	}

	return out.String()
}

func isJSONWhitespace(ch byte) bool {
	switch ch {
	case ' ', '\n', '\r', '\t':
		return true
	default:
		return false
	}
}

func ensureSingleJSONValue(decoder *json.Decoder) error {
	var extra struct{}
	err := decoder.Decode(&extra)
	if errors.Is(err, io.EOF) {
		return nil
	}
	if err == nil {
		return fmt.Errorf("multiple JSON values are not allowed")
	}
	return err
}

func wrapJSONDecodeError(content string, err error) error {
	var syntaxErr *json.SyntaxError
	if errors.As(err, &syntaxErr) {
		line, col := offsetToLineCol(content, syntaxErr.Offset)
		return fmt.Errorf("line %d column %d: %w", line, col, err)
	}

	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		line, col := offsetToLineCol(content, typeErr.Offset)
		return fmt.Errorf("line %d column %d: %w", line, col, err)
	}

	return err
}

func offsetToLineCol(content string, offset int64) (int, int) {
	if offset <= 0 {
		return 1, 1
	}

	limit := int(offset)
	if limit > len(content) {
		limit = len(content)
	}

	line := 1
	col := 1
	for i := 0; i < limit-1; i++ {
		if content[i] == '\n' {
			line++
			col = 1
			continue
		}
		col++
	}
	return line, col
}
