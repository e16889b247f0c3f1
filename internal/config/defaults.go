package config

// Default returns the canonical runtime configuration used when no file is present.
func Default() Config {
	opener := "xdg-open"

	return Config{
		Speech: SpeechConfig{
			Enable:            true,
			BaseURL:           "https://api.deepgram.com/v1",
			Model:             "nova-2",
			APIKeyEnv:         "DEEPGRAM_API_KEY",
			NoSpeechTimeoutMS: 8000,
			SmartFormat:       true,
		},
		Audio: AudioConfig{
			Input:    "default",
			Fallback: "default",
		},
		Generation: GenerationConfig{
			BaseURL:          "https://api.openai.com/v1",
			Model:            "gpt-4o-mini",
			APIKeyEnv:        "OPENAI_API_KEY",
			TimeoutMS:        60000,
			MaxResponseBytes: 1 << 20,
		},
		Analysis: AnalysisConfig{PreviewDebounceMS: 800},
		Export: ExportConfig{
			Open:     CommandConfig{Raw: opener, Argv: mustParseArgv(opener)},
			MinScore: 40,
		},
		Notify: NotifyConfig{
			Enable:    true,
			AppName:   "voicefir",
			TimeoutMS: 4000,
			Sound:     true,
		},
	}
}
