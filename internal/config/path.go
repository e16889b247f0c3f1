package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
)

const appDir = "voicefir"

// ResolvePath applies CLI/XDG/home fallback rules for config.jsonc location.
func ResolvePath(explicit string) (string, error) {
	if strings.TrimSpace(explicit) != "" {
		return explicit, nil
	}

	if xdg := strings.TrimSpace(os.Getenv("XDG_CONFIG_HOME")); xdg != "" {
		return filepath.Join(xdg, appDir, "config.jsonc"), nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", errors.New("unable to resolve user home for config fallback")
	}

	return filepath.Join(home, ".config", appDir, "config.jsonc"), nil
}

// ResolveExportDir returns cfg.Dir, or the XDG data directory when unset.
func ResolveExportDir(cfg ExportConfig) (string, error) {
	if dir := strings.TrimSpace(cfg.Dir); dir != "" {
		return expandHome(dir)
	}

	if xdg := strings.TrimSpace(os.Getenv("XDG_DATA_HOME")); xdg != "" {
		return filepath.Join(xdg, appDir, "exports"), nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", errors.New("unable to resolve user home for export directory")
	}
	return filepath.Join(home, ".local", "share", appDir, "exports"), nil
}

func expandHome(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", errors.New("unable to resolve user home for export directory")
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~")), nil
}
