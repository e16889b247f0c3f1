package config

import (
	"errors"
	"fmt"
	"os"
)

// Loaded is the resolved config file, its values, and derived locations.
type Loaded struct {
	Path     string
	Config   Config
	Warnings []Warning
	Exists   bool
	// ExportDir is export.dir with ~ expanded, or the XDG data default.
	ExportDir string
}

// Load resolves, reads, parses, and validates the runtime configuration. A
// missing file yields defaults and a warning.
func Load(explicitPath string) (Loaded, error) {
	resolvedPath, err := ResolvePath(explicitPath)
	if err != nil {
		return Loaded{}, err
	}

	loaded := Loaded{Path: resolvedPath, Config: Default()}
	content, err := os.ReadFile(resolvedPath)
	switch {
	case errors.Is(err, os.ErrNotExist):
		loaded.Warnings = []Warning{{Message: fmt.Sprintf("config file %q not found; using defaults", resolvedPath)}}
	case err != nil:
		return Loaded{}, fmt.Errorf("read config %q: %w", resolvedPath, err)
	default:
		cfg, warnings, err := Parse(string(content), loaded.Config)
		if err != nil {
			return Loaded{}, fmt.Errorf("parse config %q: %w", resolvedPath, err)
		}
		loaded.Config, loaded.Warnings, loaded.Exists = cfg, warnings, true
	}

	loaded.ExportDir, err = ResolveExportDir(loaded.Config.Export)
	if err != nil {
		return Loaded{}, err
	}
	return loaded, nil
}
