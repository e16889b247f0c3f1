// Package doctor runs readiness diagnostics for config, credentials, audio,
// the generation endpoint, and the export surface.
package doctor

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/rbright/voicefir/internal/audio"
	"github.com/rbright/voicefir/internal/config"
	"github.com/rbright/voicefir/internal/generate"
)

const probeTimeout = 2 * time.Second

// Check is one doctor assertion result.
type Check struct {
	Name    string
	Pass    bool
	Message string
}

// Report is the full doctor output contract.
type Report struct {
	Checks []Check
}

// OK returns true when all checks pass.
func (r Report) OK() bool {
	for _, check := range r.Checks {
		if !check.Pass {
			return false
		}
	}
	return true
}

// String renders the report as user-facing text output.
func (r Report) String() string {
	var b strings.Builder
	for _, check := range r.Checks {
		status := "OK"
		if !check.Pass {
			status = "FAIL"
		}
		b.WriteString(fmt.Sprintf("[%s] %s: %s\n", status, check.Name, check.Message))
	}
	return strings.TrimSuffix(b.String(), "\n")
}

// Pinger is the generation endpoint probe.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Run executes environment/config/runtime checks for a loaded config.
func Run(ctx context.Context, cfg config.Loaded) Report {
	gen := cfg.Config.Generation
	pinger := generate.New(generate.Config{
		BaseURL:          gen.BaseURL,
		Model:            gen.Model,
		APIKey:           gen.APIKey(),
		Timeout:          probeTimeout,
		MaxResponseBytes: gen.MaxResponseBytes,
	})
	return run(ctx, cfg, pinger)
}

func run(ctx context.Context, cfg config.Loaded, pinger Pinger) Report {
	checks := []Check{{
		Name:    "config",
		Pass:    true,
		Message: fmt.Sprintf("loaded %q", cfg.Path),
	}}

	c := cfg.Config
	if c.Speech.Enable {
		checks = append(checks, checkEnv(c.Speech.APIKeyEnv, "speech key present", "voice input needs "+c.Speech.APIKeyEnv))
		checks = append(checks, checkAudioSelection(ctx, c))
	}

	if isLoopback(c.Generation.BaseURL) {
		checks = append(checks, Check{Name: c.Generation.APIKeyEnv, Pass: true, Message: "local generation endpoint; key optional"})
	} else {
		checks = append(checks, checkEnv(c.Generation.APIKeyEnv, "generation key present", "draft generation needs "+c.Generation.APIKeyEnv))
	}
	checks = append(checks, checkGenerator(ctx, pinger, c.Generation.BaseURL))

	checks = append(checks, checkExportDir(c.Export))
	if len(c.Export.Open.Argv) > 0 {
		checks = append(checks, checkCommand(c.Export.Open.Argv, "export.open_cmd"))
	}
	if c.Notify.Enable {
		checks = append(checks, checkBinary("busctl", "desktop notifications use busctl"))
	}

	return Report{Checks: checks}
}

// checkEnv reports whether the named variable holds a non-empty value.
func checkEnv(name, okMsg, failMsg string) Check {
	if strings.TrimSpace(os.Getenv(name)) != "" {
		return Check{Name: name, Pass: true, Message: okMsg}
	}
	return Check{Name: name, Pass: false, Message: failMsg}
}

// checkCommand validates that argv contains a runnable command.
func checkCommand(argv []string, name string) Check {
	if len(argv) == 0 {
		return Check{Name: name, Pass: false, Message: "command is empty"}
	}
	return checkBinary(argv[0], fmt.Sprintf("%s command is available", name))
}

// checkBinary validates that a binary exists in PATH.
func checkBinary(bin string, okMsg string) Check {
	path, err := exec.LookPath(bin)
	if err != nil {
		return Check{Name: bin, Pass: false, Message: fmt.Sprintf("binary not found in PATH: %s", bin)}
	}
	return Check{Name: bin, Pass: true, Message: fmt.Sprintf("found at %s (%s)", path, okMsg)}
}

// checkAudioSelection runs live device selection to surface selection/fallback issues.
func checkAudioSelection(ctx context.Context, cfg config.Config) Check {
	selection, err := audio.SelectDevice(ctx, cfg.Audio.Input, cfg.Audio.Fallback)
	if err != nil {
		return Check{Name: "audio.device", Pass: false, Message: err.Error()}
	}
	message := fmt.Sprintf("selected %q", selection.Device.ID)
	if selection.Warning != "" {
		message = message + " (" + selection.Warning + ")"
	}
	return Check{Name: "audio.device", Pass: true, Message: message}
}

func checkGenerator(ctx context.Context, pinger Pinger, baseURL string) Check {
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()
	if err := pinger.Ping(ctx); err != nil {
		return Check{Name: "generation.endpoint", Pass: false, Message: err.Error()}
	}
	return Check{Name: "generation.endpoint", Pass: true, Message: fmt.Sprintf("reachable at %s", baseURL)}
}

// checkExportDir creates the export directory and a scratch file inside it.
func checkExportDir(cfg config.ExportConfig) Check {
	dir, err := config.ResolveExportDir(cfg)
	if err != nil {
		return Check{Name: "export.dir", Pass: false, Message: err.Error()}
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return Check{Name: "export.dir", Pass: false, Message: err.Error()}
	}
	f, err := os.CreateTemp(dir, ".doctor-*")
	if err != nil {
		return Check{Name: "export.dir", Pass: false, Message: fmt.Sprintf("not writable: %v", err)}
	}
	_ = f.Close()
	_ = os.Remove(f.Name())
	return Check{Name: "export.dir", Pass: true, Message: fmt.Sprintf("writable at %s", dir)}
}

func isLoopback(raw string) bool {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return false
	}
	host := u.Hostname()
	if host == "localhost" {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
