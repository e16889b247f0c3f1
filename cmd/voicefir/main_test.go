package main

import (
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMainExitCodes(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		stdin    string
		wantCode int
		wantOut  string
	}{
		{name: "help", args: []string{"--help"}, wantCode: 0, wantOut: "Usage:"},
		{name: "version", args: []string{"--version"}, wantCode: 0, wantOut: "voicefir "},
		{name: "unknown command", args: []string{"not-a-command"}, wantCode: 2, wantOut: "unknown command"},
		{name: "draft flag without value", args: []string{"draft", "--input"}, wantCode: 2, wantOut: "--input requires"},
		{name: "narrative too short", args: []string{"draft", "--no-export"}, stdin: "lost phone", wantCode: 1, wantOut: "error:"},
		{name: "status without session", args: []string{"status"}, wantCode: 0, wantOut: "no active voicefir session"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			output, err := runMainSubprocess(t, tc.stdin, tc.args...)
			require.Equal(t, tc.wantCode, exitCode(t, err), string(output))
			require.Contains(t, string(output), tc.wantOut)
		})
	}
}

func TestMainHelperProcess(t *testing.T) {
	if os.Getenv("GO_WANT_HELPER_PROCESS") != "1" {
		return
	}

	args := []string{"voicefir"}
	if dash := slices.Index(os.Args, "--"); dash >= 0 {
		args = append(args, os.Args[dash+1:]...)
	}
	os.Args = args

	main()
}

func runMainSubprocess(t *testing.T, stdin string, args ...string) ([]byte, error) {
	t.Helper()

	root := t.TempDir()
	cmd := exec.Command(os.Args[0], append([]string{"-test.run=TestMainHelperProcess", "--"}, args...)...)
	cmd.Env = append(os.Environ(),
		"GO_WANT_HELPER_PROCESS=1",
		"XDG_CONFIG_HOME="+filepath.Join(root, "config"),
		"XDG_STATE_HOME="+filepath.Join(root, "state"),
		"XDG_DATA_HOME="+filepath.Join(root, "data"),
		"XDG_RUNTIME_DIR="+filepath.Join(root, "run"),
	)
	cmd.Stdin = strings.NewReader(stdin)
	return cmd.CombinedOutput()
}

func exitCode(t *testing.T, err error) int {
	t.Helper()
	if err == nil {
		return 0
	}
	var exitErr *exec.ExitError
	require.True(t, errors.As(err, &exitErr), err.Error())
	return exitErr.ExitCode()
}
