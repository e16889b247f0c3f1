package cli

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseDefaultsToHelp(t *testing.T) {
	parsed, err := Parse(nil)
	require.NoError(t, err)
	require.True(t, parsed.ShowHelp)
	require.Equal(t, CommandHelp, parsed.Command)
}

func TestParseCommandWithConfig(t *testing.T) {
	parsed, err := Parse([]string{"--config", "/tmp/voicefir.jsonc", "--debug", "doctor"})
	require.NoError(t, err)
	require.Equal(t, CommandDoctor, parsed.Command)
	require.Equal(t, "/tmp/voicefir.jsonc", parsed.ConfigPath)
	require.True(t, parsed.Debug)
	require.False(t, parsed.ShowHelp)
}

func TestParseArgMatrix(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		wantErr  string
		wantCmd  Command
		wantHelp bool
		wantPath string
	}{
		{name: "help short flag", args: []string{"-h"}, wantCmd: CommandHelp, wantHelp: true},
		{name: "help long flag", args: []string{"--help"}, wantCmd: CommandHelp, wantHelp: true},
		{name: "version flag", args: []string{"--version"}, wantCmd: CommandVersion},
		{name: "config after command", args: []string{"status", "--config", "/tmp/cfg"}, wantErr: "unexpected arguments after command"},
		{name: "missing config path", args: []string{"--config"}, wantErr: "requires a path"},
		{name: "unknown flag", args: []string{"--bogus"}, wantErr: "unknown flag"},
		{name: "unknown command", args: []string{"bogus"}, wantErr: "unknown command"},
		{name: "extra args after command", args: []string{"doctor", "extra"}, wantErr: "unexpected arguments"},
		{name: "record", args: []string{"record"}, wantCmd: CommandRecord},
		{name: "new with config", args: []string{"--config", "/tmp/cfg", "new"}, wantCmd: CommandNew, wantPath: "/tmp/cfg"},
		{name: "draft missing input path", args: []string{"draft", "--input"}, wantErr: "--input requires"},
		{name: "draft unknown flag", args: []string{"draft", "--bogus"}, wantErr: "unexpected argument for draft"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			parsed, err := Parse(tc.args)
			if tc.wantErr != "" {
				require.Error(t, err)
				require.Contains(t, err.Error(), tc.wantErr)
				return
			}

			require.NoError(t, err)
			require.Equal(t, tc.wantCmd, parsed.Command)
			require.Equal(t, tc.wantHelp, parsed.ShowHelp)
			require.Equal(t, tc.wantPath, parsed.ConfigPath)
		})
	}
}

func TestParseDraftFlags(t *testing.T) {
	parsed, err := Parse([]string{"draft"})
	require.NoError(t, err)
	require.Equal(t, "-", parsed.InputPath)
	require.False(t, parsed.NoExport)

	parsed, err = Parse([]string{"draft", "--input", "incident.txt", "--no-export"})
	require.NoError(t, err)
	require.Equal(t, CommandDraft, parsed.Command)
	require.Equal(t, "incident.txt", parsed.InputPath)
	require.True(t, parsed.NoExport)
}

func TestHelpTextIncludesCoreCommands(t *testing.T) {
	text := HelpText("voicefir")
	for _, want := range []string{"record", "draft", "status", "new", "doctor", "--config PATH", "--input PATH"} {
		require.Contains(t, text, want)
	}
}
