package config

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseArgv(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    []string
		wantErr string
	}{
		{name: "empty", input: "", want: nil},
		{name: "simple", input: "xdg-open", want: []string{"xdg-open"}},
		{name: "quoted spaces", input: `firefox --new-window "print me"`, want: []string{"firefox", "--new-window", "print me"}},
		{name: "single quote", input: `mycmd --name 'hello world'`, want: []string{"mycmd", "--name", "hello world"}},
		{name: "escaped space", input: `mycmd hello\ world`, want: []string{"mycmd", "hello world"}},
		{name: "leading comment", input: `# xdg-open`, want: nil},
		{name: "unterminated quote", input: `mycmd "oops`, wantErr: "unterminated quote"},
		{name: "unterminated escape", input: `mycmd hello\`, wantErr: "unterminated escape"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := parseArgv(tc.input)
			if tc.wantErr != "" {
				require.Error(t, err)
				require.Contains(t, err.Error(), tc.wantErr)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tc.want, got)
		})
	}
}

func TestMustParseArgvPanicsOnInvalidInput(t *testing.T) {
	require.Panics(t, func() {
		_ = mustParseArgv(`mycmd "unterminated`)
	})
}

func TestExpandArgv(t *testing.T) {
	require.Equal(t, []string{"xdg-open", "/tmp/fir.html"}, ExpandArgv([]string{"xdg-open"}, "/tmp/fir.html"))
	require.Equal(t,
		[]string{"lp", "-d", "office", "/tmp/fir.html", "-o", "title=/tmp/fir.html"},
		ExpandArgv([]string{"lp", "-d", "office", "{path}", "-o", "title={path}"}, "/tmp/fir.html"),
	)
}
