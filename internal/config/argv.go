package config

import (
	"fmt"
	"strings"
	"unicode"
)

// PathPlaceholder in an opener command is replaced by the document path.
const PathPlaceholder = "{path}"

// ExpandArgv substitutes path into every argument carrying PathPlaceholder.
// Without a placeholder the path is appended as the final argument.
func ExpandArgv(argv []string, path string) []string {
	out := make([]string, 0, len(argv)+1)
	substituted := false
	for _, arg := range argv {
		if strings.Contains(arg, PathPlaceholder) {
			arg = strings.ReplaceAll(arg, PathPlaceholder, path)
			substituted = true
		}
		out = append(out, arg)
	}
	if !substituted {
		out = append(out, path)
	}
	return out
}

// parseArgv splits a shell-like command string. Single and double quotes
// group words; a backslash escapes the next rune. A leading # disables the
// command.
func parseArgv(input string) ([]string, error) {
	input = strings.TrimSpace(input)
	if input == "" || strings.HasPrefix(input, "#") {
		return nil, nil
	}

	var t argvTokenizer
	for _, r := range input {
		t.feed(r)
	}

	switch {
	case t.escape:
		return nil, fmt.Errorf("unterminated escape sequence in command: %q", input)
	case t.quote != 0:
		return nil, fmt.Errorf("unterminated quote in command: %q", input)
	}
	t.flush()
	return t.argv, nil
}

type argvTokenizer struct {
	argv    []string
	current strings.Builder
	quote   rune
	escape  bool
}

func (t *argvTokenizer) feed(r rune) {
	switch {
	case t.escape:
		t.current.WriteRune(r)
		t.escape = false
	case r == '\\':
		t.escape = true
	case t.quote != 0 && r == t.quote:
		t.quote = 0
	case t.quote != 0:
		t.current.WriteRune(r)
	case r == '\'' || r == '"':
		t.quote = r
	case unicode.IsSpace(r):
		t.flush()
	default:
		t.current.WriteRune(r)
	}
}

func (t *argvTokenizer) flush() {
	if t.current.Len() == 0 {
		return
	}
	t.argv = append(t.argv, t.current.String())
	t.current.Reset()
}

func mustParseArgv(input string) []string {
	argv, err := parseArgv(input)
	if err != nil {
		panic(err)
	}
	return argv
}
