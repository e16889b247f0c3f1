// Package cli parses voicefir command lines.
package cli

import (
	"errors"
	"fmt"
	"strings"
)

type Command string

const (
	CommandRecord  Command = "record"
	CommandDraft   Command = "draft"
	CommandStatus  Command = "status"
	CommandNew     Command = "new"
	CommandDevices Command = "devices"
	CommandDoctor  Command = "doctor"
	CommandVersion Command = "version"
	CommandHelp    Command = "help"
)

var validCommands = map[Command]struct{}{
	CommandRecord:  {},
	CommandDraft:   {},
	CommandStatus:  {},
	CommandNew:     {},
	CommandDevices: {},
	CommandDoctor:  {},
	CommandVersion: {},
	CommandHelp:    {},
}

type Parsed struct {
	Command    Command
	ConfigPath string
	Debug      bool
	ShowHelp   bool

	// draft only
	InputPath string
	NoExport  bool
}

// Parse reads global flags, then a command, then that command's flags.
func Parse(args []string) (Parsed, error) {
	parsed := Parsed{Command: CommandHelp, ShowHelp: true}

	i := 0
	for ; i < len(args); i++ {
		arg := args[i]

		switch arg {
		case "-h", "--help":
			parsed.ShowHelp = true
			parsed.Command = CommandHelp
		case "--version":
			parsed.ShowHelp = false
			parsed.Command = CommandVersion
		case "--debug":
			parsed.Debug = true
		case "--config":
			i++
			if i >= len(args) {
				return Parsed{}, errors.New("--config requires a path")
			}
			parsed.ConfigPath = args[i]
		default:
			if strings.HasPrefix(arg, "-") {
				return Parsed{}, fmt.Errorf("unknown flag: %s", arg)
			}

			cmd := Command(arg)
			if _, ok := validCommands[cmd]; !ok {
				return Parsed{}, fmt.Errorf("unknown command: %s", arg)
			}
			parsed.Command = cmd
			parsed.ShowHelp = cmd == CommandHelp
			return parseCommandFlags(parsed, args[i+1:])
		}
	}

	return parsed, nil
}

func parseCommandFlags(parsed Parsed, rest []string) (Parsed, error) {
	if parsed.Command != CommandDraft {
		if len(rest) > 0 {
			return Parsed{}, fmt.Errorf("unexpected arguments after command %q", parsed.Command)
		}
		return parsed, nil
	}

	for i := 0; i < len(rest); i++ {
		switch rest[i] {
		case "--input":
			i++
			if i >= len(rest) {
				return Parsed{}, errors.New("--input requires a path or -")
			}
			parsed.InputPath = rest[i]
		case "--no-export":
			parsed.NoExport = true
		default:
			return Parsed{}, fmt.Errorf("unexpected argument for draft: %s", rest[i])
		}
	}
	if parsed.InputPath == "" {
		parsed.InputPath = "-"
	}
	return parsed, nil
}

func HelpText(binaryName string) string {
	return fmt.Sprintf(`Usage:
  %[1]s [--config PATH] [--debug] <command>

Commands:
  record    Speak or type an incident, then generate, validate, and export an FIR
  draft     Draft an FIR from a narrative file or stdin without the interactive UI
  status    Print the stage of the running record session
  new       Start a new draft in the running record session
  devices   List available input devices
  doctor    Run configuration and environment checks
  version   Print version information
  help      Show this help

Draft flags:
  --input PATH    Narrative file, or - for stdin (default: -)
  --no-export     Print the draft and score without writing a document

Flags:
  --config PATH   Config file path (default: $XDG_CONFIG_HOME/voicefir/config.jsonc)
  --debug         Log at debug level
  -h, --help      Show help
  --version       Show version
`, binaryName)
}
