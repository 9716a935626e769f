package chat

import "strings"

// Control commands recognised by the session loop.
const (
	ExitCommand = ":exit"
	LoadCommand = ":use"
)

// CommandKind classifies one line of input.
type CommandKind int

const (
	CommandPrompt CommandKind = iota
	CommandEmpty
	CommandExit
	CommandLoad
)

func (k CommandKind) String() string {
	switch k {
	case CommandEmpty:
		return "empty"
	case CommandExit:
		return "exit"
	case CommandLoad:
		return "load"
	default:
		return "prompt"
	}
}

// Command is a classified input line. Arg is the path for CommandLoad and the
// prompt text for CommandPrompt.
type Command struct {
	Kind CommandKind
	Arg  string
}

// ParseCommand classifies a line of input. Any line starting with LoadCommand
// is a load command and must be followed by a space and a non-empty path,
// otherwise ErrCommandParse is returned.
func ParseCommand(line string) (Command, error) {
	line = strings.TrimSpace(line)
	switch {
	case line == "":
		return Command{Kind: CommandEmpty}, nil
	case line == ExitCommand:
		return Command{Kind: CommandExit}, nil
	case strings.HasPrefix(line, LoadCommand):
		_, path, ok := strings.Cut(line, " ")
		if !ok || !strings.HasPrefix(line, LoadCommand+" ") {
			return Command{}, ErrCommandParse
		}
		path = strings.TrimSpace(path)
		if path == "" {
			return Command{}, ErrCommandParse
		}
		return Command{Kind: CommandLoad, Arg: path}, nil
	default:
		return Command{Kind: CommandPrompt, Arg: line}, nil
	}
}
