package console

import (
	"errors"
	"strings"
)

var errUnterminatedQuote = errors.New("unterminated quote")

type command struct {
	name string
	args []string
}

// parseCommand splits an input line into a lowercased command name and its
// arguments. Single or double quotes group words into one argument.
func parseCommand(line string) (command, error) {
	fields, err := splitArgs(line)
	if err != nil {
		return command{}, err
	}
	if len(fields) == 0 {
		return command{}, nil
	}
	return command{name: strings.ToLower(fields[0]), args: fields[1:]}, nil
}

func splitArgs(line string) ([]string, error) {
	var (
		fields  []string
		current strings.Builder
		quote   rune
		inField bool
	)
	for _, r := range line {
		switch {
		case quote != 0:
			if r == quote {
				quote = 0
				continue
			}
			current.WriteRune(r)
		case r == '"' || r == '\'':
			quote = r
			inField = true
		case r == ' ' || r == '\t':
			if inField {
				fields = append(fields, current.String())
				current.Reset()
				inField = false
			}
		default:
			current.WriteRune(r)
			inField = true
		}
	}
	if quote != 0 {
		return nil, errUnterminatedQuote
	}
	if inField {
		fields = append(fields, current.String())
	}
	return fields, nil
}

var helpLines = []string{
	"help                 show this list",
	"status               show the bot status",
	"update               fetch today's menus now",
	"log LEVEL            set the log level (debug, info, warn, error)",
	"cafeterias           list the cafeterias",
	`menu CAFE [meal]     show one menu, e.g. menu "Principe Amedeo" cena`,
	"pause | resume       stop or restart scheduled updates",
	"history              list the last fetch runs",
	"quit | exit          stop the bot",
}
