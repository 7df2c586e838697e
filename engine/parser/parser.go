// Package parser converts terminal command lines into runtime events.
// Intentionally dumb: no shell grammar, just verbs and arguments.
package parser

import (
	"errors"
	"fmt"
	"strings"

	"github.com/nathoo/netquest/engine/flags"
	"github.com/nathoo/netquest/types"
)

// ErrEmpty is returned for blank input.
var ErrEmpty = errors.New("empty command")

// UnknownVerbError is returned for a verb the parser does not know.
type UnknownVerbError struct {
	Verb string
}

func (e *UnknownVerbError) Error() string {
	return fmt.Sprintf("unknown command %q", e.Verb)
}

var verbAliases = map[string]string{
	// Recon
	"nmap":  "scan",
	"probe": "scan",
	"ping":  "scan",

	// Sessions
	"ssh":    "connect",
	"telnet": "connect",
	"login":  "connect",
	"exit":   "disconnect",
	"logout": "disconnect",
	"dc":     "disconnect",
	"quit":   "disconnect",

	// Files
	"del":    "rm",
	"delete": "rm",
	"remove": "rm",
	"shred":  "rm",
	"wipe":   "rm",

	// Quest flow
	"take": "accept",
	"ok":   "confirm",
	"done": "confirm",

	// Scripting
	"set":      "flag",
	"setflag":  "flag",
	"send":     "mail",
	"boot":     "start",
	"terminal": "open",
}

// Words that carry no meaning between a verb and its arguments.
var fillers = map[string]bool{
	"the": true, "a": true, "an": true,
	"host": true, "file": true, "quest": true, "step": true,
}

var prepositions = map[string]bool{
	"on": true, "at": true, "for": true, "from": true, "in": true,
}

// Command is a parsed command line. Object is everything before the first
// preposition, Target everything after it.
type Command struct {
	Verb   string
	Object string
	Target string
	Args   []string
}

// Parse splits a raw command line into a Command. Only the verb is case
// folded; paths and ids keep their case.
func Parse(input string) Command {
	words := strings.Fields(strings.TrimSpace(input))
	if len(words) == 0 {
		return Command{}
	}

	verb := strings.ToLower(words[0])
	if alias, ok := verbAliases[verb]; ok {
		verb = alias
	}

	rest := stripFillers(words[1:])
	object, target := splitOnPreposition(rest)
	return Command{Verb: verb, Object: object, Target: target, Args: rest}
}

// Event converts a command into a runtime event. Quest ids are passed
// through as typed; callers resolve names to ids.
func (c Command) Event() (types.Event, error) {
	switch c.Verb {
	case "":
		return types.Event{}, ErrEmpty

	case "start":
		return types.Event{Type: types.EventGameStart}, nil

	case "open":
		return types.Event{Type: types.EventTerminalOpen}, nil

	case "scan":
		if c.Object == "" {
			return types.Event{}, errors.New("usage: scan <ip>")
		}
		return step(types.StepScanHost, c.Object, ""), nil

	case "connect":
		if c.Object == "" {
			return types.Event{}, errors.New("usage: connect <ip>")
		}
		return step(types.StepConnectHost, c.Object, ""), nil

	case "rm":
		if c.Object == "" {
			return types.Event{}, errors.New("usage: rm <path> [on <ip>]")
		}
		return step(types.StepDeleteFile, c.Target, c.Object), nil

	case "disconnect":
		return step(types.StepDisconnectHost, c.Object, ""), nil

	case "accept":
		if c.Object == "" {
			return types.Event{}, errors.New("usage: accept <quest>")
		}
		return types.Event{Type: types.EventAccept, QuestID: c.Object}, nil

	case "confirm":
		if c.Object == "" {
			return types.Event{}, errors.New("usage: confirm <step> [for <quest>]")
		}
		return types.Event{Type: types.EventStepConfirmed, StepID: c.Object, QuestID: c.Target}, nil

	case "flag":
		if len(c.Args) == 0 {
			return types.Event{}, errors.New("usage: flag <key[=value]> ...")
		}
		set := map[string]string{}
		for _, arg := range c.Args {
			f, ok := flags.ParseFlag(arg)
			if !ok {
				return types.Event{}, fmt.Errorf("bad flag %q", arg)
			}
			set[f.Key] = f.Value
		}
		return types.Event{Type: types.EventSetFlags, Flags: set}, nil

	case "mail":
		if c.Object == "" {
			return types.Event{}, errors.New("usage: mail <id>")
		}
		return types.Event{Type: types.EventDeliverMail, MailID: c.Object}, nil

	default:
		return types.Event{}, &UnknownVerbError{Verb: c.Verb}
	}
}

// ParseEvent is Parse followed by Event.
func ParseEvent(input string) (types.Event, error) {
	return Parse(input).Event()
}

func step(stepType, ip, path string) types.Event {
	return types.Event{
		Type:     types.EventStepCompleted,
		StepType: stepType,
		TargetIP: ip,
		FilePath: path,
	}
}

// stripFillers removes filler words ("the", "host", ...) from the word list.
func stripFillers(words []string) []string {
	result := make([]string, 0, len(words))
	for _, w := range words {
		if !fillers[strings.ToLower(w)] {
			result = append(result, w)
		}
	}
	return result
}

// splitOnPreposition splits words on the first preposition.
// Words before the preposition become the object, words after become the target.
// If no preposition is found, all words become the object.
func splitOnPreposition(words []string) (object, target string) {
	for i, w := range words {
		if prepositions[strings.ToLower(w)] {
			object = strings.Join(words[:i], " ")
			target = strings.Join(words[i+1:], " ")
			return object, target
		}
	}
	return strings.Join(words, " "), ""
}
