// Package chatcmd interprets chat slash-commands that open and close work
// shifts.
package chatcmd

import (
	"errors"
	"strings"
)

const (
	cmdShiftStart = "/inizio_giornata"
	cmdShiftEnd   = "/fine_giornata"
	cmdHelp       = "/help"
)

// ErrMalformedCommand is returned when a recognized command has bad arguments.
var ErrMalformedCommand = errors.New("malformed command")

// Command is the parsed form of a chat message. Exactly one of ShiftStart,
// ShiftEnd, Help or Unrecognized.
type Command interface {
	command()
}

// ShiftStart opens a shift for the named employee.
type ShiftStart struct {
	EmployeeName string
	FirstName    string
	LastName     string
}

// ShiftEnd closes the caller's open shift.
type ShiftEnd struct{}

// Help asks for the command reference.
type Help struct{}

// Unrecognized is any text that matches no command grammar.
type Unrecognized struct {
	Text string
}

func (ShiftStart) command()   {}
func (ShiftEnd) command()     {}
func (Help) command()         {}
func (Unrecognized) command() {}

// IsCommand reports whether text should be parsed as a command at all.
func IsCommand(text string) bool {
	return strings.HasPrefix(strings.TrimSpace(text), "/")
}

// Parse matches text against the command grammars, case-insensitively.
func Parse(text string) (Command, error) {
	trimmed := strings.TrimSpace(text)
	fields := strings.Fields(trimmed)
	if len(fields) == 0 || !strings.HasPrefix(fields[0], "/") {
		return Unrecognized{Text: trimmed}, nil
	}

	args := fields[1:]
	switch strings.ToLower(fields[0]) {
	case cmdShiftStart:
		if len(args) < 2 {
			return nil, ErrMalformedCommand
		}
		return newShiftStart(args), nil
	case cmdShiftEnd:
		if len(args) == 0 {
			return ShiftEnd{}, nil
		}
	case cmdHelp:
		if len(args) == 0 {
			return Help{}, nil
		}
	}
	return Unrecognized{Text: trimmed}, nil
}

// newShiftStart splits name tokens into first name and the rest.
func newShiftStart(tokens []string) ShiftStart {
	cmd := ShiftStart{EmployeeName: strings.Join(tokens, " ")}
	if len(tokens) > 0 {
		cmd.FirstName = tokens[0]
		cmd.LastName = strings.Join(tokens[1:], " ")
	}
	return cmd
}
