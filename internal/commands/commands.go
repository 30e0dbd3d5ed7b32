// Package commands maps command names to handlers for the board's keyboard
// and the query shell.
package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"
)

var (
	ErrUnknownCommand   = errors.New("command not found")
	ErrDuplicateCommand = errors.New("command already registered")
	ErrUsage            = errors.New("wrong number of arguments")
	// ErrQuit is returned by commands that end the session
	ErrQuit = errors.New("quit")
)

type Handler func(ctx context.Context, args []string) error

type Command struct {
	Name string
	// Usage lists the arguments, e.g. "<station> [station...]"
	Usage string
	Help  string
	// MinArgs and MaxArgs bound the number of arguments. MaxArgs < 0 means no limit.
	MinArgs int
	MaxArgs int
	Run     Handler
}

func (c Command) check(args []string) error {
	if len(args) < c.MinArgs || (c.MaxArgs >= 0 && len(args) > c.MaxArgs) {
		return fmt.Errorf("%w: usage: %s %s", ErrUsage, c.Name, c.Usage)
	}
	return nil
}

type Set struct {
	commands map[string]Command
}

func NewSet(commands ...Command) (*Set, error) {
	s := &Set{commands: make(map[string]Command, len(commands))}
	for _, command := range commands {
		if err := s.Add(command); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func (s *Set) Add(command Command) error {
	if _, ok := s.commands[command.Name]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateCommand, command.Name)
	}
	s.commands[command.Name] = command
	return nil
}

// Names returns the registered command names in sorted order
func (s *Set) Names() []string {
	names := make([]string, 0, len(s.commands))
	for name := range s.commands {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Dispatch runs the command named by the first word of line with the
// remaining words as arguments. Blank lines are ignored.
func (s *Set) Dispatch(ctx context.Context, line string) error {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil
	}

	name, args := strings.ToLower(fields[0]), fields[1:]
	command, ok := s.commands[name]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownCommand, name)
	}
	if err := command.check(args); err != nil {
		return err
	}
	return command.Run(ctx, args)
}

func (s *Set) WriteHelp(w io.Writer) error {
	var b strings.Builder
	b.WriteString("Available commands:\n")
	for _, name := range s.Names() {
		command := s.commands[name]
		usage := strings.TrimSpace(name + " " + command.Usage)
		fmt.Fprintf(&b, "  %-32s %s\n", usage, command.Help)
	}
	_, err := io.WriteString(w, b.String())
	return err
}
