package runner

import (
	"context"
	"fmt"
)

type Handler func(cmd Command) (string, error)

// Fake records every command and answers it with the handler registered for the
// command's program name. Unhandled commands succeed with empty output.
type Fake struct {
	Handlers map[string]Handler
	Commands []Command
}

func NewFake() *Fake {
	return &Fake{
		Handlers: make(map[string]Handler),
	}
}

func (f *Fake) Handle(program string, handler Handler) {
	f.Handlers[program] = handler
}

// Fail makes every invocation of program exit with the given status.
func (f *Fake) Fail(program string, exitCode int) {
	f.Handle(program, func(cmd Command) (string, error) {
		return "", &ExternalCommandError{
			Args:     cmd.Args,
			ExitCode: exitCode,
			Err:      fmt.Errorf("exit status %d", exitCode),
		}
	})
}

func (f *Fake) Run(_ context.Context, cmd Command) (string, error) {
	f.Commands = append(f.Commands, cmd)
	if len(cmd.Args) == 0 {
		return "", fmt.Errorf("empty command")
	}
	handler, ok := f.Handlers[cmd.Args[0]]
	if !ok {
		return "", nil
	}
	return handler(cmd)
}

// Invocations returns the recorded commands running program, in order.
func (f *Fake) Invocations(program string) []Command {
	found := make([]Command, 0)
	for _, cmd := range f.Commands {
		if len(cmd.Args) > 0 && cmd.Args[0] == program {
			found = append(found, cmd)
		}
	}
	return found
}

// Programs returns the program name of every recorded command, in order.
func (f *Fake) Programs() []string {
	programs := make([]string, 0, len(f.Commands))
	for _, cmd := range f.Commands {
		if len(cmd.Args) > 0 {
			programs = append(programs, cmd.Args[0])
		}
	}
	return programs
}
