// Package runner executes the external tools that do the actual build, transfer and
// activation work on behalf of the orchestrator.
package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/nais/disquick/pkg/telemetry"
)

// Command describes a single external process invocation.
type Command struct {
	Args []string
	// Capture returns the trimmed standard output of the process instead of
	// passing it through to the terminal.
	Capture bool
	// Env is merged over the baseline environment. SSH_USER cannot be overridden.
	Env map[string]string
	Dir string
}

func (c Command) String() string {
	return strings.Join(c.Args, " ")
}

type Runner interface {
	Run(ctx context.Context, cmd Command) (string, error)
}

// ExternalCommandError is returned when a delegated command exits with a non-zero status.
// The command's own diagnostics have already been written to stderr.
type ExternalCommandError struct {
	Args     []string
	ExitCode int
	Err      error
}

func (err *ExternalCommandError) Error() string {
	if err.ExitCode < 0 {
		return fmt.Sprintf("command %q failed: %s", strings.Join(err.Args, " "), err.Err)
	}
	return fmt.Sprintf("command %q exited with status %d", strings.Join(err.Args, " "), err.ExitCode)
}

func (err *ExternalCommandError) Unwrap() error {
	return err.Err
}

// Exec runs commands as child processes of the orchestrator.
type Exec struct {
	Environment *Environment
	Stdout      io.Writer
	Stderr      io.Writer
}

func NewExec(environment *Environment) *Exec {
	return &Exec{
		Environment: environment,
		Stdout:      os.Stdout,
		Stderr:      os.Stderr,
	}
}

func (e *Exec) Run(ctx context.Context, cmd Command) (string, error) {
	if len(cmd.Args) == 0 {
		return "", fmt.Errorf("empty command")
	}

	env := e.Environment.With(cmd.Env)
	if _, ok := env["TRACEPARENT"]; !ok {
		if traceParent := telemetry.TraceParentHeader(ctx); len(traceParent) > 0 {
			env["TRACEPARENT"] = traceParent
		}
	}

	binary, err := findBinary(cmd.Args[0], env["PATH"])
	if err != nil {
		return "", &ExternalCommandError{Args: cmd.Args, ExitCode: -1, Err: err}
	}

	log.WithField("dir", cmd.Dir).Debugf("Running %s", cmd)

	var stdout bytes.Buffer
	process := exec.CommandContext(ctx, binary, cmd.Args[1:]...)
	process.Env = FormatEnv(env)
	process.Dir = cmd.Dir
	process.Stdin = nil
	process.Stderr = e.Stderr
	if cmd.Capture {
		process.Stdout = &stdout
	} else {
		process.Stdout = e.Stdout
	}

	err = process.Run()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return "", &ExternalCommandError{Args: cmd.Args, ExitCode: exitErr.ExitCode(), Err: err}
		}
		return "", &ExternalCommandError{Args: cmd.Args, ExitCode: -1, Err: err}
	}

	if cmd.Capture {
		return strings.TrimSpace(stdout.String()), nil
	}
	return "", nil
}

// findBinary resolves name against the PATH given to the child process, so that the
// configured tool directories take precedence over the orchestrator's own PATH.
func findBinary(name, path string) (string, error) {
	if strings.ContainsRune(name, filepath.Separator) {
		return name, nil
	}
	for _, dir := range filepath.SplitList(path) {
		if len(dir) == 0 {
			continue
		}
		candidate, err := exec.LookPath(filepath.Join(dir, name))
		if err == nil {
			return candidate, nil
		}
	}
	return exec.LookPath(name)
}
