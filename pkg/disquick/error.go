package disquick

import (
	"errors"
	"fmt"

	"github.com/nais/disquick/pkg/manifest"
	"github.com/nais/disquick/pkg/profile"
	"github.com/nais/disquick/pkg/runner"
	"github.com/nais/disquick/pkg/target"
)

type ExitCode int

// Keep separate to avoid skewing exit codes
const (
	ExitSuccess ExitCode = iota
	ExitInvocationFailure
	ExitConfigurationError
	ExitCommandFailure
	ExitGenerationNotFound
	ExitInternalError
)

type Error struct {
	Code ExitCode
	Err  error
}

func (err *Error) Error() string {
	return err.Err.Error()
}

func (err *Error) Unwrap() error {
	return err.Err
}

func Errorf(exitCode ExitCode, format string, args ...interface{}) *Error {
	return &Error{
		Code: exitCode,
		Err:  fmt.Errorf(format, args...),
	}
}

func ErrorWrap(exitCode ExitCode, err error) *Error {
	return &Error{
		Code: exitCode,
		Err:  err,
	}
}

// ErrorExitCode classifies err by its primary cause. Errors suppressed while cleaning
// up never influence the exit code.
func ErrorExitCode(err error) ExitCode {
	if err == nil {
		return ExitSuccess
	}

	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}

	var commandErr *runner.ExternalCommandError
	switch {
	case errors.Is(err, runner.ErrMissingCredential),
		errors.Is(err, target.ErrInvalidTarget),
		errors.Is(err, manifest.ErrTargetMismatch):
		return ExitConfigurationError
	case errors.Is(err, profile.ErrGenerationNotFound):
		return ExitGenerationNotFound
	case errors.As(err, &commandErr):
		return ExitCommandFailure
	}

	return ExitInternalError
}
