package disquick_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/nais/disquick/pkg/disquick"
	"github.com/nais/disquick/pkg/manifest"
	"github.com/nais/disquick/pkg/profile"
	"github.com/nais/disquick/pkg/runner"
	"github.com/nais/disquick/pkg/suppress"
	"github.com/nais/disquick/pkg/target"
)

func TestErrorExitCode(t *testing.T) {
	commandErr := &runner.ExternalCommandError{Args: []string{"disnix-activate"}, ExitCode: 1}

	for _, tt := range []struct {
		name string
		err  error
		code disquick.ExitCode
	}{
		{name: "success", err: nil, code: disquick.ExitSuccess},
		{name: "explicit", err: disquick.Errorf(disquick.ExitInvocationFailure, "usage"), code: disquick.ExitInvocationFailure},
		{name: "missing credential", err: runner.ErrMissingCredential, code: disquick.ExitConfigurationError},
		{name: "invalid target", err: fmt.Errorf("%w: port", target.ErrInvalidTarget), code: disquick.ExitConfigurationError},
		{name: "target mismatch", err: manifest.ErrTargetMismatch, code: disquick.ExitConfigurationError},
		{name: "generation not found", err: profile.ErrGenerationNotFound, code: disquick.ExitGenerationNotFound},
		{name: "command", err: fmt.Errorf("retarget: %w", commandErr), code: disquick.ExitCommandFailure},
		{name: "unknown", err: errors.New("boom"), code: disquick.ExitInternalError},
		{
			name: "suppressed errors do not count",
			err:  suppress.Attach(commandErr, profile.ErrGenerationNotFound),
			code: disquick.ExitCommandFailure,
		},
	} {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.code, disquick.ErrorExitCode(tt.err))
		})
	}
}
