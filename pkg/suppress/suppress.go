// Package suppress combines a primary error with errors raised while cleaning up after it.
//
// Cleanup actions such as lock release and coordinator profile push always run, even when
// the work they guard has failed. Their errors must never replace the original failure,
// so they are attached to it as suppressed errors instead.
package suppress

import (
	"errors"
	"strings"
)

type Error struct {
	Primary    error
	Suppressed []error
}

func (err *Error) Error() string {
	if len(err.Suppressed) == 0 {
		return err.Primary.Error()
	}
	msgs := make([]string, 0, len(err.Suppressed))
	for _, s := range err.Suppressed {
		msgs = append(msgs, s.Error())
	}
	return err.Primary.Error() + " (suppressed: " + strings.Join(msgs, "; ") + ")"
}

// Unwrap returns only the primary error, so errors.Is and errors.As classify the failure
// by what went wrong first.
func (err *Error) Unwrap() error {
	return err.Primary
}

// Attach returns primary with secondary recorded as suppressed.
// If primary is nil, secondary is returned as is.
func Attach(primary, secondary error) error {
	if secondary == nil {
		return primary
	}
	if primary == nil {
		return secondary
	}
	var existing *Error
	if errors.As(primary, &existing) && existing == primary {
		existing.Suppressed = append(existing.Suppressed, secondary)
		return existing
	}
	return &Error{
		Primary:    primary,
		Suppressed: []error{secondary},
	}
}

// Of returns the errors suppressed by err, if any.
func Of(err error) []error {
	var e *Error
	if errors.As(err, &e) {
		return e.Suppressed
	}
	return nil
}
