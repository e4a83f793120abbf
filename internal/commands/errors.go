package commands

import (
	"errors"
	"fmt"
	"io"

	"todd/internal/exitcode"
	"todd/internal/service"
)

// ExitCode maps an error onto the CLI exit codes.
func ExitCode(err error) int {
	if err == nil {
		return exitcode.Success
	}
	switch service.KindOf(err) {
	case service.KindAuth:
		return exitcode.AuthError
	case service.KindValidation, service.KindConflict, service.KindBusy:
		return exitcode.UserError
	default:
		return exitcode.BackendError
	}
}

// Report prints err to errOut and returns its exit code.
func Report(errOut io.Writer, err error) int {
	code := ExitCode(err)
	fmt.Fprintf(errOut, "error: %s\n", describe(err))
	return code
}

func describe(err error) string {
	var se *service.Error
	if !errors.As(err, &se) {
		return err.Error()
	}
	switch se.Kind {
	case service.KindTransport:
		return "backend error: " + se.Error()
	case service.KindConflict:
		if se.Status != 0 {
			return "task no longer exists (" + se.Message + ")"
		}
	}
	if se.Message != "" {
		return se.Message
	}
	return se.Error()
}
