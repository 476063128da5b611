package cli

import (
	"errors"
	"fmt"

	"github.com/vitwit/nftsaga/types"
)

// Exit codes
const (
	ExitSuccess     = 0
	ExitFailure     = 1 // the pipeline ran and a step failed
	ExitConfigError = 2 // nothing was submitted
)

// ExitError carries the process exit code for an error.
type ExitError struct {
	Code    int
	Message string
	Err     error
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode extracts the exit code from an error.
func GetExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	if le, ok := types.AsLedgerError(err); ok && le.Code == types.ErrConfigError {
		return ExitConfigError
	}
	return ExitFailure
}
