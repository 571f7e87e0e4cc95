package supervisor

import (
	"errors"
	"fmt"
)

// Errors returned by supervisor operations.
var (
	ErrAlreadyRunning = errors.New("process is already running")
	ErrNotRunning     = errors.New("process is not running")
	ErrEmptyCommand   = errors.New("command cannot be empty")
)

// SpawnError reports that the OS refused to start the process: command not
// found, permission denied, invalid working directory.
type SpawnError struct {
	Command string
	Err     error
}

func (e *SpawnError) Error() string {
	return fmt.Sprintf("spawn %q: %v", e.Command, e.Err)
}

func (e *SpawnError) Unwrap() error {
	return e.Err
}
