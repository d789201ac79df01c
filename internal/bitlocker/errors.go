package bitlocker

import (
	"errors"
	"fmt"
	"strings"
)

// Precondition failures. All of them are detected before any external
// process is spawned. Callers that want attempt-and-continue semantics
// match ErrAlreadyUnlocked / ErrAlreadyLocked with errors.Is.
var (
	// ErrNotFound is returned when the target path is not a mount point.
	ErrNotFound = errors.New("mount point not found")

	// ErrAlreadyUnlocked is returned when an unlock is requested but the
	// volume is already accessible.
	ErrAlreadyUnlocked = errors.New("volume is already unlocked")

	// ErrAlreadyLocked is returned when a lock is requested but the
	// volume is already inaccessible.
	ErrAlreadyLocked = errors.New("volume is already locked")
)

// ExecutionError reports that the encryption utility ran but exited
// non-zero. Stderr carries the utility's diagnostic output.
type ExecutionError struct {
	MountPoint string
	ExitCode   int
	Stderr     string
}

func (e *ExecutionError) Error() string {
	msg := fmt.Sprintf("encryption utility failed for %s (exit code %d)", e.MountPoint, e.ExitCode)
	if diag := strings.TrimSpace(e.Stderr); diag != "" {
		msg += ": " + diag
	}
	return msg
}
