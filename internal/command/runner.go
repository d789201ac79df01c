package command

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"

	"github.com/bitlockerctl/bitlockerctl/internal/log"
)

// ExecRunner implements Runner with os/exec.
type ExecRunner struct{}

// NewExecRunner creates a new runner.
func NewExecRunner() *ExecRunner {
	return &ExecRunner{}
}

// Run starts cmd and waits for it to exit, capturing stdout and stderr
// separately. A process that starts but exits non-zero is not an error
// here: its exit code is reported in the Result and interpretation is
// left to the caller. When ctx is done before the process exits, the
// child is killed and the context's error is returned.
func (r *ExecRunner) Run(ctx context.Context, cmd Command) (*Result, error) {
	execCmd := exec.CommandContext(ctx, cmd.Path, cmd.Args...)

	var stdout, stderr bytes.Buffer
	execCmd.Stdout = &stdout
	execCmd.Stderr = &stderr

	// Only the path; the argument list may carry credentials.
	log.Debug("running command", "path", cmd.Path)

	if err := execCmd.Start(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, &SpawnError{Path: cmd.Path, Err: err}
	}

	err := execCmd.Wait()
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, ctxErr
	}
	if err != nil {
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			return nil, fmt.Errorf("wait for %s: %w", cmd.Path, err)
		}
	}

	result := &Result{
		ExitCode: execCmd.ProcessState.ExitCode(),
		Stdout:   stdout.Bytes(),
		Stderr:   stderr.Bytes(),
	}

	log.Debug("command finished", "path", cmd.Path, "exit_code", result.ExitCode)
	return result, nil
}
