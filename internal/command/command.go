// Package command runs external commands and captures their outcome.
package command

import (
	"context"
	"fmt"
	"strings"
)

// Command is one external invocation: the executable path plus its
// literal argument list.
type Command struct {
	Path string
	Args []string
}

// String renders the invocation for inspection. Arguments may carry
// credentials, so the result must not be logged.
func (c Command) String() string {
	return strings.Join(append([]string{c.Path}, c.Args...), " ")
}

// Result is the outcome of a process that ran to completion, regardless
// of its exit status.
type Result struct {
	ExitCode int
	Stdout   []byte
	Stderr   []byte
}

// Runner executes a Command and reports its outcome. Run blocks only the
// calling goroutine until the process exits or ctx is done.
type Runner interface {
	Run(ctx context.Context, cmd Command) (*Result, error)
}

// SpawnError reports that a process could not be started at all.
type SpawnError struct {
	Path string
	Err  error
}

func (e *SpawnError) Error() string {
	return fmt.Sprintf("start %s: %v", e.Path, e.Err)
}

func (e *SpawnError) Unwrap() error {
	return e.Err
}
