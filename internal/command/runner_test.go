package command

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestHelperProcess is re-executed by the tests below to stand in for an
// arbitrary external utility. It is not a real test.
func TestHelperProcess(t *testing.T) {
	if os.Getenv("GO_WANT_HELPER_PROCESS") != "1" {
		return
	}

	if ms, _ := strconv.Atoi(os.Getenv("HELPER_SLEEP_MS")); ms > 0 {
		time.Sleep(time.Duration(ms) * time.Millisecond)
	}

	fmt.Fprint(os.Stdout, os.Getenv("HELPER_STDOUT"))
	fmt.Fprint(os.Stderr, os.Getenv("HELPER_STDERR"))

	code, _ := strconv.Atoi(os.Getenv("HELPER_EXIT_CODE"))
	os.Exit(code)
}

// helperCommand returns a Command that re-runs the test binary as a
// helper process, configured through the environment.
func helperCommand(t *testing.T, exitCode int, stdout, stderr string) Command {
	t.Helper()
	t.Setenv("GO_WANT_HELPER_PROCESS", "1")
	t.Setenv("HELPER_EXIT_CODE", strconv.Itoa(exitCode))
	t.Setenv("HELPER_STDOUT", stdout)
	t.Setenv("HELPER_STDERR", stderr)

	return Command{
		Path: os.Args[0],
		Args: []string{"-test.run=TestHelperProcess"},
	}
}

func TestExecRunnerSuccess(t *testing.T) {
	runner := NewExecRunner()
	cmd := helperCommand(t, 0, "volume unlocked\n", "")

	result, err := runner.Run(context.Background(), cmd)
	require.NoError(t, err)
	assert.Equal(t, 0, result.ExitCode)
	assert.Equal(t, "volume unlocked\n", string(result.Stdout))
	assert.Empty(t, result.Stderr)
}

func TestExecRunnerNonZeroExit(t *testing.T) {
	runner := NewExecRunner()
	cmd := helperCommand(t, 1, "", "access denied")

	result, err := runner.Run(context.Background(), cmd)
	require.NoError(t, err, "a non-zero exit must be reported through the result, not as an error")
	assert.Equal(t, 1, result.ExitCode)
	assert.Equal(t, "access denied", string(result.Stderr))
}

func TestExecRunnerSpawnError(t *testing.T) {
	runner := NewExecRunner()
	cmd := Command{Path: filepath.Join(t.TempDir(), "does-not-exist")}

	result, err := runner.Run(context.Background(), cmd)
	assert.Nil(t, result)

	var spawnErr *SpawnError
	require.ErrorAs(t, err, &spawnErr)
	assert.Equal(t, cmd.Path, spawnErr.Path)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestExecRunnerCancelledBeforeStart(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	runner := NewExecRunner()
	cmd := helperCommand(t, 0, "", "")

	result, err := runner.Run(ctx, cmd)
	assert.Nil(t, result)
	assert.ErrorIs(t, err, context.Canceled)

	var spawnErr *SpawnError
	assert.False(t, errors.As(err, &spawnErr), "cancellation must not be reported as a spawn failure")
}

func TestExecRunnerCancelledWhileRunning(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	runner := NewExecRunner()
	cmd := helperCommand(t, 0, "", "")
	t.Setenv("HELPER_SLEEP_MS", "10000")

	result, err := runner.Run(ctx, cmd)
	assert.Nil(t, result)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestCommandString(t *testing.T) {
	cmd := Command{Path: "powershell.exe", Args: []string{"-Command", "Get-Item"}}
	assert.Equal(t, "powershell.exe -Command Get-Item", cmd.String())
}
