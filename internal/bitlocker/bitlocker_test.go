package bitlocker

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bitlockerctl/bitlockerctl/internal/command"
)

// fakeInspector reports mount state from in-memory maps, standing in
// for the live mount table.
type fakeInspector struct {
	mountPoints map[string]bool
	unlocked    map[string]bool
	err         error
}

func newFakeInspector() *fakeInspector {
	return &fakeInspector{
		mountPoints: make(map[string]bool),
		unlocked:    make(map[string]bool),
	}
}

func (f *fakeInspector) setLocked(path string) {
	f.mountPoints[path] = true
	f.unlocked[path] = false
}

func (f *fakeInspector) setUnlocked(path string) {
	f.mountPoints[path] = true
	f.unlocked[path] = true
}

func (f *fakeInspector) IsMountPoint(path string) (bool, error) {
	return f.mountPoints[path], f.err
}

func (f *fakeInspector) IsUnlocked(path string) (bool, error) {
	return f.unlocked[path], f.err
}

// fakeRunner records dispatched commands and plays back a canned
// outcome. onRun, when set, simulates the external state change a real
// utility would cause.
type fakeRunner struct {
	calls  []command.Command
	result *command.Result
	err    error
	onRun  func()
}

func (f *fakeRunner) Run(_ context.Context, cmd command.Command) (*command.Result, error) {
	f.calls = append(f.calls, cmd)
	if f.onRun != nil {
		f.onRun()
	}
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

func okResult() *command.Result {
	return &command.Result{ExitCode: 0, Stdout: []byte("ok\n")}
}

func TestVolumeUnlockNotFound(t *testing.T) {
	inspector := newFakeInspector()
	runner := &fakeRunner{result: okResult()}
	vol := New(testExecutable, "/vol", inspector, runner)

	err := vol.Unlock(context.Background(), "pw", true)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Empty(t, runner.calls, "executor must not be invoked on a precondition failure")
}

func TestVolumeUnlockAlreadyUnlocked(t *testing.T) {
	inspector := newFakeInspector()
	inspector.setUnlocked("/vol")
	runner := &fakeRunner{result: okResult()}
	vol := New(testExecutable, "/vol", inspector, runner)

	err := vol.Unlock(context.Background(), "pw", true)
	assert.ErrorIs(t, err, ErrAlreadyUnlocked)
	assert.Empty(t, runner.calls)
}

func TestVolumeUnlock(t *testing.T) {
	inspector := newFakeInspector()
	inspector.setLocked("/vol")
	runner := &fakeRunner{result: okResult()}
	vol := New(testExecutable, "/vol", inspector, runner)

	err := vol.Unlock(context.Background(), "pw", true)
	require.NoError(t, err)

	require.Len(t, runner.calls, 1)
	dispatched := runner.calls[0]
	assert.Equal(t, testExecutable, dispatched.Path)
	assert.Contains(t, dispatched.Args[1], `"pw"`)
	assert.Contains(t, dispatched.Args[1], `"/vol"`)

	require.NotNil(t, vol.LastUnlockCommand)
	assert.Equal(t, dispatched, *vol.LastUnlockCommand)
}

func TestVolumeUnlockExecutionFailure(t *testing.T) {
	inspector := newFakeInspector()
	inspector.setLocked("/vol")
	runner := &fakeRunner{result: &command.Result{ExitCode: 1, Stderr: []byte("access denied")}}
	vol := New(testExecutable, "/vol", inspector, runner)

	err := vol.Unlock(context.Background(), "pw", false)

	var execErr *ExecutionError
	require.ErrorAs(t, err, &execErr)
	assert.Equal(t, 1, execErr.ExitCode)
	assert.Equal(t, "access denied", execErr.Stderr)
	assert.Equal(t, "/vol", execErr.MountPoint)
	assert.ErrorContains(t, err, "access denied")
}

func TestVolumeUnlockSpawnFailure(t *testing.T) {
	inspector := newFakeInspector()
	inspector.setLocked("/vol")
	spawnErr := &command.SpawnError{Path: testExecutable, Err: errors.New("file not found")}
	runner := &fakeRunner{err: spawnErr}
	vol := New(testExecutable, "/vol", inspector, runner)

	err := vol.Unlock(context.Background(), "pw", false)

	var got *command.SpawnError
	require.ErrorAs(t, err, &got)

	var execErr *ExecutionError
	assert.False(t, errors.As(err, &execErr), "spawn failure must not be reported as an execution failure")
}

func TestVolumeUnlockCancelled(t *testing.T) {
	inspector := newFakeInspector()
	inspector.setLocked("/vol")
	runner := &fakeRunner{err: context.Canceled}
	vol := New(testExecutable, "/vol", inspector, runner)

	err := vol.Unlock(context.Background(), "pw", false)
	assert.ErrorIs(t, err, context.Canceled)

	var execErr *ExecutionError
	assert.False(t, errors.As(err, &execErr), "cancellation must not be reported as an execution failure")
}

func TestVolumeLock(t *testing.T) {
	inspector := newFakeInspector()
	inspector.setUnlocked("E:")
	runner := &fakeRunner{result: okResult()}
	vol := New(testExecutable, "e:", inspector, runner)

	err := vol.Lock(context.Background(), true)
	require.NoError(t, err)

	require.Len(t, runner.calls, 1)
	assert.Equal(t, `Lock-BitLocker -MountPoint "E:" -ForceDismount`, runner.calls[0].Args[1])
	require.NotNil(t, vol.LastLockCommand)
	assert.Nil(t, vol.LastUnlockCommand)
}

func TestVolumeLockExecutionFailure(t *testing.T) {
	inspector := newFakeInspector()
	inspector.setUnlocked("E:")
	runner := &fakeRunner{result: &command.Result{ExitCode: 1, Stderr: []byte("access denied")}}
	vol := New(testExecutable, "E:", inspector, runner)

	err := vol.Lock(context.Background(), false)

	var execErr *ExecutionError
	require.ErrorAs(t, err, &execErr)
	assert.Equal(t, "access denied", execErr.Stderr)
}

// A second Lock after a successful one must fail the precondition,
// because state is re-read from the inspector, not remembered.
func TestVolumeLockTwice(t *testing.T) {
	inspector := newFakeInspector()
	inspector.setUnlocked("E:")
	runner := &fakeRunner{result: okResult()}
	runner.onRun = func() { inspector.setLocked("E:") }
	vol := New(testExecutable, "E:", inspector, runner)

	require.NoError(t, vol.Lock(context.Background(), false))

	err := vol.Lock(context.Background(), false)
	assert.ErrorIs(t, err, ErrAlreadyLocked)
	assert.Len(t, runner.calls, 1, "second lock must fail before dispatch")
}

func TestVolumeStatus(t *testing.T) {
	inspector := newFakeInspector()
	runner := &fakeRunner{result: okResult()}
	vol := New(testExecutable, "E:", inspector, runner)

	_, err := vol.Status()
	assert.ErrorIs(t, err, ErrNotFound)

	inspector.setLocked("E:")
	state, err := vol.Status()
	require.NoError(t, err)
	assert.Equal(t, StateLocked, state)

	inspector.setUnlocked("E:")
	state, err = vol.Status()
	require.NoError(t, err)
	assert.Equal(t, StateUnlocked, state)
}

func TestVolumeNormalizesMountPoint(t *testing.T) {
	vol := New(testExecutable, `e:\`, newFakeInspector(), &fakeRunner{})
	assert.Equal(t, "E:", vol.MountPoint)
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "locked", StateLocked.String())
	assert.Equal(t, "unlocked", StateUnlocked.String())
}
