// Package bitlocker drives the lock/unlock lifecycle of a
// BitLocker-encrypted volume through PowerShell's BitLocker cmdlets.
package bitlocker

import (
	"context"
	"fmt"
	"strings"

	"github.com/bitlockerctl/bitlockerctl/internal/command"
	"github.com/bitlockerctl/bitlockerctl/internal/log"
	"github.com/bitlockerctl/bitlockerctl/internal/mount"
)

// State is the externally observed lock state of a volume.
type State int

const (
	// StateLocked means the mount point exists but its filesystem is not
	// accessible.
	StateLocked State = iota
	// StateUnlocked means the mount point exists and is accessible.
	StateUnlocked
)

func (s State) String() string {
	if s == StateUnlocked {
		return "unlocked"
	}
	return "locked"
}

// Volume manages one BitLocker volume, identified by its mount point.
//
// Lock state is never stored: every operation re-reads live mount state
// through the Inspector. Two goroutines racing to unlock the same mount
// point may therefore both pass the precondition check and dispatch; the
// encryption utility arbitrates that race. Operations on distinct mount
// points are fully independent.
type Volume struct {
	// ExecutablePath locates the PowerShell binary. Immutable.
	ExecutablePath string

	// MountPoint identifies the volume. Immutable.
	MountPoint string

	// LastUnlockCommand and LastLockCommand hold the most recently built
	// commands, for inspection only. Every operation rebuilds its
	// command from current state.
	LastUnlockCommand *command.Command
	LastLockCommand   *command.Command

	inspector mount.Inspector
	runner    command.Runner
}

// New creates a Volume for the given mount point. The mount point is
// normalized once here and fixed for the Volume's lifetime.
func New(executablePath, mountPoint string, inspector mount.Inspector, runner command.Runner) *Volume {
	return &Volume{
		ExecutablePath: executablePath,
		MountPoint:     mount.Normalize(mountPoint),
		inspector:      inspector,
		runner:         runner,
	}
}

// PrepareUnlock builds and caches the unlock command without running it.
func (v *Volume) PrepareUnlock(password string) (command.Command, error) {
	cmd, err := BuildUnlockCommand(v.inspector, v.ExecutablePath, v.MountPoint, password)
	if err != nil {
		return command.Command{}, err
	}

	log.Debug("prepared unlock command", "mount_point", v.MountPoint)
	v.LastUnlockCommand = &cmd
	return cmd, nil
}

// Unlock unlocks the volume with the given password. Precondition
// failures (ErrNotFound, ErrAlreadyUnlocked) are returned before any
// process is spawned. A non-zero exit from the utility is returned as an
// *ExecutionError; the caller owns any retry policy. When captureOutput
// is set the utility's output is surfaced through the logger.
func (v *Volume) Unlock(ctx context.Context, password string, captureOutput bool) error {
	cmd, err := v.PrepareUnlock(password)
	if err != nil {
		return err
	}

	log.Info("unlocking volume", "mount_point", v.MountPoint)
	return v.dispatch(ctx, cmd, captureOutput)
}

// PrepareLock builds and caches the lock command without running it.
func (v *Volume) PrepareLock() (command.Command, error) {
	cmd, err := BuildLockCommand(v.inspector, v.ExecutablePath, v.MountPoint)
	if err != nil {
		return command.Command{}, err
	}

	log.Debug("prepared lock command", "mount_point", v.MountPoint)
	v.LastLockCommand = &cmd
	return cmd, nil
}

// Lock locks the volume, force-dismounting it. Symmetric to Unlock; the
// precondition failure for a volume that is already inaccessible is
// ErrAlreadyLocked.
func (v *Volume) Lock(ctx context.Context, captureOutput bool) error {
	cmd, err := v.PrepareLock()
	if err != nil {
		return err
	}

	log.Info("locking volume", "mount_point", v.MountPoint)
	return v.dispatch(ctx, cmd, captureOutput)
}

// Status reports the current lock state, re-read from live mount state.
// A path that is not a mount point returns ErrNotFound.
func (v *Volume) Status() (State, error) {
	isMount, err := v.inspector.IsMountPoint(v.MountPoint)
	if err != nil {
		return StateLocked, fmt.Errorf("check mount point %s: %w", v.MountPoint, err)
	}
	if !isMount {
		return StateLocked, fmt.Errorf("mount point %s: %w", v.MountPoint, ErrNotFound)
	}

	unlocked, err := v.inspector.IsUnlocked(v.MountPoint)
	if err != nil {
		return StateLocked, fmt.Errorf("check lock state of %s: %w", v.MountPoint, err)
	}
	if unlocked {
		return StateUnlocked, nil
	}
	return StateLocked, nil
}

// dispatch hands a built command to the runner and maps its outcome.
// Spawn failures and cancellations propagate as-is: in both cases the
// utility never reported an exit status. Nothing in the Volume is
// mutated on failure; mount state is the only source of truth.
func (v *Volume) dispatch(ctx context.Context, cmd command.Command, captureOutput bool) error {
	result, err := v.runner.Run(ctx, cmd)
	if err != nil {
		return err
	}

	if captureOutput {
		log.Info("utility output",
			"mount_point", v.MountPoint,
			"stdout", strings.TrimSpace(string(result.Stdout)),
			"stderr", strings.TrimSpace(string(result.Stderr)),
		)
	}

	if result.ExitCode != 0 {
		return &ExecutionError{
			MountPoint: v.MountPoint,
			ExitCode:   result.ExitCode,
			Stderr:     string(result.Stderr),
		}
	}

	return nil
}
