package bitlocker

import (
	"fmt"

	"github.com/bitlockerctl/bitlockerctl/internal/command"
	"github.com/bitlockerctl/bitlockerctl/internal/mount"
)

// BuildUnlockCommand checks that the volume at mountPoint can be
// unlocked and returns the PowerShell invocation that unlocks it.
// Existence is checked before lock state, so a missing mount point
// always fails with ErrNotFound.
//
// The password is embedded verbatim in the command text. That matches
// the contract of the underlying cmdlets, but it means the secret is
// visible to anything that can read the process command line.
func BuildUnlockCommand(inspector mount.Inspector, executablePath, mountPoint, password string) (command.Command, error) {
	if err := checkMountPoint(inspector, mountPoint); err != nil {
		return command.Command{}, err
	}

	unlocked, err := inspector.IsUnlocked(mountPoint)
	if err != nil {
		return command.Command{}, fmt.Errorf("check lock state of %s: %w", mountPoint, err)
	}
	if unlocked {
		return command.Command{}, fmt.Errorf("mount point %s: %w", mountPoint, ErrAlreadyUnlocked)
	}

	script := fmt.Sprintf(
		`$securePassword = ConvertTo-SecureString -String "%s" -AsPlainText -Force; Unlock-BitLocker -MountPoint "%s" -Password $securePassword`,
		password, mountPoint,
	)

	return command.Command{
		Path: executablePath,
		Args: []string{"-Command", script},
	}, nil
}

// BuildLockCommand checks that the volume at mountPoint can be locked
// and returns the PowerShell invocation that force-dismounts it.
func BuildLockCommand(inspector mount.Inspector, executablePath, mountPoint string) (command.Command, error) {
	if err := checkMountPoint(inspector, mountPoint); err != nil {
		return command.Command{}, err
	}

	unlocked, err := inspector.IsUnlocked(mountPoint)
	if err != nil {
		return command.Command{}, fmt.Errorf("check lock state of %s: %w", mountPoint, err)
	}
	if !unlocked {
		return command.Command{}, fmt.Errorf("mount point %s: %w", mountPoint, ErrAlreadyLocked)
	}

	script := fmt.Sprintf(`Lock-BitLocker -MountPoint "%s" -ForceDismount`, mountPoint)

	return command.Command{
		Path: executablePath,
		Args: []string{"-Command", script},
	}, nil
}

func checkMountPoint(inspector mount.Inspector, mountPoint string) error {
	isMount, err := inspector.IsMountPoint(mountPoint)
	if err != nil {
		return fmt.Errorf("check mount point %s: %w", mountPoint, err)
	}
	if !isMount {
		return fmt.Errorf("mount point %s: %w", mountPoint, ErrNotFound)
	}
	return nil
}
