//go:build windows

package mount

import (
	"fmt"
	"strings"

	"golang.org/x/sys/windows"

	"github.com/bitlockerctl/bitlockerctl/internal/log"
)

// VolumeInspector implements Inspector using the Windows volume APIs.
type VolumeInspector struct{}

// NewInspector creates the platform inspector.
func NewInspector() *VolumeInspector {
	return &VolumeInspector{}
}

// IsMountPoint reports whether path refers to an existing volume root.
// A locked BitLocker volume still has a volume root, so this is true for
// both lock states.
func (i *VolumeInspector) IsMountPoint(path string) (bool, error) {
	root, err := windows.UTF16PtrFromString(rootPath(path))
	if err != nil {
		return false, fmt.Errorf("encode path %q: %w", path, err)
	}

	driveType := windows.GetDriveType(root)
	log.Debug("queried drive type", "path", path, "type", driveType)

	return driveType != windows.DRIVE_UNKNOWN && driveType != windows.DRIVE_NO_ROOT_DIR, nil
}

// IsUnlocked reports whether the volume's filesystem is readable, which
// is only the case once BitLocker has decrypted it.
func (i *VolumeInspector) IsUnlocked(path string) (bool, error) {
	isMount, err := i.IsMountPoint(path)
	if err != nil || !isMount {
		return false, err
	}

	root, err := windows.UTF16PtrFromString(rootPath(path))
	if err != nil {
		return false, fmt.Errorf("encode path %q: %w", path, err)
	}

	var serial, maxComponentLen, fsFlags uint32
	fsName := make([]uint16, windows.MAX_PATH+1)

	err = windows.GetVolumeInformation(root, nil, 0, &serial, &maxComponentLen, &fsFlags, &fsName[0], uint32(len(fsName)))
	if err != nil {
		// Locked volumes report an unrecognized or unready filesystem
		// rather than a hard failure.
		switch err {
		case windows.ERROR_UNRECOGNIZED_VOLUME, windows.ERROR_ACCESS_DENIED, windows.ERROR_NOT_READY:
			return false, nil
		}
		return false, fmt.Errorf("volume information for %q: %w", path, err)
	}

	return true, nil
}

// AvailableLetters returns the drive letters not currently assigned to
// any volume, in alphabetical order.
func AvailableLetters() ([]string, error) {
	mask, err := windows.GetLogicalDrives()
	if err != nil {
		return nil, fmt.Errorf("list logical drives: %w", err)
	}

	var letters []string
	for i := 0; i < 26; i++ {
		if mask&(1<<i) == 0 {
			letters = append(letters, string(rune('A'+i))+":")
		}
	}

	return letters, nil
}

// rootPath converts a mount-point spec into the trailing-backslash root
// form the volume APIs require (e.g. "E:" -> `E:\`).
func rootPath(path string) string {
	p := Normalize(path)
	if strings.HasSuffix(p, `\`) {
		return p
	}
	return p + `\`
}
