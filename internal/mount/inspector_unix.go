//go:build !windows

package mount

import (
	"errors"
	"fmt"
	"os"

	"github.com/bitlockerctl/bitlockerctl/internal/procmounts"
)

// PathInspector implements Inspector from the kernel mount table and
// path accessibility. BitLocker itself is Windows-only; this keeps the
// library usable where volumes are surfaced through a compatible utility
// and in development environments.
type PathInspector struct{}

// NewInspector creates the platform inspector.
func NewInspector() *PathInspector {
	return &PathInspector{}
}

// IsMountPoint reports whether path appears in the kernel mount table.
func (i *PathInspector) IsMountPoint(path string) (bool, error) {
	isMount, err := procmounts.HasMountPoint(Normalize(path))
	if err != nil {
		return false, fmt.Errorf("check mount table: %w", err)
	}
	return isMount, nil
}

// IsUnlocked reports whether path is a mount point whose filesystem can
// actually be read. A locked volume held by an automount unit stays in
// the mount table while reads fail.
func (i *PathInspector) IsUnlocked(path string) (bool, error) {
	isMount, err := i.IsMountPoint(path)
	if err != nil || !isMount {
		return false, err
	}

	if _, err := os.ReadDir(Normalize(path)); err != nil {
		return false, nil
	}

	return true, nil
}

// AvailableLetters is only meaningful on Windows.
func AvailableLetters() ([]string, error) {
	return nil, errors.New("drive letters are only available on windows")
}
