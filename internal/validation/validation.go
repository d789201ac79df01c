// Package validation validates user-supplied volume identifiers.
package validation

import (
	"fmt"
	"regexp"
	"strings"
)

// driveLetterPattern matches the drive-letter specs the BitLocker
// cmdlets accept for -MountPoint: "E", "E:" or "E:\".
var driveLetterPattern = regexp.MustCompile(`^[A-Za-z](:\\?)?$`)

// windowsPathPattern matches an absolute Windows path such as
// "C:\mnt\secret" (directory mount points).
var windowsPathPattern = regexp.MustCompile(`^[A-Za-z]:[\\/]`)

// ValidateMountPoint validates that a mount-point spec is either a
// drive letter or an absolute path. The value ends up quoted inside the
// PowerShell command text, so characters that would terminate the quote
// are rejected.
func ValidateMountPoint(path string) error {
	if path == "" {
		return fmt.Errorf("mount point must not be empty")
	}

	if strings.ContainsAny(path, "\"\n\r") {
		return fmt.Errorf("mount point must not contain quotes or line breaks")
	}

	if driveLetterPattern.MatchString(path) {
		return nil
	}

	if windowsPathPattern.MatchString(path) || strings.HasPrefix(path, "/") {
		return nil
	}

	return fmt.Errorf("mount point %q must be a drive letter (e.g. \"E:\") or an absolute path", path)
}
