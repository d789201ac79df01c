// Package mount answers mount-state questions about encrypted volumes.
package mount

import "strings"

// Inspector reports the externally observable state of a volume path.
// Lock state is never cached anywhere; callers re-query just-in-time.
type Inspector interface {
	// IsMountPoint reports whether path exists as a filesystem mount point.
	IsMountPoint(path string) (bool, error)

	// IsUnlocked reports whether path is a mount point that is currently
	// accessible as a decrypted filesystem.
	IsUnlocked(path string) (bool, error)
}

// Normalize canonicalizes a mount-point spec. Drive-letter forms ("e",
// "e:", `e:\`) become the "E:" form the BitLocker cmdlets expect; other
// paths are returned with surrounding whitespace trimmed.
func Normalize(path string) string {
	p := strings.TrimSpace(path)

	if letter, ok := driveLetter(p); ok {
		return string(letter) + ":"
	}

	return p
}

// driveLetter extracts the drive letter from a drive spec, reporting
// whether the path is one.
func driveLetter(path string) (byte, bool) {
	switch len(path) {
	case 1: // "e"
	case 2: // "e:"
		if path[1] != ':' {
			return 0, false
		}
	case 3: // "e:\" or "e:/"
		if path[1] != ':' || (path[2] != '\\' && path[2] != '/') {
			return 0, false
		}
	default:
		return 0, false
	}

	c := path[0]
	if c >= 'a' && c <= 'z' {
		return c - 'a' + 'A', true
	}
	if c >= 'A' && c <= 'Z' {
		return c, true
	}
	return 0, false
}
