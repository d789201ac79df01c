// Package procmounts reads the kernel mount table at /proc/mounts.
package procmounts

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

const procMountsPath = "/proc/mounts"

// Entry is a single mount table entry.
type Entry struct {
	Device     string
	MountPoint string
	FSType     string
	Options    string
}

// Parse returns all entries in the kernel mount table.
func Parse() ([]Entry, error) {
	file, err := os.Open(procMountsPath)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", procMountsPath, err)
	}
	defer file.Close()

	entries, err := parse(file)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", procMountsPath, err)
	}
	return entries, nil
}

// HasMountPoint reports whether target is a mount point in the kernel
// mount table.
func HasMountPoint(target string) (bool, error) {
	absTarget, err := filepath.Abs(target)
	if err != nil {
		return false, fmt.Errorf("get absolute path: %w", err)
	}

	entries, err := Parse()
	if err != nil {
		return false, err
	}

	for _, entry := range entries {
		if entry.MountPoint == absTarget {
			return true, nil
		}
	}

	return false, nil
}

func parse(r io.Reader) ([]Entry, error) {
	var entries []Entry

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) < 4 {
			continue
		}

		entries = append(entries, Entry{
			Device:     unescapeField(fields[0]),
			MountPoint: unescapeField(fields[1]),
			FSType:     fields[2],
			Options:    fields[3],
		})
	}

	if err := scanner.Err(); err != nil {
		return nil, err
	}

	return entries, nil
}

// unescapeField unescapes the octal escapes /proc/mounts uses for
// whitespace and backslashes (\040, \011, \012, \134).
func unescapeField(s string) string {
	s = strings.ReplaceAll(s, "\\040", " ")
	s = strings.ReplaceAll(s, "\\011", "\t")
	s = strings.ReplaceAll(s, "\\012", "\n")
	s = strings.ReplaceAll(s, "\\134", "\\")
	return s
}
