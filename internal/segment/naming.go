// Package segment provides the append-only log files backing the disk queue.
//
// A segment is a newline-delimited file of serialized operation records.
// Segment file names encode the put version of the first record the file
// received:
//
//	data-1.log
//	data-431.log
//
// A segment is only appended to while it is the newest one; once the queue
// rotates past it, the file is immutable until cleanup deletes it.
package segment

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

const (
	// FilePrefix is the common prefix of segment file names.
	FilePrefix = "data-"

	// FileExtension is the file extension of segment files.
	FileExtension = ".log"
)

// FormatName creates a segment file name from its base version.
func FormatName(baseVersion uint64) string {
	return fmt.Sprintf("%s%d%s", FilePrefix, baseVersion, FileExtension)
}

// ParseName extracts the base version from a segment file name.
// Returns an error if the name doesn't match the expected format.
func ParseName(filename string) (uint64, error) {
	if !strings.HasPrefix(filename, FilePrefix) || !strings.HasSuffix(filename, FileExtension) {
		return 0, fmt.Errorf("invalid segment filename: %s", filename)
	}

	base := strings.TrimSuffix(strings.TrimPrefix(filename, FilePrefix), FileExtension)

	version, err := strconv.ParseUint(base, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid segment filename: %s (bad base version)", filename)
	}

	return version, nil
}

// Path returns the full path of the segment with the given base version.
func Path(dir string, baseVersion uint64) string {
	return filepath.Join(dir, FormatName(baseVersion))
}

// Remove deletes the segment file with the given base version.
// A file that is already gone is not an error.
func Remove(dir string, baseVersion uint64) error {
	if err := os.Remove(Path(dir, baseVersion)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove segment file: %w", err)
	}
	return nil
}

// Discover lists the base versions of all segment files in a directory,
// sorted ascending. Files that don't match the naming scheme are ignored.
// Returns an empty slice if the directory has no segments.
func Discover(dir string) ([]uint64, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory %s: %w", dir, err)
	}

	var versions []uint64
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		version, err := ParseName(entry.Name())
		if err != nil {
			continue
		}
		versions = append(versions, version)
	}

	sort.Slice(versions, func(i, j int) bool { return versions[i] < versions[j] })

	return versions, nil
}
