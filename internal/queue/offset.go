package queue

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// offsetFile persists a single monotonically increasing version number.
//
// The disk queue keeps two of these next to its segments: last_put_version
// (highest version appended) and last_ack_version (highest version
// acknowledged by the backend). The in-memory value is authoritative
// between writes so reads never touch the disk on the hot path.
type offsetFile struct {
	path string
	file *os.File

	local uint64
}

// openOffsetFile opens or creates the offset file, reading the stored
// value. A missing or empty file yields the default value.
func openOffsetFile(path string, def uint64) (*offsetFile, error) {
	file, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open offset file: %w", err)
	}

	data, err := io.ReadAll(file)
	if err != nil {
		_ = file.Close()
		return nil, fmt.Errorf("failed to read offset file: %w", err)
	}

	local := def
	if s := strings.TrimSpace(string(data)); s != "" {
		v, err := strconv.ParseUint(s, 10, 64)
		if err != nil {
			_ = file.Close()
			return nil, fmt.Errorf("corrupt offset file %s: %w", path, err)
		}
		local = v
	}

	return &offsetFile{path: path, file: file, local: local}, nil
}

// Write stores a new version value.
func (o *offsetFile) Write(version uint64) error {
	data := []byte(strconv.FormatUint(version, 10))
	if err := o.file.Truncate(0); err != nil {
		return fmt.Errorf("failed to truncate offset file: %w", err)
	}
	if _, err := o.file.WriteAt(data, 0); err != nil {
		return fmt.Errorf("failed to write offset file: %w", err)
	}
	o.local = version
	return nil
}

// Local returns the last written (or recovered) version without touching
// the disk. Remains valid after Close.
func (o *offsetFile) Local() uint64 {
	return o.local
}

// Flush forces the stored value to durable storage.
func (o *offsetFile) Flush() error {
	if err := o.file.Sync(); err != nil {
		return fmt.Errorf("failed to sync offset file: %w", err)
	}
	return nil
}

// Close closes the underlying file. The local value stays readable.
func (o *offsetFile) Close() error {
	if err := o.file.Close(); err != nil {
		return fmt.Errorf("failed to close offset file: %w", err)
	}
	return nil
}
