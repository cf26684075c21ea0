package segment

import (
	"bufio"
	"fmt"
	"os"
)

// writerBufferSize is the size of the append buffer in bytes.
const writerBufferSize = 64 * 1024

// Writer provides buffered, append-only record writes to a segment file.
//
// Writer is not safe for concurrent use; the disk queue serializes access
// to it under its lock.
type Writer struct {
	baseVersion uint64
	path        string

	file *os.File
	buf  *bufio.Writer

	// size is the segment size in bytes including buffered, unflushed data.
	size int64

	closed bool
}

// NewWriter opens the segment with the given base version for appending,
// creating it if needed. Reopening an existing segment resumes at its
// current size.
func NewWriter(dir string, baseVersion uint64) (*Writer, error) {
	path := Path(dir, baseVersion)

	file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open segment file: %w", err)
	}

	info, err := file.Stat()
	if err != nil {
		_ = file.Close()
		return nil, fmt.Errorf("failed to stat segment file: %w", err)
	}

	return &Writer{
		baseVersion: baseVersion,
		path:        path,
		file:        file,
		buf:         bufio.NewWriterSize(file, writerBufferSize),
		size:        info.Size(),
	}, nil
}

// Write appends one record followed by a newline.
// The record must not contain a newline itself.
func (w *Writer) Write(record []byte) error {
	if w.closed {
		return fmt.Errorf("segment writer is closed")
	}

	if _, err := w.buf.Write(record); err != nil {
		return fmt.Errorf("failed to append record: %w", err)
	}
	if err := w.buf.WriteByte('\n'); err != nil {
		return fmt.Errorf("failed to append record terminator: %w", err)
	}

	w.size += int64(len(record)) + 1

	return nil
}

// Size returns the segment size in bytes, counting buffered data.
func (w *Writer) Size() int64 {
	return w.size
}

// BaseVersion returns the base version of this segment.
func (w *Writer) BaseVersion() uint64 {
	return w.baseVersion
}

// Flush writes buffered data through to the operating system.
func (w *Writer) Flush() error {
	if w.closed {
		return fmt.Errorf("segment writer is closed")
	}
	if err := w.buf.Flush(); err != nil {
		return fmt.Errorf("failed to flush segment buffer: %w", err)
	}
	return nil
}

// Sync flushes buffered data and forces it to durable storage.
func (w *Writer) Sync() error {
	if err := w.Flush(); err != nil {
		return err
	}
	if err := w.file.Sync(); err != nil {
		return fmt.Errorf("failed to sync segment file: %w", err)
	}
	return nil
}

// Close flushes and closes the segment file. Close is idempotent.
func (w *Writer) Close() error {
	if w.closed {
		return nil
	}

	if err := w.buf.Flush(); err != nil {
		_ = w.file.Close()
		w.closed = true
		return fmt.Errorf("failed to flush segment buffer: %w", err)
	}

	if err := w.file.Close(); err != nil {
		w.closed = true
		return fmt.Errorf("failed to close segment file: %w", err)
	}

	w.closed = true
	return nil
}
