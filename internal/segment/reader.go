package segment

import (
	"bufio"
	"fmt"
	"io"
	"os"
)

// readerBufferSize is the size of the read buffer in bytes.
const readerBufferSize = 64 * 1024

// Reader reads records sequentially from a segment file.
//
// A truncated trailing line (the process died mid-write, or the writer's
// buffer hasn't been flushed yet) is reported as io.EOF, never as an
// error: the partial bytes are retained and the read resumes once a later
// flush completes the line. Reader is not safe for concurrent use.
type Reader struct {
	baseVersion uint64
	path        string

	file *os.File
	buf  *bufio.Reader

	// partial holds the bytes of an incomplete trailing line between
	// Next calls.
	partial []byte

	closed bool
}

// NewReader opens the segment with the given base version for reading.
func NewReader(dir string, baseVersion uint64) (*Reader, error) {
	path := Path(dir, baseVersion)

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open segment file: %w", err)
	}

	return &Reader{
		baseVersion: baseVersion,
		path:        path,
		file:        file,
		buf:         bufio.NewReaderSize(file, readerBufferSize),
	}, nil
}

// Next returns the next complete record, without its newline terminator.
// Returns io.EOF when no complete record is available yet; the caller may
// retry after the writer appends and flushes more data.
func (r *Reader) Next() ([]byte, error) {
	if r.closed {
		return nil, fmt.Errorf("segment reader is closed")
	}

	chunk, err := r.buf.ReadBytes('\n')
	if err == nil {
		record := append(r.partial, chunk[:len(chunk)-1]...)
		r.partial = nil
		return record, nil
	}

	if err == io.EOF {
		// Keep the incomplete tail; the line isn't written yet.
		if len(chunk) > 0 {
			r.partial = append(r.partial, chunk...)
		}
		return nil, io.EOF
	}

	return nil, fmt.Errorf("failed to read segment record: %w", err)
}

// BaseVersion returns the base version of this segment.
func (r *Reader) BaseVersion() uint64 {
	return r.baseVersion
}

// Close closes the segment file. Close is idempotent.
func (r *Reader) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true

	if err := r.file.Close(); err != nil {
		return fmt.Errorf("failed to close segment file: %w", err)
	}
	return nil
}
