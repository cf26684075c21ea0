package segment

import (
	"io"
	"os"
	"testing"
)

// writeSegment creates a segment file with the given raw contents.
func writeSegment(t *testing.T, dir string, version uint64, contents string) {
	t.Helper()

	if err := os.WriteFile(Path(dir, version), []byte(contents), 0o644); err != nil {
		t.Fatal(err)
	}
}

// readAll drains the reader until io.EOF and returns the records.
func readAll(t *testing.T, r *Reader) []string {
	t.Helper()

	var records []string
	for {
		rec, err := r.Next()
		if err == io.EOF {
			return records
		}
		if err != nil {
			t.Fatalf("Next() error = %v", err)
		}
		records = append(records, string(rec))
	}
}

func TestReader_Sequential(t *testing.T) {
	dir := t.TempDir()
	writeSegment(t, dir, 1, "one\ntwo\nthree\n")

	r, err := NewReader(dir, 1)
	if err != nil {
		t.Fatalf("NewReader() error = %v", err)
	}
	defer func() { _ = r.Close() }()

	records := readAll(t, r)
	want := []string{"one", "two", "three"}
	if len(records) != len(want) {
		t.Fatalf("got %d records, want %d", len(records), len(want))
	}
	for i := range want {
		if records[i] != want[i] {
			t.Errorf("record %d = %q, want %q", i, records[i], want[i])
		}
	}
}

func TestReader_TruncatedTailIsEOF(t *testing.T) {
	dir := t.TempDir()
	writeSegment(t, dir, 1, "complete\npart")

	r, err := NewReader(dir, 1)
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = r.Close() }()

	rec, err := r.Next()
	if err != nil {
		t.Fatalf("Next() error = %v", err)
	}
	if string(rec) != "complete" {
		t.Errorf("Next() = %q, want %q", rec, "complete")
	}

	// The partial trailing line reads as EOF, not as corruption.
	if _, err := r.Next(); err != io.EOF {
		t.Errorf("Next() on truncated tail error = %v, want io.EOF", err)
	}
}

func TestReader_ResumesAfterTailCompletion(t *testing.T) {
	dir := t.TempDir()
	writeSegment(t, dir, 1, "first\npar")

	r, err := NewReader(dir, 1)
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = r.Close() }()

	if rec, err := r.Next(); err != nil || string(rec) != "first" {
		t.Fatalf("Next() = %q, %v, want %q, nil", rec, err, "first")
	}
	if _, err := r.Next(); err != io.EOF {
		t.Fatalf("Next() error = %v, want io.EOF", err)
	}

	// The writer completes the line and appends another record.
	f, err := os.OpenFile(Path(dir, 1), os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := f.WriteString("tial\nsecond\n"); err != nil {
		t.Fatal(err)
	}
	if err := f.Close(); err != nil {
		t.Fatal(err)
	}

	if rec, err := r.Next(); err != nil || string(rec) != "partial" {
		t.Fatalf("Next() after completion = %q, %v, want %q, nil", rec, err, "partial")
	}
	if rec, err := r.Next(); err != nil || string(rec) != "second" {
		t.Fatalf("Next() = %q, %v, want %q, nil", rec, err, "second")
	}
	if _, err := r.Next(); err != io.EOF {
		t.Errorf("Next() at end error = %v, want io.EOF", err)
	}
}

func TestReader_EmptyFile(t *testing.T) {
	dir := t.TempDir()
	writeSegment(t, dir, 1, "")

	r, err := NewReader(dir, 1)
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = r.Close() }()

	if _, err := r.Next(); err != io.EOF {
		t.Errorf("Next() on empty file error = %v, want io.EOF", err)
	}
}

func TestReader_CloseIdempotent(t *testing.T) {
	dir := t.TempDir()
	writeSegment(t, dir, 1, "x\n")

	r, err := NewReader(dir, 1)
	if err != nil {
		t.Fatal(err)
	}

	if err := r.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := r.Close(); err != nil {
		t.Errorf("second Close() error = %v, want nil", err)
	}
}
