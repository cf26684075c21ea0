package segment

import (
	"os"
	"testing"
)

func TestWriter_AppendAndSize(t *testing.T) {
	dir := t.TempDir()

	w, err := NewWriter(dir, 1)
	if err != nil {
		t.Fatalf("NewWriter() error = %v", err)
	}
	defer func() { _ = w.Close() }()

	records := []string{"first", "second", "third"}
	wantSize := int64(0)
	for _, rec := range records {
		if err := w.Write([]byte(rec)); err != nil {
			t.Fatalf("Write(%q) error = %v", rec, err)
		}
		wantSize += int64(len(rec)) + 1
	}

	if w.Size() != wantSize {
		t.Errorf("Size() = %d, want %d", w.Size(), wantSize)
	}

	if err := w.Sync(); err != nil {
		t.Fatalf("Sync() error = %v", err)
	}

	info, err := os.Stat(Path(dir, 1))
	if err != nil {
		t.Fatal(err)
	}
	if info.Size() != wantSize {
		t.Errorf("on-disk size = %d, want %d", info.Size(), wantSize)
	}
}

func TestWriter_ReopenResumesSize(t *testing.T) {
	dir := t.TempDir()

	w, err := NewWriter(dir, 1)
	if err != nil {
		t.Fatalf("NewWriter() error = %v", err)
	}
	if err := w.Write([]byte("hello")); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	w2, err := NewWriter(dir, 1)
	if err != nil {
		t.Fatalf("NewWriter() reopen error = %v", err)
	}
	defer func() { _ = w2.Close() }()

	if w2.Size() != 6 {
		t.Errorf("Size() after reopen = %d, want 6", w2.Size())
	}

	if err := w2.Write([]byte("world")); err != nil {
		t.Fatal(err)
	}
	if w2.Size() != 12 {
		t.Errorf("Size() = %d, want 12", w2.Size())
	}
}

func TestWriter_CloseIdempotent(t *testing.T) {
	w, err := NewWriter(t.TempDir(), 1)
	if err != nil {
		t.Fatal(err)
	}

	if err := w.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := w.Close(); err != nil {
		t.Errorf("second Close() error = %v, want nil", err)
	}

	if err := w.Write([]byte("late")); err == nil {
		t.Error("Write() after Close() expected error, got nil")
	}
}
