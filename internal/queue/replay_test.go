package queue

import (
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/vnykmshr/runsync/internal/logging"
	"github.com/vnykmshr/runsync/internal/operation"
	"github.com/vnykmshr/runsync/internal/segment"
)

// captureLogger records warning messages for assertions.
type captureLogger struct {
	logging.NoopLogger

	mu    sync.Mutex
	warns []string
}

func (l *captureLogger) Warn(msg string, _ ...logging.Field) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.warns = append(l.warns, msg)
}

func (l *captureLogger) hasWarn(msg string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, w := range l.warns {
		if w == msg {
			return true
		}
	}
	return false
}

func TestReopen_ReadsBackAllEntriesAcrossSegments(t *testing.T) {
	dir := t.TempDir()

	q, err := Open(dir, &Options{MaxSegmentSize: 100})
	if err != nil {
		t.Fatal(err)
	}
	putN(t, q, 100)
	if err := q.Close(); err != nil {
		t.Fatal(err)
	}

	reopened, err := Open(dir, &Options{MaxSegmentSize: 100})
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	t.Cleanup(func() { _ = reopened.Close() })

	elements := getAll(t, reopened)
	if len(elements) != 100 {
		t.Fatalf("read back %d entries, want 100", len(elements))
	}
	for i, el := range elements {
		if el.Version != uint64(i+1) {
			t.Errorf("entry %d: version = %d, want %d", i, el.Version, i+1)
		}
	}

	want := make([]string, 100)
	for i := range want {
		want[i] = assignOp(i).(*operation.AssignString).Value
	}
	assertValues(t, elements, want)
}

func TestReopen_SkipsAcknowledgedEntries(t *testing.T) {
	dir := t.TempDir()

	q, err := Open(dir, nil)
	if err != nil {
		t.Fatal(err)
	}
	putN(t, q, 10)
	if err := q.Flush(); err != nil {
		t.Fatal(err)
	}
	getAll(t, q)
	if err := q.Ack(6); err != nil {
		t.Fatal(err)
	}
	if err := q.Close(); err != nil {
		t.Fatal(err)
	}

	reopened, err := Open(dir, nil)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = reopened.Close() })

	assertSize(t, reopened, 4)

	el, err := reopened.Get()
	if err != nil {
		t.Fatal(err)
	}
	if el == nil || el.Version != 7 {
		t.Fatalf("first entry after reopen = %+v, want version 7", el)
	}
}

func TestReopen_WarnsOnVersionGap(t *testing.T) {
	dir := t.TempDir()

	q, err := Open(dir, &Options{MaxSegmentSize: 100})
	if err != nil {
		t.Fatal(err)
	}
	putN(t, q, 50)
	if err := q.Ack(10); err != nil {
		t.Fatal(err)
	}
	if err := q.Close(); err != nil {
		t.Fatal(err)
	}

	// Simulate a lost segment: remove one holding unacknowledged data so
	// the first surviving version is past the watermark plus one.
	versions, err := segment.Discover(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(versions) < 3 {
		t.Fatalf("expected multiple segments, got %v", versions)
	}
	if err := os.Remove(segment.Path(dir, versions[1])); err != nil {
		t.Fatal(err)
	}

	logger := &captureLogger{}
	reopened, err := Open(dir, &Options{Logger: logger})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = reopened.Close() })

	if el, err := reopened.Get(); err != nil || el == nil {
		t.Fatalf("Get() = %+v, %v, want a surviving entry", el, err)
	}
	if !logger.hasWarn("possible data loss") {
		t.Error("expected possible data loss warning after gap")
	}
}

func TestReopen_TruncatedTailIsNotCorruption(t *testing.T) {
	dir := t.TempDir()

	q, err := Open(dir, nil)
	if err != nil {
		t.Fatal(err)
	}
	putN(t, q, 3)
	if err := q.Close(); err != nil {
		t.Fatal(err)
	}

	// Simulate a crash mid-write: append half a record to the segment.
	f, err := os.OpenFile(segment.Path(dir, 1), os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := f.WriteString(`{"obj":{"type":"Assign`); err != nil {
		t.Fatal(err)
	}
	if err := f.Close(); err != nil {
		t.Fatal(err)
	}

	reopened, err := Open(dir, nil)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = reopened.Close() })

	elements := getAll(t, reopened)
	if len(elements) != 3 {
		t.Errorf("read back %d complete entries, want 3", len(elements))
	}
}

func TestWaitForEmpty(t *testing.T) {
	q := setupQueue(t, nil)

	// Empty queue returns immediately.
	if !q.WaitForEmpty(10 * time.Millisecond) {
		t.Error("WaitForEmpty() on empty queue = false, want true")
	}

	putN(t, q, 2)

	if q.WaitForEmpty(20 * time.Millisecond) {
		t.Error("WaitForEmpty() with backlog = true, want false")
	}

	done := make(chan bool, 1)
	go func() {
		done <- q.WaitForEmpty(5 * time.Second)
	}()

	time.Sleep(20 * time.Millisecond)
	if err := q.Ack(2); err != nil {
		t.Fatal(err)
	}

	select {
	case ok := <-done:
		if !ok {
			t.Error("WaitForEmpty() = false after full ack, want true")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("WaitForEmpty() did not return after full ack")
	}
}

func TestGet_MalformedRecordIsError(t *testing.T) {
	dir := t.TempDir()

	q, err := Open(dir, nil)
	if err != nil {
		t.Fatal(err)
	}
	putN(t, q, 1)
	if err := q.Close(); err != nil {
		t.Fatal(err)
	}

	// A complete but undecodable line must surface an error, not be skipped.
	f, err := os.OpenFile(segment.Path(dir, 1), os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := f.WriteString("{\"obj\":{\"type\":\"Teleport\",\"body\":{}},\"version\":2}\n"); err != nil {
		t.Fatal(err)
	}
	if err := f.Close(); err != nil {
		t.Fatal(err)
	}

	reopened, err := Open(dir, nil)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = reopened.Close() })

	if el, err := reopened.Get(); err != nil || el == nil {
		t.Fatalf("Get() of valid entry = %+v, %v", el, err)
	}

	_, err = reopened.Get()
	if err == nil {
		t.Fatal("Get() of malformed record expected error, got nil")
	}
	if !errors.Is(err, ErrMalformedOperation) {
		t.Errorf("error = %v, want ErrMalformedOperation", err)
	}
}
