package queue

import (
	"fmt"
	"testing"

	"github.com/vnykmshr/runsync/internal/operation"
)

// setupQueue creates a test queue in a fresh temp directory.
// The queue is automatically closed when the test completes.
func setupQueue(t *testing.T, opts *Options) *DiskQueue {
	t.Helper()

	q, err := Open(t.TempDir(), opts)
	if err != nil {
		t.Fatalf("failed to open queue: %v", err)
	}

	t.Cleanup(func() { _ = q.Close() })

	return q
}

// assignOp builds a small string-assign operation with a recognizable value.
func assignOp(i int) operation.Operation {
	return &operation.AssignString{
		Path:  operation.NewPath("sys/name"),
		Value: fmt.Sprintf("val-%d", i),
	}
}

// putN appends n operations and returns the assigned versions.
func putN(t *testing.T, q *DiskQueue, n int) []uint64 {
	t.Helper()

	versions := make([]uint64, n)
	for i := 0; i < n; i++ {
		v, err := q.Put(assignOp(i))
		if err != nil {
			t.Fatalf("put %d failed: %v", i, err)
		}
		versions[i] = v
	}

	return versions
}

// getAll drains the queue and returns every element.
func getAll(t *testing.T, q *DiskQueue) []*Element {
	t.Helper()

	var elements []*Element
	for {
		el, err := q.Get()
		if err != nil {
			t.Fatalf("get failed: %v", err)
		}
		if el == nil {
			return elements
		}
		elements = append(elements, el)
	}
}

// assertValues verifies that elements carry the expected assign values in order.
func assertValues(t *testing.T, elements []*Element, want []string) {
	t.Helper()

	if len(elements) != len(want) {
		t.Fatalf("got %d elements, want %d", len(elements), len(want))
	}

	for i, el := range elements {
		op, ok := el.Operation.(*operation.AssignString)
		if !ok {
			t.Fatalf("element %d: got %T, want *operation.AssignString", i, el.Operation)
		}
		if op.Value != want[i] {
			t.Errorf("element %d: value = %q, want %q", i, op.Value, want[i])
		}
	}
}

// assertSize verifies the queue backlog.
func assertSize(t *testing.T, q *DiskQueue, want uint64) {
	t.Helper()

	if got := q.Size(); got != want {
		t.Errorf("Size() = %d, want %d", got, want)
	}
}
