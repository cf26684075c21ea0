package processor

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/vnykmshr/runsync/internal/logging"
	"github.com/vnykmshr/runsync/internal/operation"
	"github.com/vnykmshr/runsync/internal/storage"
)

// mockBackend records every ExecuteOperations call and answers via the
// optional respond function. Without one, every call fully succeeds.
type mockBackend struct {
	mu      sync.Mutex
	calls   [][]operation.Operation
	respond func(call int, ops []operation.Operation) (int, []FieldError, error)
}

func (b *mockBackend) ExecuteOperations(
	_ context.Context,
	_ string,
	_ storage.ContainerType,
	ops []operation.Operation,
	_ *storage.OperationStorage,
) (int, []FieldError, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	call := len(b.calls)
	copied := make([]operation.Operation, len(ops))
	copy(copied, ops)
	b.calls = append(b.calls, copied)

	if b.respond != nil {
		return b.respond(call, ops)
	}
	return len(ops), nil, nil
}

func (b *mockBackend) callCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.calls)
}

func (b *mockBackend) call(i int) []operation.Operation {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.calls[i]
}

// capturingLogger counts messages per level for assertions.
type capturingLogger struct {
	mu    sync.Mutex
	warns []string
}

func (l *capturingLogger) Debug(string, ...logging.Field) {}
func (l *capturingLogger) Info(string, ...logging.Field)  {}

func (l *capturingLogger) Warn(msg string, _ ...logging.Field) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.warns = append(l.warns, msg)
}

func (l *capturingLogger) Error(string, ...logging.Field) {}

func (l *capturingLogger) warnCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.warns)
}

// testConfig returns a config with intervals short enough for tests.
func testConfig(t *testing.T) *Config {
	t.Helper()

	cfg := DefaultConfig()
	cfg.DataDirectory = t.TempDir()
	cfg.FlushInterval = 10 * time.Millisecond
	cfg.StatusInterval = 20 * time.Millisecond
	cfg.Logger = logging.NoopLogger{}
	return cfg
}

// assignOp builds a distinguishable operation for test fixtures.
func assignOp(i int) operation.Operation {
	return &operation.AssignString{
		Path:  operation.NewPath(fmt.Sprintf("params/p%d", i)),
		Value: fmt.Sprintf("val-%d", i),
	}
}

// opValue extracts the marker value written by assignOp.
func opValue(t *testing.T, op operation.Operation) string {
	t.Helper()

	as, ok := op.(*operation.AssignString)
	if !ok {
		t.Fatalf("expected *operation.AssignString, got %T", op)
	}
	return as.Value
}

// waitUntil polls cond until it holds or the deadline passes.
func waitUntil(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()

	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}
