// Package runsync buffers experiment-tracking operations on local disk
// and delivers them to a remote backend.
//
// Every mutation of a run's attributes becomes an Operation, appended to
// a write-ahead disk queue and drained by a background consumer with
// batching, retry and at-least-once delivery. Data survives crashes and
// connection outages; anything left undelivered stays on disk where
// external tooling can sync it later.
//
// Example usage:
//
//	p, err := runsync.New("RUN-42", runsync.ContainerTypeRun, backend, nil)
//	if err != nil {
//		log.Fatal(err)
//	}
//	p.Start()
//
//	err = p.EnqueueOperation(runsync.AssignFloat("metrics/accuracy", 0.92), false)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	// Block until everything is on the server, then shut down.
//	if err := p.Wait(); err != nil {
//		log.Fatal(err)
//	}
//	if err := p.Stop(0); err != nil {
//		log.Fatal(err)
//	}
package runsync

import (
	"time"

	"github.com/vnykmshr/runsync/internal/operation"
	"github.com/vnykmshr/runsync/internal/processor"
	"github.com/vnykmshr/runsync/internal/queue"
	"github.com/vnykmshr/runsync/internal/storage"
)

// Version is the current version of runsync.
const Version = "0.3.0"

// Mode selects how operations reach the backend.
type Mode = processor.Mode

// Supported connection modes.
const (
	// ModeAsync buffers operations on disk and delivers them in the
	// background. The default.
	ModeAsync = processor.ModeAsync

	// ModeSync delivers each operation inline before returning.
	ModeSync = processor.ModeSync

	// ModeOffline buffers operations on disk and never delivers them;
	// use the external sync tooling later.
	ModeOffline = processor.ModeOffline

	// ModeReadOnly drops all operations.
	ModeReadOnly = processor.ModeReadOnly

	// ModeDebug behaves like ModeSync.
	ModeDebug = processor.ModeDebug
)

// ContainerType identifies the kind of tracked object a processor
// belongs to.
type ContainerType = storage.ContainerType

// Supported container types.
const (
	ContainerTypeRun          = storage.ContainerTypeRun
	ContainerTypeProject      = storage.ContainerTypeProject
	ContainerTypeModel        = storage.ContainerTypeModel
	ContainerTypeModelVersion = storage.ContainerTypeModelVersion
)

// Processor accepts operations and delivers them per the configured mode.
type Processor = processor.Processor

// Backend is the caller-supplied interface to the remote metadata
// service.
type Backend = processor.Backend

// OperationStorage owns the queue directory handed to Backend calls,
// e.g. as staging space for uploads.
type OperationStorage = storage.OperationStorage

// Operation is one durable, replayable mutation of a container's
// attributes.
type Operation = operation.Operation

// Path addresses one attribute inside a container.
type Path = operation.Path

// FieldError is a backend-reported failure of one operation.
type FieldError = processor.FieldError

// FieldErrors aggregates the per-operation errors of one backend call.
type FieldErrors = processor.FieldErrors

// Errors surfaced by processors and queues.
var (
	ErrConnectionLost     = processor.ErrConnectionLost
	ErrSyncStopped        = processor.ErrSyncStopped
	ErrQueueClosed        = queue.ErrQueueClosed
	ErrMalformedOperation = queue.ErrMalformedOperation
)

// New builds the processor for one container. A nil opts uses
// DefaultOptions; offline and read-only modes ignore the backend, which
// may then be nil. Call Start on the result before enqueueing when using
// async mode.
func New(containerID string, containerType ContainerType, backend Backend, opts *Options) (Processor, error) {
	if opts == nil {
		opts = DefaultOptions()
	}
	mode := opts.Mode
	if mode == "" {
		mode = ModeAsync
	}
	return processor.New(mode, containerID, containerType, backend, opts.config())
}

// AssignFloat sets a float attribute.
func AssignFloat(path string, value float64) Operation {
	return &operation.AssignFloat{Path: operation.NewPath(path), Value: value}
}

// AssignInt sets an integer attribute.
func AssignInt(path string, value int64) Operation {
	return &operation.AssignInt{Path: operation.NewPath(path), Value: value}
}

// AssignBool sets a boolean attribute.
func AssignBool(path string, value bool) Operation {
	return &operation.AssignBool{Path: operation.NewPath(path), Value: value}
}

// AssignString sets a string attribute.
func AssignString(path string, value string) Operation {
	return &operation.AssignString{Path: operation.NewPath(path), Value: value}
}

// AssignDatetime sets a datetime attribute with millisecond precision.
func AssignDatetime(path string, value time.Time) Operation {
	return operation.NewAssignDatetime(operation.NewPath(path), value)
}

// LogFloat appends one value to a float series, stamped now.
func LogFloat(path string, value float64) Operation {
	return &operation.LogFloats{
		Path: operation.NewPath(path),
		Values: []operation.FloatLogValue{
			{Value: value, TS: epochSeconds(time.Now())},
		},
	}
}

// LogFloatAt appends one value to a float series at an explicit step.
func LogFloatAt(path string, value float64, step float64) Operation {
	return &operation.LogFloats{
		Path: operation.NewPath(path),
		Values: []operation.FloatLogValue{
			{Value: value, Step: &step, TS: epochSeconds(time.Now())},
		},
	}
}

// LogString appends one value to a string series, stamped now.
func LogString(path string, value string) Operation {
	return &operation.LogStrings{
		Path: operation.NewPath(path),
		Values: []operation.StringLogValue{
			{Value: value, TS: epochSeconds(time.Now())},
		},
	}
}

// ClearFloatLog removes every value of a float series.
func ClearFloatLog(path string) Operation {
	return &operation.ClearFloatLog{Path: operation.NewPath(path)}
}

// ClearStringLog removes every value of a string series.
func ClearStringLog(path string) Operation {
	return &operation.ClearStringLog{Path: operation.NewPath(path)}
}

// AddStrings inserts values into a string set attribute.
func AddStrings(path string, values ...string) Operation {
	return &operation.AddStrings{Path: operation.NewPath(path), Values: values}
}

// RemoveStrings removes values from a string set attribute.
func RemoveStrings(path string, values ...string) Operation {
	return &operation.RemoveStrings{Path: operation.NewPath(path), Values: values}
}

// ClearStringSet empties a string set attribute.
func ClearStringSet(path string) Operation {
	return &operation.ClearStringSet{Path: operation.NewPath(path)}
}

// DeleteAttribute removes an attribute entirely.
func DeleteAttribute(path string) Operation {
	return &operation.Delete{Path: operation.NewPath(path)}
}

// CopyAttribute copies an attribute from another container.
func CopyAttribute(path, sourceContainerID string, sourceContainerType ContainerType, sourcePath string) Operation {
	return &operation.Copy{
		Path:                operation.NewPath(path),
		SourceContainerID:   sourceContainerID,
		SourceContainerType: string(sourceContainerType),
		SourcePath:          operation.NewPath(sourcePath),
	}
}

// epochSeconds converts a time to fractional Unix seconds with
// microsecond resolution, matching the series timestamp encoding.
func epochSeconds(t time.Time) float64 {
	return float64(t.UnixMicro()) / 1e6
}
