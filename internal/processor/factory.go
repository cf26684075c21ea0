package processor

import (
	"fmt"
	"time"

	"github.com/vnykmshr/runsync/internal/logging"
	"github.com/vnykmshr/runsync/internal/metrics"
	"github.com/vnykmshr/runsync/internal/storage"
)

// Mode selects the delivery policy of a container's processor.
type Mode string

// Supported connection modes.
const (
	ModeAsync    Mode = "async"
	ModeSync     Mode = "sync"
	ModeOffline  Mode = "offline"
	ModeReadOnly Mode = "read_only"

	// ModeDebug behaves like ModeSync so every operation's outcome is
	// observable immediately.
	ModeDebug Mode = "debug"
)

// Config carries the tunables shared by all processor modes. The zero
// value of any field falls back to its default.
type Config struct {
	// DataDirectory is the root of all locally buffered data.
	DataDirectory string

	// BatchSize caps how many operations one backend call carries.
	BatchSize int

	// FlushInterval is the consumer's idle sleep and the period between
	// forced queue flushes.
	FlushInterval time.Duration

	// MaxSegmentSize caps one queue segment file, in bytes.
	MaxSegmentSize int64

	// MaxBatchBytes caps the serialized size of one batch.
	MaxBatchBytes int64

	// StatusInterval is how often a blocked drain reports progress.
	StatusInterval time.Duration

	// MaxNoConnection is how long an indefinite drain tolerates a
	// connection outage before giving up.
	MaxNoConnection time.Duration

	Logger  logging.Logger
	Metrics metrics.Collector
}

// DefaultConfig returns the default processor configuration.
func DefaultConfig() *Config {
	return &Config{
		DataDirectory:   storage.DefaultDataDirectory,
		BatchSize:       1000,
		FlushInterval:   5 * time.Second,
		MaxSegmentSize:  64 * 1024 * 1024,
		MaxBatchBytes:   100 * 1024 * 1024,
		StatusInterval:  defaultStatusInterval,
		MaxNoConnection: defaultMaxNoConnection,
		Logger:          logging.NewDefaultLogger(logging.LevelInfo),
		Metrics:         metrics.Noop{},
	}
}

// withDefaults returns a copy with zero fields filled in. A nil receiver
// yields the full defaults.
func (c *Config) withDefaults() *Config {
	def := DefaultConfig()
	if c == nil {
		return def
	}
	out := *c
	if out.DataDirectory == "" {
		out.DataDirectory = def.DataDirectory
	}
	if out.BatchSize <= 0 {
		out.BatchSize = def.BatchSize
	}
	if out.FlushInterval <= 0 {
		out.FlushInterval = def.FlushInterval
	}
	if out.MaxSegmentSize <= 0 {
		out.MaxSegmentSize = def.MaxSegmentSize
	}
	if out.MaxBatchBytes <= 0 {
		out.MaxBatchBytes = def.MaxBatchBytes
	}
	if out.StatusInterval <= 0 {
		out.StatusInterval = def.StatusInterval
	}
	if out.MaxNoConnection <= 0 {
		out.MaxNoConnection = def.MaxNoConnection
	}
	if out.Logger == nil {
		out.Logger = def.Logger
	}
	if out.Metrics == nil {
		out.Metrics = def.Metrics
	}
	return &out
}

// New builds the processor for the given mode. Selection is exhaustive;
// an unknown mode is an error, not a silent fallback.
func New(mode Mode, containerID string, containerType storage.ContainerType, backend Backend, cfg *Config) (Processor, error) {
	switch mode {
	case ModeAsync:
		return NewAsync(containerID, containerType, backend, cfg)
	case ModeSync, ModeDebug:
		return NewSync(containerID, containerType, backend, cfg)
	case ModeOffline:
		return NewOffline(containerID, containerType, cfg)
	case ModeReadOnly:
		return NewReadOnly(cfg.withDefaults().Logger), nil
	default:
		return nil, fmt.Errorf("runsync: unknown connection mode %q", mode)
	}
}
