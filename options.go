package runsync

import (
	"time"

	"github.com/vnykmshr/runsync/internal/logging"
	"github.com/vnykmshr/runsync/internal/metrics"
	"github.com/vnykmshr/runsync/internal/processor"
	"github.com/vnykmshr/runsync/internal/storage"
)

// Logger receives the client's diagnostics. Implement it to route them
// into your application's logging.
type Logger = logging.Logger

// Field is one structured key/value pair attached to a log message.
type Field = logging.Field

// MetricsCollector receives counters about queue and delivery activity.
type MetricsCollector = metrics.Collector

// Options configures a processor. The zero value of any field falls back
// to its default.
type Options struct {
	// Mode selects the delivery policy.
	// Default: ModeAsync
	Mode Mode

	// DataDirectory is the root of all locally buffered data.
	// Default: ".runsync"
	DataDirectory string

	// BatchSize caps how many operations one backend call carries.
	// Default: 1000
	BatchSize int

	// FlushInterval is the consumer's idle sleep and the period between
	// forced disk flushes.
	// Default: 5 seconds
	FlushInterval time.Duration

	// MaxSegmentSize caps one queue segment file, in bytes.
	// Default: 64 MB
	MaxSegmentSize int64

	// MaxBatchBytes caps the serialized size of one batch.
	// Default: 100 MB
	MaxBatchBytes int64

	// StatusInterval is how often a blocked drain logs progress.
	// Default: 30 seconds
	StatusInterval time.Duration

	// MaxNoConnection is how long an indefinite drain tolerates a
	// connection outage before leaving the data on disk.
	// Default: 5 minutes
	MaxNoConnection time.Duration

	// Logger for diagnostics.
	// Default: stderr at info level
	Logger Logger

	// Metrics collector for activity counters.
	// Default: discard
	Metrics MetricsCollector
}

// DefaultOptions returns the default configuration.
func DefaultOptions() *Options {
	return &Options{
		Mode:          ModeAsync,
		DataDirectory: storage.DefaultDataDirectory,
	}
}

// config translates the public options into the processor configuration.
// Defaulting of the remaining fields happens inside the processor.
func (o *Options) config() *processor.Config {
	return &processor.Config{
		DataDirectory:   o.DataDirectory,
		BatchSize:       o.BatchSize,
		FlushInterval:   o.FlushInterval,
		MaxSegmentSize:  o.MaxSegmentSize,
		MaxBatchBytes:   o.MaxBatchBytes,
		StatusInterval:  o.StatusInterval,
		MaxNoConnection: o.MaxNoConnection,
		Logger:          o.Logger,
		Metrics:         o.Metrics,
	}
}
