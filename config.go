package runsync

import (
	"fmt"
	"os"
	"time"

	yaml "gopkg.in/yaml.v2"
)

// fileOptions is the YAML shape of a configuration file. Durations are
// Go duration strings such as "5s" or "2m".
type fileOptions struct {
	Mode            string `yaml:"mode"`
	DataDirectory   string `yaml:"data_directory"`
	BatchSize       int    `yaml:"batch_size"`
	FlushInterval   string `yaml:"flush_interval"`
	MaxSegmentSize  int64  `yaml:"max_segment_size"`
	MaxBatchBytes   int64  `yaml:"max_batch_bytes"`
	StatusInterval  string `yaml:"status_interval"`
	MaxNoConnection string `yaml:"max_no_connection"`
}

// LoadConfig reads Options from a YAML file. Absent keys keep their
// defaults; unknown keys and malformed values are errors. Logger and
// Metrics cannot come from a file and are set on the returned Options by
// the caller.
func LoadConfig(path string) (*Options, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var fc fileOptions
	if err := yaml.UnmarshalStrict(data, &fc); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	opts := DefaultOptions()

	if fc.Mode != "" {
		switch Mode(fc.Mode) {
		case ModeAsync, ModeSync, ModeOffline, ModeReadOnly, ModeDebug:
			opts.Mode = Mode(fc.Mode)
		default:
			return nil, fmt.Errorf("unknown connection mode %q in %s", fc.Mode, path)
		}
	}
	if fc.DataDirectory != "" {
		opts.DataDirectory = fc.DataDirectory
	}
	opts.BatchSize = fc.BatchSize
	opts.MaxSegmentSize = fc.MaxSegmentSize
	opts.MaxBatchBytes = fc.MaxBatchBytes

	if opts.FlushInterval, err = parseConfigDuration(fc.FlushInterval, path); err != nil {
		return nil, err
	}
	if opts.StatusInterval, err = parseConfigDuration(fc.StatusInterval, path); err != nil {
		return nil, err
	}
	if opts.MaxNoConnection, err = parseConfigDuration(fc.MaxNoConnection, path); err != nil {
		return nil, err
	}

	return opts, nil
}

func parseConfigDuration(s, path string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("failed to parse duration %q in %s: %w", s, path, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("negative duration %q in %s", s, path)
	}
	return d, nil
}
