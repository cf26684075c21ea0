package runsync

import "github.com/vnykmshr/runsync/internal/metrics"

// Stats is a point-in-time snapshot of queue and delivery activity.
type Stats = metrics.Snapshot

// StatsCollector is a MetricsCollector accumulating counters in memory.
// Inject one via Options.Metrics and call Snapshot to observe a running
// processor.
type StatsCollector = metrics.Atomic

// NewStatsCollector creates an empty in-memory collector.
func NewStatsCollector() *StatsCollector {
	return metrics.NewAtomic()
}
