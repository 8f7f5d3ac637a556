// Package observability collects per-cycle counters and process resource
// figures for the poller logs.
package observability

import (
	"os"
	"time"

	"github.com/shirou/gopsutil/process"
)

// CycleStats summarizes one mailbox poll cycle.
type CycleStats struct {
	Fetched   int
	Processed int
	Failed    int
	Duration  time.Duration
	RSSBytes  uint64

	started time.Time
}

func NewCycleStats() CycleStats {
	return CycleStats{started: time.Now()}
}

// Finish stamps the duration and samples the process resident memory.
// Memory sampling is best-effort; a probe failure leaves RSSBytes zero.
func (s CycleStats) Finish() CycleStats {
	s.Duration = time.Since(s.started)
	if proc, err := process.NewProcess(int32(os.Getpid())); err == nil {
		if mem, err := proc.MemoryInfo(); err == nil {
			s.RSSBytes = mem.RSS
		}
	}
	return s
}

// Fields returns the stats as alternating slog key/value pairs.
func (s CycleStats) Fields() []any {
	return []any{
		"fetched", s.Fetched,
		"processed", s.Processed,
		"failed", s.Failed,
		"duration", s.Duration.Round(time.Millisecond),
		"rss_mb", s.RSSBytes / (1 << 20),
	}
}
