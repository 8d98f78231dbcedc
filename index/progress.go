package index

import (
	"log/slog"
	"sync"
	"time"
)

// ProgressTracker reports bulk indexing progress through the structured
// log, one entry per reportInterval items processed.
type ProgressTracker struct {
	mu             sync.Mutex
	logger         *slog.Logger
	total          int
	reportInterval int
	current        int
	lastReported   int
	startTime      time.Time
}

// NewProgressTracker creates a tracker over total items that logs every
// reportInterval completions.
func NewProgressTracker(logger *slog.Logger, total, reportInterval int) *ProgressTracker {
	if logger == nil {
		logger = slog.Default()
	}
	if reportInterval < 1 {
		reportInterval = 1
	}
	return &ProgressTracker{
		logger:         logger.With("component", "indexer"),
		total:          total,
		reportInterval: reportInterval,
		startTime:      time.Now(),
	}
}

// Increment advances progress by delta, logging when a report interval
// boundary is crossed.
func (p *ProgressTracker) Increment(delta int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.current += delta
	if p.current > p.total {
		p.current = p.total
	}
	if p.current-p.lastReported >= p.reportInterval {
		p.report()
		p.lastReported = p.current
	}
}

// Finish logs the final tally regardless of interval position.
func (p *ProgressTracker) Finish() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.current = p.total
	p.report()
}

// Elapsed returns the time since the tracker was created.
func (p *ProgressTracker) Elapsed() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	return time.Since(p.startTime)
}

// report emits one progress entry. Must be called with the lock held.
func (p *ProgressTracker) report() {
	elapsed := time.Since(p.startTime)
	rate := 0.0
	if elapsed > 0 {
		rate = float64(p.current) / elapsed.Seconds()
	}
	percent := 0
	if p.total > 0 {
		percent = p.current * 100 / p.total
	}
	p.logger.Info("indexing progress",
		"current", p.current,
		"total", p.total,
		"percent", percent,
		"per_second", rate)
}
