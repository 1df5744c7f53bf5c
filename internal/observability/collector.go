// Package observability provides in-process metrics for CLI sessions.
package observability

import (
	"sync"
	"time"
)

// SessionMetrics aggregates counters for an entire CLI session.
type SessionMetrics struct {
	StartTime       time.Time
	EndTime         time.Time
	TotalRequests   int
	FailedRequests  int
	TotalRetries    int
	RefreshCycles   int
	RefreshFailures int
	TotalLatency    time.Duration
}

// SessionCollector accumulates metrics across a CLI session.
// It is safe for concurrent use and uses counters instead of unbounded slices.
type SessionCollector struct {
	mu sync.Mutex

	startTime       time.Time
	totalRequests   int
	failedRequests  int
	totalRetries    int
	refreshCycles   int
	refreshFailures int
	totalLatency    time.Duration
}

// NewSessionCollector creates a new SessionCollector.
func NewSessionCollector() *SessionCollector {
	return &SessionCollector{startTime: time.Now()}
}

// RecordRequest records a completed HTTP request.
func (c *SessionCollector) RecordRequest(duration time.Duration, failed bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.totalRequests++
	c.totalLatency += duration
	if failed {
		c.failedRequests++
	}
}

// RecordRetry records a post-refresh retry of an original request.
func (c *SessionCollector) RecordRetry() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.totalRetries++
}

// RecordRefresh records a token refresh cycle and its outcome.
func (c *SessionCollector) RecordRefresh(failed bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.refreshCycles++
	if failed {
		c.refreshFailures++
	}
}

// Summary returns a snapshot of the session metrics.
func (c *SessionCollector) Summary() SessionMetrics {
	c.mu.Lock()
	defer c.mu.Unlock()
	return SessionMetrics{
		StartTime:       c.startTime,
		EndTime:         time.Now(),
		TotalRequests:   c.totalRequests,
		FailedRequests:  c.failedRequests,
		TotalRetries:    c.totalRetries,
		RefreshCycles:   c.refreshCycles,
		RefreshFailures: c.refreshFailures,
		TotalLatency:    c.totalLatency,
	}
}
