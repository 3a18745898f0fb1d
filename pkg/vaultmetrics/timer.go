package vaultmetrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Timer measures elapsed time for a single operation and files it into
// a histogram on completion, mirroring warren's pkg/metrics.Timer. The
// caller passes the histogram at observe time, and only a
// prometheus.Histogram is accepted.
type Timer struct {
	start time.Time
}

// NewTimer starts a timer running now.
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// ObserveDuration records the elapsed time into histogram. A nil
// histogram (an operation with no dedicated latency metric) is a no-op.
func (t *Timer) ObserveDuration(histogram prometheus.Histogram) {
	if histogram == nil {
		return
	}
	histogram.Observe(time.Since(t.start).Seconds())
}

// Duration returns the elapsed time since the timer started.
func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}
