package pipeline

import (
	"sync"
	"time"

	"go.uber.org/atomic"
	"gonum.org/v1/gonum/stat"
)

// intervalWindow is the number of recent send intervals kept for the cadence estimate
const intervalWindow = 256

// Stats is a snapshot of a pipeline
type Stats struct {
	Episode    string
	State      State
	Generated  uint64
	Sent       uint64
	Failed     uint64
	QueueDepth int
	LastError  error

	// Measured time between two consecutive successful sends
	IntervalMean   time.Duration
	IntervalStdDev time.Duration
}

type counters struct {
	generated atomic.Uint64
	sent      atomic.Uint64
	failed    atomic.Uint64
	lastErr   atomic.Error

	// failure streak, only touched by the delivery goroutine
	failing bool

	mu        sync.Mutex
	lastSend  time.Time
	intervals []float64
	next      int
}

func newCounters() *counters {
	return &counters{intervals: make([]float64, 0, intervalWindow)}
}

func (c *counters) recordSent(at time.Time) {
	c.sent.Inc()

	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.lastSend.IsZero() {
		d := at.Sub(c.lastSend).Seconds()
		if len(c.intervals) < intervalWindow {
			c.intervals = append(c.intervals, d)
		} else {
			c.intervals[c.next] = d
			c.next = (c.next + 1) % intervalWindow
		}
	}
	c.lastSend = at
}

func (c *counters) recordFailure(err error) {
	c.failed.Inc()
	c.lastErr.Store(err)
}

func (c *counters) cadence() (mean, stddev time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch len(c.intervals) {
	case 0:
		return 0, 0
	case 1:
		return seconds(c.intervals[0]), 0
	}

	m, s := stat.MeanStdDev(c.intervals, nil)
	return seconds(m), seconds(s)
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}
