package downloader

import (
	"sync"
	"time"
)

// congestionController scales how many of a download's pre-partitioned
// segments run concurrently, using an AIMD scheme keyed by host: it does
// not change the segment partition itself (worker_count stays the single
// knob spec.md ties segment count to), only how fast the fixed pool of
// segment workers is let loose.
type congestionController struct {
	mu         sync.Mutex
	hosts      map[string]*hostStats
	minWorkers int
	maxWorkers int
}

type hostStats struct {
	smoothedRTT  time.Duration
	concurrency  int
	successCount int
	errorCount   int
}

func newCongestionController(min, max int) *congestionController {
	return &congestionController{
		hosts:      make(map[string]*hostStats),
		minWorkers: min,
		maxWorkers: max,
	}
}

// recordOutcome feeds one segment fetch's latency/error back into the
// controller's moving average for that host.
func (c *congestionController) recordOutcome(host string, latency time.Duration, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	stats, ok := c.hosts[host]
	if !ok {
		stats = &hostStats{concurrency: c.minWorkers, smoothedRTT: latency}
		c.hosts[host] = stats
	}

	const alpha = 0.125
	stats.smoothedRTT = time.Duration((1-alpha)*float64(stats.smoothedRTT) + alpha*float64(latency))

	if err != nil {
		stats.errorCount++
	} else {
		stats.successCount++
	}
}

// idealConcurrency returns the current target worker count for host: slow
// start from minWorkers, multiplicative decrease on errors, additive
// increase on sustained success, capped at maxWorkers (maxSegmentWorkers for
// the Downloader; runSegments further caps the result at the download's
// pending segment count).
func (c *congestionController) idealConcurrency(host string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	stats, ok := c.hosts[host]
	if !ok {
		return c.minWorkers
	}

	if stats.errorCount > 0 {
		stats.concurrency = maxInt(1, stats.concurrency/2)
		stats.errorCount = 0
		return stats.concurrency
	}

	if stats.successCount > stats.concurrency {
		if stats.concurrency < c.maxWorkers {
			stats.concurrency++
		}
		stats.successCount = 0
	}

	return stats.concurrency
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
