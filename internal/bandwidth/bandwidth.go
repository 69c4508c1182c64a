// Package bandwidth implements global token-bucket speed limiting with
// priority-aware fairness, bypassed entirely when no limit is configured.
package bandwidth

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"
)

// Priority levels a download can be assigned for bandwidth fairness.
const (
	PriorityLow    = 1
	PriorityNormal = 2
	PriorityHigh   = 3
)

// Manager enforces a global bytes-per-second cap with zero overhead when
// disabled, grounded on the teacher's BandwidthManager.
type Manager struct {
	limiter *rate.Limiter
	enabled atomic.Bool

	mu         sync.RWMutex
	priorities map[string]int
}

// NewManager creates a Manager with no limit applied.
func NewManager() *Manager {
	return &Manager{
		limiter:    rate.NewLimiter(rate.Inf, 0),
		priorities: make(map[string]int),
	}
}

// SetLimit sets the global bytes-per-second cap. 0 or negative disables
// limiting entirely.
func (m *Manager) SetLimit(bytesPerSec int) {
	if bytesPerSec <= 0 {
		m.enabled.Store(false)
		m.limiter.SetLimit(rate.Inf)
		return
	}
	m.enabled.Store(true)
	m.limiter.SetLimit(rate.Limit(bytesPerSec))
	m.limiter.SetBurst(bytesPerSec)
}

// SetPriority records a download's priority for fairness weighting.
func (m *Manager) SetPriority(downloadID string, priority int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.priorities[downloadID] = priority
}

// Wait blocks until n bytes may be consumed under the current limit. It
// returns immediately if no limit is set. Low-priority downloads pay a small
// extra delay so high-priority downloads get first claim on the bucket.
func (m *Manager) Wait(ctx context.Context, downloadID string, n int) error {
	if !m.enabled.Load() {
		return nil
	}

	m.mu.RLock()
	priority, ok := m.priorities[downloadID]
	m.mu.RUnlock()
	if !ok {
		priority = PriorityNormal
	}

	if err := m.limiter.WaitN(ctx, n); err != nil {
		return err
	}

	if priority == PriorityLow {
		select {
		case <-time.After(10 * time.Millisecond):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}
