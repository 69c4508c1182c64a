package queue

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
)

// MainQueue is the always-present, deletion-protected default queue.
const MainQueue = "Main"

const (
	defaultGlobalConcurrency = 3
	defaultQueueConcurrency  = 3
)

// ErrQueueNotFound is returned by operations targeting an unknown queue.
var ErrQueueNotFound = errors.New("queue: not found")

// ErrMainQueueProtected is returned when a caller tries to remove "Main".
var ErrMainQueueProtected = errors.New("queue: Main cannot be removed")

// DispatchFunc is invoked once per item the Manager decides to run. It is
// called without the Manager's lock held, so it may re-enter the Manager
// (e.g. to report completion synchronously in tests).
type DispatchFunc func(item *Item)

// Manager owns the set of named queues, the global in-flight count, and
// dispatch decisions, per the scheduler contract: it tracks active queues,
// the global cap, and per-queue timers.
type Manager struct {
	mu             sync.Mutex
	logger         *slog.Logger
	queues         map[string]*queue
	globalMax      int
	globalInFlight int
	dispatch       DispatchFunc
	cronStop       func()
}

// NewManager creates a Manager with a protected "Main" queue already active.
func NewManager(logger *slog.Logger, globalMax int, dispatch DispatchFunc) *Manager {
	if globalMax <= 0 {
		globalMax = defaultGlobalConcurrency
	}
	m := &Manager{
		logger:    logger,
		queues:    make(map[string]*queue),
		globalMax: globalMax,
		dispatch:  dispatch,
	}
	m.queues[MainQueue] = newQueue(MainQueue, defaultQueueConcurrency)
	return m
}

// AddQueue creates a new named queue. It errors if the name is already taken.
func (m *Manager) AddQueue(name string, maxConcurrent int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.queues[name]; ok {
		return fmt.Errorf("queue %q already exists", name)
	}
	if maxConcurrent <= 0 {
		maxConcurrent = defaultQueueConcurrency
	}
	m.queues[name] = newQueue(name, maxConcurrent)
	return nil
}

// RemoveQueue deletes a queue. Main is deletion-protected; a queue with
// pending or in-flight work cannot be removed.
func (m *Manager) RemoveQueue(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if name == MainQueue {
		return ErrMainQueueProtected
	}
	q, ok := m.queues[name]
	if !ok {
		return ErrQueueNotFound
	}
	if len(q.pending) > 0 || q.inFlight > 0 {
		return fmt.Errorf("queue %q has active work", name)
	}
	delete(m.queues, name)
	return nil
}

// SetQueueLimit changes a queue's max_concurrent and attempts dispatch.
func (m *Manager) SetQueueLimit(name string, maxConcurrent int) error {
	m.mu.Lock()
	q, ok := m.queues[name]
	if !ok {
		m.mu.Unlock()
		return ErrQueueNotFound
	}
	if maxConcurrent > 0 {
		q.maxConcurrent = maxConcurrent
	}
	m.mu.Unlock()
	m.tryDispatch(name)
	return nil
}

// SetHostLimit caps how many items from a single host a named queue will
// run concurrently (0 clears the limit, meaning unlimited), per
// SPEC_FULL.md §4.3's host_limits descriptor field.
func (m *Manager) SetHostLimit(queueName, host string, limit int) error {
	m.mu.Lock()
	q, ok := m.queues[queueName]
	if !ok {
		m.mu.Unlock()
		return ErrQueueNotFound
	}
	if limit <= 0 {
		delete(q.hostLimits, host)
	} else {
		q.hostLimits[host] = limit
	}
	m.mu.Unlock()
	m.tryDispatch(queueName)
	return nil
}

// SetGlobalLimit changes the process-wide concurrency cap.
func (m *Manager) SetGlobalLimit(max int) {
	m.mu.Lock()
	if max > 0 {
		m.globalMax = max
	}
	m.mu.Unlock()
	for name := range m.queues {
		m.tryDispatch(name)
	}
}

// Enqueue adds an item to its queue's pending pool. A zero QueuePosition is
// assigned the next available sequence number. Dispatch is attempted
// immediately if the queue is active.
func (m *Manager) Enqueue(item *Item) error {
	m.mu.Lock()
	q, ok := m.queues[item.QueueName]
	if !ok {
		m.mu.Unlock()
		return ErrQueueNotFound
	}
	if item.QueuePosition == 0 {
		item.QueuePosition = q.nextPosition()
	}
	item.Status = StatusPending
	q.push(item)
	m.mu.Unlock()

	m.tryDispatch(item.QueueName)
	return nil
}

// StartQueue marks a queue active and attempts to dispatch its pending work.
func (m *Manager) StartQueue(name string) error {
	m.mu.Lock()
	q, ok := m.queues[name]
	if !ok {
		m.mu.Unlock()
		return ErrQueueNotFound
	}
	q.active = true
	m.mu.Unlock()

	m.tryDispatch(name)
	return nil
}

// StopQueue marks a queue inactive. In-flight items are left to finish.
func (m *Manager) StopQueue(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	q, ok := m.queues[name]
	if !ok {
		return ErrQueueNotFound
	}
	q.active = false
	return nil
}

// OnItemComplete decrements in-flight counters and re-invokes dispatch for
// the item's queue if it's still active.
func (m *Manager) OnItemComplete(item *Item) {
	m.mu.Lock()
	q, ok := m.queues[item.QueueName]
	if ok {
		if q.inFlight > 0 {
			q.inFlight--
		}
		q.releaseHost(item.Host)
	}
	if m.globalInFlight > 0 {
		m.globalInFlight--
	}
	m.mu.Unlock()

	if ok {
		m.tryDispatch(item.QueueName)
	}
}

// tryDispatch dispatches as many eligible items from name's pending pool as
// the per-queue and global caps allow, per the scheduler contract's
// min(queue.max_concurrent - queue.in_flight, global.max_concurrent -
// global.in_flight) rule.
func (m *Manager) tryDispatch(name string) {
	m.mu.Lock()
	q, ok := m.queues[name]
	if !ok || !q.active {
		m.mu.Unlock()
		return
	}
	queueSlots := q.maxConcurrent - q.inFlight
	globalSlots := m.globalMax - m.globalInFlight
	slots := queueSlots
	if globalSlots < slots {
		slots = globalSlots
	}
	if slots <= 0 {
		m.mu.Unlock()
		return
	}

	items := q.takeEligible(slots)
	for _, item := range items {
		item.Status = StatusDownloading
		q.inFlight++
		m.globalInFlight++
	}
	m.mu.Unlock()

	for _, item := range items {
		if m.dispatch != nil {
			m.dispatch(item)
		}
	}
}

// RemovePending drops an item from its queue's pending pool without
// affecting in-flight or global counters. It reports whether the item was
// found pending (an in-flight or already-dispatched item is not removed
// here; callers cancel those through the downloader instead).
func (m *Manager) RemovePending(queueName, id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	q, ok := m.queues[queueName]
	if !ok {
		return false
	}
	return q.remove(id) != nil
}

// Reorder moves an item within its queue's pending pool.
func (m *Manager) Reorder(queueName, itemID, direction string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	q, ok := m.queues[queueName]
	if !ok {
		return false
	}
	switch direction {
	case "first":
		return q.moveToFirst(itemID)
	case "prev":
		return q.moveToPrev(itemID)
	case "next":
		return q.moveToNext(itemID)
	case "last":
		return q.moveToLast(itemID)
	default:
		return false
	}
}

// Snapshot returns the in-flight and pending counts for name.
func (m *Manager) Snapshot(name string) (inFlight, pending int, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	q, ok := m.queues[name]
	if !ok {
		return 0, 0, ErrQueueNotFound
	}
	return q.inFlight, len(q.pending), nil
}

// GlobalInFlight returns the total number of items currently dispatched
// across all queues.
func (m *Manager) GlobalInFlight() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.globalInFlight
}
