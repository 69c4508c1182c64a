// Package registry is the single in-process owner of all DownloadItems: the
// catalog that the ingress, the queue scheduler, and the downloader all read
// and mutate through, per spec.md §4.6.
package registry

import (
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"time"

	"download-engine/internal/fingerprint"
	"download-engine/internal/queue"
)

// hostOf extracts the URL host for per-host concurrency limiting; an
// unparseable URL yields an empty host, which queue.hostAtCapacity treats
// as unlimited.
func hostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return u.Hostname()
}

// StartFunc is invoked once an item is granted a concurrency slot by the
// queue scheduler. Implementations launch internal/downloader.Download (or
// internal/streaming's delegate, for streaming URLs) in their own goroutine
// and call Registry.UpdateStatus / Registry.Complete when the run ends.
type StartFunc func(item *DownloadItem)

// DownloadItem is the registry's record for one download, per spec.md §3's
// field list. The embedded *queue.Item is the same pointer the scheduler
// holds in its pending pools, so a status change made here is visible to the
// scheduler immediately without a second round trip.
type DownloadItem struct {
	*queue.Item

	URL             string            `json:"url"`
	TargetFilename  string            `json:"target_filename"`
	TargetDirectory string            `json:"target_directory"`
	SizeKnown       bool              `json:"size_known"`
	BytesObserved   int64             `json:"bytes_observed"`
	TotalSize       int64             `json:"total_size"`
	LastError       string            `json:"last_error,omitempty"`
	SelectedFormat  string            `json:"selected_format,omitempty"`
	StreamType      string            `json:"stream_type,omitempty"`
	AuthHeaders     map[string]string `json:"auth,omitempty"`
	Proxy           string            `json:"proxy,omitempty"`
}

// AddOptions carries the optional fields a caller may set on first Add.
type AddOptions struct {
	Filename       string
	QueueName      string
	SelectedFormat string
	StreamType     string
	AuthHeaders    map[string]string
	Proxy          string
}

// Registry owns the DownloadItem catalog and the queue.Manager that decides
// when each item is allowed to run.
type Registry struct {
	mu        sync.RWMutex
	logger    *slog.Logger
	items     map[string]*DownloadItem
	manager   *queue.Manager
	start     StartFunc
	persister *persister
}

// New constructs a Registry. globalMax is the process-wide concurrency cap
// (spec.md §4.3); historyPath is where Persist/Restore read and write the
// JSON catalog snapshot (spec.md §4.6's "State Store" coupling).
func New(logger *slog.Logger, globalMax int, historyPath string, start StartFunc) *Registry {
	r := &Registry{
		logger: logger,
		items:  make(map[string]*DownloadItem),
		start:  start,
	}
	r.manager = queue.NewManager(logger, globalMax, r.dispatch)
	r.persister = newPersister(historyPath, r.snapshotLocked)
	return r
}

// Manager exposes the underlying queue.Manager so callers can add queues,
// set schedules, and start the cron-driven scheduler.
func (r *Registry) Manager() *queue.Manager { return r.manager }

// dispatch is the queue.Manager's DispatchFunc: it translates a bare
// *queue.Item back into the full *DownloadItem and invokes the start
// callback outside any lock.
func (r *Registry) dispatch(qi *queue.Item) {
	r.mu.RLock()
	di, ok := r.items[qi.ID]
	r.mu.RUnlock()
	if !ok || r.start == nil {
		return
	}
	r.start(di)
}

// Add registers a new download, or, if the URL was already added, returns
// the existing item and updates its mutable fields without resetting
// progress, per spec.md §4.6's ID-stability contract.
func (r *Registry) Add(rawURL string, opts AddOptions) (*DownloadItem, error) {
	id := fingerprint.ShortID(rawURL)

	r.mu.Lock()
	if existing, ok := r.items[id]; ok {
		if opts.Filename != "" {
			existing.TargetFilename = opts.Filename
		}
		if opts.QueueName != "" {
			existing.QueueName = opts.QueueName
		}
		if opts.SelectedFormat != "" {
			existing.SelectedFormat = opts.SelectedFormat
		}
		r.mu.Unlock()
		r.persister.touch()
		return existing, nil
	}

	queueName := opts.QueueName
	if queueName == "" {
		queueName = queue.MainQueue
	}

	item := &DownloadItem{
		Item: &queue.Item{
			ID:        id,
			QueueName: queueName,
			CreatedAt: time.Now(),
			Status:    queue.StatusPending,
			Host:      hostOf(rawURL),
		},
		URL:            rawURL,
		TargetFilename: opts.Filename,
		SelectedFormat: opts.SelectedFormat,
		StreamType:     opts.StreamType,
		AuthHeaders:    opts.AuthHeaders,
		Proxy:          opts.Proxy,
	}
	r.items[id] = item
	r.mu.Unlock()

	if err := r.manager.Enqueue(item.Item); err != nil {
		r.mu.Lock()
		delete(r.items, id)
		r.mu.Unlock()
		return nil, fmt.Errorf("enqueue: %w", err)
	}
	r.persister.touch()
	return item, nil
}

// Get returns the item with id, or (nil, false) if none exists.
func (r *Registry) Get(id string) (*DownloadItem, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	di, ok := r.items[id]
	return di, ok
}

// Remove deletes an item from the catalog. It does not interrupt an
// in-flight download; callers should cancel that separately before removing.
func (r *Registry) Remove(id string) error {
	r.mu.Lock()
	di, ok := r.items[id]
	if !ok {
		r.mu.Unlock()
		return fmt.Errorf("registry: item %q not found", id)
	}
	delete(r.items, id)
	r.mu.Unlock()

	r.manager.RemovePending(di.QueueName, id) // no-op if already in flight or already dispatched
	r.persister.touch()
	return nil
}

// UpdateStatus sets an item's status and, for failures, its last_error text.
func (r *Registry) UpdateStatus(id string, status queue.Status, err error) {
	r.mu.Lock()
	di, ok := r.items[id]
	if ok {
		di.Status = status
		if err != nil {
			di.LastError = err.Error()
		} else if status == queue.StatusDownloading {
			di.LastError = ""
		}
	}
	r.mu.Unlock()
	if !ok {
		return
	}
	r.persister.touch()
}

// Complete marks an item Completed or Failed and frees its concurrency slot
// so the scheduler can dispatch the next eligible item.
func (r *Registry) Complete(id string, success bool, err error) {
	if success {
		r.UpdateStatus(id, queue.StatusCompleted, nil)
	} else {
		r.UpdateStatus(id, queue.StatusFailed, err)
	}
	r.mu.RLock()
	di, ok := r.items[id]
	r.mu.RUnlock()
	if ok {
		r.manager.OnItemComplete(di.Item)
	}
}

// OnProgress updates an item's observed/total byte counters. It does not
// persist synchronously; progress ticks are too frequent for that.
func (r *Registry) OnProgress(id string, bytesObserved, totalSize int64) {
	r.mu.Lock()
	if di, ok := r.items[id]; ok {
		di.BytesObserved = bytesObserved
		if totalSize > 0 {
			di.TotalSize = totalSize
			di.SizeKnown = true
		}
	}
	r.mu.Unlock()
}

// List returns every item in the catalog, in no particular order.
func (r *Registry) List() []*DownloadItem {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*DownloadItem, 0, len(r.items))
	for _, di := range r.items {
		out = append(out, di)
	}
	return out
}

// ListBy returns every item for which predicate returns true.
func (r *Registry) ListBy(predicate func(*DownloadItem) bool) []*DownloadItem {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*DownloadItem
	for _, di := range r.items {
		if predicate(di) {
			out = append(out, di)
		}
	}
	return out
}
