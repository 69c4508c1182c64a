// Package stats aggregates download analytics (daily/lifetime byte counts,
// disk usage) and categorizes completed files into their display folders.
package stats

import (
	"download-engine/internal/storage"

	"github.com/shirou/gopsutil/v3/disk"
)

// DiskUsage mirrors gopsutil's disk.Usage output in the units the UI wants.
type DiskUsage struct {
	UsedGB  float64 `json:"used_gb"`
	FreeGB  float64 `json:"free_gb"`
	TotalGB float64 `json:"total_gb"`
	Percent float64 `json:"percent"`
}

// Snapshot is the full analytics view: lifetime totals, recent daily
// history, and disk usage for the configured download directory.
type Snapshot struct {
	TotalBytes   int64            `json:"total_bytes"`
	TotalFiles   int64            `json:"total_files"`
	DailyHistory []storage.DailyStat `json:"daily_history"`
	Disk         DiskUsage        `json:"disk_usage"`
}

// Manager tracks download throughput and exposes analytics snapshots.
type Manager struct {
	store *storage.Storage
}

// NewManager wraps the analytics store.
func NewManager(store *storage.Storage) *Manager {
	return &Manager{store: store}
}

// TrackBytes records bytes observed for a completed (or in-progress,
// checkpointed) download against today's counter.
func (m *Manager) TrackBytes(n int64) {
	_ = m.store.IncrementDailyBytes(n)
}

// TrackFileCompleted increments the completed-file counter.
func (m *Manager) TrackFileCompleted() {
	_ = m.store.IncrementDailyFiles()
}

// DiskUsageFor reports free/used/total space for the volume backing dir.
func DiskUsageFor(dir string) DiskUsage {
	usage, err := disk.Usage(dir)
	if err != nil {
		return DiskUsage{}
	}
	const gb = 1024 * 1024 * 1024
	return DiskUsage{
		UsedGB:  float64(usage.Used) / gb,
		FreeGB:  float64(usage.Free) / gb,
		TotalGB: float64(usage.Total) / gb,
		Percent: usage.UsedPercent,
	}
}

// Snapshot assembles the full analytics view for downloadDir.
func (m *Manager) Snapshot(downloadDir string) Snapshot {
	total, _ := m.store.GetTotalLifetime()
	files, _ := m.store.GetTotalFiles()
	daily, _ := m.store.GetDailyHistory(7)

	return Snapshot{
		TotalBytes:   total,
		TotalFiles:   files,
		DailyHistory: daily,
		Disk:         DiskUsageFor(downloadDir),
	}
}
