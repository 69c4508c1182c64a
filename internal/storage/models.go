// Package storage is the engine's analytics-only persistence layer: daily
// byte/file counters and speed-test history, backed by GORM over a pure-Go
// SQLite driver. The registry, per-download state, and configuration are
// plain JSON files (see internal/registry, internal/state, internal/config)
// per spec.md's explicit on-disk contract — this package never touches them.
package storage

// DailyStat tracks daily download totals for the analytics view.
type DailyStat struct {
	Date  string `gorm:"primaryKey" json:"date"` // "YYYY-MM-DD"
	Bytes int64  `gorm:"default:0" json:"bytes"`
	Files int64  `gorm:"default:0" json:"files"`
}

// TableName names the daily_stats table.
func (DailyStat) TableName() string { return "daily_stats" }

// SpeedTestHistory records past speed-test runs (internal/netinfo).
type SpeedTestHistory struct {
	ID             uint    `gorm:"primaryKey" json:"id"`
	DownloadMbps   float64 `json:"download_mbps"`
	UploadMbps     float64 `json:"upload_mbps"`
	PingMs         int64   `json:"ping_ms"`
	JitterMs       int64   `json:"jitter_ms"`
	ISP            string  `json:"isp"`
	ServerName     string  `json:"server_name"`
	ServerLocation string  `json:"server_location"`
	Timestamp      string  `json:"timestamp"`
}

// TableName names the speed_test_history table.
func (SpeedTestHistory) TableName() string { return "speed_test_history" }
