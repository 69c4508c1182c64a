// Package config implements typed accessors over the engine's config.json,
// the third leg of spec.md §6's persisted-state triad (alongside per-download
// progress files and the registry's history.json). It replaces the teacher's
// GORM/SQLite-backed ConfigManager with a single atomically-written JSON
// document, per spec.md §4.2/§6's explicit on-disk contract (see DESIGN.md's
// "Persistence split").
package config

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"sync"

	"download-engine/internal/queue"
)

// validConnectionCounts are the only values spec.md §6 allows for
// max_connections.
var validConnectionCounts = map[int]bool{1: true, 2: true, 4: true, 8: true, 16: true, 32: true}

// Category maps a display name to the extensions, icon, and save directory
// spec.md §6's categories map names, recovered from
// original_source/src/core/config.py's categorization settings.
type Category struct {
	Extensions []string `json:"extensions"`
	Icon       string   `json:"icon"`
	SaveDir    string   `json:"save_dir"`
}

// QueueDescriptor is the persisted shape of one named queue: its
// concurrency cap and optional time-window schedule, loaded back into
// internal/queue.Manager at startup.
type QueueDescriptor struct {
	MaxConcurrent int            `json:"max_concurrent"`
	Schedule      queue.Schedule `json:"schedule"`
	HostLimits    map[string]int `json:"host_limits,omitempty"`
}

// Settings is the full config.json document. Every field has a documented
// default applied by Default() so a missing or partial file still produces
// a usable configuration.
type Settings struct {
	DefaultDownloadDir    string                     `json:"default_download_dir"`
	MaxConnections        int                        `json:"max_connections"`
	MaxConcurrentDownload int                        `json:"max_concurrent_downloads"`
	ProxyEnabled          bool                       `json:"proxy_enabled"`
	ProxyHost             string                     `json:"proxy_host"`
	ProxyPort             int                        `json:"proxy_port"`
	ProxyUser             string                     `json:"proxy_user"`
	ProxyPass             string                     `json:"proxy_pass"`
	Language              string                     `json:"language"`
	CloseToTray           bool                       `json:"close_to_tray"`
	LaunchStartup         bool                       `json:"launch_startup"`
	ShowCompleteDialog    bool                       `json:"show_complete_dialog"`
	Geometry              string                     `json:"geometry"`
	UserAgent             string                     `json:"user_agent"`
	EnableIntegrityCheck  bool                       `json:"enable_integrity_check"`
	Categories            map[string]Category        `json:"categories"`
	Queues                map[string]QueueDescriptor `json:"queues"`
}

// Default returns the out-of-the-box Settings, matching the teacher's
// getter defaults (integrity checking on, a generated/placeholder token
// surface replaced here by the ingress's loopback-only trust model).
func Default(downloadsDir string) Settings {
	return Settings{
		DefaultDownloadDir:    downloadsDir,
		MaxConnections:        4,
		MaxConcurrentDownload: 3,
		Language:              "en",
		ShowCompleteDialog:    true,
		EnableIntegrityCheck:  true,
		Categories:            map[string]Category{},
		Queues:                map[string]QueueDescriptor{},
	}
}

// Manager owns one Settings document and its on-disk path, guarding
// concurrent reads/writes the way internal/state.Store guards per-download
// progress files.
type Manager struct {
	mu   sync.RWMutex
	path string
	s    Settings
}

// Load reads path, or seeds it with Default(downloadsDir) if absent.
func Load(path, downloadsDir string) (*Manager, error) {
	m := &Manager{path: path, s: Default(downloadsDir)}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return m, m.save()
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	loaded := Default(downloadsDir)
	if err := json.Unmarshal(data, &loaded); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if loaded.Categories == nil {
		loaded.Categories = map[string]Category{}
	}
	if loaded.Queues == nil {
		loaded.Queues = map[string]QueueDescriptor{}
	}
	m.s = loaded
	return m, nil
}

func (m *Manager) save() error {
	data, err := json.MarshalIndent(m.s, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(m.path), 0o755); err != nil {
		return fmt.Errorf("mkdir config dir: %w", err)
	}
	tmp := m.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return os.Rename(tmp, m.path)
}

// Snapshot returns a copy of the current settings.
func (m *Manager) Snapshot() Settings {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.s
}

func (m *Manager) GetDefaultDownloadDir() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.s.DefaultDownloadDir
}

func (m *Manager) SetDefaultDownloadDir(dir string) error {
	m.mu.Lock()
	m.s.DefaultDownloadDir = dir
	m.mu.Unlock()
	return m.persist()
}

func (m *Manager) GetMaxConnections() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.s.MaxConnections
}

// SetMaxConnections rejects any value outside spec.md §6's allowed set.
func (m *Manager) SetMaxConnections(n int) error {
	if !validConnectionCounts[n] {
		return fmt.Errorf("config: max_connections must be one of 1,2,4,8,16,32, got %d", n)
	}
	m.mu.Lock()
	m.s.MaxConnections = n
	m.mu.Unlock()
	return m.persist()
}

func (m *Manager) GetMaxConcurrentDownloads() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.s.MaxConcurrentDownload
}

func (m *Manager) SetMaxConcurrentDownloads(n int) error {
	if n <= 0 {
		return fmt.Errorf("config: max_concurrent_downloads must be positive")
	}
	m.mu.Lock()
	m.s.MaxConcurrentDownload = n
	m.mu.Unlock()
	return m.persist()
}

// GetProxy returns the configured proxy as a *url.URL, or nil if proxying is
// disabled or unset, ready to pass as internal/downloader.Options.Proxy.
func (m *Manager) GetProxy() *url.URL {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if !m.s.ProxyEnabled || m.s.ProxyHost == "" {
		return nil
	}
	u := &url.URL{
		Scheme: "http",
		Host:   fmt.Sprintf("%s:%d", m.s.ProxyHost, m.s.ProxyPort),
	}
	if m.s.ProxyUser != "" {
		u.User = url.UserPassword(m.s.ProxyUser, m.s.ProxyPass)
	}
	return u
}

func (m *Manager) SetProxy(enabled bool, host string, port int, user, pass string) error {
	m.mu.Lock()
	m.s.ProxyEnabled = enabled
	m.s.ProxyHost = host
	m.s.ProxyPort = port
	m.s.ProxyUser = user
	m.s.ProxyPass = pass
	m.mu.Unlock()
	return m.persist()
}

func (m *Manager) GetUserAgent() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.s.UserAgent
}

func (m *Manager) SetUserAgent(ua string) error {
	m.mu.Lock()
	m.s.UserAgent = ua
	m.mu.Unlock()
	return m.persist()
}

func (m *Manager) GetEnableIntegrityCheck() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.s.EnableIntegrityCheck
}

func (m *Manager) SetEnableIntegrityCheck(enabled bool) error {
	m.mu.Lock()
	m.s.EnableIntegrityCheck = enabled
	m.mu.Unlock()
	return m.persist()
}

// GetCategory returns the category descriptor for name, and whether it
// exists.
func (m *Manager) GetCategory(name string) (Category, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.s.Categories[name]
	return c, ok
}

func (m *Manager) SetCategory(name string, c Category) error {
	m.mu.Lock()
	if m.s.Categories == nil {
		m.s.Categories = map[string]Category{}
	}
	m.s.Categories[name] = c
	m.mu.Unlock()
	return m.persist()
}

// Categories returns a copy of the full category map.
func (m *Manager) Categories() map[string]Category {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]Category, len(m.s.Categories))
	for k, v := range m.s.Categories {
		out[k] = v
	}
	return out
}

// QueueDescriptor returns the persisted descriptor for a named queue.
func (m *Manager) QueueDescriptor(name string) (QueueDescriptor, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	qd, ok := m.s.Queues[name]
	return qd, ok
}

func (m *Manager) SetQueueDescriptor(name string, qd QueueDescriptor) error {
	m.mu.Lock()
	if m.s.Queues == nil {
		m.s.Queues = map[string]QueueDescriptor{}
	}
	m.s.Queues[name] = qd
	m.mu.Unlock()
	return m.persist()
}

// Queues returns a copy of every persisted queue descriptor, keyed by name.
func (m *Manager) Queues() map[string]QueueDescriptor {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]QueueDescriptor, len(m.s.Queues))
	for k, v := range m.s.Queues {
		out[k] = v
	}
	return out
}

func (m *Manager) persist() error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.save()
}

// FactoryReset restores every setting to its default, preserving only the
// download directory the caller supplies (mirroring the teacher's
// FactoryReset, which left nothing a fresh install wouldn't also start
// with).
func (m *Manager) FactoryReset(downloadsDir string) error {
	m.mu.Lock()
	m.s = Default(downloadsDir)
	m.mu.Unlock()
	return m.persist()
}
