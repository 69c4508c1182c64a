package config

import (
	"path/filepath"
	"testing"
)

func TestLoadSeedsDefaultsWhenFileMissing(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")

	m, err := Load(path, "/home/user/Downloads")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if m.GetDefaultDownloadDir() != "/home/user/Downloads" {
		t.Errorf("expected seeded download dir, got %q", m.GetDefaultDownloadDir())
	}
	if m.GetMaxConnections() != 4 {
		t.Errorf("expected default max_connections 4, got %d", m.GetMaxConnections())
	}
	if _, err := filepath.Glob(path); err != nil {
		t.Fatalf("glob: %v", err)
	}
}

func TestSetMaxConnectionsRejectsInvalidValue(t *testing.T) {
	dir := t.TempDir()
	m, err := Load(filepath.Join(dir, "config.json"), dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if err := m.SetMaxConnections(3); err == nil {
		t.Error("expected an error for an unsupported max_connections value")
	}
	if err := m.SetMaxConnections(16); err != nil {
		t.Errorf("expected 16 to be accepted: %v", err)
	}
	if m.GetMaxConnections() != 16 {
		t.Errorf("expected max_connections to update to 16, got %d", m.GetMaxConnections())
	}
}

func TestSettingsRoundTripAcrossReload(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")

	m, err := Load(path, dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if err := m.SetProxy(true, "proxy.internal", 8080, "alice", "hunter2"); err != nil {
		t.Fatalf("SetProxy: %v", err)
	}
	if err := m.SetCategory("Video", Category{Extensions: []string{"mp4", "mkv"}, Icon: "video", SaveDir: "Videos"}); err != nil {
		t.Fatalf("SetCategory: %v", err)
	}
	if err := m.SetQueueDescriptor("overnight", QueueDescriptor{MaxConcurrent: 2}); err != nil {
		t.Fatalf("SetQueueDescriptor: %v", err)
	}

	reloaded, err := Load(path, dir)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}

	proxy := reloaded.GetProxy()
	if proxy == nil || proxy.Host != "proxy.internal:8080" {
		t.Fatalf("expected proxy to survive reload, got %+v", proxy)
	}
	if user := proxy.User.Username(); user != "alice" {
		t.Errorf("expected proxy user alice, got %q", user)
	}

	cat, ok := reloaded.GetCategory("Video")
	if !ok || len(cat.Extensions) != 2 {
		t.Fatalf("expected Video category to survive reload, got %+v", cat)
	}

	qd, ok := reloaded.QueueDescriptor("overnight")
	if !ok || qd.MaxConcurrent != 2 {
		t.Fatalf("expected overnight queue descriptor to survive reload, got %+v", qd)
	}
}

func TestGetProxyReturnsNilWhenDisabled(t *testing.T) {
	dir := t.TempDir()
	m, err := Load(filepath.Join(dir, "config.json"), dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if p := m.GetProxy(); p != nil {
		t.Errorf("expected nil proxy by default, got %+v", p)
	}
}

func TestFactoryResetClearsCustomSettings(t *testing.T) {
	dir := t.TempDir()
	m, err := Load(filepath.Join(dir, "config.json"), dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	m.SetMaxConnections(32)
	m.SetCategory("Video", Category{Extensions: []string{"mp4"}})

	if err := m.FactoryReset(dir); err != nil {
		t.Fatalf("FactoryReset: %v", err)
	}
	if m.GetMaxConnections() != 4 {
		t.Errorf("expected max_connections reset to default 4, got %d", m.GetMaxConnections())
	}
	if _, ok := m.GetCategory("Video"); ok {
		t.Error("expected categories to be cleared by FactoryReset")
	}
}
