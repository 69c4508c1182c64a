package security

import (
	"log/slog"
	"os"
	"testing"
)

func TestAuditLoggerWritesAndReadsBack(t *testing.T) {
	dir := t.TempDir()
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	audit := NewAuditLogger(logger, dir)
	defer audit.Close()

	audit.Log("127.0.0.1", "test-agent", "GET /health", 200, "")
	audit.Log("127.0.0.1", "test-agent", "POST /add_download", 400, "invalid url")

	entries := audit.GetRecentLogs(10)
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	// Most recent first.
	if entries[0].Action != "POST /add_download" || entries[0].Status != 400 {
		t.Errorf("unexpected most-recent entry: %+v", entries[0])
	}
	if entries[0].ID == "" {
		t.Errorf("expected a non-empty entry id")
	}
}

func TestAuditLoggerGetRecentLogsRespectsLimit(t *testing.T) {
	dir := t.TempDir()
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	audit := NewAuditLogger(logger, dir)
	defer audit.Close()

	for i := 0; i < 5; i++ {
		audit.Log("127.0.0.1", "test-agent", "GET /health", 200, "")
	}

	entries := audit.GetRecentLogs(2)
	if len(entries) != 2 {
		t.Fatalf("expected GetRecentLogs(2) to cap at 2 entries, got %d", len(entries))
	}
}
