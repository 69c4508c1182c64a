package storage

import (
	"testing"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func setupTestStorage(t *testing.T) *Storage {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	if err := db.AutoMigrate(&DailyStat{}, &SpeedTestHistory{}); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}
	return &Storage{db: db}
}

func TestDailyStatsAccumulate(t *testing.T) {
	s := setupTestStorage(t)

	if err := s.IncrementDailyBytes(100); err != nil {
		t.Fatalf("IncrementDailyBytes: %v", err)
	}
	if err := s.IncrementDailyBytes(150); err != nil {
		t.Fatalf("IncrementDailyBytes: %v", err)
	}
	s.IncrementDailyFiles()
	s.IncrementDailyFiles()

	total, err := s.GetTotalLifetime()
	if err != nil {
		t.Fatalf("GetTotalLifetime: %v", err)
	}
	if total != 250 {
		t.Errorf("expected 250 bytes, got %d", total)
	}

	files, err := s.GetTotalFiles()
	if err != nil {
		t.Fatalf("GetTotalFiles: %v", err)
	}
	if files != 2 {
		t.Errorf("expected 2 files, got %d", files)
	}

	history, err := s.GetDailyHistory(7)
	if err != nil {
		t.Fatalf("GetDailyHistory: %v", err)
	}
	if len(history) != 7 {
		t.Fatalf("expected 7 days of history, got %d", len(history))
	}
	last := history[len(history)-1]
	if last.Bytes != 250 || last.Files != 2 {
		t.Errorf("expected today's entry to hold accumulated stats, got %+v", last)
	}
}

func TestSpeedTestHistory(t *testing.T) {
	s := setupTestStorage(t)

	if err := s.RecordSpeedTest(SpeedTestHistory{DownloadMbps: 100, UploadMbps: 20, PingMs: 12}); err != nil {
		t.Fatalf("RecordSpeedTest: %v", err)
	}
	if err := s.RecordSpeedTest(SpeedTestHistory{DownloadMbps: 200, UploadMbps: 40, PingMs: 8}); err != nil {
		t.Fatalf("RecordSpeedTest: %v", err)
	}

	rows, err := s.GetSpeedTestHistory(10)
	if err != nil {
		t.Fatalf("GetSpeedTestHistory: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	if rows[0].DownloadMbps != 200 {
		t.Errorf("expected newest-first ordering, got %+v", rows[0])
	}
}
