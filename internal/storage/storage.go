package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Storage wraps a GORM/SQLite handle scoped to analytics tables.
type Storage struct {
	db *gorm.DB
}

// NewStorage opens (creating if needed) the analytics database under dataDir.
func NewStorage(dataDir string) (*Storage, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	dbPath := filepath.Join(dataDir, "stats.db")

	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open stats db: %w", err)
	}
	db.Exec("PRAGMA journal_mode=WAL;")

	if err := db.AutoMigrate(&DailyStat{}, &SpeedTestHistory{}); err != nil {
		return nil, fmt.Errorf("migrate stats db: %w", err)
	}

	return &Storage{db: db}, nil
}

// Close releases the underlying database handle.
func (s *Storage) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Checkpoint forces a WAL checkpoint, used before a clean daemon shutdown.
func (s *Storage) Checkpoint() error {
	return s.db.Exec("PRAGMA wal_checkpoint(TRUNCATE);").Error
}

func today() string {
	return time.Now().Format("2006-01-02")
}

// IncrementDailyBytes adds delta bytes to today's counter, upserting the row.
func (s *Storage) IncrementDailyBytes(delta int64) error {
	return s.upsertDaily(func(d *DailyStat) { d.Bytes += delta })
}

// IncrementDailyFiles adds one to today's completed-file counter.
func (s *Storage) IncrementDailyFiles() error {
	return s.upsertDaily(func(d *DailyStat) { d.Files++ })
}

func (s *Storage) upsertDaily(mutate func(*DailyStat)) error {
	date := today()
	var row DailyStat
	err := s.db.First(&row, "date = ?", date).Error
	if err != nil {
		if err != gorm.ErrRecordNotFound {
			return err
		}
		row = DailyStat{Date: date}
	}
	mutate(&row)
	return s.db.Save(&row).Error
}

// GetTotalLifetime sums bytes across every recorded day.
func (s *Storage) GetTotalLifetime() (int64, error) {
	var total int64
	err := s.db.Model(&DailyStat{}).Select("COALESCE(SUM(bytes), 0)").Scan(&total).Error
	return total, err
}

// GetTotalFiles sums completed-file counts across every recorded day.
func (s *Storage) GetTotalFiles() (int64, error) {
	var total int64
	err := s.db.Model(&DailyStat{}).Select("COALESCE(SUM(files), 0)").Scan(&total).Error
	return total, err
}

// GetDailyHistory returns the last `days` daily stats, oldest first, filling
// gaps with zeroed entries for days that had no activity.
func (s *Storage) GetDailyHistory(days int) ([]DailyStat, error) {
	var rows []DailyStat
	if err := s.db.Find(&rows).Error; err != nil {
		return nil, err
	}
	byDate := make(map[string]DailyStat, len(rows))
	for _, r := range rows {
		byDate[r.Date] = r
	}

	now := time.Now()
	out := make([]DailyStat, 0, days)
	for i := days - 1; i >= 0; i-- {
		date := now.AddDate(0, 0, -i).Format("2006-01-02")
		if r, ok := byDate[date]; ok {
			out = append(out, r)
		} else {
			out = append(out, DailyStat{Date: date})
		}
	}
	return out, nil
}

// RecordSpeedTest appends a speed-test result to history.
func (s *Storage) RecordSpeedTest(r SpeedTestHistory) error {
	r.Timestamp = time.Now().Format(time.RFC3339)
	return s.db.Create(&r).Error
}

// GetSpeedTestHistory returns the most recent speed-test results, newest
// first, capped at limit.
func (s *Storage) GetSpeedTestHistory(limit int) ([]SpeedTestHistory, error) {
	var rows []SpeedTestHistory
	err := s.db.Order("id DESC").Limit(limit).Find(&rows).Error
	return rows, err
}
