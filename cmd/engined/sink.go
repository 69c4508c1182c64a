package main

import (
	"context"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"download-engine/internal/registry"
	"download-engine/internal/stats"
)

// downloadSink implements both internal/downloader.ProgressSink and
// internal/streaming.ProgressSink (the two are structurally identical),
// translating one download's lifecycle into registry updates, byte-counter
// accounting, and post-completion file organization/scanning.
type downloadSink struct {
	daemon *daemon
	item   *registry.DownloadItem

	mu        sync.Mutex
	lastBytes int64
}

func (s *downloadSink) OnProgress(bytesObserved, totalSize int64) {
	s.daemon.reg.OnProgress(s.item.ID, bytesObserved, totalSize)

	s.mu.Lock()
	delta := bytesObserved - s.lastBytes
	s.lastBytes = bytesObserved
	s.mu.Unlock()
	if delta > 0 {
		s.daemon.statsMgr.TrackBytes(delta)
	}
}

func (s *downloadSink) OnStatus(status string) {
	if renamed, ok := strings.CutPrefix(status, "renamed:"); ok {
		s.item.TargetFilename = filepath.Base(renamed)
		return
	}
	s.daemon.log.Debug("download status", "id", s.item.ID, "status", status)
}

// OnDone is called by the downloader/delegate itself, but finish (below)
// carries the extra context only the dispatching goroutine has, so OnDone
// here only logs; finish does the registry/organize/scan work.
func (s *downloadSink) OnDone(success bool, err error) {
	if !success {
		s.daemon.log.Warn("download finished with error", "id", s.item.ID, "error", err)
	}
}

// finish runs once Download/Run returns. On success it organizes the
// finished file into its configured category directory and, if a scanner is
// available, scans it before marking the item Completed.
func (s *downloadSink) finish(success bool, err error) {
	if success {
		s.organizeAndScan()
		s.daemon.statsMgr.TrackFileCompleted()
	}
	s.daemon.reg.Complete(s.item.ID, success, err)
}

func (s *downloadSink) organizeAndScan() {
	if s.item.TargetFilename == "" {
		return
	}
	baseDir := s.daemon.cfg.GetDefaultDownloadDir()
	currentPath := filepath.Join(baseDir, s.item.TargetFilename)

	organized, err := stats.OrganizeForConfig(baseDir, currentPath, s.item.TargetFilename, s.daemon.cfg.Categories())
	if err != nil {
		s.daemon.log.Warn("organizing completed file failed", "id", s.item.ID, "error", err)
		organized = currentPath
	}

	if s.daemon.scanner == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	result, err := s.daemon.scanner.ScanFile(ctx, s.item.ID, organized)

	status := 200
	details := result.Message
	if err != nil {
		status = 409
		if details == "" {
			details = err.Error()
		}
		if result.Threat != "" {
			s.daemon.log.Warn("file scan reported a threat", "id", s.item.ID, "path", organized, "threat", result.Threat)
		} else {
			s.daemon.log.Warn("file scan failed", "id", s.item.ID, "path", organized, "error", err)
		}
	}
	s.daemon.audit.Log(s.item.ID, s.daemon.scanner.Name(), "scan", status, details)
}
