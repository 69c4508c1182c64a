package main

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"time"

	"download-engine/internal/bandwidth"
	"download-engine/internal/config"
	"download-engine/internal/downloader"
	"download-engine/internal/ingress"
	"download-engine/internal/logger"
	"download-engine/internal/osutil"
	"download-engine/internal/queue"
	"download-engine/internal/registry"
	"download-engine/internal/security"
	"download-engine/internal/state"
	"download-engine/internal/stats"
	"download-engine/internal/storage"
	"download-engine/internal/streaming"
)

// defaultIngressPort matches the browser-extension handoff port the desktop
// app historically listened on.
const defaultIngressPort = 8765

type daemonOptions struct {
	configDir string
	port      int
	verbose   bool
	logOutput io.Writer
}

// daemon owns every long-lived component engined starts at boot and stops
// at shutdown. It has no behavior of its own beyond wiring: the actual
// download/queue/ingress logic lives in the internal packages it connects.
type daemon struct {
	opts     daemonOptions
	log      *slog.Logger
	storage  *storage.Storage
	statsMgr *stats.Manager
	bw       *bandwidth.Manager
	cfg      *config.Manager
	dl       *downloader.Downloader
	delegate *streaming.Delegate
	scanner  security.Scanner
	audit    *security.AuditLogger
	reg      *registry.Registry
	ingress  *ingress.Server
}

func newDaemon(opts daemonOptions) (*daemon, error) {
	log, err := logger.New(opts.logOutput, opts.configDir, opts.verbose)
	if err != nil {
		return nil, err
	}

	store, err := storage.NewStorage(opts.configDir)
	if err != nil {
		return nil, err
	}

	downloadsDir, err := osutil.DefaultDownloadDir()
	if err != nil {
		downloadsDir = opts.configDir
	}
	cfg, err := config.Load(filepath.Join(opts.configDir, "config.json"), downloadsDir)
	if err != nil {
		return nil, err
	}

	bw := bandwidth.NewManager()
	stateStore := state.NewStore(filepath.Join(opts.configDir, "downloads"))

	d := &daemon{
		opts:     opts,
		log:      log,
		storage:  store,
		statsMgr: stats.NewManager(store),
		bw:       bw,
		cfg:      cfg,
		dl:       downloader.New(log, bw, stateStore, cfg.GetUserAgent()),
		delegate: streaming.NewDelegate(log, "yt-dlp"),
		scanner:  security.NewScanner(log),
		audit:    security.NewAuditLogger(log, opts.configDir),
	}

	d.reg = registry.New(log, cfg.GetMaxConcurrentDownloads(), filepath.Join(opts.configDir, "history.json"), d.start)
	d.applyQueueConfig()

	if err := d.reg.Restore(); err != nil {
		log.Warn("restoring download history failed", "error", err)
	}

	d.ingress = ingress.NewServer(log, d.reg, d.audit)

	return d, nil
}

// applyQueueConfig recreates every persisted queue and its schedule/host
// limits on top of the registry's always-present Main queue.
func (d *daemon) applyQueueConfig() {
	mgr := d.reg.Manager()
	for name, qd := range d.cfg.Queues() {
		if name != queue.MainQueue {
			if err := mgr.AddQueue(name, qd.MaxConcurrent); err != nil {
				d.log.Warn("restoring queue failed", "queue", name, "error", err)
				continue
			}
		} else {
			mgr.SetQueueLimit(queue.MainQueue, qd.MaxConcurrent)
		}
		if qd.Schedule.Enabled {
			if err := mgr.SetSchedule(name, qd.Schedule); err != nil {
				d.log.Warn("restoring schedule failed", "queue", name, "error", err)
			}
		}
		for host, limit := range qd.HostLimits {
			mgr.SetHostLimit(name, host, limit)
		}
	}
	mgr.StartScheduler()
}

// Run starts the ingress listener and blocks until a shutdown signal
// arrives, then drains state to disk before returning.
func (d *daemon) Run() {
	if err := d.ingress.Start(d.opts.port); err != nil {
		d.log.Error("ingress failed to start", "error", err)
		return
	}

	done := make(chan struct{})
	osutil.WaitForSignals(func() {
		d.log.Info("shutdown signal received")
		close(done)
	})
	<-done

	d.shutdown()
}

func (d *daemon) shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := d.ingress.Stop(ctx); err != nil {
		d.log.Warn("ingress shutdown error", "error", err)
	}
	d.reg.Manager().StopScheduler()
	if err := d.reg.Persist(); err != nil {
		d.log.Warn("failed to persist registry on shutdown", "error", err)
	}
	if err := d.storage.Close(); err != nil {
		d.log.Warn("failed to close storage", "error", err)
	}
	d.log.Info("engined stopped")
}

// start is the registry's StartFunc: invoked once the scheduler grants an
// item its concurrency slot. It dispatches to the segmented downloader or
// the streaming delegate depending on the URL (or on a stream type set when
// the item was added), in its own goroutine so the
// dispatching scheduler goroutine is never blocked on I/O.
func (d *daemon) start(item *registry.DownloadItem) {
	d.reg.UpdateStatus(item.ID, queue.StatusDownloading, nil)

	go func() {
		ctx := context.Background()
		sink := &downloadSink{daemon: d, item: item}

		if item.StreamType != "" || streaming.IsStreamingURL(item.URL) {
			err := d.delegate.Run(ctx, item.URL, streaming.Options{SelectedFormat: item.SelectedFormat}, sink)
			sink.finish(err == nil, err)
			return
		}

		targetDir := d.cfg.GetDefaultDownloadDir()
		opts := downloader.Options{
			WorkerCount:     d.cfg.GetMaxConnections(),
			Proxy:           d.cfg.GetProxy(),
			Headers:         item.AuthHeaders,
			VerifyIntegrity: d.cfg.GetEnableIntegrityCheck(),
		}
		err := d.dl.Download(ctx, item.URL, targetDir, opts, sink)
		sink.finish(err == nil, err)
	}()
}
