// Package netinfo runs optional, on-demand network speed tests surfaced by
// the registry's analytics view. It is not part of the download path itself.
package netinfo

import (
	"context"
	"fmt"
	"time"

	"github.com/showwin/speedtest-go/speedtest"
)

// Result is one speed-test run.
type Result struct {
	DownloadMbps   float64   `json:"download_mbps"`
	UploadMbps     float64   `json:"upload_mbps"`
	PingMs         int64     `json:"ping_ms"`
	ServerName     string    `json:"server_name"`
	ServerLocation string    `json:"server_location"`
	ISP            string    `json:"isp"`
	Timestamp      time.Time `json:"timestamp"`
}

// Run performs a ping/download/upload test against the nearest available
// server, bounded by a 30s context per spec.md §5's external-process-probe
// style timeout budget.
func Run(ctx context.Context) (*Result, error) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	user, err := speedtest.FetchUserInfo()
	if err != nil {
		return nil, fmt.Errorf("no internet connection: %w", err)
	}

	servers, err := speedtest.FetchServers()
	if err != nil {
		return nil, fmt.Errorf("fetch servers: %w", err)
	}

	targets, err := servers.FindServer(nil)
	if err != nil || len(targets) == 0 {
		return nil, fmt.Errorf("no speed test servers available")
	}
	server := targets[0]

	if err := server.PingTestContext(ctx, nil); err != nil {
		return nil, fmt.Errorf("ping test: %w", err)
	}
	if err := server.DownloadTestContext(ctx); err != nil {
		return nil, fmt.Errorf("download test: %w", err)
	}
	if err := server.UploadTestContext(ctx); err != nil {
		return nil, fmt.Errorf("upload test: %w", err)
	}

	return &Result{
		DownloadMbps:   float64(server.DLSpeed) / 1000 / 1000 * 8,
		UploadMbps:     float64(server.ULSpeed) / 1000 / 1000 * 8,
		PingMs:         server.Latency.Milliseconds(),
		ServerName:     server.Name,
		ServerLocation: fmt.Sprintf("%s, %s", server.Name, server.Country),
		ISP:            user.Isp,
		Timestamp:      time.Now(),
	}, nil
}
