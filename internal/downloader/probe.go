package downloader

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"download-engine/internal/fingerprint"
)

// probeResult carries the metadata a Range: bytes=0-0 probe extracts before
// a segmented fetch begins.
type probeResult struct {
	size         int64
	filename     string
	status       int
	acceptRanges bool
	etag         string
	lastModified string
}

// probe issues a GET with Range: bytes=0-0, following redirects, to learn
// total size, filename, and range support without transferring the body.
func (d *Downloader) probe(ctx context.Context, client *http.Client, rawURL string, opts Options) (*probeResult, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	req, err := d.newRequest(ctx, rawURL, opts)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Range", "bytes=0-0")

	resp, err := client.Do(req)
	if err != nil {
		return nil, friendlyError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusForbidden {
		return nil, ErrLinkExpired
	}
	if resp.StatusCode >= 400 && resp.StatusCode != http.StatusPartialContent {
		return &probeResult{status: resp.StatusCode}, friendlyHTTPError(resp.StatusCode)
	}

	name := fingerprint.FilenameFromDisposition(resp.Header.Get("Content-Disposition"))
	if name == "" {
		name = pathBasename(resp.Request.URL.Path)
	}

	acceptRanges := resp.Header.Get("Accept-Ranges") == "bytes"
	size := resp.ContentLength

	if resp.StatusCode == http.StatusPartialContent {
		acceptRanges = true
		if cr := resp.Header.Get("Content-Range"); cr != "" {
			if parts := strings.Split(cr, "/"); len(parts) == 2 {
				if total, err := strconv.ParseInt(parts[1], 10, 64); err == nil {
					size = total
				}
			}
		}
	}

	return &probeResult{
		size:         size,
		filename:     name,
		status:       resp.StatusCode,
		acceptRanges: acceptRanges,
		etag:         resp.Header.Get("ETag"),
		lastModified: resp.Header.Get("Last-Modified"),
	}, nil
}

func pathBasename(p string) string {
	if p == "" || p == "/" {
		return ""
	}
	idx := strings.LastIndexByte(p, '/')
	if idx < 0 {
		return p
	}
	return p[idx+1:]
}

// newRequest builds a GET request with the engine's standard headers plus
// any per-download overrides.
func (d *Downloader) newRequest(ctx context.Context, rawURL string, opts Options) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", d.userAgent)
	req.Header.Set("Accept", "*/*")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	req.Header.Set("Connection", "keep-alive")

	for k, v := range opts.Headers {
		req.Header.Set(k, v)
	}
	for _, c := range opts.Cookies {
		req.AddCookie(c)
	}
	return req, nil
}

// friendlyError converts transport errors into messages fit for display in
// the registry's last_error field.
func friendlyError(err error) error {
	msg := err.Error()
	switch {
	case strings.Contains(msg, "no such host"):
		return fmt.Errorf("server not found: check the URL is correct")
	case strings.Contains(msg, "connection refused"):
		return fmt.Errorf("server is offline or unreachable")
	case strings.Contains(msg, "timeout") || strings.Contains(msg, "deadline exceeded"):
		return fmt.Errorf("connection timed out")
	case strings.Contains(msg, "certificate"):
		return fmt.Errorf("TLS certificate error")
	case strings.Contains(msg, "network is unreachable"):
		return fmt.Errorf("no internet connection")
	default:
		return fmt.Errorf("connection failed: %w", err)
	}
}

// friendlyHTTPError converts a status code into a message fit for display.
func friendlyHTTPError(status int) error {
	switch status {
	case http.StatusNotFound:
		return fmt.Errorf("file not found on server (404)")
	case http.StatusForbidden:
		return fmt.Errorf("access denied by server (403)")
	case http.StatusUnauthorized:
		return fmt.Errorf("authentication required (401)")
	case http.StatusTooManyRequests:
		return fmt.Errorf("too many requests, try again later")
	case http.StatusInternalServerError, http.StatusBadGateway, http.StatusServiceUnavailable:
		return fmt.Errorf("server error (%d), try again later", status)
	default:
		return fmt.Errorf("server returned error %d", status)
	}
}
