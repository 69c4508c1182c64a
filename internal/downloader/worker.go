package downloader

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"download-engine/internal/state"
)

// runSegment fetches exactly one segment: Range GET, 1 MiB reads buffered
// until 16 MiB or EOF, then a WriteAt flush; it also flushes into the file
// and the in-memory segment counters at least once every checkpointInterval
// (the on-disk state snapshot itself is taken by runSegments). It returns without marking
// the segment finished on any I/O or network error; the caller does not
// retry it within this Download call.
func (d *Downloader) runSegment(ctx context.Context, client *http.Client, file *os.File, rawURL, host string, ds *state.DownloadState, idx int, opts Options) error {
	seg := &ds.Segments[idx]

	start := time.Now()
	err := d.fetchSegment(ctx, client, file, rawURL, ds, idx, opts)
	d.congestion.recordOutcome(host, time.Since(start), err)
	if err != nil {
		return fmt.Errorf("segment %d: %w", seg.Index, err)
	}
	return nil
}

// readWithDeadline bounds a single Read call to timeout, the way probe.go
// bounds the metadata probe: a server that accepts the range request and
// then goes silent must not tie up a worker goroutine forever. The Read
// itself keeps running past a timeout (resp.Body.Read has no native
// deadline), but the caller treats it as failed and tears the segment down,
// which closes the response body and unblocks the stray goroutine.
func readWithDeadline(ctx context.Context, r io.Reader, buf []byte, timeout time.Duration) (int, error) {
	deadline, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type result struct {
		n   int
		err error
	}
	done := make(chan result, 1)
	go func() {
		n, err := r.Read(buf)
		done <- result{n, err}
	}()

	select {
	case res := <-done:
		return res.n, res.err
	case <-deadline.Done():
		return 0, fmt.Errorf("segment read stalled: %w", deadline.Err())
	}
}

func (d *Downloader) fetchSegment(ctx context.Context, client *http.Client, file *os.File, rawURL string, ds *state.DownloadState, idx int, opts Options) error {
	seg := &ds.Segments[idx]

	rangeStart := seg.StartByte + seg.Downloaded
	rangeEnd := seg.EndByte

	req, err := d.newRequest(ctx, rawURL, opts)
	if err != nil {
		return err
	}
	req.Header.Set("Range", fmt.Sprintf("bytes=%d-%d", rangeStart, rangeEnd))

	resp, err := client.Do(req)
	if err != nil {
		return friendlyError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusForbidden {
		return ErrLinkExpired
	}
	if resp.StatusCode != http.StatusPartialContent && resp.StatusCode != http.StatusOK {
		return friendlyHTTPError(resp.StatusCode)
	}

	buf := make([]byte, readChunkSize)
	pending := make([]byte, 0, flushThreshold+readChunkSize)
	writeOffset := rangeStart
	lastCheckpoint := time.Now()

	flush := func() error {
		if len(pending) == 0 {
			return nil
		}
		if _, err := file.WriteAt(pending, writeOffset); err != nil {
			return fmt.Errorf("write segment %d: %w", seg.Index, err)
		}
		writeOffset += int64(len(pending))
		ds.UpdateSegment(idx, func(s *state.Segment) { s.Downloaded += int64(len(pending)) })
		pending = pending[:0]
		return nil
	}

	for {
		if err := d.bandwidth.Wait(ctx, fmt.Sprintf("seg-%d", seg.Index), len(buf)); err != nil {
			return err
		}

		n, readErr := readWithDeadline(ctx, resp.Body, buf, segmentReadTimeout)
		if n > 0 {
			pending = append(pending, buf[:n]...)
			if len(pending) >= flushThreshold {
				if err := flush(); err != nil {
					return err
				}
			}
		}

		if time.Since(lastCheckpoint) >= checkpointInterval {
			if err := flush(); err != nil {
				return err
			}
			lastCheckpoint = time.Now()
		}

		if readErr != nil {
			if readErr == io.EOF {
				break
			}
			return readErr
		}

		select {
		case <-ctx.Done():
			flush()
			return ctx.Err()
		default:
		}
	}

	if err := flush(); err != nil {
		return err
	}
	ds.UpdateSegment(idx, func(s *state.Segment) { s.Finished = true })
	return nil
}
