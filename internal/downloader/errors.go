package downloader

import "errors"

// ErrLinkExpired is returned when the server answers the probe or a segment
// request with 403, the common signature of a time-limited signed URL that
// has expired (for example between the original probe and a later resume). Retrying the same
// URL cannot succeed; the caller needs a fresh link.
var ErrLinkExpired = errors.New("downloader: link expired (403)")

// ErrNoRangeSupport is not itself fatal: the caller falls back to a single
// sequential worker rather than failing the download.
var ErrNoRangeSupport = errors.New("downloader: server does not support byte ranges")

// ErrPartMissing indicates a resume state file exists but its .part data
// file does not; the caller discards state and starts fresh.
var ErrPartMissing = errors.New("downloader: part file missing for resume state")
