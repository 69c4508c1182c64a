package streaming

import (
	"regexp"
	"strconv"
)

// progressLinePattern matches yt-dlp-style progress lines, e.g.:
//   [download]  45.2% of   120.00MiB at    1.20MiB/s ETA 00:32
// Total size and rate are tolerant of an "~" approximation marker and a
// "Unknown" placeholder, both of which yt-dlp emits when the server didn't
// report Content-Length.
var progressLinePattern = regexp.MustCompile(
	`\[download\]\s+([\d.]+)%\s+of\s+~?\s*([\d.]+)(B|KiB|MiB|GiB)\s+at\s+([\d.]+|Unknown)\s*(B|KiB|MiB|GiB)?/s`,
)

var unitMultiplier = map[string]float64{
	"B":   1,
	"KiB": 1024,
	"MiB": 1024 * 1024,
	"GiB": 1024 * 1024 * 1024,
}

// Progress is one parsed progress line, converted to absolute bytes.
type Progress struct {
	Percent       float64
	TotalBytes    int64
	RateBytesSec  int64
	RateKnown     bool
}

// ParseProgressLine extracts a Progress reading from one delegate output
// line, per spec.md §4.4's "percentage + total-size + rate + ETA" contract.
// Destination/merger announcements are handled separately by
// FilenameTracker, not here.
func ParseProgressLine(line string) (Progress, bool) {
	m := progressLinePattern.FindStringSubmatch(line)
	if m == nil {
		return Progress{}, false
	}

	percent, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return Progress{}, false
	}
	sizeValue, err := strconv.ParseFloat(m[2], 64)
	if err != nil {
		return Progress{}, false
	}
	total := int64(sizeValue * unitMultiplier[m[3]])

	p := Progress{Percent: percent, TotalBytes: total}
	if m[4] != "Unknown" {
		if rateValue, err := strconv.ParseFloat(m[4], 64); err == nil {
			p.RateBytesSec = int64(rateValue * unitMultiplier[m[5]])
			p.RateKnown = true
		}
	}
	return p, true
}

// BytesObserved derives the absolute byte count this Progress reading
// implies, given the total size it reports.
func (p Progress) BytesObserved() int64 {
	return int64(p.Percent / 100 * float64(p.TotalBytes))
}
