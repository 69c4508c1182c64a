package streaming

import (
	"path/filepath"
	"regexp"
	"strings"
)

// FilenameTracker watches one streaming delegate's output lines for
// filename announcements, so format-merge intermediate names (yt-dlp's
// "…fNNN.ext" convention) don't make resume logic look like a restart.
// Ported in spirit from original_source/src/core/filename_tracker.py.
type FilenameTracker struct {
	destinationPattern      *regexp.Regexp
	mergerPattern           *regexp.Regexp
	alreadyDownloadedPattern *regexp.Regexp
	intermediatePattern     *regexp.Regexp
	intermediatePartPattern *regexp.Regexp
}

// NewFilenameTracker constructs a tracker with the teacher-idiom regex set.
func NewFilenameTracker() *FilenameTracker {
	return &FilenameTracker{
		destinationPattern:       regexp.MustCompile(`\[download\] Destination: (.+)$`),
		mergerPattern:            regexp.MustCompile(`\[Merger\] Merging formats into "(.+)"`),
		alreadyDownloadedPattern: regexp.MustCompile(`\[download\] (.+) has already been downloaded`),
		intermediatePattern:      regexp.MustCompile(`.*\.f\d+$`),
		intermediatePartPattern:  regexp.MustCompile(`^f\d+$`),
	}
}

// ParseOutputLine scans one line of delegate output for a filename
// announcement, returning the path and true if one was found.
func (t *FilenameTracker) ParseOutputLine(line string) (string, bool) {
	line = strings.TrimSpace(line)

	if m := t.destinationPattern.FindStringSubmatch(line); m != nil {
		return strings.TrimSpace(m[1]), true
	}
	if m := t.mergerPattern.FindStringSubmatch(line); m != nil {
		return strings.TrimSpace(m[1]), true
	}
	if m := t.alreadyDownloadedPattern.FindStringSubmatch(line); m != nil {
		return strings.TrimSpace(m[1]), true
	}
	return "", false
}

// IsTemporaryFile reports whether path looks like a yt-dlp intermediate
// format file (e.g. "video.f398.mp4").
func (t *FilenameTracker) IsTemporaryFile(path string) bool {
	ext := filepath.Ext(path)
	stem := strings.TrimSuffix(filepath.Base(path), ext)
	return t.intermediatePattern.MatchString(stem)
}

// FinalFilename predicts the merged final filename from a temporary
// intermediate name, e.g. "video.f398.mp4" -> "video.mp4".
func (t *FilenameTracker) FinalFilename(currentPath string) string {
	if !t.IsTemporaryFile(currentPath) {
		return currentPath
	}

	dir := filepath.Dir(currentPath)
	ext := filepath.Ext(currentPath)
	stem := strings.TrimSuffix(filepath.Base(currentPath), ext)

	parts := strings.Split(stem, ".")
	clean := parts[:0]
	for _, p := range parts {
		if !t.intermediatePartPattern.MatchString(p) {
			clean = append(clean, p)
		}
	}

	return filepath.Join(dir, strings.Join(clean, ".")+ext)
}
