// Package streaming delegates URLs that belong to adaptive-protocol /
// streaming-platform sources to an external media tool, per spec.md §4.4,
// instead of the segmented direct-download path in internal/downloader.
package streaming

import (
	"net/url"
	"strings"
)

// streamingExtensions are checked before any domain match and win outright,
// per SPEC_FULL.md §4.4's resolution of spec.md §9's Open Question.
var streamingExtensions = []string{".m3u8", ".mpd"}

// knownPlatformDomains seeds the "registered platform matcher" spec.md §4.4
// describes as populated from the external tool's own extractor registry.
// Recovered from original_source/src/core/url_classifier.py's
// STREAMING_DOMAINS list.
var knownPlatformDomains = []string{
	"youtube.com", "youtu.be", "youtube-nocookie.com",
	"instagram.com", "instagr.am",
	"twitter.com", "x.com",
	"tiktok.com",
	"vimeo.com",
	"dailymotion.com",
	"twitch.tv",
	"facebook.com", "fb.watch",
	"reddit.com", "redd.it",
	"soundcloud.com",
	"bandcamp.com",
}

// IsStreamingURL reports whether rawURL should be routed through the
// streaming delegate rather than the segmented downloader: an .m3u8/.mpd
// path extension wins outright; failing that, a known platform domain
// match does.
func IsStreamingURL(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}

	path := strings.ToLower(u.Path)
	for _, ext := range streamingExtensions {
		if strings.HasSuffix(path, ext) {
			return true
		}
	}

	domain := strings.ToLower(u.Hostname())
	domain = strings.TrimPrefix(domain, "www.")
	for _, known := range knownPlatformDomains {
		if domain == known || strings.HasSuffix(domain, "."+known) {
			return true
		}
	}
	return false
}
