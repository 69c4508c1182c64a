// Package fingerprint derives stable identifiers and safe filenames from
// download URLs.
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"mime"
	"net/url"
	"path/filepath"
	"strings"
	"unicode/utf8"
)

// maxFilenameBytes is the cap spec.md places on sanitized filenames, chosen to
// preserve the extension while keeping state/part filenames short.
const maxFilenameBytes = 200

var reservedWindowsNames = map[string]bool{
	"CON": true, "PRN": true, "AUX": true, "NUL": true,
	"COM1": true, "COM2": true, "COM3": true, "COM4": true,
	"LPT1": true, "LPT2": true, "LPT3": true, "LPT4": true,
}

// Of returns a stable 128-bit hex fingerprint for the raw request URL. It is
// derived solely from the URL string, so it never changes once a download is
// known, regardless of what the server later reveals as the real filename.
func Of(rawURL string) string {
	sum := sha256.Sum256([]byte(rawURL))
	return hex.EncodeToString(sum[:16])
}

// ShortID returns the 16-hex-char registry id derived from a URL fingerprint,
// per spec.md §4.6.
func ShortID(rawURL string) string {
	f := Of(rawURL)
	return f[:16]
}

// NormalizeScheme auto-prefixes a bare host with https when the input clearly
// lacks any scheme separator, and rejects anything that isn't http(s).
func NormalizeScheme(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Errorf("empty URL")
	}
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("invalid URL: %w", err)
	}
	switch u.Scheme {
	case "http", "https":
		return u.String(), nil
	default:
		return "", fmt.Errorf("unsupported URL scheme %q", u.Scheme)
	}
}

// FilenameFromDisposition extracts a filename from a Content-Disposition
// header value, preferring the quoted/extended form over the bare one.
func FilenameFromDisposition(header string) string {
	if header == "" {
		return ""
	}
	_, params, err := mime.ParseMediaType(header)
	if err != nil {
		// Fall back to a crude scan for filename= when the header is malformed
		// enough that mime.ParseMediaType refuses it outright.
		idx := strings.Index(header, "filename=")
		if idx == -1 {
			return ""
		}
		rest := strings.TrimSpace(header[idx+len("filename="):])
		rest = strings.Trim(rest, `"; `)
		return rest
	}
	if name, ok := params["filename*"]; ok && name != "" {
		return stripEncodingPrefix(name)
	}
	return params["filename"]
}

func stripEncodingPrefix(v string) string {
	// RFC 5987 extended values look like UTF-8''actual%20name.ext
	if idx := strings.Index(v, "''"); idx != -1 {
		if unescaped, err := url.QueryUnescape(v[idx+2:]); err == nil {
			return unescaped
		}
		return v[idx+2:]
	}
	return v
}

// Sanitize strips path separators and control characters from a candidate
// filename, rejects reserved device names, and caps the result to
// maxFilenameBytes while preserving the extension.
func Sanitize(name string) string {
	name = filepath.Base(strings.TrimSpace(name))
	if name == "." || name == "" || name == string(filepath.Separator) {
		name = "download"
	}

	var b strings.Builder
	for _, r := range name {
		if r < 0x20 || r == 0x7f {
			continue
		}
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|':
			continue
		}
		b.WriteRune(r)
	}
	clean := strings.TrimSpace(b.String())
	if clean == "" {
		clean = "download"
	}

	ext := filepath.Ext(clean)
	base := strings.TrimSuffix(clean, ext)
	upper := strings.ToUpper(base)
	if reservedWindowsNames[upper] {
		base = "_" + base
	}

	clean = base + ext
	if len(clean) > maxFilenameBytes {
		clean = truncatePreservingExt(base, ext)
	}
	return clean
}

// truncatePreservingExt shortens base to fit maxFilenameBytes total UTF-8
// bytes once ext is appended back, cutting on a rune boundary so a
// multi-byte character never gets split.
func truncatePreservingExt(base, ext string) string {
	budget := maxFilenameBytes - len(ext)
	if budget < 1 {
		budget = 1
	}
	if len(base) <= budget {
		return base + ext
	}
	cut := budget
	for cut > 0 && !utf8.RuneStart(base[cut]) {
		cut--
	}
	return base[:cut] + ext
}

// EnsureExtension appends a neutral suffix when neither the URL path nor the
// disposition filename carries a usable extension, so category detection
// downstream stays deterministic.
func EnsureExtension(name string) string {
	if filepath.Ext(name) != "" {
		return name
	}
	return name + ".bin"
}
