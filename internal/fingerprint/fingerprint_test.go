package fingerprint

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestOfIsStableAndHex(t *testing.T) {
	a := Of("https://example.com/file.bin")
	b := Of("https://example.com/file.bin")
	if a != b {
		t.Errorf("fingerprint not stable: %s != %s", a, b)
	}
	if len(a) != 32 {
		t.Errorf("expected 32 hex chars (128 bits), got %d", len(a))
	}
	other := Of("https://example.com/other.bin")
	if a == other {
		t.Errorf("distinct URLs produced the same fingerprint")
	}
}

func TestOfIgnoresResolvedFilename(t *testing.T) {
	// The fingerprint must depend only on the raw URL, not on anything the
	// server later reveals, so it stays persistent-stable across restarts.
	url := "https://example.com/download?id=123"
	a := Of(url)
	b := Of(url)
	if a != b {
		t.Errorf("fingerprint changed across calls for the same URL")
	}
}

func TestShortIDIsPrefixOfFingerprint(t *testing.T) {
	url := "https://example.com/a.bin"
	id := ShortID(url)
	full := Of(url)
	if len(id) != 16 {
		t.Errorf("expected 16 hex chars, got %d", len(id))
	}
	if full[:16] != id {
		t.Errorf("short id is not a prefix of the full fingerprint")
	}
}

func TestNormalizeScheme(t *testing.T) {
	cases := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"example.com/file", "https://example.com/file", false},
		{"http://example.com/file", "http://example.com/file", false},
		{"https://example.com/file", "https://example.com/file", false},
		{"ftp://example.com/file", "", true},
		{"", "", true},
	}
	for _, c := range cases {
		got, err := NormalizeScheme(c.in)
		if c.wantErr {
			if err == nil {
				t.Errorf("NormalizeScheme(%q): expected error, got none", c.in)
			}
			continue
		}
		if err != nil {
			t.Errorf("NormalizeScheme(%q): unexpected error: %v", c.in, err)
		}
		if got != c.want {
			t.Errorf("NormalizeScheme(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestFilenameFromDisposition(t *testing.T) {
	cases := []struct {
		header string
		want   string
	}{
		{`attachment; filename="report.pdf"`, "report.pdf"},
		{`attachment; filename=report.pdf`, "report.pdf"},
		{`attachment; filename*=UTF-8''re%CC%81sume%CC%81.pdf`, "résumé.pdf"},
		{"", ""},
	}
	for _, c := range cases {
		got := FilenameFromDisposition(c.header)
		if got != c.want {
			t.Errorf("FilenameFromDisposition(%q) = %q, want %q", c.header, got, c.want)
		}
	}
}

func TestSanitizeStripsPathSeparatorsAndReservedNames(t *testing.T) {
	cases := map[string]string{
		"../../etc/passwd":   "passwd",
		"a/b\\c:d*e?f":       "abcdef",
		"CON.txt":            "_CON.txt",
		"":                   "download",
		"normal_file.tar.gz": "normal_file.tar.gz",
	}
	for in, want := range cases {
		got := Sanitize(in)
		if got != want {
			t.Errorf("Sanitize(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestSanitizeCapsLengthPreservingExtension(t *testing.T) {
	long := ""
	for i := 0; i < 300; i++ {
		long += "a"
	}
	got := Sanitize(long + ".mp4")
	if len(got) > maxFilenameBytes {
		t.Errorf("expected length <= %d, got %d", maxFilenameBytes, len(got))
	}
	if got[len(got)-4:] != ".mp4" {
		t.Errorf("expected extension preserved, got %q", got)
	}
}

// TestSanitizeCapsByteLengthNotRuneCount exercises a filename whose rune
// count is under the cap but whose UTF-8 byte length is not, guarding
// against a cap that only checks utf8.RuneCountInString.
func TestSanitizeCapsByteLengthNotRuneCount(t *testing.T) {
	long := strings.Repeat("文", 120) // 120 runes, 360 bytes in UTF-8
	got := Sanitize(long + ".mp4")
	if len(got) > maxFilenameBytes {
		t.Errorf("expected byte length <= %d, got %d (%q)", maxFilenameBytes, len(got), got)
	}
	if !strings.HasSuffix(got, ".mp4") {
		t.Errorf("expected extension preserved, got %q", got)
	}
	if !utf8.ValidString(got) {
		t.Errorf("expected a valid UTF-8 string after truncation, got %q", got)
	}
}

func TestEnsureExtension(t *testing.T) {
	if got := EnsureExtension("noext"); got != "noext.bin" {
		t.Errorf("EnsureExtension(\"noext\") = %q", got)
	}
	if got := EnsureExtension("has.mp4"); got != "has.mp4" {
		t.Errorf("EnsureExtension(\"has.mp4\") = %q", got)
	}
}
