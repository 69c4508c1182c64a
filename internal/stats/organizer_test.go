package stats

import (
	"os"
	"path/filepath"
	"testing"

	"download-engine/internal/config"
)

func TestCategory(t *testing.T) {
	cases := map[string]string{
		"pic.jpg":       "Images",
		"song.mp3":      "Music",
		"doc.pdf":       "Documents",
		"installer.exe": "Software",
		"movie.mp4":     "Videos",
		"archive.zip":   "Archives",
		"unknown.xyz":   "Others",
	}
	for name, want := range cases {
		if got := Category(name); got != want {
			t.Errorf("Category(%q) = %q, want %q", name, got, want)
		}
	}
}

func TestOrganizeMovesIntoCategory(t *testing.T) {
	tmpDir := t.TempDir()
	src := filepath.Join(tmpDir, "pic.jpg")
	os.WriteFile(src, []byte("dummy"), 0o644)

	got, err := Organize(tmpDir, src, "pic.jpg")
	if err != nil {
		t.Fatalf("Organize failed: %v", err)
	}
	want := filepath.Join(tmpDir, "Images", "pic.jpg")
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
	if _, err := os.Stat(want); err != nil {
		t.Errorf("file not found at new path: %v", err)
	}
}

func TestOrganizeCollisionHandling(t *testing.T) {
	tmpDir := t.TempDir()
	imgDir := filepath.Join(tmpDir, "Images")
	os.MkdirAll(imgDir, 0o755)
	os.WriteFile(filepath.Join(imgDir, "test.jpg"), []byte("existing"), 0o644)

	src := filepath.Join(tmpDir, "test.jpg")
	os.WriteFile(src, []byte("new"), 0o644)

	got, err := Organize(tmpDir, src, "test.jpg")
	if err != nil {
		t.Fatalf("Organize failed: %v", err)
	}
	want := filepath.Join(imgDir, "test (1).jpg")
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestResolveCategoryPrefersConfiguredCategory(t *testing.T) {
	categories := map[string]config.Category{
		"Ebooks": {Extensions: []string{"epub", "mobi"}},
	}
	name, _, matched := ResolveCategory("novel.epub", categories)
	if !matched || name != "Ebooks" {
		t.Errorf("expected configured category Ebooks, got %q matched=%v", name, matched)
	}
}

func TestResolveCategoryFallsBackToBuiltinHeuristic(t *testing.T) {
	name, _, matched := ResolveCategory("pic.jpg", map[string]config.Category{})
	if matched {
		t.Error("expected no configured category to match")
	}
	if name != "Images" {
		t.Errorf("expected fallback heuristic category Images, got %q", name)
	}
}

func TestOrganizedPathForConfigUsesCategorySaveDir(t *testing.T) {
	tmpDir := t.TempDir()
	customDir := filepath.Join(tmpDir, "ebooks-root")
	categories := map[string]config.Category{
		"Ebooks": {Extensions: []string{"epub"}, SaveDir: customDir},
	}
	got := OrganizedPathForConfig(tmpDir, "novel.epub", categories)
	want := filepath.Join(customDir, "Ebooks", "novel.epub")
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestOrganizeForConfigMovesFileUnderCustomSaveDir(t *testing.T) {
	tmpDir := t.TempDir()
	customDir := filepath.Join(tmpDir, "ebooks-root")
	categories := map[string]config.Category{
		"Ebooks": {Extensions: []string{"epub"}, SaveDir: customDir},
	}
	src := filepath.Join(tmpDir, "novel.epub")
	os.WriteFile(src, []byte("dummy"), 0o644)

	got, err := OrganizeForConfig(tmpDir, src, "novel.epub", categories)
	if err != nil {
		t.Fatalf("OrganizeForConfig failed: %v", err)
	}
	want := filepath.Join(customDir, "Ebooks", "novel.epub")
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
	if _, err := os.Stat(want); err != nil {
		t.Errorf("file not found at new path: %v", err)
	}
}
