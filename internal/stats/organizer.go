package stats

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"download-engine/internal/config"
)

// Category returns the display category for a filename based on its
// extension.
func Category(filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".jpg", ".jpeg", ".png", ".gif", ".webp", ".bmp", ".svg":
		return "Images"
	case ".mp4", ".mkv", ".mov", ".avi", ".webm", ".wmv":
		return "Videos"
	case ".mp3", ".wav", ".flac", ".aac", ".ogg", ".m4a":
		return "Music"
	case ".zip", ".rar", ".7z", ".tar", ".gz", ".iso":
		return "Archives"
	case ".pdf", ".docx", ".xlsx", ".pptx", ".txt", ".md":
		return "Documents"
	case ".exe", ".msi", ".dmg", ".pkg", ".deb":
		return "Software"
	default:
		return "Others"
	}
}

// OrganizedPath returns the path a completed file should live at:
// {baseDir}/{category}/{filename}.
func OrganizedPath(baseDir, filename string) string {
	return filepath.Join(baseDir, Category(filename), filename)
}

// Organize moves a completed download from currentPath into its category
// subfolder beneath baseDir, resolving name collisions with a " (N)" suffix.
// Returns the final path.
func Organize(baseDir, currentPath, filename string) (string, error) {
	targetDir := filepath.Join(baseDir, Category(filename))
	if err := os.MkdirAll(targetDir, 0o755); err != nil {
		return currentPath, fmt.Errorf("create category dir: %w", err)
	}

	target := AvailablePath(filepath.Join(targetDir, filename))
	if err := os.Rename(currentPath, target); err != nil {
		return currentPath, fmt.Errorf("move into category: %w", err)
	}
	return target, nil
}

// ResolveCategory looks filename's extension up against the user's
// configured categories (display name -> extensions/icon/save_dir, per
// spec.md §6), and reports a configured category that claims it. If several
// configured categories claim the same extension, which one is reported is
// not defined. It falls back to the built-in heuristic in Category when
// nothing configured claims the extension.
func ResolveCategory(filename string, categories map[string]config.Category) (name string, cfg config.Category, matched bool) {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(filename)), ".")
	for categoryName, c := range categories {
		for _, candidate := range c.Extensions {
			if strings.ToLower(strings.TrimPrefix(candidate, ".")) == ext {
				return categoryName, c, true
			}
		}
	}
	return Category(filename), config.Category{}, false
}

// OrganizedPathForConfig is OrganizedPath generalized to consult a user's
// configured categories first: a category carrying an explicit SaveDir
// files completed downloads at {save_dir}/{category}/{filename} instead of
// {baseDir}/{category}/{filename}, per SPEC_FULL.md §4.2.
func OrganizedPathForConfig(baseDir, filename string, categories map[string]config.Category) string {
	name, cfg, matched := ResolveCategory(filename, categories)
	root := baseDir
	if matched && cfg.SaveDir != "" {
		root = cfg.SaveDir
	}
	return filepath.Join(root, name, filename)
}

// OrganizeForConfig is Organize generalized the same way OrganizedPathForConfig
// generalizes OrganizedPath.
func OrganizeForConfig(baseDir, currentPath, filename string, categories map[string]config.Category) (string, error) {
	name, cfg, matched := ResolveCategory(filename, categories)
	root := baseDir
	if matched && cfg.SaveDir != "" {
		root = cfg.SaveDir
	}
	targetDir := filepath.Join(root, name)
	if err := os.MkdirAll(targetDir, 0o755); err != nil {
		return currentPath, fmt.Errorf("create category dir: %w", err)
	}

	target := AvailablePath(filepath.Join(targetDir, filename))
	if err := os.Rename(currentPath, target); err != nil {
		return currentPath, fmt.Errorf("move into category: %w", err)
	}
	return target, nil
}

// AvailablePath returns basePath unchanged if free, or the first
// "name (N).ext" variant that doesn't collide.
func AvailablePath(basePath string) string {
	if _, err := os.Stat(basePath); os.IsNotExist(err) {
		return basePath
	}
	ext := filepath.Ext(basePath)
	dir := filepath.Dir(basePath)
	name := strings.TrimSuffix(filepath.Base(basePath), ext)

	for i := 1; i < 1000; i++ {
		candidate := filepath.Join(dir, fmt.Sprintf("%s (%d)%s", name, i, ext))
		if _, err := os.Stat(candidate); os.IsNotExist(err) {
			return candidate
		}
	}
	return filepath.Join(dir, fmt.Sprintf("%s_%d%s", name, 9999, ext))
}
