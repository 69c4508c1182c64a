// Package osutil holds the small set of OS-specific conveniences the daemon
// and CLI need outside the download path itself: the default download
// directory and opening a finished file/folder in the desktop shell.
// Adapted from the teacher's internal/core/os_utils.go.
package osutil

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
)

// DefaultDownloadDir returns the user's Downloads directory, used to seed
// internal/config's default_download_dir on first run.
func DefaultDownloadDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, "Downloads"), nil
}

// OpenFile opens path with the OS's default associated application, for
// enginedctl's "open" convenience command.
func OpenFile(path string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "windows":
		cmd = exec.Command("cmd", "/c", "start", "", path)
	case "darwin":
		cmd = exec.Command("open", path)
	case "linux":
		cmd = exec.Command("xdg-open", path)
	default:
		return fmt.Errorf("osutil: unsupported platform %q", runtime.GOOS)
	}
	return cmd.Start()
}

// OpenFolder reveals path's containing folder in the desktop file manager.
func OpenFolder(path string) error {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return err
	}

	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "windows":
		cmd = exec.Command("explorer", "/select,", absPath)
	case "darwin":
		cmd = exec.Command("open", "-R", absPath)
	case "linux":
		cmd = exec.Command("xdg-open", filepath.Dir(absPath))
	default:
		return fmt.Errorf("osutil: unsupported platform %q", runtime.GOOS)
	}
	return cmd.Start()
}
