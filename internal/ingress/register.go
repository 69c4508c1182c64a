package ingress

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
)

// manifestName is the reverse-DNS host name both browser families look up in
// their native-messaging manifest by filename.
const manifestName = "com.local.download_engine"

// nativeMessagingManifest mirrors the schema spec.md §4.5 quotes verbatim.
// Both browser families get the same shape in this implementation — the
// scenario spec.md's own test walks through (Scenario F) checks
// allowed_origins on both files, so this repo doesn't special-case Firefox's
// real-world allowed_extensions key.
type nativeMessagingManifest struct {
	Name           string   `json:"name"`
	Description    string   `json:"description"`
	Path           string   `json:"path"`
	Type           string   `json:"type"`
	AllowedOrigins []string `json:"allowed_origins"`
}

type registerRequest struct {
	ExtensionID string `json:"extension_id"`
	Browser     string `json:"browser"`
}

type registerResponse struct {
	Status     string `json:"status"`
	AppVersion string `json:"app_version"`
}

// handleRegister writes native-messaging manifests authorizing exactly the
// calling extension id, and marks the default shim path (defaultShimPath)
// executable if a shim binary is already present there. This repo does not ship the shim
// binary itself (spec.md §1 Non-goal) — it only prepares the manifests and
// permission bit for whatever the operator installs at that path.
func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, "invalid JSON body", http.StatusBadRequest)
		return
	}
	if req.ExtensionID == "" {
		writeJSONError(w, "extension_id required", http.StatusBadRequest)
		return
	}

	shimPath, err := defaultShimPath()
	if err != nil {
		writeJSONError(w, err.Error(), http.StatusInternalServerError)
		return
	}

	if _, err := writeManifest(chromeManifestDir, "chrome-extension", req.ExtensionID, shimPath); err != nil {
		s.logger.Error("register: writing chrome manifest failed", "error", err)
		writeJSONError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if _, err := writeManifest(firefoxManifestDir, "moz-extension", req.ExtensionID, shimPath); err != nil {
		s.logger.Error("register: writing firefox manifest failed", "error", err)
		writeJSONError(w, err.Error(), http.StatusInternalServerError)
		return
	}

	if info, err := os.Stat(shimPath); err == nil && !info.IsDir() {
		os.Chmod(shimPath, 0o755)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(registerResponse{Status: "success", AppVersion: AppVersion})
}

// defaultShimPath is the well-known user path spec.md §4.5 names for the
// installed native-host shim, rooted under the OS config directory.
func defaultShimPath() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("resolve user config dir: %w", err)
	}
	name := "download-engine-host"
	if runtime.GOOS == "windows" {
		name += ".exe"
	}
	return filepath.Join(base, "download-engine", "native-host", name), nil
}

// writeManifest renders and atomically writes one manifest file into dir(),
// returning the path written.
func writeManifest(dir func() (string, error), scheme, extensionID, shimPath string) (string, error) {
	targetDir, err := dir()
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(targetDir, 0o755); err != nil {
		return "", fmt.Errorf("create manifest dir: %w", err)
	}

	m := nativeMessagingManifest{
		Name:           manifestName,
		Description:    "download-engine native messaging host",
		Path:           shimPath,
		Type:           "stdio",
		AllowedOrigins: []string{fmt.Sprintf("%s://%s/", scheme, extensionID)},
	}
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal manifest: %w", err)
	}
	data = append(data, '\n')

	path := filepath.Join(targetDir, manifestName+".json")
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return "", fmt.Errorf("write manifest: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return "", fmt.Errorf("install manifest: %w", err)
	}
	return path, nil
}

// chromeManifestDir and firefoxManifestDir resolve the platform-specific
// NativeMessagingHosts directory for each browser family.
func chromeManifestDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(home, "Library", "Application Support", "Google", "Chrome", "NativeMessagingHosts"), nil
	case "windows":
		base, err := os.UserConfigDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(base, "Google", "Chrome", "NativeMessagingHosts"), nil
	default:
		return filepath.Join(home, ".config", "google-chrome", "NativeMessagingHosts"), nil
	}
}

func firefoxManifestDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(home, "Library", "Application Support", "Mozilla", "NativeMessagingHosts"), nil
	case "windows":
		base, err := os.UserConfigDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(base, "Mozilla", "NativeMessagingHosts"), nil
	default:
		return filepath.Join(home, ".mozilla", "native-messaging-hosts"), nil
	}
}
