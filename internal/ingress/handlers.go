package ingress

import (
	"encoding/json"
	"net/http"

	"download-engine/internal/fingerprint"
	"download-engine/internal/registry"
)

type healthResponse struct {
	Status  string `json:"status"`
	App     string `json:"app"`
	Version string `json:"version"`
}

type errorResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// writeJSONError replies with the {status:"error", message} body spec.md
// requires of every ingress error path, instead of http.Error's plain-text
// default.
func writeJSONError(w http.ResponseWriter, message string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(errorResponse{Status: "error", Message: message})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(healthResponse{Status: "ok", App: AppName, Version: AppVersion})
}

type addDownloadRequest struct {
	URL        string `json:"url"`
	Filename   string `json:"filename"`
	StreamType string `json:"stream_type"`
}

type statusResponse struct {
	Status string `json:"status"`
}

// handleAddDownload enqueues a URL into the registry's default queue and
// returns before the download itself begins, per spec.md §4.5's
// handoff-before-reply contract.
func (s *Server) handleAddDownload(w http.ResponseWriter, r *http.Request) {
	var req addDownloadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, "invalid JSON body", http.StatusBadRequest)
		return
	}

	normalized, err := fingerprint.NormalizeScheme(req.URL)
	if err != nil {
		writeJSONError(w, "invalid url", http.StatusBadRequest)
		return
	}

	if _, err := s.registry.Add(normalized, registry.AddOptions{
		Filename:   req.Filename,
		StreamType: req.StreamType,
	}); err != nil {
		writeJSONError(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(statusResponse{Status: "success"})
}
