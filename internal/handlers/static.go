package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/lehigh-university-libraries/planmarks/internal/persistence"
)

func (h *Handler) HandleStatic(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimPrefix(r.URL.Path, "/static/")
	name = strings.TrimPrefix(name, "/")

	// Default to the viewer page
	if name == "" {
		name = "index.html"
	}

	// Prevent directory traversal attacks
	if strings.Contains(name, "..") {
		http.Error(w, "Invalid file path", http.StatusBadRequest)
		return
	}

	// Set appropriate content type based on file extension
	switch {
	case strings.HasSuffix(name, ".css"):
		w.Header().Set("Content-Type", "text/css")
	case strings.HasSuffix(name, ".js"):
		w.Header().Set("Content-Type", "application/javascript")
	case strings.HasSuffix(name, ".html"):
		w.Header().Set("Content-Type", "text/html")
	case strings.HasSuffix(name, ".svg"):
		w.Header().Set("Content-Type", "image/svg+xml")
	}

	http.ServeFile(w, r, filepath.Join(h.staticDir, name))
}

// HandleArtifact publishes saved annotation documents under the uploads path
// so that this server can itself act as an HTTP persistence backend.
func (h *Handler) HandleArtifact(w http.ResponseWriter, r *http.Request) {
	if r.Method != "GET" {
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	name := filepath.Base(strings.TrimPrefix(r.URL.Path, persistence.UploadsPath))
	content, err := h.backend.Fetch(r.Context(), name)
	if errors.Is(err, persistence.ErrNotFound) {
		http.NotFound(w, r)
		return
	}
	if err != nil {
		h.writeError(w, "Failed to load artifact: "+err.Error(), http.StatusBadGateway)
		return
	}

	w.Header().Set("Content-Type", "application/xml")
	_, _ = io.WriteString(w, content)
}

// HandleSave accepts save requests in the HTTP backend's format.
func (h *Handler) HandleSave(w http.ResponseWriter, r *http.Request) {
	if r.Method != "POST" {
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req persistence.SaveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, "Invalid JSON: "+err.Error(), http.StatusBadRequest)
		return
	}
	if req.ArtifactName == "" {
		req.ArtifactName = persistence.ArtifactName(req.DocumentPath)
	}
	req.ArtifactName = filepath.Base(req.ArtifactName)
	if req.RequestID == "" {
		req.RequestID = uuid.NewString()
	}

	if err := h.backend.Store(r.Context(), req); err != nil {
		h.writeError(w, "Failed to store artifact: "+err.Error(), http.StatusInternalServerError)
		return
	}
	h.writeJSONStatus(w, http.StatusCreated, map[string]string{"artifactName": req.ArtifactName, "requestId": req.RequestID})
}
