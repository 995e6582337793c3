package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/lehigh-university-libraries/planmarks/internal/session"
)

func (h *Handler) HandleSessions(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case "GET":
		sessions := h.sessionStore.GetAll()
		sessionList := make([]SessionSummary, 0, len(sessions))
		for _, c := range sessions {
			sessionList = append(sessionList, summarize(c))
		}
		h.writeJSON(w, sessionList)
	case "POST":
		h.createSession(w, r)
	default:
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// createSession opens the annotations of a source document. An existing
// session on the same document is returned as is.
func (h *Handler) createSession(w http.ResponseWriter, r *http.Request) {
	var cfg session.Config
	if err := json.NewDecoder(r.Body).Decode(&cfg); err != nil {
		h.writeError(w, "Invalid JSON: "+err.Error(), http.StatusBadRequest)
		return
	}
	if cfg.DocumentPath == "" {
		h.writeError(w, "documentPath is required", http.StatusBadRequest)
		return
	}

	if c, ok := h.sessionStore.ForDocument(cfg.DocumentPath); ok && c.Config() == cfg {
		h.writeJSON(w, summarize(c))
		return
	}

	doc := h.bridge.Load(r.Context(), cfg.DocumentPath)
	c := session.New(cfg, doc, h.renderer, h.extractor, h.bridge)
	h.sessionStore.Set(c)

	slog.Info("Session created", "session", c.ID(), "document", cfg.DocumentPath, "records", doc.Len())
	h.writeJSONStatus(w, http.StatusCreated, summarize(c))
}

// HandleSessionDetail routes /api/sessions/{id}[/{resource}[/{page}]].
func (h *Handler) HandleSessionDetail(w http.ResponseWriter, r *http.Request) {
	parts := strings.Split(strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/sessions/"), "/"), "/")
	sessionID := parts[0]

	c, ok := h.getSessionOrError(w, sessionID)
	if !ok {
		return
	}

	resource := ""
	if len(parts) > 1 {
		resource = parts[1]
	}
	arg := ""
	if len(parts) > 2 {
		arg = parts[2]
	}

	switch {
	case resource == "" && r.Method == "GET":
		h.writeJSON(w, summarize(c))
	case resource == "" && r.Method == "DELETE":
		h.sessionStore.Delete(sessionID)
		w.WriteHeader(http.StatusNoContent)
	case resource == "geometry" && r.Method == "POST":
		h.handleGeometry(w, r, c)
	case resource == "tool" && r.Method == "POST":
		h.handleTool(w, r, c)
	case resource == "click" && r.Method == "POST":
		h.handleClick(w, r, c)
	case resource == "extraction" && r.Method == "POST":
		h.handleExtraction(w, r, c)
	case resource == "overlay" && r.Method == "GET":
		h.handleOverlay(w, r, c, arg)
	case resource == "annotations" && r.Method == "GET":
		h.handleAnnotations(w, c)
	case resource == "notifications" && r.Method == "GET":
		h.handleNotifications(w, c)
	case resource == "reload" && r.Method == "POST":
		h.handleReload(w, r, c)
	case resource == "" || resource == "geometry" || resource == "tool" || resource == "click" ||
		resource == "extraction" || resource == "overlay" || resource == "annotations" ||
		resource == "notifications" || resource == "reload":
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
	default:
		h.writeError(w, "Not found", http.StatusNotFound)
	}
}
