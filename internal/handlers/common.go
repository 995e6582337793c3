package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/lehigh-university-libraries/planmarks/internal/extraction"
	"github.com/lehigh-university-libraries/planmarks/internal/overlay"
	"github.com/lehigh-university-libraries/planmarks/internal/persistence"
	"github.com/lehigh-university-libraries/planmarks/internal/session"
	"github.com/lehigh-university-libraries/planmarks/internal/storage"
)

// Options wires the handler to its collaborators.
type Options struct {
	Extractor extraction.Extractor
	Backend   persistence.Backend
	Palette   overlay.Palette
	Pages     extraction.PageImages
	StaticDir string
}

type Handler struct {
	sessionStore *storage.SessionStore
	extractor    extraction.Extractor
	backend      persistence.Backend
	bridge       *persistence.Bridge
	renderer     *overlay.Renderer
	pages        extraction.PageImages
	staticDir    string
}

// SessionSummary is the JSON view of a session.
type SessionSummary struct {
	ID string `json:"id"`
	session.Config
	ActiveTool string    `json:"activeTool"`
	Pages      []int     `json:"pages"`
	Records    int       `json:"records"`
	CreatedAt  time.Time `json:"createdAt"`
}

func New(opts Options) *Handler {
	if opts.Palette.Colors == nil {
		opts.Palette = overlay.DefaultPalette()
	}
	if opts.StaticDir == "" {
		opts.StaticDir = "static"
	}
	return &Handler{
		sessionStore: storage.New(),
		extractor:    opts.Extractor,
		backend:      opts.Backend,
		bridge:       persistence.NewBridge(opts.Backend),
		renderer:     overlay.NewRenderer(opts.Palette),
		pages:        opts.Pages,
		staticDir:    opts.StaticDir,
	}
}

// Wait blocks until every dispatched save has finished.
func (h *Handler) Wait() {
	h.bridge.Wait()
}

// Response helpers
func (h *Handler) writeJSON(w http.ResponseWriter, data interface{}) {
	h.writeJSONStatus(w, http.StatusOK, data)
}

func (h *Handler) writeJSONStatus(w http.ResponseWriter, code int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("Unable to encode JSON response", "err", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, message string, code int) {
	slog.Error(message)
	http.Error(w, message, code)
}

// Session helpers
func (h *Handler) getSessionOrError(w http.ResponseWriter, sessionID string) (*session.Controller, bool) {
	c, exists := h.sessionStore.Get(sessionID)
	if !exists {
		h.writeError(w, "Session not found", http.StatusNotFound)
		return nil, false
	}
	return c, true
}

func summarize(c *session.Controller) SessionSummary {
	return SessionSummary{
		ID:         c.ID(),
		Config:     c.Config(),
		ActiveTool: c.ActiveTool(),
		Pages:      c.Pages(),
		Records:    c.Document().Len(),
		CreatedAt:  c.Created(),
	}
}
