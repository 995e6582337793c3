package handlers

import (
	"io"
	"net/http"
	"strconv"

	"github.com/lehigh-university-libraries/planmarks/internal/overlay"
	"github.com/lehigh-university-libraries/planmarks/internal/session"
)

// handleOverlay returns a page's live layer as JSON, or as SVG with
// ?format=svg.
func (h *Handler) handleOverlay(w http.ResponseWriter, r *http.Request, c *session.Controller, pageArg string) {
	page, err := strconv.Atoi(pageArg)
	if err != nil || page < 1 {
		h.writeError(w, "Invalid page number", http.StatusBadRequest)
		return
	}

	layer, ok := c.Layer(page)
	if !ok {
		h.writeError(w, "Page not rendered", http.StatusNotFound)
		return
	}

	if r.URL.Query().Get("format") == "svg" {
		w.Header().Set("Content-Type", "image/svg+xml")
		_, _ = io.WriteString(w, overlay.SVG(layer))
		return
	}
	h.writeJSON(w, layer)
}

func (h *Handler) handleAnnotations(w http.ResponseWriter, c *session.Controller) {
	w.Header().Set("Content-Type", "application/xml")
	_, _ = io.WriteString(w, c.WireFormat())
}

func (h *Handler) handleNotifications(w http.ResponseWriter, c *session.Controller) {
	notes := c.Notifications()
	if notes == nil {
		notes = []session.Notification{}
	}
	h.writeJSON(w, notes)
}

// handleReload replaces the session's document with the saved one.
func (h *Handler) handleReload(w http.ResponseWriter, r *http.Request, c *session.Controller) {
	if err := h.bridge.WaitFor(r.Context(), c.Config().DocumentPath); err != nil {
		h.writeError(w, "Reload canceled: "+err.Error(), http.StatusServiceUnavailable)
		return
	}
	c.Replace(h.bridge.Load(r.Context(), c.Config().DocumentPath))
	h.writeJSON(w, summarize(c))
}

// HandleCategories lists the annotation tools with their colors.
func (h *Handler) HandleCategories(w http.ResponseWriter, r *http.Request) {
	if r.Method != "GET" {
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	type category struct {
		overlay.Category
		Color overlay.Paint `json:"color"`
	}
	palette := h.renderer.Palette()
	out := make([]category, 0, len(overlay.Categories))
	for _, cat := range overlay.Categories {
		out = append(out, category{Category: cat, Color: palette.Lookup(cat.ID)})
	}
	h.writeJSON(w, out)
}
