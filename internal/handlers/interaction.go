package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/lehigh-university-libraries/planmarks/internal/extraction"
	"github.com/lehigh-university-libraries/planmarks/internal/geometry"
	"github.com/lehigh-university-libraries/planmarks/internal/session"
)

// handleGeometry receives a page render notification.
func (h *Handler) handleGeometry(w http.ResponseWriter, r *http.Request, c *session.Controller) {
	var g geometry.PageGeometry
	if err := json.NewDecoder(r.Body).Decode(&g); err != nil {
		h.writeError(w, "Invalid JSON: "+err.Error(), http.StatusBadRequest)
		return
	}
	if !g.Valid() {
		h.writeError(w, "Invalid page geometry", http.StatusBadRequest)
		return
	}

	wired := c.RegisterPage(g)
	layer, _ := c.Layer(g.PageNumber)
	h.writeJSON(w, map[string]any{
		"wired": wired,
		"layer": layer,
	})
}

func (h *Handler) handleTool(w http.ResponseWriter, r *http.Request, c *session.Controller) {
	var request struct {
		Tool string `json:"tool"`
	}
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		h.writeError(w, "Invalid JSON: "+err.Error(), http.StatusBadRequest)
		return
	}

	h.writeJSON(w, map[string]string{"activeTool": c.SelectTool(request.Tool)})
}

// handleClick forwards a pointer event. Failures are reported in the
// outcome, never as an HTTP error.
func (h *Handler) handleClick(w http.ResponseWriter, r *http.Request, c *session.Controller) {
	var request struct {
		Page int     `json:"page"`
		X    float64 `json:"x"`
		Y    float64 `json:"y"`
	}
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		h.writeError(w, "Invalid JSON: "+err.Error(), http.StatusBadRequest)
		return
	}

	h.writeJSON(w, c.HandlePointer(r.Context(), request.Page, request.X, request.Y))
}

// handleExtraction applies an extraction response obtained by the viewer
// itself.
func (h *Handler) handleExtraction(w http.ResponseWriter, r *http.Request, c *session.Controller) {
	var request struct {
		Page     int                 `json:"page"`
		Category string              `json:"category"`
		Response extraction.Response `json:"response"`
	}
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		h.writeError(w, "Invalid JSON: "+err.Error(), http.StatusBadRequest)
		return
	}
	if request.Category == "" {
		h.writeError(w, "category is required", http.StatusBadRequest)
		return
	}

	h.writeJSON(w, c.ApplyExtraction(request.Page, request.Category, request.Response))
}
