// Package session holds the interaction state of one open source document:
// its annotations, the live overlay of every rendered page and the active
// annotation tool.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/lehigh-university-libraries/planmarks/internal/annotations"
	"github.com/lehigh-university-libraries/planmarks/internal/extraction"
	"github.com/lehigh-university-libraries/planmarks/internal/geometry"
	"github.com/lehigh-university-libraries/planmarks/internal/overlay"
	"github.com/lehigh-university-libraries/planmarks/internal/persistence"
)

// ErrNoGeometry means a page was used before its geometry was registered.
var ErrNoGeometry = errors.New("no geometry registered for page")

// Saver persists a document. persistence.Bridge implements it.
type Saver interface {
	Save(doc *annotations.Document, sourceID string, meta persistence.Metadata) string
}

// Config identifies the source document and the revision being annotated.
type Config struct {
	DocumentPath string `json:"documentPath"`
	ProjectID    int    `json:"projectId"`
	RevisionID   int    `json:"revisionId"`
	RevisionNo   int    `json:"revisionNo"`
}

// Coordinates is a click echoed back in top-left document units.
type Coordinates struct {
	Page int     `json:"page"`
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
}

// Kind says what a pointer event led to.
type Kind string

const (
	KindCoordinates Kind = "coordinates"
	KindAnnotated   Kind = "annotated"
	KindEmpty       Kind = "empty"
	KindFailed      Kind = "failed"
)

// Outcome reports the effect of a pointer event or an extraction response.
type Outcome struct {
	Kind        Kind                 `json:"kind"`
	Page        int                  `json:"page"`
	Coordinates *Coordinates         `json:"coordinates,omitempty"`
	Added       []annotations.Record `json:"added,omitempty"`
	Legend      *annotations.Record  `json:"legend,omitempty"`
	Saves       []string             `json:"saves,omitempty"`
	Error       string               `json:"error,omitempty"`
}

// Notification is a message for the user.
type Notification struct {
	Level   string    `json:"level"`
	Message string    `json:"message"`
	Time    time.Time `json:"time"`
}

// Controller is the state of one annotation session. It is safe for
// concurrent use; extraction calls run without holding the lock and their
// responses are applied in arrival order.
type Controller struct {
	id        string
	cfg       Config
	created   time.Time
	extractor extraction.Extractor
	saver     Saver

	mu            sync.Mutex
	doc           *annotations.Document
	surface       *overlay.Surface
	activeTool    string
	geometries    map[int]geometry.PageGeometry
	wired         map[int]bool
	notifications []Notification
}

// New starts a session over doc.
func New(cfg Config, doc *annotations.Document, renderer *overlay.Renderer, extractor extraction.Extractor, saver Saver) *Controller {
	if doc == nil {
		doc = annotations.New()
	}
	return &Controller{
		id:         uuid.NewString(),
		cfg:        cfg,
		created:    time.Now(),
		extractor:  extractor,
		saver:      saver,
		doc:        doc,
		surface:    overlay.NewSurface(renderer),
		geometries: make(map[int]geometry.PageGeometry),
		wired:      make(map[int]bool),
	}
}

// ID returns the session id.
func (c *Controller) ID() string { return c.id }

// Config returns the session's document configuration.
func (c *Controller) Config() Config { return c.cfg }

// Created returns when the session started.
func (c *Controller) Created() time.Time { return c.created }

// SelectTool toggles a tool: selecting the active tool returns to inspect
// mode, selecting another one switches to it. It returns the tool now active,
// "" meaning inspect mode.
func (c *Controller) SelectTool(id string) string {
	c.mu.Lock()
	defer c.mu.Unlock()

	if id == "" || c.activeTool == id {
		c.activeTool = ""
	} else {
		c.activeTool = id
	}
	slog.Debug("Tool selected", "session", c.id, "tool", c.activeTool)
	return c.activeTool
}

// ActiveTool returns the active tool, "" in inspect mode.
func (c *Controller) ActiveTool() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.activeTool
}

// RegisterPage records a page's latest geometry and redraws its overlay. It
// reports true only the first time a page is seen, which is when its
// pointer handler gets wired.
func (c *Controller) RegisterPage(g geometry.PageGeometry) bool {
	if !g.Valid() {
		slog.Warn("Ignoring invalid page geometry", "session", c.id, "page", g.PageNumber, "scale", g.Scale)
		return false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.geometries[g.PageNumber] = g
	c.surface.Redraw(c.doc, g)

	if c.wired[g.PageNumber] {
		return false
	}
	c.wired[g.PageNumber] = true
	slog.Debug("Page wired", "session", c.id, "page", g.PageNumber)
	return true
}

// Geometry returns the registered geometry of a page.
func (c *Controller) Geometry(page int) (geometry.PageGeometry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	g, ok := c.geometries[page]
	return g, ok
}

// Pages lists the registered pages in ascending order.
func (c *Controller) Pages() []int {
	c.mu.Lock()
	defer c.mu.Unlock()
	pages := make([]int, 0, len(c.geometries))
	for p := range c.geometries {
		pages = append(pages, p)
	}
	sort.Ints(pages)
	return pages
}

// HandlePointer handles a click at pixel (px, py) on a page. In inspect mode
// it echoes the document coordinates; otherwise it asks the extractor for
// the regions under the click and annotates them.
func (c *Controller) HandlePointer(ctx context.Context, page int, px, py float64) Outcome {
	c.mu.Lock()
	g, ok := c.geometries[page]
	tool := c.activeTool
	if !ok {
		c.mu.Unlock()
		return c.noGeometry(page)
	}

	x, y := geometry.PixelToDocument(px, py, g)
	if tool == "" {
		coords := Coordinates{Page: page, X: x, Y: y}
		c.notify("info", fmt.Sprintf("Page %d: x=%.2f, y=%.2f", page, x, y))
		c.mu.Unlock()
		slog.Info("Coordinates", "session", c.id, "page", page, "x", x, "y", y)
		return Outcome{Kind: KindCoordinates, Page: page, Coordinates: &coords}
	}
	c.mu.Unlock()

	if c.extractor == nil {
		slog.Error("No extractor configured", "session", c.id)
		return Outcome{Kind: KindFailed, Page: page, Error: "no extractor configured"}
	}

	req := extraction.Request{DocumentPath: c.cfg.DocumentPath, X: x, Y: y, Page: page, Category: tool}
	resp, err := c.extractor.Extract(ctx, req)
	if err != nil {
		slog.Error("Extraction failed", "session", c.id, "page", page, "category", tool, "err", err)
		return Outcome{Kind: KindFailed, Page: page, Error: err.Error()}
	}

	return c.ApplyExtraction(page, tool, resp)
}

// ApplyExtraction turns an extraction response into records on a page. The
// primary boxes are appended, drawn and saved as one batch; a legend region
// is handled the same way on its own.
func (c *Controller) ApplyExtraction(page int, category string, resp extraction.Response) Outcome {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.geometries[page]; !ok {
		return c.noGeometry(page)
	}

	out := Outcome{Kind: KindEmpty, Page: page}

	if len(resp.BBoxes) == 0 && resp.Legend == nil {
		slog.Warn("No bounding boxes returned", "session", c.id, "page", page, "category", category)
		c.notify("warning", "No bounding boxes returned from the extraction service.")
	} else if len(resp.BBoxes) > 0 {
		for _, b := range resp.BBoxes {
			rec := c.append(page, category, geometry.NormalizeBBox(b), resp.Text)
			out.Added = append(out.Added, rec)
		}
		out.Saves = append(out.Saves, c.save(category, resp.Text))
		out.Kind = KindAnnotated
	}

	if resp.Legend != nil {
		rec := c.append(page, annotations.LegendType, geometry.NormalizeBBox(resp.Legend.BBox), resp.Legend.Text)
		out.Legend = &rec
		out.Saves = append(out.Saves, c.save(annotations.LegendType, resp.Legend.Text))
		out.Kind = KindAnnotated
	}

	slog.Info("Applied extraction", "session", c.id, "page", page, "category", category, "added", len(out.Added), "legend", out.Legend != nil)
	return out
}

// append adds a record and draws it on the page's live layer. Callers hold mu.
func (c *Controller) append(page int, recordType string, r geometry.Rect, text string) annotations.Record {
	c.doc.AddRecord(page, annotations.Record{Type: recordType, X: r.X, Y: r.Y, Width: r.Width, Height: r.Height, Text: text})
	recs := c.doc.RecordsForPage(page)
	rec := recs[len(recs)-1]
	c.surface.Draw(page, rec)
	return rec
}

func (c *Controller) save(category, text string) string {
	if c.saver == nil {
		return ""
	}
	return c.saver.Save(c.doc, c.cfg.DocumentPath, persistence.Metadata{
		Category:   category,
		Text:       text,
		ProjectID:  c.cfg.ProjectID,
		RevisionID: c.cfg.RevisionID,
		RevisionNo: c.cfg.RevisionNo,
	})
}

func (c *Controller) noGeometry(page int) Outcome {
	err := fmt.Errorf("page %d: %w", page, ErrNoGeometry)
	slog.Error("Cannot annotate page", "session", c.id, "page", page, "err", err)
	return Outcome{Kind: KindFailed, Page: page, Error: err.Error()}
}

// notify queues a notification. Callers hold mu.
func (c *Controller) notify(level, message string) {
	c.notifications = append(c.notifications, Notification{Level: level, Message: message, Time: time.Now()})
}

// Notifications returns and clears the queued notifications.
func (c *Controller) Notifications() []Notification {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := c.notifications
	c.notifications = nil
	return out
}

// Layer returns the live overlay of a page.
func (c *Controller) Layer(page int) (overlay.Layer, bool) {
	return c.surface.Layer(page)
}

// Document returns a snapshot of the annotations.
func (c *Controller) Document() *annotations.Document {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.doc.Clone()
}

// WireFormat serializes the current annotations.
func (c *Controller) WireFormat() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return annotations.ToWireFormat(c.doc)
}

// Replace swaps in a freshly loaded document and redraws every registered
// page.
func (c *Controller) Replace(doc *annotations.Document) {
	if doc == nil {
		doc = annotations.New()
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.doc = doc
	c.surface.Clear()
	for _, g := range c.geometries {
		c.surface.Redraw(c.doc, g)
	}
}
