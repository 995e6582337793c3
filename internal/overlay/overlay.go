// Package overlay projects annotation records onto a rendered page as a list
// of pixel-space draw instructions.
package overlay

import (
	"math"
	"sync"

	"github.com/lehigh-university-libraries/planmarks/internal/annotations"
	"github.com/lehigh-university-libraries/planmarks/internal/geometry"
)

// ShapeKind distinguishes the draw instructions an overlay is made of.
type ShapeKind string

const (
	KindBox   ShapeKind = "box"
	KindPlate ShapeKind = "plate"
	KindLabel ShapeKind = "label"
)

// Legend label metrics. Text width is approximated from the character count.
const (
	maxLabelRunes  = 40
	labelFontSize  = 9
	labelCharWidth = 5.5
	labelHeight    = 14
	labelPadding   = 3
	labelGap       = 2
)

// Shape is one draw instruction in pixel space.
type Shape struct {
	Kind        ShapeKind     `json:"kind"`
	Rect        geometry.Rect `json:"rect"`
	Fill        Paint         `json:"fill"`
	Stroke      Paint         `json:"stroke"`
	StrokeWidth float64       `json:"strokeWidth,omitempty"`
	CornerRad   float64       `json:"cornerRadius,omitempty"`
	Text        string        `json:"text,omitempty"`
	FontSize    float64       `json:"fontSize,omitempty"`
	Class       string        `json:"class,omitempty"`
}

// Visible reports whether the shape covers any area.
func (s Shape) Visible() bool {
	return s.Rect.Width > 0 && s.Rect.Height > 0
}

// Renderer turns records into shapes. It never modifies the records.
type Renderer struct {
	palette Palette
}

// NewRenderer returns a renderer using the given palette.
func NewRenderer(p Palette) *Renderer {
	return &Renderer{palette: p}
}

// Palette returns the renderer's palette.
func (r *Renderer) Palette() Palette {
	return r.palette
}

// RenderPage returns the shapes for every record on a page, in record
// order. Calling it twice with the same inputs gives the same result.
func (r *Renderer) RenderPage(doc *annotations.Document, page int, g geometry.PageGeometry) []Shape {
	var shapes []Shape
	for _, rec := range doc.RecordsForPage(page) {
		shapes = append(shapes, r.RecordShapes(rec, g)...)
	}
	return shapes
}

// RecordShapes returns the shapes for one record: a filled box for ordinary
// categories, or an outlined box plus a label for legends.
func (r *Renderer) RecordShapes(rec annotations.Record, g geometry.PageGeometry) []Shape {
	color := r.palette.Lookup(rec.Type)
	box := geometry.ProjectRect(geometry.Rect{X: rec.X, Y: rec.Y, Width: rec.Width, Height: rec.Height}, g)

	if !rec.IsLegend() {
		return []Shape{{
			Kind:        KindBox,
			Rect:        box,
			Fill:        color,
			Stroke:      color.WithOpacity(math.Min(1, color.Opacity*2)),
			StrokeWidth: 1,
			Class:       "xml-annotation-" + rec.Type,
		}}
	}

	shapes := []Shape{{
		Kind:        KindBox,
		Rect:        box,
		Stroke:      color.WithOpacity(1),
		StrokeWidth: 2,
		Class:       "xml-annotation-" + annotations.LegendType,
	}}
	if rec.Text == "" {
		return shapes
	}

	text := TruncateLabel(rec.Text)
	textWidth := float64(len([]rune(text))) * labelCharWidth
	labelX := box.X + box.Width - textWidth - labelPadding
	labelY := box.Y - labelHeight - labelGap

	return append(shapes,
		Shape{
			Kind:        KindPlate,
			Rect:        geometry.Rect{X: labelX - labelPadding, Y: labelY - labelPadding, Width: textWidth + labelPadding*2, Height: labelHeight},
			Fill:        rgba(255, 255, 255, 0.95),
			Stroke:      rgba(0x66, 0x66, 0x66, 1),
			StrokeWidth: 0.5,
			CornerRad:   2,
		},
		Shape{
			Kind:     KindLabel,
			Rect:     geometry.Rect{X: labelX, Y: labelY + labelFontSize, Width: textWidth, Height: labelFontSize},
			Fill:     rgba(0x33, 0x33, 0x33, 1),
			Text:     text,
			FontSize: labelFontSize,
			Class:    "legend-label",
		},
	)
}

// TruncateLabel shortens legend text to 40 characters plus "...".
func TruncateLabel(s string) string {
	runes := []rune(s)
	if len(runes) <= maxLabelRunes {
		return s
	}
	return string(runes[:maxLabelRunes]) + "..."
}

// Layer is the live overlay of one page.
type Layer struct {
	Page     int                   `json:"page"`
	Geometry geometry.PageGeometry `json:"geometry"`
	Shapes   []Shape               `json:"shapes"`
}

// Surface holds the live layers of all rendered pages.
type Surface struct {
	renderer *Renderer

	mu     sync.RWMutex
	layers map[int]*Layer
}

// NewSurface returns an empty surface drawing with r.
func NewSurface(r *Renderer) *Surface {
	return &Surface{renderer: r, layers: make(map[int]*Layer)}
}

// Redraw clears the page's layer and renders all of its records again.
func (s *Surface) Redraw(doc *annotations.Document, g geometry.PageGeometry) {
	shapes := s.renderer.RenderPage(doc, g.PageNumber, g)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.layers[g.PageNumber] = &Layer{Page: g.PageNumber, Geometry: g, Shapes: shapes}
}

// Draw adds the shapes of one record to an existing layer without touching
// what is already drawn. It reports false if the page has no layer yet.
func (s *Surface) Draw(page int, rec annotations.Record) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	layer, ok := s.layers[page]
	if !ok {
		return false
	}
	layer.Shapes = append(layer.Shapes, s.renderer.RecordShapes(rec, layer.Geometry)...)
	return true
}

// Layer returns a copy of a page's layer.
func (s *Surface) Layer(page int) (Layer, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	layer, ok := s.layers[page]
	if !ok {
		return Layer{}, false
	}
	out := *layer
	out.Shapes = append([]Shape(nil), layer.Shapes...)
	return out, true
}

// Clear drops every layer, e.g. when the source document changes.
func (s *Surface) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.layers = make(map[int]*Layer)
}
