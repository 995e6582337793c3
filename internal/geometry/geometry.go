// Package geometry converts points between the three coordinate systems used
// when overlaying annotations on a rendered page:
//
//   - pixel space: on-screen viewport pixels, origin top-left, y down
//   - document space (top-left): unscaled page units, origin top-left, y down;
//     this is what gets persisted
//   - document space (bottom-left): unscaled page units, origin bottom-left,
//     y up; this is what the viewport projection expects as input
//
// All functions are pure. Non-finite input propagates to the output.
package geometry

import (
	"math"

	"seehuhn.de/go/geom/matrix"
)

// PageGeometry describes how one page was rendered. The page renderer emits a
// new value whenever a page is (re)rendered, e.g. after a zoom or rotation.
type PageGeometry struct {
	PageNumber     int     `json:"pageNumber" yaml:"pageNumber"`
	Scale          float64 `json:"scale" yaml:"scale"`
	ViewportWidth  float64 `json:"viewportWidth" yaml:"viewportWidth"`
	ViewportHeight float64 `json:"viewportHeight" yaml:"viewportHeight"`

	// Rotation is the clockwise viewport rotation in degrees. Only multiples
	// of 90 are meaningful; other values are rounded down to one.
	Rotation int `json:"rotation,omitempty" yaml:"rotation,omitempty"`

	// OffsetX and OffsetY are the lower-left corner of the page box in
	// document units. Almost always zero.
	OffsetX float64 `json:"offsetX,omitempty" yaml:"offsetX,omitempty"`
	OffsetY float64 `json:"offsetY,omitempty" yaml:"offsetY,omitempty"`
}

// Valid reports whether the geometry can be used for projection.
func (g PageGeometry) Valid() bool {
	return g.PageNumber >= 1 && g.Scale > 0 &&
		!math.IsInf(g.ViewportHeight, 0) && !math.IsNaN(g.ViewportHeight) &&
		!math.IsInf(g.ViewportWidth, 0) && !math.IsNaN(g.ViewportWidth)
}

func (g PageGeometry) rotation() int {
	r := g.Rotation % 360
	if r < 0 {
		r += 360
	}
	return r - r%90
}

func (g PageGeometry) quarterTurn() bool {
	r := g.rotation()
	return r == 90 || r == 270
}

// UnscaledWidth is the page width in document units.
func (g PageGeometry) UnscaledWidth() float64 {
	if g.quarterTurn() {
		return g.ViewportHeight / g.Scale
	}
	return g.ViewportWidth / g.Scale
}

// UnscaledHeight is the page height in document units. For an unrotated
// page this is ViewportHeight / Scale.
func (g PageGeometry) UnscaledHeight() float64 {
	if g.quarterTurn() {
		return g.ViewportWidth / g.Scale
	}
	return g.ViewportHeight / g.Scale
}

// Transform returns the forward viewport projection from bottom-left
// document space to pixel space.
func (g PageGeometry) Transform() matrix.Matrix {
	var a, b, c, d float64
	switch g.rotation() {
	case 90:
		a, b, c, d = 0, 1, 1, 0
	case 180:
		a, b, c, d = -1, 0, 0, 1
	case 270:
		a, b, c, d = 0, -1, -1, 0
	default:
		a, b, c, d = 1, 0, 0, -1
	}

	s := g.Scale
	w, h := g.UnscaledWidth(), g.UnscaledHeight()
	cx := g.OffsetX + w/2
	cy := g.OffsetY + h/2

	var ox, oy float64
	if a == 0 {
		ox = h / 2 * s
		oy = w / 2 * s
	} else {
		ox = w / 2 * s
		oy = h / 2 * s
	}

	return matrix.Matrix{
		a * s, b * s,
		c * s, d * s,
		ox - a*s*cx - c*s*cy,
		oy - b*s*cx - d*s*cy,
	}
}

// PixelToDocument maps a pixel position to top-left document coordinates.
func PixelToDocument(px, py float64, g PageGeometry) (x, yTopLeft float64) {
	x, y := g.Transform().Inv().Apply(px, py)
	return x, g.UnscaledHeight() - y
}

// DocumentToBottomLeft flips the y axis of a top-left document point.
func DocumentToBottomLeft(x, yTopLeft float64, g PageGeometry) (float64, float64) {
	return x, g.UnscaledHeight() - yTopLeft
}

// BottomLeftToPixel applies the viewport projection to a bottom-left
// document point.
func BottomLeftToPixel(x, yBottomLeft float64, g PageGeometry) (px, py float64) {
	return g.Transform().Apply(x, yBottomLeft)
}
