package geometry

import (
	"math"
	"testing"

	"seehuhn.de/go/geom/vec"
)

const tolerance = 1e-6

func near(a, b float64) bool {
	return math.Abs(a-b) <= tolerance
}

func TestScenarioProjection(t *testing.T) {
	g := PageGeometry{PageNumber: 1, Scale: 1.5, ViewportWidth: 900, ViewportHeight: 1200}

	if got := g.UnscaledHeight(); got != 800 {
		t.Fatalf("Expected unscaled height 800, got %v", got)
	}

	x, yBL := DocumentToBottomLeft(100, 50, g)
	if x != 100 || yBL != 750 {
		t.Errorf("Expected bottom-left point (100, 750), got (%v, %v)", x, yBL)
	}

	px, py := BottomLeftToPixel(x, yBL, g)
	if !near(px, 150) || !near(py, 75) {
		t.Errorf("Expected pixel point (150, 75), got (%v, %v)", px, py)
	}

	r := ProjectRect(Rect{X: 100, Y: 50, Width: 40, Height: 20}, g)
	want := Rect{X: 150, Y: 75, Width: 60, Height: 30}
	if !near(r.X, want.X) || !near(r.Y, want.Y) || !near(r.Width, want.Width) || !near(r.Height, want.Height) {
		t.Errorf("Expected %+v, got %+v", want, r)
	}
}

func TestPixelToDocumentUnrotated(t *testing.T) {
	g := PageGeometry{PageNumber: 3, Scale: 2, ViewportWidth: 1224, ViewportHeight: 1584}
	x, y := PixelToDocument(300, 100, g)
	if !near(x, 150) || !near(y, 50) {
		t.Errorf("Expected (150, 50), got (%v, %v)", x, y)
	}
}

func TestRoundTrip(t *testing.T) {
	geometries := []PageGeometry{
		{PageNumber: 1, Scale: 1.5, ViewportWidth: 900, ViewportHeight: 1200},
		{PageNumber: 2, Scale: 0.25, ViewportWidth: 153, ViewportHeight: 198},
		{PageNumber: 3, Scale: 3.3333, ViewportWidth: 2040, ViewportHeight: 2640},
		{PageNumber: 4, Scale: 1, ViewportWidth: 792, ViewportHeight: 612, Rotation: 90},
		{PageNumber: 5, Scale: 1.2, ViewportWidth: 734.4, ViewportHeight: 950.4, Rotation: 180},
		{PageNumber: 6, Scale: 2, ViewportWidth: 1584, ViewportHeight: 1224, Rotation: 270},
		{PageNumber: 7, Scale: 1, ViewportWidth: 612, ViewportHeight: 792, OffsetX: 10, OffsetY: -20},
	}
	points := [][2]float64{{0, 0}, {150, 75}, {899.5, 1199.5}, {-12, 33}, {1e5, 3.25}}

	for _, g := range geometries {
		for _, p := range points {
			x, y := PixelToDocument(p[0], p[1], g)
			bx, by := DocumentToBottomLeft(x, y, g)
			px, py := BottomLeftToPixel(bx, by, g)
			if !near(px, p[0]) || !near(py, p[1]) {
				t.Errorf("page %d: round trip of %v gave (%v, %v)", g.PageNumber, p, px, py)
			}
		}
	}
}

func TestRotatedPageCorners(t *testing.T) {
	// A 612x792 page shown rotated by 90 degrees at scale 1.
	g := PageGeometry{PageNumber: 1, Scale: 1, ViewportWidth: 792, ViewportHeight: 612, Rotation: 90}

	if got := g.UnscaledHeight(); got != 792 {
		t.Fatalf("Expected unscaled height 792, got %v", got)
	}

	// The document's top-left corner ends up at the viewport's top-right.
	bx, by := DocumentToBottomLeft(0, 0, g)
	px, py := BottomLeftToPixel(bx, by, g)
	if !near(px, 792) || !near(py, 0) {
		t.Errorf("Expected (792, 0), got (%v, %v)", px, py)
	}
}

func TestNonFinitePropagates(t *testing.T) {
	g := PageGeometry{PageNumber: 1, Scale: 1.5, ViewportWidth: 900, ViewportHeight: 1200}

	x, y := PixelToDocument(math.NaN(), 10, g)
	if !math.IsNaN(x) {
		t.Errorf("Expected NaN x, got %v (y=%v)", x, y)
	}

	px, _ := BottomLeftToPixel(math.Inf(1), 0, g)
	if !math.IsInf(px, 1) {
		t.Errorf("Expected +Inf, got %v", px)
	}
}

func TestNormalizeBBox(t *testing.T) {
	tests := []struct {
		name string
		box  [4]float64
		want Rect
	}{
		{"ordered corners", [4]float64{10, 10, 50, 30}, Rect{X: 10, Y: 10, Width: 40, Height: 20}},
		{"swapped corners", [4]float64{50, 30, 10, 10}, Rect{X: 10, Y: 10, Width: 40, Height: 20}},
		{"mixed corners", [4]float64{50, 10, 10, 30}, Rect{X: 10, Y: 10, Width: 40, Height: 20}},
		{"degenerate", [4]float64{5, 5, 5, 9}, Rect{X: 5, Y: 5, Width: 0, Height: 4}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizeBBox(tt.box); got != tt.want {
				t.Errorf("Expected %+v, got %+v", tt.want, got)
			}
		})
	}
}

func TestValid(t *testing.T) {
	tests := []struct {
		name string
		g    PageGeometry
		want bool
	}{
		{"ok", PageGeometry{PageNumber: 1, Scale: 1, ViewportWidth: 10, ViewportHeight: 10}, true},
		{"zero scale", PageGeometry{PageNumber: 1, Scale: 0, ViewportWidth: 10, ViewportHeight: 10}, false},
		{"page zero", PageGeometry{PageNumber: 0, Scale: 1, ViewportWidth: 10, ViewportHeight: 10}, false},
		{"infinite height", PageGeometry{PageNumber: 1, Scale: 1, ViewportWidth: 10, ViewportHeight: math.Inf(1)}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.g.Valid(); got != tt.want {
				t.Errorf("Expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestTransformInverse(t *testing.T) {
	for _, rot := range []int{0, 90, 180, 270} {
		g := PageGeometry{PageNumber: 1, Scale: 2, ViewportWidth: 1200, ViewportHeight: 1600, Rotation: rot}
		if rot == 90 || rot == 270 {
			g.ViewportWidth, g.ViewportHeight = g.ViewportHeight, g.ViewportWidth
		}

		m := g.Transform()
		p := vec.Vec2{X: 123.5, Y: 456.25}
		bx, by := m.Inv().Apply(m.Apply(p.X, p.Y))
		back := vec.Vec2{X: bx, Y: by}
		if !near(back.X, p.X) || !near(back.Y, p.Y) {
			t.Errorf("rotation %d: expected %v, got %v", rot, p, back)
		}
	}
}
