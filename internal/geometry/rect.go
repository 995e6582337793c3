package geometry

import "math"

// Rect is an axis-aligned rectangle given by its top-left corner. In
// document space the units are unscaled page units, in pixel space they are
// viewport pixels.
type Rect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// NormalizeBBox turns a corner pair [x1, y1, x2, y2] in top-left document
// coordinates into a Rect, regardless of which corners were given.
func NormalizeBBox(b [4]float64) Rect {
	return Rect{
		X:      math.Min(b[0], b[2]),
		Y:      math.Min(b[1], b[3]),
		Width:  math.Abs(b[2] - b[0]),
		Height: math.Abs(b[3] - b[1]),
	}
}

// ProjectRect maps a top-left document rectangle to pixel space by sending
// its corners through DocumentToBottomLeft and BottomLeftToPixel. For an
// unrotated page the result is anchored at the projection of (r.X, r.Y) and
// has size r.Width*Scale by r.Height*Scale.
func ProjectRect(r Rect, g PageGeometry) Rect {
	xs := [2]float64{r.X, r.X + r.Width}
	ys := [2]float64{r.Y, r.Y + r.Height}

	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for _, x := range xs {
		for _, y := range ys {
			bx, by := DocumentToBottomLeft(x, y, g)
			px, py := BottomLeftToPixel(bx, by, g)
			minX, maxX = math.Min(minX, px), math.Max(maxX, px)
			minY, maxY = math.Min(minY, py), math.Max(maxY, py)
		}
	}
	return Rect{X: minX, Y: minY, Width: maxX - minX, Height: maxY - minY}
}
