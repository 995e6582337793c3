// Package tesseract answers extraction requests locally by running Tesseract
// over the rendered page image and picking the text line under the click.
//
// Tesseract support is compiled in with the "ocr" build tag:
//
//	go build -tags ocr
//
// Without it every request fails with ErrOCRNotEnabled.
package tesseract

import (
	"context"
	"errors"
	"image"
	"log/slog"
	"math"

	"github.com/lehigh-university-libraries/planmarks/internal/annotations"
	"github.com/lehigh-university-libraries/planmarks/internal/extraction"
)

// ErrOCRNotEnabled is returned when OCR support was not compiled in.
var ErrOCRNotEnabled = errors.New("OCR support not enabled; rebuild with -tags ocr")

// Level is the granularity of recognized regions.
type Level int

const (
	LevelWord Level = iota
	LevelLine
	LevelBlock
)

// Region is one recognized piece of text in image pixels.
type Region struct {
	Box        image.Rectangle
	Text       string
	Confidence float64
}

// maxDistance is how far, in image pixels, a click may land from a line and
// still select it.
const maxDistance = 40

// Extractor implements extraction.Extractor with Tesseract.
type Extractor struct {
	Pages    extraction.PageImages
	Language string
}

// New returns an extractor reading page images from pages.
func New(pages extraction.PageImages, language string) *Extractor {
	if language == "" {
		language = "eng"
	}
	return &Extractor{Pages: pages, Language: language}
}

// Extract recognizes the page and returns the line under the click. For the
// legend category the enclosing block is returned as the legend region.
func (e *Extractor) Extract(ctx context.Context, req extraction.Request) (extraction.Response, error) {
	img, err := e.Pages.Load(req.DocumentPath, req.Page)
	if err != nil {
		return extraction.Response{}, err
	}
	if err := ctx.Err(); err != nil {
		return extraction.Response{}, err
	}

	px, py := img.ToPixel(req.X, req.Y)
	pt := image.Pt(int(math.Round(px)), int(math.Round(py)))

	level := LevelLine
	if req.Category == annotations.LegendType {
		level = LevelBlock
	}

	regions, err := recognize(img.Data, e.Language, level)
	if err != nil {
		return extraction.Response{}, err
	}

	hit, ok := Pick(regions, pt)
	if !ok {
		slog.Debug("No text under click", "page", req.Page, "x", req.X, "y", req.Y)
		return extraction.Response{}, nil
	}

	return toResponse(img.ToDocument(toBBox(hit.Box)), hit.Text, level), nil
}

// toResponse reports a block-level hit as the legend region only, and any
// other hit as a primary box.
func toResponse(box extraction.BBox, text string, level Level) extraction.Response {
	if level == LevelBlock {
		return extraction.Response{Legend: &extraction.Legend{BBox: box, Text: text}}
	}
	return extraction.Response{BBoxes: []extraction.BBox{box}, Text: text}
}

// Pick returns the region containing pt, or else the closest region within
// maxDistance.
func Pick(regions []Region, pt image.Point) (Region, bool) {
	best := -1
	bestDist := math.Inf(1)
	for i, r := range regions {
		if r.Box.Empty() {
			continue
		}
		d := distance(r.Box, pt)
		if d < bestDist {
			best, bestDist = i, d
		}
	}
	if best < 0 || bestDist > maxDistance {
		return Region{}, false
	}
	return regions[best], true
}

func distance(r image.Rectangle, pt image.Point) float64 {
	dx := math.Max(0, math.Max(float64(r.Min.X-pt.X), float64(pt.X-r.Max.X)))
	dy := math.Max(0, math.Max(float64(r.Min.Y-pt.Y), float64(pt.Y-r.Max.Y)))
	return math.Hypot(dx, dy)
}

func toBBox(r image.Rectangle) extraction.BBox {
	return extraction.BBox{float64(r.Min.X), float64(r.Min.Y), float64(r.Max.X), float64(r.Max.Y)}
}
