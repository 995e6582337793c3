package extraction

import (
	"bytes"
	"fmt"
	"image"
	_ "image/png"
	"os"
	"path/filepath"
	"strings"
)

// DefaultDPI is the resolution page images are assumed to be rendered at.
const DefaultDPI = 150

// PageImages locates pre-rendered page images on disk. The image for page n
// of "plans/A-101.pdf" is <Dir>/A-101_p<n>.png.
type PageImages struct {
	Dir string
	DPI float64
}

// PageImage is one rendered page.
type PageImage struct {
	Path   string
	Data   []byte
	Width  int
	Height int

	// Scale is image pixels per document unit.
	Scale float64
}

// Path returns where the image for a page is expected.
func (p PageImages) Path(documentPath string, page int) string {
	base := filepath.Base(documentPath)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	return filepath.Join(p.Dir, fmt.Sprintf("%s_p%d.png", base, page))
}

// Load reads a page image and its dimensions.
func (p PageImages) Load(documentPath string, page int) (*PageImage, error) {
	path := p.Path(documentPath, page)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read page image: %w", err)
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode page image %s: %w", path, err)
	}

	dpi := p.DPI
	if dpi <= 0 {
		dpi = DefaultDPI
	}

	return &PageImage{
		Path:   path,
		Data:   data,
		Width:  cfg.Width,
		Height: cfg.Height,
		Scale:  dpi / 72,
	}, nil
}

// ToPixel maps top-left document coordinates to image pixels.
func (img *PageImage) ToPixel(x, y float64) (float64, float64) {
	return x * img.Scale, y * img.Scale
}

// ToDocument maps an image-pixel box to top-left document coordinates.
func (img *PageImage) ToDocument(b BBox) BBox {
	return BBox{b[0] / img.Scale, b[1] / img.Scale, b[2] / img.Scale, b[3] / img.Scale}
}
