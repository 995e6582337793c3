package overlay

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"strconv"
	"strings"
)

// SVG renders a layer as a standalone SVG document sized to the viewport,
// suitable for stacking on top of the rendered page image.
func SVG(layer Layer) string {
	w := formatFloat(layer.Geometry.ViewportWidth)
	h := formatFloat(layer.Geometry.ViewportHeight)

	var builder strings.Builder
	builder.WriteString(`<?xml version="1.0" encoding="UTF-8"?>` + "\n")
	builder.WriteString(fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" class="annotation-svg-overlay" width="%s" height="%s" viewBox="0 0 %s %s">`, w, h, w, h))
	builder.WriteString("\n")

	for _, s := range layer.Shapes {
		builder.WriteString("  ")
		builder.WriteString(svgElement(s))
		builder.WriteString("\n")
	}

	builder.WriteString(`</svg>`)
	return builder.String()
}

func svgElement(s Shape) string {
	switch s.Kind {
	case KindLabel:
		return fmt.Sprintf(`<text x="%s" y="%s" fill="%s" font-size="%spx" font-weight="600" font-family="Arial, sans-serif" class="%s">%s</text>`,
			formatFloat(s.Rect.X), formatFloat(s.Rect.Y), s.Fill, formatFloat(s.FontSize), escape(s.Class), escape(s.Text))
	default:
		var extra string
		if s.CornerRad > 0 {
			extra = fmt.Sprintf(` rx="%s"`, formatFloat(s.CornerRad))
		}
		if s.Class != "" {
			extra += fmt.Sprintf(` class="%s"`, escape(s.Class))
		}
		return fmt.Sprintf(`<rect x="%s" y="%s" width="%s" height="%s" fill="%s" stroke="%s" stroke-width="%s"%s/>`,
			formatFloat(s.Rect.X), formatFloat(s.Rect.Y), formatFloat(s.Rect.Width), formatFloat(s.Rect.Height),
			s.Fill, s.Stroke, formatFloat(s.StrokeWidth), extra)
	}
}

func escape(s string) string {
	var buf bytes.Buffer
	_ = xml.EscapeText(&buf, []byte(s))
	return buf.String()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
