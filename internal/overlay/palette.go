package overlay

import (
	"fmt"
	"image/color"
	"strings"
)

// Paint is a color with an opacity. A zero Opacity means "no paint".
type Paint struct {
	Color   color.NRGBA
	Opacity float64
}

// None reports whether nothing is painted.
func (p Paint) None() bool {
	return p.Opacity <= 0
}

// String renders the paint as a CSS/SVG color value.
func (p Paint) String() string {
	if p.None() {
		return "none"
	}
	return fmt.Sprintf("rgba(%d, %d, %d, %s)", p.Color.R, p.Color.G, p.Color.B, formatFloat(p.Opacity))
}

// WithOpacity returns the same color at a different opacity.
func (p Paint) WithOpacity(o float64) Paint {
	p.Opacity = o
	return p
}

// MarshalText lets shapes serialize paints as their CSS form.
func (p Paint) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// ParsePaint reads "rgba(r, g, b, a)", "rgb(r, g, b)" or "#rrggbb". Colors
// without an alpha get the default fill opacity.
func ParsePaint(s string) (Paint, error) {
	s = strings.ReplaceAll(strings.TrimSpace(s), " ", "")
	var r, g, b int
	var a float64
	switch {
	case strings.HasPrefix(s, "rgba("):
		if _, err := fmt.Sscanf(s, "rgba(%d,%d,%d,%g)", &r, &g, &b, &a); err != nil {
			return Paint{}, fmt.Errorf("invalid rgba color %q: %w", s, err)
		}
	case strings.HasPrefix(s, "rgb("):
		if _, err := fmt.Sscanf(s, "rgb(%d,%d,%d)", &r, &g, &b); err != nil {
			return Paint{}, fmt.Errorf("invalid rgb color %q: %w", s, err)
		}
		a = fillOpacity
	case strings.HasPrefix(s, "#") && len(s) == 7:
		if _, err := fmt.Sscanf(s, "#%02x%02x%02x", &r, &g, &b); err != nil {
			return Paint{}, fmt.Errorf("invalid hex color %q: %w", s, err)
		}
		a = fillOpacity
	default:
		return Paint{}, fmt.Errorf("unsupported color %q", s)
	}
	for _, c := range []int{r, g, b} {
		if c < 0 || c > 255 {
			return Paint{}, fmt.Errorf("color component out of range in %q", s)
		}
	}
	if a < 0 || a > 1 {
		return Paint{}, fmt.Errorf("opacity out of range in %q", s)
	}
	return Paint{Color: color.NRGBA{R: uint8(r), G: uint8(g), B: uint8(b), A: 255}, Opacity: a}, nil
}

const fillOpacity = 0.4

func rgba(r, g, b uint8, a float64) Paint {
	return Paint{Color: color.NRGBA{R: r, G: g, B: b, A: 255}, Opacity: a}
}

// Category is one selectable annotation tool.
type Category struct {
	ID    string `json:"id" yaml:"id"`
	Label string `json:"label" yaml:"label"`
	Name  string `json:"name" yaml:"name"`
	Group string `json:"group" yaml:"group"`
}

// Categories lists the tools offered to the user, grouped by panel.
var Categories = []Category{
	{"site_building", "BL", "Building", "site"},

	{"building_floor", "FL", "Floor", "building"},
	{"building_room_name", "RN", "Room Name", "building"},
	{"building_room_number", "R#", "Room Number", "building"},
	{"building_unit_name", "UN", "Unit Name", "building"},
	{"building_unit_number", "U#", "Unit Number", "building"},
	{"building_unit_bath_name", "BN", "Unit Bath Name", "building"},
	{"building_unit_bath_number", "B#", "Unit Bath Number", "building"},
	{"building_opening_number", "O#", "Opening Number", "building"},
	{"building_wall_type", "WT", "Wall Type", "building"},
	{"building_ada", "ADA", "ADA", "building"},
	{"building_connecting", "CN", "Connecting", "building"},
	{"building_balcony", "BC", "Balcony", "building"},
	{"building_ta_tag", "TA", "TA Tag", "building"},

	{"single_swing", "SW1", "Single Swing", "door"},
	{"double_swing", "SW2", "Double Swing", "door"},
	{"double_bypass", "BP2", "Double Bypass", "door"},
	{"triple_bypass", "BP3", "Triple Bypass", "door"},
	{"quad_bypass", "BP4", "Quad Bypass", "door"},
	{"single_barn", "BR1", "Single Barn", "door"},
	{"double_barn", "BR2", "Double Barn", "door"},
	{"single_bifold", "BF1", "Single Bifold", "door"},
	{"double_bifold", "BF2", "Double Bifold", "door"},
	{"single_pocket", "P01", "Single Pocket", "door"},
	{"double_pocket", "P02", "Double Pocket", "door"},

	{"wrap_around", "WR", "Wrap Around", "frame"},
	{"butt", "BT", "Butt", "frame"},

	{"hw_set", "HW", "HW Set", "hw"},
}

// Palette maps a record type to its fill paint. Types without an entry use
// Default.
type Palette struct {
	Default Paint
	Colors  map[string]Paint
}

var groupColors = map[string]Paint{
	"site":     rgba(135, 123, 152, fillOpacity),
	"building": rgba(195, 190, 92, fillOpacity),
	"door":     rgba(90, 102, 98, fillOpacity),
	"frame":    rgba(101, 151, 132, fillOpacity),
	"hw":       rgba(119, 140, 151, fillOpacity),
}

// DefaultPalette returns the built-in category colors.
func DefaultPalette() Palette {
	p := Palette{
		Default: rgba(255, 255, 0, fillOpacity),
		Colors: map[string]Paint{
			"legend": rgba(203, 175, 206, fillOpacity),
			"box":    rgba(0, 123, 255, 0.15),
		},
	}
	for _, c := range Categories {
		p.Colors[c.ID] = groupColors[c.Group]
	}
	return p
}

// Lookup returns the fill paint for a record type.
func (p Palette) Lookup(recordType string) Paint {
	if c, ok := p.Colors[recordType]; ok {
		return c
	}
	return p.Default
}

// Override returns a copy of the palette with the given CSS colors applied.
func (p Palette) Override(colors map[string]string) (Palette, error) {
	out := Palette{Default: p.Default, Colors: make(map[string]Paint, len(p.Colors)+len(colors))}
	for k, v := range p.Colors {
		out.Colors[k] = v
	}
	for k, v := range colors {
		paint, err := ParsePaint(v)
		if err != nil {
			return p, fmt.Errorf("palette entry %s: %w", k, err)
		}
		if k == "default" {
			out.Default = paint
			continue
		}
		out.Colors[k] = paint
	}
	return out, nil
}
