// Package annotations holds the per-document set of tagged rectangles,
// grouped by page, and its persisted XML form.
package annotations

import (
	"log/slog"
	"math"
	"sort"
)

// LegendType is the record type used for legend regions.
const LegendType = "legend"

// Record is one tagged rectangle. Coordinates are unscaled document units
// with the origin at the top-left of the page, so they do not depend on the
// zoom level the record was created at.
type Record struct {
	Type   string  `json:"type" yaml:"type"`
	X      float64 `json:"x" yaml:"x"`
	Y      float64 `json:"y" yaml:"y"`
	Width  float64 `json:"width" yaml:"width"`
	Height float64 `json:"height" yaml:"height"`
	Text   string  `json:"text,omitempty" yaml:"text,omitempty"`
}

// IsLegend reports whether the record is a legend region.
func (r Record) IsLegend() bool {
	return r.Type == LegendType
}

// Document maps page numbers to the records drawn on that page, in the order
// they were added. Records are never removed.
type Document struct {
	pages map[int][]Record
}

// New returns an empty document.
func New() *Document {
	return &Document{pages: make(map[int][]Record)}
}

// RecordsForPage returns a copy of the records on a page in insertion order.
// Later records paint over earlier ones. A page without records yields an
// empty slice.
func (d *Document) RecordsForPage(page int) []Record {
	records := d.pages[page]
	out := make([]Record, len(records))
	copy(out, records)
	return out
}

// AddRecord appends a record to a page, creating the page if needed. Page
// numbers start at 1; records for other pages are dropped. Zero-area
// rectangles are accepted. Coordinates are kept at the two-decimal
// precision they are persisted with, so the in-memory document always
// matches what a reload would produce.
func (d *Document) AddRecord(page int, r Record) {
	if page < 1 {
		slog.Warn("Dropping annotation for invalid page", "page", page, "type", r.Type)
		return
	}
	if d.pages == nil {
		d.pages = make(map[int][]Record)
	}
	r.X = round2(r.X)
	r.Y = round2(r.Y)
	r.Width = round2(r.Width)
	r.Height = round2(r.Height)
	d.pages[page] = append(d.pages[page], r)
}

// Pages returns the page numbers that have an entry, in ascending order.
func (d *Document) Pages() []int {
	pages := make([]int, 0, len(d.pages))
	for p := range d.pages {
		pages = append(pages, p)
	}
	sort.Ints(pages)
	return pages
}

// Len returns the total number of records across all pages.
func (d *Document) Len() int {
	n := 0
	for _, records := range d.pages {
		n += len(records)
	}
	return n
}

// Clone returns a deep copy.
func (d *Document) Clone() *Document {
	c := New()
	for p, records := range d.pages {
		c.pages[p] = append([]Record(nil), records...)
	}
	return c
}

// ensurePage creates an empty entry for a page so that empty <page>
// elements survive a load/save cycle.
func (d *Document) ensurePage(page int) {
	if _, ok := d.pages[page]; !ok {
		d.pages[page] = []Record{}
	}
}

func round2(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return v
	}
	return math.Round(v*100) / 100
}
