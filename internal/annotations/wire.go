package annotations

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"
	"unicode/utf8"
)

// Persisted form:
//
//	<annotations>
//	  <page number="1">
//	    <annotation type="door" x="10.00" y="10.00" width="40.00" height="20.00">
//	      <text>D-101</text>
//	    </annotation>
//	  </page>
//	</annotations>

type wireRoot struct {
	XMLName xml.Name   `xml:"annotations"`
	Pages   []wirePage `xml:"page"`
}

type wirePage struct {
	Number      string           `xml:"number,attr"`
	Annotations []wireAnnotation `xml:"annotation"`
}

type wireAnnotation struct {
	Type   string  `xml:"type,attr"`
	X      string  `xml:"x,attr"`
	Y      string  `xml:"y,attr"`
	Width  string  `xml:"width,attr"`
	Height string  `xml:"height,attr"`
	Text   *string `xml:"text,omitempty"`
}

// ParseStatus tells whether a document came from the input or is the empty
// stand-in used when the input could not be read.
type ParseStatus int

const (
	Parsed ParseStatus = iota
	Empty
)

func (s ParseStatus) String() string {
	if s == Parsed {
		return "parsed"
	}
	return "empty"
}

// ParseResult is the outcome of FromWireFormat. Document is never nil.
type ParseResult struct {
	Document *Document
	Status   ParseStatus
	// Err is the reason for an Empty status, if there was one.
	Err error
}

// ToWireFormat serializes the document. Pages are written in ascending page
// order, numbers with two fixed decimals, and any non-ASCII character as a
// numeric reference, so unchanged documents serialize to identical bytes.
func ToWireFormat(d *Document) string {
	root := wireRoot{}
	for _, p := range d.Pages() {
		page := wirePage{Number: strconv.Itoa(p)}
		for _, r := range d.pages[p] {
			a := wireAnnotation{
				Type:   r.Type,
				X:      formatCoord(r.X),
				Y:      formatCoord(r.Y),
				Width:  formatCoord(r.Width),
				Height: formatCoord(r.Height),
			}
			if r.Text != "" {
				text := r.Text
				a.Text = &text
			}
			page.Annotations = append(page.Annotations, a)
		}
		root.Pages = append(root.Pages, page)
	}

	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	enc := xml.NewEncoder(&buf)
	enc.Indent("", "  ")
	if err := enc.Encode(root); err != nil {
		// Only string fields are encoded, so this cannot happen.
		panic(fmt.Sprintf("annotations: encode: %v", err))
	}
	buf.WriteByte('\n')
	return asciiOnly(buf.String())
}

// FromWireFormat parses a persisted document. Malformed input never fails:
// it yields an empty document with Status Empty. Unparseable numbers default
// to zero and pages without a valid number are skipped.
func FromWireFormat(text string) ParseResult {
	var root wireRoot
	if err := xml.Unmarshal([]byte(text), &root); err != nil {
		slog.Warn("Malformed annotation document, starting empty", "err", err)
		return ParseResult{Document: New(), Status: Empty, Err: err}
	}

	doc := New()
	for _, page := range root.Pages {
		number, err := strconv.Atoi(strings.TrimSpace(page.Number))
		if err != nil || number < 1 {
			slog.Warn("Skipping page with invalid number", "number", page.Number)
			continue
		}
		doc.ensurePage(number)
		for _, a := range page.Annotations {
			r := Record{
				Type:   a.Type,
				X:      parseCoord(a.X),
				Y:      parseCoord(a.Y),
				Width:  parseCoord(a.Width),
				Height: parseCoord(a.Height),
			}
			if a.Text != nil {
				r.Text = *a.Text
			}
			doc.AddRecord(number, r)
		}
	}
	return ParseResult{Document: doc, Status: Parsed}
}

func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

func parseCoord(s string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

// asciiOnly replaces every non-ASCII rune with a character reference. It is
// applied to encoder output, where such runes only occur in attribute
// values and character data.
func asciiOnly(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); {
		c := s[i]
		if c < utf8.RuneSelf {
			b.WriteByte(c)
			i++
			continue
		}
		r, size := utf8.DecodeRuneInString(s[i:])
		fmt.Fprintf(&b, "&#x%X;", r)
		i += size
	}
	return b.String()
}
