package annotations

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestRecordsForPage(t *testing.T) {
	doc := New()
	if got := doc.RecordsForPage(4); len(got) != 0 {
		t.Fatalf("Expected no records for absent page, got %d", len(got))
	}

	doc.AddRecord(2, Record{Type: "door", X: 1, Y: 2, Width: 3, Height: 4})
	doc.AddRecord(2, Record{Type: "door", X: 1, Y: 2, Width: 3, Height: 4})
	doc.AddRecord(2, Record{Type: "frame", X: 5, Y: 6, Width: 0, Height: 0})

	got := doc.RecordsForPage(2)
	if len(got) != 3 {
		t.Fatalf("Expected 3 records (duplicates allowed), got %d", len(got))
	}
	if got[2].Type != "frame" {
		t.Errorf("Expected insertion order to be kept, last record is %q", got[2].Type)
	}

	got[0].Type = "mutated"
	if doc.RecordsForPage(2)[0].Type != "door" {
		t.Error("RecordsForPage must not expose internal storage")
	}
}

func TestAddRecordRoundsToPersistedPrecision(t *testing.T) {
	doc := New()
	doc.AddRecord(1, Record{Type: "hw_set", X: 10.006, Y: 3.14159, Width: 2.499, Height: 7})

	want := Record{Type: "hw_set", X: 10.01, Y: 3.14, Width: 2.5, Height: 7}
	if diff := cmp.Diff(want, doc.RecordsForPage(1)[0]); diff != "" {
		t.Errorf("record mismatch (-want +got):\n%s", diff)
	}
}

func TestWireFormatRoundTrip(t *testing.T) {
	doc := New()
	doc.AddRecord(3, Record{Type: "single_swing", X: 412.5, Y: 80.25, Width: 12, Height: 8.125, Text: "D-101"})
	doc.AddRecord(1, Record{Type: "building_room_name", X: 0.333, Y: 1, Width: 0, Height: 5})
	doc.AddRecord(1, Record{Type: LegendType, X: 20, Y: 30, Width: 300, Height: 140, Text: "DOOR TYPES, siehe Türliste <A> & \"B\""})
	doc.AddRecord(12, Record{Type: "hw_set", X: -4, Y: 999.99, Width: 1, Height: 1, Text: "  padded\ntext "})

	wire := ToWireFormat(doc)
	res := FromWireFormat(wire)
	if res.Status != Parsed {
		t.Fatalf("Expected parsed status, got %v (%v)", res.Status, res.Err)
	}

	for _, p := range []int{1, 3, 12} {
		if diff := cmp.Diff(doc.RecordsForPage(p), res.Document.RecordsForPage(p)); diff != "" {
			t.Errorf("page %d mismatch (-want +got):\n%s", p, diff)
		}
	}
	if diff := cmp.Diff(doc.Pages(), res.Document.Pages()); diff != "" {
		t.Errorf("pages mismatch (-want +got):\n%s", diff)
	}
}

func TestToWireFormatIsStable(t *testing.T) {
	doc := New()
	doc.AddRecord(2, Record{Type: "door", X: 10, Y: 10, Width: 40, Height: 20, Text: "Büro 2.14"})
	doc.AddRecord(1, Record{Type: "ta", X: 1.5, Y: 2.25, Width: 3, Height: 4})

	first := ToWireFormat(doc)
	second := ToWireFormat(FromWireFormat(first).Document)
	if first != second {
		t.Errorf("Expected byte-identical output after reload:\n%s\n---\n%s", first, second)
	}

	for i := 0; i < len(first); i++ {
		if first[i] > 127 {
			t.Fatalf("Expected ASCII output, found byte %#x at %d", first[i], i)
		}
	}

	if !strings.Contains(first, `x="10.00" y="10.00" width="40.00" height="20.00"`) {
		t.Errorf("Expected fixed two-decimal attributes, got:\n%s", first)
	}
	if strings.Index(first, `number="1"`) > strings.Index(first, `number="2"`) {
		t.Errorf("Expected pages in ascending order, got:\n%s", first)
	}
}

func TestEmptyDocumentWireFormat(t *testing.T) {
	wire := ToWireFormat(New())
	if !strings.Contains(wire, "<annotations></annotations>") {
		t.Errorf("Expected empty annotations root, got %q", wire)
	}
}

func TestFromWireFormatFailSoft(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"not xml", "not xml"},
		{"empty", ""},
		{"wrong root", `<?xml version="1.0"?><highlights><page number="1"/></highlights>`},
		{"truncated", `<annotations><page number="1"><annotation type="door"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := FromWireFormat(tt.input)
			if res.Status != Empty {
				t.Errorf("Expected Empty status, got %v", res.Status)
			}
			if res.Document == nil {
				t.Fatal("Expected a usable document")
			}
			if n := len(res.Document.Pages()); n != 0 {
				t.Errorf("Expected zero pages, got %d", n)
			}
		})
	}
}

func TestFromWireFormatBadNumbers(t *testing.T) {
	input := `<annotations>
  <page number="2">
    <annotation type="door" x="abc" y="12.50" width="" height="4"><text>ok</text></annotation>
  </page>
  <page number="zero"><annotation type="frame" x="1" y="1" width="1" height="1"/></page>
  <page number="5"></page>
</annotations>`

	res := FromWireFormat(input)
	if res.Status != Parsed {
		t.Fatalf("Expected parsed status, got %v", res.Status)
	}

	want := []Record{{Type: "door", X: 0, Y: 12.5, Width: 0, Height: 4, Text: "ok"}}
	if diff := cmp.Diff(want, res.Document.RecordsForPage(2)); diff != "" {
		t.Errorf("record mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]int{2, 5}, res.Document.Pages()); diff != "" {
		t.Errorf("pages mismatch (-want +got):\n%s", diff)
	}
}

func TestFromWireFormatNonFiniteNumbers(t *testing.T) {
	input := `<annotations><page number="1">
  <annotation type="door" x="NaN" y="Inf" width="-Inf" height="+infinity"/>
</page></annotations>`

	res := FromWireFormat(input)
	want := []Record{{Type: "door"}}
	if diff := cmp.Diff(want, res.Document.RecordsForPage(1)); diff != "" {
		t.Errorf("record mismatch (-want +got):\n%s", diff)
	}
}

func TestAddRecordIgnoresInvalidPages(t *testing.T) {
	doc := New()
	doc.AddRecord(0, Record{Type: "door", X: 1, Y: 1, Width: 1, Height: 1})
	doc.AddRecord(-3, Record{Type: "door"})
	doc.AddRecord(1, Record{Type: "frame"})

	if diff := cmp.Diff([]int{1}, doc.Pages()); diff != "" {
		t.Errorf("pages mismatch (-want +got):\n%s", diff)
	}

	reloaded := FromWireFormat(ToWireFormat(doc)).Document
	if reloaded.Len() != doc.Len() {
		t.Errorf("Expected %d records after reload, got %d", doc.Len(), reloaded.Len())
	}
}
