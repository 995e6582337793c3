package export

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/lehigh-university-libraries/planmarks/internal/annotations"
	"gopkg.in/yaml.v3"
)

func sampleDocument() *annotations.Document {
	doc := annotations.New()
	doc.AddRecord(3, annotations.Record{Type: "single_swing", X: 10, Y: 10, Width: 40, Height: 20, Text: "D-101"})
	doc.AddRecord(1, annotations.Record{Type: annotations.LegendType, X: 20, Y: 30, Width: 300, Height: 140, Text: "DOOR TYPES"})
	doc.AddRecord(1, annotations.Record{Type: "single_swing", X: 1.25, Y: 2.5, Width: 0, Height: 3})
	return doc
}

func TestRows(t *testing.T) {
	rows := Rows("A-101.pdf", sampleDocument())
	if len(rows) != 3 {
		t.Fatalf("Expected 3 rows, got %d", len(rows))
	}
	if rows[0].Page != 1 || rows[0].Type != annotations.LegendType || rows[2].Page != 3 {
		t.Errorf("Expected rows in page order, got %+v", rows)
	}
}

func TestParquetRoundTrip(t *testing.T) {
	doc := sampleDocument()

	var buf bytes.Buffer
	if err := WriteParquet(&buf, "A-101.pdf", doc); err != nil {
		t.Fatalf("WriteParquet failed: %v", err)
	}

	rows, err := ReadParquet(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	if err != nil {
		t.Fatalf("ReadParquet failed: %v", err)
	}
	if diff := cmp.Diff(Rows("A-101.pdf", doc), rows); diff != "" {
		t.Errorf("rows mismatch (-want +got):\n%s", diff)
	}

	if got, want := annotations.ToWireFormat(Document(rows)), annotations.ToWireFormat(doc); got != want {
		t.Errorf("Expected the rebuilt document to serialize identically:\n%s\n---\n%s", want, got)
	}
}

func TestWriteYAML(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteYAML(&buf, "A-101.pdf", sampleDocument()); err != nil {
		t.Fatalf("WriteYAML failed: %v", err)
	}

	var got Summary
	if err := yaml.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("Failed to parse yaml: %v", err)
	}

	if got.Document != "A-101.pdf" || got.Records != 3 {
		t.Errorf("Unexpected header %+v", got)
	}
	if diff := cmp.Diff(map[string]int{"single_swing": 2, "legend": 1}, got.ByType); diff != "" {
		t.Errorf("counts mismatch (-want +got):\n%s", diff)
	}
	if len(got.Pages) != 2 || got.Pages[0].Number != 1 || len(got.Pages[0].Annotations) != 2 {
		t.Errorf("Unexpected pages %+v", got.Pages)
	}
	if !strings.Contains(buf.String(), "text: DOOR TYPES") {
		t.Errorf("Expected legend text in output, got:\n%s", buf.String())
	}
}

func TestWriteFile(t *testing.T) {
	dir := t.TempDir()
	doc := sampleDocument()

	parquetPath := filepath.Join(dir, "out", "a.parquet")
	if err := WriteFile(parquetPath, "A-101.pdf", doc); err != nil {
		t.Fatalf("WriteFile parquet failed: %v", err)
	}
	rows, err := ReadParquetFile(parquetPath)
	if err != nil {
		t.Fatalf("ReadParquetFile failed: %v", err)
	}
	if len(rows) != 3 {
		t.Errorf("Expected 3 rows, got %d", len(rows))
	}

	if err := WriteFile(filepath.Join(dir, "a.yml"), "A-101.pdf", doc); err != nil {
		t.Errorf("WriteFile yaml failed: %v", err)
	}
	if err := WriteFile(filepath.Join(dir, "a.csv"), "A-101.pdf", doc); err == nil {
		t.Error("Expected an error for an unsupported format")
	}
}
