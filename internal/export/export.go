// Package export writes annotation documents to analysis-friendly formats.
package export

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/lehigh-university-libraries/planmarks/internal/annotations"
	"github.com/parquet-go/parquet-go"
	"gopkg.in/yaml.v3"
)

// Row is one annotation flattened with its page number.
type Row struct {
	Document string  `json:"document" parquet:"document" yaml:"-"`
	Page     int32   `json:"page" parquet:"page" yaml:"-"`
	Type     string  `json:"type" parquet:"type" yaml:"type"`
	X        float64 `json:"x" parquet:"x" yaml:"x"`
	Y        float64 `json:"y" parquet:"y" yaml:"y"`
	Width    float64 `json:"width" parquet:"width" yaml:"width"`
	Height   float64 `json:"height" parquet:"height" yaml:"height"`
	Text     string  `json:"text" parquet:"text" yaml:"text,omitempty"`
}

// Rows flattens a document in page order.
func Rows(document string, doc *annotations.Document) []Row {
	var rows []Row
	for _, p := range doc.Pages() {
		for _, r := range doc.RecordsForPage(p) {
			rows = append(rows, Row{
				Document: document,
				Page:     int32(p),
				Type:     r.Type,
				X:        r.X,
				Y:        r.Y,
				Width:    r.Width,
				Height:   r.Height,
				Text:     r.Text,
			})
		}
	}
	return rows
}

// Document rebuilds an annotation document from rows.
func Document(rows []Row) *annotations.Document {
	doc := annotations.New()
	for _, r := range rows {
		doc.AddRecord(int(r.Page), annotations.Record{
			Type:   r.Type,
			X:      r.X,
			Y:      r.Y,
			Width:  r.Width,
			Height: r.Height,
			Text:   r.Text,
		})
	}
	return doc
}

// WriteParquet writes the document's rows as a Parquet file.
func WriteParquet(w io.Writer, document string, doc *annotations.Document) error {
	rows := Rows(document, doc)

	writer := parquet.NewGenericWriter[Row](w)
	if _, err := writer.Write(rows); err != nil {
		return fmt.Errorf("failed to write parquet rows: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to close parquet writer: %w", err)
	}

	slog.Debug("Wrote parquet export", "document", document, "rows", len(rows))
	return nil
}

// ReadParquet reads rows written by WriteParquet.
func ReadParquet(r io.ReaderAt, size int64) ([]Row, error) {
	pf, err := parquet.OpenFile(r, size)
	if err != nil {
		return nil, fmt.Errorf("failed to open parquet: %w", err)
	}

	reader := parquet.NewGenericReader[Row](pf)
	defer reader.Close()

	var out []Row
	rows := make([]Row, 128)
	for {
		n, err := reader.Read(rows)
		out = append(out, rows[:n]...)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read parquet rows: %w", err)
		}
	}
	return out, nil
}

// ReadParquetFile opens path and reads its rows.
func ReadParquetFile(path string) ([]Row, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open parquet file: %w", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}
	return ReadParquet(file, info.Size())
}

// Summary is the YAML export of a document.
type Summary struct {
	Document   string         `yaml:"document"`
	ExportedAt string         `yaml:"exportedat"`
	Records    int            `yaml:"records"`
	ByType     map[string]int `yaml:"bytype"`
	Pages      []PageSummary  `yaml:"pages"`
}

// PageSummary lists one page's records.
type PageSummary struct {
	Number      int   `yaml:"number"`
	Annotations []Row `yaml:"annotations"`
}

// Summarize builds the YAML export model.
func Summarize(document string, doc *annotations.Document) Summary {
	s := Summary{
		Document:   document,
		ExportedAt: time.Now().UTC().Format(time.RFC3339),
		ByType:     make(map[string]int),
		Pages:      []PageSummary{},
	}
	for _, p := range doc.Pages() {
		ps := PageSummary{Number: p, Annotations: []Row{}}
		for _, r := range doc.RecordsForPage(p) {
			ps.Annotations = append(ps.Annotations, Row{
				Type:   r.Type,
				X:      r.X,
				Y:      r.Y,
				Width:  r.Width,
				Height: r.Height,
				Text:   r.Text,
			})
			s.ByType[r.Type]++
			s.Records++
		}
		s.Pages = append(s.Pages, ps)
	}
	return s
}

// WriteYAML writes the YAML export.
func WriteYAML(w io.Writer, document string, doc *annotations.Document) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(Summarize(document, doc)); err != nil {
		return fmt.Errorf("failed to encode yaml: %w", err)
	}
	return enc.Close()
}

// WriteFile picks the format from the file extension (.parquet, .yaml, .yml).
func WriteFile(path, document string, doc *annotations.Document) error {
	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".parquet" && ext != ".yaml" && ext != ".yml" {
		return fmt.Errorf("unsupported export format: %s (supported: .parquet, .yaml)", ext)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create export directory: %w", err)
	}
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create export file: %w", err)
	}
	defer file.Close()

	if ext == ".parquet" {
		err = WriteParquet(file, document, doc)
	} else {
		err = WriteYAML(file, document, doc)
	}
	if err != nil {
		return err
	}
	return file.Close()
}
