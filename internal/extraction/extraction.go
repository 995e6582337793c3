// Package extraction defines the contract with the text-extraction service
// that turns a click on a page into the regions of text under it.
package extraction

import (
	"context"
	"encoding/json"
	"fmt"
)

// Request asks for the text regions around a point. X and Y are top-left
// document coordinates.
type Request struct {
	DocumentPath string  `json:"documentPath"`
	X            float64 `json:"x"`
	Y            float64 `json:"y"`
	Page         int     `json:"page"`
	Category     string  `json:"category"`
}

// BBox is an [x1, y1, x2, y2] box in top-left document coordinates. The
// corners may come in any order.
type BBox [4]float64

// Legend is a legend region detected alongside the primary boxes.
type Legend struct {
	BBox BBox   `json:"bbox"`
	Text string `json:"text"`
}

// Response is the extraction result. A nil Legend means none was found.
type Response struct {
	BBoxes []BBox  `json:"bboxes"`
	Text   string  `json:"text,omitempty"`
	Legend *Legend `json:"legend,omitempty"`
}

// Extractor locates the text regions under a click.
type Extractor interface {
	Extract(ctx context.Context, req Request) (Response, error)
}

// ExtractorFunc adapts a function to the Extractor interface.
type ExtractorFunc func(ctx context.Context, req Request) (Response, error)

// Extract calls f.
func (f ExtractorFunc) Extract(ctx context.Context, req Request) (Response, error) {
	return f(ctx, req)
}

type payload struct {
	BBoxes json.RawMessage `json:"bboxes"`
	Text   string          `json:"text"`
	Legend *struct {
		BBox json.RawMessage `json:"bbox"`
		Text string          `json:"text"`
	} `json:"legend"`
}

// UnmarshalJSON accepts the payload bare or wrapped as {"data": {...}}, and
// bboxes either as a list of boxes or as a single flat box.
func (r *Response) UnmarshalJSON(data []byte) error {
	var envelope struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		return fmt.Errorf("failed to decode extraction response: %w", err)
	}
	if len(envelope.Data) > 0 && string(envelope.Data) != "null" {
		data = envelope.Data
	}

	var p payload
	if err := json.Unmarshal(data, &p); err != nil {
		return fmt.Errorf("failed to decode extraction payload: %w", err)
	}

	boxes, err := decodeBBoxes(p.BBoxes)
	if err != nil {
		return err
	}
	out := Response{BBoxes: boxes, Text: p.Text}

	if p.Legend != nil && len(p.Legend.BBox) > 0 && string(p.Legend.BBox) != "null" {
		var coords []float64
		if err := json.Unmarshal(p.Legend.BBox, &coords); err != nil {
			return fmt.Errorf("failed to decode legend bbox: %w", err)
		}
		box, err := toBBox(coords)
		if err != nil {
			return fmt.Errorf("failed to decode legend bbox: %w", err)
		}
		out.Legend = &Legend{BBox: box, Text: p.Legend.Text}
	}

	*r = out
	return nil
}

func decodeBBoxes(raw json.RawMessage) ([]BBox, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}

	var nested [][]float64
	if err := json.Unmarshal(raw, &nested); err == nil {
		boxes := make([]BBox, 0, len(nested))
		for _, coords := range nested {
			box, err := toBBox(coords)
			if err != nil {
				return nil, fmt.Errorf("failed to decode bboxes: %w", err)
			}
			boxes = append(boxes, box)
		}
		return boxes, nil
	}

	var flat []float64
	if err := json.Unmarshal(raw, &flat); err != nil {
		return nil, fmt.Errorf("failed to decode bboxes: %w", err)
	}
	box, err := toBBox(flat)
	if err != nil {
		return nil, fmt.Errorf("failed to decode bboxes: %w", err)
	}
	return []BBox{box}, nil
}

// toBBox requires exactly four coordinates.
func toBBox(coords []float64) (BBox, error) {
	var box BBox
	if len(coords) != len(box) {
		return box, fmt.Errorf("bbox has %d coordinates, want %d", len(coords), len(box))
	}
	copy(box[:], coords)
	return box, nil
}
