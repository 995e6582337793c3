package extraction

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/lehigh-university-libraries/planmarks/internal/providers"
)

// LLM answers extraction requests by showing a vision model the rendered
// page and asking for the boxes of the text under the click.
type LLM struct {
	Provider    providers.Provider
	Model       string
	Temperature float64
	Pages       PageImages
}

// Extract loads the page image, prompts the model and converts the boxes it
// returns from image pixels back to document units.
func (l *LLM) Extract(ctx context.Context, req Request) (Response, error) {
	img, err := l.Pages.Load(req.DocumentPath, req.Page)
	if err != nil {
		return Response{}, err
	}

	px, py := img.ToPixel(req.X, req.Y)
	answer, err := l.Provider.ExtractText(ctx, providers.Config{
		Model:       l.Model,
		Temperature: l.Temperature,
		Prompt:      buildPrompt(req.Category, px, py, img.Width, img.Height),
		Images:      [][]byte{img.Data},
	})
	if err != nil {
		return Response{}, fmt.Errorf("failed to extract text with %s: %w", l.Model, err)
	}

	resp, err := parseAnswer(answer)
	if err != nil {
		return Response{}, err
	}

	for i, b := range resp.BBoxes {
		resp.BBoxes[i] = img.ToDocument(b)
	}
	if resp.Legend != nil {
		resp.Legend.BBox = img.ToDocument(resp.Legend.BBox)
	}

	slog.Info("Extracted regions", "model", l.Model, "page", req.Page, "category", req.Category, "boxes", len(resp.BBoxes))
	return resp, nil
}

func buildPrompt(category string, px, py float64, width, height int) string {
	return fmt.Sprintf(`You are looking at one page of an architectural drawing, %d pixels wide and %d pixels tall.

The user clicked at pixel (%.0f, %.0f) to tag it as "%s".

INSTRUCTIONS:
1. Find the word, label or tag that contains or is nearest to the clicked point
2. Return its bounding box in image pixels as [x1, y1, x2, y2], origin top-left, y down
3. If the same label appears as one region split over several lines, return one box per line
4. Transcribe the text of the region exactly as it appears
5. If the click is inside a legend or schedule table, also return the whole table's box and its title as "legend"

OUTPUT FORMAT:
Respond with JSON only:
{"bboxes": [[x1, y1, x2, y2]], "text": "...", "legend": {"bbox": [x1, y1, x2, y2], "text": "..."}}

Omit "legend" when there is none. Use an empty "bboxes" list if nothing is there.`, width, height, px, py, category)
}

// parseAnswer decodes the model's JSON, tolerating markdown code fences.
func parseAnswer(answer string) (Response, error) {
	answer = strings.TrimSpace(answer)
	answer = strings.TrimPrefix(answer, "```json")
	answer = strings.TrimPrefix(answer, "```")
	answer = strings.TrimSuffix(answer, "```")
	answer = strings.TrimSpace(answer)

	var resp Response
	if err := json.Unmarshal([]byte(answer), &resp); err != nil {
		return Response{}, fmt.Errorf("failed to parse model answer: %w", err)
	}
	return resp, nil
}
