package tesseract

import (
	"image"
	"testing"

	"github.com/lehigh-university-libraries/planmarks/internal/extraction"
)

func TestPick(t *testing.T) {
	regions := []Region{
		{Box: image.Rect(10, 10, 110, 30), Text: "ROOM 101"},
		{Box: image.Rect(10, 50, 60, 70), Text: "D-12"},
		{Box: image.Rectangle{}, Text: "empty"},
	}

	tests := []struct {
		name   string
		pt     image.Point
		want   string
		wantOK bool
	}{
		{"inside first", image.Pt(50, 20), "ROOM 101", true},
		{"inside second", image.Pt(20, 60), "D-12", true},
		{"near second", image.Pt(80, 65), "D-12", true},
		{"between picks closer", image.Pt(30, 36), "ROOM 101", true},
		{"too far", image.Pt(500, 500), "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Pick(regions, tt.pt)
			if ok != tt.wantOK {
				t.Fatalf("Expected ok=%v, got %v", tt.wantOK, ok)
			}
			if got.Text != tt.want {
				t.Errorf("Expected %q, got %q", tt.want, got.Text)
			}
		})
	}
}

func TestPickNoRegions(t *testing.T) {
	if _, ok := Pick(nil, image.Pt(0, 0)); ok {
		t.Error("Expected no pick without regions")
	}
}

func TestNewDefaultsLanguage(t *testing.T) {
	if e := New(extraction.PageImages{}, ""); e.Language != "eng" {
		t.Errorf("Expected eng, got %q", e.Language)
	}
}

func TestToResponse(t *testing.T) {
	box := extraction.BBox{10, 10, 50, 30}

	line := toResponse(box, "D-12", LevelLine)
	if len(line.BBoxes) != 1 || line.Text != "D-12" || line.Legend != nil {
		t.Errorf("Expected one primary box, got %+v", line)
	}

	block := toResponse(box, "DOOR SCHEDULE", LevelBlock)
	if len(block.BBoxes) != 0 {
		t.Errorf("Expected no primary boxes for a legend block, got %v", block.BBoxes)
	}
	if block.Legend == nil || block.Legend.BBox != box || block.Legend.Text != "DOOR SCHEDULE" {
		t.Errorf("Expected the block as legend, got %+v", block.Legend)
	}
}
