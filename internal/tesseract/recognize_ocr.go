//go:build ocr

package tesseract

import (
	"fmt"
	"strings"

	"github.com/otiai10/gosseract/v2"
)

func recognize(data []byte, language string, level Level) ([]Region, error) {
	client := gosseract.NewClient()
	defer client.Close()

	if err := client.SetLanguage(language); err != nil {
		return nil, fmt.Errorf("failed to set language: %w", err)
	}
	if err := client.SetImageFromBytes(data); err != nil {
		return nil, fmt.Errorf("failed to set image: %w", err)
	}

	ril := gosseract.RIL_TEXTLINE
	switch level {
	case LevelWord:
		ril = gosseract.RIL_WORD
	case LevelBlock:
		ril = gosseract.RIL_BLOCK
	}

	boxes, err := client.GetBoundingBoxes(ril)
	if err != nil {
		return nil, fmt.Errorf("OCR failed: %w", err)
	}

	regions := make([]Region, 0, len(boxes))
	for _, b := range boxes {
		text := strings.Join(strings.Fields(b.Word), " ")
		if text == "" {
			continue
		}
		regions = append(regions, Region{Box: b.Box, Text: text, Confidence: b.Confidence})
	}
	return regions, nil
}
