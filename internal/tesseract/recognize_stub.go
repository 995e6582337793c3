//go:build !ocr

package tesseract

func recognize(data []byte, language string, level Level) ([]Region, error) {
	return nil, ErrOCRNotEnabled
}
