package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

const maxPageImageSize = 50 * 1024 * 1024

// HandleUpload stores a rendered page image for the extractors that work
// from pixels. It accepts a multipart form (file, documentPath, page) or
// JSON naming an image URL.
func (h *Handler) HandleUpload(w http.ResponseWriter, r *http.Request) {
	if r.Method != "POST" {
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	// Check if this is a JSON request with image URL
	contentType := r.Header.Get("Content-Type")
	if strings.Contains(contentType, "application/json") {
		h.handleURLUpload(w, r)
		return
	}

	h.handleFileUpload(w, r)
}

func (h *Handler) handleURLUpload(w http.ResponseWriter, r *http.Request) {
	var request struct {
		ImageURL     string `json:"imageUrl"`
		DocumentPath string `json:"documentPath"`
		Page         int    `json:"page"`
	}

	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		h.writeError(w, "Invalid JSON: "+err.Error(), http.StatusBadRequest)
		return
	}

	if request.ImageURL == "" {
		h.writeError(w, "imageUrl is required", http.StatusBadRequest)
		return
	}

	imageData, err := downloadImageFromURL(request.ImageURL)
	if err != nil {
		h.writeError(w, "Failed to download image: "+err.Error(), http.StatusBadRequest)
		return
	}

	h.storePageImage(w, imageData, request.DocumentPath, request.Page)
}

func (h *Handler) handleFileUpload(w http.ResponseWriter, r *http.Request) {
	file, _, err := r.FormFile("file")
	if err != nil {
		h.writeError(w, "Failed to read file: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer file.Close()

	page, err := strconv.Atoi(r.FormValue("page"))
	if err != nil {
		h.writeError(w, "Invalid page number", http.StatusBadRequest)
		return
	}

	fileData, err := io.ReadAll(io.LimitReader(file, maxPageImageSize))
	if err != nil {
		h.writeError(w, "Failed to read file contents: "+err.Error(), http.StatusInternalServerError)
		return
	}

	if len(fileData) >= maxPageImageSize {
		h.writeError(w, "File too large (max 50MB)", http.StatusBadRequest)
		return
	}

	h.storePageImage(w, fileData, r.FormValue("documentPath"), page)
}

// storePageImage decodes the upload and saves it as PNG where the
// extractors look for it.
func (h *Handler) storePageImage(w http.ResponseWriter, data []byte, documentPath string, page int) {
	if documentPath == "" || page < 1 {
		h.writeError(w, "documentPath and a page number >= 1 are required", http.StatusBadRequest)
		return
	}
	if h.pages.Dir == "" {
		h.writeError(w, "Page images are not enabled", http.StatusServiceUnavailable)
		return
	}

	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		h.writeError(w, "Unsupported image: "+err.Error(), http.StatusBadRequest)
		return
	}

	path := h.pages.Path(documentPath, page)
	if err := writePNG(path, img); err != nil {
		h.writeError(w, err.Error(), http.StatusInternalServerError)
		return
	}

	bounds := img.Bounds()
	slog.Info("Page image saved", "document", documentPath, "page", page, "format", format, "width", bounds.Dx(), "height", bounds.Dy())
	h.writeJSONStatus(w, http.StatusCreated, map[string]any{
		"documentPath": documentPath,
		"page":         page,
		"width":        bounds.Dx(),
		"height":       bounds.Dy(),
	})
}

func writePNG(path string, img image.Image) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create page image directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to save image: %w", err)
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return fmt.Errorf("failed to encode image: %w", err)
	}
	return f.Close()
}

func downloadImageFromURL(imageURL string) ([]byte, error) {
	client := &http.Client{Timeout: 60 * time.Second}
	resp, err := client.Get(imageURL)
	if err != nil {
		return nil, fmt.Errorf("failed to download image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to download image: HTTP %d", resp.StatusCode)
	}

	imageData, err := io.ReadAll(io.LimitReader(resp.Body, maxPageImageSize))
	if err != nil {
		return nil, fmt.Errorf("failed to read image data: %w", err)
	}

	return imageData, nil
}
