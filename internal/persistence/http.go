package persistence

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// UploadsPath is where the persistence service publishes saved artifacts.
const UploadsPath = "/themes/uploads/annotations/"

// HTTPBackend talks to a remote persistence service. Saves are POSTed as JSON
// to <BaseURL>/annotations and artifacts are read back from
// <BaseURL>/themes/uploads/annotations/<name>.
type HTTPBackend struct {
	BaseURL    string
	httpClient *http.Client
}

// NewHTTPBackend creates a backend for the service at baseURL.
func NewHTTPBackend(baseURL string) *HTTPBackend {
	return &HTTPBackend{
		BaseURL: strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// ArtifactURL returns the address an artifact is published at.
func (h *HTTPBackend) ArtifactURL(artifactName string) string {
	return h.BaseURL + UploadsPath + url.PathEscape(artifactName)
}

// Store posts the save request.
func (h *HTTPBackend) Store(ctx context.Context, req SaveRequest) error {
	body, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("failed to marshal save request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, h.BaseURL+"/annotations", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create save request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := h.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("failed to send save request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		b, _ := io.ReadAll(resp.Body)
		return wrapStatus("persistence service", resp.StatusCode, string(b))
	}
	return nil
}

// Fetch downloads a published artifact.
func (h *HTTPBackend) Fetch(ctx context.Context, artifactName string) (string, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, h.ArtifactURL(artifactName), nil)
	if err != nil {
		return "", fmt.Errorf("failed to create load request: %w", err)
	}

	resp, err := h.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("failed to send load request: %w", err)
	}
	defer resp.Body.Close()

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read artifact: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return "", ErrNotFound
	case resp.StatusCode != http.StatusOK:
		return "", wrapStatus("persistence service", resp.StatusCode, string(b))
	}
	return string(b), nil
}
