package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/lehigh-university-libraries/planmarks/internal/providers"
)

const defaultURL = "http://localhost:11434"

// Ollama talks to a local Ollama server's generate endpoint.
type Ollama struct {
	BaseURL    string
	httpClient *http.Client
}

// New returns a provider for OLLAMA_URL, or the local default.
func New() *Ollama {
	baseURL := os.Getenv("OLLAMA_URL")
	if baseURL == "" {
		baseURL = defaultURL
	}
	return &Ollama{
		BaseURL: strings.TrimSuffix(baseURL, "/"),
		// vision models on CPU can take minutes per page
		httpClient: &http.Client{Timeout: 5 * time.Minute},
	}
}

type generateRequest struct {
	Model   string         `json:"model"`
	Prompt  string         `json:"prompt"`
	Images  [][]byte       `json:"images,omitempty"`
	Stream  bool           `json:"stream"`
	Format  string         `json:"format"`
	Options map[string]any `json:"options"`
}

type generateResponse struct {
	Response      string `json:"response"`
	DoneReason    string `json:"done_reason"`
	EvalCount     int    `json:"eval_count"`
	TotalDuration int64  `json:"total_duration"`
}

// ExtractText sends the prompt and page images, asking for a JSON answer.
// Images are base64 encoded by encoding/json.
func (o *Ollama) ExtractText(ctx context.Context, config providers.Config) (string, error) {
	requestBody, err := json.Marshal(generateRequest{
		Model:   config.Model,
		Prompt:  config.Prompt,
		Images:  config.Images,
		Format:  "json",
		Options: map[string]any{"temperature": config.Temperature},
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", o.BaseURL+"/api/generate", bytes.NewReader(requestBody))
	if err != nil {
		return "", fmt.Errorf("failed to create new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := o.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("received non-200 status code: %d - %s", resp.StatusCode, string(body))
	}

	var response generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return "", fmt.Errorf("failed to decode response body: %w", err)
	}
	if response.DoneReason == "length" {
		return "", fmt.Errorf("ollama answer was truncated after %d tokens", response.EvalCount)
	}

	slog.Debug("Ollama answered", "model", config.Model, "tokens", response.EvalCount, "duration", time.Duration(response.TotalDuration))
	return response.Response, nil
}
