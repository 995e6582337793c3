package openai

import (
	"bytes"
	"context"
	"encoding/base64"
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

const defaultURL = "https://api.openai.com/v1"

// OpenAI talks to a chat completions endpoint. OPENAI_URL points it at any
// compatible server.
type OpenAI struct {
	BaseURL    string
	APIKey     string
	httpClient *http.Client
}

// New returns a provider configured from OPENAI_URL and OPENAI_API_KEY.
func New() *OpenAI {
	baseURL := os.Getenv("OPENAI_URL")
	if baseURL == "" {
		baseURL = defaultURL
	}
	return &OpenAI{
		BaseURL:    strings.TrimSuffix(baseURL, "/"),
		APIKey:     os.Getenv("OPENAI_API_KEY"),
		httpClient: &http.Client{Timeout: 2 * time.Minute},
	}
}

type contentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *imageURL `json:"image_url,omitempty"`
}

type imageURL struct {
	URL    string `json:"url"`
	Detail string `json:"detail,omitempty"`
}

type message struct {
	Role    string        `json:"role"`
	Content []contentPart `json:"content"`
}

type chatRequest struct {
	Model          string            `json:"model"`
	Messages       []message         `json:"messages"`
	ResponseFormat map[string]string `json:"response_format"`
	Temperature    float64           `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
}

// ExtractText sends the prompt with the page images inlined as data URLs and
// returns the first choice.
func (o *OpenAI) ExtractText(ctx context.Context, config providers.Config) (string, error) {
	if o.APIKey == "" {
		return "", fmt.Errorf("OPENAI_API_KEY environment variable not set")
	}

	content := []contentPart{{Type: "text", Text: config.Prompt}}
	for _, img := range config.Images {
		content = append(content, contentPart{
			Type: "image_url",
			// drawings need full resolution to read small tags
			ImageURL: &imageURL{URL: "data:image/png;base64," + base64.StdEncoding.EncodeToString(img), Detail: "high"},
		})
	}

	requestBody, err := json.Marshal(chatRequest{
		Model:          config.Model,
		Messages:       []message{{Role: "user", Content: content}},
		ResponseFormat: map[string]string{"type": "json_object"},
		Temperature:    config.Temperature,
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", o.BaseURL+"/chat/completions", bytes.NewReader(requestBody))
	if err != nil {
		return "", fmt.Errorf("failed to create new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+o.APIKey)

	resp, err := o.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("received non-200 status code: %d - %s", resp.StatusCode, string(body))
	}

	var response chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return "", fmt.Errorf("failed to decode response body: %w", err)
	}
	if len(response.Choices) == 0 {
		return "", fmt.Errorf("no choices returned from OpenAI")
	}

	choice := response.Choices[0]
	if choice.FinishReason == "length" {
		return "", fmt.Errorf("openai answer was truncated after %d tokens", response.Usage.CompletionTokens)
	}

	slog.Debug("OpenAI answered", "model", config.Model, "prompt_tokens", response.Usage.PromptTokens, "completion_tokens", response.Usage.CompletionTokens)
	return choice.Message.Content, nil
}
