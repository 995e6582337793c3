package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/lehigh-university-libraries/planmarks/internal/config"
	"github.com/lehigh-university-libraries/planmarks/internal/extraction"
	"github.com/lehigh-university-libraries/planmarks/internal/gemini"
	"github.com/lehigh-university-libraries/planmarks/internal/ollama"
	"github.com/lehigh-university-libraries/planmarks/internal/openai"
	"github.com/lehigh-university-libraries/planmarks/internal/persistence"
	"github.com/lehigh-university-libraries/planmarks/internal/providers"
	"github.com/lehigh-university-libraries/planmarks/internal/tesseract"
)

func pageImages(cfg config.Config) extraction.PageImages {
	return extraction.PageImages{Dir: cfg.PageImagesDir, DPI: float64(cfg.PageImageDPI)}
}

// newExtractor picks the extraction strategy named by the configuration.
func newExtractor(cfg config.Config) (extraction.Extractor, error) {
	provider := cfg.ExtractionProvider
	if provider == "" {
		provider = "http"
	}

	switch provider {
	case "http":
		if cfg.ExtractionURL == "" {
			return nil, fmt.Errorf("extraction url is required for the http provider")
		}
		return extraction.NewClient(cfg.ExtractionURL), nil
	case "tesseract":
		return tesseract.New(pageImages(cfg), cfg.OCRLanguage), nil
	case "ollama", "openai", "gemini":
		model := cfg.Model
		if model == "" {
			model = defaultModel(provider)
		}
		return &extraction.LLM{
			Provider:    llmProvider(provider),
			Model:       model,
			Temperature: 0.1,
			Pages:       pageImages(cfg),
		}, nil
	default:
		return nil, fmt.Errorf("unsupported extraction provider: %s", provider)
	}
}

func llmProvider(name string) providers.Provider {
	switch name {
	case "openai":
		return openai.New()
	case "gemini":
		return gemini.New()
	default:
		return ollama.New()
	}
}

func defaultModel(provider string) string {
	switch provider {
	case "openai":
		return getEnv("OPENAI_MODEL", "gpt-4o")
	case "gemini":
		return getEnv("GEMINI_MODEL", "gemini-1.5-flash")
	default:
		return getEnv("OLLAMA_MODEL", "mistral-small3.2:24b")
	}
}

// newBackend opens the persistence backend. The returned closer releases
// any held resources.
func newBackend(cfg config.Config) (persistence.Backend, io.Closer, error) {
	switch cfg.PersistenceBackend {
	case "http":
		return persistence.NewHTTPBackend(cfg.PersistenceURL), nopCloser{}, nil
	case "file", "":
		b, err := persistence.NewFileBackend(cfg.AnnotationsDir)
		if err != nil {
			return nil, nil, err
		}
		return b, nopCloser{}, nil
	case "sqlite":
		b, err := persistence.OpenSQLite(cfg.AnnotationsDB)
		if err != nil {
			return nil, nil, err
		}
		return b, b, nil
	default:
		return nil, nil, fmt.Errorf("unsupported persistence backend: %s", cfg.PersistenceBackend)
	}
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

func closeQuietly(c io.Closer) {
	if err := c.Close(); err != nil {
		slog.Error("Failed to close backend", "err", err)
	}
}

func getEnv(key, defaultVal string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultVal
}
