// Package config resolves server settings from defaults, an optional YAML
// file and the environment, in increasing order of precedence.
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/lehigh-university-libraries/planmarks/internal/overlay"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Port string `yaml:"port"`

	ExtractionURL      string `yaml:"extraction_url"`
	ExtractionProvider string `yaml:"extraction_provider"`
	Model              string `yaml:"model"`
	OCRLanguage        string `yaml:"ocr_language"`

	PersistenceBackend string `yaml:"persistence_backend"`
	PersistenceURL     string `yaml:"persistence_url"`
	AnnotationsDir     string `yaml:"annotations_dir"`
	AnnotationsDB      string `yaml:"annotations_db"`

	PageImagesDir string `yaml:"page_images_dir"`
	PageImageDPI  int    `yaml:"page_image_dpi"`
	StaticDir     string `yaml:"static_dir"`

	// Palette maps category ids to CSS colors.
	Palette map[string]string `yaml:"palette"`
}

// Default returns the settings used when nothing else is configured.
func Default() Config {
	return Config{
		Port:               "8888",
		ExtractionURL:      "http://localhost:5000/extract",
		ExtractionProvider: "http",
		OCRLanguage:        "eng",
		PersistenceBackend: "file",
		PersistenceURL:     "http://localhost:8080",
		AnnotationsDir:     "./annotations",
		AnnotationsDB:      "./annotations.db",
		PageImagesDir:      "./pages",
		PageImageDPI:       150,
		StaticDir:          "static",
	}
}

// Load reads path (if not empty) over the defaults, then applies environment
// overrides.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	cfg.Port = getEnv("PORT", cfg.Port)
	cfg.ExtractionURL = getEnv("EXTRACTION_URL", cfg.ExtractionURL)
	cfg.ExtractionProvider = getEnv("EXTRACTION_PROVIDER", cfg.ExtractionProvider)
	cfg.Model = getEnv("EXTRACTION_MODEL", cfg.Model)
	cfg.OCRLanguage = getEnv("OCR_LANGUAGE", cfg.OCRLanguage)
	cfg.PersistenceBackend = getEnv("PERSISTENCE_BACKEND", cfg.PersistenceBackend)
	cfg.PersistenceURL = getEnv("PERSISTENCE_URL", cfg.PersistenceURL)
	cfg.AnnotationsDir = getEnv("ANNOTATIONS_DIR", cfg.AnnotationsDir)
	cfg.AnnotationsDB = getEnv("ANNOTATIONS_DB", cfg.AnnotationsDB)
	cfg.PageImagesDir = getEnv("PAGE_IMAGES_DIR", cfg.PageImagesDir)
	cfg.PageImageDPI = getEnvAsInt("PAGE_IMAGE_DPI", cfg.PageImageDPI)
	cfg.StaticDir = getEnv("STATIC_DIR", cfg.StaticDir)

	return cfg, nil
}

// PaletteOrDefault applies the configured color overrides to the default
// palette.
func (c Config) PaletteOrDefault() (overlay.Palette, error) {
	p := overlay.DefaultPalette()
	if len(c.Palette) == 0 {
		return p, nil
	}
	return p.Override(c.Palette)
}

func getEnv(key, defaultVal string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultVal
}

func getEnvAsInt(key string, defaultVal int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultVal
}
