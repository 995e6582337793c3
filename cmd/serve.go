package cmd

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/lehigh-university-libraries/planmarks/internal/config"
	"github.com/lehigh-university-libraries/planmarks/internal/handlers"
	"github.com/lehigh-university-libraries/planmarks/internal/persistence"
	"github.com/spf13/cobra"
)

func newServeCmd() *cobra.Command {
	var configPath string
	var flags config.Config

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the annotation API server",
		Long: `Starts the Planmarks HTTP API on the specified port.

The API tracks one annotation session per drawing. The viewer posts page
geometry and clicks; the server calls the extraction service, draws the
returned boxes into the page overlay and saves the annotation document.

Extraction providers:
  http       POST to an external extraction service (EXTRACTION_URL)
  tesseract  local OCR over pre-rendered page images (build with -tags ocr)
  ollama     vision model over pre-rendered page images
  openai     vision model over pre-rendered page images
  gemini     vision model over pre-rendered page images

Persistence backends: http, file, sqlite.`,
		Example: `  # Start server on default port 8888 with file persistence
  planmarks serve

  # Keep revision history in SQLite and extract with a local vision model
  planmarks serve --persistence sqlite --extraction-provider ollama

  # Save to the document service
  planmarks serve --persistence http --persistence-url https://docs.example.edu`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			applyServeFlags(cmd, &cfg, flags)

			extractor, err := newExtractor(cfg)
			if err != nil {
				return err
			}
			backend, closer, err := newBackend(cfg)
			if err != nil {
				return err
			}
			defer closeQuietly(closer)

			palette, err := cfg.PaletteOrDefault()
			if err != nil {
				return err
			}

			handler := handlers.New(handlers.Options{
				Extractor: extractor,
				Backend:   backend,
				Palette:   palette,
				Pages:     pageImages(cfg),
				StaticDir: cfg.StaticDir,
			})

			// Set up routes
			mux := http.NewServeMux()
			mux.HandleFunc("/api/sessions", handler.HandleSessions)
			mux.HandleFunc("/api/sessions/", handler.HandleSessionDetail)
			mux.HandleFunc("/api/categories", handler.HandleCategories)
			mux.HandleFunc("/api/pages", handler.HandleUpload)
			if cfg.PersistenceBackend != "http" {
				// Serve the HTTP persistence protocol from the local backend.
				mux.HandleFunc("/annotations", handler.HandleSave)
				mux.HandleFunc(persistence.UploadsPath, handler.HandleArtifact)
			}
			mux.HandleFunc("/", handler.HandleStatic)
			mux.HandleFunc("/healthcheck", func(w http.ResponseWriter, r *http.Request) {
				if _, err := w.Write([]byte("OK")); err != nil {
					slog.Error("Unable to write healthcheck", "err", err)
				}
			})

			addr := ":" + cfg.Port
			server := &http.Server{
				Addr:    addr,
				Handler: mux,
			}

			// Start server in goroutine
			serverErr := make(chan error, 1)
			go func() {
				slog.Info("Planmarks API available",
					"addr", addr,
					"url", "http://localhost"+addr,
					"extraction", cfg.ExtractionProvider,
					"persistence", cfg.PersistenceBackend)
				if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					serverErr <- err
				}
			}()

			// Wait for context cancellation (Ctrl+C) or server error
			select {
			case <-cmd.Context().Done():
				slog.Info("Shutting down server...")
				// Give server 5 seconds to shut down gracefully
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := server.Shutdown(shutdownCtx); err != nil {
					slog.Error("Server shutdown failed", "err", err)
					return err
				}
				// Let in-flight saves reach the backend before it is closed.
				handler.Wait()
				slog.Info("Server stopped")
				return nil
			case err := <-serverErr:
				return err
			}
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "", "YAML config file")
	cmd.Flags().StringVarP(&flags.Port, "port", "p", "", "Port to listen on (default 8888)")
	cmd.Flags().StringVar(&flags.ExtractionURL, "extraction-url", "", "Extraction service endpoint")
	cmd.Flags().StringVar(&flags.ExtractionProvider, "extraction-provider", "", "Extraction provider (http, tesseract, ollama, openai, gemini)")
	cmd.Flags().StringVar(&flags.Model, "model", "", "Model name for LLM providers (defaults to provider's default)")
	cmd.Flags().StringVar(&flags.PersistenceBackend, "persistence", "", "Persistence backend (http, file, sqlite)")
	cmd.Flags().StringVar(&flags.PersistenceURL, "persistence-url", "", "Base URL of the HTTP persistence service")
	cmd.Flags().StringVar(&flags.AnnotationsDir, "annotations-dir", "", "Directory for the file backend")
	cmd.Flags().StringVar(&flags.AnnotationsDB, "annotations-db", "", "Database path for the sqlite backend")
	cmd.Flags().StringVar(&flags.PageImagesDir, "page-images-dir", "", "Directory of pre-rendered page images")
	cmd.Flags().IntVar(&flags.PageImageDPI, "page-dpi", 0, "Resolution the page images were rendered at")
	cmd.Flags().StringVar(&flags.StaticDir, "static-dir", "", "Directory of the viewer's static files")

	return cmd
}

// applyServeFlags copies explicitly set flags over the loaded configuration.
func applyServeFlags(cmd *cobra.Command, cfg *config.Config, flags config.Config) {
	set := func(name string, dst *string, val string) {
		if cmd.Flags().Changed(name) {
			*dst = val
		}
	}
	set("port", &cfg.Port, flags.Port)
	set("extraction-url", &cfg.ExtractionURL, flags.ExtractionURL)
	set("extraction-provider", &cfg.ExtractionProvider, flags.ExtractionProvider)
	set("model", &cfg.Model, flags.Model)
	set("persistence", &cfg.PersistenceBackend, flags.PersistenceBackend)
	set("persistence-url", &cfg.PersistenceURL, flags.PersistenceURL)
	set("annotations-dir", &cfg.AnnotationsDir, flags.AnnotationsDir)
	set("annotations-db", &cfg.AnnotationsDB, flags.AnnotationsDB)
	set("page-images-dir", &cfg.PageImagesDir, flags.PageImagesDir)
	set("static-dir", &cfg.StaticDir, flags.StaticDir)
	if cmd.Flags().Changed("page-dpi") {
		cfg.PageImageDPI = flags.PageImageDPI
	}
}
