package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/lehigh-university-libraries/planmarks/internal/annotations"
	"github.com/lehigh-university-libraries/planmarks/internal/config"
	"github.com/lehigh-university-libraries/planmarks/internal/export"
	"github.com/lehigh-university-libraries/planmarks/internal/geometry"
	"github.com/lehigh-university-libraries/planmarks/internal/overlay"
	"github.com/lehigh-university-libraries/planmarks/internal/persistence"
	"github.com/spf13/cobra"
)

func newRenderCmd() *cobra.Command {
	var configPath string
	var source annotationSource
	var g geometry.PageGeometry
	var output string

	cmd := &cobra.Command{
		Use:   "render",
		Short: "Render one page's annotation overlay as SVG",
		Long: `Render the overlay the viewer would draw for one page.

The page geometry is given as flags: the render scale and the viewport size in
pixels. The output SVG is sized to the viewport so it can be laid over a page
image rendered at the same scale.`,
		Example: `  # Render page 2 of a saved artifact at 150% zoom
  planmarks render --annotations A-101_annotations.xml --page 2 --scale 1.5 \
    --width 1263 --height 918 --output A-101_p2.svg

  # Render straight from the configured backend
  planmarks render --document plans/A-101.pdf --page 1 --scale 1 --width 842 --height 595`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !g.Valid() || g.ViewportWidth <= 0 || g.ViewportHeight <= 0 {
				return fmt.Errorf("invalid page geometry: page, scale, width and height must be positive")
			}

			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			palette, err := cfg.PaletteOrDefault()
			if err != nil {
				return err
			}

			doc, err := source.load(cmd.Context(), cfg)
			if err != nil {
				return err
			}

			svg := renderSVG(doc, g, palette)
			if output == "" {
				_, err = fmt.Fprint(cmd.OutOrStdout(), svg)
				return err
			}
			if err := os.WriteFile(output, []byte(svg), 0o644); err != nil {
				return fmt.Errorf("failed to write svg: %w", err)
			}
			slog.Info("Overlay rendered", "page", g.PageNumber, "records", len(doc.RecordsForPage(g.PageNumber)), "output", output)
			return nil
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "", "YAML config file (palette and backend)")
	source.addFlags(cmd)
	cmd.Flags().IntVar(&g.PageNumber, "page", 1, "Page number (1-based)")
	cmd.Flags().Float64Var(&g.Scale, "scale", 1, "Render scale")
	cmd.Flags().Float64Var(&g.ViewportWidth, "width", 0, "Viewport width in pixels")
	cmd.Flags().Float64Var(&g.ViewportHeight, "height", 0, "Viewport height in pixels")
	cmd.Flags().IntVar(&g.Rotation, "rotation", 0, "Viewport rotation in degrees (0, 90, 180, 270)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file (default stdout)")

	return cmd
}

func renderSVG(doc *annotations.Document, g geometry.PageGeometry, palette overlay.Palette) string {
	surface := overlay.NewSurface(overlay.NewRenderer(palette))
	surface.Redraw(doc, g)
	layer, _ := surface.Layer(g.PageNumber)
	return overlay.SVG(layer)
}

// annotationSource names where a command reads an annotation document from:
// an artifact or export file, or the configured backend.
type annotationSource struct {
	file     string
	document string
}

func (s *annotationSource) addFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&s.file, "annotations", "", "Annotation artifact (.xml) or Parquet export to read")
	cmd.Flags().StringVar(&s.document, "document", "", "Source document whose saved annotations are read from the backend")
	cmd.MarkFlagsOneRequired("annotations", "document")
	cmd.MarkFlagsMutuallyExclusive("annotations", "document")
}

func (s *annotationSource) load(ctx context.Context, cfg config.Config) (*annotations.Document, error) {
	if s.file != "" {
		return readDocumentFile(s.file)
	}

	backend, closer, err := newBackend(cfg)
	if err != nil {
		return nil, err
	}
	defer closeQuietly(closer)

	content, err := backend.Fetch(ctx, persistence.ArtifactName(s.document))
	if err != nil {
		return nil, fmt.Errorf("failed to load annotations for %s: %w", s.document, err)
	}
	return parseArtifact(content, s.document)
}

// readDocumentFile reads a wire-format artifact or a Parquet export.
func readDocumentFile(path string) (*annotations.Document, error) {
	if strings.EqualFold(filepath.Ext(path), ".parquet") {
		rows, err := export.ReadParquetFile(path)
		if err != nil {
			return nil, err
		}
		return export.Document(rows), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read annotations: %w", err)
	}
	return parseArtifact(string(data), path)
}

func parseArtifact(content, name string) (*annotations.Document, error) {
	res := annotations.FromWireFormat(content)
	if res.Status == annotations.Empty {
		return nil, fmt.Errorf("failed to parse annotations in %s: %w", name, res.Err)
	}
	return res.Document, nil
}
