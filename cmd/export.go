package cmd

import (
	"fmt"
	"log/slog"

	"github.com/lehigh-university-libraries/planmarks/internal/config"
	"github.com/lehigh-university-libraries/planmarks/internal/export"
	"github.com/spf13/cobra"
)

func newExportCmd() *cobra.Command {
	var configPath string
	var source annotationSource
	var output string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export an annotation document to Parquet or YAML",
		Long: `Export the annotations of one drawing for analysis.

The format is picked from the output extension: .parquet writes one row per
annotation, .yaml or .yml writes a per-page summary with counts by type.`,
		Example: `  # Export a saved artifact to Parquet
  planmarks export --annotations A-101_annotations.xml --output A-101.parquet

  # Export from the SQLite backend to YAML
  PERSISTENCE_BACKEND=sqlite planmarks export --document plans/A-101.pdf --output A-101.yaml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}

			doc, err := source.load(cmd.Context(), cfg)
			if err != nil {
				return err
			}

			name := source.document
			if name == "" {
				name = source.file
			}
			if err := export.WriteFile(output, name, doc); err != nil {
				return fmt.Errorf("failed to export %s: %w", name, err)
			}

			slog.Info("Annotations exported", "document", name, "records", doc.Len(), "output", output)
			return nil
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "", "YAML config file (backend)")
	source.addFlags(cmd)
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file (.parquet, .yaml or .yml) (required)")
	_ = cmd.MarkFlagRequired("output")

	return cmd
}
