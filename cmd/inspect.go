package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/lehigh-university-libraries/planmarks/internal/annotations"
	"github.com/lehigh-university-libraries/planmarks/internal/config"
	"github.com/lehigh-university-libraries/planmarks/internal/export"
	"github.com/lehigh-university-libraries/planmarks/internal/overlay"
	"github.com/lehigh-university-libraries/planmarks/internal/persistence"
	"github.com/spf13/cobra"
)

func newInspectCmd() *cobra.Command {
	var configPath string
	var source annotationSource
	var showRecords bool
	var history bool

	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "Summarize an annotation document",
		Long: `Print the pages and record counts of an annotation document.

With --history and the sqlite backend, also list every saved revision of the
document's artifact.`,
		Example: `  # Summarize an artifact
  planmarks inspect --annotations A-101_annotations.xml

  # List every record of a Parquet export
  planmarks inspect --annotations A-101.parquet --records

  # Show the revision history kept by the sqlite backend
  planmarks inspect --document plans/A-101.pdf --history --config planmarks.yaml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}

			doc, err := source.load(cmd.Context(), cfg)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			printSummary(out, doc, showRecords)

			if !history {
				return nil
			}
			if source.document == "" || cfg.PersistenceBackend != "sqlite" {
				return fmt.Errorf("--history requires --document and the sqlite backend")
			}
			db, err := persistence.OpenSQLite(cfg.AnnotationsDB)
			if err != nil {
				return err
			}
			defer closeQuietly(db)

			revisions, err := db.History(cmd.Context(), persistence.ArtifactName(source.document))
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "\nRevisions: %d\n", len(revisions))
			for _, r := range revisions {
				fmt.Fprintf(out, "  #%d  %s  %-28s %6d bytes  %s\n",
					r.Seq, r.CreatedAt.Format("2006-01-02 15:04:05"), r.Category, r.Bytes, r.Text)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "", "YAML config file (backend)")
	source.addFlags(cmd)
	cmd.Flags().BoolVar(&showRecords, "records", false, "List every record")
	cmd.Flags().BoolVar(&history, "history", false, "List saved revisions (sqlite backend)")

	return cmd
}

func printSummary(out io.Writer, doc *annotations.Document, showRecords bool) {
	summary := export.Summarize("", doc)

	fmt.Fprintf(out, "Pages: %d\n", len(summary.Pages))
	fmt.Fprintf(out, "Records: %d\n", summary.Records)
	for _, cat := range overlay.Categories {
		if n := summary.ByType[cat.ID]; n > 0 {
			fmt.Fprintf(out, "  %-4s %-28s %d\n", cat.Label, cat.Name, n)
		}
	}
	if n := summary.ByType[annotations.LegendType]; n > 0 {
		fmt.Fprintf(out, "  %-4s %-28s %d\n", "LG", "Legend", n)
	}

	for _, p := range summary.Pages {
		fmt.Fprintf(out, "\nPage %d (%d records)\n", p.Number, len(p.Annotations))
		if !showRecords {
			continue
		}
		for _, r := range p.Annotations {
			text := strings.ReplaceAll(r.Text, "\n", " ")
			fmt.Fprintf(out, "  %-28s x=%.2f y=%.2f w=%.2f h=%.2f %s\n", r.Type, r.X, r.Y, r.Width, r.Height, text)
		}
	}
}
