package cmd

import (
	"log/slog"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

func NewRootCmd() *cobra.Command {
	var verbose bool

	cmd := &cobra.Command{
		Use:   "planmarks",
		Short: "Click-to-annotate overlays for architectural drawings",
		Long: `Planmarks keeps the annotation layer of architectural drawing PDFs.

A viewer reports clicks on rendered pages, an extraction service locates the
text under the click, and the resulting boxes are drawn over the page and
saved as an XML artifact next to the source document.`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// Load .env file if present (ignore errors)
			_ = godotenv.Load()

			if verbose {
				slog.SetLogLoggerLevel(slog.LevelDebug)
			}
		},
	}

	cmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "Verbose logging")

	// Add subcommands
	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newRenderCmd())
	cmd.AddCommand(newExportCmd())
	cmd.AddCommand(newInspectCmd())

	return cmd
}
