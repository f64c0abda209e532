package commands

import (
	"os"

	"github.com/spf13/cobra"
	"github.com/use-agent/placescout/engine"
	"github.com/use-agent/placescout/models"
	"github.com/use-agent/placescout/scraper"
	"github.com/use-agent/placescout/sink"
)

var parseOpts options

var parseCmd = &cobra.Command{
	Use:   "parse <file.html> [-o <file>] [--format csv|json]",
	Short: "Extracts result records from a saved search results page.",
	Long: `parse runs the extractor over an HTML snapshot of the results page, for
example one saved from the browser's developer tools. Without -o the
records are written to stdout.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		parseOpts.configPath = rootOpts.configPath
		cfg, err := loadConfig(cmd.Flags(), &parseOpts)
		if err != nil {
			return err
		}

		f, err := os.Open(args[0])
		if err != nil {
			return models.NewScrapeError(models.ErrCodeIO, "open snapshot", err)
		}
		defer f.Close()

		page, err := engine.NewStaticPage(f)
		if err != nil {
			return models.NewScrapeError(models.ErrCodeExtraction, "parse snapshot", err)
		}

		// a snapshot never changes, nothing to wait for
		cfg.Extract.SettleDelay = 0
		records, err := scraper.NewExtractor(cfg.Extract).Extract(cmd.Context(), page)
		if err != nil {
			return err
		}

		if !cmd.Flags().Changed("output") {
			out := cmd.OutOrStdout()
			if cfg.Output.Format == "json" {
				return sink.WriteJSON(out, records)
			}
			if parseOpts.print {
				sink.RenderTable(out, records)
				return nil
			}
			return sink.WriteCSV(out, records)
		}
		if err := sink.WriteFile(cfg.Output.Path, cfg.Output.Format, records); err != nil {
			return err
		}
		if parseOpts.print {
			sink.RenderTable(cmd.OutOrStdout(), records)
		}
		return nil
	},
}

func init() {
	fs := parseCmd.Flags()
	fs.StringVarP(&parseOpts.output, "output", "o", "", "Output file (default stdout).")
	fs.StringVarP(&parseOpts.format, "format", "f", "", "Output format: csv or json.")
	fs.BoolVar(&parseOpts.print, "print", false, "Print the records as a table.")
	rootCmd.AddCommand(parseCmd)
}
