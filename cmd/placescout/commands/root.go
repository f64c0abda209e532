package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/use-agent/placescout/config"
)

// options are the flags shared by scrape and the bare root command.
type options struct {
	configPath string
	term       string
	country    string
	limit      int
	output     string
	format     string
	db         string
	attempts   int
	timeout    time.Duration
	backoff    time.Duration
	print      bool
}

var rootOpts options

var rootCmd = &cobra.Command{
	Use:   "placescout",
	Short: "placescout collects Nominatim search results for a term within a country.",
	Long: `placescout drives a headless browser through the Nominatim search UI,
extracts every result entry and writes them to CSV or JSON.

Running placescout without a subcommand is the same as "placescout scrape".`,
	SilenceUsage:  true,
	SilenceErrors: true,
	Args:          cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runScrape(cmd, &rootOpts)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&rootOpts.configPath, "config", "", "Path to a json5 config file; <name>.local.json5 is merged over it.")
	bindScrapeFlags(rootCmd.Flags(), &rootOpts)
}

// ExecuteContext runs the CLI and exits with status 1 on any error.
func ExecuteContext(ctx context.Context) {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		slog.Error("placescout failed", "error", err)
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func bindScrapeFlags(fs *pflag.FlagSet, o *options) {
	fs.StringVar(&o.term, "term", "", "Search term (default from config: Workshop).")
	fs.StringVar(&o.country, "country", "", "Country name or ISO 3166 code (default from config: Canada).")
	fs.IntVar(&o.limit, "limit", 0, "Maximum number of results to request (1-50).")
	fs.StringVarP(&o.output, "output", "o", "", "Output file (default output/places.csv).")
	fs.StringVarP(&o.format, "format", "f", "", "Output format: csv or json.")
	fs.StringVar(&o.db, "db", "", "Also record the run in this SQLite database.")
	fs.IntVar(&o.attempts, "attempts", 0, "Maximum navigation attempts.")
	fs.DurationVar(&o.timeout, "timeout", 0, "Per-attempt navigation timeout.")
	fs.DurationVar(&o.backoff, "backoff", 0, "Pause between attempts.")
	fs.BoolVar(&o.print, "print", false, "Print the records as a table after writing.")
}

// loadConfig reads env + optional config file, then overlays the flags the
// user actually set.
func loadConfig(fs *pflag.FlagSet, o *options) (*config.Config, error) {
	cfg, err := config.LoadFile(o.configPath)
	if err != nil {
		return nil, err
	}

	if fs.Changed("term") {
		cfg.Search.Term = o.term
	}
	if fs.Changed("country") {
		cfg.Search.Country = o.country
	}
	if fs.Changed("limit") {
		cfg.Search.Limit = o.limit
	}
	if fs.Changed("output") {
		cfg.Output.Path = o.output
	}
	if fs.Changed("format") {
		cfg.Output.Format = o.format
	}
	if fs.Changed("db") {
		cfg.Output.DBPath = o.db
	}
	if fs.Changed("attempts") {
		cfg.Scraper.MaxAttempts = o.attempts
	}
	if fs.Changed("timeout") {
		cfg.Scraper.AttemptTimeout = o.timeout
	}
	if fs.Changed("backoff") {
		cfg.Scraper.Backoff = o.backoff
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	initLogger(cfg.Log)
	return cfg, nil
}
