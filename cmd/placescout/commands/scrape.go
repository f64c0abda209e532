package commands

import (
	"context"
	"log/slog"
	"time"

	"github.com/spf13/cobra"
	"github.com/use-agent/placescout/config"
	"github.com/use-agent/placescout/engine"
	"github.com/use-agent/placescout/models"
	"github.com/use-agent/placescout/scraper"
	"github.com/use-agent/placescout/sink"
	"github.com/use-agent/placescout/webhook"
)

var scrapeOpts options

var scrapeCmd = &cobra.Command{
	Use:   "scrape [--term <term>] [--country <country>] [-o <file>]",
	Short: "Runs one search in a headless browser and writes the results.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		scrapeOpts.configPath = rootOpts.configPath
		return runScrape(cmd, &scrapeOpts)
	},
}

func init() {
	bindScrapeFlags(scrapeCmd.Flags(), &scrapeOpts)
	rootCmd.AddCommand(scrapeCmd)
}

func runScrape(cmd *cobra.Command, o *options) error {
	cfg, err := loadConfig(cmd.Flags(), o)
	if err != nil {
		return err
	}
	q, err := models.NewSearchQuery(cfg.Search.Term, cfg.Search.Country, cfg.Search.Limit)
	if err != nil {
		return err
	}

	browser, err := engine.NewRodBrowser(cfg.Browser, cfg.Scraper)
	if err != nil {
		return err
	}
	sc := scraper.NewScraper(browser, cfg)
	defer sc.Close()

	return scrapeAndWrite(cmd, sc, cfg, q, o.print)
}

// searcher is the part of *scraper.Scraper the scrape command needs.
type searcher interface {
	Run(ctx context.Context, q models.SearchQuery) ([]models.ResultRecord, error)
}

// scrapeAndWrite runs q and persists the records to every configured sink.
func scrapeAndWrite(cmd *cobra.Command, sc searcher, cfg *config.Config, q models.SearchQuery, printTable bool) error {
	ctx := cmd.Context()
	notifier := webhook.NewNotifier(cfg.Webhook.URL, cfg.Webhook.Secret)
	start := time.Now()

	records, err := sc.Run(ctx, q)
	if err == nil {
		err = sink.WriteFile(cfg.Output.Path, cfg.Output.Format, records)
	}
	if err == nil && cfg.Output.DBPath != "" {
		err = saveRun(ctx, cfg.Output.DBPath, q, records)
	}

	summary := models.RunSummary{
		Query:      q,
		Count:      len(records),
		Output:     cfg.Output.Path,
		DurationMs: time.Since(start).Milliseconds(),
	}
	if err != nil {
		summary.Error = &models.ErrorDetail{Code: models.CodeOf(err), Message: err.Error()}
		if derr := notifier.Deliver(ctx, webhook.NewEvent(webhook.EventSearchFailed, summary)); derr != nil {
			slog.Warn("webhook delivery failed", "error", derr)
		}
		return err
	}

	slog.Info("search finished",
		"query", q.String(),
		"records", len(records),
		"path", cfg.Output.Path,
		"elapsed", time.Since(start),
	)
	if printTable {
		sink.RenderTable(cmd.OutOrStdout(), records)
	}
	if derr := notifier.Deliver(ctx, webhook.NewEvent(webhook.EventSearchCompleted, summary)); derr != nil {
		slog.Warn("webhook delivery failed", "error", derr)
	}
	return nil
}

func saveRun(ctx context.Context, path string, q models.SearchQuery, records []models.ResultRecord) error {
	db, err := sink.OpenSQLite(path)
	if err != nil {
		return err
	}
	defer db.Close()

	runID, err := db.Save(ctx, q, records)
	if err != nil {
		return err
	}
	slog.Info("run recorded", "db", path, "run_id", runID)
	return nil
}
