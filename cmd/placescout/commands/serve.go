package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"github.com/use-agent/placescout/api"
	"github.com/use-agent/placescout/cache"
	"github.com/use-agent/placescout/engine"
	"github.com/use-agent/placescout/scraper"
	"github.com/use-agent/placescout/webhook"
)

var serveOpts options

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Runs the HTTP search API.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		serveOpts.configPath = rootOpts.configPath
		cfg, err := loadConfig(cmd.Flags(), &serveOpts)
		if err != nil {
			return err
		}
		slog.Info("placescout starting",
			"host", cfg.Server.Host,
			"port", cfg.Server.Port,
			"mode", cfg.Server.Mode,
			"base_url", cfg.Search.BaseURL,
		)

		// ── 1. Browser + pipeline ───────────────────────────────────
		browser, err := engine.NewRodBrowser(cfg.Browser, cfg.Scraper)
		if err != nil {
			return err
		}
		sc := scraper.NewScraper(browser, cfg)
		defer sc.Close()

		// ── 2. Cache + webhook ──────────────────────────────────────
		cc := cache.New(cfg.Cache.MaxEntries, cfg.Cache.TTL)
		done := make(chan struct{})
		defer close(done)
		go cc.RunSweeper(5*time.Minute, done)

		notifier := webhook.NewNotifier(cfg.Webhook.URL, cfg.Webhook.Secret)

		// ── 3. HTTP server ──────────────────────────────────────────
		router := api.NewRouter(sc, cfg, cc, notifier, time.Now())
		addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
		srv := &http.Server{
			Addr:    addr,
			Handler: router,
		}

		errCh := make(chan error, 1)
		go func() {
			slog.Info("HTTP server listening", "addr", addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- err
			}
			close(errCh)
		}()

		// ── 4. Graceful shutdown ────────────────────────────────────
		select {
		case err := <-errCh:
			if err != nil {
				return fmt.Errorf("http server: %w", err)
			}
			return nil
		case <-cmd.Context().Done():
			slog.Info("shutdown signal received")
		}

		// Give in-flight requests 5 seconds to complete.
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			slog.Error("HTTP server forced shutdown", "error", err)
		} else {
			slog.Info("HTTP server drained gracefully")
		}
		slog.Info("placescout stopped")
		return nil
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveOpts.term, "term", "", "Default search term for requests that omit one.")
	rootCmd.AddCommand(serveCmd)
}
