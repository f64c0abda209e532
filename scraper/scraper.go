package scraper

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/use-agent/placescout/config"
	"github.com/use-agent/placescout/engine"
	"github.com/use-agent/placescout/models"
)

// Scraper runs the search pipeline: open a session, install the request
// filter, navigate with retries, extract the results, close the session.
// Runs are serialised; one session processes one query at a time.
type Scraper struct {
	browser   engine.Browser
	filter    *Filter
	fetcher   *Fetcher
	extractor *Extractor
	robots    *RobotsGate
	baseURL   string

	mu   sync.Mutex
	busy atomic.Bool
	runs atomic.Int64
}

// Stats is a snapshot of the scraper's activity.
type Stats struct {
	Busy bool
	Runs int64
}

// NewScraper wires the pipeline around browser.
func NewScraper(browser engine.Browser, cfg *config.Config) *Scraper {
	s := &Scraper{
		browser:   browser,
		filter:    NewFilter(cfg.Scraper.BlockedResourceTypes, cfg.Scraper.BlockedHosts),
		fetcher:   NewFetcher(cfg.Search.BaseURL, PolicyFromConfig(cfg.Scraper)),
		extractor: NewExtractor(cfg.Extract),
		baseURL:   cfg.Search.BaseURL,
	}
	if cfg.Scraper.RespectRobots {
		s.robots = NewRobotsGate(cfg.Browser.UserAgent)
	}
	return s
}

// Run executes one query. The session is closed on every exit path.
func (s *Scraper) Run(ctx context.Context, q models.SearchQuery) ([]models.ResultRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.busy.Store(true)
	defer s.busy.Store(false)
	s.runs.Add(1)

	slog.Info("search started", "query", q.String(), "engine", s.browser.Name())

	if s.robots != nil {
		target, err := BuildSearchURL(s.baseURL, q)
		if err != nil {
			return nil, err
		}
		if err := s.robots.Check(ctx, target); err != nil {
			return nil, err
		}
	}

	session, err := s.browser.OpenSession(ctx)
	if err != nil {
		var se *models.ScrapeError
		if errors.As(err, &se) {
			return nil, err
		}
		return nil, models.NewScrapeError(models.ErrCodeBrowserCrash, "failed to open browser session", err)
	}
	defer func() {
		if closeErr := session.Close(); closeErr != nil {
			slog.Warn("failed to close browser session", "error", closeErr)
		}
	}()

	if err := session.Intercept(s.filter.Allow); err != nil {
		return nil, models.NewScrapeError(models.ErrCodeBrowserCrash, "failed to install request filter", err)
	}

	page, err := s.fetcher.Fetch(ctx, session, q)
	if err != nil {
		return nil, err
	}

	records, err := s.extractor.Extract(ctx, page)
	if err != nil {
		return nil, err
	}
	slog.Info("search finished", "query", q.String(), "records", len(records))
	return records, nil
}

// Stats returns a snapshot of the scraper's activity.
func (s *Scraper) Stats() Stats {
	return Stats{Busy: s.busy.Load(), Runs: s.runs.Load()}
}

// Close shuts the browser down. Call it on process exit to avoid zombie
// Chrome processes.
func (s *Scraper) Close() error {
	return s.browser.Close()
}
