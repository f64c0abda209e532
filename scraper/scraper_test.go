package scraper

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/use-agent/placescout/config"
	"github.com/use-agent/placescout/engine"
	"github.com/use-agent/placescout/models"
	"github.com/use-agent/placescout/sink"
)

const threeWorkshops = `<html><body><div id="searchresults">
<div role="listitem"><span class="name">Toronto Workshop</span><p class="coords">43.65,-79.38</p></div>
<div role="listitem"><span class="name">Vancouver Workshop</span><p class="coords">49.28,-123.12</p></div>
<div role="listitem"><span class="name">Calgary Workshop</span><p class="coords">51.04,-114.07</p></div>
</div></body></html>`

func testConfig() *config.Config {
	cfg := config.Load()
	cfg.Scraper.MaxAttempts = 3
	cfg.Scraper.AttemptTimeout = time.Second
	cfg.Scraper.Backoff = 0
	cfg.Scraper.RespectRobots = false
	cfg.Extract.SettleDelay = 0
	cfg.Extract.WaitTimeout = 10 * time.Millisecond
	return cfg
}

func newTestScraper(browser engine.Browser) *Scraper {
	s := NewScraper(browser, testConfig())
	s.fetcher.sleep = func(context.Context, time.Duration) error { return nil }
	return s
}

func TestScraperEndToEnd(t *testing.T) {
	browser := engine.NewStaticBrowser(threeWorkshops, "#searchresults")
	s := newTestScraper(browser)

	q, err := models.NewSearchQuery("Workshop", "Canada", 0)
	require.NoError(t, err)

	records, err := s.Run(context.Background(), q)
	require.NoError(t, err)

	out := filepath.Join(t.TempDir(), "output", "places.csv")
	require.NoError(t, sink.WriteCSVFile(out, records))

	b, err := os.ReadFile(out)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimRight(string(b), "\n"), "\n")
	require.Equal(t, []string{
		"name,latitude,longitude,address,country,type",
		"Toronto Workshop,43.65,-79.38,,,",
		"Vancouver Workshop,49.28,-123.12,,,",
		"Calgary Workshop,51.04,-114.07,,,",
	}, lines)

	require.Len(t, browser.Navigated(), 1)
	require.Contains(t, browser.Navigated()[0], "countrycodes=ca")
	require.Zero(t, browser.OpenSessions(), "session must be closed after the run")
	require.Equal(t, Stats{Busy: false, Runs: 1}, s.Stats())
}

func TestScraperNoResultsIsSuccess(t *testing.T) {
	browser := engine.NewStaticBrowser(`<div id="searchresults">No search results found</div>`, "#searchresults")
	s := newTestScraper(browser)

	records, err := s.Run(context.Background(), testQuery)
	require.NoError(t, err)
	require.Empty(t, records)
	require.Zero(t, browser.OpenSessions())
}

func TestScraperExhaustionClosesSession(t *testing.T) {
	// the ready selector never appears, so every attempt is transient
	browser := engine.NewStaticBrowser(`<html><body>loading…</body></html>`, "#searchresults")
	s := newTestScraper(browser)

	_, err := s.Run(context.Background(), testQuery)
	require.Error(t, err)
	require.Equal(t, models.ErrCodeExhausted, models.CodeOf(err))

	var ready *engine.ReadyTimeoutError
	require.True(t, errors.As(err, &ready))
	require.Len(t, browser.Navigated(), 3)
	require.Zero(t, browser.OpenSessions())
}

func TestScraperSessionOpenFailure(t *testing.T) {
	s := newTestScraper(failingBrowser{})

	_, err := s.Run(context.Background(), testQuery)
	require.Equal(t, models.ErrCodeBrowserCrash, models.CodeOf(err))
}

type failingBrowser struct{}

func (failingBrowser) Name() string { return "failing" }
func (failingBrowser) OpenSession(context.Context) (engine.Session, error) {
	return nil, errors.New("chrome exited")
}
func (failingBrowser) Close() error { return nil }
