package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
	"github.com/use-agent/placescout/config"
	"github.com/use-agent/placescout/models"
	"github.com/ysmood/gson"
	"golang.org/x/time/rate"
)

// RodBrowser is the Chromium-backed Browser. One RodBrowser is launched per
// process; sessions are opened on it one at a time.
type RodBrowser struct {
	browser    *rod.Browser
	launcher   *launcher.Launcher
	browserCfg config.BrowserConfig
	scraperCfg config.ScraperConfig
	limiter    *rate.Limiter
}

// NewRodBrowser launches Chromium with the configured flags and connects to it.
func NewRodBrowser(browserCfg config.BrowserConfig, scraperCfg config.ScraperConfig) (*RodBrowser, error) {
	l := launcher.New().
		Headless(browserCfg.Headless).
		NoSandbox(browserCfg.NoSandbox)

	if browserCfg.BrowserBin != "" {
		l = l.Bin(browserCfg.BrowserBin)
	}
	if browserCfg.Proxy != "" {
		l = l.Proxy(browserCfg.Proxy)
	}

	l.Set(flags.Flag("disable-blink-features"), "AutomationControlled")
	l.Delete(flags.Flag("enable-automation"))
	l.Set(flags.Flag("disable-features"), "TranslateUI")
	l.Set(flags.Flag("disable-dev-shm-usage"))
	l.Set(flags.Flag("disable-extensions"))
	l.Set(flags.Flag("disable-component-update"))
	l.Set(flags.Flag("no-first-run"))

	controlURL, err := l.Launch()
	if err != nil {
		return nil, models.NewScrapeError(models.ErrCodeBrowserCrash, "failed to launch browser", err)
	}
	slog.Info("browser launched", "controlURL", controlURL)

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		l.Kill()
		return nil, models.NewScrapeError(models.ErrCodeBrowserCrash, "failed to connect to browser", err)
	}

	limit := rate.Inf
	if scraperCfg.NavigationsPerSecond > 0 {
		limit = rate.Limit(scraperCfg.NavigationsPerSecond)
	}

	return &RodBrowser{
		browser:    browser,
		launcher:   l,
		browserCfg: browserCfg,
		scraperCfg: scraperCfg,
		limiter:    rate.NewLimiter(limit, 1),
	}, nil
}

func (b *RodBrowser) Name() string { return "rod" }

// OpenSession creates a tab and prepares it for the search UI: user agent,
// viewport, CSP bypass, headers and (optionally) stealth evasions. All of it
// must happen before the first navigation to take effect.
func (b *RodBrowser) OpenSession(ctx context.Context) (Session, error) {
	page, err := b.browser.Page(proto.TargetCreateTarget{})
	if err != nil {
		return nil, models.NewScrapeError(models.ErrCodeBrowserCrash, "failed to open page", err)
	}

	if b.browserCfg.UserAgent != "" {
		if err := page.SetUserAgent(&proto.NetworkSetUserAgentOverride{UserAgent: b.browserCfg.UserAgent}); err != nil {
			slog.Warn("failed to set user agent", "error", err)
		}
	}
	if b.browserCfg.ViewportWidth > 0 && b.browserCfg.ViewportHeight > 0 {
		if err := page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
			Width:             b.browserCfg.ViewportWidth,
			Height:            b.browserCfg.ViewportHeight,
			DeviceScaleFactor: 1,
		}); err != nil {
			slog.Warn("failed to set viewport", "error", err)
		}
	}
	if err := (proto.PageSetBypassCSP{Enabled: true}).Call(page); err != nil {
		slog.Debug("bypass CSP not applied", "error", err)
	}
	_ = proto.NetworkSetExtraHTTPHeaders{
		Headers: toHeadersMap(map[string]string{"Accept-Language": "en-US,en;q=0.9"}),
	}.Call(page)

	if b.browserCfg.Stealth {
		if _, err := page.EvalOnNewDocument(stealth.JS); err != nil {
			slog.Warn("stealth injection failed, proceeding without stealth", "error", err)
		}
	}

	return &rodSession{browser: b, page: page}, nil
}

// Close shuts Chromium down and removes its temporary profile.
func (b *RodBrowser) Close() error {
	slog.Info("closing browser")
	err := b.browser.Close()
	b.launcher.Cleanup()
	return err
}

type rodSession struct {
	browser  *RodBrowser
	page     *rod.Page
	router   *rod.HijackRouter
	attempts int
}

func (s *rodSession) Intercept(allow RequestPredicate) error {
	if s.router != nil {
		_ = s.router.Stop()
	}
	s.router = mountHijack(s.page, allow)
	return nil
}

// Navigate waits for the navigation budget, loads url and then waits for the
// readiness selector to be attached, all bounded by timeout.
func (s *rodSession) Navigate(ctx context.Context, url string, timeout time.Duration) (Page, error) {
	s.attempts++

	attemptCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := s.browser.limiter.Wait(attemptCtx); err != nil {
		if ctxErr := attemptCtx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("waiting for navigation budget: %w", ctxErr)
		}
		return nil, models.NewScrapeError(models.ErrCodeTimeout, "navigation budget exceeds attempt timeout", err)
	}

	p := s.page.Context(attemptCtx)
	if err := p.Navigate(url); err != nil {
		s.snapshot()
		var navErr *rod.NavigationError
		if errors.As(err, &navErr) {
			return nil, &NavigationError{URL: url, Reason: navErr.Reason}
		}
		return nil, fmt.Errorf("navigate %s: %w", url, err)
	}

	ready := s.browser.scraperCfg.ReadySelector
	if ready != "" {
		if _, err := p.Element(ready); err != nil {
			s.snapshot()
			return nil, &ReadyTimeoutError{Selector: ready, Err: err}
		}
	}

	return &rodPage{page: s.page}, nil
}

// snapshot saves a full-page screenshot of a failed attempt when a debug
// directory is configured. Failures are only logged.
func (s *rodSession) snapshot() {
	dir := s.browser.scraperCfg.DebugDir
	if dir == "" {
		return
	}
	img, err := s.page.Timeout(10*time.Second).Screenshot(true, nil)
	if err != nil {
		slog.Debug("debug screenshot failed", "error", err)
		return
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		slog.Debug("debug dir not writable", "dir", dir, "error", err)
		return
	}
	path := filepath.Join(dir, fmt.Sprintf("page_error_attempt_%d.png", s.attempts))
	if err := os.WriteFile(path, img, 0o644); err != nil {
		slog.Debug("debug screenshot not written", "path", path, "error", err)
		return
	}
	slog.Info("saved debug screenshot", "path", path)
}

func (s *rodSession) Close() error {
	if s.router != nil {
		_ = s.router.Stop()
		s.router = nil
	}
	return s.page.Close()
}

type rodPage struct {
	page *rod.Page
}

func (p *rodPage) WaitFor(ctx context.Context, selector string, timeout time.Duration) error {
	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	err := p.page.Context(waitCtx).WaitElementsMoreThan(selector, 0)
	if err != nil && errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
		return ErrWaitTimeout
	}
	return err
}

func (p *rodPage) QueryAll(ctx context.Context, selector string) ([]Element, error) {
	els, err := p.page.Context(ctx).Elements(selector)
	if err != nil {
		return nil, err
	}
	out := make([]Element, len(els))
	for i, el := range els {
		out[i] = &rodElement{el: el}
	}
	return out, nil
}

type rodElement struct {
	el *rod.Element
}

func (e *rodElement) Text() (string, error) {
	return e.el.Text()
}

func (e *rodElement) Attr(name string) (string, bool, error) {
	v, err := e.el.Attribute(name)
	if err != nil {
		return "", false, err
	}
	if v == nil {
		return "", false, nil
	}
	return *v, true, nil
}

func (e *rodElement) Query(selector string) (Element, error) {
	els, err := e.el.Elements(selector)
	if err != nil {
		return nil, err
	}
	if len(els) == 0 {
		return nil, nil
	}
	return &rodElement{el: els[0]}, nil
}

// toHeadersMap converts a plain string map to the proto.NetworkHeaders type
// (map[string]gson.JSON) required by NetworkSetExtraHTTPHeaders.
func toHeadersMap(headers map[string]string) proto.NetworkHeaders {
	m := make(proto.NetworkHeaders, len(headers))
	for k, v := range headers {
		m[k] = gson.New(v)
	}
	return m
}
