package scraper

import (
	"context"
	"log/slog"
	"net/url"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/temoto/robotstxt"
	"github.com/use-agent/placescout/models"
)

// RobotsGate refuses runs whose search URL the site's robots.txt disallows.
// An unreachable or unparsable robots.txt does not block the run.
type RobotsGate struct {
	client    *resty.Client
	userAgent string
}

// NewRobotsGate creates a gate that evaluates rules for userAgent.
func NewRobotsGate(userAgent string) *RobotsGate {
	client := resty.New()
	client.SetHeader("User-Agent", userAgent)
	client.SetTimeout(10 * time.Second)
	return &RobotsGate{client: client, userAgent: userAgent}
}

// Check returns an INVALID_INPUT error when target is disallowed.
func (g *RobotsGate) Check(ctx context.Context, target string) error {
	u, err := url.Parse(target)
	if err != nil {
		return models.ConfigError("invalid target URL %q", target)
	}
	robotsURL := u.Scheme + "://" + u.Host + "/robots.txt"

	res, err := g.client.R().SetContext(ctx).Get(robotsURL)
	if err != nil {
		slog.Warn("robots.txt unreachable, proceeding", "url", robotsURL, "error", err)
		return nil
	}
	if res.StatusCode() >= 500 {
		slog.Warn("robots.txt unavailable, proceeding", "url", robotsURL, "status", res.StatusCode())
		return nil
	}
	data, err :=robotstxt.FromStatusAndBytes(res.StatusCode(), res.Body())
	if err != nil {
		slog.Warn("robots.txt unparsable, proceeding", "url", robotsURL, "error", err)
		return nil
	}

	path := u.EscapedPath()
	if path == "" {
		path = "/"
	}
	if !data.TestAgent(path, g.userAgent) {
		return models.ConfigError("robots.txt at %s disallows %s", robotsURL, path)
	}
	return nil
}
