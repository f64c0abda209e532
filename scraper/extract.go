package scraper

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/use-agent/placescout/config"
	"github.com/use-agent/placescout/engine"
	"github.com/use-agent/placescout/models"
)

// Extractor reads the rendered results list into records.
type Extractor struct {
	cfg config.ExtractConfig
}

// defaultWait bounds the wait for the results list when the config leaves it unset.
const defaultWait = 5 * time.Second

// NewExtractor creates an Extractor using the configured selectors.
func NewExtractor(cfg config.ExtractConfig) *Extractor {
	if cfg.WaitTimeout <= 0 {
		cfg.WaitTimeout = defaultWait
	}
	return &Extractor{cfg: cfg}
}

// Extract waits (bounded) for the first result item and then maps every item
// into a ResultRecord, in document order.
//
// A list that never appears is a valid "no results" outcome and yields an
// empty slice. Items without a name are skipped. An error is returned only
// when the page itself cannot be queried.
func (x *Extractor) Extract(ctx context.Context, page engine.Page) ([]models.ResultRecord, error) {
	records := []models.ResultRecord{}

	if err := page.WaitFor(ctx, x.cfg.ItemSelector, x.cfg.WaitTimeout); err != nil {
		if errors.Is(err, engine.ErrWaitTimeout) {
			slog.Info("no results found", "selector", x.cfg.ItemSelector, "waited", x.cfg.WaitTimeout)
			return records, nil
		}
		return nil, models.NewScrapeError(models.ErrCodeExtraction, "waiting for results failed", err)
	}

	if x.cfg.SettleDelay > 0 {
		if err := sleepCtx(ctx, x.cfg.SettleDelay); err != nil {
			return nil, models.NewScrapeError(models.ErrCodeTimeout, "canceled while results settled", err)
		}
	}

	items, err := page.QueryAll(ctx, x.cfg.ItemSelector)
	if err != nil {
		return nil, models.NewScrapeError(models.ErrCodeExtraction, "querying result items failed", err)
	}

	skipped := 0
	for i, item := range items {
		rec, ok := x.parseItem(item)
		if !ok {
			skipped++
			slog.Debug("skipping result item without a name", "position", i)
			continue
		}
		records = append(records, rec)
	}

	slog.Info("results extracted", "records", len(records), "skipped", skipped)
	return records, nil
}

// parseItem reads one result card. ok is false when the card has no name.
func (x *Extractor) parseItem(item engine.Element) (rec models.ResultRecord, ok bool) {
	fullName := childText(item, x.cfg.NameSelector)
	if fullName == "" {
		return rec, false
	}
	name, address, country := splitDisplayName(fullName)
	if name == "" {
		return rec, false
	}

	rec = models.ResultRecord{
		Name:    name,
		Address: address,
		Country: country,
		Type:    childText(item, x.cfg.TypeSelector),
	}
	rec.Latitude, rec.Longitude = x.coordinates(item)
	return rec, true
}

// coordinates prefers data-lat/data-lon on the card and falls back to the
// "lat,lon" text of the coords element. Malformed values yield nil.
func (x *Extractor) coordinates(item engine.Element) (*float64, *float64) {
	latAttr, hasLat, errLat := item.Attr("data-lat")
	lonAttr, hasLon, errLon := item.Attr("data-lon")
	if errLat == nil && errLon == nil && hasLat && hasLon {
		lat, lon := parseCoordinate(latAttr, 90), parseCoordinate(lonAttr, 180)
		if lat != nil && lon != nil {
			return lat, lon
		}
	}

	txt := childText(item, x.cfg.CoordsSelector)
	if txt == "" {
		return nil, nil
	}
	latStr, lonStr, found := strings.Cut(txt, ",")
	if !found {
		slog.Debug("malformed coordinates", "text", txt)
		return nil, nil
	}
	lat, lon := parseCoordinate(latStr, 90), parseCoordinate(lonStr, 180)
	if lat == nil || lon == nil {
		slog.Debug("malformed coordinates", "text", txt)
		return nil, nil
	}
	return lat, lon
}

// splitDisplayName splits "Name, street, city, region, Country" into the
// leading name, the middle parts as the address, and the trailing country.
func splitDisplayName(full string) (name, address, country string) {
	var parts []string
	for _, p := range strings.Split(full, ",") {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	switch len(parts) {
	case 0:
		return "", "", ""
	case 1:
		return parts[0], "", ""
	case 2:
		return parts[0], "", parts[1]
	default:
		return parts[0], strings.Join(parts[1:len(parts)-1], ", "), parts[len(parts)-1]
	}
}

func parseCoordinate(s string, limit float64) *float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(f) || math.Abs(f) > limit {
		return nil
	}
	return &f
}

// childText returns the whitespace-normalised text of the first descendant
// matching selector, or "" when it is missing or unreadable.
func childText(el engine.Element, selector string) string {
	child, err := el.Query(selector)
	if err != nil || child == nil {
		return ""
	}
	txt, err := child.Text()
	if err != nil {
		return ""
	}
	return strings.Join(strings.Fields(txt), " ")
}
