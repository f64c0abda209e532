package scraper

import (
	"net/url"
	"strconv"
	"strings"
	"sync"

	"github.com/use-agent/placescout/models"
	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// BuildSearchURL embeds the query into the search UI's URL parameters:
// q (the term), countrycodes (ISO 3166-1 alpha-2, lower case) and limit.
func BuildSearchURL(baseURL string, q models.SearchQuery) (string, error) {
	u, err := url.Parse(baseURL)
	if err != nil || !u.IsAbs() || u.Host == "" {
		return "", models.ConfigError("invalid search base URL %q", baseURL)
	}
	code, err := CountryCode(q.Country)
	if err != nil {
		return "", err
	}

	limit := q.Limit
	if limit <= 0 || limit > models.DefaultLimit {
		limit = models.DefaultLimit
	}

	v := u.Query()
	v.Set("q", q.Term)
	v.Set("countrycodes", strings.ToLower(code))
	v.Set("limit", strconv.Itoa(limit))
	u.RawQuery = v.Encode()
	return u.String(), nil
}

var (
	countryNamesOnce sync.Once
	countryNames     map[string]string // lower-case English name -> alpha-2
)

// CountryCode resolves a country given as an ISO 3166 code ("CA", "CAN",
// "124") or an English name ("Canada") to its alpha-2 code.
func CountryCode(country string) (string, error) {
	c := strings.TrimSpace(country)
	if c == "" {
		return "", models.ConfigError("country must not be empty")
	}

	if len(c) <= 3 {
		if r, err := language.ParseRegion(c); err == nil && r.IsCountry() {
			return r.String(), nil
		}
	}

	countryNamesOnce.Do(buildCountryNames)
	if code, ok := countryNames[strings.ToLower(c)]; ok {
		return code, nil
	}
	return "", models.ConfigError("unknown country %q", country)
}

func buildCountryNames() {
	countryNames = make(map[string]string, 260)
	namer := display.English.Regions()
	for a := 'A'; a <= 'Z'; a++ {
		for b := 'A'; b <= 'Z'; b++ {
			r, err := language.ParseRegion(string([]rune{a, b}))
			if err != nil || !r.IsCountry() {
				continue
			}
			if name := namer.Name(r); name != "" {
				countryNames[strings.ToLower(name)] = r.String()
			}
		}
	}
}
