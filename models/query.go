package models

import "strings"

// DefaultLimit is the number of results requested from the search UI.
// The Nominatim UI refuses anything above it.
const DefaultLimit = 50

// SearchQuery is the immutable input of a run. Build it with NewSearchQuery.
type SearchQuery struct {
	Term    string `json:"term"`
	Country string `json:"country"`
	Limit   int    `json:"limit"`
}

// NewSearchQuery trims and validates the inputs. A limit outside 1..DefaultLimit
// is clamped.
func NewSearchQuery(term, country string, limit int) (SearchQuery, error) {
	term = strings.TrimSpace(term)
	country = strings.TrimSpace(country)
	if term == "" {
		return SearchQuery{}, ConfigError("search term must not be empty")
	}
	if country == "" {
		return SearchQuery{}, ConfigError("country must not be empty")
	}
	if limit <= 0 || limit > DefaultLimit {
		limit = DefaultLimit
	}
	return SearchQuery{Term: term, Country: country, Limit: limit}, nil
}

func (q SearchQuery) String() string {
	return q.Term + " in " + q.Country
}
