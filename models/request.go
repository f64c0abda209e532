package models

// SearchRequest is the payload for POST /api/v1/search.
type SearchRequest struct {
	// Term is the free-text search term. Default: "Workshop".
	Term string `json:"term,omitempty"`

	// Country is a country name ("Canada") or ISO 3166 code ("CA", "CAN"). Required.
	Country string `json:"country" binding:"required"`

	// Limit caps the number of results requested. Default and max: 50.
	Limit int `json:"limit,omitempty" binding:"omitempty,min=1,max=50"`

	// MaxAge enables the response cache: a cached result younger than
	// MaxAge milliseconds is returned without launching a navigation.
	MaxAge int `json:"max_age,omitempty" binding:"omitempty,min=0"`
}

// Defaults applies default values to unset fields.
func (r *SearchRequest) Defaults(defaultTerm string) {
	if r.Term == "" {
		r.Term = defaultTerm
	}
	if r.Limit == 0 {
		r.Limit = DefaultLimit
	}
}
