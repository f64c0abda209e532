package models

// SearchResponse is the response for POST /api/v1/search.
type SearchResponse struct {
	// Success indicates whether the search completed without errors.
	Success bool `json:"success"`

	Query SearchQuery `json:"query"`

	// Count is len(Records); zero is a valid, successful outcome.
	Count int `json:"count"`

	Records []ResultRecord `json:"records"`

	// CacheStatus is "hit", "miss", or empty (caching not requested).
	CacheStatus string `json:"cache_status,omitempty"`

	Timing TimingInfo `json:"timing"`

	// Error is populated only when Success is false.
	Error *ErrorDetail `json:"error,omitempty"`
}

// TimingInfo breaks down the time spent in each phase.
type TimingInfo struct {
	TotalMs int64 `json:"total_ms"`
}

// HealthResponse is the response for GET /api/v1/health.
type HealthResponse struct {
	Status  string `json:"status"` // "healthy" or "busy"
	Uptime  string `json:"uptime"`
	Busy    bool   `json:"busy"`
	Runs    int64  `json:"runs"`
	Version string `json:"version"`
}

// RunSummary describes a finished run in webhook events.
type RunSummary struct {
	Query      SearchQuery  `json:"query"`
	Count      int          `json:"count"`
	Output     string       `json:"output,omitempty"`
	DurationMs int64        `json:"duration_ms"`
	Error      *ErrorDetail `json:"error,omitempty"`
}
