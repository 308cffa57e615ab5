package models

// SearchResponse is the response for POST /api/v1/search.
type SearchResponse struct {
	// Success indicates whether the listing phase completed. Per-item detail
	// failures do not clear it; they show up in Diagnostics instead.
	Success bool `json:"success"`

	// Jobs is the enriched output in listing order.
	Jobs []EnrichedJob `json:"jobs"`

	// TotalCount is the site-reported total match count for the search.
	TotalCount int `json:"total_count"`

	// Diagnostics lists the non-fatal conditions recorded during the run.
	Diagnostics []Diagnostic `json:"diagnostics,omitempty"`

	// Timing provides duration breakdowns for the operation.
	Timing TimingInfo `json:"timing"`

	// Error is populated only when Success is false.
	Error *ErrorDetail `json:"error,omitempty"`
}

// TimingInfo breaks down the time spent in each phase.
type TimingInfo struct {
	// TotalMs is the end-to-end duration in milliseconds.
	TotalMs int64 `json:"total_ms"`

	// ListingMs is the time spent fetching and parsing the search page.
	ListingMs int64 `json:"listing_ms"`

	// DetailMs is the time spent in the per-job detail loop.
	DetailMs int64 `json:"detail_ms"`
}

// HealthResponse is the response for GET /api/v1/health.
type HealthResponse struct {
	Status  string `json:"status"` // "healthy"
	Uptime  string `json:"uptime"`
	Version string `json:"version"`
}
