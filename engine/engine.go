package engine

import (
	"context"
	"fmt"
	"time"
)

// Engine is the interface that all fetch engines must implement.
type Engine interface {
	// Name returns the engine identifier (e.g. "http", "browser").
	Name() string

	// Fetch retrieves the page body for the given request.
	Fetch(ctx context.Context, req *FetchRequest) (*FetchResult, error)
}

// FetchRequest contains everything an engine needs to fetch a page.
type FetchRequest struct {
	URL string

	// Headers are set on top of the engine's browser-consistent defaults.
	Headers map[string]string

	// Timeout overrides the engine's default deadline when non-zero.
	Timeout time.Duration
}

// FetchResult is the output of a successful engine fetch.
type FetchResult struct {
	Body       string
	StatusCode int
	FinalURL   string
	EngineName string
}

// StatusError reports a non-2xx response. The listing phase treats it as
// fatal; the detail loop records it as a per-item diagnostic.
type StatusError struct {
	Code int
	URL  string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("engine: HTTP %d for %s", e.Code, e.URL)
}
