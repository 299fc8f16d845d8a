// Package search defines the web-search backend contract and its
// implementations. Every backend normalizes its provider's response shape
// into the same Result record at the adapter boundary, so version drift in
// provider APIs never leaks past this package.
package search

import "context"

// Result is one web-search hit, normalized across backends.
type Result struct {
	URL     string `json:"url"`
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
}

// Backend issues a single search query against a web-search provider.
// Implementations must honor ctx cancellation and bound every request.
type Backend interface {
	// Name identifies the backend ("duckduckgo", "serpapi", "tavily").
	Name() string

	// Search returns up to maxResults hits for the query.
	Search(ctx context.Context, query string, maxResults int) ([]Result, error)

	// Available reports whether the backend is usable: credentials are
	// present where required. It does not issue network calls.
	Available() bool
}
