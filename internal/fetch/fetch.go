// Package fetch retrieves homepage content for validation. Every fetch is
// bounded: one timeout per request, response bodies capped, and all network
// failures absorbed into an empty result rather than an error.
package fetch

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"time"
)

const defaultMaxBodyBytes = 20 * 1024

// Fetcher retrieves a bounded prefix of a page body.
type Fetcher struct {
	client       *http.Client
	timeout      time.Duration
	maxBodyBytes int64
	logger       *slog.Logger
}

// New creates a Fetcher. A zero maxBodyBytes means the 20 KB default.
func New(timeout time.Duration, maxBodyBytes int64) *Fetcher {
	if maxBodyBytes <= 0 {
		maxBodyBytes = defaultMaxBodyBytes
	}
	return &Fetcher{
		client:       &http.Client{Timeout: timeout},
		timeout:      timeout,
		maxBodyBytes: maxBodyBytes,
		logger:       slog.Default().With("component", "fetcher"),
	}
}

// Fetch returns up to maxBodyBytes of the page at url. It probes with HEAD
// first to reject dead hosts cheaply, then GETs the body. Any network error,
// non-2xx status, or empty body yields an empty string; Fetch never fails loudly.
func (f *Fetcher) Fetch(ctx context.Context, url string) string {
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	if !f.head(ctx, url) {
		return ""
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return ""
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		f.logger.Debug("fetch failed", "url", url, "error", err)
		return ""
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		f.logger.Debug("fetch rejected", "url", url, "status", resp.StatusCode)
		return ""
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBodyBytes))
	if err != nil && len(body) == 0 {
		return ""
	}
	return string(body)
}

// head reports whether the host answers a HEAD request with a non-error
// status. Some sites reject HEAD outright; those report true and let the
// GET decide.
func (f *Fetcher) head(ctx context.Context, url string) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, nil)
	if err != nil {
		return false
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return false
	}
	resp.Body.Close()
	if resp.StatusCode == http.StatusMethodNotAllowed || resp.StatusCode == http.StatusForbidden {
		return true
	}
	return resp.StatusCode < 400
}

const userAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36"
