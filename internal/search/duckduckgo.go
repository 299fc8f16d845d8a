package search

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/grantscope/orgsite/pkg/config"
)

// DuckDuckGo scrapes the HTML results endpoint. It needs no credentials and
// serves as the guaranteed last-resort backend.
type DuckDuckGo struct {
	baseURL string
	region  string
	client  *http.Client
	logger  *slog.Logger
}

// NewDuckDuckGo creates the credential-free backend.
func NewDuckDuckGo(cfg config.DuckDuckGoConfig, timeout time.Duration) *DuckDuckGo {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "https://html.duckduckgo.com/html/"
	}
	return &DuckDuckGo{
		baseURL: baseURL,
		region:  cfg.Region,
		client:  &http.Client{Timeout: timeout},
		logger:  slog.Default().With("component", "search-duckduckgo"),
	}
}

func (d *DuckDuckGo) Name() string { return "duckduckgo" }

// Available always returns true: DuckDuckGo requires no API key.
func (d *DuckDuckGo) Available() bool { return true }

func (d *DuckDuckGo) Search(ctx context.Context, query string, maxResults int) ([]Result, error) {
	params := url.Values{}
	params.Set("q", query)
	if d.region != "" {
		params.Set("kl", d.region)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, d.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("building duckduckgo request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("duckduckgo request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("duckduckgo returned status %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parsing duckduckgo results: %w", err)
	}

	results := make([]Result, 0, maxResults)
	doc.Find("div.result").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		link := sel.Find("a.result__a").First()
		href, ok := link.Attr("href")
		if !ok {
			return true
		}
		target := resolveRedirect(href)
		if target == "" {
			return true
		}
		results = append(results, Result{
			URL:     target,
			Title:   strings.TrimSpace(link.Text()),
			Snippet: strings.TrimSpace(sel.Find("a.result__snippet").First().Text()),
		})
		return len(results) < maxResults
	})

	d.logger.Debug("search completed", "query", query, "results", len(results))
	return results, nil
}

// resolveRedirect unwraps DuckDuckGo's /l/?uddg= redirect links to the
// destination URL. Direct links pass through unchanged.
func resolveRedirect(href string) string {
	u, err := url.Parse(href)
	if err != nil {
		return ""
	}
	if target := u.Query().Get("uddg"); target != "" {
		return target
	}
	if u.Scheme == "http" || u.Scheme == "https" {
		return href
	}
	return ""
}

const userAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36"
