package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/grantscope/orgsite/pkg/config"
)

// Tavily queries the Tavily search API. Requires an API key.
type Tavily struct {
	apiKey      string
	searchDepth string
	baseURL     string
	client      *http.Client
	logger      *slog.Logger
}

// NewTavily creates the Tavily backend.
func NewTavily(cfg config.TavilyConfig, timeout time.Duration) *Tavily {
	depth := cfg.SearchDepth
	if depth == "" {
		depth = "advanced"
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "https://api.tavily.com/search"
	}
	return &Tavily{
		apiKey:      cfg.APIKey,
		searchDepth: depth,
		baseURL:     baseURL,
		client:      &http.Client{Timeout: timeout},
		logger:      slog.Default().With("component", "search-tavily"),
	}
}

func (t *Tavily) Name() string { return "tavily" }

func (t *Tavily) Available() bool { return t.apiKey != "" }

func (t *Tavily) Search(ctx context.Context, query string, maxResults int) ([]Result, error) {
	payload, err := json.Marshal(map[string]any{
		"query":        query,
		"search_depth": t.searchDepth,
		"max_results":  maxResults,
	})
	if err != nil {
		return nil, fmt.Errorf("encoding tavily request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.baseURL, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("building tavily request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+t.apiKey)

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("tavily request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("tavily returned status %d", resp.StatusCode)
	}

	var parsed struct {
		Results []struct {
			URL     string `json:"url"`
			Title   string `json:"title"`
			Content string `json:"content"`
		} `json:"results"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decoding tavily response: %w", err)
	}

	results := make([]Result, 0, len(parsed.Results))
	for _, r := range parsed.Results {
		if r.URL == "" {
			continue
		}
		results = append(results, Result{URL: r.URL, Title: r.Title, Snippet: r.Content})
		if len(results) >= maxResults {
			break
		}
	}

	t.logger.Debug("search completed", "query", query, "results", len(results))
	return results, nil
}
