package search

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/grantscope/orgsite/pkg/config"
)

// SerpAPI queries Google results through serpapi.com. Requires an API key.
type SerpAPI struct {
	apiKey  string
	engine  string
	baseURL string
	client  *http.Client
	logger  *slog.Logger
}

// NewSerpAPI creates the SerpAPI backend.
func NewSerpAPI(cfg config.SerpAPIConfig, timeout time.Duration) *SerpAPI {
	engine := cfg.Engine
	if engine == "" {
		engine = "google"
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "https://serpapi.com/search.json"
	}
	return &SerpAPI{
		apiKey:  cfg.APIKey,
		engine:  engine,
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
		logger:  slog.Default().With("component", "search-serpapi"),
	}
}

func (s *SerpAPI) Name() string { return "serpapi" }

func (s *SerpAPI) Available() bool { return s.apiKey != "" }

func (s *SerpAPI) Search(ctx context.Context, query string, maxResults int) ([]Result, error) {
	params := url.Values{}
	params.Set("engine", s.engine)
	params.Set("q", query)
	params.Set("api_key", s.apiKey)
	params.Set("gl", "us")
	params.Set("hl", "en")
	params.Set("num", strconv.Itoa(maxResults))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("building serpapi request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("serpapi request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("serpapi returned status %d", resp.StatusCode)
	}

	var parsed struct {
		OrganicResults []struct {
			Link    string `json:"link"`
			Title   string `json:"title"`
			Snippet string `json:"snippet"`
		} `json:"organic_results"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decoding serpapi response: %w", err)
	}

	results := make([]Result, 0, len(parsed.OrganicResults))
	for _, r := range parsed.OrganicResults {
		if r.Link == "" {
			continue
		}
		results = append(results, Result{URL: r.Link, Title: r.Title, Snippet: r.Snippet})
		if len(results) >= maxResults {
			break
		}
	}

	s.logger.Debug("search completed", "query", query, "results", len(results))
	return results, nil
}
