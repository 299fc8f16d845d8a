// Package aggregate issues a fixed set of search-query formulations against
// the configured web-search backend and merges the hits into one candidate
// list, deduplicated by domain.
package aggregate

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/grantscope/orgsite/internal/resolver/score"
	"github.com/grantscope/orgsite/internal/search"
	"github.com/grantscope/orgsite/internal/urlutil"
)

// queryTemplates are the formulations tried for every name, in order.
var queryTemplates = []string{
	"%s official website",
	"%s foundation",
	"%s grants",
	"%s .org",
}

// Attempt records the outcome of one query formulation.
type Attempt struct {
	Query string
	Hits  int
	Err   error
}

// Aggregator merges multi-query search results into a deduplicated
// candidate list.
type Aggregator struct {
	backend    search.Backend
	maxResults int
	maxUnique  int
	logger     *slog.Logger
}

// New creates an Aggregator. maxUnique caps the merged candidate count.
func New(backend search.Backend, maxResults, maxUnique int) *Aggregator {
	return &Aggregator{
		backend:    backend,
		maxResults: maxResults,
		maxUnique:  maxUnique,
		logger:     slog.Default().With("component", "aggregator"),
	}
}

// BackendName names the search backend attempts run against.
func (a *Aggregator) BackendName() string {
	return a.backend.Name()
}

// Candidates runs every query formulation for the name and merges the hits,
// deduplicating by domain with first-seen-wins. Individual query failures
// are recorded per attempt and skipped; only a total failure of all
// formulations leaves the candidate list empty.
func (a *Aggregator) Candidates(ctx context.Context, name string) ([]score.Candidate, []Attempt) {
	attempts := make([]Attempt, 0, len(queryTemplates))
	candidates := make([]score.Candidate, 0, a.maxUnique)
	seen := make(map[string]struct{})

	for _, tmpl := range queryTemplates {
		if ctx.Err() != nil {
			break
		}
		query := fmt.Sprintf(tmpl, name)
		results, err := a.backend.Search(ctx, query, a.maxResults)
		if err != nil {
			a.logger.Warn("search query failed", "backend", a.backend.Name(), "query", query, "error", err)
			attempts = append(attempts, Attempt{Query: query, Err: err})
			continue
		}
		added := 0
		for _, r := range results {
			domain := urlutil.Domain(r.URL)
			if domain == "" {
				continue
			}
			if _, dup := seen[domain]; dup {
				continue
			}
			if len(candidates) >= a.maxUnique {
				break
			}
			seen[domain] = struct{}{}
			candidates = append(candidates, score.Candidate{
				URL:     r.URL,
				Title:   r.Title,
				Snippet: r.Snippet,
				Domain:  domain,
			})
			added++
		}
		attempts = append(attempts, Attempt{Query: query, Hits: added})
	}

	a.logger.Info("candidates aggregated",
		"name", name,
		"queries", len(attempts),
		"unique_candidates", len(candidates),
	)
	return candidates, attempts
}
