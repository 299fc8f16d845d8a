// Package resolver orchestrates the canonical-homepage lookup pipeline:
// normalize, cache probe, direct domain guessing, multi-query web search
// with ranking and live validation, and finally the bounded AI fallback
// agent. Stages run cheapest-first; the first validated answer wins.
package resolver

import (
	"context"
	"errors"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/grantscope/orgsite/internal/agent"
	"github.com/grantscope/orgsite/internal/events"
	"github.com/grantscope/orgsite/internal/resolver/aggregate"
	"github.com/grantscope/orgsite/internal/resolver/blocklist"
	"github.com/grantscope/orgsite/internal/resolver/cache"
	"github.com/grantscope/orgsite/internal/resolver/guess"
	"github.com/grantscope/orgsite/internal/resolver/normalize"
	"github.com/grantscope/orgsite/internal/resolver/score"
	"github.com/grantscope/orgsite/internal/resolver/validate"
	"github.com/grantscope/orgsite/internal/urlutil"
	"github.com/grantscope/orgsite/pkg/config"
	apperrors "github.com/grantscope/orgsite/pkg/errors"
	"github.com/grantscope/orgsite/pkg/logger"
	"github.com/grantscope/orgsite/pkg/metrics"
)

// Source identifies which pipeline stage produced a resolved URL.
type Source string

const (
	SourceCache        Source = "cache"
	SourceDirectDomain Source = "direct-domain"
	SourceSearch       Source = "search"
	SourceAgent        Source = "agent"
)

// Confidence grades a resolved URL. High means the homepage was fetched and
// its content confirmed the organization; low means the URL ranked well but
// was never validated live.
type Confidence string

const (
	ConfidenceHigh Confidence = "high"
	ConfidenceLow  Confidence = "low"
)

// Result is the terminal outcome of one resolution.
type Result struct {
	Name       string
	Key        string
	URL        string
	Source     Source
	Confidence Confidence
	Resolved   bool
	Reason     string
	CacheHit   bool
	Latency    time.Duration
}

// Resolver runs the lookup pipeline. Concurrent lookups for the same
// normalized key are coalesced so the expensive miss path runs once.
type Resolver struct {
	cache     *cache.Cache
	agg       *aggregate.Aggregator
	validator *validate.Validator
	blocked   *blocklist.Blocklist
	agent     *agent.Agent // nil when no LLM credentials are configured
	metrics   *metrics.Metrics
	collector *events.Collector // nil when event publishing is disabled
	cfg       config.ResolverConfig
	group     singleflight.Group
}

// New creates a Resolver. agent and collector may be nil.
func New(
	c *cache.Cache,
	agg *aggregate.Aggregator,
	validator *validate.Validator,
	blocked *blocklist.Blocklist,
	ag *agent.Agent,
	m *metrics.Metrics,
	collector *events.Collector,
	cfg config.ResolverConfig,
) *Resolver {
	return &Resolver{
		cache:     c,
		agg:       agg,
		validator: validator,
		blocked:   blocked,
		agent:     ag,
		metrics:   m,
		collector: collector,
		cfg:       cfg,
	}
}

// Resolve looks up the canonical homepage for the named organization.
// It returns an error only for invalid input; a lookup that exhausts every
// stage yields Resolved=false with a Reason, not an error.
func (r *Resolver) Resolve(ctx context.Context, rawName string, hints *agent.Hints) (Result, error) {
	start := time.Now()
	log := logger.FromContext(ctx)

	// A name that filters down to no usable tokens fails before any
	// network activity, even when stopwords leave a non-empty key.
	query := normalize.Name(rawName)
	if len(query.Tokens) == 0 {
		return Result{}, apperrors.ErrEmptyQuery
	}

	if url, ok := r.cache.Get(ctx, query.Key); ok {
		r.metrics.CacheHitsTotal.Inc()
		result := Result{
			Name:       rawName,
			Key:        query.Key,
			URL:        url,
			Source:     SourceCache,
			Confidence: ConfidenceHigh,
			Resolved:   true,
			CacheHit:   true,
			Latency:    time.Since(start),
		}
		r.finish(ctx, result)
		return result, nil
	}
	r.metrics.CacheMissesTotal.Inc()

	v, err, _ := r.group.Do(query.Key, func() (any, error) {
		return r.resolveMiss(ctx, query, hints), nil
	})
	if err != nil {
		return Result{}, err
	}

	result := v.(Result)
	result.Name = rawName
	result.Latency = time.Since(start)
	r.finish(ctx, result)

	log.Info("resolution finished",
		"key", query.Key,
		"resolved", result.Resolved,
		"source", result.Source,
		"confidence", result.Confidence,
		"latency_ms", result.Latency.Milliseconds(),
	)
	return result, nil
}

// resolveMiss runs the guess, search, and agent stages in order. The
// heuristic stages share a soft deadline; the agent carries its own budget.
func (r *Resolver) resolveMiss(ctx context.Context, query normalize.Query, hints *agent.Hints) Result {
	log := logger.FromContext(ctx)

	heuristicCtx, cancel := context.WithTimeout(ctx, r.cfg.HeuristicBudget)
	defer cancel()

	if url, ok := r.tryDirectDomains(heuristicCtx, query); ok {
		result := Result{Key: query.Key, URL: url, Source: SourceDirectDomain, Confidence: ConfidenceHigh, Resolved: true}
		r.cache.Put(ctx, query.Key, url)
		return result
	}

	ranked, validated := r.trySearch(heuristicCtx, query)
	if validated != "" {
		result := Result{Key: query.Key, URL: validated, Source: SourceSearch, Confidence: ConfidenceHigh, Resolved: true}
		r.cache.Put(ctx, query.Key, validated)
		return result
	}

	// A candidate that ranked positively but failed live validation is
	// terminal: surface it unvalidated at low confidence and cache it.
	// The agent only runs when scoring produced nothing at all.
	if best := bestEffort(ranked); best != "" {
		r.cache.Put(ctx, query.Key, best)
		return Result{Key: query.Key, URL: best, Source: SourceSearch, Confidence: ConfidenceLow, Resolved: true}
	}

	if r.agent != nil {
		url, iterations, err := r.agent.Resolve(ctx, query.Raw, query.Tokens, hints)
		r.metrics.AgentIterations.Observe(float64(iterations))
		if err == nil && url != "" {
			result := Result{Key: query.Key, URL: url, Source: SourceAgent, Confidence: ConfidenceHigh, Resolved: true}
			r.cache.Put(ctx, query.Key, url)
			return result
		}
		if err != nil && !errors.Is(err, apperrors.ErrAgentExhausted) {
			log.Warn("agent run failed", "key", query.Key, "error", err)
		}
	}

	reason := "no candidate confirmed"
	if len(ranked) == 0 {
		reason = "no candidates found"
	}
	return Result{Key: query.Key, Resolved: false, Reason: reason}
}

// tryDirectDomains synthesizes hostnames from the name tokens and validates
// them live, cheapest stage first.
func (r *Resolver) tryDirectDomains(ctx context.Context, query normalize.Query) (string, bool) {
	domains := guess.Domains(query.Tokens, r.cfg.MaxDomainGuesses)
	kept := domains[:0]
	for _, d := range domains {
		if !r.blocked.Blocked(urlutil.Domain(d)) {
			kept = append(kept, d)
		}
	}
	if len(kept) == 0 {
		return "", false
	}
	i := r.validator.First(ctx, kept, query.Tokens)
	r.observeValidation(i)
	if i >= 0 {
		return kept[i], true
	}
	return "", false
}

// trySearch aggregates multi-query search hits, ranks them, and validates
// the top candidates. It returns the full ranked list either way so the
// caller can fall back to a low-confidence best effort.
func (r *Resolver) trySearch(ctx context.Context, query normalize.Query) ([]score.Candidate, string) {
	candidates, attempts := r.agg.Candidates(ctx, query.Raw)
	for _, attempt := range attempts {
		status := "ok"
		if attempt.Err != nil {
			status = "error"
		}
		r.metrics.SearchQueriesTotal.WithLabelValues(r.agg.BackendName(), status).Inc()
	}
	if len(candidates) == 0 {
		return nil, ""
	}

	ranked := score.Rank(candidates, query.Tokens, r.blocked)
	if len(ranked) == 0 {
		return nil, ""
	}

	topK := r.cfg.ValidateTopK
	if topK > len(ranked) {
		topK = len(ranked)
	}
	roots := make([]string, 0, topK)
	for _, c := range ranked[:topK] {
		if root := urlutil.Root(c.URL); root != "" {
			roots = append(roots, root)
		}
	}
	i := r.validator.First(ctx, roots, query.Tokens)
	r.observeValidation(i)
	if i >= 0 {
		return ranked, roots[i]
	}
	return ranked, ""
}

func (r *Resolver) observeValidation(first int) {
	if first >= 0 {
		r.metrics.ValidationFetches.WithLabelValues("accepted").Inc()
	} else {
		r.metrics.ValidationFetches.WithLabelValues("rejected").Inc()
	}
}

// bestEffort returns the root URL of the highest-ranked candidate with a
// positive score, or "".
func bestEffort(ranked []score.Candidate) string {
	for _, c := range ranked {
		if c.Score <= 0 {
			continue
		}
		if root := urlutil.Root(c.URL); root != "" {
			return root
		}
	}
	return ""
}

func (r *Resolver) finish(ctx context.Context, result Result) {
	outcome := outcomeLabel(result)
	r.metrics.ResolutionsTotal.WithLabelValues(outcome).Inc()
	r.metrics.ResolutionLatency.WithLabelValues(outcome).Observe(result.Latency.Seconds())

	if r.collector == nil {
		return
	}
	event := events.ResolutionEvent{
		Name:       result.Name,
		Key:        result.Key,
		URL:        result.URL,
		Source:     string(result.Source),
		Confidence: string(result.Confidence),
		Reason:     result.Reason,
		CacheHit:   result.CacheHit,
		LatencyMs:  result.Latency.Milliseconds(),
		Timestamp:  time.Now().UTC(),
		RequestID:  logger.RequestID(ctx),
	}
	r.collector.Track(event)
}

func outcomeLabel(result Result) string {
	if result.Resolved {
		return string(result.Source)
	}
	return "unresolved_" + strings.ReplaceAll(result.Reason, " ", "_")
}
