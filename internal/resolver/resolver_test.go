package resolver

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/grantscope/orgsite/internal/agent"
	"github.com/grantscope/orgsite/internal/fetch"
	"github.com/grantscope/orgsite/internal/resolver/aggregate"
	"github.com/grantscope/orgsite/internal/resolver/blocklist"
	"github.com/grantscope/orgsite/internal/resolver/cache"
	"github.com/grantscope/orgsite/internal/resolver/validate"
	"github.com/grantscope/orgsite/internal/search"
	"github.com/grantscope/orgsite/internal/store"
	"github.com/grantscope/orgsite/pkg/config"
	apperrors "github.com/grantscope/orgsite/pkg/errors"
	"github.com/grantscope/orgsite/pkg/metrics"
)

// Prometheus collectors register globally, so the whole test binary shares
// one set.
var testMetrics = metrics.New()

type fakeBackend struct {
	results []search.Result
	calls   int
}

func (f *fakeBackend) Name() string    { return "fake" }
func (f *fakeBackend) Available() bool { return true }
func (f *fakeBackend) Search(context.Context, string, int) ([]search.Result, error) {
	f.calls++
	return f.results, nil
}

// scriptedLLM satisfies agent.LLM with canned replies.
type scriptedLLM struct {
	replies []agent.Message
	calls   int
}

func (s *scriptedLLM) Chat(context.Context, []agent.Message, []agent.Tool) (agent.Message, error) {
	if s.calls >= len(s.replies) {
		return agent.Message{}, errors.New("script exhausted")
	}
	reply := s.replies[s.calls]
	s.calls++
	return reply, nil
}

func testConfig() config.ResolverConfig {
	return config.ResolverConfig{
		// Domain guessing synthesizes real hostnames; disabled so tests
		// never touch the network outside httptest.
		MaxDomainGuesses:  0,
		MaxCandidates:     20,
		ValidateTopK:      5,
		ValidationWorkers: 2,
		FetchTimeout:      2 * time.Second,
		HeuristicBudget:   10 * time.Second,
		OverlapThreshold:  0.3,
	}
}

func newTestResolver(t *testing.T, backend search.Backend, fallback *agent.Agent) (*Resolver, *cache.Cache) {
	t.Helper()
	cfg := testConfig()

	st, err := store.NewFileStore(filepath.Join(t.TempDir(), "resolved.json"))
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	blocked := blocklist.New(nil)
	c := cache.New(st, blocked, testMetrics)
	fetcher := fetch.New(cfg.FetchTimeout, 0)
	validator := validate.New(fetcher, cfg.OverlapThreshold, nil, cfg.ValidationWorkers)
	agg := aggregate.New(backend, 10, cfg.MaxCandidates)

	return New(c, agg, validator, blocked, fallback, testMetrics, nil, cfg), c
}

func servePage(t *testing.T, html string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, html)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestResolveEmptyName(t *testing.T) {
	r, _ := newTestResolver(t, &fakeBackend{}, nil)
	if _, err := r.Resolve(context.Background(), "   !!!  ", nil); !errors.Is(err, apperrors.ErrEmptyQuery) {
		t.Fatalf("err = %v, want ErrEmptyQuery", err)
	}
}

func TestResolveStopwordOnlyName(t *testing.T) {
	// "The Foundation Inc" normalizes to a non-empty key but zero tokens.
	// That must fail up front without issuing a single search query.
	backend := &fakeBackend{}
	r, _ := newTestResolver(t, backend, nil)

	if _, err := r.Resolve(context.Background(), "The Foundation Inc", nil); !errors.Is(err, apperrors.ErrEmptyQuery) {
		t.Fatalf("err = %v, want ErrEmptyQuery", err)
	}
	if backend.calls != 0 {
		t.Errorf("search calls = %d, want 0", backend.calls)
	}
}

func TestResolveCacheHit(t *testing.T) {
	r, c := newTestResolver(t, &fakeBackend{}, nil)
	ctx := context.Background()
	c.Put(ctx, "william penn foundation", "https://williampennfoundation.org/")

	result, err := r.Resolve(ctx, "William Penn Foundation", nil)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if !result.Resolved || result.Source != SourceCache || !result.CacheHit {
		t.Errorf("result = %+v, want cache hit", result)
	}
	if result.Confidence != ConfidenceHigh {
		t.Errorf("confidence = %q, want high", result.Confidence)
	}
}

func TestResolveWilliamPennViaSearch(t *testing.T) {
	srv := servePage(t, `<html><head><title>William Penn Foundation</title></head>
<body><h1>William Penn Foundation</h1><p>Improving outcomes in Philadelphia.</p></body></html>`)

	backend := &fakeBackend{results: []search.Result{
		{URL: srv.URL + "/", Title: "William Penn Foundation", Snippet: "Official homepage."},
	}}
	r, c := newTestResolver(t, backend, nil)
	ctx := context.Background()

	result, err := r.Resolve(ctx, "William Penn Foundation", nil)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if !result.Resolved || result.Source != SourceSearch {
		t.Fatalf("result = %+v, want search resolution", result)
	}
	if result.Confidence != ConfidenceHigh {
		t.Errorf("confidence = %q, want high (validated live)", result.Confidence)
	}
	if result.URL != srv.URL+"/" {
		t.Errorf("url = %q, want %q", result.URL, srv.URL+"/")
	}

	// The validated answer is cached for the next lookup.
	if url, ok := c.Get(ctx, "william penn foundation"); !ok || url != result.URL {
		t.Errorf("cache after resolve = %q, %v", url, ok)
	}
}

func TestResolveLowConfidenceWithoutValidation(t *testing.T) {
	srv := servePage(t, `<html><body><p>Entirely unrelated gardening content.</p></body></html>`)

	backend := &fakeBackend{results: []search.Result{
		{URL: srv.URL + "/", Title: "Acme Fund directory entry", Snippet: "A listing."},
	}}
	r, c := newTestResolver(t, backend, nil)
	ctx := context.Background()

	result, err := r.Resolve(ctx, "Acme Fund", nil)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if !result.Resolved || result.Confidence != ConfidenceLow {
		t.Fatalf("result = %+v, want low-confidence best effort", result)
	}
	if result.Source != SourceSearch {
		t.Errorf("source = %q, want search", result.Source)
	}

	// Best-effort answers are cached like validated ones.
	if url, ok := c.Get(ctx, "acme fund"); !ok || url != result.URL {
		t.Errorf("cache after low-confidence resolve = %q, %v", url, ok)
	}
}

func TestResolveLowConfidenceBeforeAgent(t *testing.T) {
	srv := servePage(t, `<html><body><p>Entirely unrelated gardening content.</p></body></html>`)

	// The candidate scores positively but fails live validation. That is a
	// terminal low-confidence answer; the agent must never be consulted.
	backend := &fakeBackend{results: []search.Result{
		{URL: srv.URL + "/", Title: "Acme Fund directory entry", Snippet: "A listing."},
	}}
	llm := &scriptedLLM{replies: []agent.Message{
		{Role: "assistant", Content: srv.URL + "/"},
	}}
	cfg := testConfig()
	st, _ := store.NewFileStore(filepath.Join(t.TempDir(), "resolved.json"))
	blocked := blocklist.New(nil)
	c := cache.New(st, blocked, testMetrics)
	fetcher := fetch.New(cfg.FetchTimeout, 0)
	validator := validate.New(fetcher, cfg.OverlapThreshold, nil, cfg.ValidationWorkers)
	agg := aggregate.New(backend, 10, cfg.MaxCandidates)
	fallback := agent.New(llm, backend, validator, agent.Config{MaxIterations: 3, Budget: 10 * time.Second})

	r := New(c, agg, validator, blocked, fallback, testMetrics, nil, cfg)

	result, err := r.Resolve(context.Background(), "Acme Fund", nil)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if !result.Resolved || result.Source != SourceSearch || result.Confidence != ConfidenceLow {
		t.Fatalf("result = %+v, want low-confidence search resolution", result)
	}
	if llm.calls != 0 {
		t.Errorf("llm calls = %d, want 0 (agent runs only when nothing scored)", llm.calls)
	}
}

func TestResolveUnresolved(t *testing.T) {
	r, _ := newTestResolver(t, &fakeBackend{}, nil)

	result, err := r.Resolve(context.Background(), "Acme Fund", nil)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if result.Resolved {
		t.Fatalf("result = %+v, want unresolved", result)
	}
	if result.Reason != "no candidates found" {
		t.Errorf("reason = %q", result.Reason)
	}
}

func TestResolveViaAgent(t *testing.T) {
	page := servePage(t, `<html><body>Acme Fund official homepage, grants and programs.</body></html>`)

	// Search finds nothing; the agent answers with a validating URL.
	llm := &scriptedLLM{replies: []agent.Message{
		{Role: "assistant", Content: page.URL + "/"},
	}}
	cfg := testConfig()
	st, _ := store.NewFileStore(filepath.Join(t.TempDir(), "resolved.json"))
	blocked := blocklist.New(nil)
	c := cache.New(st, blocked, testMetrics)
	fetcher := fetch.New(cfg.FetchTimeout, 0)
	validator := validate.New(fetcher, cfg.OverlapThreshold, nil, cfg.ValidationWorkers)
	backend := &fakeBackend{}
	agg := aggregate.New(backend, 10, cfg.MaxCandidates)
	fallback := agent.New(llm, backend, validator, agent.Config{MaxIterations: 3, Budget: 10 * time.Second})

	r := New(c, agg, validator, blocked, fallback, testMetrics, nil, cfg)
	ctx := context.Background()

	result, err := r.Resolve(ctx, "Acme Fund", nil)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if !result.Resolved || result.Source != SourceAgent {
		t.Fatalf("result = %+v, want agent resolution", result)
	}
	if result.Confidence != ConfidenceHigh {
		t.Errorf("confidence = %q, want high", result.Confidence)
	}
	// Agent answers are cached like any validated result.
	if url, ok := c.Get(ctx, "acme fund"); !ok || url != result.URL {
		t.Errorf("cache after agent resolve = %q, %v", url, ok)
	}
}

func TestResolveSkipsBlocklistedCandidates(t *testing.T) {
	backend := &fakeBackend{results: []search.Result{
		{URL: "https://en.wikipedia.org/wiki/Acme_Fund", Title: "Acme Fund - Wikipedia"},
		{URL: "https://www.facebook.com/acmefund", Title: "Acme Fund | Facebook"},
	}}
	r, _ := newTestResolver(t, backend, nil)

	result, err := r.Resolve(context.Background(), "Acme Fund", nil)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if result.Resolved {
		t.Errorf("result = %+v, blocklisted-only candidates must not resolve", result)
	}
}
