// Package validate confirms a candidate homepage by fetching it live and
// checking that its visible text actually talks about the organization.
// The overlap threshold is deliberately lower than exact-name matching:
// legal names drift from marketing copy.
package validate

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/sync/errgroup"

	"github.com/grantscope/orgsite/internal/fetch"
	"github.com/grantscope/orgsite/internal/resolver/normalize"
)

// Validator accepts or rejects candidate homepages against name tokens.
type Validator struct {
	fetcher     *fetch.Fetcher
	threshold   float64
	disqualify  []string
	maxParallel int
	logger      *slog.Logger
}

// New creates a Validator. disqualify markers reject a page outright when
// present in its body text (e.g. "wikipedia").
func New(fetcher *fetch.Fetcher, threshold float64, disqualify []string, maxParallel int) *Validator {
	if maxParallel <= 0 {
		maxParallel = 4
	}
	markers := make([]string, 0, len(disqualify))
	for _, m := range disqualify {
		if m = strings.ToLower(strings.TrimSpace(m)); m != "" {
			markers = append(markers, m)
		}
	}
	return &Validator{
		fetcher:     fetcher,
		threshold:   threshold,
		disqualify:  markers,
		maxParallel: maxParallel,
		logger:      slog.Default().With("component", "validator"),
	}
}

// Validate fetches rootURL and reports whether its content confirms the
// organization. It fails closed: any fetch failure or empty body is a
// rejection, never an error.
func (v *Validator) Validate(ctx context.Context, rootURL string, tokens []string) bool {
	body := v.fetcher.Fetch(ctx, rootURL)
	if body == "" {
		return false
	}

	text := strings.ToLower(bodyText(body))
	if text == "" {
		return false
	}
	for _, marker := range v.disqualify {
		if strings.Contains(text, marker) {
			v.logger.Debug("candidate disqualified", "url", rootURL, "marker", marker)
			return false
		}
	}

	overlap := normalize.Overlap(text, tokens)
	ok := overlap >= v.threshold
	v.logger.Debug("candidate validated",
		"url", rootURL,
		"overlap", overlap,
		"threshold", v.threshold,
		"accepted", ok,
	)
	return ok
}

// First validates urls concurrently with a bounded worker pool and returns
// the index of the first (lowest-index) URL that validates, or -1. The
// candidate order is the priority order: even when a later URL validates
// first in wall-clock time, an earlier one that also validates wins.
// Remaining fetches are cancelled once the winner can no longer change.
func (v *Validator) First(ctx context.Context, urls []string, tokens []string) int {
	if len(urls) == 0 {
		return -1
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		mu   sync.Mutex
		best = -1
		done = make([]bool, len(urls))
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(v.maxParallel)

	for i, url := range urls {
		i, url := i, url
		mu.Lock()
		skip := best >= 0 && i > best
		mu.Unlock()
		if skip || gctx.Err() != nil {
			break
		}

		g.Go(func() error {
			mu.Lock()
			skip := best >= 0 && i > best
			mu.Unlock()
			if skip {
				return nil
			}

			ok := v.Validate(gctx, url, tokens)

			mu.Lock()
			done[i] = true
			if ok && (best < 0 || i < best) {
				best = i
			}
			// Cancel outstanding work once every candidate ahead of the
			// current winner has finished: the result is settled.
			if best >= 0 {
				settled := true
				for j := 0; j < best; j++ {
					if !done[j] {
						settled = false
						break
					}
				}
				if settled {
					cancel()
				}
			}
			mu.Unlock()
			return nil
		})
	}

	g.Wait()

	mu.Lock()
	defer mu.Unlock()
	return best
}

// bodyText strips tags, scripts, and styles from an HTML fragment and
// returns the visible text. Truncated HTML (the fetcher caps bodies) still
// parses: goquery repairs what it can.
func bodyText(html string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return html
	}
	doc.Find("script, style, noscript").Remove()
	return doc.Text()
}
