// Package score ranks homepage candidates by how plausibly they are the
// organization's official site. The score is a weighted sum of token overlap
// between the name and the candidate's domain, title, and snippet, plus
// structural heuristics: TLD preference, shallow paths, and whole tokens
// embedded in the domain.
package score

import (
	"sort"
	"strings"

	"github.com/grantscope/orgsite/internal/resolver/blocklist"
	"github.com/grantscope/orgsite/internal/resolver/normalize"
	"github.com/grantscope/orgsite/internal/urlutil"
)

// Candidate is one potential homepage produced during a single resolution.
type Candidate struct {
	URL       string  `json:"url"`
	Title     string  `json:"title"`
	Snippet   string  `json:"snippet"`
	Domain    string  `json:"domain"`
	Score     float64 `json:"score"`
	Validated bool    `json:"validated"`
}

// Weights for the scoring formula. Domain overlap dominates: an organization
// whose tokens appear in the hostname is almost always the right site.
const (
	wDomain  = 3.0
	wTitle   = 2.0
	wSnippet = 1.0
	wTLD     = 1.0

	shallowPathBonus  = 0.5
	tokenInDomainBonus = 2.0
	badPathPenalty     = 1.5
)

// tldScores is the fixed TLD preference table. Non-profit TLDs rank
// highest, education next, commercial last.
var tldScores = map[string]float64{
	".org":        1.0,
	".foundation": 1.0,
	".edu":        0.7,
	".com":        0.4,
	".net":        0.4,
}

// badPathSegments are path prefixes that mark a subpage rather than a
// homepage (job boards, newsrooms, press pages).
var badPathSegments = []string{
	"/jobs", "/careers", "/news", "/press", "/blog", "/events", "/article",
}

// Rank filters blocklisted candidates, scores the rest against the name
// tokens, and returns them sorted by descending score. The sort is stable:
// candidates with equal scores keep their aggregation order.
func Rank(candidates []Candidate, tokens []string, blocked *blocklist.Blocklist) []Candidate {
	scored := make([]Candidate, 0, len(candidates))
	for _, c := range candidates {
		if c.Domain == "" {
			c.Domain = urlutil.Domain(c.URL)
		}
		if c.Domain == "" || blocked.Blocked(c.Domain) {
			continue
		}
		c.Score = Score(c, tokens)
		scored = append(scored, c)
	}
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})
	return scored
}

// Score computes the heuristic score of a single candidate. Higher is more
// plausibly the official homepage.
func Score(c Candidate, tokens []string) float64 {
	domain := c.Domain
	if domain == "" {
		domain = urlutil.Domain(c.URL)
	}

	s := wDomain*normalize.Overlap(domainText(domain), tokens) +
		wTitle*normalize.Overlap(c.Title, tokens) +
		wSnippet*normalize.Overlap(c.Snippet, tokens) +
		wTLD*tldScore(domain)

	if urlutil.PathDepth(c.URL) <= 2 {
		s += shallowPathBonus
	}
	if anyTokenInDomain(domain, tokens) {
		s += tokenInDomainBonus
	}
	if hasBadPath(c.URL) {
		s -= badPathPenalty
	}
	return s
}

// domainText spaces out the separator characters so hostname labels
// tokenize cleanly ("william-penn.org" -> "william penn org").
func domainText(domain string) string {
	return strings.NewReplacer(".", " ", "-", " ", "_", " ").Replace(domain)
}

func tldScore(domain string) float64 {
	idx := strings.LastIndexByte(domain, '.')
	if idx < 0 {
		return 0
	}
	return tldScores[domain[idx:]]
}

// anyTokenInDomain reports whether any name token appears as a substring of
// the hostname, catching concatenated forms like "williampennfoundation".
func anyTokenInDomain(domain string, tokens []string) bool {
	host := strings.ReplaceAll(domain, "-", "")
	for _, tok := range tokens {
		if len(tok) >= 3 && strings.Contains(host, tok) {
			return true
		}
	}
	return false
}

func hasBadPath(rawURL string) bool {
	u, err := urlutil.Normalize(rawURL)
	if err != nil {
		return false
	}
	path := strings.ToLower(u.Path)
	for _, seg := range badPathSegments {
		if strings.HasPrefix(path, seg) {
			return true
		}
	}
	return false
}
