// Package blocklist holds the static set of domains judged non-canonical:
// social networks, aggregators, directories, and news indices whose pages
// rank well for organization names but are never the organization's own
// homepage.
package blocklist

import "strings"

// defaults are always blocked; config entries extend them.
var defaults = []string{
	"facebook.com",
	"twitter.com",
	"x.com",
	"instagram.com",
	"linkedin.com",
	"youtube.com",
	"wikipedia.org",
	"wikidata.org",
	"bloomberg.com",
	"crunchbase.com",
	"guidestar.org",
	"charitynavigator.org",
	"propublica.org",
	"causeiq.com",
	"nonprofitlight.com",
	"idealist.org",
	"glassdoor.com",
	"indeed.com",
	"yelp.com",
	"medium.com",
	"reddit.com",
	"nytimes.com",
	"washingtonpost.com",
	"forbes.com",
}

// Blocklist answers domain membership queries against the static set.
// It is immutable after construction.
type Blocklist struct {
	domains map[string]struct{}
}

// New builds a Blocklist from the defaults plus any extra configured domains.
func New(extra []string) *Blocklist {
	domains := make(map[string]struct{}, len(defaults)+len(extra))
	for _, d := range defaults {
		domains[strings.ToLower(d)] = struct{}{}
	}
	for _, d := range extra {
		d = strings.ToLower(strings.TrimSpace(d))
		if d != "" {
			domains[d] = struct{}{}
		}
	}
	return &Blocklist{domains: domains}
}

// Blocked reports whether the domain, or any registrable parent of it,
// is on the blocklist. "www.facebook.com" is blocked because
// "facebook.com" is.
func (b *Blocklist) Blocked(domain string) bool {
	domain = strings.ToLower(strings.TrimSuffix(domain, "."))
	for domain != "" {
		if _, ok := b.domains[domain]; ok {
			return true
		}
		idx := strings.IndexByte(domain, '.')
		if idx < 0 {
			return false
		}
		domain = domain[idx+1:]
	}
	return false
}
