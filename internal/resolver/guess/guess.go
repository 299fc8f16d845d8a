// Package guess synthesizes plausible hostnames directly from an
// organization's name tokens. Guessing runs before any web search: it is
// cheap and high-precision for well-known, clearly-named organizations
// ("william penn" -> williampennfoundation.org).
package guess

import "strings"

// tlds in fixed priority order. Non-profit TLDs first.
var tlds = []string{".org", ".foundation", ".edu", ".com"}

// Domains generates candidate root URLs from the token set, capped at max.
// Hostname stems are built by concatenating and hyphen-joining the tokens,
// each optionally suffixed with "foundation"; every stem is combined with
// the TLD priority list, bare and with a "www." prefix.
func Domains(tokens []string, max int) []string {
	if len(tokens) == 0 || max <= 0 {
		return nil
	}

	stems := stems(tokens)
	urls := make([]string, 0, max)
	seen := make(map[string]struct{})

	for _, tld := range tlds {
		for _, stem := range stems {
			for _, host := range []string{stem + tld, "www." + stem + tld} {
				if _, dup := seen[host]; dup {
					continue
				}
				seen[host] = struct{}{}
				urls = append(urls, "https://"+host+"/")
				if len(urls) >= max {
					return urls
				}
			}
		}
	}
	return urls
}

// stems returns the hostname bodies to try, most likely first.
func stems(tokens []string) []string {
	joined := strings.Join(tokens, "")
	hyphened := strings.Join(tokens, "-")

	out := []string{joined, joined + "foundation"}
	if hyphened != joined {
		out = append(out, hyphened, hyphened+"-foundation")
	}
	return out
}
