// Package urlutil provides the URL canonicalization helpers shared by the
// resolution pipeline: domain extraction and root-form rewriting.
package urlutil

import (
	"net/url"
	"strings"
)

// Normalize prepends https:// when the scheme is missing and parses the URL.
func Normalize(raw string) (*url.URL, error) {
	raw = strings.TrimSpace(raw)
	if !strings.HasPrefix(raw, "http://") && !strings.HasPrefix(raw, "https://") {
		raw = "https://" + raw
	}
	return url.Parse(raw)
}

// Domain returns the lowercase hostname of a URL, with any "www." prefix
// stripped. It returns "" when the URL cannot be parsed.
func Domain(raw string) string {
	u, err := Normalize(raw)
	if err != nil || u.Hostname() == "" {
		return ""
	}
	return strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
}

// Root rewrites a URL to its canonical root form: scheme + host + "/",
// discarding any path, query, and fragment. It returns "" when the URL
// cannot be parsed.
func Root(raw string) string {
	u, err := Normalize(raw)
	if err != nil || u.Hostname() == "" {
		return ""
	}
	scheme := u.Scheme
	if scheme == "" {
		scheme = "https"
	}
	return scheme + "://" + strings.ToLower(u.Host) + "/"
}

// PathDepth counts the non-empty segments of a URL's path. The homepage has
// depth 0.
func PathDepth(raw string) int {
	u, err := Normalize(raw)
	if err != nil {
		return 0
	}
	depth := 0
	for _, seg := range strings.Split(u.Path, "/") {
		if seg != "" {
			depth++
		}
	}
	return depth
}
