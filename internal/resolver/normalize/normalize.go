// Package normalize turns free-text organization names into canonical cache
// keys and stopword-filtered token sets. It lower-cases input, rewrites "&"
// to "and", splits on non-alphanumeric boundaries, and removes the filler
// words that appear in legal organization names.
package normalize

import (
	"strings"
	"unicode"
)

// stopWords are tokens that carry no signal for matching an organization to
// its domain: articles, conjunctions, and the boilerplate of legal names.
var stopWords = map[string]struct{}{
	"a": {}, "an": {}, "and": {}, "the": {}, "of": {}, "for": {},
	"in": {}, "at": {}, "on": {}, "to": {},
	"foundation": {}, "fund": {}, "trust": {}, "inc": {}, "llc": {},
	"ltd": {}, "corp": {}, "corporation": {}, "company": {}, "co": {},
	"charitable": {}, "charity": {}, "org": {}, "organization": {},
	"organisation": {}, "association": {}, "society": {}, "institute": {},
}

// Query is a normalized organization name: the canonical cache key and the
// ordered unique token set with stopwords removed.
type Query struct {
	Raw    string
	Key    string
	Tokens []string
}

// Name parses a raw organization name. Tokens is empty when the name holds
// nothing usable (empty, whitespace, or stopwords only).
func Name(raw string) Query {
	key := Key(raw)
	return Query{
		Raw:    raw,
		Key:    key,
		Tokens: filterTokens(strings.Fields(key)),
	}
}

// Key returns the canonical cache key for a name: lowercase, "&" rewritten
// to "and", non-alphanumerics stripped, whitespace collapsed to single
// spaces. Key is idempotent: Key(Key(s)) == Key(s).
func Key(raw string) string {
	s := strings.ToLower(raw)
	s = strings.ReplaceAll(s, "&", " and ")
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		default:
			b.WriteByte(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// Tokenize splits arbitrary text (a page body, a title, a snippet) into
// lowercase alphanumeric tokens without any stopword filtering.
func Tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// Overlap returns the fraction of tokens found in text, in [0,1].
func Overlap(text string, tokens []string) float64 {
	if len(tokens) == 0 {
		return 0
	}
	seen := make(map[string]struct{})
	for _, w := range Tokenize(text) {
		seen[w] = struct{}{}
	}
	matched := 0
	for _, tok := range tokens {
		if _, ok := seen[tok]; ok {
			matched++
		}
	}
	return float64(matched) / float64(len(tokens))
}

func filterTokens(words []string) []string {
	tokens := make([]string, 0, len(words))
	dedup := make(map[string]struct{}, len(words))
	for _, word := range words {
		if _, isStop := stopWords[word]; isStop {
			continue
		}
		if _, dup := dedup[word]; dup {
			continue
		}
		dedup[word] = struct{}{}
		tokens = append(tokens, word)
	}
	return tokens
}
