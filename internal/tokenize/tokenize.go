// Package tokenize splits text into the lower-cased tokens, term lists and
// sentences used for relevance scoring and consolidation.
package tokenize

import (
	"strings"
	"unicode/utf8"
)

const (
	// DefaultMinTermLength is the exclusive rune length a token needs to count as a key term.
	DefaultMinTermLength = 3
	// DefaultMaxTerms caps the number of key terms taken from one text.
	DefaultMaxTerms = 10
)

var stopWords = map[string]struct{}{
	"the": {}, "a": {}, "an": {}, "and": {}, "or": {}, "but": {}, "in": {},
	"on": {}, "at": {}, "to": {}, "for": {}, "of": {}, "with": {}, "by": {},
}

// Options configures key term extraction.
type Options struct {
	MinLength int
	MaxTerms  int
}

// DefaultOptions returns default key term options.
func DefaultOptions() Options {
	return Options{
		MinLength: DefaultMinTermLength,
		MaxTerms:  DefaultMaxTerms,
	}
}

// Tokens returns the lower-cased whitespace-separated tokens of text.
func Tokens(text string) []string {
	return strings.Fields(strings.ToLower(text))
}

// Set returns the distinct tokens of text.
func Set(text string) map[string]struct{} {
	fields := Tokens(text)
	set := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		set[f] = struct{}{}
	}
	return set
}

// Jaccard returns |a∩b| / |a∪b|. Two empty sets have similarity 0.
func Jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 0
	}
	small, large := a, b
	if len(small) > len(large) {
		small, large = large, small
	}
	inter := 0
	for t := range small {
		if _, ok := large[t]; ok {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	return float64(inter) / float64(union)
}

// KeyTerms returns the first distinct tokens of text longer than
// opts.MinLength runes that are not stop words, in order of appearance.
func KeyTerms(text string, opts Options) []string {
	if opts.MaxTerms == 0 {
		opts = DefaultOptions()
	}

	seen := make(map[string]struct{})
	var terms []string
	for _, tok := range Tokens(text) {
		if len(terms) >= opts.MaxTerms {
			break
		}
		if utf8.RuneCountInString(tok) <= opts.MinLength {
			continue
		}
		if _, stop := stopWords[tok]; stop {
			continue
		}
		if _, dup := seen[tok]; dup {
			continue
		}
		seen[tok] = struct{}{}
		terms = append(terms, tok)
	}
	return terms
}

// Sentences splits text on '.' and returns the trimmed, non-empty pieces.
func Sentences(text string) []string {
	var out []string
	for _, s := range strings.Split(text, ".") {
		s = strings.TrimSpace(s)
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}
