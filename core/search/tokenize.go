package search

import (
	"strings"
	"unicode"
)

func isSeparator(r rune) bool {
	return r == '\n' || r == '\r' || unicode.In(r, unicode.Z, unicode.P) || unicode.IsSpace(r)
}

// tokenize splits on whitespace and punctuation and lowercases every term.
func tokenize(text string) []string {
	parts := strings.FieldsFunc(text, isSeparator)
	terms := parts[:0]
	for _, p := range parts {
		if t := strings.ToLower(p); t != "" {
			terms = append(terms, t)
		}
	}
	return terms
}
