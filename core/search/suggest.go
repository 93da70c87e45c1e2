package search

import (
	"sort"
	"strings"
)

// Suggestion 自动补全候选
type Suggestion struct {
	Suggestion string   `json:"suggestion"`
	Terms      []string `json:"terms"`
	Score      float64  `json:"score"`
}

// AutoSuggest returns "did you mean" candidates for query, best first.
// Unless overridden, every query term must match (AND) and the last term is
// also matched as a prefix. Each candidate is the set of indexed terms a
// result matched, joined by a space; its score is the mean over the results
// sharing it.
func (idx *Index) AutoSuggest(query string, opts SearchOptions) []Suggestion {
	if opts.CombineWith == "" {
		opts.CombineWith = CombineAnd
	}
	if !opts.Prefix {
		opts.PrefixLast = true
	}
	limit := opts.Limit
	opts.Limit = 0

	type bucket struct {
		terms []string
		score float64
		count int
	}

	buckets := make(map[string]*bucket)
	var order []string
	for _, r := range idx.Search(query, opts) {
		phrase := strings.Join(r.Terms, " ")
		b, ok := buckets[phrase]
		if !ok {
			b = &bucket{terms: r.Terms}
			buckets[phrase] = b
			order = append(order, phrase)
		}
		b.score += r.Score
		b.count++
	}

	suggestions := make([]Suggestion, 0, len(order))
	for _, phrase := range order {
		b := buckets[phrase]
		suggestions = append(suggestions, Suggestion{
			Suggestion: phrase,
			Terms:      b.terms,
			Score:      b.score / float64(b.count),
		})
	}
	sort.SliceStable(suggestions, func(i, j int) bool {
		return suggestions[i].Score > suggestions[j].Score
	})

	if limit > 0 && len(suggestions) > limit {
		suggestions = suggestions[:limit]
	}
	return suggestions
}
