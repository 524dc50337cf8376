package vectorstore

import (
	"strings"
	"time"
	"unicode"
)

// keywordSearch ranks chunks by token-set overlap with the query instead of
// vector similarity, used when every embedding tier has failed (spec §4.2's
// degrade path). Results are marked Degraded so callers can surface that the
// match quality is weaker than a real similarity search.
func keywordSearch(query string, chunks []Chunk, filters Filters, k int, now time.Time) []SearchResult {
	queryTokens := tokenSet(query)
	if len(queryTokens) == 0 {
		return nil
	}

	results := make([]SearchResult, 0, len(chunks))
	for _, chunk := range chunks {
		overlap := tokenOverlap(queryTokens, tokenSet(chunk.Content))
		if overlap <= 0 {
			continue
		}
		results = append(results, SearchResult{
			Chunk:      chunk,
			Similarity: overlap,
			Degraded:   true,
		})
	}
	return rankWithThreshold(results, filters, k, now, 0)
}

// tokenSet lowercases and splits on non-alphanumeric runes into a dedup set.
func tokenSet(text string) map[string]struct{} {
	tokens := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	set := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		if len(t) < 2 {
			continue
		}
		set[t] = struct{}{}
	}
	return set
}

// tokenOverlap is the Jaccard similarity of two token sets, used as a
// stand-in for cosine similarity when no embedding is available.
func tokenOverlap(a, b map[string]struct{}) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	small, large := a, b
	if len(b) < len(a) {
		small, large = b, a
	}
	var intersect int
	for t := range small {
		if _, ok := large[t]; ok {
			intersect++
		}
	}
	union := len(a) + len(b) - intersect
	if union == 0 {
		return 0
	}
	return float64(intersect) / float64(union)
}
