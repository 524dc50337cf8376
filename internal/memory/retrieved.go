package memory

import "sort"

// RetrievedChunk is a chunk surfaced by the Embedding & Vector Store (C2)
// for the current query.
type RetrievedChunk struct {
	Path        string
	Content     string
	ContentHash string
	LineSpan    string
	ChunkType   string
	Similarity  float64
	TokenCount  int
	Degraded    bool
}

// Searcher abstracts C2's searchTopK so the memory layer does not import the
// vector store package directly.
type Searcher interface {
	SearchTopK(query string, k int, filters map[string]any) ([]RetrievedChunk, error)
}

// ExpandRetrieved starts K at 12 and grows to at most 30, stopping once the
// next chunk would overflow tokenBudget or no more unique chunks remain
// (spec §4.3). Results are deduped by (path, content-hash, line-span).
func ExpandRetrieved(searcher Searcher, query string, tokenBudget int, countFn func(string) int) ([]RetrievedChunk, error) {
	const (
		startK = 12
		maxK   = 30
	)

	seen := make(map[string]bool)
	var selected []RetrievedChunk
	used := 0

	for k := startK; k <= maxK; k += 6 {
		results, err := searcher.SearchTopK(query, k, nil)
		if err != nil {
			return nil, err
		}

		added := false
		for _, r := range results {
			key := r.Path + "|" + r.ContentHash + "|" + r.LineSpan
			if seen[key] {
				continue
			}
			cost := r.TokenCount
			if cost == 0 && countFn != nil {
				cost = countFn(r.Content)
			}
			if used+cost > tokenBudget {
				continue
			}
			seen[key] = true
			selected = append(selected, r)
			used += cost
			added = true
		}
		if !added || len(results) < k {
			break
		}
	}

	sort.SliceStable(selected, func(i, j int) bool {
		return selected[i].Similarity > selected[j].Similarity
	})
	return selected, nil
}
