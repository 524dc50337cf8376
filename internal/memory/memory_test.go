package memory

import (
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/flexicli/flexicli/internal/tokenbudget"
)

func wordCount(s string) int {
	if s == "" {
		return 0
	}
	return len(strings.Fields(s))
}

func TestEphemeral_EvictsOldestOverByteCap(t *testing.T) {
	e := NewEphemeral(20, 1000)
	e.Add(Turn{Role: "user", Content: "0123456789", At: time.Now()})
	e.Add(Turn{Role: "user", Content: "abcdefghij", At: time.Now()})
	e.Add(Turn{Role: "user", Content: "klmnopqrst", At: time.Now()})

	turns := e.Turns()
	if len(turns) != 2 {
		t.Fatalf("expected 2 turns after eviction, got %d", len(turns))
	}
	if turns[0].Content != "abcdefghij" || turns[1].Content != "klmnopqrst" {
		t.Fatalf("unexpected surviving turns: %+v", turns)
	}
}

func TestEphemeral_EvictsExpiredByTTL(t *testing.T) {
	e := NewEphemeral(10_000, 10_000)
	e.Add(Turn{Role: "user", Content: "stale", At: time.Now().Add(-20 * time.Minute)})
	e.Add(Turn{Role: "user", Content: "fresh", At: time.Now()})

	turns := e.Turns()
	if len(turns) != 1 || turns[0].Content != "fresh" {
		t.Fatalf("expected only fresh turn to survive TTL eviction, got %+v", turns)
	}
}

func TestEphemeral_CheckspointsEveryThirdOp(t *testing.T) {
	e := NewEphemeral(10_000, 10_000)
	var results []bool
	for i := 0; i < 6; i++ {
		results = append(results, e.Add(Turn{Role: "user", Content: "x", At: time.Now()}))
	}
	want := []bool{false, false, true, false, false, true}
	for i, w := range want {
		if results[i] != w {
			t.Fatalf("checkpoint flag at op %d: got %v want %v", i, results[i], w)
		}
	}
}

type fakeSearcher struct {
	chunks []RetrievedChunk
}

func (f *fakeSearcher) SearchTopK(query string, k int, filters map[string]any) ([]RetrievedChunk, error) {
	if k > len(f.chunks) {
		k = len(f.chunks)
	}
	return f.chunks[:k], nil
}

func TestExpandRetrieved_DedupesByPathHashSpan(t *testing.T) {
	chunks := make([]RetrievedChunk, 0, 20)
	for i := 0; i < 20; i++ {
		chunks = append(chunks, RetrievedChunk{
			Path:        "file" + strconv.Itoa(i%5) + ".go",
			Content:     "body " + strconv.Itoa(i),
			ContentHash: "h" + strconv.Itoa(i%5),
			LineSpan:    "1-10",
			Similarity:  1.0 / float64(i+1),
			TokenCount:  10,
		})
	}
	s := &fakeSearcher{chunks: chunks}
	got, err := ExpandRetrieved(s, "q", 1000, wordCount)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	seen := map[string]bool{}
	for _, c := range got {
		key := c.Path + "|" + c.ContentHash + "|" + c.LineSpan
		if seen[key] {
			t.Fatalf("duplicate chunk returned: %s", key)
		}
		seen[key] = true
	}
	if len(got) != 5 {
		t.Fatalf("expected 5 unique chunks, got %d", len(got))
	}
}

func TestExpandRetrieved_StopsBeforeOverflowingBudget(t *testing.T) {
	var chunks []RetrievedChunk
	for i := 0; i < 12; i++ {
		chunks = append(chunks, RetrievedChunk{
			Path:        "f" + strconv.Itoa(i) + ".go",
			Content:     "ten words here to pad out the content to size",
			ContentHash: "h" + strconv.Itoa(i),
			LineSpan:    "1-1",
			TokenCount:  10,
		})
	}
	s := &fakeSearcher{chunks: chunks}
	got, err := ExpandRetrieved(s, "q", 25, func(string) int { return 10 })
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	used := 0
	for _, c := range got {
		used += c.TokenCount
	}
	if used > 25 {
		t.Fatalf("selected chunks exceed budget: used=%d", used)
	}
	if len(got) != 2 {
		t.Fatalf("expected exactly 2 chunks to fit in budget 25 at 10 tokens each, got %d", len(got))
	}
}

func TestFitKnowledge_KeepsHighestImportanceWithinCap(t *testing.T) {
	facts := []KnowledgeFact{
		{Key: "a", Value: "v", ImportanceScore: 0.9, TokenCount: 1500},
		{Key: "b", Value: "v", ImportanceScore: 0.5, TokenCount: 1000},
		{Key: "c", Value: "v", ImportanceScore: 0.1, TokenCount: 400},
	}
	got := FitKnowledge(facts, nil)

	total := 0
	keys := map[string]bool{}
	for _, f := range got {
		total += f.TokenCount
		keys[f.Key] = true
	}
	if total > knowledgeTokenCap {
		t.Fatalf("fitted facts exceed cap: total=%d", total)
	}
	if !keys["a"] {
		t.Fatalf("expected the highest-importance fact to survive, got %+v", got)
	}
}

func TestBuildPrompt_RespectsPerLayerCapsAndIsDeterministic(t *testing.T) {
	eph := NewEphemeral(10_000, 10_000)
	eph.Add(Turn{Role: "user", Content: "hello there", At: time.Now(), TokenCost: 2})
	eph.Add(Turn{Role: "assistant", Content: "hi", At: time.Now(), TokenCost: 1})

	searcher := &fakeSearcher{chunks: []RetrievedChunk{
		{Path: "a.go", Content: "package a", ContentHash: "h1", LineSpan: "1-1", TokenCount: 2, Similarity: 0.9},
	}}

	layers := Layers{
		Ephemeral: eph,
		Searcher:  searcher,
		Knowledge: []KnowledgeFact{{Key: "k", Value: "v", ImportanceScore: 1, TokenCount: 5}},
	}

	run := func() Prompt {
		budget := tokenbudget.NewManager(tokenbudget.ModeConcise)
		p, err := BuildPrompt(budget, layers, "system prompt", "what does a.go do?")
		if err != nil {
			t.Fatalf("BuildPrompt error: %v", err)
		}
		return p
	}

	first := run()
	second := run()
	if first != second {
		t.Fatalf("BuildPrompt is not deterministic across identical inputs:\n%+v\n%+v", first, second)
	}
	if first.System != "system prompt" || first.User != "what does a.go do?" {
		t.Fatalf("system/user passthrough missing: %+v", first)
	}
	if !strings.Contains(first.Retrieved, "package a") {
		t.Fatalf("expected retrieved chunk content in prompt: %+v", first)
	}
	if !strings.Contains(first.Knowledge, "k=v") {
		t.Fatalf("expected knowledge fact in prompt: %+v", first)
	}
}

func TestBuildPrompt_NoSearcherOmitsRetrievedLayer(t *testing.T) {
	eph := NewEphemeral(10_000, 10_000)
	budget := tokenbudget.NewManager(tokenbudget.ModeDirect)
	p, err := BuildPrompt(budget, Layers{Ephemeral: eph}, "sys", "q")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Retrieved != "" {
		t.Fatalf("expected empty retrieved layer with no searcher, got %q", p.Retrieved)
	}
}
