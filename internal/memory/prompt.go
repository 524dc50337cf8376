package memory

import (
	"strings"

	"github.com/flexicli/flexicli/internal/errs"
	"github.com/flexicli/flexicli/internal/tokenbudget"
)

// Prompt is the assembled output of buildPrompt (spec §4.3).
type Prompt struct {
	System    string
	Ephemeral string
	Retrieved string
	Knowledge string
	Git       string
	User      string
}

// Layers bundles the four memory layers plus what buildPrompt needs to
// assemble a bounded prompt for one query.
type Layers struct {
	Ephemeral *Ephemeral
	Searcher  Searcher
	Knowledge []KnowledgeFact
	RepoRoot  string
	GitPaths  []string
}

// BuildPrompt composes system/ephemeral/retrieved/knowledge/git/user layers
// under budget's per-mode caps. Every layer is recorded via budget so
// callers can Report() usage afterward; retrieval expansion stops before
// any layer would overflow its cap, and the function is deterministic given
// identical inputs and retrieval results (spec §4.3).
func BuildPrompt(budget *tokenbudget.Manager, layers Layers, systemPrompt, query string) (Prompt, error) {
	prompt := Prompt{System: systemPrompt, User: query}

	if err := budget.Record(tokenbudget.CategoryQuery, budget.Count(query)); err != nil {
		return Prompt{}, err
	}

	ephemeralCap, _ := capFor(budget, tokenbudget.CategoryEphemeral)
	var turnLines []string
	used := 0
	for _, t := range layers.Ephemeral.Turns() {
		cost := budget.Count(t.Content)
		if used+cost > ephemeralCap {
			break
		}
		turnLines = append(turnLines, t.Role+": "+t.Content)
		used += cost
	}
	prompt.Ephemeral = strings.Join(turnLines, "\n")
	if err := budget.Record(tokenbudget.CategoryEphemeral, used); err != nil {
		return Prompt{}, err
	}

	if layers.Searcher != nil {
		retrievedCap, _ := capFor(budget, tokenbudget.CategoryRetrieved)
		chunks, err := ExpandRetrieved(layers.Searcher, query, retrievedCap, budget.Count)
		if err != nil {
			return Prompt{}, errs.Tool("memory.BuildPrompt", "retrieval failed", err)
		}
		var b strings.Builder
		used := 0
		for _, c := range chunks {
			b.WriteString(c.Path)
			b.WriteString(":\n")
			b.WriteString(c.Content)
			b.WriteString("\n\n")
			used += budget.Count(c.Content)
		}
		prompt.Retrieved = strings.TrimSpace(b.String())
		if err := budget.Record(tokenbudget.CategoryRetrieved, used); err != nil {
			return Prompt{}, err
		}
	}

	fitted := FitKnowledge(layers.Knowledge, budget.Count)
	var kb strings.Builder
	kUsed := 0
	for _, f := range fitted {
		kb.WriteString(f.Key)
		kb.WriteString("=")
		kb.WriteString(f.Value)
		kb.WriteString("\n")
		kUsed += budget.Count(f.Value)
	}
	prompt.Knowledge = strings.TrimSpace(kb.String())
	if err := budget.Record(tokenbudget.CategoryKnowledge, kUsed); err != nil {
		return Prompt{}, err
	}

	if layers.RepoRoot != "" && len(layers.GitPaths) > 0 {
		entries, err := BuildGitContext(layers.RepoRoot, layers.GitPaths, budget.Count)
		if err == nil {
			var gb strings.Builder
			gUsed := 0
			for _, e := range entries {
				gb.WriteString(e.Path)
				gb.WriteString(":\n")
				gb.WriteString(e.Summary)
				gb.WriteString("\n\n")
				gUsed += budget.Count(e.Summary)
			}
			prompt.Git = strings.TrimSpace(gb.String())
			if err := budget.Record(tokenbudget.CategorySafety, gUsed); err != nil {
				return Prompt{}, err
			}
		}
	}

	return prompt, nil
}

func capFor(budget *tokenbudget.Manager, category tokenbudget.Category) (int, bool) {
	if limit, ok := budget.Cap(category); ok {
		return limit, true
	}
	return 40_000, false
}
