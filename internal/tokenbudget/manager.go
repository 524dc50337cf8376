package tokenbudget

import (
	"fmt"
	"strings"

	"github.com/pkoukk/tiktoken-go"

	"github.com/flexicli/flexicli/internal/errs"
)

// encodingName is the tiktoken encoding used to count tokens. cl100k_base is
// the closest open encoding to the model families FlexiCLI targets; it is
// an estimate for providers that use a different tokenizer.
const encodingName = "cl100k_base"

// Manager tracks token usage for a single prompt build against the per-mode
// caps from spec §3/§4.1. It is not safe for concurrent use; the
// Orchestrator owns one Manager per turn.
type Manager struct {
	mode  Mode
	caps  ModeCaps
	used  map[Category]int
	enc   *tiktoken.Tiktoken
}

// NewManager creates a Manager for the given mode. If the tiktoken encoding
// tables can't be loaded (e.g. offline with no cached BPE file), counting
// falls back to the character-based estimate used throughout the pack
// (see internal/checkpoint's estimateTokens for the same ~4 chars/token rule).
func NewManager(mode Mode) *Manager {
	caps, ok := defaultCaps()[mode]
	if !ok {
		caps = defaultCaps()[ModeConcise]
		mode = ModeConcise
	}
	enc, _ := tiktoken.GetEncoding(encodingName)
	return &Manager{
		mode: mode,
		caps: caps,
		used: make(map[Category]int, len(caps.Input)+3),
		enc:  enc,
	}
}

// Count returns the token count for text, using tiktoken when available and
// falling back to a len/4 character estimate otherwise.
func (m *Manager) Count(text string) int {
	if text == "" {
		return 0
	}
	if m.enc != nil {
		return len(m.enc.Encode(text, nil, nil))
	}
	return (len(text) + 3) / 4
}

// capFor returns the token cap for a category: its mode-specific input
// allocation, or the mode's Output/Reasoning cap for those two categories.
func (m *Manager) capFor(category Category) (int, bool) {
	switch category {
	case CategoryOutput:
		return m.caps.Output, true
	case CategoryReasoning:
		return m.caps.Reasoning, true
	default:
		limit, ok := m.caps.Input[category]
		return limit, ok
	}
}

// Cap returns the mode-specific token cap for category, and whether one is
// defined (categories with no configured allocation return ok=false).
func (m *Manager) Cap(category Category) (int, bool) {
	return m.capFor(category)
}

// CanAdd reports whether tokens more of the given category would stay
// within both the category's mode cap and the absolute hard ceiling for its
// side (input categories count against HardInputCeiling, Output/Reasoning
// are bounded separately by HardOutputCeiling).
func (m *Manager) CanAdd(category Category, tokens int) bool {
	if limit, ok := m.capFor(category); ok && m.used[category]+tokens > limit {
		return false
	}
	if category == CategoryOutput || category == CategoryReasoning {
		if m.used[CategoryOutput]+m.used[CategoryReasoning]+tokens > HardOutputCeiling {
			return false
		}
		return true
	}
	if m.inputTotal()+tokens > HardInputCeiling {
		return false
	}
	return true
}

// Record adds tokens to category's running total. Categories that must
// never silently truncate (query, buffer) return a typed
// errs.KindBudgetExceeded error instead of recording when the addition
// would exceed the category's cap; all other categories record regardless
// and rely on the caller having trimmed via TrimToFit first.
func (m *Manager) Record(category Category, tokens int) error {
	if (category == CategoryQuery || category == CategoryBuffer) && !m.CanAdd(category, tokens) {
		limit, _ := m.capFor(category)
		return errs.BudgetExceeded(
			"tokenbudget.Record",
			fmt.Sprintf("%s would exceed its %d token cap in %s mode", category, limit, m.mode),
			nil,
		).WithField("category", string(category)).WithField("mode", string(m.mode))
	}
	m.used[category] += tokens
	return nil
}

func (m *Manager) inputTotal() int {
	total := 0
	for cat, n := range m.used {
		if cat != CategoryOutput && cat != CategoryReasoning {
			total += n
		}
	}
	return total
}

// Report snapshots the current usage for logging or the monitoring bridge.
func (m *Manager) Report() Usage {
	byCategory := make(map[Category]int, len(m.used))
	for k, v := range m.used {
		byCategory[k] = v
	}
	return Usage{
		Mode:           m.mode,
		ByCategory:     byCategory,
		InputTotal:     m.inputTotal(),
		OutputTotal:    m.used[CategoryOutput],
		ReasoningTotal: m.used[CategoryReasoning],
	}
}

// TrimToFit trims text so its token count is at most max, cutting on the
// nearest preceding sentence boundary (". ", "\n") where one exists past the
// halfway point, and appending an ellipsis marker. TrimToFit is idempotent:
// calling it again on its own output with the same max returns the same text.
func (m *Manager) TrimToFit(text string, max int) string {
	if max <= 0 {
		return ""
	}
	if m.Count(text) <= max {
		return text
	}

	const marker = " […truncated]"
	budget := max - m.Count(marker)
	if budget <= 0 {
		return strings.TrimSpace(marker)
	}

	lo, hi := 0, len(text)
	for lo < hi {
		mid := (lo + hi + 1) / 2
		if m.Count(text[:mid]) <= budget {
			lo = mid
		} else {
			hi = mid - 1
		}
	}
	cut := text[:lo]

	if idx := lastSentenceBoundary(cut); idx > len(cut)/2 {
		cut = cut[:idx]
	}

	return strings.TrimRight(cut, " \t\n") + marker
}

// lastSentenceBoundary returns the index just after the last ". " or "\n"
// in s, or -1 if none exists.
func lastSentenceBoundary(s string) int {
	best := -1
	if idx := strings.LastIndex(s, ". "); idx >= 0 {
		best = idx + 2
	}
	if idx := strings.LastIndex(s, "\n"); idx >= 0 && idx+1 > best {
		best = idx + 1
	}
	return best
}
