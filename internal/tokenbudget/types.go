// Package tokenbudget implements the Token Budget Manager (C1): it counts
// tokens, enforces per-mode input/output caps, and trims oversized text to
// fit while preserving sentence boundaries where possible.
package tokenbudget

import "github.com/flexicli/flexicli/internal/config"

// Mode biases the token caps used for a turn.
type Mode string

const (
	ModeDirect  Mode = "direct"
	ModeConcise Mode = "concise"
	ModeDeep    Mode = "deep"
)

// Category identifies which slice of the prompt (or output) a block of text
// belongs to, for budget accounting.
type Category string

const (
	CategoryEphemeral Category = "ephemeral"
	CategoryRetrieved Category = "retrieved"
	CategoryKnowledge Category = "knowledge"
	CategoryQuery     Category = "query"
	CategorySafety    Category = "safety"
	CategoryBuffer    Category = "buffer"
	CategoryOutput    Category = "output"
	CategoryReasoning Category = "reasoning"
)

// HardInputCeiling and HardOutputCeiling are absolute ceilings regardless of mode (spec §3).
const (
	HardInputCeiling  = 128_000
	HardOutputCeiling = 32_000
)

// ModeCaps is the set of token caps for one mode: input category allocations
// plus output/reasoning caps.
type ModeCaps struct {
	Output    int
	Reasoning int
	Input     map[Category]int
}

// defaultCaps returns the built-in cap table (spec §3). The concise figures
// are given verbatim by the spec; direct and deep scale the input
// allocations proportionally to their much smaller/larger output budgets,
// since the spec leaves those unspecified (see DESIGN.md open-question log).
func defaultCaps() map[Mode]ModeCaps {
	return map[Mode]ModeCaps{
		ModeDirect: {
			Output:    1000,
			Reasoning: 200,
			Input: map[Category]int{
				CategoryEphemeral: 2_000,
				CategoryRetrieved: 10_000,
				CategoryKnowledge: 2_000,
				CategoryQuery:     2_000,
				CategorySafety:    5_000,
			},
		},
		ModeConcise: {
			Output:    6000,
			Reasoning: 5000,
			Input: map[Category]int{
				CategoryEphemeral: 5_000,
				CategoryRetrieved: 40_000,
				CategoryKnowledge: 2_000,
				CategoryQuery:     2_000,
				CategorySafety:    10_000,
			},
		},
		ModeDeep: {
			Output:    15000,
			Reasoning: 12000,
			Input: map[Category]int{
				CategoryEphemeral: 8_000,
				CategoryRetrieved: 80_000,
				CategoryKnowledge: 2_000,
				CategoryQuery:     4_000,
				CategorySafety:    15_000,
			},
		},
	}
}

// Usage reports recorded token totals for one session/prompt build.
type Usage struct {
	Mode           Mode
	ByCategory     map[Category]int
	InputTotal     int
	OutputTotal    int
	ReasoningTotal int
}

// FromConfig maps a config.Config mode string onto a Mode, defaulting to concise.
func FromConfig(cfg *config.Config) Mode {
	if cfg == nil {
		return ModeConcise
	}
	switch Mode(cfg.Mode) {
	case ModeDirect, ModeConcise, ModeDeep:
		return Mode(cfg.Mode)
	default:
		return ModeConcise
	}
}
