package planner

import (
	"fmt"
	"regexp"
	"strings"
)

const (
	complexSubTaskThreshold  = 100
	complexOperationThreshold = 10
)

var (
	numberedLineRe = regexp.MustCompile(`(?m)^\s*(?:\d+[.)]|[-*])\s+`)
	pathRe         = regexp.MustCompile(`[./][\w./-]*\.\w+|\b[\w-]+/[\w./-]+`)
)

// Planner classifies a user prompt's complexity and decomposes it into
// Tasks (C9).
type Planner struct{}

// New creates a Planner. It is stateless; one instance may be reused.
func New() *Planner {
	return &Planner{}
}

// IsComplex reports whether prompt should be streamed as a decomposition
// rather than decomposed in a single pass (spec §4.9: more than 100
// estimated sub-tasks or more than 10 unrelated operations).
func (p *Planner) IsComplex(prompt string) bool {
	estimated := estimateSubTasks(prompt)
	operations := countOperations(prompt)
	return estimated > complexSubTaskThreshold || operations > complexOperationThreshold
}

// Decompose splits prompt into deduplicated, dependency-annotated Tasks.
// For complex prompts the same algorithm applies; spec §4.9 distinguishes
// complex prompts only by "streams" the decomposition (progressive
// emission) versus a single pass — Decompose returns the complete result
// either way, and callers that want streaming iterate the result
// incrementally.
func (p *Planner) Decompose(prompt string) []Task {
	lines := splitIntoLines(prompt)

	var tasks []Task
	seen := make(map[string]bool)
	counter := 0

	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		verb := classifyVerb(line)
		if verb == "" {
			continue
		}

		key := dedupeKey(line)
		if seen[key] {
			continue
		}
		seen[key] = true

		counter++
		tasks = append(tasks, Task{
			ID:          fmt.Sprintf("task-%d", counter),
			Description: line,
			Verb:        verb,
			Path:        extractPath(line),
			Status:      StatusPending,
			RetriesMax:  defaultRetriesMax,
			TimeoutMS:   60_000,
		})
	}

	inferDependencies(tasks)
	return tasks
}

func splitIntoLines(prompt string) []string {
	if numberedLineRe.MatchString(prompt) {
		return numberedLineRe.Split(prompt, -1)
	}
	// Fall back to splitting on sentence-ish separators when the prompt has
	// no list markers at all (e.g. "Read X then create Y.").
	replaced := strings.NewReplacer(" then ", "\n", ". ", ".\n").Replace(prompt)
	return strings.Split(replaced, "\n")
}

func classifyVerb(line string) string {
	lower := strings.ToLower(line)
	for _, v := range verbTable {
		if strings.Contains(lower, v) {
			return v
		}
	}
	return ""
}

// dedupeKey uses the first 50 characters of the description (spec §4.9).
func dedupeKey(description string) string {
	d := strings.ToLower(strings.TrimSpace(description))
	if len(d) > 50 {
		d = d[:50]
	}
	return d
}

func extractPath(line string) string {
	return pathRe.FindString(line)
}

// inferDependencies wires a write-after-read-of-the-same-path dependency
// (spec §4.9); tasks without a detected dependency remain parallelizable.
func inferDependencies(tasks []Task) {
	lastReadOf := make(map[string]string)
	for i := range tasks {
		t := &tasks[i]
		if t.Path == "" {
			continue
		}
		switch t.Verb {
		case "read", "search", "find", "check", "analyze":
			lastReadOf[t.Path] = t.ID
		case "write", "create", "edit":
			if readID, ok := lastReadOf[t.Path]; ok && readID != t.ID {
				t.Deps = append(t.Deps, readID)
			}
		}
	}
}

func estimateSubTasks(prompt string) int {
	count := len(numberedLineRe.FindAllString(prompt, -1))
	if count == 0 {
		count = len(strings.Split(prompt, "."))
	}
	return count
}

func countOperations(prompt string) int {
	lower := strings.ToLower(prompt)
	seen := make(map[string]bool)
	for _, v := range verbTable {
		if strings.Contains(lower, v) {
			seen[v] = true
		}
	}
	return len(seen)
}
