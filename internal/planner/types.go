// Package planner implements the Planner (C9, spec §4.9): complexity
// classification, task decomposition, and dependency inference.
package planner

// Status is a Task's lifecycle state.
type Status string

const (
	StatusPending Status = "PENDING"
)

// Task is one decomposed unit of work (spec §4.9, §3 MiniAgentTask sibling).
type Task struct {
	ID          string
	Description string
	Verb        string
	Path        string
	Deps        []string
	Status      Status
	RetriesMax  int
	TimeoutMS   int
}

const defaultRetriesMax = 2

// verbTable is the fixed classification vocabulary from spec §4.9.
var verbTable = []string{
	"search", "read", "write", "create", "edit", "run", "test", "analyze", "check", "find",
}
