// Package miniagent implements the Mini-Agent Spawner & Lifecycle (C11,
// spec §4.11): task templates, a priority queue bounded by concurrency,
// and a lifecycle manager that heartbeats, times out, and cleans up
// spawned agents.
package miniagent

import (
	"time"

	"github.com/flexicli/flexicli/internal/tools"
)

// TaskType is one of the delegated work categories a mini-agent can run
// (spec §3 MiniAgentTask).
type TaskType string

const (
	TaskSearch        TaskType = "search"
	TaskMigration     TaskType = "migration"
	TaskAnalysis      TaskType = "analysis"
	TaskRefactor      TaskType = "refactor"
	TaskTest          TaskType = "test"
	TaskDocumentation TaskType = "documentation"
	TaskGeneral       TaskType = "general"
)

// Priority orders queued tasks: high before normal before low, FIFO within
// a priority (spec §4.11).
type Priority int

const (
	PriorityLow Priority = iota
	PriorityNormal
	PriorityHigh
)

// Template supplies defaults for a TaskType: a prompt prefix, default tool
// allow-list, default permissions, and a default token budget (spec
// §4.11 "Templates define defaults per type").
type Template struct {
	Type         TaskType
	PromptPrefix string
	DefaultTools []string
	Permissions  tools.Permissions
	MaxTokens    int
}

// DefaultTemplates returns one Template per TaskType with conservative
// defaults; callers may override per-task via Task.Permissions.
func DefaultTemplates() map[TaskType]Template {
	mk := func(t TaskType, prefix string, allowed []string, maxTokens int, dangerous bool) Template {
		return Template{
			Type:         t,
			PromptPrefix: prefix,
			DefaultTools: allowed,
			Permissions: tools.Permissions{
				Allowed:          allowed,
				ReadOnly:         !dangerous,
				FilesystemAccess: "read",
				MaxToolCalls:     20,
			},
			MaxTokens: maxTokens,
		}
	}
	return map[TaskType]Template{
		TaskSearch:        mk(TaskSearch, "Search the codebase for: ", []string{"read_file", "search"}, 4000, false),
		TaskMigration:     mk(TaskMigration, "Perform this migration: ", []string{"read_file", "write_file", "run_command"}, 15000, true),
		TaskAnalysis:      mk(TaskAnalysis, "Analyze: ", []string{"read_file", "search"}, 8000, false),
		TaskRefactor:      mk(TaskRefactor, "Refactor: ", []string{"read_file", "write_file"}, 10000, true),
		TaskTest:          mk(TaskTest, "Write or run tests for: ", []string{"read_file", "write_file", "run_command"}, 10000, true),
		TaskDocumentation: mk(TaskDocumentation, "Document: ", []string{"read_file", "write_file"}, 6000, false),
		TaskGeneral:       mk(TaskGeneral, "", []string{"read_file"}, 4000, false),
	}
}

// Task is a delegated work item (spec §3 MiniAgentTask). Permissions must
// already be the intersection of the template default and the caller's
// requested permissions by the time a Task is enqueued.
type Task struct {
	ID            string
	ParentID      string
	Type          TaskType
	Prompt        string
	ScopedContext ScopedContext
	Permissions   tools.Permissions
	MaxIterations int
	TimeoutMS     int
	Priority      Priority
	EnqueuedAt    time.Time
}

// ScopedContext is the read-only projection of parent memory a mini-agent
// may read (spec §3: "ScopedMemoryContext is a read-only projection of
// parent memory plus private conversation state").
type ScopedContext struct {
	RelevantFiles  []string
	SearchPatterns []string
}

// Status is a MiniAgentInstance's lifecycle state (spec §3).
type Status string

const (
	StatusSpawning  Status = "spawning"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusTimeout   Status = "timeout"
	StatusCancelled Status = "cancelled"
)

// Health summarizes a running instance's alert count, used by the
// Lifecycle Manager to decide on force-termination.
type Health struct {
	ActiveAlerts int
}

// Instance is the runtime handle for a spawned agent (spec §3
// MiniAgentInstance).
type Instance struct {
	TaskID       string
	Task         Task
	Status       Status
	Heartbeat    time.Time
	ToolsUsed    []string
	Health       Health
	StartedAt    time.Time
	FinishedAt   time.Time
	FinalAnswer  string
	Err          error
}

func (i *Instance) terminal() bool {
	switch i.Status {
	case StatusCompleted, StatusFailed, StatusTimeout, StatusCancelled:
		return true
	default:
		return false
	}
}
