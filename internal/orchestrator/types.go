// Package orchestrator implements the Orchestrator (C10, spec §4.10): the
// reason-act loop that turns a user prompt into model calls, tool
// executions, and a final answer, driven by the Planner (C9), Tool
// Registry (C5), Approval Gate (C6), Rate-Limited Model Client (C7), and
// Executor (C8), and persisted through the Session Store (C4).
package orchestrator

import (
	"time"

	"github.com/flexicli/flexicli/internal/executor"
	"github.com/flexicli/flexicli/internal/memory"
	"github.com/flexicli/flexicli/internal/modelclient"
	"github.com/flexicli/flexicli/internal/tools"
)

// State is the Orchestrator's turn-level state machine (spec §4.10).
// idle is the only terminal state, reached after a successful answer or an
// abort.
type State string

const (
	StateIdle             State = "idle"
	StatePlanning         State = "planning"
	StateExecuting        State = "executing"
	StateAwaitingApproval State = "awaiting-approval"
	StateAborting         State = "aborting"
)

// defaultMaxIterations bounds the reason-act loop (spec §4.10).
const defaultMaxIterations = 5

// AgentOptions scopes a nested executeAsAgent call (spec §4.10, §4.11): a
// narrower memory view, a narrower permission set, and a token/wall-clock
// budget distinct from the main session's.
type AgentOptions struct {
	Prompt       string
	ScopedMemory memory.Layers
	Permissions  tools.Permissions
	MaxTokens    int
	Timeout      time.Duration
	Depth        int // 0 for the top-level orchestrator, 1 for a mini-agent; never > 1 (spec §9)
}

// TurnResult is what one RunTurn/ExecuteAsAgent call returns.
type TurnResult struct {
	FinalAnswer string
	ToolResults []executor.ToolResultMessage
	Usage       modelclient.Usage
	Iterations  int
	State       State
	Aborted     bool
	AbortReason string
}
