package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/flexicli/flexicli/internal/approval"
	"github.com/flexicli/flexicli/internal/errs"
	"github.com/flexicli/flexicli/internal/executor"
	"github.com/flexicli/flexicli/internal/memory"
	"github.com/flexicli/flexicli/internal/modelclient"
	"github.com/flexicli/flexicli/internal/planner"
	"github.com/flexicli/flexicli/internal/session"
	"github.com/flexicli/flexicli/internal/tokenbudget"
	"github.com/flexicli/flexicli/internal/tools"
)

// Deps bundles every component the Orchestrator drives per turn.
type Deps struct {
	Store    *session.Store
	Planner  *planner.Planner
	Registry *tools.Registry
	Gate     *approval.Gate
	Client   *modelclient.Client
	Sink     executor.EventSink
}

// Orchestrator runs the reason-act loop described in spec §4.10: build a
// bounded prompt, call the model, execute any requested tools, and repeat
// until the model returns a final answer or the iteration cap is hit.
type Orchestrator struct {
	deps          Deps
	maxIterations int
	cwd           string
	toolDeadline  time.Duration
	systemPrompt  string
}

// New builds an Orchestrator. cwd and toolDeadline are forwarded to the
// per-turn Executor; systemPrompt is the base system prompt prepended to
// every turn's memory layers.
func New(deps Deps, cwd string, toolDeadline time.Duration, systemPrompt string) *Orchestrator {
	return &Orchestrator{
		deps:          deps,
		maxIterations: defaultMaxIterations,
		cwd:           cwd,
		toolDeadline:  toolDeadline,
		systemPrompt:  systemPrompt,
	}
}

// stateApprover wraps an approval.Gate so the Orchestrator can surface the
// awaiting-approval state transition around a real decision instead of
// guessing at executor internals.
type stateApprover struct {
	gate  *approval.Gate
	onAsk func()
}

func (a *stateApprover) Decide(ctx context.Context, toolName string, args map[string]any) (bool, error) {
	if a.onAsk != nil {
		a.onAsk()
	}
	approved, err := a.gate.Decide(ctx, toolName, args)
	if err == nil {
		a.gate.Remember(toolName, args, approved)
	}
	return approved, err
}

// RunTurn executes one user turn end to end: plan, build prompt, call the
// model, execute tools, loop until a final answer or defaultMaxIterations
// reason-act cycles have elapsed (spec §4.10).
func (o *Orchestrator) RunTurn(ctx context.Context, sess *session.Session, mode tokenbudget.Mode, layers memory.Layers, query string, permissions tools.Permissions) (TurnResult, error) {
	state := StatePlanning
	o.emit("state-change", map[string]any{"state": string(state)})

	if o.deps.Planner != nil && o.deps.Planner.IsComplex(query) {
		tasks := o.deps.Planner.Decompose(query)
		o.emit("plan", map[string]any{"task_count": len(tasks)})
	}

	result, err := o.reasonActLoop(ctx, sess, mode, layers, query, permissions, &state)
	result.State = StateIdle
	o.emit("state-change", map[string]any{"state": string(StateIdle)})

	if sess != nil {
		o.snapshotAndRecord(ctx, sess, mode, layers, query, result)
	}
	o.emit("turn-complete", map[string]any{
		"iterations": result.Iterations,
		"aborted":    result.Aborted,
		"tokens":     result.Usage.PromptTokens + result.Usage.CompletionTokens,
	})
	return result, err
}

// snapshotAndRecord persists the spec §4.10 step-5 bookkeeping: a durable
// snapshot of ephemeral state plus the session's running turn/token totals.
// Failures here are logged via the event sink rather than surfaced, since a
// snapshot write failure must not turn a successful answer into a user-visible
// turn failure (spec §7: Corruption errors are recorded, not fatal).
func (o *Orchestrator) snapshotAndRecord(ctx context.Context, sess *session.Session, mode tokenbudget.Mode, layers memory.Layers, query string, result TurnResult) {
	ephemeralState, _ := json.Marshal(layers.Ephemeral.Turns())
	_, err := o.deps.Store.Snapshot(ctx, sess.ID, ephemeralState, nil, session.Mode(mode), nil, query)
	if err != nil {
		o.emit("error", map[string]any{"source": "snapshot", "error": err.Error()})
	}
	tokensUsed := result.Usage.PromptTokens + result.Usage.CompletionTokens
	if err := o.deps.Store.IncrementTurn(ctx, sess.ID, tokensUsed); err != nil {
		o.emit("error", map[string]any{"source": "increment-turn", "error": err.Error()})
	}
}

// ExecuteAsAgent runs a scoped turn on behalf of a mini-agent (spec §4.11):
// its own memory view, permission subset, token budget, and deadline, bound
// to depth <= 1 (spec §9 open-question resolution: no recursive spawning).
func (o *Orchestrator) ExecuteAsAgent(ctx context.Context, opts AgentOptions) (TurnResult, error) {
	if opts.Depth > 1 {
		return TurnResult{State: StateAborting, Aborted: true, AbortReason: "mini-agent depth exceeds 1"},
			errs.Validation("orchestrator.ExecuteAsAgent", "mini-agent depth must be <= 1", nil)
	}

	callCtx := ctx
	var cancel context.CancelFunc
	if opts.Timeout > 0 {
		callCtx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	mode := tokenbudget.ModeDirect
	state := StatePlanning
	o.emit("state-change", map[string]any{"state": string(state), "agent": true})

	result, err := o.reasonActLoop(callCtx, nil, mode, opts.ScopedMemory, opts.Prompt, opts.Permissions, &state)
	result.State = StateIdle
	o.emit("state-change", map[string]any{"state": string(StateIdle), "agent": true})
	return result, err
}

func (o *Orchestrator) reasonActLoop(ctx context.Context, sess *session.Session, mode tokenbudget.Mode, layers memory.Layers, query string, permissions tools.Permissions, state *State) (TurnResult, error) {
	budget := tokenbudget.NewManager(mode)
	approver := &stateApprover{gate: o.deps.Gate, onAsk: func() {
		*state = StateAwaitingApproval
		o.emit("state-change", map[string]any{"state": string(StateAwaitingApproval)})
	}}
	exec := executor.New(o.deps.Registry, approver, o.deps.Sink, o.cwd, o.toolDeadline)

	result := TurnResult{}
	currentQuery := query

	for iteration := 0; iteration < o.maxIterations; iteration++ {
		select {
		case <-ctx.Done():
			return result, ctx.Err()
		default:
		}

		*state = StateExecuting
		o.emit("state-change", map[string]any{"state": string(StateExecuting), "iteration": iteration})

		prompt, err := memory.BuildPrompt(budget, layers, o.systemPrompt, currentQuery)
		if err != nil {
			return result, err
		}

		messages := toChatMessages(prompt)
		var answer strings.Builder
		usage, err := o.deps.Client.Chat(ctx, messages, string(mode), func(chunk string) {
			answer.WriteString(chunk)
		})
		if err != nil {
			*state = StateAborting
			o.emit("state-change", map[string]any{"state": string(StateAborting), "reason": "model error"})
			result.Aborted = true
			result.AbortReason = err.Error()
			return result, err
		}
		result.Usage.PromptTokens += usage.PromptTokens
		result.Usage.CompletionTokens += usage.CompletionTokens
		result.Iterations++

		response := answer.String()
		toolResults, hasCalls := exec.Run(ctx, response, permissions)
		result.ToolResults = append(result.ToolResults, toolResults...)

		if sess != nil {
			for _, tr := range toolResults {
				_ = o.deps.Store.RecordLog(ctx, session.LogEntry{
					SessionID: sess.ID,
					ToolName:  tr.CallName,
					Success:   tr.Success,
					Error:     tr.Error,
					Timestamp: time.Now(),
				})
			}
		}

		if !hasCalls {
			result.FinalAnswer = response
			return result, nil
		}

		currentQuery = summarizeToolResults(toolResults)
		layers.Ephemeral.Add(memory.Turn{Role: "assistant", Content: response, At: time.Now(), TokenCost: budget.Count(response)})
		layers.Ephemeral.Add(memory.Turn{Role: "tool", Content: currentQuery, At: time.Now(), TokenCost: budget.Count(currentQuery)})
	}

	*state = StateAborting
	o.emit("state-change", map[string]any{"state": string(StateAborting), "reason": "max iterations exceeded"})
	result.Aborted = true
	result.AbortReason = "reason-act loop exceeded max iterations"
	return result, errs.Timeout("orchestrator.reasonActLoop", "exceeded max reason-act iterations", nil)
}

func toChatMessages(p memory.Prompt) []modelclient.ChatMessage {
	var messages []modelclient.ChatMessage
	if p.System != "" {
		messages = append(messages, modelclient.ChatMessage{Role: "system", Content: p.System})
	}
	for _, section := range []struct {
		label   string
		content string
	}{
		{"conversation history", p.Ephemeral},
		{"retrieved context", p.Retrieved},
		{"known facts", p.Knowledge},
		{"git history", p.Git},
	} {
		if section.content == "" {
			continue
		}
		messages = append(messages, modelclient.ChatMessage{
			Role:    "system",
			Content: fmt.Sprintf("%s:\n%s", section.label, section.content),
		})
	}
	messages = append(messages, modelclient.ChatMessage{Role: "user", Content: p.User})
	return messages
}

func summarizeToolResults(results []executor.ToolResultMessage) string {
	var b strings.Builder
	b.WriteString("Tool results:\n")
	for _, r := range results {
		if r.Success {
			b.WriteString(fmt.Sprintf("- %s: %s\n", r.CallName, r.Output))
		} else {
			b.WriteString(fmt.Sprintf("- %s failed: %s\n", r.CallName, r.Error))
		}
	}
	return b.String()
}

func (o *Orchestrator) emit(event string, payload map[string]any) {
	if o.deps.Sink != nil {
		o.deps.Sink.Emit(event, payload)
	}
}
