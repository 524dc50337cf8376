package executor

import (
	"context"
	"path/filepath"
	"strings"
	"time"

	"github.com/flexicli/flexicli/internal/errs"
	"github.com/flexicli/flexicli/internal/tools"
)

// Approver runs a tool call through the Approval Gate before invocation.
type Approver interface {
	Decide(ctx context.Context, toolName string, args map[string]any) (bool, error)
}

// EventSink receives the "tool-execute"/"tool-result" events the Executor
// emits to the Monitoring Bridge (spec §4.8, §4.12).
type EventSink interface {
	Emit(event string, payload map[string]any)
}

type nopSink struct{}

func (nopSink) Emit(string, map[string]any) {}

// ToolResultMessage is appended to the conversation after a call completes.
type ToolResultMessage struct {
	CallName string
	Success  bool
	Output   string
	Error    string
}

// Executor parses tool calls out of LLM responses, runs them through
// approval and the tool registry, and aggregates results (C8).
type Executor struct {
	registry *tools.Registry
	approver Approver
	sink     EventSink
	cwd      string
	deadline time.Duration
}

// New builds an Executor. cwd anchors the file-not-found recovery ladder;
// deadline bounds each tool invocation (spec §4.5 "per-call deadline").
func New(registry *tools.Registry, approver Approver, sink EventSink, cwd string, deadline time.Duration) *Executor {
	if sink == nil {
		sink = nopSink{}
	}
	return &Executor{registry: registry, approver: approver, sink: sink, cwd: cwd, deadline: deadline}
}

// Run parses response for tool calls and executes each in order. If none
// are found, response itself is the final answer (ok=false).
func (e *Executor) Run(ctx context.Context, response string, permissions tools.Permissions) ([]ToolResultMessage, bool) {
	calls, ok := Parse(response)
	if !ok {
		return nil, false
	}

	results := make([]ToolResultMessage, 0, len(calls))
	for _, c := range calls {
		results = append(results, e.execute(ctx, c, permissions))
	}
	return results, true
}

func (e *Executor) execute(ctx context.Context, c Call, permissions tools.Permissions) ToolResultMessage {
	e.sink.Emit("tool-execute", map[string]any{"tool": c.Name, "args": c.Args})

	if e.approver != nil {
		approved, err := e.approver.Decide(ctx, c.Name, c.Args)
		if err != nil || !approved {
			msg := ToolResultMessage{CallName: c.Name, Success: false, Error: "approval denied"}
			e.sink.Emit("tool-result", map[string]any{"tool": c.Name, "success": false, "error": msg.Error})
			return msg
		}
	}

	res, err := e.registry.Invoke(ctx, c.Name, c.Args, permissions, e.deadline)
	if err != nil {
		res, err = e.recover(ctx, c, permissions, err)
	}

	msg := ToolResultMessage{CallName: c.Name, Success: err == nil && res.Success, Output: res.Output}
	if err != nil {
		msg.Error = err.Error()
	} else if res.Error != "" {
		msg.Error = res.Error
	}

	e.sink.Emit("tool-result", map[string]any{"tool": c.Name, "success": msg.Success, "error": msg.Error})
	return msg
}

// recover applies the spec §4.8 error-recovery ladder, once per failed call.
func (e *Executor) recover(ctx context.Context, c Call, permissions tools.Permissions, original error) (tools.Result, error) {
	switch errs.KindOf(original) {
	case errs.KindTool:
		return e.recoverToolError(ctx, c, permissions, original)
	case errs.KindTimeout:
		return e.recoverTimeout(ctx, c, permissions)
	default:
		return tools.Result{}, original
	}
}

func (e *Executor) recoverToolError(ctx context.Context, c Call, permissions tools.Permissions, original error) (tools.Result, error) {
	msg := original.Error()

	switch {
	case strings.Contains(msg, "file not found") || strings.Contains(msg, "no such file"):
		path, _ := c.Args["path"].(string)
		if path == "" {
			return tools.Result{}, original
		}
		for _, candidate := range candidatePaths(e.cwd, path) {
			args := cloneArgs(c.Args)
			args["path"] = candidate
			if res, err := e.registry.Invoke(ctx, c.Name, args, permissions, e.deadline); err == nil {
				return res, nil
			}
		}
		return tools.Result{}, original

	case strings.Contains(msg, "absolute path"):
		path, _ := c.Args["path"].(string)
		if path == "" || filepath.IsAbs(path) {
			return tools.Result{}, original
		}
		args := cloneArgs(c.Args)
		args["path"] = filepath.Join(e.cwd, path)
		return e.registry.Invoke(ctx, c.Name, args, permissions, e.deadline)

	case strings.Contains(msg, "command not found"):
		if alt, ok := readOnlyEquivalent(c.Name); ok {
			return e.registry.Invoke(ctx, alt, c.Args, permissions, e.deadline)
		}
		return tools.Result{}, original

	default:
		return tools.Result{}, original
	}
}

func (e *Executor) recoverTimeout(ctx context.Context, c Call, permissions tools.Permissions) (tools.Result, error) {
	desc, _ := c.Args["command"].(string)
	parts := splitCompound(desc)
	if len(parts) < 2 {
		return tools.Result{}, errs.Timeout("executor.recover", "compound decomposition not applicable", nil)
	}

	var lastRes tools.Result
	for _, part := range parts {
		args := cloneArgs(c.Args)
		args["command"] = strings.TrimSpace(part)
		res, err := e.registry.Invoke(ctx, c.Name, args, permissions, e.deadline)
		if err != nil {
			return tools.Result{}, err
		}
		lastRes = res
	}
	return lastRes, nil
}

func splitCompound(s string) []string {
	s = strings.ReplaceAll(s, " and ", ",")
	return strings.Split(s, ",")
}

func candidatePaths(cwd, path string) []string {
	return []string{
		filepath.Join(cwd, path),
		filepath.Join(cwd, "src", path),
		filepath.Join(cwd, conventionalDir(path), path),
	}
}

func conventionalDir(path string) string {
	switch filepath.Ext(path) {
	case ".go":
		return "internal"
	case ".py":
		return "src"
	case ".ts", ".tsx", ".js", ".jsx":
		return "src"
	default:
		return "."
	}
}

var readOnlyEquivalents = map[string]string{
	"delete_file": "read_file",
	"write_file":  "read_file",
}

func readOnlyEquivalent(name string) (string, bool) {
	alt, ok := readOnlyEquivalents[name]
	return alt, ok
}

func cloneArgs(args map[string]any) map[string]any {
	out := make(map[string]any, len(args))
	for k, v := range args {
		out[k] = v
	}
	return out
}
