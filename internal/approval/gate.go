package approval

import (
	"context"
	"fmt"
	"sync"

	"github.com/flexicli/flexicli/internal/config"
	"github.com/flexicli/flexicli/internal/errs"
)

// Mode is the decision mode from config.ApprovalConfig.Mode / spec §4.6.
type Mode string

const (
	ModeYolo    Mode = "yolo"
	ModeAutoEdit Mode = "auto_edit"
	ModeDefault Mode = "default"
)

// Request describes one pending approval decision.
type Request struct {
	ToolName    string
	Args        map[string]any
	Sensitivity Sensitivity
}

// cacheKey matches spec §4.6: "(tool_name, sensitivity)".
type cacheKey struct {
	tool        string
	sensitivity Sensitivity
}

// Transport resolves a Request to a boolean approval. Console and UI
// transports both implement this; Console is synchronous, UI is
// asynchronous (a pending request is held until the UI resolves it).
type Transport interface {
	Decide(ctx context.Context, req Request) (bool, error)
}

// Gate is the Approval Gate (C6): classifies sensitivity, applies the
// configured decision mode, and remembers "approve & remember" answers for
// the session via a (tool_name, sensitivity)-keyed cache.
type Gate struct {
	mode      Mode
	transport Transport

	mu    sync.Mutex
	cache map[cacheKey]bool
}

// NewGate builds a Gate from config, wiring the decision mode from
// cfg.Approval.Mode (spec §6 APPROVAL_MODE).
func NewGate(cfg *config.Config, transport Transport) *Gate {
	mode := ModeDefault
	if cfg != nil && cfg.Approval.Mode != "" {
		mode = Mode(cfg.Approval.Mode)
	}
	return &Gate{mode: mode, transport: transport, cache: make(map[cacheKey]bool)}
}

// Decide classifies the call and returns whether it is approved. yolo
// auto-approves everything; auto_edit auto-approves {none, low, medium};
// default asks the transport for anything above none, consulting/populating
// the remember-cache first.
func (g *Gate) Decide(ctx context.Context, toolName string, args map[string]any) (bool, error) {
	sensitivity := Classify(toolName, args)

	if sensitivity == SensitivityNone {
		return true, nil
	}

	g.mu.Lock()
	mode := g.mode
	g.mu.Unlock()

	switch mode {
	case ModeYolo:
		return true, nil
	case ModeAutoEdit:
		if rank[sensitivity] <= rank[SensitivityMedium] {
			return true, nil
		}
	}

	key := cacheKey{tool: toolName, sensitivity: sensitivity}
	g.mu.Lock()
	if approved, ok := g.cache[key]; ok {
		g.mu.Unlock()
		return approved, nil
	}
	g.mu.Unlock()

	if g.transport == nil {
		return false, errs.Permission("approval.Decide", fmt.Sprintf("no transport configured to approve %s (%s)", toolName, sensitivity), nil)
	}

	approved, err := g.transport.Decide(ctx, Request{ToolName: toolName, Args: args, Sensitivity: sensitivity})
	if err != nil {
		return false, errs.Permission("approval.Decide", "approval transport error", err)
	}
	return approved, nil
}

// SetMode changes the decision mode at runtime, e.g. from the REPL's
// /approve command.
func (g *Gate) SetMode(mode Mode) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.mode = mode
}

// Remember caches an "approve & remember" (or deny & remember) answer for
// the remainder of the session, keyed by (tool_name, sensitivity).
func (g *Gate) Remember(toolName string, args map[string]any, approved bool) {
	sensitivity := Classify(toolName, args)
	g.mu.Lock()
	defer g.mu.Unlock()
	g.cache[cacheKey{tool: toolName, sensitivity: sensitivity}] = approved
}
