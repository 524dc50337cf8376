package tools

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/flexicli/flexicli/internal/errs"
)

// ErrNoMatch is returned by FindByName when no registered tool matches,
// carrying the full list of known names for error reporting (spec §4.5).
type ErrNoMatch struct {
	Requested  string
	Candidates []string
}

func (e *ErrNoMatch) Error() string {
	return "no tool matches " + e.Requested
}

// Registry is a read-mostly collection of tools, mutated only at startup
// discovery (spec §5 "Shared resources").
type Registry struct {
	mu    sync.RWMutex
	tools map[string]Tool
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]Tool)}
}

// Register adds a tool, keyed by its declared name.
func (r *Registry) Register(t Tool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tools[t.Name()] = t
}

// List returns all registered tool names, sorted for deterministic output.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.tools))
	for n := range r.tools {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// normalize applies the fuzzy-matching transform shared by lookup and
// registration: lowercase, underscores/hyphens equivalent, "Tool" suffix
// stripped.
func normalize(name string) string {
	n := strings.ToLower(strings.TrimSpace(name))
	n = strings.ReplaceAll(n, "-", "_")
	n = strings.TrimSuffix(n, "_tool")
	n = strings.TrimSuffix(n, "tool")
	return n
}

// FindByName performs the fuzzy lookup described in spec §4.5: exact match
// first, then normalized-form match, then substring match as a last resort.
// On multiple substring matches, the longest (most specific) wins.
func (r *Registry) FindByName(name string) (Tool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if t, ok := r.tools[name]; ok {
		return t, nil
	}

	target := normalize(name)
	var exact []Tool
	var substr []Tool
	for n, t := range r.tools {
		norm := normalize(n)
		if norm == target {
			exact = append(exact, t)
			continue
		}
		if strings.Contains(norm, target) || strings.Contains(target, norm) {
			substr = append(substr, t)
		}
	}

	candidates := exact
	if len(candidates) == 0 {
		candidates = substr
	}

	switch len(candidates) {
	case 0:
		return nil, &ErrNoMatch{Requested: name, Candidates: r.namesLocked()}
	case 1:
		return candidates[0], nil
	default:
		sort.Slice(candidates, func(i, j int) bool {
			return len(candidates[i].Name()) > len(candidates[j].Name())
		})
		return candidates[0], nil
	}
}

func (r *Registry) namesLocked() []string {
	names := make([]string, 0, len(r.tools))
	for n := range r.tools {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Invoke wraps a tool's Invoke with abort semantics (an external
// abort-context plus a per-call deadline — whichever fires first cancels the
// invocation) and the permission check from spec §4.5: the registry refuses
// to invoke tools not present in permissions.Allowed or present in
// permissions.Restricted.
func (r *Registry) Invoke(ctx context.Context, name string, args map[string]any, permissions Permissions, deadline time.Duration) (Result, error) {
	t, err := r.FindByName(name)
	if err != nil {
		return Result{}, errs.Tool("tools.Invoke", "tool not found: "+name, err)
	}

	if !isAllowed(t.Name(), permissions) {
		return Result{}, errs.Permission("tools.Invoke", "tool "+t.Name()+" not permitted", nil)
	}

	callCtx := ctx
	var cancel context.CancelFunc
	if deadline > 0 {
		callCtx, cancel = context.WithTimeout(ctx, deadline)
		defer cancel()
	}

	type outcome struct {
		res Result
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		res, err := t.Invoke(callCtx, args, permissions)
		done <- outcome{res, err}
	}()

	select {
	case <-callCtx.Done():
		kind := errs.KindTimeout
		if ctx.Err() != nil && ctx.Err() != context.DeadlineExceeded {
			return Result{}, errs.Wrap(kind, "tools.Invoke", "invocation aborted: "+name, ctx.Err())
		}
		return Result{}, errs.Timeout("tools.Invoke", "invocation deadline exceeded: "+name, callCtx.Err())
	case o := <-done:
		if o.err != nil {
			return Result{}, errs.Tool("tools.Invoke", "tool "+name+" failed", o.err)
		}
		return o.res, nil
	}
}

func isAllowed(name string, p Permissions) bool {
	for _, r := range p.Restricted {
		if r == name {
			return false
		}
	}
	if len(p.Allowed) == 0 {
		return false
	}
	for _, a := range p.Allowed {
		if a == name {
			return true
		}
	}
	return false
}
