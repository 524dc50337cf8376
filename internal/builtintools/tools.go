// Package builtintools provides a minimal set of concrete tool
// implementations for cmd/flexicli. Spec §1 scopes concrete tool
// implementations (shell, file I/O, git, grep, web search) out of the core
// runtime; this package is the peripheral, CLI-only wiring that makes the
// binary runnable end to end, registered only from cmd/flexicli and never
// imported by any internal/* core package.
package builtintools

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/flexicli/flexicli/internal/sanitize"
	"github.com/flexicli/flexicli/internal/tools"
)

// Register adds the built-in tool set to reg, rooted at cwd. Every tool
// rejects paths that escape cwd.
func Register(reg *tools.Registry, cwd string) {
	reg.Register(readFileTool{cwd: cwd})
	reg.Register(writeFileTool{cwd: cwd})
	reg.Register(listDirTool{cwd: cwd})
	reg.Register(shellTool{cwd: cwd})
}

func resolveWithin(cwd, rel string) (string, error) {
	return sanitize.ValidatePath(filepath.Join(cwd, rel), cwd)
}

type readFileTool struct{ cwd string }

func (readFileTool) Name() string        { return "read_file" }
func (readFileTool) Description() string { return "Read a UTF-8 text file relative to the project root." }
func (readFileTool) SensitivityHint() tools.Sensitivity { return tools.SensitivityNone }

func (readFileTool) ParameterSchema() tools.ParameterSchema {
	return tools.ParameterSchema{
		Type:       "object",
		Properties: map[string]tools.ParameterSchema{"path": {Type: "string"}},
		Required:   []string{"path"},
	}
}

func (t readFileTool) Invoke(ctx context.Context, args map[string]any, _ tools.Permissions) (tools.Result, error) {
	path, _ := args["path"].(string)
	full, err := resolveWithin(t.cwd, path)
	if err != nil {
		return tools.Result{Error: err.Error()}, nil
	}
	data, err := os.ReadFile(full)
	if err != nil {
		return tools.Result{Error: err.Error()}, nil
	}
	return tools.Result{Success: true, Output: string(data)}, nil
}

type writeFileTool struct{ cwd string }

func (writeFileTool) Name() string        { return "write_file" }
func (writeFileTool) Description() string { return "Write a UTF-8 text file relative to the project root, creating parent directories as needed." }
func (writeFileTool) SensitivityHint() tools.Sensitivity { return tools.SensitivityHigh }

func (writeFileTool) ParameterSchema() tools.ParameterSchema {
	return tools.ParameterSchema{
		Type: "object",
		Properties: map[string]tools.ParameterSchema{
			"path":    {Type: "string"},
			"content": {Type: "string"},
		},
		Required: []string{"path", "content"},
	}
}

func (t writeFileTool) Invoke(ctx context.Context, args map[string]any, _ tools.Permissions) (tools.Result, error) {
	path, _ := args["path"].(string)
	content, _ := args["content"].(string)
	full, err := resolveWithin(t.cwd, path)
	if err != nil {
		return tools.Result{Error: err.Error()}, nil
	}
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return tools.Result{Error: err.Error()}, nil
	}
	if err := os.WriteFile(full, []byte(content), 0o644); err != nil {
		return tools.Result{Error: err.Error()}, nil
	}
	return tools.Result{Success: true, Output: fmt.Sprintf("wrote %d bytes to %s", len(content), path)}, nil
}

type listDirTool struct{ cwd string }

func (listDirTool) Name() string        { return "list_dir" }
func (listDirTool) Description() string { return "List entries of a directory relative to the project root." }
func (listDirTool) SensitivityHint() tools.Sensitivity { return tools.SensitivityNone }

func (listDirTool) ParameterSchema() tools.ParameterSchema {
	return tools.ParameterSchema{
		Type:       "object",
		Properties: map[string]tools.ParameterSchema{"path": {Type: "string"}},
	}
}

func (t listDirTool) Invoke(ctx context.Context, args map[string]any, _ tools.Permissions) (tools.Result, error) {
	path, _ := args["path"].(string)
	if path == "" {
		path = "."
	}
	full, err := resolveWithin(t.cwd, path)
	if err != nil {
		return tools.Result{Error: err.Error()}, nil
	}
	entries, err := os.ReadDir(full)
	if err != nil {
		return tools.Result{Error: err.Error()}, nil
	}
	var b strings.Builder
	for _, e := range entries {
		if e.IsDir() {
			b.WriteString(e.Name() + "/\n")
		} else {
			b.WriteString(e.Name() + "\n")
		}
	}
	return tools.Result{Success: true, Output: b.String()}, nil
}

type shellTool struct{ cwd string }

func (shellTool) Name() string        { return "shell" }
func (shellTool) Description() string { return "Run a shell command in the project root with a bounded timeout." }
func (shellTool) SensitivityHint() tools.Sensitivity { return tools.SensitivityCritical }

func (shellTool) ParameterSchema() tools.ParameterSchema {
	return tools.ParameterSchema{
		Type:       "object",
		Properties: map[string]tools.ParameterSchema{"command": {Type: "string"}},
		Required:   []string{"command"},
	}
}

func (t shellTool) Invoke(ctx context.Context, args map[string]any, _ tools.Permissions) (tools.Result, error) {
	command, _ := args["command"].(string)
	if command == "" {
		return tools.Result{Error: "command is required"}, nil
	}

	runCtx, cancel := context.WithTimeout(ctx, 60*time.Second)
	defer cancel()

	cmd := exec.CommandContext(runCtx, "sh", "-c", command)
	cmd.Dir = t.cwd
	out, err := cmd.CombinedOutput()
	if err != nil {
		return tools.Result{Output: string(out), Error: err.Error()}, nil
	}
	return tools.Result{Success: true, Output: string(out)}, nil
}
