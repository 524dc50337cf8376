// Package approval implements the Approval Gate (spec §4.6): sensitivity
// classification of tool calls and the per-request user decision protocol.
package approval

import (
	"regexp"
	"strings"
)

// Sensitivity mirrors internal/tools.Sensitivity but is owned here since
// classification is this package's responsibility.
type Sensitivity string

const (
	SensitivityNone     Sensitivity = "none"
	SensitivityLow      Sensitivity = "low"
	SensitivityMedium   Sensitivity = "medium"
	SensitivityHigh     Sensitivity = "high"
	SensitivityCritical Sensitivity = "critical"
)

var rank = map[Sensitivity]int{
	SensitivityNone:     0,
	SensitivityLow:      1,
	SensitivityMedium:   2,
	SensitivityHigh:     3,
	SensitivityCritical: 4,
}

func max(a, b Sensitivity) Sensitivity {
	if rank[a] >= rank[b] {
		return a
	}
	return b
}

// classRule is the per-tool-family classification table, built in the same
// ID/Pattern/Severity shape as internal/secrets.Rule's DefaultRules,
// adapted here from secret-detection to command-sensitivity classification.
type classRule struct {
	ID       string
	Pattern  *regexp.Regexp
	Severity Sensitivity
}

var shellRules = []classRule{
	{"shell-critical", regexp.MustCompile(`(?i)\b(rm\s+-rf|sudo|chmod|curl\s*\||wget\s*\||format|mkfs)\b`), SensitivityCritical},
	{"shell-high", regexp.MustCompile(`(?i)\b(rm|mv|cp|git\s+push|git\s+reset\s+--hard)\b`), SensitivityHigh},
	{"shell-none", regexp.MustCompile(`(?i)^\s*(ls|cat|pwd|echo|which|find|head|tail)\b`), SensitivityNone},
}

var gitRules = []classRule{
	{"git-high", regexp.MustCompile(`(?i)\b(push|reset\s+--hard|clean\s+-fd|rebase)\b`), SensitivityHigh},
	{"git-medium", regexp.MustCompile(`(?i)\b(add|commit|checkout)\b`), SensitivityMedium},
}

var sensitivePathPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\.env(\.|$)`),
	regexp.MustCompile(`(?i)package\.json$`),
	regexp.MustCompile(`(?i)^/etc/`),
	regexp.MustCompile(`(?i)^/usr/`),
	regexp.MustCompile(`(?i)Dockerfile$`),
	regexp.MustCompile(`(?i)\.(sh|exe|bin|so|dll)$`),
}

var readOnlyTools = map[string]bool{
	"read_file": true, "grep": true, "glob": true, "ls": true, "memory": true,
}

// Classify implements the pure (tool_name, args) → Sensitivity function from
// spec §4.6.
func Classify(toolName string, args map[string]any) Sensitivity {
	name := strings.ToLower(toolName)

	if readOnlyTools[name] {
		return SensitivityNone
	}

	switch {
	case strings.Contains(name, "shell") || strings.Contains(name, "bash") || name == "exec" || name == "run":
		cmd, _ := args["command"].(string)
		if cmd == "" {
			cmd, _ = args["cmd"].(string)
		}
		return classifyShell(cmd)

	case strings.Contains(name, "git"):
		sub, _ := args["subcommand"].(string)
		if sub == "" {
			sub, _ = args["args"].(string)
		}
		return classifyGit(sub)

	case strings.Contains(name, "write") || strings.Contains(name, "edit") || strings.Contains(name, "create"):
		return classifyFileWrite(args)
	}

	return SensitivityMedium
}

func classifyShell(cmd string) Sensitivity {
	if cmd == "" {
		return SensitivityMedium
	}
	for _, r := range shellRules {
		if r.Pattern.MatchString(cmd) {
			return r.Severity
		}
	}
	return SensitivityMedium
}

func classifyGit(sub string) Sensitivity {
	if sub == "" {
		return SensitivityLow
	}
	for _, r := range gitRules {
		if r.Pattern.MatchString(sub) {
			return r.Severity
		}
	}
	return SensitivityLow
}

func classifyFileWrite(args map[string]any) Sensitivity {
	path, _ := args["path"].(string)
	if path == "" {
		path, _ = args["file_path"].(string)
	}
	for _, p := range sensitivePathPatterns {
		if p.MatchString(path) {
			return SensitivityHigh
		}
	}
	exists, _ := args["exists"].(bool)
	if exists {
		return SensitivityMedium
	}
	return SensitivityLow
}
