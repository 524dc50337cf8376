// Package executor implements the Executor (C8, spec §4.8): parsing tool
// calls out of LLM text, invoking them, and aggregating results.
package executor

import (
	"encoding/json"
	"regexp"
	"strings"
)

// Call is one parsed tool invocation request.
type Call struct {
	Name string
	Args map[string]any
}

var (
	toolUseRe  = regexp.MustCompile(`(?s)<tool_use>\s*(.*?)\s*</tool_use>`)
	functionRe = regexp.MustCompile("(?s)function:\\s*([a-zA-Z0-9_\\-]+)\\s*```(?:json)?\\s*(.*?)\\s*```")
	thinkRe    = regexp.MustCompile(`(?s)<think>.*?</think>`)
)

// Parse extracts tool calls from an LLM response in the two accepted
// envelopes (spec §4.8): an XML-like <tool_use> block, or a "function:"
// line followed by a fenced JSON block. <think> regions are stripped first
// and never scanned for calls (spec §9 "Never attempt to execute tool calls
// extracted from <think> regions"). If no calls are found, the response is
// the final answer.
func Parse(response string) ([]Call, bool) {
	visible := thinkRe.ReplaceAllString(response, "")

	var calls []Call

	for _, m := range toolUseRe.FindAllStringSubmatch(visible, -1) {
		if c, ok := parseToolUseBlock(m[1]); ok {
			calls = append(calls, c)
		}
	}

	for _, m := range functionRe.FindAllStringSubmatch(visible, -1) {
		name := strings.TrimSpace(m[1])
		args := parseLenientJSON(m[2])
		calls = append(calls, Call{Name: name, Args: args})
	}

	return calls, len(calls) > 0
}

// parseToolUseBlock parses a <tool_use> body. It accepts either a bare JSON
// object (with optional "name"/"tool"/"tool_name" and "args"/"input"
// fields) or a simpler "name\n{json-args}" layout.
func parseToolUseBlock(body string) (Call, bool) {
	body = strings.TrimSpace(body)

	var asObject map[string]any
	if err := json.Unmarshal([]byte(repairJSON(body)), &asObject); err == nil {
		name := firstString(asObject, "name", "tool", "tool_name")
		if name != "" {
			args, _ := asObject["args"].(map[string]any)
			if args == nil {
				args, _ = asObject["input"].(map[string]any)
			}
			if args == nil {
				args = asObject
			}
			return Call{Name: name, Args: args}, true
		}
	}

	lines := strings.SplitN(body, "\n", 2)
	if len(lines) == 0 {
		return Call{}, false
	}
	name := strings.TrimSpace(lines[0])
	if name == "" {
		return Call{}, false
	}
	args := map[string]any{}
	if len(lines) == 2 {
		args = parseLenientJSON(lines[1])
	}
	return Call{Name: name, Args: args}, true
}

func firstString(m map[string]any, keys ...string) string {
	for _, k := range keys {
		if v, ok := m[k].(string); ok && v != "" {
			return v
		}
	}
	return ""
}

// parseLenientJSON unmarshals args JSON, repairing trailing commas and
// ignoring unknown keys is implicit in map[string]any (spec §4.8: "unknown
// keys ignored, JSON with trailing commas repaired").
func parseLenientJSON(raw string) map[string]any {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return map[string]any{}
	}
	var out map[string]any
	if err := json.Unmarshal([]byte(repairJSON(raw)), &out); err != nil {
		return map[string]any{}
	}
	return out
}

var trailingCommaRe = regexp.MustCompile(`,(\s*[}\]])`)

// repairJSON strips trailing commas before closing braces/brackets, the
// only lenient-parsing repair spec §4.8 names explicitly.
func repairJSON(raw string) string {
	return trailingCommaRe.ReplaceAllString(raw, "$1")
}
