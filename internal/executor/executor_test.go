package executor_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flexicli/flexicli/internal/executor"
	"github.com/flexicli/flexicli/internal/tools"
)

func TestParse_ToolUseBlock(t *testing.T) {
	resp := `I will read the file.
<tool_use>
{"name": "read_file", "args": {"path": "a.go"}}
</tool_use>`
	calls, ok := executor.Parse(resp)
	require.True(t, ok)
	require.Len(t, calls, 1)
	assert.Equal(t, "read_file", calls[0].Name)
	assert.Equal(t, "a.go", calls[0].Args["path"])
}

func TestParse_FunctionEnvelope(t *testing.T) {
	resp := "function: write_file\n```json\n{\"path\": \"b.go\", \"content\": \"x\",}\n```"
	calls, ok := executor.Parse(resp)
	require.True(t, ok)
	require.Len(t, calls, 1)
	assert.Equal(t, "write_file", calls[0].Name)
	assert.Equal(t, "b.go", calls[0].Args["path"])
}

func TestParse_NoCallsIsFinalAnswer(t *testing.T) {
	_, ok := executor.Parse("Bottom Line: the answer is 42.")
	assert.False(t, ok)
}

func TestParse_IgnoresThinkRegion(t *testing.T) {
	resp := `<think><tool_use>{"name":"rm_all"}</tool_use></think>No tool calls here.`
	_, ok := executor.Parse(resp)
	assert.False(t, ok)
}

func TestParse_MultipleCallsInOrder(t *testing.T) {
	resp := `<tool_use>{"name":"a","args":{}}</tool_use><tool_use>{"name":"b","args":{}}</tool_use>`
	calls, ok := executor.Parse(resp)
	require.True(t, ok)
	require.Len(t, calls, 2)
	assert.Equal(t, "a", calls[0].Name)
	assert.Equal(t, "b", calls[1].Name)
}

type recordingTool struct {
	name string
	res  tools.Result
	err  error
}

func (r *recordingTool) Name() string                          { return r.name }
func (r *recordingTool) Description() string                   { return "" }
func (r *recordingTool) ParameterSchema() tools.ParameterSchema { return tools.ParameterSchema{} }
func (r *recordingTool) SensitivityHint() tools.Sensitivity     { return tools.SensitivityNone }
func (r *recordingTool) Invoke(ctx context.Context, args map[string]any, p tools.Permissions) (tools.Result, error) {
	return r.res, r.err
}

type allowAllApprover struct{}

func (allowAllApprover) Decide(ctx context.Context, name string, args map[string]any) (bool, error) {
	return true, nil
}

type denyApprover struct{}

func (denyApprover) Decide(ctx context.Context, name string, args map[string]any) (bool, error) {
	return false, nil
}

func TestExecutor_Run_InvokesApprovedTool(t *testing.T) {
	reg := tools.NewRegistry()
	reg.Register(&recordingTool{name: "read_file", res: tools.Result{Success: true, Output: "contents"}})
	ex := executor.New(reg, allowAllApprover{}, nil, "/tmp", 0)

	resp := `<tool_use>{"name":"read_file","args":{"path":"x"}}</tool_use>`
	results, ok := ex.Run(context.Background(), resp, tools.Permissions{Allowed: []string{"read_file"}})
	require.True(t, ok)
	require.Len(t, results, 1)
	assert.True(t, results[0].Success)
	assert.Equal(t, "contents", results[0].Output)
}

func TestExecutor_Run_DeniedByApproval(t *testing.T) {
	reg := tools.NewRegistry()
	reg.Register(&recordingTool{name: "rm", res: tools.Result{Success: true}})
	ex := executor.New(reg, denyApprover{}, nil, "/tmp", 0)

	resp := `<tool_use>{"name":"rm","args":{}}</tool_use>`
	results, ok := ex.Run(context.Background(), resp, tools.Permissions{Allowed: []string{"rm"}})
	require.True(t, ok)
	require.Len(t, results, 1)
	assert.False(t, results[0].Success)
}

func TestExecutor_Run_NoCallsReturnsFalse(t *testing.T) {
	reg := tools.NewRegistry()
	ex := executor.New(reg, allowAllApprover{}, nil, "/tmp", 0)
	results, ok := ex.Run(context.Background(), "final answer text", tools.Permissions{})
	assert.False(t, ok)
	assert.Nil(t, results)
}
