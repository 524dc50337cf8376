package planner_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flexicli/flexicli/internal/planner"
)

func TestDecompose_ReadThenWrite(t *testing.T) {
	p := planner.New()
	tasks := p.Decompose("Read package.json then create notes.md listing its dependencies.")
	require.Len(t, tasks, 2)
	assert.Equal(t, "read", tasks[0].Verb)
	assert.Equal(t, "create", tasks[1].Verb)
}

func TestDecompose_DependencyInference_WriteAfterReadSamePath(t *testing.T) {
	p := planner.New()
	tasks := p.Decompose("1. Read config.yaml\n2. Edit config.yaml to add a field")
	require.Len(t, tasks, 2)
	assert.Empty(t, tasks[0].Deps)
	assert.Contains(t, tasks[1].Deps, tasks[0].ID)
}

func TestDecompose_DedupesByFirst50Chars(t *testing.T) {
	p := planner.New()
	prompt := "1. Search for all usages of the deprecated function\n2. Search for all usages of the deprecated function again please"
	tasks := p.Decompose(prompt)
	assert.Len(t, tasks, 1)
}

func TestDecompose_UniqueTaskIDs(t *testing.T) {
	p := planner.New()
	tasks := p.Decompose("1. Read a.go\n2. Write b.go\n3. Run tests\n4. Check results")
	ids := make(map[string]bool)
	for _, task := range tasks {
		assert.False(t, ids[task.ID], "duplicate id %s", task.ID)
		ids[task.ID] = true
	}
}

func TestIsComplex_ManyUnrelatedOperations(t *testing.T) {
	p := planner.New()
	prompt := "search read write create edit run test analyze check find more things"
	assert.True(t, p.IsComplex(prompt))
}

func TestIsComplex_SimplePromptIsNotComplex(t *testing.T) {
	p := planner.New()
	assert.False(t, p.IsComplex("Read package.json."))
}

func TestDecompose_LargePromptYieldsManyTasksNoDuplicates(t *testing.T) {
	p := planner.New()
	var lines []string
	for i := 0; i < 25; i++ {
		lines = append(lines, "Search for usage number and read file and create report and run check")
	}
	tasks := p.Decompose(strings.Join(lines, "\n"))
	// every line is identical, so dedup collapses to a handful of tasks
	assert.NotEmpty(t, tasks)
	ids := make(map[string]bool)
	for _, task := range tasks {
		assert.False(t, ids[task.ID])
		ids[task.ID] = true
	}
}
