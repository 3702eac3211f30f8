package predictor

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/mohammad-safakhou/carie/internal/agent/react"
	"github.com/mohammad-safakhou/carie/internal/capability"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var assist = react.Signature{
	Inputs: []react.FieldSpec{{Name: "task", Description: "a need to be fulfilled"}},
	Output: react.FieldSpec{Name: "result", Description: "either a success or failure result of task"},
}

func testPlan(t *testing.T, maxHops int) *react.Plan {
	t.Helper()
	reg, err := capability.NewRegistry(capability.NewFinish("result"))
	require.NoError(t, err)
	plan, err := react.NewPlan(assist, reg, maxHops)
	require.NoError(t, err)
	return plan
}

func TestRenderPromptFirstHop(t *testing.T) {
	plan := testPlan(t, 2)
	schema, _ := plan.Schema(1)
	bound := react.FieldsFromEntries([]react.Entry{{Name: "task", Value: "Is Fern ok?"}})

	want := plan.Instructions() + "\n\n---\n\n" +
		"Follow the following format.\n\n" +
		"Task: ${a need to be fulfilled}\n" +
		"Thought 1: ${next steps to take based on latest observation}\n" +
		"Action 1: ${always Finish[result]}" +
		"\n\n---\n\n" +
		"Task: Is Fern ok?\n" +
		"Thought 1:"
	assert.Equal(t, want, RenderPrompt(schema, bound, nil))
}

func TestRenderPromptIncludesDemosAndHistory(t *testing.T) {
	plan := testPlan(t, 2)
	schema, _ := plan.Schema(2)
	bound := react.FieldsFromEntries([]react.Entry{
		{Name: "task", Value: "Is Fern ok?"},
		{Name: "Thought_1", Value: "look"},
		{Name: "Action_1", Value: "list_plants[ ]"},
		{Name: "Observation_1", Value: "Fern, currently has good air humidity"},
	})
	demos := []Demo{
		{"task": "Is Basil ok?", "Thought_1": "done", "Action_1": "Finish[yes]", "result": "yes"},
		{"Thought_1": "no input, skipped"},
	}

	prompt := RenderPrompt(schema, bound, demos)
	assert.Contains(t, prompt, "---\n\nTask: Is Basil ok?\nThought 1: done\nAction 1: Finish[yes]\n\n---")
	assert.NotContains(t, prompt, "no input, skipped")
	assert.Contains(t, prompt, "Observation 1: Fern, currently has good air humidity\nThought 2:")
	assert.Equal(t, "Observation 2:", stopSequence(schema))
}

func TestParseCompletion(t *testing.T) {
	plan := testPlan(t, 2)
	schema, _ := plan.Schema(2)
	bound := react.FieldsFromEntries([]react.Entry{
		{Name: "task", Value: "x"}, {Name: "Thought_1", Value: "a"}, {Name: "Action_1", Value: "b[c]"}, {Name: "Observation_1", Value: "d"},
	})
	unbound := schema.Unbound(bound)

	got := ParseCompletion(unbound, " I should finish\nAction 2: Finish[fine]\n")
	assert.Equal(t, map[string]string{"Thought_2": "I should finish", "Action_2": "Finish[fine]"}, got)

	got = ParseCompletion(unbound, " still thinking")
	assert.Equal(t, map[string]string{"Thought_2": "still thinking"}, got)

	got = ParseCompletion(unbound, "mentions Action 2: inline\nAction 2: Finish[x]")
	assert.Equal(t, "mentions Action 2: inline", got["Thought_2"])
	assert.Equal(t, "Finish[x]", got["Action_2"])

	assert.Empty(t, ParseCompletion(nil, "anything"))
}

func TestLoadDemos(t *testing.T) {
	path := filepath.Join(t.TempDir(), "demos.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
- task: What's the humidity for Fern?
  Thought_1: I should check sensor
  Action_1: read_plant_sensor[Fern, air_humidity]
  Observation_1: Fern's air humidity currently is 42. Ideally it should be between 30 and 60
  Thought_2: It is fine
  Action_2: Finish[Fern's air humidity is fine]
`), 0o600))

	demos, err := LoadDemos(path)
	require.NoError(t, err)
	require.Len(t, demos, 1)
	assert.Equal(t, "read_plant_sensor[Fern, air_humidity]", demos[0]["Action_1"])

	_, err = LoadDemos(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
