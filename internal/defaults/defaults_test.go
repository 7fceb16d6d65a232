package defaults

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/evalflow/internal/document"
	"github.com/vk/evalflow/internal/flowerr"
)

func TestResolve_LongestPrefixWins(t *testing.T) {
	prefixes := map[string]document.Document{
		"x":   {"args": map[string]any{"from": "x"}, "epochs": 1},
		"x/y": {"args": map[string]any{"from": "x/y"}},
		"z":   {"epochs": 9},
	}

	got := Resolve(document.Document{"name": "x/y/z"}, nil, prefixes)

	assert.Equal(t, map[string]any{"from": "x/y"}, got["args"])
	assert.Equal(t, 1, got["epochs"], "shorter prefix still contributes fields the longer one does not set")
	assert.Equal(t, "x/y/z", got["name"])
}

func TestResolve_Precedence(t *testing.T) {
	global := document.Document{"epochs": 1, "sample_id": "g", "file": "g.py"}
	prefixes := map[string]document.Document{
		"ab": {"epochs": 2, "sample_id": "p"},
	}
	spec := document.Document{"name": "abc", "epochs": 3}

	got := Resolve(spec, global, prefixes)
	want := document.Document{"name": "abc", "epochs": 3, "sample_id": "p", "file": "g.py"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Resolve mismatch (-want +got):\n%s", diff)
	}
}

func TestMatchingPrefixes(t *testing.T) {
	prefixes := map[string]document.Document{
		"openai/":       {},
		"openai/gpt-4":  {},
		"anthropic/":    {},
		"":              {},
		"openai/gpt-4o": nil,
	}
	assert.Equal(t, []string{"", "openai/", "openai/gpt-4"}, MatchingPrefixes("openai/gpt-4o", prefixes))
	assert.Equal(t, []string{""}, MatchingPrefixes("google/gemini", prefixes))
}

func TestMerge_ExplicitNullAtTopLevelOverrides(t *testing.T) {
	dst := document.Document{"model": map[string]any{"name": "m"}, "epochs": 2}
	got := Merge(dst, document.Document{"model": nil})

	v, present := got["model"]
	assert.True(t, present)
	assert.Nil(t, v)
	assert.Equal(t, 2, got["epochs"])
	assert.NotNil(t, dst["model"], "inputs are not modified")
}

func TestMerge_DeepKeysMergeOneLevel(t *testing.T) {
	dst := document.Document{
		"config":   map[string]any{"max_tokens": 100, "stop_seqs": []any{"a"}},
		"metadata": map[string]any{"team": "x"},
		"args":     map[string]any{"shots": 5, "split": "test"},
	}
	src := document.Document{
		"config":   map[string]any{"temperature": 0.2},
		"metadata": map[string]any{"owner": "y"},
		"args":     map[string]any{"shots": 0},
	}

	got := Merge(dst, src)

	assert.Equal(t, map[string]any{"max_tokens": 100, "stop_seqs": []any{"a"}, "temperature": 0.2}, got["config"])
	assert.Equal(t, map[string]any{"team": "x", "owner": "y"}, got["metadata"])
	assert.Equal(t, map[string]any{"shots": 0}, got["args"], "non-whitelisted objects replace wholesale")
}

func TestMerge_NestedNullDoesNotOverride(t *testing.T) {
	dst := document.Document{"config": map[string]any{"temperature": 0.7}}
	got := Merge(dst, document.Document{"config": map[string]any{"temperature": nil, "seed": nil}})

	assert.Equal(t, map[string]any{"temperature": 0.7, "seed": nil}, got["config"])
}

func TestMerge_DeepKeyReplacedByNull(t *testing.T) {
	dst := document.Document{"config": map[string]any{"temperature": 0.7}}
	got := Merge(dst, document.Document{"config": nil})
	assert.Nil(t, got["config"])
}

func jobWith(defaults map[string]any, tasks ...any) document.Document {
	return document.Document{"defaults": defaults, "tasks": tasks}
}

func resolveTasks(t *testing.T, job document.Document) []any {
	t.Helper()
	out, err := ResolveJob(context.Background(), job)
	require.NoError(t, err)
	_, hasDefaults := out["defaults"]
	require.False(t, hasDefaults, "defaults must be dropped")
	return out["tasks"].([]any)
}

func TestResolveJob_NullTaskModelOverridesDefault(t *testing.T) {
	job := jobWith(
		map[string]any{
			"task":  map[string]any{"model": map[string]any{"name": "default-model"}},
			"model": map[string]any{"name": "global-model"},
		},
		map[string]any{"name": "a", "model": nil},
		map[string]any{"name": "b"},
	)

	tasks := resolveTasks(t, job)

	a := tasks[0].(map[string]any)
	v, present := a["model"]
	assert.True(t, present)
	assert.Nil(t, v, "explicit null model beats the task default")

	b := tasks[1].(map[string]any)
	assert.Equal(t, "default-model", b["model"].(map[string]any)["name"])
}

func TestResolveJob_NamedGlobalModelFillsUnset(t *testing.T) {
	job := jobWith(
		map[string]any{"model": map[string]any{"name": "openai/gpt-4o", "config": map[string]any{"max_tokens": 10}}},
		map[string]any{"name": "a"},
		map[string]any{"name": "b", "model": nil},
	)
	tasks := resolveTasks(t, job)

	a := tasks[0].(map[string]any)
	assert.Equal(t, "openai/gpt-4o", a["model"].(map[string]any)["name"])
	assert.Equal(t, map[string]any{"max_tokens": 10}, a["config"])

	b := tasks[1].(map[string]any)
	assert.Nil(t, b["model"])
}

func TestResolveJob_ModelPrefixesUseModelName(t *testing.T) {
	job := jobWith(
		map[string]any{
			"model": map[string]any{"config": map[string]any{"max_connections": 10}},
			"model_prefix": map[string]any{
				"openai/":       map[string]any{"config": map[string]any{"max_connections": 20, "timeout": 60}},
				"openai/o":      map[string]any{"config": map[string]any{"max_connections": 5}},
				"anthropic/":    map[string]any{"base_url": "https://example"},
				"openai/gpt-4o": nil,
			},
		},
		map[string]any{"name": "a", "model": map[string]any{"name": "openai/o3"}},
	)

	tasks := resolveTasks(t, job)
	model := tasks[0].(map[string]any)["model"].(map[string]any)

	want := map[string]any{
		"name":   "openai/o3",
		"config": map[string]any{"max_connections": 5, "timeout": 60},
	}
	if diff := cmp.Diff(want, model); diff != "" {
		t.Errorf("model mismatch (-want +got):\n%s", diff)
	}
}

func TestResolveJob_ConfigLayering(t *testing.T) {
	job := jobWith(
		map[string]any{
			"config": map[string]any{"max_tokens": 1000, "temperature": 1.0, "seed": 1},
			"task":   map[string]any{"config": map[string]any{"seed": 2}},
		},
		map[string]any{
			"name":   "a",
			"config": map[string]any{"temperature": 0.3, "top_p": 0.9},
			"model":  map[string]any{"name": "m", "config": map[string]any{"top_p": 0.5, "temperature": nil}},
		},
	)

	tasks := resolveTasks(t, job)
	cfg := tasks[0].(map[string]any)["config"]

	// defaults.config < task config (with task default) < model config.
	assert.Equal(t, map[string]any{"max_tokens": 1000, "temperature": 0.3, "seed": 2, "top_p": 0.5}, cfg)
}

func TestResolveJob_DefaultMaxTokensAndTaskTemperature(t *testing.T) {
	job := jobWith(
		map[string]any{"task": map[string]any{"config": map[string]any{"max_tokens": 512}}},
		map[string]any{"name": "a", "config": map[string]any{"temperature": 0.1}},
	)
	tasks := resolveTasks(t, job)
	assert.Equal(t, map[string]any{"max_tokens": 512, "temperature": 0.1}, tasks[0].(map[string]any)["config"])
}

func TestResolveJob_NullNestedConfigDoesNotOverride(t *testing.T) {
	job := jobWith(
		map[string]any{"task": map[string]any{"config": map[string]any{"temperature": 0.5}}},
		map[string]any{"name": "a", "config": map[string]any{"temperature": nil}},
	)
	tasks := resolveTasks(t, job)
	assert.Equal(t, map[string]any{"temperature": 0.5}, tasks[0].(map[string]any)["config"])
}

func TestResolveJob_NullTaskConfigDropsDefaultsConfig(t *testing.T) {
	job := jobWith(
		map[string]any{"config": map[string]any{"max_tokens": 1000}},
		map[string]any{"name": "a", "config": nil},
		map[string]any{"name": "b", "config": nil, "model": map[string]any{"name": "m", "config": map[string]any{"seed": 3}}},
		map[string]any{"name": "c"},
	)
	tasks := resolveTasks(t, job)

	a := tasks[0].(map[string]any)
	v, present := a["config"]
	assert.True(t, present)
	assert.Nil(t, v)

	assert.Equal(t, map[string]any{"seed": 3}, tasks[1].(map[string]any)["config"])
	assert.Equal(t, map[string]any{"max_tokens": 1000}, tasks[2].(map[string]any)["config"])
}

func TestResolveJob_TaskPrefixAndInheritedSolver(t *testing.T) {
	job := jobWith(
		map[string]any{
			"task_prefix": map[string]any{
				"inspect_evals/": map[string]any{"solver": map[string]any{"name": "generate"}, "epochs": 2},
			},
			"solver_prefix": map[string]any{
				"gen": map[string]any{"args": map[string]any{"cot": true}},
			},
		},
		map[string]any{"name": "inspect_evals/gpqa"},
		map[string]any{"name": "local/task", "solver": map[string]any{"name": "generate_plus"}},
	)

	tasks := resolveTasks(t, job)

	first := tasks[0].(map[string]any)
	assert.Equal(t, 2, first["epochs"])
	assert.Equal(t, map[string]any{"name": "generate", "args": map[string]any{"cot": true}}, first["solver"],
		"a solver inherited from task defaults is resolved against solver defaults")

	second := tasks[1].(map[string]any)
	assert.Equal(t, map[string]any{"name": "generate_plus", "args": map[string]any{"cot": true}}, second["solver"])
	_, hasEpochs := second["epochs"]
	assert.False(t, hasEpochs)
}

func TestResolveJob_ModelRoles(t *testing.T) {
	job := jobWith(
		map[string]any{"model_prefix": map[string]any{"openai/": map[string]any{"base_url": "u"}}},
		map[string]any{"name": "a", "model_roles": map[string]any{"grader": map[string]any{"name": "openai/gpt-4o"}}},
	)
	tasks := resolveTasks(t, job)
	roles := tasks[0].(map[string]any)["model_roles"].(map[string]any)
	assert.Equal(t, map[string]any{"name": "openai/gpt-4o", "base_url": "u"}, roles["grader"])
}

func TestResolveJob_Errors(t *testing.T) {
	_, err := ResolveJob(context.Background(), document.Document{"defaults": "nope"})
	var sve *flowerr.SchemaValidationError
	require.ErrorAs(t, err, &sve)

	_, err = ResolveJob(context.Background(), document.Document{"defaults": map[string]any{"model_prefix": map[string]any{"a": 1}}})
	require.ErrorAs(t, err, &sve)

	_, err = ResolveJob(context.Background(), document.Document{"tasks": []any{"raw"}})
	require.ErrorAs(t, err, &sve)
}

func TestResolveJob_DoesNotModifyInput(t *testing.T) {
	job := jobWith(
		map[string]any{"task": map[string]any{"epochs": 4}},
		map[string]any{"name": "a"},
	)
	_, err := ResolveJob(context.Background(), job)
	require.NoError(t, err)

	_, hasEpochs := job["tasks"].([]any)[0].(map[string]any)["epochs"]
	assert.False(t, hasEpochs)
	assert.NotNil(t, job["defaults"])
}
