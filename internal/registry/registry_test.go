package registry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/evalflow/internal/document"
	"github.com/vk/evalflow/internal/opt"
	"github.com/vk/evalflow/internal/schema"
)

type echoModule struct{}

func (echoModule) Register(r *Registry) {
	echo := func(_ context.Context, args map[string]any) (any, error) { return args, nil }
	r.RegisterTask("inspect_evals/gpqa", echo)
	r.RegisterSolver("chain_of_thought", echo)
}

func TestRegistry_InstantiateAndNames(t *testing.T) {
	r := NewWithModules(echoModule{}, Builtins{})
	ctx := context.Background()

	got, err := r.Instantiate(ctx, KindTask, "inspect_evals/gpqa", map[string]any{"k": 1})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"k": 1}, got)

	_, err = r.Instantiate(ctx, KindAgent, "react", nil)
	assert.ErrorContains(t, err, "no agent registered with name 'react'")

	assert.Equal(t, []string{"inspect_evals/gpqa"}, r.Names(KindTask))
	assert.Equal(t, []string{HookAllowedPrefixes, HookLockedFields, HookRequireFields}, r.HookNames())
}

func TestRegistry_DuplicateRegistrationPanics(t *testing.T) {
	r := New()
	r.RegisterHook("h", func(context.Context, HookInput) error { return nil })
	assert.Panics(t, func() {
		r.RegisterHook("h", func(context.Context, HookInput) error { return nil })
	})
	assert.Panics(t, func() { NewWithModules(echoModule{}, echoModule{}) })
}

func TestRegistry_ValidateJob(t *testing.T) {
	r := NewWithModules(echoModule{})
	ctx := context.Background()

	ok := &schema.Job{Tasks: opt.Of([]schema.TaskSpec{
		{Name: "inspect_evals/gpqa", Solver: opt.Of(schema.SolverSpec{Name: "chain_of_thought"})},
	})}
	require.NoError(t, r.ValidateJob(ctx, ok))

	bad := &schema.Job{Tasks: opt.Of([]schema.TaskSpec{
		{Name: "unknown_task", Solver: opt.Of(schema.SolverSpec{Name: "nope"})},
		{Name: "inspect_evals/gpqa", Agent: opt.Of(schema.AgentSpec{Name: "any_agent"})},
	})}
	err := r.ValidateJob(ctx, bad)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "tasks[0]: unknown task 'unknown_task'")
	assert.Contains(t, err.Error(), "tasks[0].solver: unknown solver 'nope'")
	// No agents registered, so agent names are not checked.
	assert.NotContains(t, err.Error(), "any_agent")
}

func TestBuiltinHooks(t *testing.T) {
	job := document.Document{
		"log_dir": "logs/override",
		"options": map[string]any{"limit": 5},
		"tasks": []any{
			map[string]any{"name": "inspect_evals/a"},
			map[string]any{"name": "local/b"},
		},
	}
	declared := document.Document{
		"log_dir": "logs/locked",
		"options": map[string]any{"limit": 5},
	}

	testCases := []struct {
		name    string
		hook    Hook
		args    map[string]any
		wantErr string
	}{
		{name: "locked unchanged", hook: lockedFields, args: map[string]any{"fields": []any{"options.limit"}}},
		{name: "locked changed", hook: lockedFields, args: map[string]any{"fields": []any{"log_dir"}}, wantErr: `field "log_dir" is locked by _flow.yaml`},
		{name: "locked missing in declaring file", hook: lockedFields, args: map[string]any{"fields": "python_version"}, wantErr: "is not set in _flow.yaml"},
		{name: "required present", hook: requireFields, args: map[string]any{"fields": []any{"log_dir", "options.limit"}}},
		{name: "required missing", hook: requireFields, args: map[string]any{"fields": []any{"python_version", "options.display"}}, wantErr: "python_version, options.display"},
		{name: "prefixes allowed", hook: allowedPrefixes, args: map[string]any{"prefixes": []any{"inspect_evals/", "local/"}}},
		{name: "prefixes rejected", hook: allowedPrefixes, args: map[string]any{"prefixes": []any{"inspect_evals/"}}, wantErr: `task "local/b" is not allowed`},
		{name: "missing argument", hook: allowedPrefixes, args: nil, wantErr: `hook argument "prefixes" is required`},
		{name: "bad argument", hook: requireFields, args: map[string]any{"fields": []any{1}}, wantErr: "must be a list of strings"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.hook(context.Background(), HookInput{
				Job:        job,
				Files:      []string{"_flow.yaml", "flow.yaml"},
				DeclaredIn: "_flow.yaml",
				Declared:   declared,
				Args:       tc.args,
			})
			if tc.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantErr)
		})
	}
}
