package app

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/evalflow/internal/flowerr"
	"github.com/vk/evalflow/internal/launch"
	"github.com/vk/evalflow/internal/registry"
	"github.com/vk/evalflow/internal/testutil"
	"gopkg.in/yaml.v3"
)

func runApp(t *testing.T, cfg Config) (string, string, error) {
	t.Helper()
	t.Setenv("EVALFLOW_CONFIG_FILE", "")
	t.Setenv("EVALFLOW_INIT_DIR", "")

	if cfg.LogLevel == "" {
		cfg.LogLevel = "debug"
	}
	c, err := NewConfig(cfg)
	require.NoError(t, err)

	var out, logs bytes.Buffer
	err = NewApp(&out, &logs, c).Run(context.Background())
	return out.String(), logs.String(), err
}

const simpleJob = `
log_dir: logs
defaults:
  task: {epochs: 2}
tasks:
  - first
  - {name: second, epochs: 5}
`

func TestNewConfig(t *testing.T) {
	testCases := []struct {
		name    string
		cfg     Config
		wantErr string
	}{
		{name: "defaults format", cfg: Config{Command: CommandResolve, ConfigPath: "flow.yaml"}},
		{name: "json format", cfg: Config{Command: CommandCheck, ConfigPath: "flow.yaml", Format: "json"}},
		{name: "missing path", cfg: Config{Command: CommandResolve}, wantErr: "a config file is required"},
		{name: "unknown command", cfg: Config{Command: "launch", ConfigPath: "flow.yaml"}, wantErr: `unknown command "launch"`},
		{name: "bad format", cfg: Config{Command: CommandResolve, ConfigPath: "flow.yaml", Format: "toml"}, wantErr: "invalid format"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := NewConfig(tc.cfg)
			if tc.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tc.wantErr)
				return
			}
			require.NoError(t, err)
			assert.NotEmpty(t, got.Format)
		})
	}
}

func TestApp_ResolveYAML(t *testing.T) {
	root := testutil.WriteTree(t, map[string]string{"flow.yaml": simpleJob})

	out, logs, err := runApp(t, Config{
		Command:    CommandResolve,
		ConfigPath: filepath.Join(root, "flow.yaml"),
		Overrides:  []string{"options.limit=3"},
	})
	require.NoError(t, err, logs)

	var got map[string]any
	require.NoError(t, yaml.Unmarshal([]byte(out), &got))
	assert.Equal(t, "logs", got["log_dir"])
	assert.Equal(t, map[string]any{"limit": 3}, got["options"])
	assert.NotContains(t, got, "defaults")

	tasks, ok := got["tasks"].([]any)
	require.True(t, ok)
	require.Len(t, tasks, 2)
	assert.Equal(t, map[string]any{"name": "first", "epochs": 2}, tasks[0])
	assert.Equal(t, map[string]any{"name": "second", "epochs": 5}, tasks[1])
}

func TestApp_ResolveJSON(t *testing.T) {
	root := testutil.WriteTree(t, map[string]string{"flow.yaml": simpleJob})

	out, _, err := runApp(t, Config{
		Command:    CommandResolve,
		ConfigPath: filepath.Join(root, "flow.yaml"),
		Format:     "json",
	})
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	tasks, ok := got["tasks"].([]any)
	require.True(t, ok)
	assert.Len(t, tasks, 2)
}

func TestApp_ResolveWritesSpec(t *testing.T) {
	root := testutil.WriteTree(t, map[string]string{"flow.yaml": simpleJob})
	specDir := filepath.Join(root, "specs")

	_, logs, err := runApp(t, Config{
		Command:    CommandResolve,
		ConfigPath: filepath.Join(root, "flow.yaml"),
		SpecDir:    specDir,
	})
	require.NoError(t, err)
	assert.Contains(t, logs, "Resolved spec written.")

	entries, err := os.ReadDir(specDir)
	require.NoError(t, err)
	require.Len(t, entries, 1)

	job, err := launch.ReadSpec(context.Background(), filepath.Join(specDir, entries[0].Name()))
	require.NoError(t, err)
	tasks, _ := job.Tasks.Get()
	assert.Len(t, tasks, 2)
}

func TestApp_ResolveMissingFile(t *testing.T) {
	root := testutil.WriteTree(t, nil)

	_, _, err := runApp(t, Config{
		Command:    CommandResolve,
		ConfigPath: filepath.Join(root, "missing.yaml"),
	})
	var nf *flowerr.ConfigNotFoundError
	require.ErrorAs(t, err, &nf)
}

func TestApp_CheckDirectory(t *testing.T) {
	root := testutil.WriteTree(t, map[string]string{
		"_flow.yaml":         "defaults:\n  task: {epochs: 1}\n",
		"a/flow.yaml":        simpleJob,
		"b/flow.json":        `{"tasks": ["x"]}`,
		"c/notes.txt":        "not a job",
		"d/nested/_flow.yml": "options: {limit: 1}\n",
	})

	out, _, err := runApp(t, Config{Command: CommandCheck, ConfigPath: root, AutoInclude: true})
	require.NoError(t, err)

	assert.Contains(t, out, filepath.Join(root, "a", "flow.yaml")+": ok (2 tasks)")
	assert.Contains(t, out, filepath.Join(root, "b", "flow.json")+": ok (1 tasks)")
	assert.NotContains(t, out, "_flow")
	assert.NotContains(t, out, "notes.txt")
}

func TestApp_CheckReportsFailures(t *testing.T) {
	root := testutil.WriteTree(t, map[string]string{
		"good.yaml": simpleJob,
		"bad.yaml":  "tasks: []\n",
	})

	out, _, err := runApp(t, Config{Command: CommandCheck, ConfigPath: root})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 of 2 job files failed to resolve")
	assert.Contains(t, out, filepath.Join(root, "good.yaml")+": ok (2 tasks)")
	assert.Contains(t, out, filepath.Join(root, "bad.yaml")+": ")
}

func TestApp_CheckSingleFileReturnsError(t *testing.T) {
	root := testutil.WriteTree(t, map[string]string{"bad.yaml": "tasks: []\n"})

	_, _, err := runApp(t, Config{Command: CommandCheck, ConfigPath: filepath.Join(root, "bad.yaml")})
	require.ErrorIs(t, err, flowerr.ErrNoTasks)
}

func TestApp_UsesCoreModules(t *testing.T) {
	c, err := NewConfig(Config{Command: CommandResolve, ConfigPath: "flow.yaml"})
	require.NoError(t, err)
	a := NewApp(&bytes.Buffer{}, &bytes.Buffer{}, c)
	assert.Contains(t, a.Registry().HookNames(), "locked_fields")
}

type evalModule struct{}

func (evalModule) Register(r *registry.Registry) {
	r.RegisterTask("gpqa", func(context.Context, map[string]any) (any, error) { return nil, nil })
}

func TestApp_EmbedderModulesValidateTaskNames(t *testing.T) {
	t.Setenv("EVALFLOW_CONFIG_FILE", "")
	t.Setenv("EVALFLOW_INIT_DIR", "")
	root := testutil.WriteTree(t, map[string]string{
		"good.yaml": "tasks: [gpqa]\n",
		"bad.yaml":  "tasks: [gpqa, mmlu]\n",
	})

	run := func(file string) error {
		c, err := NewConfig(Config{Command: CommandResolve, ConfigPath: filepath.Join(root, file)})
		require.NoError(t, err)
		a := NewApp(&bytes.Buffer{}, &bytes.Buffer{}, c, registry.Builtins{}, evalModule{})
		assert.Contains(t, a.Registry().HookNames(), "locked_fields")
		return a.Run(context.Background())
	}

	require.NoError(t, run("good.yaml"))
	err := run("bad.yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown task 'mmlu'")
}
