package integration_tests

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/evalflow/internal/integration_tests/harness"
	"github.com/vk/evalflow/internal/testutil"
)

const job = `
log_dir: logs/{options[tags][0]}
options: {tags: [nightly]}
tasks:
  - inspect_evals/gpqa
  - {name: inspect_evals/mmlu, epochs: 2}
`

// TestCLI_DisplaysHelp validates that help is printed for the bare command.
func TestCLI_DisplaysHelp(t *testing.T) {
	res := harness.RunArgs(t)
	require.NoError(t, res.Err)
	assert.Contains(t, res.Output, "Usage:")
	assert.Contains(t, res.Output, "resolve")
	assert.Contains(t, res.Output, "check")
}

// TestCLI_SetFlagsApplyInOrder checks that repeated --set flags are applied
// left to right before placeholders are substituted.
func TestCLI_SetFlagsApplyInOrder(t *testing.T) {
	res := harness.Run(t, map[string]string{"flow.yaml": job}, "resolve", "flow.yaml",
		"--set", `options.tags=["weekly"]`,
		"--set", "options.tags=extra",
		"--set", "tasks[1].epochs=5",
	)

	got := res.Job(t)
	assert.Equal(t, "logs/weekly", got["log_dir"])
	assert.Equal(t, map[string]any{"tags": []any{"weekly", "extra"}}, got["options"])
	assert.Equal(t, 5, res.Tasks(t)[1]["epochs"])
}

// TestCLI_JSONOutput checks the --format json rendering.
func TestCLI_JSONOutput(t *testing.T) {
	res := harness.Run(t, map[string]string{"flow.yaml": job}, "resolve", "flow.yaml", "--format", "json")
	require.NoError(t, res.Err)

	var got struct {
		LogDir string           `json:"log_dir"`
		Tasks  []map[string]any `json:"tasks"`
	}
	require.NoError(t, json.Unmarshal([]byte(res.Output), &got))
	assert.Equal(t, "logs/nightly", got.LogDir)
	require.Len(t, got.Tasks, 2)
	assert.Equal(t, "inspect_evals/mmlu", got.Tasks[1]["name"])
}

// TestCLI_ConfigFileFromEnvironment checks that the job path may come from
// EVALFLOW_CONFIG_FILE.
func TestCLI_ConfigFileFromEnvironment(t *testing.T) {
	root := testutil.WriteTree(t, map[string]string{"flow.yaml": job})
	t.Setenv("EVALFLOW_CONFIG_FILE", filepath.Join(root, "flow.yaml"))
	t.Setenv("EVALFLOW_INIT_DIR", "")

	res := harness.RunArgs(t, "resolve")
	require.NoError(t, res.Err)
	assert.Len(t, res.Tasks(t), 2)
}

// TestCLI_SpecDir checks that --spec-dir writes a re-readable spec file.
func TestCLI_SpecDir(t *testing.T) {
	specDir := t.TempDir()
	res := harness.Run(t, map[string]string{"flow.yaml": job}, "resolve", "flow.yaml", "--spec-dir", specDir)
	require.NoError(t, res.Err)

	entries, err := os.ReadDir(specDir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Regexp(t, `^flow-[0-9a-f-]{36}\.yaml$`, entries[0].Name())
}

// TestCLI_CheckDirectory checks that check walks a directory of jobs.
func TestCLI_CheckDirectory(t *testing.T) {
	res := harness.Run(t, map[string]string{
		"evals/a.yaml":     job,
		"evals/b.json":     `{"tasks": ["x", "y", "z"]}`,
		"evals/_flow.yaml": "options: {limit: 1}\n",
	}, "check", "evals")
	require.NoError(t, res.Err)

	assert.Contains(t, res.Output, filepath.Join(res.Root, "evals", "a.yaml")+": ok (2 tasks)")
	assert.Contains(t, res.Output, filepath.Join(res.Root, "evals", "b.json")+": ok (3 tasks)")
	assert.NotContains(t, res.Output, "_flow.yaml")
}
