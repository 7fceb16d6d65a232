// Package harness runs the evalflow binary's code path end to end against a
// temporary project tree.
package harness

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vk/evalflow/internal/app"
	"github.com/vk/evalflow/internal/cli"
	"github.com/vk/evalflow/internal/testutil"
	"gopkg.in/yaml.v3"
)

// Result holds the outcome of one run.
type Result struct {
	Root      string
	Output    string
	LogOutput string
	Err       error
}

// Run writes files into a fresh project, then runs command on the job at
// the slash-separated path job with the given extra arguments.
func Run(t *testing.T, files map[string]string, command, job string, args ...string) *Result {
	t.Helper()
	return RunIn(t, testutil.WriteTree(t, files), command, job, args...)
}

// RunIn is Run for a project that already exists at root.
func RunIn(t *testing.T, root, command, job string, args ...string) *Result {
	t.Helper()
	t.Setenv("EVALFLOW_CONFIG_FILE", "")
	t.Setenv("EVALFLOW_INIT_DIR", "")

	argv := append([]string{command, filepath.Join(root, filepath.FromSlash(job)), "--log-level", "debug"}, args...)
	res := RunArgs(t, argv...)
	res.Root = root
	return res
}

// RunArgs runs the CLI with raw arguments.
func RunArgs(t *testing.T, args ...string) *Result {
	t.Helper()

	var out, logs bytes.Buffer
	cfg, shouldExit, err := cli.Parse(args, &out)
	if err != nil || shouldExit {
		return &Result{Output: out.String(), Err: err}
	}

	err = app.NewApp(&out, &logs, cfg).Run(context.Background())
	if testutil.ShowLogs() {
		t.Logf("--- logs ---\n%s", logs.String())
	}
	return &Result{Output: out.String(), LogOutput: logs.String(), Err: err}
}

// Job decodes the YAML printed by a successful resolve.
func (r *Result) Job(t *testing.T) map[string]any {
	t.Helper()
	require.NoError(t, r.Err, r.LogOutput)

	var job map[string]any
	require.NoError(t, yaml.Unmarshal([]byte(r.Output), &job))
	return job
}

// Tasks returns the resolved task list.
func (r *Result) Tasks(t *testing.T) []map[string]any {
	t.Helper()
	raw, ok := r.Job(t)["tasks"].([]any)
	require.True(t, ok, "resolved job has no task list:\n%s", r.Output)

	tasks := make([]map[string]any, 0, len(raw))
	for _, entry := range raw {
		task, ok := entry.(map[string]any)
		require.True(t, ok, "task entry is %T", entry)
		tasks = append(tasks, task)
	}
	return tasks
}
