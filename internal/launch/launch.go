// Package launch defines the collaborators a resolved job is handed to.
//
// Installing a runtime environment, running the evaluation engine and
// indexing its logs happen outside this module. They are specified here only
// by what they need from a resolved job and what they return.
package launch

import (
	"context"

	"github.com/vk/evalflow/internal/schema"
)

// Environment describes an installed runtime for a job.
type Environment struct {
	// Dir is the root of the environment.
	Dir string
	// Python is the interpreter to launch the evaluation with.
	Python string
}

// Installer prepares the runtime environment a job needs: its
// python_version and dependencies.
type Installer interface {
	Install(ctx context.Context, job *schema.Job) (*Environment, error)
}

// RunResult reports a finished evaluation run.
type RunResult struct {
	ExitCode int
	// LogDir is where the run wrote its logs.
	LogDir string
}

// Runner launches the evaluation of a job whose resolved spec was written to
// specPath.
type Runner interface {
	Run(ctx context.Context, env *Environment, specPath string) (*RunResult, error)
}

// LogStore records finished runs and selects the best log per task.
type LogStore interface {
	Record(ctx context.Context, job *schema.Job, result *RunResult) error
	BestLogs(ctx context.Context, logDir string) (map[string]string, error)
}

// Launcher runs a resolved job end to end.
type Launcher struct {
	Installer Installer
	Runner    Runner
	Logs      LogStore
	Specs     *SpecWriter
}

// Launch writes the resolved spec, installs the environment, runs the
// evaluation and records the result.
func (l *Launcher) Launch(ctx context.Context, job *schema.Job) (*RunResult, error) {
	specPath, err := l.Specs.Write(ctx, job)
	if err != nil {
		return nil, err
	}
	env, err := l.Installer.Install(ctx, job)
	if err != nil {
		return nil, err
	}
	result, err := l.Runner.Run(ctx, env, specPath)
	if err != nil {
		return nil, err
	}
	if l.Logs != nil {
		if err := l.Logs.Record(ctx, job, result); err != nil {
			return result, err
		}
	}
	return result, nil
}
