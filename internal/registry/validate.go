package registry

import (
	"context"
	"errors"
	"fmt"

	"github.com/vk/evalflow/internal/ctxlog"
	"github.com/vk/evalflow/internal/schema"
)

// ValidateJob checks that every task, solver and agent named by a resolved
// job is registered. A kind with an empty table is not checked: its
// components are provided by the external evaluation engine.
func (r *Registry) ValidateJob(ctx context.Context, job *schema.Job) error {
	logger := ctxlog.FromContext(ctx)
	var errs []error

	check := func(kind, name, field string) {
		table := r.factories[kind]
		if len(table) == 0 || name == "" {
			return
		}
		if _, ok := table[name]; !ok {
			errs = append(errs, fmt.Errorf("%s: unknown %s '%s'", field, kind, name))
		}
	}

	tasks, _ := job.Tasks.Get()
	for i, task := range tasks {
		field := fmt.Sprintf("tasks[%d]", i)
		check(KindTask, task.Name, field)
		if s, ok := task.Solver.Get(); ok {
			check(KindSolver, s.Name, field+".solver")
		}
		if a, ok := task.Agent.Get(); ok {
			check(KindAgent, a.Name, field+".agent")
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("registry validation failed: %w", errors.Join(errs...))
	}
	logger.Debug("Registry validation passed.", "tasks", len(tasks))
	return nil
}
