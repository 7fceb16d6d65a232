package schema

import (
	"errors"
	"fmt"

	"github.com/vk/evalflow/internal/flowerr"
)

func invalid(field, format string, args ...any) error {
	return &flowerr.SchemaValidationError{Field: field, Err: fmt.Errorf(format, args...)}
}

// Validate checks constraints the JSON decoder cannot express. Names of
// models, solvers and agents may be empty here because defaults are allowed
// to omit them; ValidateResolved enforces them.
func (j *Job) Validate() error {
	var errs []error

	if tasks, ok := j.Tasks.Get(); ok {
		for i, task := range tasks {
			field := fmt.Sprintf("tasks[%d]", i)
			if task.Name == "" {
				errs = append(errs, invalid(field+".name", "task name is required"))
			}
			errs = append(errs, task.validate(field)...)
		}
	}

	if cfg, ok := j.Config.Get(); ok {
		errs = append(errs, cfg.validate("config")...)
	}

	if d, ok := j.Defaults.Get(); ok {
		errs = append(errs, d.validate("defaults")...)
	}

	if hooks, ok := j.AfterLoad.Get(); ok {
		for i, h := range hooks {
			if h.Name == "" {
				errs = append(errs, invalid(fmt.Sprintf("after_load[%d].name", i), "hook name is required"))
			}
		}
	}

	if opts, ok := j.Options.Get(); ok {
		if v, ok := opts.FailOnError.Get(); ok && v < 0 {
			errs = append(errs, invalid("options.fail_on_error", "must not be negative, got %v", v))
		}
		if v, ok := opts.Limit.Get(); ok && v < 0 {
			errs = append(errs, invalid("options.limit", "must not be negative, got %d", v))
		}
	}

	return errors.Join(errs...)
}

func (t TaskSpec) validate(field string) []error {
	var errs []error
	if v, ok := t.Epochs.Get(); ok && v < 1 {
		errs = append(errs, invalid(field+".epochs", "must be at least 1, got %d", v))
	}
	if cfg, ok := t.Config.Get(); ok {
		errs = append(errs, cfg.validate(field+".config")...)
	}
	if m, ok := t.Model.Get(); ok {
		if cfg, ok := m.Config.Get(); ok {
			errs = append(errs, cfg.validate(field+".model.config")...)
		}
	}
	return errs
}

func (d DefaultsBlock) validate(field string) []error {
	var errs []error
	if cfg, ok := d.Config.Get(); ok {
		errs = append(errs, cfg.validate(field+".config")...)
	}
	if t, ok := d.Task.Get(); ok {
		errs = append(errs, t.validate(field+".task")...)
	}
	checkKeys := func(name string, keys []string) {
		for _, k := range keys {
			if k == "" {
				errs = append(errs, invalid(field+"."+name, "prefix keys must not be empty"))
			}
		}
	}
	if m, ok := d.ModelPrefix.Get(); ok {
		checkKeys("model_prefix", keysOf(m))
	}
	if m, ok := d.SolverPrefix.Get(); ok {
		checkKeys("solver_prefix", keysOf(m))
	}
	if m, ok := d.AgentPrefix.Get(); ok {
		checkKeys("agent_prefix", keysOf(m))
	}
	if m, ok := d.TaskPrefix.Get(); ok {
		checkKeys("task_prefix", keysOf(m))
		for k, t := range m {
			errs = append(errs, t.validate(fmt.Sprintf("%s.task_prefix[%q]", field, k))...)
		}
	}
	return errs
}

func (c GenerateConfig) validate(field string) []error {
	var errs []error
	if v, ok := c.MaxTokens.Get(); ok && v < 1 {
		errs = append(errs, invalid(field+".max_tokens", "must be at least 1, got %d", v))
	}
	if v, ok := c.Temperature.Get(); ok && v < 0 {
		errs = append(errs, invalid(field+".temperature", "must not be negative, got %v", v))
	}
	if v, ok := c.TopP.Get(); ok && (v < 0 || v > 1) {
		errs = append(errs, invalid(field+".top_p", "must be within [0, 1], got %v", v))
	}
	if v, ok := c.MaxConnections.Get(); ok && v < 1 {
		errs = append(errs, invalid(field+".max_connections", "must be at least 1, got %d", v))
	}
	return errs
}

// ValidateResolved checks the invariants of a fully resolved job.
func (j *Job) ValidateResolved() error {
	if j.Defaults.IsSet() {
		return invalid("defaults", "resolved job still carries defaults")
	}
	if j.Includes.IsSet() {
		return invalid("includes", "resolved job still carries includes")
	}
	tasks, _ := j.Tasks.Get()
	if len(tasks) == 0 {
		return flowerr.ErrNoTasks
	}
	var errs []error
	for i, t := range tasks {
		field := fmt.Sprintf("tasks[%d]", i)
		if m, ok := t.Model.Get(); ok && m.Name == "" {
			errs = append(errs, invalid(field+".model.name", "model name is required"))
		}
		if s, ok := t.Solver.Get(); ok && s.Name == "" {
			errs = append(errs, invalid(field+".solver.name", "solver name is required"))
		}
		if a, ok := t.Agent.Get(); ok && a.Name == "" {
			errs = append(errs, invalid(field+".agent.name", "agent name is required"))
		}
	}
	return errors.Join(errs...)
}

func keysOf[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	return keys
}
