package schema

import (
	"context"
	"fmt"

	"github.com/vk/evalflow/internal/ctxlog"
	"github.com/vk/evalflow/internal/document"
	"github.com/vk/evalflow/internal/flowerr"
	"github.com/vk/evalflow/internal/matrix"
)

// Named fields of a task that accept a bare string as shorthand for
// {name: <string>}.
var namedTaskFields = []string{"model", "solver", "agent"}

// NormalizeJob rewrites a freshly loaded job document into canonical form:
// matrix entries in tasks are expanded and spliced, and string shorthands
// for tasks, models, solvers, agents and hooks become mappings. The input is
// not modified.
func NormalizeJob(ctx context.Context, doc document.Document, file string) (document.Document, error) {
	out := document.CloneDoc(doc)

	if raw, ok := out["tasks"]; ok && raw != nil {
		tasks, err := normalizeTaskList(ctx, raw)
		if err != nil {
			return nil, &flowerr.SchemaValidationError{File: file, Field: "tasks", Err: err}
		}
		out["tasks"] = tasks
	}

	if d, ok := out["defaults"].(map[string]any); ok {
		if err := normalizeDefaults(d); err != nil {
			return nil, &flowerr.SchemaValidationError{File: file, Field: "defaults", Err: err}
		}
	}

	if hooks, ok := out["after_load"].([]any); ok {
		for i, h := range hooks {
			if name, ok := h.(string); ok {
				hooks[i] = map[string]any{"name": name}
			}
		}
	}

	return out, nil
}

func normalizeTaskList(ctx context.Context, raw any) ([]any, error) {
	logger := ctxlog.FromContext(ctx)

	entries, ok := raw.([]any)
	if !ok {
		// A single task or sweep is accepted in place of a list.
		entries = []any{raw}
	}

	out := make([]any, 0, len(entries))
	for i, entry := range entries {
		if inner, ok := matrix.Unwrap(entry); ok {
			frags, err := matrix.ExpandDocument(ctx, inner)
			if err != nil {
				return nil, fmt.Errorf("[%d]: %w", i, err)
			}
			if len(frags) == 0 {
				logger.Warn("Task matrix produced no tasks.", "index", i)
			}
			for _, f := range frags {
				task, err := NormalizeTask(f)
				if err != nil {
					return nil, fmt.Errorf("[%d]: %w", i, err)
				}
				out = append(out, task)
			}
			continue
		}
		task, err := NormalizeTask(entry)
		if err != nil {
			return nil, fmt.Errorf("[%d]: %w", i, err)
		}
		out = append(out, task)
	}
	return out, nil
}

// NormalizeTask converts a task entry (string or mapping) into a mapping with
// its named sub-specs expanded.
func NormalizeTask(v any) (document.Document, error) {
	switch t := v.(type) {
	case string:
		return document.Document{"name": t}, nil
	case map[string]any:
		out := document.CloneDoc(t)
		for _, key := range namedTaskFields {
			if val, ok := out[key]; ok {
				n, err := normalizeNamed(val)
				if err != nil {
					return nil, fmt.Errorf("%s: %w", key, err)
				}
				out[key] = n
			}
		}
		if roles, ok := out["model_roles"].(map[string]any); ok {
			for role, val := range roles {
				n, err := normalizeNamed(val)
				if err != nil {
					return nil, fmt.Errorf("model_roles.%s: %w", role, err)
				}
				roles[role] = n
			}
		}
		return out, nil
	default:
		return nil, fmt.Errorf("task entry must be a string or mapping, got %T", v)
	}
}

// normalizeNamed expands a string into {name: s}; nil and mappings pass
// through.
func normalizeNamed(v any) (any, error) {
	switch t := v.(type) {
	case nil:
		return nil, nil
	case string:
		return map[string]any{"name": t}, nil
	case map[string]any:
		return t, nil
	default:
		return nil, fmt.Errorf("expected a name or mapping, got %T", v)
	}
}

func normalizeDefaults(d document.Document) error {
	for _, key := range namedTaskFields {
		if val, ok := d[key]; ok {
			n, err := normalizeNamed(val)
			if err != nil {
				return fmt.Errorf("%s: %w", key, err)
			}
			d[key] = n
		}
		prefixKey := key + "_prefix"
		if m, ok := d[prefixKey].(map[string]any); ok {
			for prefix, val := range m {
				n, err := normalizeNamed(val)
				if err != nil {
					return fmt.Errorf("%s[%q]: %w", prefixKey, prefix, err)
				}
				m[prefix] = n
			}
		}
	}

	if val, ok := d["task"]; ok && val != nil {
		task, err := NormalizeTask(val)
		if err != nil {
			return fmt.Errorf("task: %w", err)
		}
		d["task"] = task
	}
	if m, ok := d["task_prefix"].(map[string]any); ok {
		for prefix, val := range m {
			if val == nil {
				continue
			}
			task, err := NormalizeTask(val)
			if err != nil {
				return fmt.Errorf("task_prefix[%q]: %w", prefix, err)
			}
			m[prefix] = task
		}
	}
	return nil
}
