package defaults

import (
	"context"
	"fmt"

	"github.com/vk/evalflow/internal/ctxlog"
	"github.com/vk/evalflow/internal/document"
	"github.com/vk/evalflow/internal/flowerr"
)

// namedKinds are the sub-specs of a task resolved against their own
// defaults. The defaults block stores each under the same key, and its
// prefix map under key + "_prefix".
var namedKinds = []string{"model", "solver", "agent"}

var allKinds = []string{"model", "solver", "agent", "task"}

// Block is the defaults block of a job in document form.
type Block struct {
	Config   document.Document
	Globals  map[string]document.Document            // keyed by kind: model, solver, agent, task
	Prefixes map[string]map[string]document.Document // keyed by kind
}

// ParseBlock reads the "defaults" entry of a job document.
func ParseBlock(v any) (*Block, error) {
	b := &Block{
		Globals:  map[string]document.Document{},
		Prefixes: map[string]map[string]document.Document{},
	}
	if v == nil {
		return b, nil
	}
	d, ok := v.(map[string]any)
	if !ok {
		return nil, &flowerr.SchemaValidationError{Field: "defaults", Err: fmt.Errorf("expected a mapping, got %T", v)}
	}

	if cfg, ok := d["config"].(map[string]any); ok {
		b.Config = cfg
	}
	for _, kind := range allKinds {
		if g, ok := d[kind].(map[string]any); ok {
			b.Globals[kind] = g
		}
		raw, ok := d[kind+"_prefix"].(map[string]any)
		if !ok {
			continue
		}
		prefixes := make(map[string]document.Document, len(raw))
		for prefix, val := range raw {
			if val == nil {
				continue
			}
			m, ok := val.(map[string]any)
			if !ok {
				return nil, &flowerr.SchemaValidationError{
					Field: fmt.Sprintf("defaults.%s_prefix[%q]", kind, prefix),
					Err:   fmt.Errorf("expected a mapping, got %T", val),
				}
			}
			prefixes[prefix] = m
		}
		b.Prefixes[kind] = prefixes
	}
	return b, nil
}

// ResolveNamed resolves a model, solver or agent spec against its defaults.
func (b *Block) ResolveNamed(kind string, spec document.Document) document.Document {
	return Resolve(spec, b.Globals[kind], b.Prefixes[kind])
}

// ResolveTask produces a fully concrete task. The task's own model, solver
// and agent are resolved before task-level defaults are merged; one inherited
// from the task defaults, or supplied by a named global default when the
// task never mentioned it, is resolved after the merge. The generation
// config is then layered: defaults config, task config, model config.
func (b *Block) ResolveTask(task document.Document) document.Document {
	own := document.CloneDoc(task)
	resolved := map[string]bool{}

	for _, kind := range namedKinds {
		if spec, ok := own[kind].(map[string]any); ok {
			own[kind] = b.ResolveNamed(kind, spec)
			resolved[kind] = true
		}
	}

	out := Resolve(own, b.Globals["task"], b.Prefixes["task"])

	for _, kind := range namedKinds {
		if resolved[kind] {
			continue
		}
		val, present := out[kind]
		switch spec := val.(type) {
		case map[string]any:
			out[kind] = b.ResolveNamed(kind, spec)
		case nil:
			// Unset yields to a named global default; explicit null does not.
			if !present && nameOf(b.Globals[kind]) != "" {
				out[kind] = b.ResolveNamed(kind, document.Document{})
			}
		}
	}

	if roles, ok := out["model_roles"].(map[string]any); ok {
		for role, val := range roles {
			if spec, ok := val.(map[string]any); ok {
				roles[role] = b.ResolveNamed("model", spec)
			}
		}
	}

	b.layerConfig(out)
	return out
}

// layerConfig merges the defaults config, the task config and the resolved
// model's config into the task's config, each later source overriding the
// fields already set. An explicit null task config drops the defaults layer,
// like any other top-level null; the model's own config still applies.
func (b *Block) layerConfig(task document.Document) {
	taskCfg, present := task["config"]
	var modelCfg map[string]any
	if model, ok := task["model"].(map[string]any); ok {
		modelCfg, _ = model["config"].(map[string]any)
	}

	var layers []map[string]any
	if !present || taskCfg != nil {
		layers = append(layers, b.Config)
	}
	if m, ok := taskCfg.(map[string]any); ok {
		layers = append(layers, m)
	}
	layers = append(layers, modelCfg)

	var merged map[string]any
	for _, layer := range layers {
		if layer == nil {
			continue
		}
		if merged == nil {
			merged = map[string]any{}
		}
		merged = MergeNested(merged, layer)
	}

	// An explicit null with nothing to layer stays null.
	if merged != nil {
		task["config"] = merged
	}
}

// ResolveJob applies the defaults block to every task of a job document and
// returns a new document without defaults.
func ResolveJob(ctx context.Context, job document.Document) (document.Document, error) {
	logger := ctxlog.FromContext(ctx)

	block, err := ParseBlock(job["defaults"])
	if err != nil {
		return nil, err
	}

	out := document.CloneDoc(job)
	delete(out, "defaults")

	raw, ok := out["tasks"]
	if !ok || raw == nil {
		logger.Debug("Job declares no tasks, nothing to resolve.")
		return out, nil
	}
	tasks, ok := raw.([]any)
	if !ok {
		return nil, &flowerr.SchemaValidationError{Field: "tasks", Err: fmt.Errorf("expected a list, got %T", raw)}
	}

	resolved := make([]any, 0, len(tasks))
	for i, entry := range tasks {
		task, ok := entry.(map[string]any)
		if !ok {
			return nil, &flowerr.SchemaValidationError{Field: fmt.Sprintf("tasks[%d]", i), Err: fmt.Errorf("expected a mapping, got %T", entry)}
		}
		r := block.ResolveTask(task)
		logger.Debug("Task defaults applied.", "index", i, "task", r["name"],
			"task_prefixes", MatchingPrefixes(nameOf(task), block.Prefixes["task"]))
		resolved = append(resolved, r)
	}
	out["tasks"] = resolved

	logger.Debug("Defaults resolved.", "tasks", len(resolved))
	return out, nil
}
