package include

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/vk/evalflow/internal/config"
	"github.com/vk/evalflow/internal/ctxlog"
	"github.com/vk/evalflow/internal/document"
	"github.com/vk/evalflow/internal/flowerr"
	"github.com/vk/evalflow/internal/fsutil"
	"github.com/vk/evalflow/internal/registry"
	"github.com/vk/evalflow/internal/schema"
)

// AutoIncludeNames are the ancestor default files picked up automatically,
// in order of preference within one directory.
var AutoIncludeNames = []string{"_flow.yaml", "_flow.yml", "_flow.json", "_flow.hcl"}

// Options configures an Expander.
type Options struct {
	// AutoInclude enables ancestor default-file discovery for the root job.
	AutoInclude bool
	// StopDir bounds the ancestor walk; empty means the project or
	// filesystem root.
	StopDir string
	// BaseDir is the fallback directory for relative include paths.
	BaseDir string
}

// Expander merges a job with everything it includes.
type Expander struct {
	loader   config.Loader
	registry *registry.Registry
	opts     Options
}

// NewExpander creates an Expander. reg may be nil when no job declares
// post-load hooks.
func NewExpander(loader config.Loader, reg *registry.Registry, opts Options) *Expander {
	return &Expander{loader: loader, registry: reg, opts: opts}
}

// Expand loads the job at path and returns it with all includes merged and
// post-load hooks run.
func (e *Expander) Expand(ctx context.Context, path string) (document.Document, *LoadState, error) {
	state := NewLoadState()
	abs := canonical(path)

	doc, err := e.loadFile(ctx, abs, "", state, true)
	if err != nil {
		return nil, nil, err
	}
	if err := e.runHooks(ctx, doc, state); err != nil {
		return nil, nil, err
	}
	return doc, state, nil
}

// ExpandDocument is Expand for a job that is already in memory. file names
// the job for error messages and cycle detection and may be empty; relative
// includes then resolve against baseDir.
func (e *Expander) ExpandDocument(ctx context.Context, doc document.Document, file, baseDir string) (document.Document, *LoadState, error) {
	state := NewLoadState()

	norm, err := schema.NormalizeJob(ctx, doc, file)
	if err != nil {
		return nil, nil, err
	}

	dir := baseDir
	if file != "" {
		file = canonical(file)
		dir = filepath.Dir(file)
		state.push(file)
	}
	out, err := e.expandDoc(ctx, norm, file, dir, state, true)
	if err != nil {
		return nil, nil, err
	}
	if file != "" {
		state.pop()
		state.finish(file)
	}

	if err := e.runHooks(ctx, out, state); err != nil {
		return nil, nil, err
	}
	return out, state, nil
}

// loadFile loads, normalizes and expands one file. It returns a nil
// document when the file was already merged during this expansion.
func (e *Expander) loadFile(ctx context.Context, path, from string, state *LoadState, root bool) (document.Document, error) {
	logger := ctxlog.FromContext(ctx)

	if i := state.indexOf(path); i >= 0 {
		chain := append(append([]string(nil), state.visiting[i:]...), path)
		return nil, &flowerr.CycleError{Kind: "include", Chain: chain}
	}
	if state.done[path] {
		logger.Warn("Skipping duplicate include.", "path", path, "from", from)
		return nil, nil
	}

	state.push(path)
	raw, err := e.loader.Load(ctx, path)
	if err != nil {
		var nf *flowerr.ConfigNotFoundError
		if from != "" && errors.As(err, &nf) && nf.From == "" {
			nf.From = from
		}
		return nil, err
	}
	doc, err := schema.NormalizeJob(ctx, raw, path)
	if err != nil {
		return nil, err
	}

	out, err := e.expandDoc(ctx, doc, path, filepath.Dir(path), state, root)
	if err != nil {
		return nil, err
	}
	state.pop()
	state.finish(path)
	logger.Debug("Config file loaded.", "path", path, "depth", len(state.visiting))
	return out, nil
}

// expandDoc merges the includes of doc (auto-included ancestors first for the
// root job) and then doc itself.
func (e *Expander) expandDoc(ctx context.Context, doc document.Document, file, dir string, state *LoadState, root bool) (document.Document, error) {
	logger := ctxlog.FromContext(ctx)

	absolutizePaths(doc, dir)

	hooks, err := takeHooks(doc, file)
	if err != nil {
		return nil, err
	}
	includes, err := takeIncludes(doc, file)
	if err != nil {
		return nil, err
	}

	merged := document.Document{}
	apply := func(path, from string) error {
		sub, err := e.loadFile(ctx, path, from, state, false)
		if err != nil {
			return err
		}
		if sub != nil {
			merged = MergeJobs(merged, sub)
		}
		return nil
	}

	if root && e.opts.AutoInclude && dir != "" {
		ancestors, err := fsutil.FindAncestorFiles(dir, e.opts.StopDir, AutoIncludeNames)
		if err != nil {
			return nil, err
		}
		for _, a := range ancestors {
			a = canonical(a)
			if a == file {
				continue
			}
			logger.Debug("Auto-including ancestor defaults.", "path", a, "job", file)
			if err := apply(a, file); err != nil {
				return nil, err
			}
		}
	}

	for _, inc := range includes {
		path, err := e.resolveInclude(inc, dir, file)
		if err != nil {
			return nil, err
		}
		logger.Debug("Including file.", "path", path, "from", file)
		if err := apply(path, file); err != nil {
			return nil, err
		}
	}

	declared := document.CloneDoc(doc)
	for _, h := range hooks {
		h.Declared = declared
		state.Hooks = append(state.Hooks, h)
	}

	return MergeJobs(merged, doc), nil
}

// resolveInclude resolves an include entry against the including file's
// directory, falling back to the configured base directory.
func (e *Expander) resolveInclude(inc, dir, from string) (string, error) {
	if filepath.IsAbs(inc) {
		return canonical(inc), nil
	}

	var candidates []string
	if dir != "" {
		candidates = append(candidates, filepath.Join(dir, inc))
	}
	if e.opts.BaseDir != "" {
		candidates = append(candidates, filepath.Join(e.opts.BaseDir, inc))
	}
	if len(candidates) == 0 {
		p, err := fsutil.ResolvePath(inc, "")
		if err != nil {
			return "", err
		}
		candidates = append(candidates, p)
	}

	for _, c := range candidates {
		if fsutil.Exists(c) {
			return canonical(c), nil
		}
	}
	return "", &flowerr.ConfigNotFoundError{Path: canonical(candidates[0]), From: from}
}

func (e *Expander) runHooks(ctx context.Context, job document.Document, state *LoadState) error {
	logger := ctxlog.FromContext(ctx)

	for _, h := range state.Hooks {
		var hook registry.Hook
		ok := false
		if e.registry != nil {
			hook, ok = e.registry.Hook(h.Name)
		}
		if !ok {
			var known []string
			if e.registry != nil {
				known = e.registry.HookNames()
			}
			return &flowerr.SchemaValidationError{
				File:  h.File,
				Field: "after_load",
				Err:   fmt.Errorf("unknown hook %q (registered: %s)", h.Name, strings.Join(known, ", ")),
			}
		}

		logger.Debug("Running post-load hook.", "hook", h.Name, "declared_in", h.File)
		err := hook(ctx, registry.HookInput{
			Job:        job,
			Files:      append([]string(nil), state.Files...),
			DeclaredIn: h.File,
			Declared:   h.Declared,
			Args:       h.Args,
		})
		if err != nil {
			return &flowerr.PostLoadHookError{Hook: h.Name, File: h.File, Err: err}
		}
	}
	return nil
}

func takeIncludes(doc document.Document, file string) ([]string, error) {
	raw, ok := doc["includes"]
	delete(doc, "includes")
	if !ok || raw == nil {
		return nil, nil
	}
	if s, ok := raw.(string); ok {
		return []string{s}, nil
	}
	list, ok := document.AsList(raw)
	if !ok {
		return nil, &flowerr.SchemaValidationError{File: file, Field: "includes", Err: fmt.Errorf("expected a list of paths, got %T", raw)}
	}
	out := make([]string, 0, len(list))
	for i, v := range list {
		s, ok := v.(string)
		if !ok || s == "" {
			return nil, &flowerr.SchemaValidationError{File: file, Field: fmt.Sprintf("includes[%d]", i), Err: fmt.Errorf("expected a non-empty path, got %v", v)}
		}
		out = append(out, s)
	}
	return out, nil
}

func takeHooks(doc document.Document, file string) ([]DiscoveredHook, error) {
	raw, ok := doc["after_load"]
	delete(doc, "after_load")
	if !ok || raw == nil {
		return nil, nil
	}
	list, ok := document.AsList(raw)
	if !ok {
		return nil, &flowerr.SchemaValidationError{File: file, Field: "after_load", Err: fmt.Errorf("expected a list of hooks, got %T", raw)}
	}
	out := make([]DiscoveredHook, 0, len(list))
	for i, v := range list {
		spec, err := schema.Decode[schema.HookSpec](v, file)
		if err != nil {
			return nil, err
		}
		if spec.Name == "" {
			return nil, &flowerr.SchemaValidationError{File: file, Field: fmt.Sprintf("after_load[%d].name", i), Err: fmt.Errorf("hook name is required")}
		}
		out = append(out, DiscoveredHook{Name: spec.Name, Args: spec.Args, File: file})
	}
	return out, nil
}

// absolutizePaths makes relative task files and relative dependency paths
// absolute against dir.
func absolutizePaths(doc document.Document, dir string) {
	if dir == "" {
		return
	}
	fix := func(spec any) {
		task, ok := document.AsDoc(spec)
		if !ok {
			return
		}
		if f, ok := task["file"].(string); ok && f != "" && !filepath.IsAbs(f) {
			task["file"] = filepath.Join(dir, f)
		}
	}

	tasks, _ := document.AsList(doc["tasks"])
	for _, t := range tasks {
		fix(t)
	}
	if d, ok := document.AsDoc(doc["defaults"]); ok {
		fix(d["task"])
		prefixes, _ := document.AsDoc(d["task_prefix"])
		for _, p := range prefixes {
			fix(p)
		}
	}

	deps, _ := document.AsList(doc["dependencies"])
	for i, d := range deps {
		s, ok := d.(string)
		if ok && (strings.HasPrefix(s, "./") || strings.HasPrefix(s, "../")) {
			deps[i] = filepath.Join(dir, s)
		}
	}
}

// canonical returns an absolute, symlink-free form of path when possible.
func canonical(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		return filepath.Clean(path)
	}
	if resolved, err := filepath.EvalSymlinks(abs); err == nil {
		return resolved
	}
	return abs
}
