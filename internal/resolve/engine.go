package resolve

import (
	"context"
	"errors"
	"fmt"

	"github.com/vk/evalflow/internal/config"
	"github.com/vk/evalflow/internal/ctxlog"
	"github.com/vk/evalflow/internal/defaults"
	"github.com/vk/evalflow/internal/document"
	"github.com/vk/evalflow/internal/flowerr"
	"github.com/vk/evalflow/internal/hcl_adapter"
	"github.com/vk/evalflow/internal/include"
	"github.com/vk/evalflow/internal/override"
	"github.com/vk/evalflow/internal/registry"
	"github.com/vk/evalflow/internal/schema"
	"github.com/vk/evalflow/internal/substitute"
)

// Options tunes a single resolution.
type Options struct {
	// Overrides are `path=value` assignments applied after includes.
	Overrides []string
	// AutoInclude enables ancestor default-file discovery.
	AutoInclude bool
	// StopDir bounds ancestor discovery.
	StopDir string
	// BaseDir is the fallback directory for relative includes.
	BaseDir string
	// Exists checks paths for the unique log dir; nil uses the file system.
	Exists func(string) bool
}

// Result is a resolved job with the provenance of its content.
type Result struct {
	Job *schema.Job
	// Document is Job in document form: unset fields omitted.
	Document document.Document
	// Files lists the files that contributed to Job, in load order.
	Files []string
}

// Engine resolves jobs. It is safe to reuse across resolutions.
type Engine struct {
	loader   config.Loader
	registry *registry.Registry
}

// NewLoader returns the loader for every supported job file format. vars are
// visible to HCL files as `var.<name>`.
func NewLoader(vars map[string]string) *config.Dispatcher {
	return config.NewDispatcher(config.YAML{}, config.JSON{}, hcl_adapter.NewParser(vars))
}

// NewEngine creates an Engine. reg provides post-load hooks and, when its
// tables are populated, validates component names; it may be nil.
func NewEngine(loader config.Loader, reg *registry.Registry) *Engine {
	return &Engine{loader: loader, registry: reg}
}

// Resolve loads and resolves the job file at path.
func (e *Engine) Resolve(ctx context.Context, path string, opts Options) (*Result, error) {
	ctx = ctxlog.With(ctx, "job", path)
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Resolving job.", "auto_include", opts.AutoInclude, "overrides", len(opts.Overrides))

	doc, state, err := e.expander(opts).Expand(ctx, path)
	if err != nil {
		return nil, err
	}
	return e.finish(ctx, doc, state, path, opts)
}

// ResolveDocument resolves a job that is already in memory. Relative
// includes resolve against baseDir.
func (e *Engine) ResolveDocument(ctx context.Context, doc document.Document, baseDir string, opts Options) (*Result, error) {
	out, state, err := e.expander(opts).ExpandDocument(ctx, doc, "", baseDir)
	if err != nil {
		return nil, err
	}
	return e.finish(ctx, out, state, "", opts)
}

func (e *Engine) expander(opts Options) *include.Expander {
	return include.NewExpander(e.loader, e.registry, include.Options{
		AutoInclude: opts.AutoInclude,
		StopDir:     opts.StopDir,
		BaseDir:     opts.BaseDir,
	})
}

func (e *Engine) finish(ctx context.Context, doc document.Document, state *include.LoadState, file string, opts Options) (*Result, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Includes expanded.", "files", len(state.Files))

	doc, err := override.Apply(ctx, doc, opts.Overrides)
	if err != nil {
		return nil, err
	}

	if doc, err = substitute.Resolve(ctx, doc); err != nil {
		return nil, err
	}
	if doc, err = substitute.UniqueLogDir(ctx, doc, opts.Exists); err != nil {
		return nil, err
	}

	// The defaults block is consumed by ResolveJob, so it is only ever
	// checked against the schema here.
	if _, err := schema.DecodeJob(doc, file); err != nil {
		return nil, err
	}
	if doc, err = defaults.ResolveJob(ctx, doc); err != nil {
		return nil, err
	}

	job, err := schema.DecodeJob(doc, file)
	if err != nil {
		return nil, err
	}
	if err := job.ValidateResolved(); err != nil {
		if errors.Is(err, flowerr.ErrNoTasks) && file != "" {
			return nil, fmt.Errorf("%s: %w", file, err)
		}
		return nil, err
	}
	if e.registry != nil {
		if err := e.registry.ValidateJob(ctx, job); err != nil {
			return nil, err
		}
	}

	out, err := schema.ToDocument(job)
	if err != nil {
		return nil, err
	}

	tasks, _ := job.Tasks.Get()
	logger.Info("Job resolved.", "tasks", len(tasks), "files", len(state.Files))
	return &Result{Job: job, Document: out, Files: state.Files}, nil
}
