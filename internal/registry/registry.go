package registry

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/vk/evalflow/internal/document"
)

// Kinds of named components a registry can instantiate.
const (
	KindTask   = "task"
	KindSolver = "solver"
	KindAgent  = "agent"
)

// Factory builds a task, solver or agent from the arguments of its spec.
type Factory func(ctx context.Context, args map[string]any) (any, error)

// HookInput is what a post-load hook sees.
type HookInput struct {
	// Job is the fully merged job document.
	Job document.Document
	// Files lists every file that contributed to Job, in load order.
	Files []string
	// DeclaredIn is the file whose after_load entry named the hook.
	DeclaredIn string
	// Declared is the normalized content of DeclaredIn before merging.
	Declared document.Document
	// Args are the hook arguments from the after_load entry.
	Args map[string]any
}

// Hook inspects a loaded job and returns an error to reject it.
type Hook func(ctx context.Context, in HookInput) error

// Module is the interface that every bundle of components must implement to
// be registered.
type Module interface {
	Register(r *Registry)
}

// Registry holds the factories and hooks for a single application instance.
type Registry struct {
	factories map[string]map[string]Factory
	hooks     map[string]Hook
}

// New creates an empty Registry.
func New() *Registry {
	return &Registry{
		factories: map[string]map[string]Factory{
			KindTask:   {},
			KindSolver: {},
			KindAgent:  {},
		},
		hooks: map[string]Hook{},
	}
}

// NewWithModules creates a Registry and registers every module into it.
func NewWithModules(modules ...Module) *Registry {
	r := New()
	for _, m := range modules {
		m.Register(r)
	}
	return r
}

func (r *Registry) register(kind, name string, f Factory) {
	table, ok := r.factories[kind]
	if !ok {
		panic(fmt.Sprintf("unknown component kind '%s'", kind))
	}
	if _, exists := table[name]; exists {
		panic(fmt.Sprintf("%s with name '%s' already registered", kind, name))
	}
	slog.Debug("Registering component.", "kind", kind, "name", name)
	table[name] = f
}

// RegisterTask registers a task factory.
func (r *Registry) RegisterTask(name string, f Factory) { r.register(KindTask, name, f) }

// RegisterSolver registers a solver factory.
func (r *Registry) RegisterSolver(name string, f Factory) { r.register(KindSolver, name, f) }

// RegisterAgent registers an agent factory.
func (r *Registry) RegisterAgent(name string, f Factory) { r.register(KindAgent, name, f) }

// RegisterHook registers a post-load hook.
func (r *Registry) RegisterHook(name string, h Hook) {
	if _, exists := r.hooks[name]; exists {
		panic(fmt.Sprintf("hook with name '%s' already registered", name))
	}
	slog.Debug("Registering post-load hook.", "name", name)
	r.hooks[name] = h
}

// Hook returns the hook registered under name.
func (r *Registry) Hook(name string) (Hook, bool) {
	h, ok := r.hooks[name]
	return h, ok
}

// HookNames returns the registered hook names in sorted order.
func (r *Registry) HookNames() []string {
	names := make([]string, 0, len(r.hooks))
	for name := range r.hooks {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Names returns the registered names of a kind in sorted order.
func (r *Registry) Names(kind string) []string {
	table := r.factories[kind]
	names := make([]string, 0, len(table))
	for name := range table {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Instantiate builds the component registered under kind and name.
func (r *Registry) Instantiate(ctx context.Context, kind, name string, args map[string]any) (any, error) {
	f, ok := r.factories[kind][name]
	if !ok {
		return nil, fmt.Errorf("no %s registered with name '%s'", kind, name)
	}
	return f(ctx, args)
}
