package registry

import (
	"context"
	"fmt"
	"reflect"
	"strings"

	"github.com/vk/evalflow/internal/document"
	"github.com/vk/evalflow/internal/dotpath"
)

// Names of the built-in post-load hooks.
const (
	HookLockedFields    = "locked_fields"
	HookRequireFields   = "require_fields"
	HookAllowedPrefixes = "allowed_prefixes"
)

// Builtins registers the hooks every job can reference.
type Builtins struct{}

// Register implements Module.
func (Builtins) Register(r *Registry) {
	r.RegisterHook(HookLockedFields, lockedFields)
	r.RegisterHook(HookRequireFields, requireFields)
	r.RegisterHook(HookAllowedPrefixes, allowedPrefixes)
}

// lockedFields rejects a job in which any of args.fields ended up with a
// value different from the one in the declaring file.
func lockedFields(_ context.Context, in HookInput) error {
	paths, err := pathsArg(in.Args, "fields")
	if err != nil {
		return err
	}
	for _, p := range paths {
		want, declared := document.Lookup(in.Declared, p)
		if !declared {
			return fmt.Errorf("locked field %q is not set in %s", p, in.DeclaredIn)
		}
		got, _ := document.Lookup(in.Job, p)
		if !reflect.DeepEqual(want, got) {
			return fmt.Errorf("field %q is locked by %s and cannot be changed from %v to %v", p, in.DeclaredIn, want, got)
		}
	}
	return nil
}

// requireFields rejects a job in which any of args.fields is unset or null.
func requireFields(_ context.Context, in HookInput) error {
	paths, err := pathsArg(in.Args, "fields")
	if err != nil {
		return err
	}
	var missing []string
	for _, p := range paths {
		if v, ok := document.Lookup(in.Job, p); !ok || v == nil {
			missing = append(missing, p.String())
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("required fields missing (declared in %s): %s", in.DeclaredIn, strings.Join(missing, ", "))
	}
	return nil
}

// allowedPrefixes rejects a job with a task whose name does not start with
// one of args.prefixes.
func allowedPrefixes(_ context.Context, in HookInput) error {
	prefixes, err := stringsArg(in.Args, "prefixes")
	if err != nil {
		return err
	}
	tasks, _ := document.AsList(in.Job["tasks"])
	for _, entry := range tasks {
		task, _ := document.AsDoc(entry)
		name, _ := task["name"].(string)
		ok := false
		for _, prefix := range prefixes {
			if strings.HasPrefix(name, prefix) {
				ok = true
				break
			}
		}
		if !ok {
			return fmt.Errorf("task %q is not allowed by %s: name must start with one of %s", name, in.DeclaredIn, strings.Join(prefixes, ", "))
		}
	}
	return nil
}

func stringsArg(args map[string]any, key string) ([]string, error) {
	raw, ok := args[key]
	if !ok {
		return nil, fmt.Errorf("hook argument %q is required", key)
	}
	list, ok := document.AsList(raw)
	if !ok {
		if s, isString := raw.(string); isString {
			return []string{s}, nil
		}
		return nil, fmt.Errorf("hook argument %q must be a list of strings, got %T", key, raw)
	}
	out := make([]string, 0, len(list))
	for _, v := range list {
		s, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("hook argument %q must be a list of strings, got element %T", key, v)
		}
		out = append(out, s)
	}
	return out, nil
}

func pathsArg(args map[string]any, key string) ([]*dotpath.Path, error) {
	raw, err := stringsArg(args, key)
	if err != nil {
		return nil, err
	}
	paths := make([]*dotpath.Path, 0, len(raw))
	for _, s := range raw {
		p, err := dotpath.Parse(s)
		if err != nil {
			return nil, fmt.Errorf("hook argument %q: %w", key, err)
		}
		paths = append(paths, p)
	}
	return paths, nil
}
