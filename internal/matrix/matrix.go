// Package matrix expands declarative sweeps into explicit lists of
// fragments.
//
// A sweep is a base fragment plus an ordered list of axes. Expansion yields
// the cartesian product of the axis values, first axis varying slowest, each
// combination merged over the base. An axis value that is itself a sweep (or
// the Fragments produced by one) is spliced into the axis rather than kept as
// one opaque value, which is how sweeps of sweeps are written.
package matrix

import (
	"context"
	"fmt"

	"github.com/vk/evalflow/internal/ctxlog"
	"github.com/vk/evalflow/internal/document"
	"github.com/vk/evalflow/internal/flowerr"
)

// Key marks a document entry as a sweep: {"matrix": {"base": ..., "axes": ...}}.
const Key = "matrix"

// Axis is one named dimension of a sweep.
type Axis struct {
	Name   string
	Values []any
}

// Fragments is the output of an expansion. Used as an axis value it is
// spliced into the axis.
type Fragments []document.Document

// Values builds an axis value list from v: lists are used as-is, Fragments
// are spliced, anything else becomes a singleton list.
func Values(v any) []any {
	switch t := v.(type) {
	case []any:
		return t
	case Fragments:
		out := make([]any, len(t))
		for i, f := range t {
			out[i] = f
		}
		return out
	default:
		return []any{v}
	}
}

// Expand produces one fragment per combination of axis values.
func Expand(ctx context.Context, base document.Document, axes []Axis) (Fragments, error) {
	logger := ctxlog.FromContext(ctx)

	seen := make(map[string]struct{}, len(axes))
	for _, axis := range axes {
		if _, ok := base[axis.Name]; ok {
			return nil, &flowerr.DuplicateKeyError{Key: axis.Name}
		}
		if _, ok := seen[axis.Name]; ok {
			return nil, &flowerr.DuplicateKeyError{Key: axis.Name}
		}
		seen[axis.Name] = struct{}{}
	}

	combos := Fragments{document.CloneDoc(base)}
	for _, axis := range axes {
		values, err := flatten(ctx, axis.Values)
		if err != nil {
			return nil, fmt.Errorf("matrix axis %q: %w", axis.Name, err)
		}
		if len(values) == 0 {
			logger.Warn("Matrix axis is empty, sweep produces no fragments.", "axis", axis.Name)
			return Fragments{}, nil
		}

		next := make(Fragments, 0, len(combos)*len(values))
		for _, combo := range combos {
			for _, v := range values {
				frag := document.CloneDoc(combo)
				frag[axis.Name] = document.Clone(v)
				next = append(next, frag)
			}
		}
		combos = next
	}

	logger.Debug("Matrix expanded.", "axes", len(axes), "fragments", len(combos))
	return combos, nil
}

// flatten splices nested sweeps and fragment lists into a flat value list.
func flatten(ctx context.Context, values []any) ([]any, error) {
	out := make([]any, 0, len(values))
	for _, v := range values {
		switch t := v.(type) {
		case Fragments:
			for _, f := range t {
				out = append(out, f)
			}
		case []document.Document:
			for _, f := range t {
				out = append(out, f)
			}
		default:
			inner, ok := Unwrap(v)
			if !ok {
				out = append(out, v)
				continue
			}
			frags, err := ExpandDocument(ctx, inner)
			if err != nil {
				return nil, err
			}
			for _, f := range frags {
				out = append(out, f)
			}
		}
	}
	return out, nil
}

// Unwrap returns the sweep body when v is a {"matrix": ...} entry.
func Unwrap(v any) (any, bool) {
	d, ok := v.(map[string]any)
	if !ok || len(d) != 1 {
		return nil, false
	}
	inner, ok := d[Key]
	return inner, ok
}

// ExpandDocument parses a sweep body and expands it.
func ExpandDocument(ctx context.Context, v any) (Fragments, error) {
	base, axes, err := FromDocument(v)
	if err != nil {
		return nil, err
	}
	return Expand(ctx, base, axes)
}

// FromDocument parses a sweep body of the form
//
//	base: {...}          # optional
//	axes:                # ordered list of single-key mappings
//	  - name: [a, b]
//	  - model: [m1, m2]
//
// axes may also be a mapping, which is iterated in sorted key order since a
// decoded mapping carries no order. A scalar axis value is a singleton.
func FromDocument(v any) (document.Document, []Axis, error) {
	body, ok := v.(map[string]any)
	if !ok {
		return nil, nil, fmt.Errorf("matrix must be a mapping, got %T", v)
	}
	for k := range body {
		if k != "base" && k != "axes" {
			return nil, nil, fmt.Errorf("unknown matrix field %q", k)
		}
	}

	var base document.Document
	switch b := body["base"].(type) {
	case nil:
		base = document.Document{}
	case map[string]any:
		base = b
	default:
		return nil, nil, fmt.Errorf("matrix base must be a mapping, got %T", b)
	}

	var axes []Axis
	switch a := body["axes"].(type) {
	case nil:
	case []any:
		for i, entry := range a {
			m, ok := entry.(map[string]any)
			if !ok || len(m) != 1 {
				return nil, nil, fmt.Errorf("matrix axes[%d] must be a single-key mapping", i)
			}
			for name, val := range m {
				axes = append(axes, Axis{Name: name, Values: Values(val)})
			}
		}
	case map[string]any:
		for _, name := range document.SortedKeys(a) {
			axes = append(axes, Axis{Name: name, Values: Values(a[name])})
		}
	default:
		return nil, nil, fmt.Errorf("matrix axes must be a list or mapping, got %T", a)
	}

	return base, axes, nil
}
