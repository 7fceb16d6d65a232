package schema

import (
	"context"
	"fmt"

	"github.com/vk/evalflow/internal/document"
	"github.com/vk/evalflow/internal/matrix"
)

// TaskMatrix expands a sweep over task fields into typed tasks. Axis values
// may be Go values, documents or the Fragments of a nested sweep.
func TaskMatrix(ctx context.Context, base *TaskSpec, axes ...matrix.Axis) ([]TaskSpec, error) {
	frags, err := expandTyped(ctx, base, axes)
	if err != nil {
		return nil, err
	}
	out := make([]TaskSpec, 0, len(frags))
	for i, f := range frags {
		doc, err := NormalizeTask(f)
		if err != nil {
			return nil, fmt.Errorf("task fragment %d: %w", i, err)
		}
		t, err := Decode[TaskSpec](doc, "")
		if err != nil {
			return nil, fmt.Errorf("task fragment %d: %w", i, err)
		}
		out = append(out, t)
	}
	return out, nil
}

// ModelMatrix expands a sweep over model fields. Its result can be passed as
// an axis value through ModelFragments to nest it inside a task sweep.
func ModelMatrix(ctx context.Context, base *ModelSpec, axes ...matrix.Axis) ([]ModelSpec, error) {
	return expandInto[ModelSpec](ctx, base, axes)
}

// ConfigMatrix expands a sweep over generation settings.
func ConfigMatrix(ctx context.Context, base *GenerateConfig, axes ...matrix.Axis) ([]GenerateConfig, error) {
	return expandInto[GenerateConfig](ctx, base, axes)
}

// SolverMatrix expands a sweep over solver fields.
func SolverMatrix(ctx context.Context, base *SolverSpec, axes ...matrix.Axis) ([]SolverSpec, error) {
	return expandInto[SolverSpec](ctx, base, axes)
}

// AgentMatrix expands a sweep over agent fields.
func AgentMatrix(ctx context.Context, base *AgentSpec, axes ...matrix.Axis) ([]AgentSpec, error) {
	return expandInto[AgentSpec](ctx, base, axes)
}

// Fragments converts typed values into matrix Fragments so they splice into
// an enclosing axis.
func Fragments[T any](values []T) (matrix.Fragments, error) {
	out := make(matrix.Fragments, 0, len(values))
	for _, v := range values {
		doc, err := ToDocument(v)
		if err != nil {
			return nil, err
		}
		out = append(out, doc)
	}
	return out, nil
}

func expandInto[T any](ctx context.Context, base *T, axes []matrix.Axis) ([]T, error) {
	frags, err := expandTyped(ctx, base, axes)
	if err != nil {
		return nil, err
	}
	out := make([]T, 0, len(frags))
	for i, f := range frags {
		v, err := Decode[T](f, "")
		if err != nil {
			return nil, fmt.Errorf("fragment %d: %w", i, err)
		}
		out = append(out, v)
	}
	return out, nil
}

func expandTyped[T any](ctx context.Context, base *T, axes []matrix.Axis) (matrix.Fragments, error) {
	baseDoc := document.Document{}
	if base != nil {
		var err error
		baseDoc, err = ToDocument(base)
		if err != nil {
			return nil, err
		}
	}

	normalized := make([]matrix.Axis, len(axes))
	for i, axis := range axes {
		values := make([]any, 0, len(axis.Values))
		for _, v := range axis.Values {
			n, err := toAxisValue(v)
			if err != nil {
				return nil, fmt.Errorf("axis %q: %w", axis.Name, err)
			}
			values = append(values, n)
		}
		normalized[i] = matrix.Axis{Name: axis.Name, Values: values}
	}
	return matrix.Expand(ctx, baseDoc, normalized)
}

// toAxisValue converts typed Go values (specs, configs) into documents while
// keeping Fragments intact for splicing.
func toAxisValue(v any) (any, error) {
	switch v.(type) {
	case matrix.Fragments, nil, string, bool, int, float64, map[string]any, []any:
		return v, nil
	default:
		return document.FromValue(v)
	}
}
