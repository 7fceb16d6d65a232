// Package document holds the untyped form of a job: nested maps, lists and
// scalars as produced by the YAML, JSON and HCL loaders.
//
// Documents are the merge substrate of the engine. A key that is absent is
// an unset field, a key mapped to nil is an explicit null, anything else is a
// value. Every stage copies before it writes, so a Document handed to the next
// stage is never mutated by the previous one.
package document

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
)

// Document is a decoded mapping node.
type Document = map[string]any

// Clone returns a deep copy of v. Maps and lists are copied; scalars are
// shared.
func Clone(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = Clone(val)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = Clone(val)
		}
		return out
	default:
		return v
	}
}

// CloneDoc is Clone for a Document. A nil input yields an empty Document.
func CloneDoc(d Document) Document {
	if d == nil {
		return Document{}
	}
	return Clone(d).(map[string]any)
}

// Normalize converts values produced by different decoders into one
// canonical shape: map[any]any becomes map[string]any, typed slices become
// []any, json.Number and integral floats become int, other numbers become
// float64.
func Normalize(v any) (any, error) {
	switch t := v.(type) {
	case nil, string, bool:
		return t, nil
	case int:
		return t, nil
	case int64:
		return int(t), nil
	case int32:
		return int(t), nil
	case uint64:
		if t > math.MaxInt64 {
			return nil, fmt.Errorf("integer %d overflows int64", t)
		}
		return int(t), nil
	case float32:
		return normalizeFloat(float64(t)), nil
	case float64:
		return normalizeFloat(t), nil
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return int(i), nil
		}
		f, err := t.Float64()
		if err != nil {
			return nil, fmt.Errorf("invalid number %q: %w", t.String(), err)
		}
		return f, nil
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			n, err := Normalize(val)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", k, err)
			}
			out[k] = n
		}
		return out, nil
	case map[any]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			key, ok := k.(string)
			if !ok {
				return nil, fmt.Errorf("mapping key %v is not a string", k)
			}
			n, err := Normalize(val)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", key, err)
			}
			out[key] = n
		}
		return out, nil
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			n, err := Normalize(val)
			if err != nil {
				return nil, fmt.Errorf("[%d]: %w", i, err)
			}
			out[i] = n
		}
		return out, nil
	case []string:
		out := make([]any, len(t))
		for i, s := range t {
			out[i] = s
		}
		return out, nil
	case map[string]string:
		out := make(map[string]any, len(t))
		for k, s := range t {
			out[k] = s
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unsupported value of type %T", v)
	}
}

// NormalizeDoc normalizes a mapping and reports an error if the result is not
// a mapping.
func NormalizeDoc(v any) (Document, error) {
	n, err := Normalize(v)
	if err != nil {
		return nil, err
	}
	if n == nil {
		return Document{}, nil
	}
	doc, ok := n.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("expected a mapping at top level, got %T", n)
	}
	return doc, nil
}

func normalizeFloat(f float64) any {
	if f == math.Trunc(f) && math.Abs(f) < 1<<53 {
		return int(f)
	}
	return f
}

// SortedKeys returns the keys of d in lexical order.
func SortedKeys(d Document) []string {
	keys := make([]string, 0, len(d))
	for k := range d {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// AsDoc returns v as a Document when it is a mapping.
func AsDoc(v any) (Document, bool) {
	d, ok := v.(map[string]any)
	return d, ok
}

// AsList returns v as a list when it is one.
func AsList(v any) ([]any, bool) {
	l, ok := v.([]any)
	return l, ok
}

// FromValue converts a typed Go value to its document form through JSON, so
// struct tags and custom marshalers (including tri-state omission) apply.
func FromValue(v any) (any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return Normalize(out)
}
