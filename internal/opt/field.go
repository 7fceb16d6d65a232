package opt

import (
	"bytes"
	"encoding/json"
	"fmt"
	"reflect"

	"gopkg.in/yaml.v3"
)

type state uint8

const (
	stateUnset state = iota
	stateNull
	stateValue
)

// Field is an optional value that distinguishes "never given" from
// "explicitly null" from "holds a value". The zero Field is unset.
type Field[T any] struct {
	state state
	value T
}

// Unset returns a Field that was never given.
func Unset[T any]() Field[T] {
	return Field[T]{}
}

// Null returns a Field explicitly set to null.
func Null[T any]() Field[T] {
	return Field[T]{state: stateNull}
}

// Of returns a Field holding v.
func Of[T any](v T) Field[T] {
	return Field[T]{state: stateValue, value: v}
}

// IsSet reports whether the field was given, either as null or as a value.
func (f Field[T]) IsSet() bool { return f.state != stateUnset }

// IsNull reports whether the field was explicitly set to null.
func (f Field[T]) IsNull() bool { return f.state == stateNull }

// HasValue reports whether the field holds a value.
func (f Field[T]) HasValue() bool { return f.state == stateValue }

// IsZero reports whether the field is unset. Encoders use it to omit the
// field entirely.
func (f Field[T]) IsZero() bool { return f.state == stateUnset }

// Get returns the value and whether one is present.
func (f Field[T]) Get() (T, bool) {
	return f.value, f.state == stateValue
}

// OrElse returns the value, or def when the field is unset or null.
func (f Field[T]) OrElse(def T) T {
	if f.state == stateValue {
		return f.value
	}
	return def
}

// Equal reports whether both fields are in the same state and, when holding
// values, the values are deeply equal.
func (f Field[T]) Equal(other Field[T]) bool {
	if f.state != other.state {
		return false
	}
	if f.state != stateValue {
		return true
	}
	return reflect.DeepEqual(f.value, other.value)
}

// String renders the field for logs and test failures.
func (f Field[T]) String() string {
	switch f.state {
	case stateNull:
		return "null"
	case stateValue:
		return fmt.Sprintf("%v", f.value)
	default:
		return "<unset>"
	}
}

// MarshalJSON emits null for the null state and the value otherwise. An
// unset field should never reach the encoder; it is emitted as null if it
// does.
func (f Field[T]) MarshalJSON() ([]byte, error) {
	if f.state != stateValue {
		return []byte("null"), nil
	}
	return json.Marshal(f.value)
}

// UnmarshalJSON is only invoked for keys that are present, so the result is
// either null or a value. Nested objects are decoded strictly.
func (f *Field[T]) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*f = Null[T]()
		return nil
	}
	var v T
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&v); err != nil {
		return err
	}
	*f = Of(v)
	return nil
}

// MarshalYAML emits nil for the null state and the value otherwise.
func (f Field[T]) MarshalYAML() (any, error) {
	if f.state != stateValue {
		return nil, nil
	}
	return f.value, nil
}

// UnmarshalYAML decodes a present key. yaml.v3 does not call unmarshalers
// for null nodes, so documents that need to keep explicit nulls are decoded
// into maps first and converted through JSON (see package schema).
func (f *Field[T]) UnmarshalYAML(node *yaml.Node) error {
	if node.Tag == "!!null" {
		*f = Null[T]()
		return nil
	}
	var v T
	if err := node.Decode(&v); err != nil {
		return err
	}
	*f = Of(v)
	return nil
}
