package schema

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/vk/evalflow/internal/document"
	"github.com/vk/evalflow/internal/flowerr"
)

// strictUnmarshal decodes data into v rejecting unknown fields.
func strictUnmarshal(data []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

// unmarshalNamed accepts either a bare string (taken as the name) or an
// object decoded strictly into target.
func unmarshalNamed(data []byte, setName func(string), target any) error {
	var name string
	if err := json.Unmarshal(data, &name); err == nil {
		setName(name)
		return nil
	}
	return strictUnmarshal(data, target)
}

func (t *TaskSpec) UnmarshalJSON(data []byte) error {
	type plain TaskSpec
	var p plain
	if err := unmarshalNamed(data, func(n string) { p.Name = n }, &p); err != nil {
		return err
	}
	*t = TaskSpec(p)
	return nil
}

func (m *ModelSpec) UnmarshalJSON(data []byte) error {
	type plain ModelSpec
	var p plain
	if err := unmarshalNamed(data, func(n string) { p.Name = n }, &p); err != nil {
		return err
	}
	*m = ModelSpec(p)
	return nil
}

func (s *SolverSpec) UnmarshalJSON(data []byte) error {
	type plain SolverSpec
	var p plain
	if err := unmarshalNamed(data, func(n string) { p.Name = n }, &p); err != nil {
		return err
	}
	*s = SolverSpec(p)
	return nil
}

func (a *AgentSpec) UnmarshalJSON(data []byte) error {
	type plain AgentSpec
	var p plain
	if err := unmarshalNamed(data, func(n string) { p.Name = n }, &p); err != nil {
		return err
	}
	*a = AgentSpec(p)
	return nil
}

func (h *HookSpec) UnmarshalJSON(data []byte) error {
	type plain HookSpec
	var p plain
	if err := unmarshalNamed(data, func(n string) { p.Name = n }, &p); err != nil {
		return err
	}
	*h = HookSpec(p)
	return nil
}

// Decode converts a document into T, rejecting unknown fields. file is used
// only to attribute errors.
func Decode[T any](doc any, file string) (T, error) {
	var out T
	data, err := json.Marshal(doc)
	if err != nil {
		return out, &flowerr.SchemaValidationError{File: file, Err: err}
	}
	if err := strictUnmarshal(data, &out); err != nil {
		return out, &flowerr.SchemaValidationError{File: file, Field: fieldOf(err), Err: err}
	}
	return out, nil
}

// DecodeJob converts a job document into a validated Job.
func DecodeJob(doc document.Document, file string) (*Job, error) {
	job, err := Decode[Job](doc, file)
	if err != nil {
		return nil, err
	}
	if err := job.Validate(); err != nil {
		var sve *flowerr.SchemaValidationError
		if errors.As(err, &sve) && sve.File == "" {
			sve.File = file
		}
		return nil, err
	}
	return &job, nil
}

// ToDocument converts a typed value into its document form. Unset fields are
// omitted, explicit nulls are kept.
func ToDocument(v any) (document.Document, error) {
	out, err := document.FromValue(v)
	if err != nil {
		return nil, err
	}
	doc, ok := out.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("expected an object, got %T", out)
	}
	return doc, nil
}

// fieldOf extracts the offending field path from an encoding/json error.
func fieldOf(err error) string {
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		return typeErr.Field
	}
	const unknown = "json: unknown field "
	if msg := err.Error(); strings.HasPrefix(msg, unknown) {
		return strings.Trim(strings.TrimPrefix(msg, unknown), `"`)
	}
	return ""
}
