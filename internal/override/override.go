// Package override applies command-line `path=value` overrides to a job
// document.
//
// The value is parsed as JSON when possible. A list or mapping replaces the
// target; any other value is appended when the target is a list and
// assigned otherwise. Overrides apply in order, so later ones see the effect
// of earlier ones.
package override

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/vk/evalflow/internal/ctxlog"
	"github.com/vk/evalflow/internal/document"
	"github.com/vk/evalflow/internal/dotpath"
	"github.com/vk/evalflow/internal/flowerr"
	"github.com/vk/evalflow/internal/schema"
)

// Override is one parsed `path=value` assignment.
type Override struct {
	Raw   string
	Path  *dotpath.Path
	Value any
}

// Parse splits raw at the first '=' and parses both sides.
func Parse(raw string) (*Override, error) {
	key, val, ok := strings.Cut(raw, "=")
	if !ok {
		return nil, &flowerr.PrefixMergeError{Override: raw, Err: fmt.Errorf("expected path=value")}
	}
	p, err := dotpath.Parse(strings.TrimSpace(key))
	if err != nil {
		return nil, &flowerr.PrefixMergeError{Override: raw, Err: err}
	}
	return &Override{Raw: raw, Path: p, Value: ParseValue(val)}, nil
}

// ParseValue decodes s as JSON, falling back to the string itself.
func ParseValue(s string) any {
	dec := json.NewDecoder(bytes.NewReader([]byte(s)))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil || dec.More() {
		return s
	}
	// Trailing garbage after a valid value is not JSON either.
	if _, err := dec.Token(); err == nil {
		return s
	}
	n, err := document.Normalize(v)
	if err != nil {
		return s
	}
	return n
}

// Apply applies one override to d in place.
func (o *Override) Apply(d document.Document) error {
	err := document.Update(d, o.Path, func(cur any, _ bool) any {
		switch o.Value.(type) {
		case []any, map[string]any:
			return document.Clone(o.Value)
		}
		if list, ok := cur.([]any); ok {
			return append(document.Clone(list).([]any), o.Value)
		}
		return o.Value
	})
	if err != nil {
		return &flowerr.PrefixMergeError{Override: o.Raw, Err: err}
	}
	return nil
}

// Apply returns a copy of doc with every override applied in order. After
// each override the document must still decode against the job schema.
func Apply(ctx context.Context, doc document.Document, overrides []string) (document.Document, error) {
	logger := ctxlog.FromContext(ctx)
	if len(overrides) == 0 {
		return doc, nil
	}

	out := document.CloneDoc(doc)
	for _, raw := range overrides {
		o, err := Parse(raw)
		if err != nil {
			return nil, err
		}
		if err := o.Apply(out); err != nil {
			return nil, err
		}
		// Overrides may introduce shorthand or matrix task entries.
		if out, err = schema.NormalizeJob(ctx, out, ""); err != nil {
			return nil, &flowerr.PrefixMergeError{Override: raw, Err: err}
		}
		if _, err := schema.Decode[schema.Job](out, ""); err != nil {
			return nil, &flowerr.PrefixMergeError{Override: raw, Err: err}
		}
		logger.Debug("Override applied.", "path", o.Path.String(), "value", o.Value)
	}
	return out, nil
}
