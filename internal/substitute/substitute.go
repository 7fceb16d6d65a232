package substitute

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/vk/evalflow/internal/ctxlog"
	"github.com/vk/evalflow/internal/document"
	"github.com/vk/evalflow/internal/flowerr"
)

// NamespaceMaps are the job mappings addressable as `{name[key]}`.
var NamespaceMaps = []string{"flow_metadata", "options", "env"}

var (
	placeholderRe = regexp.MustCompile(`^\{([A-Za-z_][A-Za-z0-9_]*)((?:\[[^\[\]{}]*\])*)\}`)
	keyRe         = regexp.MustCompile(`\[([^\[\]]*)\]`)
)

// Namespace returns the values placeholders can refer to.
func Namespace(doc document.Document) map[string]any {
	ns := map[string]any{}
	for key, val := range doc {
		switch val.(type) {
		case string, int, float64, bool:
			ns[key] = val
		}
	}
	for _, key := range NamespaceMaps {
		if m, ok := document.AsDoc(doc[key]); ok {
			ns[key] = m
		}
	}
	return ns
}

// Resolve returns a copy of doc with every placeholder substituted. A
// referenced value is itself resolved before it is inserted; a reference
// that leads back to a value still being resolved is a CycleError.
func Resolve(ctx context.Context, doc document.Document) (document.Document, error) {
	r := &resolver{ns: Namespace(doc), done: map[string]string{}}
	out, err := r.value(doc, "", "")
	if err != nil {
		return nil, err
	}
	ctxlog.FromContext(ctx).Debug("Placeholders substituted.", "references", len(r.done))
	return unescape(out).(map[string]any), nil
}

// resolver memoizes resolved references. visiting is the chain of
// references currently being resolved.
type resolver struct {
	ns       map[string]any
	done     map[string]string
	visiting []string
}

// value walks v and substitutes every string. field is the path of v for
// error messages; ref is its placeholder name when v is addressable from the
// namespace, and empty otherwise.
func (r *resolver) value(v any, field, ref string) (any, error) {
	switch t := v.(type) {
	case string:
		if ref != "" {
			return r.ref(ref, field, t)
		}
		return r.str(t, field)
	case map[string]any:
		out := make(map[string]any, len(t))
		for _, key := range document.SortedKeys(t) {
			sub, subRef := key, ""
			if field != "" {
				sub = field + "." + key
			}
			switch {
			case ref != "":
				subRef = ref + "[" + key + "]"
			case field == "" && r.addressable(key):
				subRef = key
			}
			nv, err := r.value(t[key], sub, subRef)
			if err != nil {
				return nil, err
			}
			out[key] = nv
		}
		return out, nil
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			subRef := ""
			if ref != "" {
				subRef = fmt.Sprintf("%s[%d]", ref, i)
			}
			nv, err := r.value(val, fmt.Sprintf("%s[%d]", field, i), subRef)
			if err != nil {
				return nil, err
			}
			out[i] = nv
		}
		return out, nil
	default:
		return v, nil
	}
}

func (r *resolver) addressable(key string) bool {
	_, ok := r.ns[key]
	return ok
}

// ref resolves the raw string stored under the placeholder name ref.
func (r *resolver) ref(ref, field, raw string) (string, error) {
	if s, ok := r.done[ref]; ok {
		return s, nil
	}
	for i, v := range r.visiting {
		if v == ref {
			chain := append(append([]string(nil), r.visiting[i:]...), ref)
			return "", &flowerr.CycleError{Kind: "substitution", Chain: chain}
		}
	}

	r.visiting = append(r.visiting, ref)
	s, err := r.str(raw, field)
	r.visiting = r.visiting[:len(r.visiting)-1]
	if err != nil {
		return "", err
	}
	r.done[ref] = s
	return s, nil
}

func (r *resolver) str(s, field string) (string, error) {
	if !strings.ContainsRune(s, '{') {
		return s, nil
	}

	var b strings.Builder
	for i := 0; i < len(s); {
		rest := s[i:]
		if strings.HasPrefix(rest, "{{") || strings.HasPrefix(rest, "}}") {
			b.WriteString(rest[:2])
			i += 2
			continue
		}
		if rest[0] == '{' {
			if m := placeholderRe.FindStringSubmatch(rest); m != nil {
				val, known, err := r.lookup(m[1], keysOf(m[2]))
				if err != nil {
					var ce *flowerr.CycleError
					var sve *flowerr.SchemaValidationError
					if errors.As(err, &ce) || errors.As(err, &sve) {
						return "", err
					}
					return "", &flowerr.SchemaValidationError{Field: field, Err: fmt.Errorf("placeholder %s: %w", m[0], err)}
				}
				if known {
					b.WriteString(val)
					i += len(m[0])
					continue
				}
			}
		}
		b.WriteByte(s[i])
		i++
	}
	return b.String(), nil
}

func keysOf(raw string) []string {
	var keys []string
	for _, m := range keyRe.FindAllStringSubmatch(raw, -1) {
		keys = append(keys, m[1])
	}
	return keys
}

// lookup resolves root[k1][k2]... in the namespace. known is false when
// root is not in the namespace.
func (r *resolver) lookup(root string, keys []string) (string, bool, error) {
	cur, ok := r.ns[root]
	if !ok {
		return "", false, nil
	}
	ref, field := root, root
	for _, key := range keys {
		switch c := cur.(type) {
		case map[string]any:
			next, ok := c[key]
			if !ok {
				return "", true, fmt.Errorf("%s has no key %q", root, key)
			}
			cur = next
		case []any:
			idx, err := strconv.Atoi(key)
			if err != nil || idx < 0 || idx >= len(c) {
				return "", true, fmt.Errorf("%s has no element %q", root, key)
			}
			cur = c[idx]
		default:
			return "", true, fmt.Errorf("cannot index %T with %q", cur, key)
		}
		ref += "[" + key + "]"
		field += "." + key
	}

	switch c := cur.(type) {
	case string:
		s, err := r.ref(ref, field, c)
		return s, true, err
	case int, float64, bool:
		return fmt.Sprint(c), true, nil
	case nil:
		return "", true, fmt.Errorf("value is null")
	default:
		return "", true, fmt.Errorf("value is a %T, not a scalar", cur)
	}
}

func unescape(v any) any {
	switch t := v.(type) {
	case string:
		return strings.NewReplacer("{{", "{", "}}", "}").Replace(t)
	case map[string]any:
		for key, val := range t {
			t[key] = unescape(val)
		}
		return t
	case []any:
		for i, val := range t {
			t[i] = unescape(val)
		}
		return t
	default:
		return v
	}
}
