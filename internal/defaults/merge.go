// Package defaults applies a job's global and prefix-scoped defaults to its
// tasks, models, solvers and agents.
//
// Merging replaces fields at the top level: a field present on the
// higher-precedence side, explicit null included, replaces the lower one.
// The fields listed in DeepKeys are refined one level further, sub-field by
// sub-field, and inside them an explicit null does not override a value
// from a default.
package defaults

import (
	"sort"
	"strings"

	"github.com/vk/evalflow/internal/document"
)

// DeepKeys are merged one level deeper than other fields.
var DeepKeys = []string{"config", "metadata"}

func isDeep(key string) bool {
	for _, k := range DeepKeys {
		if k == key {
			return true
		}
	}
	return false
}

// Merge returns dst with src applied over it. Neither input is modified.
func Merge(dst, src document.Document) document.Document {
	out := document.CloneDoc(dst)
	for key, val := range src {
		if isDeep(key) {
			srcMap, srcOK := val.(map[string]any)
			dstMap, dstOK := out[key].(map[string]any)
			if srcOK && dstOK {
				out[key] = MergeNested(dstMap, srcMap)
				continue
			}
		}
		out[key] = document.Clone(val)
	}
	return out
}

// MergeNested refines dst with the sub-fields of src. A nil sub-field in src
// only fills a gap; it never clears a value already present in dst.
func MergeNested(dst, src map[string]any) map[string]any {
	out := document.CloneDoc(dst)
	for key, val := range src {
		if val == nil {
			if _, exists := out[key]; exists {
				continue
			}
		}
		out[key] = document.Clone(val)
	}
	return out
}

// Resolve merges, from lowest to highest precedence: global, every prefix
// default whose key is a prefix of the spec's name (shorter prefixes first,
// so the longest match wins), and finally the spec itself.
func Resolve(spec, global document.Document, prefixes map[string]document.Document) document.Document {
	out := document.Document{}
	if global != nil {
		out = Merge(out, global)
	}

	name := nameOf(spec)
	if name == "" {
		name = nameOf(global)
	}
	for _, prefix := range MatchingPrefixes(name, prefixes) {
		out = Merge(out, prefixes[prefix])
	}

	return Merge(out, spec)
}

// MatchingPrefixes returns the keys of prefixes that are string prefixes of
// name, ordered by increasing length. Ties are broken lexically so the
// result is deterministic.
func MatchingPrefixes(name string, prefixes map[string]document.Document) []string {
	var matches []string
	for prefix, val := range prefixes {
		if val == nil {
			continue
		}
		if strings.HasPrefix(name, prefix) {
			matches = append(matches, prefix)
		}
	}
	sort.Slice(matches, func(i, j int) bool {
		if len(matches[i]) != len(matches[j]) {
			return len(matches[i]) < len(matches[j])
		}
		return matches[i] < matches[j]
	})
	return matches
}

func nameOf(d document.Document) string {
	if d == nil {
		return ""
	}
	name, _ := d["name"].(string)
	return name
}
