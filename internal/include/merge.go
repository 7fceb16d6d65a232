package include

import (
	"github.com/vk/evalflow/internal/defaults"
	"github.com/vk/evalflow/internal/document"
)

// concatKeys are list fields whose included values come before the
// includer's.
var concatKeys = map[string]bool{"tasks": true, "dependencies": true}

// nestedKeys are mapping fields merged one level deep.
var nestedKeys = map[string]bool{"config": true, "options": true, "flow_metadata": true, "env": true}

// MergeJobs applies src over dst and returns the result. Neither input is
// modified.
func MergeJobs(dst, src document.Document) document.Document {
	out := document.CloneDoc(dst)
	for key, val := range src {
		cur, exists := out[key]
		if !exists || cur == nil || val == nil {
			out[key] = document.Clone(val)
			continue
		}

		switch {
		case concatKeys[key]:
			curList, curOK := document.AsList(cur)
			srcList, srcOK := document.AsList(val)
			if curOK && srcOK {
				merged := make([]any, 0, len(curList)+len(srcList))
				merged = append(merged, document.Clone(curList).([]any)...)
				merged = append(merged, document.Clone(srcList).([]any)...)
				out[key] = merged
				continue
			}
		case nestedKeys[key]:
			curMap, curOK := document.AsDoc(cur)
			srcMap, srcOK := document.AsDoc(val)
			if curOK && srcOK {
				out[key] = defaults.MergeNested(curMap, srcMap)
				continue
			}
		case key == "defaults":
			curMap, curOK := document.AsDoc(cur)
			srcMap, srcOK := document.AsDoc(val)
			if curOK && srcOK {
				out[key] = mergeDefaults(curMap, srcMap)
				continue
			}
		}
		out[key] = document.Clone(val)
	}
	return out
}

// mergeDefaults merges two defaults blocks: config one level deep, each
// global default with the two-depth spec rule, and prefix maps key by key.
func mergeDefaults(dst, src document.Document) document.Document {
	out := document.CloneDoc(dst)
	for key, val := range src {
		curMap, curOK := document.AsDoc(out[key])
		srcMap, srcOK := document.AsDoc(val)
		if !curOK || !srcOK {
			out[key] = document.Clone(val)
			continue
		}

		switch {
		case key == "config":
			out[key] = defaults.MergeNested(curMap, srcMap)
		case isPrefixKey(key):
			merged := document.CloneDoc(curMap)
			for prefix, spec := range srcMap {
				curSpec, curOK := document.AsDoc(merged[prefix])
				srcSpec, srcOK := document.AsDoc(spec)
				if curOK && srcOK {
					merged[prefix] = defaults.Merge(curSpec, srcSpec)
				} else {
					merged[prefix] = document.Clone(spec)
				}
			}
			out[key] = merged
		default:
			out[key] = defaults.Merge(curMap, srcMap)
		}
	}
	return out
}

func isPrefixKey(key string) bool {
	switch key {
	case "model_prefix", "solver_prefix", "agent_prefix", "task_prefix":
		return true
	}
	return false
}
