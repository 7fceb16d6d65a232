// Package substitute resolves `{name}` and `{name[key]...}` placeholders in
// the strings of a job document against the job's own fields.
//
// The namespace holds the job's top-level scalar fields plus its
// flow_metadata, options and env mappings, so one field can be composed from
// another:
//
//	log_dir: "{flow_metadata[root]}/logs"
//	flow_metadata:
//	  root: "/data/{flow_metadata[team]}"
//	  team: evals
//
// A referenced value is resolved before it is inserted, so chains of any
// depth settle in one walk; a chain that returns to a value still being
// resolved is a CycleError. A placeholder whose root name is not in the
// namespace is left as written; `{{` and `}}` produce literal braces.
package substitute
