// Package include expands a job's includes into a single merged job.
//
// Included files are loaded depth-first, so a file's own includes are merged
// before the file itself, and the including job's fields are applied last.
// Auto-included ancestor files (named like _flow.yaml) are applied before
// explicit includes, farthest first. Each file is merged at most once per
// expansion; a file that includes itself, directly or transitively, is a
// CycleError.
//
// Post-load hooks named in `after_load` entries are collected while files
// load and run, in load order, once the job is fully merged.
package include
