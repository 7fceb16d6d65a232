// Package resolve turns a job file into a fully resolved job.
//
// The Engine runs the stages in a fixed order:
//
//  1. load the file through a format-dispatching config.Loader and normalize
//     it (string shorthands, task matrices)
//  2. expand includes, auto-included ancestor files and post-load hooks
//  3. apply command-line overrides
//  4. substitute placeholders, then pick a unique log dir when asked to
//  5. apply defaults to every task
//  6. decode into schema.Job and check the resolved-job invariants
//
// Each stage returns a new document; nothing is resolved in place.
package resolve
