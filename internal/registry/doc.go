// Package registry holds the lookup tables that connect names written in job
// files to Go code.
//
// Tasks, solvers and agents are looked up by name when a resolved job is
// handed to an evaluation engine; post-load hooks are looked up by the names
// listed in a job's `after_load` entries. Tables are populated explicitly
// through Module values at startup, never by reflection or import side
// effects.
//
// The evalflow binary registers hooks only. Task, solver and agent factories
// belong to the evaluation engine that embeds evalflow, which passes its own
// Module values to app.NewApp alongside Builtins. ValidateJob checks names
// only for kinds that have at least one factory, so a bare binary accepts any
// task, solver or agent name.
package registry
