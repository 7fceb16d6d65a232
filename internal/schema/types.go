package schema

import (
	"github.com/vk/evalflow/internal/opt"
)

// Job is the root declaration: dependencies, defaults and the tasks to run.
// After resolution Defaults, Includes and AfterLoad are unset and Tasks is a
// flat list of concrete tasks.
type Job struct {
	LogDir             opt.Field[string]            `json:"log_dir,omitzero" yaml:"log_dir,omitempty"`
	LogDirCreateUnique opt.Field[bool]              `json:"log_dir_create_unique,omitzero" yaml:"log_dir_create_unique,omitempty"`
	PythonVersion      opt.Field[string]            `json:"python_version,omitzero" yaml:"python_version,omitempty"`
	Config             opt.Field[GenerateConfig]    `json:"config,omitzero" yaml:"config,omitempty"`
	Dependencies       opt.Field[[]string]          `json:"dependencies,omitzero" yaml:"dependencies,omitempty"`
	Includes           opt.Field[[]string]          `json:"includes,omitzero" yaml:"includes,omitempty"`
	Defaults           opt.Field[DefaultsBlock]     `json:"defaults,omitzero" yaml:"defaults,omitempty"`
	Tasks              opt.Field[[]TaskSpec]        `json:"tasks,omitzero" yaml:"tasks,omitempty"`
	Options            opt.Field[Options]           `json:"options,omitzero" yaml:"options,omitempty"`
	FlowMetadata       opt.Field[map[string]any]    `json:"flow_metadata,omitzero" yaml:"flow_metadata,omitempty"`
	AfterLoad          opt.Field[[]HookSpec]        `json:"after_load,omitzero" yaml:"after_load,omitempty"`
	Env                opt.Field[map[string]string] `json:"env,omitzero" yaml:"env,omitempty"`
}

// DefaultsBlock holds the global and prefix-scoped defaults of a Job.
type DefaultsBlock struct {
	Config       opt.Field[GenerateConfig]        `json:"config,omitzero" yaml:"config,omitempty"`
	Model        opt.Field[ModelSpec]             `json:"model,omitzero" yaml:"model,omitempty"`
	Solver       opt.Field[SolverSpec]            `json:"solver,omitzero" yaml:"solver,omitempty"`
	Agent        opt.Field[AgentSpec]             `json:"agent,omitzero" yaml:"agent,omitempty"`
	Task         opt.Field[TaskSpec]              `json:"task,omitzero" yaml:"task,omitempty"`
	ModelPrefix  opt.Field[map[string]ModelSpec]  `json:"model_prefix,omitzero" yaml:"model_prefix,omitempty"`
	SolverPrefix opt.Field[map[string]SolverSpec] `json:"solver_prefix,omitzero" yaml:"solver_prefix,omitempty"`
	AgentPrefix  opt.Field[map[string]AgentSpec]  `json:"agent_prefix,omitzero" yaml:"agent_prefix,omitempty"`
	TaskPrefix   opt.Field[map[string]TaskSpec]   `json:"task_prefix,omitzero" yaml:"task_prefix,omitempty"`
}

// TaskSpec describes one task invocation.
type TaskSpec struct {
	Name       string                          `json:"name,omitempty" yaml:"name,omitempty"`
	File       opt.Field[string]               `json:"file,omitzero" yaml:"file,omitempty"`
	Args       opt.Field[map[string]any]       `json:"args,omitzero" yaml:"args,omitempty"`
	Model      opt.Field[ModelSpec]            `json:"model,omitzero" yaml:"model,omitempty"`
	Solver     opt.Field[SolverSpec]           `json:"solver,omitzero" yaml:"solver,omitempty"`
	Agent      opt.Field[AgentSpec]            `json:"agent,omitzero" yaml:"agent,omitempty"`
	Epochs     opt.Field[int]                  `json:"epochs,omitzero" yaml:"epochs,omitempty"`
	SampleID   opt.Field[any]                  `json:"sample_id,omitzero" yaml:"sample_id,omitempty"`
	Config     opt.Field[GenerateConfig]       `json:"config,omitzero" yaml:"config,omitempty"`
	ModelRoles opt.Field[map[string]ModelSpec] `json:"model_roles,omitzero" yaml:"model_roles,omitempty"`
	Metadata   opt.Field[map[string]any]       `json:"metadata,omitzero" yaml:"metadata,omitempty"`
}

// ModelSpec describes the model a task runs against.
type ModelSpec struct {
	Name     string                    `json:"name,omitempty" yaml:"name,omitempty"`
	Role     opt.Field[string]         `json:"role,omitzero" yaml:"role,omitempty"`
	BaseURL  opt.Field[string]         `json:"base_url,omitzero" yaml:"base_url,omitempty"`
	Args     opt.Field[map[string]any] `json:"args,omitzero" yaml:"args,omitempty"`
	Config   opt.Field[GenerateConfig] `json:"config,omitzero" yaml:"config,omitempty"`
	Metadata opt.Field[map[string]any] `json:"metadata,omitzero" yaml:"metadata,omitempty"`
}

// SolverSpec describes a solver.
type SolverSpec struct {
	Name     string                    `json:"name,omitempty" yaml:"name,omitempty"`
	Args     opt.Field[map[string]any] `json:"args,omitzero" yaml:"args,omitempty"`
	Metadata opt.Field[map[string]any] `json:"metadata,omitzero" yaml:"metadata,omitempty"`
}

// AgentSpec describes an agent.
type AgentSpec struct {
	Name     string                    `json:"name,omitempty" yaml:"name,omitempty"`
	Args     opt.Field[map[string]any] `json:"args,omitzero" yaml:"args,omitempty"`
	Metadata opt.Field[map[string]any] `json:"metadata,omitzero" yaml:"metadata,omitempty"`
}

// GenerateConfig holds model generation settings. Every field is refined
// individually when defaults are merged.
type GenerateConfig struct {
	MaxTokens       opt.Field[int]      `json:"max_tokens,omitzero" yaml:"max_tokens,omitempty"`
	Temperature     opt.Field[float64]  `json:"temperature,omitzero" yaml:"temperature,omitempty"`
	TopP            opt.Field[float64]  `json:"top_p,omitzero" yaml:"top_p,omitempty"`
	TopK            opt.Field[int]      `json:"top_k,omitzero" yaml:"top_k,omitempty"`
	Seed            opt.Field[int]      `json:"seed,omitzero" yaml:"seed,omitempty"`
	StopSeqs        opt.Field[[]string] `json:"stop_seqs,omitzero" yaml:"stop_seqs,omitempty"`
	ReasoningEffort opt.Field[string]   `json:"reasoning_effort,omitzero" yaml:"reasoning_effort,omitempty"`
	ReasoningTokens opt.Field[int]      `json:"reasoning_tokens,omitzero" yaml:"reasoning_tokens,omitempty"`
	MaxConnections  opt.Field[int]      `json:"max_connections,omitzero" yaml:"max_connections,omitempty"`
	Timeout         opt.Field[int]      `json:"timeout,omitzero" yaml:"timeout,omitempty"`
	MaxRetries      opt.Field[int]      `json:"max_retries,omitzero" yaml:"max_retries,omitempty"`
	SystemMessage   opt.Field[string]   `json:"system_message,omitzero" yaml:"system_message,omitempty"`
}

// Options are evaluation-run options passed through to the evaluation engine.
type Options struct {
	Limit       opt.Field[int]            `json:"limit,omitzero" yaml:"limit,omitempty"`
	MaxSamples  opt.Field[int]            `json:"max_samples,omitzero" yaml:"max_samples,omitempty"`
	MaxTasks    opt.Field[int]            `json:"max_tasks,omitzero" yaml:"max_tasks,omitempty"`
	FailOnError opt.Field[float64]        `json:"fail_on_error,omitzero" yaml:"fail_on_error,omitempty"`
	LogLevel    opt.Field[string]         `json:"log_level,omitzero" yaml:"log_level,omitempty"`
	Display     opt.Field[string]         `json:"display,omitzero" yaml:"display,omitempty"`
	Tags        opt.Field[[]string]       `json:"tags,omitzero" yaml:"tags,omitempty"`
	Metadata    opt.Field[map[string]any] `json:"metadata,omitzero" yaml:"metadata,omitempty"`
}

// HookSpec names a registered post-load hook and its arguments.
type HookSpec struct {
	Name string         `json:"name" yaml:"name"`
	Args map[string]any `json:"args,omitempty" yaml:"args,omitempty"`
}
