// Package flowerr defines the error taxonomy of the resolution engine. Every
// error here is fatal to the current resolution; callers match them with
// errors.As and decide on exit codes.
package flowerr

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNoTasks is returned when resolution produces an empty task list, for
// example because a matrix axis was an empty list.
var ErrNoTasks = errors.New("no tasks produced")

// ConfigNotFoundError reports a missing configuration or include file.
type ConfigNotFoundError struct {
	Path string
	From string // including file, empty for the root config
	Err  error
}

func (e *ConfigNotFoundError) Error() string {
	if e.From != "" {
		return fmt.Sprintf("config file %q (included from %q) not found", e.Path, e.From)
	}
	return fmt.Sprintf("config file %q not found", e.Path)
}

func (e *ConfigNotFoundError) Unwrap() error { return e.Err }

// UnknownFormatError reports a config file whose extension selects no parser.
type UnknownFormatError struct {
	Path string
	Ext  string
}

func (e *UnknownFormatError) Error() string {
	return fmt.Sprintf("unsupported config format %q for file %q", e.Ext, e.Path)
}

// SchemaValidationError reports a value that fails the job schema. File and
// Field narrow the failure down as far as they are known.
type SchemaValidationError struct {
	File  string
	Field string
	Err   error
}

func (e *SchemaValidationError) Error() string {
	var b strings.Builder
	b.WriteString("invalid configuration")
	if e.File != "" {
		fmt.Fprintf(&b, " in %s", e.File)
	}
	if e.Field != "" {
		fmt.Fprintf(&b, " at %s", e.Field)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *SchemaValidationError) Unwrap() error { return e.Err }

// DuplicateKeyError reports a matrix key present in both the base fragment
// and the axes, or an axis declared twice.
type DuplicateKeyError struct {
	Key string
}

func (e *DuplicateKeyError) Error() string {
	return fmt.Sprintf("duplicate matrix key %q", e.Key)
}

// CycleError reports an include cycle or a substitution that never reaches
// a fixed point. Chain lists the files or placeholders involved.
type CycleError struct {
	Kind  string
	Chain []string
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("%s cycle: %s", e.Kind, strings.Join(e.Chain, " -> "))
}

// PrefixMergeError reports an override whose path does not fit the schema.
type PrefixMergeError struct {
	Override string
	Err      error
}

func (e *PrefixMergeError) Error() string {
	return fmt.Sprintf("cannot apply override %q: %v", e.Override, e.Err)
}

func (e *PrefixMergeError) Unwrap() error { return e.Err }

// PostLoadHookError carries the error raised by a post-load hook. The hook's
// message is surfaced verbatim; Quiet tells the CLI a stack trace or error
// chain adds nothing.
type PostLoadHookError struct {
	Hook string
	File string
	Err  error
}

func (e *PostLoadHookError) Error() string {
	return e.Err.Error()
}

func (e *PostLoadHookError) Unwrap() error { return e.Err }

// Quiet marks the error as already user-facing.
func (e *PostLoadHookError) Quiet() bool { return true }

// IsQuiet reports whether err (or anything it wraps) asks to be printed
// without further decoration.
func IsQuiet(err error) bool {
	var q interface{ Quiet() bool }
	return errors.As(err, &q) && q.Quiet()
}
