// Package config defines the format-agnostic entry point for reading job
// files, along with the Parser interface implemented per file format.
//
// A Loader turns a path into an untyped document.Document. The Dispatcher
// selects a Parser by file extension; YAML and JSON parsers live here, the
// HCL parser is provided by the hcl_adapter package. Schema decoding and
// shorthand normalization happen later, in package schema, so every format
// shares one set of rules.
package config
