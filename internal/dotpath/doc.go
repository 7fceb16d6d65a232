// internal/dotpath/doc.go

/*
Package dotpath parses the dotted field paths used by command-line overrides,
e.g. `options.metadata.key1` or `tasks[0].model.name`.

A path is a dot-separated sequence of segments. Each segment is a field name,
optionally followed by a list index in brackets. Parsing and formatting live
here so that override application and hook argument handling agree on the
exact syntax.
*/
package dotpath
