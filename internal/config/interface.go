package config

import (
	"context"

	"github.com/vk/evalflow/internal/document"
)

// Loader is the interface for reading a job file into a document.
type Loader interface {
	// Load reads the file at path and returns its top-level mapping. Keys
	// that are present with a null value are kept so explicit nulls survive.
	Load(ctx context.Context, path string) (document.Document, error)
}

// Parser is the interface for a single file format.
type Parser interface {
	// Extensions lists the file extensions, including the dot, handled by
	// this parser.
	Extensions() []string

	// Parse decodes the raw file contents. path is used for diagnostics and
	// to resolve anything relative to the file.
	Parse(ctx context.Context, path string, data []byte) (any, error)
}
