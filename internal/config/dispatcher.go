package config

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/vk/evalflow/internal/ctxlog"
	"github.com/vk/evalflow/internal/document"
	"github.com/vk/evalflow/internal/flowerr"
)

// Dispatcher is a Loader that selects a Parser by file extension.
type Dispatcher struct {
	parsers map[string]Parser
}

// NewDispatcher creates a Dispatcher. Later parsers win when two claim the
// same extension.
func NewDispatcher(parsers ...Parser) *Dispatcher {
	d := &Dispatcher{parsers: make(map[string]Parser)}
	for _, p := range parsers {
		for _, ext := range p.Extensions() {
			d.parsers[strings.ToLower(ext)] = p
		}
	}
	return d
}

// Extensions returns the supported extensions in sorted order.
func (d *Dispatcher) Extensions() []string {
	exts := make([]string, 0, len(d.parsers))
	for ext := range d.parsers {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}

// Supports reports whether path has an extension with a registered parser.
func (d *Dispatcher) Supports(path string) bool {
	_, ok := d.parsers[strings.ToLower(filepath.Ext(path))]
	return ok
}

// Load implements Loader.
func (d *Dispatcher) Load(ctx context.Context, path string) (document.Document, error) {
	logger := ctxlog.FromContext(ctx)

	ext := strings.ToLower(filepath.Ext(path))
	parser, ok := d.parsers[ext]
	if !ok {
		return nil, &flowerr.UnknownFormatError{Path: path, Ext: ext}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, &flowerr.ConfigNotFoundError{Path: path, Err: err}
		}
		return nil, err
	}
	logger.Debug("Parsing config file.", "path", path, "format", ext, "bytes", len(data))

	raw, err := parser.Parse(ctx, path, data)
	if err != nil {
		return nil, err
	}

	doc, err := document.NormalizeDoc(raw)
	if err != nil {
		return nil, &flowerr.SchemaValidationError{File: path, Err: err}
	}
	return doc, nil
}
