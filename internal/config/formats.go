package config

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/vk/evalflow/internal/flowerr"
	"gopkg.in/yaml.v3"
)

// YAML parses .yaml and .yml files.
type YAML struct{}

func (YAML) Extensions() []string { return []string{".yaml", ".yml"} }

func (YAML) Parse(_ context.Context, path string, data []byte) (any, error) {
	var out any
	if err := yaml.Unmarshal(data, &out); err != nil {
		return nil, &flowerr.SchemaValidationError{File: path, Err: fmt.Errorf("parse yaml: %w", err)}
	}
	return out, nil
}

// JSON parses .json files. Numbers are kept exact until normalization.
type JSON struct{}

func (JSON) Extensions() []string { return []string{".json"} }

func (JSON) Parse(_ context.Context, path string, data []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var out any
	if err := dec.Decode(&out); err != nil {
		return nil, &flowerr.SchemaValidationError{File: path, Err: fmt.Errorf("parse json: %w", err)}
	}
	return out, nil
}
