package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/evalflow/internal/document"
	"github.com/vk/evalflow/internal/flowerr"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestDispatcher_YAMLKeepsExplicitNull(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "flow.yaml", `
log_dir: logs
tasks:
  - name: a
    model: null
    epochs: 2
    config:
      temperature: 0.5
`)

	doc, err := NewDispatcher(YAML{}, JSON{}).Load(context.Background(), path)
	require.NoError(t, err)

	want := document.Document{
		"log_dir": "logs",
		"tasks": []any{
			map[string]any{"name": "a", "model": nil, "epochs": 2, "config": map[string]any{"temperature": 0.5}},
		},
	}
	if diff := cmp.Diff(want, doc); diff != "" {
		t.Errorf("Load mismatch (-want +got):\n%s", diff)
	}
}

func TestDispatcher_JSONNumbersNormalized(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "flow.json", `{"options": {"limit": 10, "fail_on_error": 0.25}, "python_version": null}`)

	doc, err := NewDispatcher(YAML{}, JSON{}).Load(context.Background(), path)
	require.NoError(t, err)

	assert.Equal(t, map[string]any{"limit": 10, "fail_on_error": 0.25}, doc["options"])
	v, present := doc["python_version"]
	assert.True(t, present)
	assert.Nil(t, v)
}

func TestDispatcher_EmptyYAMLIsEmptyDocument(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "empty.yml", "")

	doc, err := NewDispatcher(YAML{}).Load(context.Background(), path)
	require.NoError(t, err)
	assert.Empty(t, doc)
}

func TestDispatcher_Errors(t *testing.T) {
	dir := t.TempDir()
	d := NewDispatcher(YAML{}, JSON{})
	ctx := context.Background()

	t.Run("unknown extension", func(t *testing.T) {
		path := writeFile(t, dir, "flow.toml", "x = 1")
		_, err := d.Load(ctx, path)
		var ufe *flowerr.UnknownFormatError
		require.ErrorAs(t, err, &ufe)
		assert.Equal(t, ".toml", ufe.Ext)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := d.Load(ctx, filepath.Join(dir, "missing.yaml"))
		var nf *flowerr.ConfigNotFoundError
		require.ErrorAs(t, err, &nf)
	})

	t.Run("top level list", func(t *testing.T) {
		path := writeFile(t, dir, "list.yaml", "- a\n- b\n")
		_, err := d.Load(ctx, path)
		var sve *flowerr.SchemaValidationError
		require.ErrorAs(t, err, &sve)
	})

	t.Run("malformed json", func(t *testing.T) {
		path := writeFile(t, dir, "bad.json", "{")
		_, err := d.Load(ctx, path)
		var sve *flowerr.SchemaValidationError
		require.ErrorAs(t, err, &sve)
		assert.Equal(t, path, sve.File)
	})
}

func TestDispatcher_Extensions(t *testing.T) {
	d := NewDispatcher(YAML{}, JSON{})
	assert.Equal(t, []string{".json", ".yaml", ".yml"}, d.Extensions())
	assert.True(t, d.Supports("a/B.YAML"))
	assert.False(t, d.Supports("a/b.py"))
}
