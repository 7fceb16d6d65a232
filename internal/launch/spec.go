package launch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/vk/evalflow/internal/config"
	"github.com/vk/evalflow/internal/ctxlog"
	"github.com/vk/evalflow/internal/schema"
	"gopkg.in/yaml.v3"
)

// SpecWriter serializes resolved jobs for the evaluation subprocess.
type SpecWriter struct {
	Dir string
	// NewID names spec files; nil uses random UUIDs.
	NewID func() string
}

// Write stores job as <Dir>/flow-<id>.yaml and returns the path. Unset
// fields are omitted and explicit nulls are kept.
func (w *SpecWriter) Write(ctx context.Context, job *schema.Job) (string, error) {
	newID := w.NewID
	if newID == nil {
		newID = func() string { return uuid.NewString() }
	}

	data, err := yaml.Marshal(job)
	if err != nil {
		return "", fmt.Errorf("failed to encode resolved job: %w", err)
	}
	if err := os.MkdirAll(w.Dir, 0o755); err != nil {
		return "", err
	}
	path := filepath.Join(w.Dir, fmt.Sprintf("flow-%s.yaml", newID()))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", err
	}
	ctxlog.FromContext(ctx).Debug("Resolved job written.", "path", path, "bytes", len(data))
	return path, nil
}

// ReadSpec reads a spec written by SpecWriter back into a Job.
func ReadSpec(ctx context.Context, path string) (*schema.Job, error) {
	doc, err := config.NewDispatcher(config.YAML{}).Load(ctx, path)
	if err != nil {
		return nil, err
	}
	return schema.DecodeJob(doc, path)
}
