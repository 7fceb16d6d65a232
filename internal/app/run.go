package app

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/vk/evalflow/internal/fsutil"
	"github.com/vk/evalflow/internal/include"
	"github.com/vk/evalflow/internal/launch"
	"github.com/vk/evalflow/internal/resolve"
	"gopkg.in/yaml.v3"
)

// Run executes the configured command.
func (a *App) Run(ctx context.Context) error {
	ctx = a.context(ctx)
	a.logger.Debug("App.Run method started.", "command", a.config.Command, "path", a.config.ConfigPath)

	switch a.config.Command {
	case CommandCheck:
		return a.check(ctx)
	default:
		return a.resolve(ctx)
	}
}

func (a *App) resolve(ctx context.Context) error {
	if err := fsutil.SetProcessEnv(a.config.ConfigPath); err != nil {
		return err
	}

	res, err := a.engine.Resolve(ctx, a.config.ConfigPath, a.options())
	if err != nil {
		return err
	}

	if a.config.SpecDir != "" {
		w := &launch.SpecWriter{Dir: a.config.SpecDir}
		path, err := w.Write(ctx, res.Job)
		if err != nil {
			return fmt.Errorf("failed to write resolved spec: %w", err)
		}
		a.logger.Info("Resolved spec written.", "path", path)
	}

	return a.write(res)
}

func (a *App) write(res *resolve.Result) error {
	switch a.config.Format {
	case "json":
		enc := json.NewEncoder(a.outW)
		enc.SetIndent("", "  ")
		return enc.Encode(res.Document)
	default:
		enc := yaml.NewEncoder(a.outW)
		enc.SetIndent(2)
		if err := enc.Encode(res.Document); err != nil {
			return err
		}
		return enc.Close()
	}
}

// check resolves a job file, or every job file under a directory, and
// reports the task count of each.
func (a *App) check(ctx context.Context) error {
	files, err := a.checkTargets()
	if err != nil {
		return err
	}
	if len(files) == 0 {
		a.logger.Warn("No job files found.", "path", a.config.ConfigPath)
		return nil
	}

	var failed int
	for _, file := range files {
		if err := fsutil.SetProcessEnv(file); err != nil {
			return err
		}
		res, err := a.engine.Resolve(ctx, file, a.options())
		if err != nil {
			if len(files) == 1 {
				return err
			}
			failed++
			fmt.Fprintf(a.outW, "%s: %v\n", file, err)
			continue
		}
		tasks, _ := res.Job.Tasks.Get()
		fmt.Fprintf(a.outW, "%s: ok (%d tasks)\n", file, len(tasks))
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d job files failed to resolve", failed, len(files))
	}
	return nil
}

func (a *App) checkTargets() ([]string, error) {
	info, err := os.Stat(a.config.ConfigPath)
	if err != nil || !info.IsDir() {
		return []string{a.config.ConfigPath}, nil
	}

	found, err := fsutil.FindFilesByExtension(a.config.ConfigPath, resolve.NewLoader(nil).Extensions()...)
	if err != nil {
		return nil, err
	}
	var files []string
	for _, f := range found {
		if isAutoInclude(f) {
			continue
		}
		files = append(files, f)
	}
	return files, nil
}

func isAutoInclude(path string) bool {
	base := filepath.Base(path)
	for _, name := range include.AutoIncludeNames {
		if strings.EqualFold(base, name) {
			return true
		}
	}
	return false
}
