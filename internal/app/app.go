package app

import (
	"context"
	"io"
	"log/slog"

	"github.com/vk/evalflow/internal/ctxlog"
	"github.com/vk/evalflow/internal/registry"
	"github.com/vk/evalflow/internal/resolve"
)

// App encapsulates the application's dependencies, configuration, and lifecycle.
type App struct {
	outW     io.Writer
	logger   *slog.Logger
	config   *Config
	registry *registry.Registry
	engine   *resolve.Engine
}

// NewApp is the constructor for the main application. Results go to outW and
// logs to logW. With no modules the core modules are registered.
func NewApp(outW, logW io.Writer, cfg *Config, modules ...registry.Module) *App {
	logger := newLogger(cfg.LogLevel, cfg.LogFormat, logW)
	logger.Debug("Logger configured successfully.")

	if len(modules) == 0 {
		modules = coreModules
	}
	reg := registry.NewWithModules(modules...)
	logger.Debug("All Go modules registered.", "count", len(modules), "hooks", reg.HookNames())

	engine := resolve.NewEngine(resolve.NewLoader(cfg.Vars), reg)

	return &App{
		outW:     outW,
		logger:   logger,
		config:   cfg,
		registry: reg,
		engine:   engine,
	}
}

// Registry returns the application's registry. This is primarily for testing.
func (a *App) Registry() *registry.Registry {
	return a.registry
}

func (a *App) context(ctx context.Context) context.Context {
	return ctxlog.WithLogger(ctx, a.logger)
}

func (a *App) options() resolve.Options {
	return resolve.Options{
		Overrides:   a.config.Overrides,
		AutoInclude: a.config.AutoInclude,
		StopDir:     a.config.StopDir,
		BaseDir:     a.config.BaseDir,
	}
}
