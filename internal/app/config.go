package app

import (
	"errors"
	"fmt"
)

// Commands an App can run.
const (
	CommandResolve = "resolve"
	CommandCheck   = "check"
)

// Config holds all the necessary configuration for an App instance to run.
type Config struct {
	Command    string
	ConfigPath string // job file; a directory for check

	Overrides   []string
	Vars        map[string]string
	AutoInclude bool
	StopDir     string
	BaseDir     string

	Format  string // yaml or json
	SpecDir string // when set, resolve also writes a spec file here

	LogFormat string
	LogLevel  string
}

func NewConfig(cfg Config) (*Config, error) {
	if cfg.ConfigPath == "" {
		return nil, errors.New("a config file is required")
	}

	switch cfg.Command {
	case CommandResolve, CommandCheck:
	default:
		return nil, fmt.Errorf("unknown command %q", cfg.Command)
	}

	switch cfg.Format {
	case "":
		cfg.Format = "yaml"
	case "yaml", "json":
	default:
		return nil, fmt.Errorf("invalid format %q: must be 'yaml' or 'json'", cfg.Format)
	}

	return &cfg, nil
}
