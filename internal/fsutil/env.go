package fsutil

import (
	"os"
	"path/filepath"
)

const (
	// EnvConfigFile holds the absolute path of the active job file.
	EnvConfigFile = "EVALFLOW_CONFIG_FILE"
	// EnvInitDir holds the working directory the process started in.
	EnvInitDir = "EVALFLOW_INIT_DIR"
)

// SetProcessEnv records the active job file and, unless already recorded by
// a parent process, the current working directory.
func SetProcessEnv(configFile string) error {
	abs, err := filepath.Abs(configFile)
	if err != nil {
		return err
	}
	if err := os.Setenv(EnvConfigFile, abs); err != nil {
		return err
	}
	if os.Getenv(EnvInitDir) != "" {
		return nil
	}
	wd, err := os.Getwd()
	if err != nil {
		return err
	}
	return os.Setenv(EnvInitDir, wd)
}

// ResolvePath makes path absolute. A relative path is joined to baseDir when
// given, otherwise to the directory of the active job file, otherwise to the
// recorded initial working directory, and finally to the current one.
func ResolvePath(path, baseDir string) (string, error) {
	if filepath.IsAbs(path) {
		return filepath.Clean(path), nil
	}
	if baseDir != "" {
		return filepath.Abs(filepath.Join(baseDir, path))
	}
	if cfg := os.Getenv(EnvConfigFile); cfg != "" {
		return filepath.Join(filepath.Dir(cfg), path), nil
	}
	if init := os.Getenv(EnvInitDir); init != "" {
		return filepath.Join(init, path), nil
	}
	return filepath.Abs(path)
}
