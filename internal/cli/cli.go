package cli

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/vk/evalflow/internal/app"
	"github.com/vk/evalflow/internal/flowerr"
	"github.com/vk/evalflow/internal/fsutil"
)

// Exit codes returned by the binary.
const (
	ExitConfig = 1
	ExitUsage  = 2
)

// ExitError is a custom error type that includes a specific exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

// ToExitError maps an error from a command run to an ExitError. Quiet errors
// keep their bare message; everything else is prefixed with "error:".
func ToExitError(err error) *ExitError {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr
	}
	if flowerr.IsQuiet(err) {
		return &ExitError{Code: ExitConfig, Message: err.Error()}
	}
	return &ExitError{Code: ExitConfig, Message: "error: " + err.Error()}
}

// Parse processes command-line arguments. It returns a populated Config,
// a boolean indicating if the program should exit cleanly, or an ExitError.
func Parse(args []string, output io.Writer) (*app.Config, bool, error) {
	slog.Debug("CLI parser started.")

	var config *app.Config
	root := newRootCommand(func(cfg *app.Config) { config = cfg })
	if args == nil {
		// cobra falls back to os.Args for a nil slice.
		args = []string{}
	}
	root.SetArgs(args)
	root.SetOut(output)
	root.SetErr(output)

	if err := root.Execute(); err != nil {
		return nil, false, &ExitError{Code: ExitUsage, Message: err.Error()}
	}
	if config == nil {
		// Help was printed.
		return nil, true, nil
	}

	slog.Debug("CLI parser finished successfully.", "command", config.Command, "path", config.ConfigPath)
	return config, false, nil
}

func newRootCommand(done func(*app.Config)) *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix("EVALFLOW")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	root := &cobra.Command{
		Use:           "evalflow",
		Short:         "Resolve declarative evaluation job files into concrete task lists.",
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	root.PersistentFlags().String("log-format", "text", "Log output format. Options: 'text' or 'json'.")
	root.PersistentFlags().String("log-level", "info", "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")

	root.AddCommand(
		newJobCommand(v, app.CommandResolve, "resolve [CONFIG]", "Resolve a job file and print the result.", done),
		newJobCommand(v, app.CommandCheck, "check [PATH]", "Resolve a job file, or every job file in a directory, and report task counts.", done),
	)
	return root
}

func newJobCommand(v *viper.Viper, command, use, short string, done func(*app.Config)) *cobra.Command {
	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := v.BindPFlags(cmd.Flags()); err != nil {
				return err
			}
			cfg, err := buildConfig(v, cmd, command, args)
			if err != nil {
				return err
			}
			done(cfg)
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringArray("set", nil, "Override a job field, as path=value. Values are parsed as JSON when possible. Repeatable.")
	flags.StringArray("var", nil, "Set an HCL input variable, as name=value. Repeatable.")
	flags.Bool("no-auto-include", false, "Do not pick up _flow.* files from ancestor directories.")
	flags.String("stop-dir", "", "Directory at which the ancestor search for _flow.* files stops.")
	flags.String("base-dir", "", "Fallback directory for relative include paths.")
	if command == app.CommandResolve {
		flags.String("format", "yaml", "Output format. Options: 'yaml' or 'json'.")
		flags.String("spec-dir", "", "Also write the resolved job as a spec file into this directory.")
	}
	return cmd
}

func buildConfig(v *viper.Viper, cmd *cobra.Command, command string, args []string) (*app.Config, error) {
	path := ""
	if len(args) > 0 {
		path = args[0]
	} else {
		_ = v.BindEnv("config-file", fsutil.EnvConfigFile)
		path = v.GetString("config-file")
	}
	slog.Debug("Config path determined.", "path", path)

	logFormat := strings.ToLower(v.GetString("log-format"))
	if logFormat != "text" && logFormat != "json" {
		return nil, errors.New("invalid log-format: must be 'text' or 'json'")
	}

	logLevel := strings.ToLower(v.GetString("log-level"))
	switch logLevel {
	case "debug", "info", "warn", "error":
		// valid
	default:
		return nil, errors.New("invalid log-level: must be 'debug', 'info', 'warn', or 'error'")
	}

	overrides, err := cmd.Flags().GetStringArray("set")
	if err != nil {
		return nil, err
	}
	rawVars, err := cmd.Flags().GetStringArray("var")
	if err != nil {
		return nil, err
	}
	vars, err := parseVars(rawVars)
	if err != nil {
		return nil, err
	}

	format := ""
	if command == app.CommandResolve {
		format = strings.ToLower(v.GetString("format"))
	}

	return app.NewConfig(app.Config{
		Command:     command,
		ConfigPath:  path,
		Overrides:   overrides,
		Vars:        vars,
		AutoInclude: !v.GetBool("no-auto-include"),
		StopDir:     v.GetString("stop-dir"),
		BaseDir:     v.GetString("base-dir"),
		Format:      format,
		SpecDir:     v.GetString("spec-dir"),
		LogFormat:   logFormat,
		LogLevel:    logLevel,
	})
}

func parseVars(raw []string) (map[string]string, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	vars := make(map[string]string, len(raw))
	for _, kv := range raw {
		name, value, ok := strings.Cut(kv, "=")
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid --var %q: expected name=value", kv)
		}
		vars[name] = value
	}
	return vars, nil
}
