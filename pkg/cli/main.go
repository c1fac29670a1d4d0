package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"github.com/peluware/freddy/pkg/config"
	"github.com/peluware/freddy/pkg/configschema"
	"github.com/peluware/freddy/pkg/observability/logger"
	"github.com/peluware/freddy/pkg/version"
)

// LoadFunc loads the configuration and logger for a command, honoring the
// root persistent flags and the configuration override flags.
type LoadFunc func(cmd *cobra.Command) (*config.Config, logger.Logger, error)

// ServiceCommandOptions defines callbacks for application-specific commands.
type ServiceCommandOptions struct {
	Name        string
	Description string
	ConfigPath  string
	// Optional: called with the resolved path to the configuration file after flags are parsed.
	ConfigPathResolved func(string)
	EnvPrefix          string

	// ValidateConfig runs after the built-in validation.
	ValidateConfig func(cfg *config.Config) error

	// Commands builds the application commands. They share load to resolve
	// configuration the same way the built-in commands do.
	Commands func(load LoadFunc) []*cobra.Command
}

// NewServiceCommand creates a standardized CLI with version, config and
// completion subcommands plus the application commands.
func NewServiceCommand(opts ServiceCommandOptions) *cobra.Command {
	if opts.EnvPrefix == "" {
		opts.EnvPrefix = config.DefaultEnvPrefix
	}

	rootCmd := &cobra.Command{
		Use:           opts.Name,
		Short:         opts.Description,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	var cfgPath string
	var secretFilePath string
	var serviceNameOverride string
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config-file", "c", opts.ConfigPath, "config file path")
	rootCmd.PersistentFlags().StringVar(&secretFilePath, "secret-file", "", "path to secrets file (sets "+resolveEnvPrefix(opts.EnvPrefix)+"_SECRETS_FILE)")
	rootCmd.PersistentFlags().StringVar(&serviceNameOverride, "service-name", "", "service name override")
	config.RegisterFlags(rootCmd.PersistentFlags())

	newLoader := func(flags *pflag.FlagSet) (*config.ViperLoader, error) {
		if err := applySecretFileFlag(opts.EnvPrefix, secretFilePath); err != nil {
			return nil, err
		}
		if opts.ConfigPathResolved != nil {
			opts.ConfigPathResolved(cfgPath)
		}
		return config.NewViperLoader(cfgPath, opts.EnvPrefix).WithFlags(flags), nil
	}

	load := func(cmd *cobra.Command) (*config.Config, logger.Logger, error) {
		loader, err := newLoader(cmd.Flags())
		if err != nil {
			return nil, nil, err
		}
		return LoadConfigAndLogger(loader, opts.ValidateConfig, opts.Name, serviceNameOverride)
	}

	// version command
	var versionOutput string
	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		RunE: func(cmd *cobra.Command, args []string) error {
			return printVersion(cmd.OutOrStdout(), version.Current(opts.Name), versionOutput)
		},
	}
	versionCmd.Flags().StringVarP(&versionOutput, "output", "o", "text", "output format (text, yaml, json)")
	rootCmd.AddCommand(versionCmd)

	// config command
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration management commands",
	}

	configCmd.AddCommand(&cobra.Command{
		Use:   "validate",
		Short: "Validate configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			loader, err := newLoader(cmd.Flags())
			if err != nil {
				return err
			}
			cfg, err := loader.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if opts.ValidateConfig != nil {
				if err := opts.ValidateConfig(cfg); err != nil {
					return fmt.Errorf("custom validation failed: %w", err)
				}
			}
			fmt.Fprintln(cmd.OutOrStdout(), "✓ Configuration is valid")
			return nil
		},
	})

	var showSecrets bool
	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			loader, err := newLoader(cmd.Flags())
			if err != nil {
				return err
			}
			cfg, err := loader.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			applyResolvedServiceName(cfg, opts.Name, serviceNameOverride)

			var formatted string
			if showSecrets {
				formatted = cfg.String()
			} else if formatted, err = cfg.Redacted(loader.Secrets()); err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), formatted)
			return nil
		},
	}
	showCmd.Flags().BoolVar(&showSecrets, "show-secrets", false, "show secret values")
	configCmd.AddCommand(showCmd)

	configCmd.AddCommand(&cobra.Command{
		Use:   "schema",
		Short: "Print the JSON schema of the configuration file",
		RunE: func(cmd *cobra.Command, args []string) error {
			schema, err := configschema.BuildSchema(config.DefaultConfig())
			if err != nil {
				return fmt.Errorf("build config schema: %w", err)
			}
			data, err := json.MarshalIndent(schema, "", "  ")
			if err != nil {
				return fmt.Errorf("marshal config schema: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(data))
			return nil
		},
	})

	rootCmd.AddCommand(configCmd)

	if opts.Commands != nil {
		for _, appCmd := range opts.Commands(load) {
			rootCmd.AddCommand(appCmd)
		}
	}

	rootCmd.CompletionOptions.DisableDefaultCmd = false
	rootCmd.InitDefaultCompletionCmd()

	return rootCmd
}

// LoadConfigAndLogger loads configuration through loader and builds the zap
// logger it describes.
func LoadConfigAndLogger(
	loader config.Loader,
	customValidator func(*config.Config) error,
	defaultServiceName string,
	serviceNameOverride string,
) (*config.Config, logger.Logger, error) {
	cfg, err := loader.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	applyResolvedServiceName(cfg, defaultServiceName, serviceNameOverride)

	// Built-in validation already ran in Load
	if customValidator != nil {
		if err := customValidator(cfg); err != nil {
			return nil, nil, fmt.Errorf("custom validation failed: %w", err)
		}
	}

	log, err := newLogger(cfg, os.Stderr)
	if err != nil {
		return nil, nil, err
	}

	logConfigIfDebug(log, cfg)
	return cfg, log, nil
}

func newLogger(cfg *config.Config, out io.Writer) (*logger.ZapLogger, error) {
	level, err := logger.ParseLogLevel(cfg.Log.Level)
	if err != nil {
		return nil, err
	}
	format, err := logger.ParseLogFormat(cfg.Log.Format)
	if err != nil {
		return nil, err
	}
	log, err := logger.NewZapLogger(logger.Config{Level: level, Format: format, Output: out})
	if err != nil {
		return nil, fmt.Errorf("create logger: %w", err)
	}
	return log, nil
}

func printVersion(w io.Writer, info version.Info, output string) error {
	switch strings.ToLower(strings.TrimSpace(output)) {
	case "", "text":
		fmt.Fprintf(w, "Service:    %s\n", info.Service)
		fmt.Fprintf(w, "Version:    %s\n", info.Version)
		fmt.Fprintf(w, "Commit:     %s\n", info.Commit)
		fmt.Fprintf(w, "Build Time: %s\n", info.BuildTime)
		fmt.Fprintf(w, "User Agent: %s\n", info.UserAgent())
		return nil
	case "yaml":
		return yaml.NewEncoder(w).Encode(info)
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(info)
	default:
		return fmt.Errorf("unsupported output format %q", output)
	}
}

func applySecretFileFlag(envPrefix, secretFilePath string) error {
	if secretFilePath == "" {
		return nil
	}
	info, err := os.Stat(secretFilePath)
	if err != nil {
		return fmt.Errorf("secret file %s is not accessible: %w", secretFilePath, err)
	}
	if info.IsDir() {
		return fmt.Errorf("secret file %s must not be a directory", secretFilePath)
	}
	return os.Setenv(resolveEnvPrefix(envPrefix)+"_SECRETS_FILE", filepath.Clean(secretFilePath))
}

// Execute runs the command and exits with appropriate code.
func Execute(cmd *cobra.Command) {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitCode(err))
	}
}

// ExitError carries a specific process exit code.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string { return e.Err.Error() }

func (e *ExitError) Unwrap() error { return e.Err }

func exitCode(err error) int {
	var exitErr *ExitError
	if errors.As(err, &exitErr) && exitErr.Code > 0 {
		return exitErr.Code
	}
	return 1
}

func logConfigIfDebug(log logger.Logger, cfg *config.Config) {
	if log == nil || cfg == nil {
		return
	}

	if !strings.EqualFold(cfg.Log.Level, string(logger.DebugLevel)) {
		return
	}

	redacted, err := cfg.Redacted(nil)
	if err != nil {
		return
	}
	log.Debug("effective configuration", "config", redacted)
}

func resolveEnvPrefix(prefix string) string {
	trimmed := strings.TrimSpace(prefix)
	if trimmed == "" {
		return config.DefaultEnvPrefix
	}
	return strings.ToUpper(trimmed)
}

func applyResolvedServiceName(cfg *config.Config, defaultServiceName, serviceNameOverride string) {
	if cfg == nil {
		return
	}
	cfg.Service.Name = resolveServiceNameValue(cfg.Service.Name, defaultServiceName, serviceNameOverride)
}

func resolveServiceNameValue(currentConfigName, defaultServiceName, serviceNameOverride string) string {
	if override := strings.TrimSpace(serviceNameOverride); override != "" {
		return override
	}
	if configured := strings.TrimSpace(currentConfigName); configured != "" {
		return configured
	}
	if fallback := strings.TrimSpace(defaultServiceName); fallback != "" {
		return fallback
	}
	return config.DefaultConfig().Service.Name
}
