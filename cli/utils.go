package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/compozy/docsweep/pkg/config"
	"github.com/compozy/docsweep/pkg/logger"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

type flagGetter func(flags *pflag.FlagSet, name string) (any, error)

func getString(flags *pflag.FlagSet, name string) (any, error) { return flags.GetString(name) }
func getInt(flags *pflag.FlagSet, name string) (any, error)    { return flags.GetInt(name) }
func getBool(flags *pflag.FlagSet, name string) (any, error)   { return flags.GetBool(name) }

func getStringSlice(flags *pflag.FlagSet, name string) (any, error) {
	return flags.GetStringSlice(name)
}

type flagBinding struct {
	flagName string
	key      string
	getter   flagGetter
}

var globalFlagBindings = []flagBinding{
	{"log-level", "runtime.log_level", getString},
	{"log-json", "runtime.log_json", getBool},
	{"log-source", "runtime.log_source", getBool},
}

// commandFlagBindings maps each subcommand's flags to configuration keys.
var commandFlagBindings = map[string][]flagBinding{
	"normalize": {
		{"ext", "normalize.extension", getString},
		{"field", "normalize.field", getString},
		{"include", "normalize.include", getStringSlice},
		{"exclude", "normalize.exclude", getStringSlice},
		{"follow-symlinks", "normalize.follow_symlinks", getBool},
		{"continue-on-error", "normalize.continue_on_error", getBool},
		{"dry-run", "normalize.dry_run", getBool},
		{"relative-to-binary", "normalize.root_relative_to_binary", getBool},
	},
	"purge": {
		{"ext", "purge.extension", getString},
		{"workers", "purge.workers", getInt},
		{"dry-run", "purge.dry_run", getBool},
		{"fail-on-error", "purge.fail_on_error", getBool},
		{"retries", "purge.retries", getInt},
	},
}

// positionalKeys maps a subcommand's optional first argument to a configuration key.
var positionalKeys = map[string]string{
	"normalize": "normalize.root",
	"purge":     "purge.dir",
}

// positionalDefaults are applied with a positional argument unless a flag
// already set the key. A root typed on the command line is taken as given.
var positionalDefaults = map[string]map[string]any{
	"normalize": {"normalize.root_relative_to_binary": false},
}

// extractCLIFlags collects the flags the user explicitly set on cmd, plus
// its positional argument, keyed by configuration path.
func extractCLIFlags(cmd *cobra.Command, args []string) map[string]any {
	flags := make(map[string]any)
	fs := cmd.Flags()
	addFlag := func(def flagBinding) {
		if fs.Lookup(def.flagName) == nil || !fs.Changed(def.flagName) {
			return
		}
		if value, err := def.getter(fs, def.flagName); err == nil {
			flags[def.key] = value
		}
	}
	for _, def := range globalFlagBindings {
		addFlag(def)
	}
	if debug, err := fs.GetBool("debug"); err == nil && debug {
		flags["runtime.log_level"] = string(logger.DebugLevel)
	}
	for _, def := range commandFlagBindings[cmd.Name()] {
		addFlag(def)
	}
	if key, ok := positionalKeys[cmd.Name()]; ok && len(args) > 0 {
		flags[key] = args[0]
		for k, v := range positionalDefaults[cmd.Name()] {
			if _, set := flags[k]; !set {
				flags[k] = v
			}
		}
	}
	return flags
}

// SetupGlobalConfig loads the env file, configuration and logger for cmd and
// attaches them to its context.
func SetupGlobalConfig(cmd *cobra.Command, args []string) error {
	envPath, err := loadEnvFile(cmd)
	if err != nil {
		return err
	}
	level, logJSON, logSource, err := logger.GetLoggerConfig(cmd)
	if err != nil {
		return err
	}
	ctx := logger.ContextWithLogger(cmd.Context(), logger.SetupLogger(level, logJSON, logSource))
	log := logger.FromContext(ctx)
	if envPath != "" {
		log.Debug("Environment file resolved", "path", envPath)
	}

	configFile, err := cmd.Flags().GetString("config")
	if err != nil {
		return fmt.Errorf("failed to get config flag: %w", err)
	}
	svc := config.NewService()
	sources := []config.Source{config.NewCLIProvider(extractCLIFlags(cmd, args))}
	if configFile != "" {
		sources = append([]config.Source{config.NewYAMLProvider(configFile)}, sources...)
	}
	cfg, err := svc.Load(ctx, sources...)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	runtime := cfg.Runtime
	log = logger.SetupLogger(runtime.LogLevel, runtime.LogJSON, runtime.LogSource)
	ctx = logger.ContextWithLogger(ctx, log)
	ctx = config.ContextWithConfig(ctx, cfg)
	ctx = config.ContextWithService(ctx, svc)
	cmd.SetContext(ctx)
	log.Debug("Configuration loaded", "config_file", configFile, "command", cmd.Name())
	return nil
}

// loadEnvFile loads environment variables from a file inside the working
// directory. A missing file is not an error.
func loadEnvFile(cmd *cobra.Command) (string, error) {
	envFile, err := cmd.Flags().GetString("env-file")
	if err != nil {
		return "", fmt.Errorf("failed to get env-file flag: %w", err)
	}
	if envFile == "" {
		return "", nil
	}
	pwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("failed to get current working directory: %w", err)
	}
	if !filepath.IsAbs(envFile) {
		envFile = filepath.Join(pwd, envFile)
	}
	absPath, err := filepath.Abs(filepath.Clean(envFile))
	if err != nil {
		return "", fmt.Errorf("failed to resolve env file path: %w", err)
	}
	if !isPathWithinDirectory(absPath, pwd) {
		return "", fmt.Errorf("env file path '%s' is outside the working directory", envFile)
	}
	fileInfo, err := os.Stat(absPath)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", fmt.Errorf("failed to stat env file: %w", err)
	}
	if !fileInfo.Mode().IsRegular() {
		return "", fmt.Errorf("env file path '%s' is not a regular file", envFile)
	}
	if err := godotenv.Load(absPath); err != nil {
		return "", fmt.Errorf("failed to load env file %s: %w", absPath, err)
	}
	return absPath, nil
}

func isPathWithinDirectory(path, dir string) bool {
	absPath, err := filepath.Abs(filepath.Clean(path))
	if err != nil {
		return false
	}
	absDir, err := filepath.Abs(filepath.Clean(dir))
	if err != nil {
		return false
	}
	if absPath == absDir {
		return true
	}
	if !strings.HasSuffix(absDir, string(filepath.Separator)) {
		absDir += string(filepath.Separator)
	}
	return strings.HasPrefix(absPath, absDir)
}
