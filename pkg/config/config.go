package config

import (
	"context"
	"time"
)

// Config represents the complete configuration for docsweep.
type Config struct {
	Normalize NormalizeConfig `koanf:"normalize" validate:"required"`
	Purge     PurgeConfig     `koanf:"purge"     validate:"required"`
	Runtime   RuntimeConfig   `koanf:"runtime"   validate:"required"`
}

// NormalizeConfig controls the field normalizer.
type NormalizeConfig struct {
	Root                 string   `koanf:"root"                    validate:"required"                 env:"DOCSWEEP_NORMALIZE_ROOT"`
	RootRelativeToBinary bool     `koanf:"root_relative_to_binary"                                     env:"DOCSWEEP_NORMALIZE_ROOT_RELATIVE_TO_BINARY"`
	Extension            string   `koanf:"extension"               validate:"required,extension"       env:"DOCSWEEP_NORMALIZE_EXTENSION"`
	Field                string   `koanf:"field"                   validate:"required,field_name"      env:"DOCSWEEP_NORMALIZE_FIELD"`
	Include              []string `koanf:"include"                 validate:"dive,glob"                env:"DOCSWEEP_NORMALIZE_INCLUDE"`
	Exclude              []string `koanf:"exclude"                 validate:"dive,glob"                env:"DOCSWEEP_NORMALIZE_EXCLUDE"`
	FollowSymlinks       bool     `koanf:"follow_symlinks"                                             env:"DOCSWEEP_NORMALIZE_FOLLOW_SYMLINKS"`
	ContinueOnError      bool     `koanf:"continue_on_error"                                           env:"DOCSWEEP_NORMALIZE_CONTINUE_ON_ERROR"`
	DryRun               bool     `koanf:"dry_run"                                                     env:"DOCSWEEP_NORMALIZE_DRY_RUN"`
}

// PurgeConfig controls the extension purge.
type PurgeConfig struct {
	Dir          string        `koanf:"dir"           validate:"required"           env:"DOCSWEEP_PURGE_DIR"`
	Extension    string        `koanf:"extension"     validate:"required,extension" env:"DOCSWEEP_PURGE_EXTENSION"`
	Workers      int           `koanf:"workers"       validate:"min=1,max=64"       env:"DOCSWEEP_PURGE_WORKERS"`
	DryRun       bool          `koanf:"dry_run"                                     env:"DOCSWEEP_PURGE_DRY_RUN"`
	FailOnError  bool          `koanf:"fail_on_error"                               env:"DOCSWEEP_PURGE_FAIL_ON_ERROR"`
	Retries      int           `koanf:"retries"       validate:"min=0,max=10"       env:"DOCSWEEP_PURGE_RETRIES"`
	RetryBackoff time.Duration `koanf:"retry_backoff" validate:"min=0"              env:"DOCSWEEP_PURGE_RETRY_BACKOFF"`
}

// RuntimeConfig contains process-level settings.
type RuntimeConfig struct {
	LogLevel  string `koanf:"log_level"  validate:"oneof=debug info warn error" env:"DOCSWEEP_LOG_LEVEL"`
	LogJSON   bool   `koanf:"log_json"                                          env:"DOCSWEEP_LOG_JSON"`
	LogSource bool   `koanf:"log_source"                                        env:"DOCSWEEP_LOG_SOURCE"`
}

// Service defines the configuration management service interface.
type Service interface {
	// Load loads configuration from the specified sources with precedence order.
	Load(ctx context.Context, sources ...Source) (*Config, error)
	// Validate checks if the configuration meets all validation requirements.
	Validate(config *Config) error
	// GetSource returns the source type that provided a specific configuration key.
	GetSource(key string) SourceType
	// GetSources returns a copy of the per-key source metadata of the last load.
	GetSources() map[string]SourceType
}

// Source defines the interface for configuration sources.
type Source interface {
	// Load reads configuration from the source.
	Load() (map[string]any, error)
	// Type returns the source type identifier.
	Type() SourceType
}

// SourceType identifies the type of configuration source.
type SourceType string

const (
	SourceCLI     SourceType = "cli"
	SourceYAML    SourceType = "yaml"
	SourceEnv     SourceType = "env"
	SourceDefault SourceType = "default"
)

// Default fixes descriptions under the content directory next to the
// executable and purges .mdx files from the working directory.
func Default() *Config {
	return &Config{
		Normalize: NormalizeConfig{
			Root:                 "content",
			RootRelativeToBinary: true,
			Extension:            ".md",
			Field:                "description",
			Include:              []string{},
			Exclude:              []string{},
		},
		Purge: PurgeConfig{
			Dir:          ".",
			Extension:    ".mdx",
			Workers:      4,
			RetryBackoff: 50 * time.Millisecond,
		},
		Runtime: RuntimeConfig{
			LogLevel: "info",
		},
	}
}
