package config

import (
	"fmt"
	"os"

	"dario.cat/mergo"
	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"github.com/eugenenazirov/confstack/internal/resolver"
)

// EnvPrefix prefixes every environment variable read into Settings.
const EnvPrefix = "CONFSTACK_"

const (
	OutputYAML = "yaml"
	OutputJSON = "json"

	defaultLogLevel  = "warn"
	defaultLogFormat = "console"
)

// Settings aggregates the tool configuration resolved from multiple sources.
// Zero values mean "not set" when layering sources.
type Settings struct {
	Service           string `yaml:"service" env:"SERVICE"`
	Version           string `yaml:"version" env:"VERSION"`
	ParentApplication string `yaml:"parent_application" env:"PARENT_APPLICATION"`
	Extension         string `yaml:"extension" env:"EXTENSION"`
	RootVariable      string `yaml:"root_variable" env:"ROOT_VARIABLE"`
	LocalDirectory    string `yaml:"local_directory" env:"LOCAL_DIRECTORY"`
	ExpansionDepth    int    `yaml:"expansion_depth" env:"EXPANSION_DEPTH"`
	LogLevel          string `yaml:"log_level" env:"LOG_LEVEL"`
	LogFormat         string `yaml:"log_format" env:"LOG_FORMAT"`
	Output            string `yaml:"output" env:"OUTPUT"`
}

// CLIOverrides holds command-line flag overrides.
type CLIOverrides struct {
	SettingsFile string
	Settings     Settings
}

// Load resolves Settings with precedence:
// CLI flags > Environment variables > YAML settings file > Defaults
func Load(overrides *CLIOverrides) (Settings, error) {
	cfg := defaultSettings()

	if overrides != nil && overrides.SettingsFile != "" {
		fileCfg, err := loadFromFile(overrides.SettingsFile)
		if err != nil {
			return Settings{}, fmt.Errorf("load YAML settings: %w", err)
		}
		if err := apply(&cfg, fileCfg); err != nil {
			return Settings{}, err
		}
	}

	envCfg, err := parseEnv()
	if err != nil {
		return Settings{}, err
	}
	if err := apply(&cfg, envCfg); err != nil {
		return Settings{}, err
	}

	if overrides != nil {
		if err := apply(&cfg, overrides.Settings); err != nil {
			return Settings{}, err
		}
	}

	if err := validateSettings(cfg); err != nil {
		return Settings{}, err
	}
	return cfg, nil
}

// defaultSettings returns Settings with default values.
func defaultSettings() Settings {
	return Settings{
		ParentApplication: resolver.DefaultParentApplication,
		Extension:         resolver.DefaultExtension,
		RootVariable:      resolver.DefaultEnvironmentVariable,
		LocalDirectory:    resolver.DefaultLocalDirectory,
		ExpansionDepth:    1,
		LogLevel:          defaultLogLevel,
		LogFormat:         defaultLogFormat,
		Output:            OutputYAML,
	}
}

// loadFromFile loads settings from a YAML file.
func loadFromFile(path string) (Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Settings{}, fmt.Errorf("read file: %w", err)
	}

	var fileCfg Settings
	if err := yaml.Unmarshal(data, &fileCfg); err != nil {
		return Settings{}, fmt.Errorf("parse YAML: %w", err)
	}
	return fileCfg, nil
}

// parseEnv reads CONFSTACK_* variables; unset variables stay zero.
func parseEnv() (Settings, error) {
	var envCfg Settings
	if err := env.ParseWithOptions(&envCfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return Settings{}, fmt.Errorf("error getting env settings: %w", err)
	}
	return envCfg, nil
}

// apply overrides cfg with the non-zero fields of layer.
func apply(cfg *Settings, layer Settings) error {
	if err := mergo.Merge(cfg, layer, mergo.WithOverride); err != nil {
		return fmt.Errorf("error merging settings: %w", err)
	}
	return nil
}

// validateSettings validates the final settings.
func validateSettings(cfg Settings) error {
	if cfg.Service == "" {
		return fmt.Errorf("service name is required")
	}
	if cfg.ExpansionDepth < 1 {
		return fmt.Errorf("expansion depth must be >= 1, got %d", cfg.ExpansionDepth)
	}
	switch cfg.Output {
	case OutputYAML, OutputJSON:
	default:
		return fmt.Errorf("unsupported output format %q", cfg.Output)
	}
	return nil
}
