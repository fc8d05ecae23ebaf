// Package config loads the dlcmd site configuration using koanf.
// Configuration is loaded with priority: command-line overrides > environment
// variables (DLCMD_*) > site config (<site>/etc/dlcmd.yml) > user config
// (~/.config/dlcmd/config.yml) > defaults. Site and user files may be YAML or
// JSON, selected by file extension.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix is the prefix of environment variables read into the configuration.
const EnvPrefix = "DLCMD_"

// Schemes holds the base URL of each download scheme. An empty base URL
// disables the scheme.
type Schemes struct {
	HTTP string `koanf:"http" yaml:"http" validate:"omitempty,url"`
	SSH  string `koanf:"ssh" yaml:"ssh" validate:"omitempty,url"`
	Git  string `koanf:"git" yaml:"git" validate:"omitempty,url"`
}

// Configuration represents the dlcmd site configuration
type Configuration struct {
	// SitePath is the directory holding git/<project>.git bare repositories.
	SitePath string `koanf:"site_path" yaml:"site_path" validate:"required"`

	// PluginName is the project.config plugin section commands are read from.
	PluginName  string `koanf:"plugin_name" yaml:"plugin_name" validate:"required"`
	ConfigRef   string `koanf:"config_ref" yaml:"config_ref" validate:"required,startswith=refs/"`
	AllProjects string `koanf:"all_projects" yaml:"all_projects" validate:"required"`

	CacheSize int `koanf:"cache_size" yaml:"cache_size" validate:"min=1"`
	QueueSize int `koanf:"queue_size" yaml:"queue_size" validate:"min=1"`

	LogLevel  string `koanf:"log_level" yaml:"log_level" validate:"oneof=trace debug info warn warning error"`
	LogFormat string `koanf:"log_format" yaml:"log_format" validate:"oneof=text json"`

	// MetricsAddr is the listen address of the /metrics endpoint; empty disables it.
	MetricsAddr string `koanf:"metrics_addr" yaml:"metrics_addr" validate:"omitempty,hostname_port"`

	// PollInterval bounds how long a missed filesystem notification can delay
	// an update.
	PollInterval time.Duration `koanf:"poll_interval" yaml:"poll_interval" validate:"min=10ms"`

	Schemes Schemes `koanf:"schemes" yaml:"schemes"`
}

// GitDir returns the directory holding the project repositories.
func (c *Configuration) GitDir() string {
	return filepath.Join(c.SitePath, "git")
}

// LoadOptions configures how configuration is loaded
type LoadOptions struct {
	// ConfigPath overrides the site config path (default: <site>/etc/dlcmd.yml)
	ConfigPath string
	// SitePath overrides site_path from every other source
	SitePath string
	// SkipUserConfig ignores ~/.config/dlcmd/config.yml
	SkipUserConfig bool
}

// Load loads configuration from user, site, and environment sources.
func Load(opts LoadOptions) (*Configuration, error) {
	k := koanf.New(".")

	loadDefaults(k)

	if !opts.SkipUserConfig {
		if err := loadUserConfig(k); err != nil {
			return nil, err
		}
	}

	sitePath := opts.SitePath
	if sitePath == "" {
		sitePath = k.String("site_path")
	}
	configPath := opts.ConfigPath
	if configPath == "" {
		configPath = SiteConfigPath(expandHomePath(sitePath))
	}
	if err := loadFile(k, configPath, "site", opts.ConfigPath != ""); err != nil {
		return nil, err
	}

	if err := loadEnvironmentConfig(k); err != nil {
		return nil, err
	}

	if opts.SitePath != "" {
		if err := k.Set("site_path", opts.SitePath); err != nil {
			return nil, fmt.Errorf("overriding site_path: %w", err)
		}
	}

	return finalizeConfig(k, configPath)
}

// loadDefaults applies default configuration values
func loadDefaults(k *koanf.Koanf) {
	for key, value := range GetDefaults() {
		_ = k.Set(key, value)
	}
}

// loadUserConfig loads the user-level config when it exists.
func loadUserConfig(k *koanf.Koanf) error {
	path, err := UserConfigPath()
	if err != nil {
		return nil
	}
	return loadFile(k, path, "user", false)
}

// loadFile loads a YAML or JSON config file. A missing file is an error only
// when it was named explicitly.
func loadFile(k *koanf.Koanf, path, configType string, required bool) error {
	if !fileExists(path) {
		if required {
			return fmt.Errorf("loading %s config: %s does not exist", configType, path)
		}
		return nil
	}

	if strings.EqualFold(filepath.Ext(path), ".json") {
		if err := k.Load(file.Provider(path), json.Parser()); err != nil {
			return fmt.Errorf("failed to load %s config %s: %w", configType, path, err)
		}
		return nil
	}

	if err := ValidateYAMLSyntax(path); err != nil {
		return fmt.Errorf("validating YAML syntax for %s config: %w", configType, err)
	}
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return fmt.Errorf("failed to load %s config %s: %w", configType, path, err)
	}
	return nil
}

// loadEnvironmentConfig loads environment variable overrides
func loadEnvironmentConfig(k *koanf.Koanf) error {
	if err := k.Load(env.Provider(EnvPrefix, ".", envTransform), nil); err != nil {
		return fmt.Errorf("failed to load environment config: %w", err)
	}
	return nil
}

// finalizeConfig unmarshals, validates, and applies final transformations
func finalizeConfig(k *koanf.Koanf, source string) (*Configuration, error) {
	var cfg Configuration
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := ValidateConfigValues(&cfg, source); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	cfg.SitePath = expandHomePath(cfg.SitePath)
	return &cfg, nil
}

// fileExists returns true if the file exists and is readable
func fileExists(path string) bool {
	if path == "" {
		return false
	}
	_, err := os.Stat(path)
	return err == nil
}

// envTransform converts environment variable names to config keys.
// A double underscore separates nested keys.
// Example: DLCMD_CACHE_SIZE -> cache_size, DLCMD_SCHEMES__HTTP -> schemes.http
func envTransform(s string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, EnvPrefix)), "__", ".")
}

// expandHomePath expands ~ to the user's home directory
func expandHomePath(path string) string {
	if strings.HasPrefix(path, "~/") {
		homeDir, err := os.UserHomeDir()
		if err == nil {
			return filepath.Join(homeDir, path[2:])
		}
	}
	return path
}
