// Package config handles configuration loading and management for taskmesh.
// It supports XDG config paths, project-level overrides, and environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for taskmesh.
type Config struct {
	Orchestration OrchestrationConfig `mapstructure:"orchestration"`
	Sessions      SessionsConfig      `mapstructure:"sessions"`
	State         StateConfig         `mapstructure:"state"`
	Roles         RolesConfig         `mapstructure:"roles"`
	Debug         DebugConfig         `mapstructure:"debug"`

	// Capabilities maps a capability name to the keywords that suggest a
	// tree needs it. Trees matching none of the keywords fall back to
	// "general" and can go to any agent.
	Capabilities map[string][]string `mapstructure:"capabilities"`
}

// OrchestrationConfig holds the orchestration cycle tunables.
type OrchestrationConfig struct {
	// OverloadThreshold is the workload percentage at or above which an
	// agent counts as overloaded.
	OverloadThreshold float64 `mapstructure:"overload_threshold"`
	// UnderloadThreshold is the workload percentage at or below which an
	// agent counts as underloaded.
	UnderloadThreshold float64 `mapstructure:"underload_threshold"`
}

// SessionsConfig holds work session settings.
type SessionsConfig struct {
	// DefaultMaxDuration bounds new sessions; zero means unbounded.
	DefaultMaxDuration time.Duration `mapstructure:"default_max_duration"`
}

// StateConfig holds persistence settings.
type StateConfig struct {
	// DBPath is the SQLite database file location.
	DBPath string `mapstructure:"db_path"`
}

// RolesConfig holds persona loading settings.
type RolesConfig struct {
	// Dir is the directory containing role YAML files.
	Dir string `mapstructure:"dir"`
	// Watch enables reloading roles when the files change.
	Watch bool `mapstructure:"watch"`
}

// DebugConfig holds debug logging settings.
type DebugConfig struct {
	// LogFile is where orchestrator debug output goes; empty disables it.
	LogFile string `mapstructure:"log_file"`
}

// Load loads configuration from XDG paths, project overrides, and environment variables.
// Precedence (highest to lowest):
// 1. Environment variables (TASKMESH_*)
// 2. Project config (.taskmesh.yaml in current directory or parent)
// 3. User config (~/.config/taskmesh/config.yaml)
// 4. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()

	setDefaults(v)

	userConfigDir := getUserConfigDir()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(userConfigDir)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading user config: %w", err)
		}
	}

	// Project config takes precedence over the user config.
	projectConfig := findProjectConfig()
	if projectConfig != "" {
		projectViper := viper.New()
		projectViper.SetConfigFile(projectConfig)
		if err := projectViper.ReadInConfig(); err == nil {
			if err := v.MergeConfigMap(projectViper.AllSettings()); err != nil {
				return nil, fmt.Errorf("merging project config: %w", err)
			}
		}
	}

	v.SetEnvPrefix("TASKMESH")
	v.AutomaticEnv()
	v.BindEnv("state.db_path", "TASKMESH_DB_PATH")
	v.BindEnv("debug.log_file", "TASKMESH_DEBUG_LOG")

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}
	cfg.State.DBPath = os.ExpandEnv(cfg.State.DBPath)
	cfg.Roles.Dir = os.ExpandEnv(cfg.Roles.Dir)

	return cfg, nil
}

// LoadFromPath loads configuration from a specific path (for testing).
func LoadFromPath(path string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}
	cfg.State.DBPath = os.ExpandEnv(cfg.State.DBPath)
	cfg.Roles.Dir = os.ExpandEnv(cfg.Roles.Dir)

	return cfg, nil
}

// Save writes the current configuration to the user config file.
func Save(cfg *Config) error {
	userConfigDir := getUserConfigDir()
	if err := os.MkdirAll(userConfigDir, 0700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	configPath := filepath.Join(userConfigDir, "config.yaml")

	v := viper.New()
	v.SetConfigFile(configPath)

	v.Set("orchestration.overload_threshold", cfg.Orchestration.OverloadThreshold)
	v.Set("orchestration.underload_threshold", cfg.Orchestration.UnderloadThreshold)
	v.Set("sessions.default_max_duration", cfg.Sessions.DefaultMaxDuration.String())
	v.Set("state.db_path", cfg.State.DBPath)
	v.Set("roles.dir", cfg.Roles.Dir)
	v.Set("roles.watch", cfg.Roles.Watch)
	v.Set("debug.log_file", cfg.Debug.LogFile)
	v.Set("capabilities", cfg.Capabilities)

	return v.WriteConfig()
}

// GetUserConfigPath returns the path to the user config file.
func GetUserConfigPath() string {
	return filepath.Join(getUserConfigDir(), "config.yaml")
}

// GetProjectConfigPath returns the path to the project config file if it exists.
func GetProjectConfigPath() string {
	return findProjectConfig()
}

// CapabilityNames returns the configured capability names, sorted.
func (c *Config) CapabilityNames() []string {
	names := make([]string, 0, len(c.Capabilities))
	for name := range c.Capabilities {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// setDefaults configures default values.
func setDefaults(v *viper.Viper) {
	v.SetDefault("orchestration.overload_threshold", 80.0)
	v.SetDefault("orchestration.underload_threshold", 50.0)

	v.SetDefault("sessions.default_max_duration", "0s")

	v.SetDefault("state.db_path", defaultDBPath())

	v.SetDefault("roles.dir", "")
	v.SetDefault("roles.watch", false)

	v.SetDefault("debug.log_file", "")

	v.SetDefault("capabilities", defaultCapabilityKeywords())
}

// defaultCapabilityKeywords is the built-in capability keyword table used
// to match tree names to the agents that can serve them.
func defaultCapabilityKeywords() map[string][]string {
	return map[string][]string{
		"frontend_development": {"frontend", "react", "ui", "component", "css", "web"},
		"backend_development":  {"backend", "api", "rest", "server", "python", "database"},
		"testing":              {"test", "testing", "qa", "quality"},
		"devops":               {"deploy", "deployment", "docker", "infrastructure", "ci"},
		"documentation":        {"documentation", "docs", "guide"},
	}
}

// getUserConfigDir returns the XDG config directory for taskmesh.
func getUserConfigDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "taskmesh")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".config", "taskmesh")
	}
	return filepath.Join(home, ".config", "taskmesh")
}

// defaultDBPath returns the XDG data location for the state database.
func defaultDBPath() string {
	if xdgData := os.Getenv("XDG_DATA_HOME"); xdgData != "" {
		return filepath.Join(xdgData, "taskmesh", "taskmesh.db")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", "taskmesh.db")
	}
	return filepath.Join(home, ".local", "share", "taskmesh", "taskmesh.db")
}

// findProjectConfig searches for .taskmesh.yaml in the current directory and parents.
func findProjectConfig() string {
	cwd, err := os.Getwd()
	if err != nil {
		return ""
	}

	for {
		configPath := filepath.Join(cwd, ".taskmesh.yaml")
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}

		parent := filepath.Dir(cwd)
		if parent == cwd {
			break
		}
		cwd = parent
	}

	return ""
}

// Default returns a Config with default values.
func Default() *Config {
	return &Config{
		Orchestration: OrchestrationConfig{
			OverloadThreshold:  80.0,
			UnderloadThreshold: 50.0,
		},
		Sessions: SessionsConfig{
			DefaultMaxDuration: 0,
		},
		State: StateConfig{
			DBPath: defaultDBPath(),
		},
		Capabilities: defaultCapabilityKeywords(),
	}
}
