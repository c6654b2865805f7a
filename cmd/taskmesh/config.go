package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"taskmesh/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config [key] [value]",
	Short: "Manage configuration",
	Long: `View or modify taskmesh configuration.

Without arguments, displays current configuration.
With one argument (key), displays the value for that key.
With two arguments (key value), sets the configuration value.

Configuration is stored at ~/.config/taskmesh/config.yaml
Project-specific overrides can be placed in .taskmesh.yaml`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := config.Load()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
			os.Exit(1)
		}

		switch len(args) {
		case 0:
			displayAllConfig(cfg)
		case 1:
			displayConfigKey(cfg, args[0])
		default:
			setConfigKey(cfg, args[0], args[1])
		}
	},
}

// displayAllConfig prints all configuration values.
func displayAllConfig(cfg *config.Config) {
	fmt.Printf("orchestration.overload_threshold: %.1f\n", cfg.Orchestration.OverloadThreshold)
	fmt.Printf("orchestration.underload_threshold: %.1f\n", cfg.Orchestration.UnderloadThreshold)
	fmt.Printf("sessions.default_max_duration: %s\n", cfg.Sessions.DefaultMaxDuration)
	fmt.Printf("state.db_path: %s\n", cfg.State.DBPath)
	fmt.Printf("roles.dir: %s\n", displayOrUnset(cfg.Roles.Dir))
	fmt.Printf("roles.watch: %t\n", cfg.Roles.Watch)
	fmt.Printf("debug.log_file: %s\n", displayOrUnset(cfg.Debug.LogFile))
	fmt.Printf("capabilities: %s\n", strings.Join(cfg.CapabilityNames(), ", "))
}

func displayOrUnset(v string) string {
	if v == "" {
		return "(not set)"
	}
	return v
}

// displayConfigKey prints a single configuration value.
func displayConfigKey(cfg *config.Config, key string) {
	value, err := getConfigValue(cfg, key)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(value)
}

// setConfigKey sets a configuration value and saves the config.
func setConfigKey(cfg *config.Config, key, value string) {
	if err := setConfigValue(cfg, key, value); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if err := config.Save(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Error saving config: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Set %s = %s\n", key, value)
}

// getConfigValue retrieves a configuration value by dot-notation key.
func getConfigValue(cfg *config.Config, key string) (string, error) {
	switch strings.ToLower(key) {
	case "orchestration.overload_threshold":
		return strconv.FormatFloat(cfg.Orchestration.OverloadThreshold, 'f', 1, 64), nil
	case "orchestration.underload_threshold":
		return strconv.FormatFloat(cfg.Orchestration.UnderloadThreshold, 'f', 1, 64), nil
	case "sessions.default_max_duration":
		return cfg.Sessions.DefaultMaxDuration.String(), nil
	case "state.db_path":
		return cfg.State.DBPath, nil
	case "roles.dir":
		return displayOrUnset(cfg.Roles.Dir), nil
	case "roles.watch":
		return strconv.FormatBool(cfg.Roles.Watch), nil
	case "debug.log_file":
		return displayOrUnset(cfg.Debug.LogFile), nil
	default:
		return "", fmt.Errorf("unknown configuration key: %s", key)
	}
}

// setConfigValue sets a configuration value by dot-notation key.
func setConfigValue(cfg *config.Config, key, value string) error {
	switch strings.ToLower(key) {
	case "orchestration.overload_threshold":
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("invalid number for overload_threshold: %w", err)
		}
		cfg.Orchestration.OverloadThreshold = f
	case "orchestration.underload_threshold":
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("invalid number for underload_threshold: %w", err)
		}
		cfg.Orchestration.UnderloadThreshold = f
	case "sessions.default_max_duration":
		d, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("invalid duration for default_max_duration: %w", err)
		}
		cfg.Sessions.DefaultMaxDuration = d
	case "state.db_path":
		cfg.State.DBPath = value
	case "roles.dir":
		cfg.Roles.Dir = value
	case "roles.watch":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid boolean for roles.watch: %w", err)
		}
		cfg.Roles.Watch = b
	case "debug.log_file":
		cfg.Debug.LogFile = value
	default:
		return fmt.Errorf("unknown configuration key: %s", key)
	}
	return nil
}
