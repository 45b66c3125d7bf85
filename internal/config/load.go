package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"gopkg.in/yaml.v3"
)

// Load loads configuration with priority: defaults < file < flags.
func Load() (*Config, error) {
	// Start with defaults
	cfg := Default()

	// Try to load from file (explicit path takes priority)
	configPath := ConfigPath()
	if configPath == "" {
		configPath = findConfigFile()
	}

	if configPath != "" {
		if err := loadFromFile(cfg, configPath); err != nil {
			return nil, fmt.Errorf("loading config from %s: %w", configPath, err)
		}
	}

	// Apply CLI flags (highest priority)
	applyFlags(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// findConfigFile looks for config in standard locations.
func findConfigFile() string {
	candidates := []string{
		"./config.yaml",
		filepath.Join(ConfigDir(), "config.yaml"),
	}

	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// ConfigDir returns the OS-appropriate config directory.
func ConfigDir() string {
	switch runtime.GOOS {
	case "darwin":
		home, _ := os.UserHomeDir()
		return filepath.Join(home, "Library", "Application Support", "Terrasync")
	case "windows":
		return filepath.Join(os.Getenv("APPDATA"), "Terrasync")
	default: // Linux and others
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			return filepath.Join(xdg, "terrasync")
		}
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".config", "terrasync")
	}
}

// loadFromFile loads config from a YAML file, merging with existing values.
func loadFromFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

// Validate rejects settings the session cannot start with.
func (c *Config) Validate() error {
	if c.Session.GNDPath == "" && (c.Session.Rows <= 0 || c.Session.Cols <= 0) {
		return fmt.Errorf("invalid field size %dx%d", c.Session.Rows, c.Session.Cols)
	}
	if c.Session.GRFPath != "" && c.Session.GNDPath == "" {
		return fmt.Errorf("grf_path %s set without gnd_path", c.Session.GRFPath)
	}
	if c.Session.Debounce < 0 {
		return fmt.Errorf("negative debounce %v", c.Session.Debounce)
	}
	if c.Session.MaxWait < 0 {
		return fmt.Errorf("negative max_wait %v", c.Session.MaxWait)
	}
	if c.Session.FlushAreaThreshold < 0 {
		return fmt.Errorf("negative flush_area_threshold %d", c.Session.FlushAreaThreshold)
	}
	if c.Mesh.Spacing <= 0 {
		return fmt.Errorf("mesh spacing must be positive, got %v", c.Mesh.Spacing)
	}
	return nil
}
