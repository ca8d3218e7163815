// Package config provides TOML configuration file loading and parsing for the host.
// The configuration file lives at ~/.scriptkit/config.toml by default, but can be
// overridden with the --config flag. CLI flags always take precedence over file values.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

// Config represents the host configuration file structure.
// Field names use Go camelCase internally but map to snake_case in TOML files
// via struct tags.
type Config struct {
	// BunPath overrides the discovered bun executable path.
	// If empty, the launcher searches well-known install locations and PATH.
	BunPath string `toml:"bun_path"`

	// NodePath overrides the discovered node executable path.
	// If empty, the launcher searches well-known install locations and PATH.
	NodePath string `toml:"node_path"`

	// SDKPath overrides SDK bootstrap resolution.
	// If empty, the launcher falls back to the extracted embedded copy,
	// then the path relative to the executable, then the development tree.
	SDKPath string `toml:"sdk_path"`

	// StateDir is the directory for process bookkeeping files
	// (active-bun-pids.json, script-kit.pid) and the extracted SDK.
	// Default: ~/.scriptkit
	StateDir string `toml:"state_dir"`

	// DBPath is the path to the SQLite database for script run history.
	// Default: <state_dir>/scriptkit.db
	DBPath string `toml:"db_path"`

	// StatusAddr is the host:port for the diagnostic status feed.
	// Empty disables the feed. Default: empty (disabled)
	StatusAddr string `toml:"status_addr"`

	// GracePeriodMs is how long a script process gets to exit after SIGTERM
	// before the whole group is killed with SIGKILL.
	// Default: 2000
	GracePeriodMs int `toml:"grace_period_ms"`

	// PollIntervalMs is the liveness poll interval during the grace period.
	// Default: 50
	PollIntervalMs int `toml:"poll_interval_ms"`

	// LogLevel controls logging verbosity: debug, info, warn, error.
	// Default: info
	LogLevel string `toml:"log_level"`
}

// GracePeriod returns the SIGTERM grace period as a duration,
// falling back to the default when unset.
func (c *Config) GracePeriod() time.Duration {
	ms := c.GracePeriodMs
	if ms <= 0 {
		ms = DefaultGracePeriodMs
	}
	return time.Duration(ms) * time.Millisecond
}

// PollInterval returns the liveness poll interval as a duration,
// falling back to the default when unset.
func (c *Config) PollInterval() time.Duration {
	ms := c.PollIntervalMs
	if ms <= 0 {
		ms = DefaultPollIntervalMs
	}
	return time.Duration(ms) * time.Millisecond
}

// ResolveStateDir returns the configured state directory, falling back
// to ~/.scriptkit when unset.
func (c *Config) ResolveStateDir() (string, error) {
	if c.StateDir != "" {
		return c.StateDir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ".scriptkit"), nil
}

// ResolveDBPath returns the configured database path, falling back
// to <state_dir>/scriptkit.db when unset.
func (c *Config) ResolveDBPath() (string, error) {
	if c.DBPath != "" {
		return c.DBPath, nil
	}
	stateDir, err := c.ResolveStateDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(stateDir, "scriptkit.db"), nil
}

// DefaultConfigPath returns the default config file location: ~/.scriptkit/config.toml.
// Returns an error only if the user's home directory cannot be determined.
func DefaultConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ".scriptkit", "config.toml"), nil
}

// WriteDefault creates a config file with commented defaults at the given path.
//
// Behavior:
//   - If the file already exists, returns without error (does not overwrite).
//   - Creates the parent directory if it doesn't exist.
//   - Returns an error if the file cannot be written.
func WriteDefault(path string) error {
	// Check if file already exists - never overwrite
	if _, err := os.Stat(path); err == nil {
		return nil // File exists, nothing to do
	}

	// Ensure parent directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	// Build minimal TOML config with commented defaults.
	// Using a raw string to control formatting exactly.
	content := fmt.Sprintf(`# Script host configuration

# Grace period before SIGTERM escalates to SIGKILL (milliseconds)
grace_period_ms = %d

# Liveness poll interval during the grace period (milliseconds)
poll_interval_ms = %d

# Runtime overrides (searched automatically when empty)
# bun_path = "/opt/homebrew/bin/bun"
# node_path = "/usr/local/bin/node"

# Diagnostic status feed (disabled when empty)
# status_addr = "%s"
`, DefaultGracePeriodMs, DefaultPollIntervalMs, DefaultStatusAddr)

	// Write with restrictive permissions (owner read/write only)
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Load reads a TOML config file from the given path and returns a Config.
//
// Behavior:
//   - If path is empty, attempts to load from the default location (~/.scriptkit/config.toml).
//     Returns an empty Config without error if the default file doesn't exist.
//   - If path is specified, returns an error if the file doesn't exist.
//   - Returns an error if the file exists but cannot be parsed.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	if path == "" {
		// No explicit path: try default location, but don't error if missing.
		// This allows the host to start without any config file.
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			// Can't determine home dir, return empty config
			return cfg, nil
		}
		if _, err := os.Stat(defaultPath); os.IsNotExist(err) {
			// Default config doesn't exist, that's fine
			return cfg, nil
		}
		path = defaultPath
	} else {
		// Explicit path provided: error if file doesn't exist.
		// This matches user expectation: if they specify a config file, it should exist.
		if _, err := os.Stat(path); os.IsNotExist(err) {
			return nil, fmt.Errorf("config file not found: %s", path)
		}
	}

	// Parse the TOML file. Any parse error is fatal since the user expects
	// the config to be applied.
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	return cfg, nil
}
