// Package config loads and validates the tool configuration.
package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"

	"github.com/bitlockerctl/bitlockerctl/internal/validation"
)

const (
	// DefaultConfigPath is the default location for the config file.
	DefaultConfigPath = "/etc/bitlockerctl.conf"
	// DefaultPowershell is resolved from PATH when no explicit
	// executable path is configured.
	DefaultPowershell = "powershell.exe"
)

// Config holds the tool configuration.
type Config struct {
	// Powershell is the path to the PowerShell executable that provides
	// the BitLocker cmdlets.
	Powershell string `toml:"powershell"`
	// MountPoint is the default volume mount point (e.g. "E:").
	MountPoint string `toml:"mount_point"`
	// LogFile, when set, routes logs to a rotated file at this path.
	LogFile string `toml:"log_file"`
}

// Load loads configuration from a TOML file.
// Returns an empty config if the file doesn't exist.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("read config file: %w", err)
	}

	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}

	return cfg, nil
}

// Merge merges CLI flags into the config, with CLI flags taking
// precedence over config file values. Empty CLI values are ignored.
func (c *Config) Merge(powershell, mountPoint, logFile string) {
	if powershell != "" {
		c.Powershell = powershell
	}
	if mountPoint != "" {
		c.MountPoint = mountPoint
	}
	if logFile != "" {
		c.LogFile = logFile
	}
}

// ApplyDefaults applies default values for any unset fields.
func (c *Config) ApplyDefaults() {
	if c.Powershell == "" {
		c.Powershell = DefaultPowershell
	}
}

// Validate validates the configuration. The mount point is optional
// here; commands that need one enforce its presence themselves.
func (c *Config) Validate() error {
	if c.Powershell == "" {
		return fmt.Errorf("powershell executable path is required")
	}

	if c.MountPoint != "" {
		if err := validation.ValidateMountPoint(c.MountPoint); err != nil {
			return fmt.Errorf("invalid mount point: %w", err)
		}
	}

	return nil
}
