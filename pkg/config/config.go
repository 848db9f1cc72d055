// Package config loads the host-side configuration of the OS core from an
// optional YAML file.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the host-side configuration, read once at startup.
type Config struct {
	// Host is the hostname shown in prompts and exposed as $HOST.
	Host string `yaml:"host"`
	// DefaultUser is the passwordless account that sessions start in and
	// fall back to on logout.
	DefaultUser string `yaml:"default-user"`
	// MaxFsBytes caps the total content size of all files in the
	// filesystem.
	MaxFsBytes int64 `yaml:"max-fs-bytes"`
	// MaxScriptSteps caps command invocations per script run.
	MaxScriptSteps int `yaml:"max-script-steps"`
	// LogFile, when set, receives debug logs from all packages.
	LogFile string `yaml:"log-file"`
}

// Default returns the configuration used when no file is present.
func Default() Config {
	return Config{
		Host:           "oopis",
		DefaultUser:    "Guest",
		MaxFsBytes:     640 * 1024 * 1024,
		MaxScriptSteps: 10000,
	}
}

// Load reads the configuration file at path. A missing file is not an
// error; it yields Default(). Fields left unset in the file also fall back
// to their defaults.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return Config{}, fmt.Errorf("read config file: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config file: %w", err)
	}
	def := Default()
	if cfg.Host == "" {
		cfg.Host = def.Host
	}
	if cfg.DefaultUser == "" {
		cfg.DefaultUser = def.DefaultUser
	}
	if cfg.MaxFsBytes == 0 {
		cfg.MaxFsBytes = def.MaxFsBytes
	}
	if cfg.MaxScriptSteps == 0 {
		cfg.MaxScriptSteps = def.MaxScriptSteps
	}
	return cfg, nil
}
