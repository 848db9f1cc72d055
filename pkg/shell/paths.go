package shell

import (
	"fmt"
	"os"
	"path/filepath"

	"src.oopis.dev/pkg/env"
)

// Environment variables that override the default locations.
const (
	dbEnv     = env.OOPIS_DB
	configEnv = env.OOPIS_CONFIG
)

// DBPath returns the path of the state database: $OOPIS_DB when set,
// otherwise oopis/oopis.db under the OS-specific user config directory.
func DBPath() (string, error) {
	if path := os.Getenv(dbEnv); path != "" {
		return path, nil
	}
	return configHomePath("oopis.db")
}

// ConfigPath returns the path of the configuration file: $OOPIS_CONFIG when
// set, otherwise oopis/config.yaml under the user config directory. The
// file does not have to exist.
func ConfigPath() (string, error) {
	if path := os.Getenv(configEnv); path != "" {
		return path, nil
	}
	return configHomePath("config.yaml")
}

func configHomePath(name string) (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("find user config dir: %w", err)
	}
	return filepath.Join(dir, "oopis", name), nil
}
