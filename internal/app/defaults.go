package app

import (
	"fmt"
	"os"
	"path/filepath"
)

// Environment overrides for default paths.
const (
	EnvConfigPath = "AUTOSAVER_CONFIG_PATH"
	EnvHome       = "AUTOSAVER_HOME"
)

// GetDefaults returns application default paths, checking environment variables first.
// Environment variables:
//   - AUTOSAVER_CONFIG_PATH: config file location (default: ~/.config/autosaver.toml)
//   - AUTOSAVER_HOME: base directory for autosaver data (default: ~/.local/share/autosaver)
func GetDefaults() (map[string]string, error) {
	configPath, err := fromEnvOrHome(EnvConfigPath, ".config", "autosaver.toml")
	if err != nil {
		return nil, err
	}

	baseDir, err := fromEnvOrHome(EnvHome, ".local", "share", "autosaver")
	if err != nil {
		return nil, err
	}

	return map[string]string{
		"config_path": configPath,
		"base_dir":    baseDir,
		"log_dir":     filepath.Join(baseDir, "log"),
	}, nil
}

// fromEnvOrHome returns $env if set, otherwise the path under the home directory.
func fromEnvOrHome(env string, elem ...string) (string, error) {
	if path := os.Getenv(env); path != "" {
		return path, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(append([]string{homeDir}, elem...)...), nil
}
