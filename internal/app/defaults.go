package app

import (
	"fmt"
	"os"
	"path/filepath"
)

// GetDefaults returns application default paths, checking environment variables first.
// Environment variables:
//   - TVP_CONFIG_PATH: config file location (default: ~/.config/tvp.toml)
//   - TVP_HOME: base directory for tvp data (default: ~/.local/share/tvp)
func GetDefaults() (map[string]string, error) {
	configPath, err := getConfigPath()
	if err != nil {
		return nil, err
	}

	baseDir, err := getBaseDir()
	if err != nil {
		return nil, err
	}

	return map[string]string{
		"config_path": configPath,
		"base_dir":    baseDir,
		"log_dir":     filepath.Join(baseDir, "log"),
		"db_dir":      filepath.Join(baseDir, "db"),
	}, nil
}

// getConfigPath returns the config file path, checking TVP_CONFIG_PATH env var first,
// then falling back to the default ~/.config/tvp.toml.
func getConfigPath() (string, error) {
	if path := os.Getenv("TVP_CONFIG_PATH"); path != "" {
		return path, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(homeDir, ".config", "tvp.toml"), nil
}

// getBaseDir returns the base directory for tvp data, checking TVP_HOME env var first,
// then falling back to the XDG default ~/.local/share/tvp.
func getBaseDir() (string, error) {
	if path := os.Getenv("TVP_HOME"); path != "" {
		return path, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(homeDir, ".local", "share", "tvp"), nil
}
