package config

import (
	"os"
	"path/filepath"
)

// UserConfigPath returns the user-level config file path
// (~/.config/codeforge/config.yml on Linux, honoring XDG_CONFIG_HOME).
func UserConfigPath() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "codeforge", "config.yml"), nil
}

// ProjectConfigPath returns the project-level config path relative to the
// working directory. A config.json is used when no config.yml exists.
func ProjectConfigPath() string {
	yml := filepath.Join(".codeforge", "config.yml")
	if fileExists(yml) {
		return yml
	}
	if js := filepath.Join(".codeforge", "config.json"); fileExists(js) {
		return js
	}
	return yml
}

// CheckpointDir is where per-run state snapshots are written.
func (c *Configuration) CheckpointDir() string {
	return filepath.Join(c.StateDir, "runs")
}

// HistoryDBPath is the sqlite database holding run history.
func (c *Configuration) HistoryDBPath() string {
	return filepath.Join(c.StateDir, "history.db")
}
