package config

import (
	"os"
	"path/filepath"
)

const (
	// EnvConfigPath is the environment variable for explicit config path
	EnvConfigPath = "IPSCOPE_CONFIG"
	// EnvDotEnvPath is the environment variable for an explicit .env file
	EnvDotEnvPath = "IPSCOPE_ENV_FILE"
	// ConfigFileName is the default config file name
	ConfigFileName = "ipscope.yaml"
	// ConfigDirName is the config directory name under XDG
	ConfigDirName = "ipscope"
)

// configCandidates lists config file locations in priority order
func configCandidates() []string {
	var paths []string
	if p := os.Getenv(EnvConfigPath); p != "" {
		paths = append(paths, p)
	}
	paths = append(paths, ConfigFileName)
	if xdgHome := os.Getenv("XDG_CONFIG_HOME"); xdgHome != "" {
		paths = append(paths, filepath.Join(xdgHome, ConfigDirName, "config.yaml"))
	}
	if home := os.Getenv("HOME"); home != "" {
		paths = append(paths, filepath.Join(home, ".config", ConfigDirName, "config.yaml"))
	}
	return append(paths, filepath.Join("/etc", ConfigDirName, "config.yaml"))
}

// FindConfigPath searches for config file in priority order:
// 1. $IPSCOPE_CONFIG (explicit path)
// 2. ./ipscope.yaml (working directory)
// 3. $XDG_CONFIG_HOME/ipscope/config.yaml
// 4. ~/.config/ipscope/config.yaml
// 5. /etc/ipscope/config.yaml
//
// Returns empty string if no config file found
func FindConfigPath() string {
	for _, path := range configCandidates() {
		if !fileExists(path) {
			continue
		}
		if abs, err := filepath.Abs(path); err == nil {
			return abs
		}
		return path
	}
	return ""
}

// FindEnvFile returns the .env file to load: $IPSCOPE_ENV_FILE, then ./.env
func FindEnvFile() string {
	if p := os.Getenv(EnvDotEnvPath); p != "" && fileExists(p) {
		return p
	}
	if fileExists(".env") {
		return ".env"
	}
	return ""
}

// DefaultConfigPath returns the preferred location for a new config file
func DefaultConfigPath() string {
	if xdgHome := os.Getenv("XDG_CONFIG_HOME"); xdgHome != "" {
		return filepath.Join(xdgHome, ConfigDirName, "config.yaml")
	}
	if home := os.Getenv("HOME"); home != "" {
		return filepath.Join(home, ".config", ConfigDirName, "config.yaml")
	}
	return ConfigFileName
}

// EnsureConfigDir creates the config directory if it doesn't exist
func EnsureConfigDir(configPath string) error {
	return os.MkdirAll(filepath.Dir(configPath), 0755)
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
