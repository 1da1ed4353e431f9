package config

import (
	"os"
	"path/filepath"
)

const (
	// EnvConfigPath names an explicit config file
	EnvConfigPath = "ARCHSKETCH_CONFIG"
	// ConfigFileName is looked for in the working directory
	ConfigFileName = "archsketch.yaml"
	// ConfigDirName is the per-user and system directory name
	ConfigDirName = "archsketch"

	dirConfigFile = "config.yaml"
)

// SearchPaths lists config file candidates in priority order. Variables
// that are unset contribute no candidate.
func SearchPaths(getenv func(string) string) []string {
	var paths []string
	if p := getenv(EnvConfigPath); p != "" {
		paths = append(paths, p)
	}
	paths = append(paths, ConfigFileName)
	if xdg := getenv("XDG_CONFIG_HOME"); xdg != "" {
		paths = append(paths, filepath.Join(xdg, ConfigDirName, dirConfigFile))
	}
	if home := getenv("HOME"); home != "" {
		paths = append(paths, filepath.Join(home, ".config", ConfigDirName, dirConfigFile))
	}
	return append(paths, filepath.Join("/etc", ConfigDirName, dirConfigFile))
}

// FindConfigPath returns the first existing regular file from SearchPaths,
// made absolute, or "" when there is none
func FindConfigPath() string {
	for _, p := range SearchPaths(os.Getenv) {
		info, err := os.Stat(p)
		if err != nil || info.IsDir() {
			continue
		}
		if abs, err := filepath.Abs(p); err == nil {
			return abs
		}
		return p
	}
	return ""
}

// EnsureConfigDir creates the directory that will hold configPath
func EnsureConfigDir(configPath string) error {
	return os.MkdirAll(filepath.Dir(configPath), 0o755)
}
