package config

import (
	"os"
	"path/filepath"
)

const appName = "chartpipe"

// XDGConfigHome returns the XDG config home or a default fallback.
func XDGConfigHome() string {
	if v := os.Getenv("XDG_CONFIG_HOME"); v != "" {
		return v
	}
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return "."
	}
	return filepath.Join(home, ".config")
}

// XDGDataHome returns the XDG data home or a default fallback.
func XDGDataHome() string {
	if v := os.Getenv("XDG_DATA_HOME"); v != "" {
		return v
	}
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return "."
	}
	return filepath.Join(home, ".local", "share")
}

// XDGCacheHome returns the XDG cache home or a default fallback.
func XDGCacheHome() string {
	if v := os.Getenv("XDG_CACHE_HOME"); v != "" {
		return v
	}
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return "."
	}
	return filepath.Join(home, ".cache")
}

// DefaultConfigPath returns the default TOML config path.
func DefaultConfigPath() string {
	return filepath.Join(XDGConfigHome(), appName, "config.toml")
}

// DefaultDBPath returns the default path for the SQLite dataset store.
func DefaultDBPath() string {
	return filepath.Join(XDGDataHome(), appName, "datasets.db")
}

// DefaultOutputDir is where rendered SVG files go.
func DefaultOutputDir() string {
	return filepath.Join(XDGDataHome(), appName, "out")
}

// DefaultCacheDir holds downloaded remote datasets.
func DefaultCacheDir() string {
	return filepath.Join(XDGCacheHome(), appName)
}
