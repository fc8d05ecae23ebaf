package config

import (
	"os"
	"path/filepath"
)

// UserConfigPath returns the path to the user-level config file.
// This follows the XDG Base Directory Specification:
// - Linux: ~/.config/dlcmd/config.yml
// - macOS: ~/Library/Application Support/dlcmd/config.yml
// - Windows: %APPDATA%\dlcmd\config.yml
//
// If XDG_CONFIG_HOME is set, it will be respected on Linux.
func UserConfigPath() (string, error) {
	dir, err := UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yml"), nil
}

// UserConfigDir returns the path to the user-level config directory.
func UserConfigDir() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "dlcmd"), nil
}

// SiteConfigPath returns the path of the site config file below site.
func SiteConfigPath(site string) string {
	return filepath.Join(site, "etc", "dlcmd.yml")
}
