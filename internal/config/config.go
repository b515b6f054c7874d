// Package config provides configuration directory management for revtun's
// admin surface: the admin user database, the admin SSH host key, and the
// admin HTTPS certificate all live under the same config directory.
package config

import (
	"os"
	"path/filepath"
)

// GetConfigDir returns the configuration directory for revtun.
// It follows platform-specific conventions:
// - Windows: %APPDATA%\revtun
// - Unix-like: $XDG_CONFIG_HOME/revtun or $HOME/.config/revtun
func GetConfigDir() (string, error) {
	var configDir string

	// Check for XDG_CONFIG_HOME first (cross-platform standard)
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		configDir = filepath.Join(xdgConfig, "revtun")
	} else if appData := os.Getenv("APPDATA"); appData != "" {
		// Windows: use APPDATA
		configDir = filepath.Join(appData, "revtun")
	} else if homeDir, err := os.UserHomeDir(); err == nil {
		// Unix-like: use ~/.config/revtun
		configDir = filepath.Join(homeDir, ".config", "revtun")
	} else {
		return "", err
	}

	// Ensure the directory exists
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return "", err
	}

	return configDir, nil
}

// GetUserDBPath returns the full path to the admin user database file.
func GetUserDBPath() (string, error) {
	configDir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "admin-users.json"), nil
}

// GetAdminTLSPaths returns the cert and key paths used by the admin HTTPS
// status endpoint.
func GetAdminTLSPaths() (certFile, keyFile string, err error) {
	configDir, err := GetConfigDir()
	if err != nil {
		return "", "", err
	}
	return filepath.Join(configDir, "admin-cert.pem"), filepath.Join(configDir, "admin-key.pem"), nil
}

// GetAdminSSHHostKeyPath returns the path to the admin SSH console's host
// key, generated on first run if absent.
func GetAdminSSHHostKeyPath() (string, error) {
	configDir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "admin_host_key"), nil
}
