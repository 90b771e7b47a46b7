// Package paths resolves the configuration and data directories.
//
// Each directory follows a precedence chain: command-line flag, then
// config.yaml (data only), then environment variable, then the platform
// default. Explicit values are made absolute.
package paths

import (
	"os"
	"path/filepath"
	"runtime"
)

// AppName names the per-user directories.
const AppName = "bringtolife"

// Environment variable names for directory overrides.
const (
	EnvConfigDir = "BRINGTOLIFE_CONFIG_DIR"
	EnvDataDir   = "BRINGTOLIFE_DATA_DIR"
)

// ConfigFileName is the configuration file inside the config directory.
const ConfigFileName = "config.yaml"

// platformDir holds platform lookups that tests override.
var platformDir = struct {
	homeDir       func() (string, error)
	userConfigDir func() (string, error)
}{
	homeDir:       os.UserHomeDir,
	userConfigDir: os.UserConfigDir,
}

// DefaultConfigDir returns the platform default configuration directory.
//
// Linux:   $XDG_CONFIG_HOME/bringtolife (fallback ~/.config/bringtolife)
// macOS:   ~/Library/Application Support/bringtolife
// Windows: %APPDATA%/bringtolife
func DefaultConfigDir() (string, error) {
	return xdgDir("XDG_CONFIG_HOME", ".config")
}

// DefaultDataDir returns the platform default data directory, which holds
// the SQLite store and the local key-value file.
//
// Linux:   $XDG_DATA_HOME/bringtolife (fallback ~/.local/share/bringtolife)
// macOS:   ~/Library/Application Support/bringtolife
// Windows: %APPDATA%/bringtolife
func DefaultDataDir() (string, error) {
	return xdgDir("XDG_DATA_HOME", filepath.Join(".local", "share"))
}

func xdgDir(xdgVar, homeRel string) (string, error) {
	if runtime.GOOS != "linux" {
		// os.UserConfigDir is ~/Library/Application Support on macOS and
		// %APPDATA% on Windows.
		dir, err := platformDir.userConfigDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(dir, AppName), nil
	}
	if xdg := os.Getenv(xdgVar); xdg != "" {
		return filepath.Join(xdg, AppName), nil
	}
	home, err := platformDir.homeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, homeRel, AppName), nil
}

// ResolveConfigDir returns the configuration directory:
// flag > BRINGTOLIFE_CONFIG_DIR > DefaultConfigDir().
func ResolveConfigDir(flag string) (string, error) {
	if flag != "" {
		return filepath.Abs(flag)
	}
	if env := os.Getenv(EnvConfigDir); env != "" {
		return filepath.Abs(env)
	}
	return DefaultConfigDir()
}

// ResolveDataDir returns the data directory:
// flag > config.yaml data_dir > BRINGTOLIFE_DATA_DIR > DefaultDataDir().
func ResolveDataDir(flag, configYAMLValue string) (string, error) {
	if flag != "" {
		return filepath.Abs(flag)
	}
	if configYAMLValue != "" {
		return filepath.Abs(configYAMLValue)
	}
	if env := os.Getenv(EnvDataDir); env != "" {
		return filepath.Abs(env)
	}
	return DefaultDataDir()
}
