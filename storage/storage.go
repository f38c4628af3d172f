// Package storage persists the frontend configuration and answers the
// settings and core-list queries the session layer makes.
package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/spf13/afero"
)

const (
	configFile = "config.json"
	systemDir  = "system"
	savesDir   = "saves"
	cacheDir   = "cache"
)

// BaseDir returns the base directory for application data. Example paths:
// - macOS: ~/Library/Application Support/<appName>
// - Linux: ~/.local/share/<appName>
// - Windows: %APPDATA%/<appName>
func BaseDir(appName string) (string, error) {
	var baseDir string

	switch runtime.GOOS {
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		baseDir = filepath.Join(home, "Library", "Application Support", appName)
	case "windows":
		appData := os.Getenv("APPDATA")
		if appData == "" {
			return "", fmt.Errorf("APPDATA environment variable not set")
		}
		baseDir = filepath.Join(appData, appName)
	default: // Linux and other Unix-like systems
		dataHome := os.Getenv("XDG_DATA_HOME")
		if dataHome != "" {
			baseDir = filepath.Join(dataHome, appName)
		} else {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", fmt.Errorf("failed to get home directory: %w", err)
			}
			baseDir = filepath.Join(home, ".local", "share", appName)
		}
	}

	return baseDir, nil
}

// EnsureDirectories creates the base directory and its default
// subdirectories
func EnsureDirectories(fs afero.Fs, baseDir string) error {
	dirs := []string{
		baseDir,
		filepath.Join(baseDir, systemDir),
		filepath.Join(baseDir, savesDir),
		filepath.Join(baseDir, cacheDir),
	}

	for _, dir := range dirs {
		if err := fs.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	return nil
}

// ConfigPath returns the full path to config.json under baseDir
func ConfigPath(baseDir string) string {
	return filepath.Join(baseDir, configFile)
}

// WithDefaults fills empty directories with the defaults under baseDir.
func (d DirectoryConfig) WithDefaults(baseDir string) DirectoryConfig {
	if d.System == "" {
		d.System = filepath.Join(baseDir, systemDir)
	}
	if d.Save == "" {
		d.Save = filepath.Join(baseDir, savesDir)
	}
	return d
}

// CacheDirOrDefault returns the extraction cache directory.
func (c ContentConfig) CacheDirOrDefault(baseDir string) string {
	if c.CacheDir != "" {
		return c.CacheDir
	}
	return filepath.Join(baseDir, cacheDir)
}

// AtomicWriteJSON writes data to a JSON file atomically.
// It writes to a temporary file first, then renames to the target path.
func AtomicWriteJSON(fs afero.Fs, path string, data interface{}) error {
	dir := filepath.Dir(path)
	if err := fs.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	jsonData, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	tempFile := path + ".tmp"
	if err := afero.WriteFile(fs, tempFile, jsonData, 0644); err != nil {
		return fmt.Errorf("failed to write temp file: %w", err)
	}

	if err := fs.Rename(tempFile, path); err != nil {
		fs.Remove(tempFile)
		return fmt.Errorf("failed to rename temp file: %w", err)
	}

	return nil
}
